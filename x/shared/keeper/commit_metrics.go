package keeper

import (
	"context"
	"sync"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

type pendingMetricsKey struct{}

// PendingMetrics holds collector updates that describe state written by an
// operation. They are applied only if the operation commits, so gauges such
// as pool reserves never show a swap that was rolled back.
type PendingMetrics struct {
	mu      sync.Mutex
	updates []func()
}

// WithPendingMetrics attaches an empty buffer to ctx.
func WithPendingMetrics(ctx sdk.Context) (sdk.Context, *PendingMetrics) {
	pending := &PendingMetrics{}
	return ctx.WithValue(pendingMetricsKey{}, pending), pending
}

// OnCommit queues update on the buffer carried by ctx. Without a buffer the
// caller is not inside a transaction and update runs at once.
func OnCommit(ctx context.Context, update func()) {
	pending, ok := ctx.Value(pendingMetricsKey{}).(*PendingMetrics)
	if !ok {
		update()
		return
	}
	pending.mu.Lock()
	pending.updates = append(pending.updates, update)
	pending.mu.Unlock()
}

// Flush applies the queued updates in order and empties the buffer.
func (p *PendingMetrics) Flush() {
	p.mu.Lock()
	updates := p.updates
	p.updates = nil
	p.mu.Unlock()

	for _, update := range updates {
		update()
	}
}

// Len returns the number of queued updates.
func (p *PendingMetrics) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.updates)
}
