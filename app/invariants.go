package app

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"

	sharedtypes "github.com/solrush/rush/x/shared/types"
)

type invariantRoute struct {
	module string
	route  string
	invar  sdk.Invariant
}

// InvariantRegistry collects the invariants every module registers.
type InvariantRegistry struct {
	routes []invariantRoute
}

var _ sdk.InvariantRegistry = (*InvariantRegistry)(nil)

func NewInvariantRegistry() *InvariantRegistry {
	return &InvariantRegistry{}
}

// RegisterRoute implements sdk.InvariantRegistry.
func (r *InvariantRegistry) RegisterRoute(moduleName, route string, invar sdk.Invariant) {
	r.routes = append(r.routes, invariantRoute{module: moduleName, route: route, invar: invar})
}

// Routes lists the registered invariants as module/route.
func (r *InvariantRegistry) Routes() []string {
	routes := make([]string, 0, len(r.routes))
	for _, ir := range r.routes {
		routes = append(routes, ir.module+"/"+ir.route)
	}
	return routes
}

// Check runs every invariant against ctx and joins the messages of the broken
// ones into a single ErrInvariantBroken.
func (r *InvariantRegistry) Check(ctx sdk.Context) error {
	var broken []string
	for _, ir := range r.routes {
		if msg, isBroken := ir.invar(ctx); isBroken {
			broken = append(broken, msg)
		}
	}
	if len(broken) == 0 {
		return nil
	}
	return sharedtypes.ErrInvariantBroken.Wrap(strings.Join(broken, "\n"))
}

// AssertInvariants checks every registered invariant while no operation is in
// flight.
func (app *App) AssertInvariants(ctx context.Context) error {
	release := app.locks.AcquireAll()
	defer release()

	_, err := query(ctx, app, func(ctx sdk.Context) (struct{}, error) {
		return struct{}{}, app.invariants.Check(ctx)
	})
	if err != nil {
		app.logger.Error("invariant broken", "error", err.Error())
		return fmt.Errorf("invariant check at height %d: %w", app.Height(), err)
	}
	return nil
}

// InvariantRoutes lists the registered invariants.
func (app *App) InvariantRoutes() []string {
	return app.invariants.Routes()
}
