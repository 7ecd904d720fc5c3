// Package abci provides the shared error handling of keeper sweeps: the
// background passes that trigger permissionless operations (limit order
// execution, DCA cycles, liquidations, expiry) on behalf of no one.
// A failed trigger never stops a sweep; it is classified, logged and counted.
package abci

import (
	"errors"
	"sync"

	"cosmossdk.io/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// ErrorSeverity classifies the severity of sweep errors.
// Higher severity errors may warrant operator attention.
type ErrorSeverity int

const (
	// SeverityLow indicates an expected outcome of racing other keepers or
	// the market: the record was already handled or is not yet eligible.
	SeverityLow ErrorSeverity = iota

	// SeverityMedium indicates the trigger was eligible when selected but
	// market conditions rejected it (slippage, paused pool, empty insurance).
	SeverityMedium

	// SeverityHigh indicates a trigger the engine should never have been
	// asked to run, such as a validation or authorization failure.
	SeverityHigh

	// SeverityCritical indicates errors that may affect ledger integrity.
	// Examples: overflow, broken invariant, missing escrow balance
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// SeverityOf maps an engine error to the severity of a failed trigger.
func SeverityOf(err error) ErrorSeverity {
	switch sharedtypes.Class(err) {
	case sharedtypes.ClassConcurrency:
		return SeverityLow
	case sharedtypes.ClassEconomic:
		if isStaleCondition(err) {
			return SeverityLow
		}
		return SeverityMedium
	case sharedtypes.ClassResource:
		return SeverityCritical
	default:
		return SeverityHigh
	}
}

// isStaleCondition reports economic errors that only mean the price moved
// between selection and execution.
func isStaleCondition(err error) bool {
	return errors.Is(err, sharedtypes.ErrOrderNotExecutable) ||
		errors.Is(err, sharedtypes.ErrNotLiquidatable) ||
		errors.Is(err, sharedtypes.ErrPriceOutOfRange)
}

var (
	sweepErrorsOnce sync.Once
	sweepErrors     *prometheus.CounterVec
)

func sweepErrorCounter() *prometheus.CounterVec {
	sweepErrorsOnce.Do(func() {
		sweepErrors = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rush",
				Subsystem: "trigger",
				Name:      "errors_total",
				Help:      "Failed keeper triggers by module, operation and severity",
			},
			[]string{"module", "operation", "severity"},
		)
	})
	return sweepErrors
}

// SweepErrorHandler provides standardized error handling for keeper sweeps.
// It logs errors with severity and counts them.
type SweepErrorHandler struct {
	moduleName string
	logger     log.Logger
	counter    *prometheus.CounterVec
}

// NewSweepErrorHandler creates a new error handler for the given module.
func NewSweepErrorHandler(logger log.Logger, moduleName string) *SweepErrorHandler {
	return &SweepErrorHandler{
		moduleName: moduleName,
		logger:     logger,
		counter:    sweepErrorCounter(),
	}
}

// HandleError logs and counts err with its severity and returns the severity.
// Sweeps do not stop on errors; callers continue with the next record.
func (h *SweepErrorHandler) HandleError(operation, record string, err error) ErrorSeverity {
	if err == nil {
		return SeverityLow
	}
	severity := SeverityOf(err)
	keyvals := []any{
		"module", h.moduleName,
		"operation", operation,
		"record", record,
		"severity", severity.String(),
		"class", sharedtypes.Class(err).String(),
		"error", err.Error(),
	}

	switch severity {
	case SeverityCritical:
		h.logger.Error("CRITICAL sweep error", keyvals...)
	case SeverityHigh:
		h.logger.Error("sweep error", keyvals...)
	case SeverityMedium:
		h.logger.Warn("sweep warning", keyvals...)
	default:
		h.logger.Debug("sweep trigger skipped", keyvals...)
	}

	h.counter.WithLabelValues(h.moduleName, operation, severity.String()).Inc()
	return severity
}

// WrapError is a convenience method for handling errors inline.
// Returns true if there was an error (for use in if statements).
// Example:
//
//	if handler.WrapError("liquidate", id.String(), err) {
//	    continue
//	}
func (h *SweepErrorHandler) WrapError(operation, record string, err error) bool {
	if err != nil {
		h.HandleError(operation, record, err)
		return true
	}
	return false
}
