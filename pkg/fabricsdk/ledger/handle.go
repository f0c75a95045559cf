// Package ledger is the narrow invocation surface sessions expose: submit
// (endorse, order, commit) and evaluate (read-only) calls against the token
// contract, with failures classified into the gateway taxonomy.
package ledger

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/cbdc-gateway/internal/metrics"
	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
)

// Contract is the chaincode endpoint a handle invokes.
type Contract interface {
	Submit(ctx context.Context, fn string, args ...string) ([]byte, error)
	Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error)
}

const (
	modeSubmit   = "submit"
	modeEvaluate = "evaluate"
)

// Handle invokes a contract on behalf of one session. It stops working the
// moment its session is closed.
type Handle struct {
	contract Contract
	logger   *zap.Logger
	closed   atomic.Bool
}

// NewHandle wraps c.
func NewHandle(c Contract, logger *zap.Logger) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handle{contract: c, logger: logger}
}

// Submit runs a state-changing transaction and returns its result payload.
func (h *Handle) Submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	return h.invoke(ctx, modeSubmit, fn, args)
}

// Evaluate runs a read-only query and returns its result payload.
func (h *Handle) Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error) {
	return h.invoke(ctx, modeEvaluate, fn, args)
}

// Invalidate makes every later call fail with a connection error.
func (h *Handle) Invalidate() {
	h.closed.Store(true)
}

func (h *Handle) invoke(ctx context.Context, mode, fn string, args []string) ([]byte, error) {
	if h.closed.Load() {
		return nil, apperrors.ConnectionError(ErrSessionClosed, "ledger session is closed")
	}

	start := time.Now()
	var (
		out []byte
		err error
	)
	if mode == modeSubmit {
		out, err = h.contract.Submit(ctx, fn, args...)
	} else {
		out, err = h.contract.Evaluate(ctx, fn, args...)
	}
	elapsed := time.Since(start)
	metrics.LedgerCallDuration.WithLabelValues(fn, mode, metrics.Outcome(err)).Observe(elapsed.Seconds())

	if err != nil {
		err = Classify(fn, err)
		h.logger.Debug("ledger call failed",
			zap.String("function", fn),
			zap.String("mode", mode),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return nil, err
	}

	h.logger.Debug("ledger call completed",
		zap.String("function", fn),
		zap.String("mode", mode),
		zap.Duration("duration", elapsed),
		zap.Int("payload_bytes", len(out)))
	return out, nil
}
