package session

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/ledger"
)

// Option configures the session manager and connector using
// the functional options pattern.
type Option func(*settings)

type settings struct {
	logger   *zap.Logger
	timeouts ledger.Timeouts
	dialOpts []grpc.DialOption
}

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithTimeouts overrides the ledger call timeouts. Zero durations keep the default.
func WithTimeouts(t ledger.Timeouts) Option {
	return func(s *settings) { s.timeouts = t }
}

// WithGRPCDialOptions appends additional gRPC dial options.
func WithGRPCDialOptions(opts ...grpc.DialOption) Option {
	return func(s *settings) { s.dialOpts = append(s.dialOpts, opts...) }
}

// applyOptions applies the provided options and returns the resulting settings.
// Defaults are applied before user-defined options.
func applyOptions(opts []Option) settings {
	s := settings{
		logger:   zap.NewNop(),
		timeouts: ledger.DefaultTimeouts(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
