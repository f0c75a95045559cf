package ledger

import "time"

// DefaultTimeout applies to every ledger call phase unless configured otherwise.
const DefaultTimeout = 300 * time.Second

// Timeouts bounds each phase of a ledger invocation.
type Timeouts struct {
	Evaluate     time.Duration
	Endorse      time.Duration
	Submit       time.Duration
	CommitStatus time.Duration
}

// DefaultTimeouts returns DefaultTimeout for every phase.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Evaluate:     DefaultTimeout,
		Endorse:      DefaultTimeout,
		Submit:       DefaultTimeout,
		CommitStatus: DefaultTimeout,
	}
}

// WithDefaults fills zero durations with DefaultTimeout.
func (t Timeouts) WithDefaults() Timeouts {
	orDefault := func(d time.Duration) time.Duration {
		if d <= 0 {
			return DefaultTimeout
		}
		return d
	}
	return Timeouts{
		Evaluate:     orDefault(t.Evaluate),
		Endorse:      orDefault(t.Endorse),
		Submit:       orDefault(t.Submit),
		CommitStatus: orDefault(t.CommitStatus),
	}
}
