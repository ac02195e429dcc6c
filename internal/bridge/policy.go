package bridge

import "time"

// PollPolicy bounds the poll loop: a fixed number of attempts with a
// fixed interval between status checks, no backoff.
type PollPolicy struct {
	MaxAttempts  int
	Interval     time.Duration
	ProgressStep int // emit a progress update every ProgressStep attempts
}

// PolicyFunc resolves the poll policy for a job kind.
type PolicyFunc func(video bool) PollPolicy

// DefaultPolicy returns the production poll budgets: video jobs get a
// longer budget and cadence than image jobs.
func DefaultPolicy(video bool) PollPolicy {
	if video {
		return PollPolicy{MaxAttempts: 150, Interval: 4000 * time.Millisecond, ProgressStep: 2}
	}
	return PollPolicy{MaxAttempts: 45, Interval: 2500 * time.Millisecond, ProgressStep: 4}
}
