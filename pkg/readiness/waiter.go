// Package readiness turns single-shot probes into a bounded wait loop.
// The waiter probes immediately, sleeps only after a NotReady result, and
// stops at whichever bound (attempts or wall clock) is hit first.
package readiness

import (
	"context"
	"time"

	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Outcome of a completed wait. Interrupted is only ever paired with a
// non-nil error and means the caller's context was cancelled.
type Outcome string

const (
	OutcomeReady       Outcome = "ready"
	OutcomeTimedOut    Outcome = "timed_out"
	OutcomeInterrupted Outcome = "interrupted"
)

const defaultInterval = 200 * time.Millisecond

// Policy bounds the wait loop. Zero MaxAttempts or MaxWait means
// unbounded on that axis. Interval is the sleep between failed probes and
// defaults to 200ms.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
	MaxWait     time.Duration
}

type Result struct {
	Outcome    Outcome
	Attempts   int
	Elapsed    time.Duration
	LastReason string
}

type Options struct {
	// OnAttempt is invoked after every probe, ready or not. Attempt
	// numbers start at 1.
	OnAttempt func(attempt int, res probe.Result)
}

type Waiter struct {
	checker probe.Checker
	opts    Options
}

func New(checker probe.Checker, opts Options) *Waiter {
	return &Waiter{checker: checker, opts: opts}
}

// WaitUntilReady probes until the target reports Ready or a policy bound
// is hit. The first probe fires immediately. Probes are strictly
// sequential; there is exactly one outstanding observation at any time.
//
// A TimedOut result is not an error. The returned error is non-nil only
// when ctx is cancelled, in which case the result carries
// OutcomeInterrupted and the attempt count so far.
func (w *Waiter) WaitUntilReady(ctx context.Context, pol Policy) (Result, error) {
	interval := pol.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	start := time.Now()

	var deadline <-chan time.Time
	if pol.MaxWait > 0 {
		timer := time.NewTimer(pol.MaxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	attempts := 0
	lastReason := ""

	for {
		if err := ctx.Err(); err != nil {
			return resultAt(OutcomeInterrupted, attempts, start, lastReason), errors.Wrap(err, "wait interrupted")
		}

		res := w.checker.Check(ctx)
		attempts++
		if w.opts.OnAttempt != nil {
			w.opts.OnAttempt(attempts, res)
		}
		log.Debug().
			Str("target", w.checker.Describe()).
			Int("attempt", attempts).
			Str("status", string(res.Status)).
			Str("reason", res.Reason).
			Msg("probe attempt")

		if res.Ready() {
			return resultAt(OutcomeReady, attempts, start, res.Reason), nil
		}
		lastReason = res.Reason

		if pol.MaxAttempts > 0 && attempts >= pol.MaxAttempts {
			return resultAt(OutcomeTimedOut, attempts, start, lastReason), nil
		}
		if pol.MaxWait > 0 && time.Since(start) >= pol.MaxWait {
			return resultAt(OutcomeTimedOut, attempts, start, lastReason), nil
		}

		sleep := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			sleep.Stop()
			return resultAt(OutcomeInterrupted, attempts, start, lastReason), errors.Wrap(ctx.Err(), "wait interrupted")
		case <-deadline:
			sleep.Stop()
			return resultAt(OutcomeTimedOut, attempts, start, lastReason), nil
		case <-sleep.C:
		}
	}
}

func resultAt(o Outcome, attempts int, start time.Time, reason string) Result {
	return Result{
		Outcome:    o,
		Attempts:   attempts,
		Elapsed:    time.Since(start),
		LastReason: reason,
	}
}
