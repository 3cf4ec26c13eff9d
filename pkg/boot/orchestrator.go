package boot

import (
	"context"
	"time"

	"github.com/go-go-golems/bootgate/pkg/launch"
	"github.com/go-go-golems/bootgate/pkg/readiness"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Launcher is the slice of pkg/launch the orchestrator needs.
// *launch.Launcher satisfies it.
type Launcher interface {
	StartBackground(ctx context.Context, spec launch.Spec) (launch.Process, error)
	RunForeground(ctx context.Context, spec launch.Spec) (launch.ExitStatus, error)
}

// ReadyWaiter is the slice of pkg/readiness the orchestrator needs.
// *readiness.Waiter satisfies it.
type ReadyWaiter interface {
	WaitUntilReady(ctx context.Context, pol readiness.Policy) (readiness.Result, error)
}

// RunSpec is one boot: a primary to start in the background, a policy for
// waiting on its readiness, and a dependent to run in the foreground once
// the primary is ready.
type RunSpec struct {
	Primary   launch.Spec
	Dependent launch.Spec
	Policy    readiness.Policy

	// StopPrimaryOnExit tears the primary down after the dependent
	// finishes. When false (the default) a cleanly finished run leaves
	// the primary running and hands ownership back to the caller.
	StopPrimaryOnExit bool
}

// Result describes how a run ended. ExitCode folds the whole outcome into
// one process exit code.
type Result struct {
	Phase    Phase
	Cause    AbortCause
	Attempts int

	PrimaryPID     int
	PrimaryStopped bool
	Dependent      *launch.ExitStatus
}

func (r Result) ExitCode() int {
	if r.Phase == PhaseDone {
		if r.Dependent != nil {
			return r.Dependent.Code
		}
		return 0
	}
	switch r.Cause {
	case CauseWaitTimedOut:
		return ExitCodeWaitTimeout
	case CauseLaunchFailed:
		return ExitCodeLaunchFailure
	case CauseInterrupted:
		return ExitCodeInterrupted
	}
	return 1
}

type Options struct {
	// OnTransition fires on every phase change, in order, from the
	// orchestrating goroutine.
	OnTransition func(t Transition)

	// OnPrimaryStarted fires once the primary is running, before the
	// readiness wait begins.
	OnPrimaryStarted func(p launch.Process)
}

// Orchestrator drives one RunSpec through the phase machine. It owns the
// primary's handle for the duration of the run; no other component stops
// the primary while a run is in flight.
type Orchestrator struct {
	launcher Launcher
	waiter   ReadyWaiter
	opts     Options
}

func New(launcher Launcher, waiter ReadyWaiter, opts Options) *Orchestrator {
	return &Orchestrator{launcher: launcher, waiter: waiter, opts: opts}
}

// Run executes the boot sequence. It returns a non-nil error exactly when
// the run aborted; a dependent that ran and exited non-zero is a normal
// PhaseDone result.
//
// Cancelling ctx while the primary is starting or being waited on aborts
// the run and tears the primary down. Cancelling while the dependent runs
// terminates the dependent (see launch.RunForeground); the run then
// finishes as PhaseDone with the dependent's signal status, and the
// primary is torn down rather than handed back.
func (o *Orchestrator) Run(ctx context.Context, spec RunSpec) (res Result, err error) {
	res.Phase = PhaseInit

	o.transition(&res, PhasePrimaryStarting)
	primary, startErr := o.launcher.StartBackground(ctx, spec.Primary)
	if startErr != nil {
		o.abort(&res, CauseLaunchFailed)
		return res, errors.Wrapf(startErr, "start primary %q", spec.Primary.Name)
	}
	res.PrimaryPID = primary.PID()
	if o.opts.OnPrimaryStarted != nil {
		o.opts.OnPrimaryStarted(primary)
	}

	own := &ownership{proc: primary}
	defer func() {
		res.PrimaryStopped = own.finish()
	}()

	o.transition(&res, PhaseWaitingForReady)
	wres, werr := o.waiter.WaitUntilReady(ctx, spec.Policy)
	res.Attempts = wres.Attempts
	if werr != nil {
		o.abort(&res, CauseInterrupted)
		return res, errors.Wrap(werr, "readiness wait")
	}
	if wres.Outcome != readiness.OutcomeReady {
		o.abort(&res, CauseWaitTimedOut)
		return res, errors.Errorf("primary %q not ready after %d attempts in %s: %s",
			spec.Primary.Name, wres.Attempts, wres.Elapsed.Round(time.Millisecond), wres.LastReason)
	}
	log.Info().
		Str("primary", spec.Primary.Name).
		Int("attempts", wres.Attempts).
		Dur("elapsed", wres.Elapsed).
		Msg("primary ready")

	o.transition(&res, PhaseDependentRunning)
	depStatus, depErr := o.launcher.RunForeground(ctx, spec.Dependent)
	if depErr != nil {
		o.abort(&res, CauseLaunchFailed)
		return res, errors.Wrapf(depErr, "run dependent %q", spec.Dependent.Name)
	}
	res.Dependent = &depStatus

	if ctx.Err() == nil && !spec.StopPrimaryOnExit {
		own.release()
	}
	o.transition(&res, PhaseDone)
	return res, nil
}

func (o *Orchestrator) transition(res *Result, to Phase) {
	from := res.Phase
	res.Phase = to
	log.Info().Str("from", string(from)).Str("to", string(to)).Msg("phase transition")
	if o.opts.OnTransition != nil {
		o.opts.OnTransition(Transition{
			From:     from,
			To:       to,
			At:       time.Now(),
			Attempts: res.Attempts,
			Cause:    res.Cause,
		})
	}
}

func (o *Orchestrator) abort(res *Result, cause AbortCause) {
	res.Cause = cause
	o.transition(res, PhaseAborted)
}
