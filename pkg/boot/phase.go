// Package boot sequences a background primary service and a foreground
// dependent process: the dependent is only ever launched once the
// primary's readiness probe reports Ready, and the run's exit code is the
// dependent's own unless the boot aborted first.
package boot

import "time"

type Phase string

const (
	PhaseInit             Phase = "init"
	PhasePrimaryStarting  Phase = "primary_starting"
	PhaseWaitingForReady  Phase = "waiting_for_ready"
	PhaseDependentRunning Phase = "dependent_running"
	PhaseDone             Phase = "done"
	PhaseAborted          Phase = "aborted"
)

// AbortCause says why a run ended in PhaseAborted.
type AbortCause string

const (
	CauseLaunchFailed AbortCause = "launch_failed"
	CauseWaitTimedOut AbortCause = "wait_timed_out"
	CauseInterrupted  AbortCause = "interrupted"
)

// Exit codes for aborted runs. Chosen to stay clear of anything a
// dependent is likely to exit with: 124 and 125 follow the coreutils
// timeout(1) convention, 130 is the shell's 128+SIGINT.
const (
	ExitCodeWaitTimeout   = 124
	ExitCodeLaunchFailure = 125
	ExitCodeInterrupted   = 130
)

// Transition describes one phase change, with enough context for callers
// to persist a run record or publish an event.
type Transition struct {
	From     Phase
	To       Phase
	At       time.Time
	Attempts int
	Cause    AbortCause
}
