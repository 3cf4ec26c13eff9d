package events

import (
	"time"

	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/go-go-golems/bootgate/pkg/proc"
	"github.com/go-go-golems/bootgate/pkg/state"
)

// Process roles as they appear in event payloads.
const (
	RolePrimary   = "primary"
	RoleDependent = "dependent"
)

type PhaseChanged struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
	Attempts int       `json:"attempts,omitempty"`
	Cause    string    `json:"cause,omitempty"`
}

type ProbeAttempt struct {
	Attempt int       `json:"attempt"`
	Status  string    `json:"status"`
	Reason  string    `json:"reason,omitempty"`
	Target  string    `json:"target"`
	At      time.Time `json:"at"`
}

type ProcessStarted struct {
	Role string    `json:"role"`
	Name string    `json:"name"`
	PID  int       `json:"pid"`
	At   time.Time `json:"at"`
}

type ProcessExited struct {
	Role     string    `json:"role"`
	Name     string    `json:"name"`
	PID      int       `json:"pid"`
	Code     int       `json:"code"`
	Signaled bool      `json:"signaled,omitempty"`
	Signal   string    `json:"signal,omitempty"`
	At       time.Time `json:"at"`
}

type RunFinished struct {
	Phase    string    `json:"phase"`
	Cause    string    `json:"cause,omitempty"`
	ExitCode int       `json:"exit_code"`
	Attempts int       `json:"attempts,omitempty"`
	At       time.Time `json:"at"`
}

// RunSnapshot is the watcher's periodic view of the run record plus live
// process observations, consumed by status displays and the TUI.
type RunSnapshot struct {
	Root   string     `json:"root"`
	At     time.Time  `json:"at"`
	Exists bool       `json:"exists"`
	Run    *state.Run `json:"run,omitempty"`
	Error  string     `json:"error,omitempty"`

	PrimaryAlive   bool `json:"primary_alive,omitempty"`
	DependentAlive bool `json:"dependent_alive,omitempty"`

	PrimaryProbe *probe.Result `json:"primary_probe,omitempty"`

	PrimaryStats   *proc.Stats `json:"primary_stats,omitempty"`
	DependentStats *proc.Stats `json:"dependent_stats,omitempty"`
}
