package launch

import (
	stderrors "errors"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
)

// ExitStatus describes how a process ended. Code already folds signal
// deaths into the shell convention of 128+N, so callers can propagate it
// directly as their own exit code.
type ExitStatus struct {
	Code     int    `json:"code"`
	Signaled bool   `json:"signaled,omitempty"`
	Signal   string `json:"signal,omitempty"`
}

func (s ExitStatus) Describe() string {
	if s.Signaled {
		return "signal " + s.Signal
	}
	return "exit code " + strconv.Itoa(s.Code)
}

func statusFromWaitErr(waitErr error) (ExitStatus, error) {
	if waitErr == nil {
		return ExitStatus{Code: 0}, nil
	}

	var ee *exec.ExitError
	if stderrors.As(waitErr, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				sig := ws.Signal()
				return ExitStatus{Code: 128 + int(sig), Signaled: true, Signal: sig.String()}, nil
			}
			if ws.Exited() {
				return ExitStatus{Code: ws.ExitStatus()}, nil
			}
		}
		return ExitStatus{Code: ee.ExitCode()}, nil
	}

	return ExitStatus{Code: -1}, errors.Wrap(waitErr, "wait")
}
