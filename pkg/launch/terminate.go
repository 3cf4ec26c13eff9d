package launch

import (
	"context"
	"syscall"
	"time"

	"github.com/go-go-golems/bootgate/pkg/proc"
	"github.com/pkg/errors"
)

// TerminateGroup stops the process group led by pid: SIGTERM, wait up to
// grace for the leader to die, then SIGKILL. It exists for callers that
// only hold a recorded pid rather than a live Process handle.
func TerminateGroup(ctx context.Context, pid int, grace time.Duration) error {
	if grace <= 0 {
		grace = 3 * time.Second
	}
	return terminateGroup(ctx, pid, grace)
}

// terminateGroup delivers SIGTERM to the process group led by pid, waits
// up to grace for the leader to die, then escalates to SIGKILL.
func terminateGroup(ctx context.Context, pid int, grace time.Duration) error {
	if pid <= 0 {
		return nil
	}

	pgid, err := syscall.Getpgid(pid)
	if err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGTERM)
	} else {
		_ = syscall.Kill(pid, syscall.SIGTERM)
	}

	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining < grace {
			grace = remaining
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	deadline := time.Now().Add(grace)
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()

	for {
		if !proc.Alive(pid) {
			return nil
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	if err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}

	killDeadline := time.Now().Add(2 * time.Second)
	for proc.Alive(pid) && time.Now().Before(killDeadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	if proc.Alive(pid) {
		return errors.New("failed to stop process")
	}
	return nil
}
