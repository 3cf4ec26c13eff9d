package launch

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type handle struct {
	name      string
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	stdoutLog string
	stderrLog string
	grace     time.Duration

	done chan struct{}

	mu     sync.Mutex
	status ExitStatus
	exited bool
}

func (h *handle) PID() int             { return h.pid }
func (h *handle) Name() string         { return h.name }
func (h *handle) StartedAt() time.Time { return h.startedAt }
func (h *handle) StdoutLog() string    { return h.stdoutLog }
func (h *handle) StderrLog() string    { return h.stderrLog }

func (h *handle) Done() <-chan struct{} {
	return h.done
}

func (h *handle) ExitStatus() (ExitStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, h.exited
}

func (h *handle) reap() {
	waitErr := h.cmd.Wait()
	status, err := statusFromWaitErr(waitErr)
	if err != nil {
		log.Warn().Str("process", h.name).Int("pid", h.pid).Err(err).Msg("wait failed")
	}

	h.mu.Lock()
	h.status = status
	h.exited = true
	h.mu.Unlock()
	close(h.done)

	log.Debug().Str("process", h.name).Int("pid", h.pid).Str("exit", status.Describe()).Msg("process exited")
}

func (h *handle) Shutdown(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	default:
	}

	log.Info().Str("process", h.name).Int("pid", h.pid).Msg("stopping process group")
	if err := terminateGroup(ctx, h.pid, h.grace); err != nil {
		return err
	}

	// Give the reaper a moment to record the exit status.
	select {
	case <-h.done:
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}
