// Package launch starts child processes in their own process groups and
// hands out handles for observing and stopping them. It knows nothing
// about readiness or ordering; that lives in pkg/boot.
package launch

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// LogDir, when set, redirects each child's stdout and stderr into
	// per-process log files under it. When empty the child inherits the
	// launcher's stdio.
	LogDir string

	// GraceTimeout is how long Shutdown waits between SIGTERM and
	// SIGKILL. Defaults to 3s.
	GraceTimeout time.Duration
}

type Launcher struct {
	opts Options
}

func New(opts Options) *Launcher {
	if opts.GraceTimeout <= 0 {
		opts.GraceTimeout = 3 * time.Second
	}
	return &Launcher{opts: opts}
}

// Spec describes one child process.
type Spec struct {
	Name    string            `json:"name"`
	Command []string          `json:"command"`
	Dir     string            `json:"dir,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Process is a handle to a background child. Exactly one owner is
// responsible for calling Shutdown; the handle itself never initiates
// termination.
type Process interface {
	PID() int
	Name() string
	StartedAt() time.Time
	StdoutLog() string
	StderrLog() string

	// Done is closed once the child has been reaped.
	Done() <-chan struct{}

	// ExitStatus reports how the child ended. ok is false while it is
	// still running.
	ExitStatus() (status ExitStatus, ok bool)

	// Shutdown terminates the child's whole process group, escalating
	// from SIGTERM to SIGKILL after the grace timeout. Safe to call
	// after the child already exited.
	Shutdown(ctx context.Context) error
}

// StartBackground launches the spec detached into its own process group
// and returns once the child is running. A start failure is final; the
// launcher never retries.
func (l *Launcher) StartBackground(ctx context.Context, spec Spec) (Process, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "launch cancelled")
	}

	// #nosec G204 -- command comes from the operator's own config.
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	h := &handle{
		name:  spec.Name,
		grace: l.opts.GraceTimeout,
		done:  make(chan struct{}),
	}

	if l.opts.LogDir != "" {
		if err := os.MkdirAll(l.opts.LogDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "mkdir log dir")
		}

		ts := time.Now().Format("20060102-150405")
		h.stdoutLog = filepath.Join(l.opts.LogDir, spec.Name+"-"+ts+".stdout.log")
		h.stderrLog = filepath.Join(l.opts.LogDir, spec.Name+"-"+ts+".stderr.log")

		stdoutFile, err := os.OpenFile(h.stdoutLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, errors.Wrap(err, "open stdout log")
		}
		defer func() { _ = stdoutFile.Close() }()

		stderrFile, err := os.OpenFile(h.stderrLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, errors.Wrap(err, "open stderr log")
		}
		defer func() { _ = stderrFile.Close() }()

		cmd.Stdout = stdoutFile
		cmd.Stderr = stderrFile
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", spec.Name)
	}

	h.cmd = cmd
	h.pid = cmd.Process.Pid
	h.startedAt = time.Now()
	log.Info().Str("process", spec.Name).Int("pid", h.pid).Msg("process started")

	go h.reap()
	return h, nil
}

// RunForeground runs the spec as a foreground child, inheriting stdio and
// forwarding SIGTERM, SIGINT and SIGHUP to the child's process group. It
// blocks until the child exits. Cancelling ctx sends SIGTERM to the
// group; the call still waits for the child to actually die.
func (l *Launcher) RunForeground(ctx context.Context, spec Spec) (ExitStatus, error) {
	if err := validateSpec(spec); err != nil {
		return ExitStatus{}, err
	}
	if err := ctx.Err(); err != nil {
		return ExitStatus{}, errors.Wrap(err, "launch cancelled")
	}

	// #nosec G204 -- command comes from the operator's own config.
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return ExitStatus{}, errors.Wrapf(err, "start %s", spec.Name)
	}

	pid := cmd.Process.Pid
	pgid, pgidErr := syscall.Getpgid(pid)
	killGroup := func(sig syscall.Signal) {
		if pgidErr == nil {
			_ = syscall.Kill(-pgid, sig)
		} else {
			_ = syscall.Kill(pid, sig)
		}
	}

	log.Info().Str("process", spec.Name).Int("pid", pid).Msg("process started in foreground")

	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		ctxDone := ctx.Done()
		for {
			select {
			case s := <-sigCh:
				killGroup(s.(syscall.Signal))
			case <-ctxDone:
				killGroup(syscall.SIGTERM)
				ctxDone = nil
			case <-done:
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	return statusFromWaitErr(waitErr)
}

func validateSpec(spec Spec) error {
	if spec.Name == "" {
		return errors.New("process name is required")
	}
	if len(spec.Command) == 0 {
		return errors.Errorf("process %q missing command", spec.Name)
	}
	return nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := append([]string{}, base...)
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}
