package boot

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/bootgate/pkg/launch"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/go-go-golems/bootgate/pkg/proc"
	"github.com/go-go-golems/bootgate/pkg/readiness"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	pid  int
	name string

	mu        sync.Mutex
	shutdowns int
	done      chan struct{}
}

func newFakeProcess(pid int, name string) *fakeProcess {
	return &fakeProcess{pid: pid, name: name, done: make(chan struct{})}
}

func (p *fakeProcess) PID() int             { return p.pid }
func (p *fakeProcess) Name() string         { return p.name }
func (p *fakeProcess) StartedAt() time.Time { return time.Now() }
func (p *fakeProcess) StdoutLog() string    { return "" }
func (p *fakeProcess) StderrLog() string    { return "" }
func (p *fakeProcess) Done() <-chan struct{} {
	return p.done
}

func (p *fakeProcess) ExitStatus() (launch.ExitStatus, bool) {
	return launch.ExitStatus{}, false
}

func (p *fakeProcess) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdowns++
	return nil
}

func (p *fakeProcess) shutdownCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdowns
}

type fakeLauncher struct {
	mu       sync.Mutex
	seq      *[]string
	startErr error
	fgStatus launch.ExitStatus
	fgErr    error

	proc    *fakeProcess
	fgCalls int
}

func (l *fakeLauncher) StartBackground(ctx context.Context, spec launch.Spec) (launch.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.seq = append(*l.seq, "start-primary")
	if l.startErr != nil {
		return nil, l.startErr
	}
	return l.proc, nil
}

func (l *fakeLauncher) RunForeground(ctx context.Context, spec launch.Spec) (launch.ExitStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.seq = append(*l.seq, "run-dependent")
	l.fgCalls++
	if l.fgErr != nil {
		return launch.ExitStatus{}, l.fgErr
	}
	return l.fgStatus, nil
}

type fakeWaiter struct {
	seq   *[]string
	res   readiness.Result
	err   error
	calls int
}

func (w *fakeWaiter) WaitUntilReady(ctx context.Context, pol readiness.Policy) (readiness.Result, error) {
	*w.seq = append(*w.seq, "wait-ready")
	w.calls++
	return w.res, w.err
}

func collectTransitions(dst *[]Transition) Options {
	return Options{OnTransition: func(t Transition) { *dst = append(*dst, t) }}
}

func phases(ts []Transition) []Phase {
	out := make([]Phase, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.To)
	}
	return out
}

func TestOrchestrator_HappyPathOrderAndTransitions(t *testing.T) {
	var seq []string
	fp := newFakeProcess(111, "db")
	l := &fakeLauncher{seq: &seq, proc: fp, fgStatus: launch.ExitStatus{Code: 0}}
	w := &fakeWaiter{seq: &seq, res: readiness.Result{Outcome: readiness.OutcomeReady, Attempts: 3}}

	var ts []Transition
	o := New(l, w, collectTransitions(&ts))

	res, err := o.Run(context.Background(), RunSpec{
		Primary:   launch.Spec{Name: "db", Command: []string{"x"}},
		Dependent: launch.Spec{Name: "web", Command: []string{"y"}},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"start-primary", "wait-ready", "run-dependent"}, seq)
	require.Equal(t, []Phase{PhasePrimaryStarting, PhaseWaitingForReady, PhaseDependentRunning, PhaseDone}, phases(ts))

	require.Equal(t, PhaseDone, res.Phase)
	require.Equal(t, 3, res.Attempts)
	require.Equal(t, 111, res.PrimaryPID)
	require.Equal(t, 0, res.ExitCode())

	// Ownership was handed back: the primary outlives the run.
	require.False(t, res.PrimaryStopped)
	require.Equal(t, 0, fp.shutdownCount())
}

func TestOrchestrator_DependentExitCodePropagates(t *testing.T) {
	var seq []string
	fp := newFakeProcess(111, "db")
	l := &fakeLauncher{seq: &seq, proc: fp, fgStatus: launch.ExitStatus{Code: 3}}
	w := &fakeWaiter{seq: &seq, res: readiness.Result{Outcome: readiness.OutcomeReady, Attempts: 1}}

	o := New(l, w, Options{})
	res, err := o.Run(context.Background(), RunSpec{
		Primary:   launch.Spec{Name: "db", Command: []string{"x"}},
		Dependent: launch.Spec{Name: "web", Command: []string{"y"}},
	})
	require.NoError(t, err)
	require.Equal(t, PhaseDone, res.Phase)
	require.Equal(t, 3, res.ExitCode())
}

func TestOrchestrator_WaitTimeoutAbortsAndStopsPrimary(t *testing.T) {
	var seq []string
	fp := newFakeProcess(111, "db")
	l := &fakeLauncher{seq: &seq, proc: fp}
	w := &fakeWaiter{seq: &seq, res: readiness.Result{Outcome: readiness.OutcomeTimedOut, Attempts: 5, LastReason: "connection refused"}}

	var ts []Transition
	o := New(l, w, collectTransitions(&ts))

	res, err := o.Run(context.Background(), RunSpec{
		Primary:   launch.Spec{Name: "db", Command: []string{"x"}},
		Dependent: launch.Spec{Name: "web", Command: []string{"y"}},
	})
	require.Error(t, err)

	require.Equal(t, PhaseAborted, res.Phase)
	require.Equal(t, CauseWaitTimedOut, res.Cause)
	require.Equal(t, 5, res.Attempts)
	require.Equal(t, ExitCodeWaitTimeout, res.ExitCode())

	// The dependent was never launched and the primary was torn down.
	require.Equal(t, 0, l.fgCalls)
	require.True(t, res.PrimaryStopped)
	require.Equal(t, 1, fp.shutdownCount())

	require.Equal(t, []Phase{PhasePrimaryStarting, PhaseWaitingForReady, PhaseAborted}, phases(ts))
	last := ts[len(ts)-1]
	require.Equal(t, PhaseWaitingForReady, last.From)
	require.Equal(t, CauseWaitTimedOut, last.Cause)
}

func TestOrchestrator_PrimaryLaunchFailureAborts(t *testing.T) {
	var seq []string
	l := &fakeLauncher{seq: &seq, startErr: errors.New("no such binary")}
	w := &fakeWaiter{seq: &seq}

	var ts []Transition
	o := New(l, w, collectTransitions(&ts))

	res, err := o.Run(context.Background(), RunSpec{
		Primary:   launch.Spec{Name: "db", Command: []string{"x"}},
		Dependent: launch.Spec{Name: "web", Command: []string{"y"}},
	})
	require.Error(t, err)

	require.Equal(t, PhaseAborted, res.Phase)
	require.Equal(t, CauseLaunchFailed, res.Cause)
	require.Equal(t, ExitCodeLaunchFailure, res.ExitCode())
	require.Equal(t, 0, w.calls)
	require.Equal(t, 0, l.fgCalls)
	require.False(t, res.PrimaryStopped)
	require.Equal(t, []Phase{PhasePrimaryStarting, PhaseAborted}, phases(ts))
}

func TestOrchestrator_InterruptedWaitTearsDownPrimary(t *testing.T) {
	var seq []string
	fp := newFakeProcess(111, "db")
	l := &fakeLauncher{seq: &seq, proc: fp}
	w := &fakeWaiter{seq: &seq,
		res: readiness.Result{Outcome: readiness.OutcomeInterrupted, Attempts: 2},
		err: errors.Wrap(context.Canceled, "wait interrupted"),
	}

	o := New(l, w, Options{})
	res, err := o.Run(context.Background(), RunSpec{
		Primary:   launch.Spec{Name: "db", Command: []string{"x"}},
		Dependent: launch.Spec{Name: "web", Command: []string{"y"}},
	})
	require.Error(t, err)

	require.Equal(t, PhaseAborted, res.Phase)
	require.Equal(t, CauseInterrupted, res.Cause)
	require.Equal(t, ExitCodeInterrupted, res.ExitCode())
	require.Equal(t, 0, l.fgCalls)
	require.True(t, res.PrimaryStopped)
	require.Equal(t, 1, fp.shutdownCount())
}

func TestOrchestrator_DependentLaunchFailureAbortsAndStopsPrimary(t *testing.T) {
	var seq []string
	fp := newFakeProcess(111, "db")
	l := &fakeLauncher{seq: &seq, proc: fp, fgErr: errors.New("no such binary")}
	w := &fakeWaiter{seq: &seq, res: readiness.Result{Outcome: readiness.OutcomeReady, Attempts: 1}}

	o := New(l, w, Options{})
	res, err := o.Run(context.Background(), RunSpec{
		Primary:   launch.Spec{Name: "db", Command: []string{"x"}},
		Dependent: launch.Spec{Name: "web", Command: []string{"y"}},
	})
	require.Error(t, err)

	require.Equal(t, PhaseAborted, res.Phase)
	require.Equal(t, CauseLaunchFailed, res.Cause)
	require.Equal(t, ExitCodeLaunchFailure, res.ExitCode())
	require.True(t, res.PrimaryStopped)
}

func TestOrchestrator_StopPrimaryOnExit(t *testing.T) {
	var seq []string
	fp := newFakeProcess(111, "db")
	l := &fakeLauncher{seq: &seq, proc: fp, fgStatus: launch.ExitStatus{Code: 0}}
	w := &fakeWaiter{seq: &seq, res: readiness.Result{Outcome: readiness.OutcomeReady, Attempts: 1}}

	o := New(l, w, Options{})
	res, err := o.Run(context.Background(), RunSpec{
		Primary:           launch.Spec{Name: "db", Command: []string{"x"}},
		Dependent:         launch.Spec{Name: "web", Command: []string{"y"}},
		StopPrimaryOnExit: true,
	})
	require.NoError(t, err)
	require.Equal(t, PhaseDone, res.Phase)
	require.True(t, res.PrimaryStopped)
	require.Equal(t, 1, fp.shutdownCount())
}

// End-to-end with real processes: the primary touches a sentinel file
// after a delay, the dependent refuses to run unless the sentinel exists.
func TestOrchestrator_EndToEnd_GateAndExitCode(t *testing.T) {
	dir, err := os.MkdirTemp("", "bootgate-boot-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	sentinel := filepath.Join(dir, "ready")

	checker, err := probe.New(probe.Target{Type: "file", Path: sentinel})
	require.NoError(t, err)

	launcher := launch.New(launch.Options{LogDir: filepath.Join(dir, "logs"), GraceTimeout: 2 * time.Second})
	waiter := readiness.New(checker, readiness.Options{})
	o := New(launcher, waiter, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res, err := o.Run(ctx, RunSpec{
		Primary: launch.Spec{
			Name:    "primary",
			Command: []string{"bash", "-c", "sleep 0.3; touch " + sentinel + "; sleep 30"},
		},
		Dependent: launch.Spec{
			Name:    "dependent",
			Command: []string{"bash", "-c", "test -f " + sentinel + " || exit 9; exit 3"},
		},
		Policy:            readiness.Policy{Interval: 50 * time.Millisecond, MaxWait: 10 * time.Second},
		StopPrimaryOnExit: true,
	})
	require.NoError(t, err)

	require.Equal(t, PhaseDone, res.Phase)
	require.NotNil(t, res.Dependent)
	require.Equal(t, 3, res.Dependent.Code, "dependent must only run after the sentinel exists")
	require.Equal(t, 3, res.ExitCode())
	require.GreaterOrEqual(t, res.Attempts, 2)

	require.True(t, res.PrimaryStopped)
	require.False(t, proc.Alive(res.PrimaryPID))
}

func TestOrchestrator_EndToEnd_NeverReady(t *testing.T) {
	dir, err := os.MkdirTemp("", "bootgate-boot-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	checker, err := probe.New(probe.Target{Type: "file", Path: filepath.Join(dir, "never")})
	require.NoError(t, err)

	launcher := launch.New(launch.Options{LogDir: filepath.Join(dir, "logs"), GraceTimeout: 2 * time.Second})

	attempts := 0
	waiter := readiness.New(checker, readiness.Options{
		OnAttempt: func(n int, res probe.Result) { attempts = n },
	})
	o := New(launcher, waiter, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res, err := o.Run(ctx, RunSpec{
		Primary:   launch.Spec{Name: "primary", Command: []string{"bash", "-c", "sleep 30"}},
		Dependent: launch.Spec{Name: "dependent", Command: []string{"bash", "-c", "exit 0"}},
		Policy:    readiness.Policy{Interval: 30 * time.Millisecond, MaxAttempts: 5},
	})
	require.Error(t, err)

	require.Equal(t, PhaseAborted, res.Phase)
	require.Equal(t, CauseWaitTimedOut, res.Cause)
	require.Equal(t, ExitCodeWaitTimeout, res.ExitCode())
	require.Equal(t, 5, res.Attempts)
	require.Equal(t, 5, attempts)

	require.True(t, res.PrimaryStopped)
	require.False(t, proc.Alive(res.PrimaryPID))
}
