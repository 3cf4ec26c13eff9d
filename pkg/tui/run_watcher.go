package tui

import (
	"context"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/bootgate/pkg/events"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/go-go-golems/bootgate/pkg/proc"
	"github.com/go-go-golems/bootgate/pkg/state"
	"github.com/pkg/errors"
)

// RunWatcher polls the run record and the processes it names, publishing
// a RunSnapshot on every tick plus process-exit events when a previously
// alive pid disappears.
type RunWatcher struct {
	Root     string
	Interval time.Duration
	Pub      message.Publisher

	sampler    *proc.Sampler
	lastAlive  map[string]bool
	lastExists bool

	checker    probe.Checker
	checkerFor probe.Target
}

func (w *RunWatcher) Run(ctx context.Context) error {
	if w.Root == "" {
		return errors.New("missing Root")
	}
	if w.Pub == nil {
		return errors.New("missing Publisher")
	}
	if w.Interval <= 0 {
		w.Interval = 1 * time.Second
	}
	w.sampler = proc.NewSampler()

	t := time.NewTicker(w.Interval)
	defer t.Stop()

	for {
		if err := w.emitSnapshot(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (w *RunWatcher) emitSnapshot(ctx context.Context) error {
	now := time.Now()

	if _, err := os.Stat(state.RunPath(w.Root)); err != nil {
		w.lastAlive = nil
		if os.IsNotExist(err) {
			w.lastExists = false
			return w.publish(events.DomainTypeRunSnapshot, events.RunSnapshot{Root: w.Root, At: now, Exists: false})
		}
		w.lastExists = true
		return w.publish(events.DomainTypeRunSnapshot, events.RunSnapshot{Root: w.Root, At: now, Exists: true, Error: errors.Wrap(err, "stat run record").Error()})
	}

	run, err := state.Load(w.Root)
	if err != nil {
		w.lastAlive = nil
		w.lastExists = true
		return w.publish(events.DomainTypeRunSnapshot, events.RunSnapshot{Root: w.Root, At: now, Exists: true, Error: errors.Wrap(err, "load run record").Error()})
	}

	records := map[string]*state.ProcessRecord{
		events.RolePrimary:   run.Primary,
		events.RoleDependent: run.Dependent,
	}

	alive := map[string]bool{}
	for role, rec := range records {
		if rec != nil && rec.PID > 0 {
			alive[role] = proc.Alive(rec.PID)
		}
	}

	if w.lastExists && w.lastAlive != nil {
		for role, rec := range records {
			if rec == nil {
				continue
			}
			if w.lastAlive[role] && !alive[role] {
				if err := w.publishExit(role, rec, now); err != nil {
					return err
				}
			}
		}
	}
	w.lastAlive = alive
	w.lastExists = true

	snap := events.RunSnapshot{
		Root:           w.Root,
		At:             now,
		Exists:         true,
		Run:            run,
		PrimaryAlive:   alive[events.RolePrimary],
		DependentAlive: alive[events.RoleDependent],
	}
	if run.Primary != nil {
		if snap.PrimaryAlive {
			snap.PrimaryStats, _ = w.sampler.Sample(run.Primary.PID)
			snap.PrimaryProbe = w.probePrimary(ctx, run.Primary)
		} else {
			w.sampler.Forget(run.Primary.PID)
		}
	}
	if run.Dependent != nil {
		if snap.DependentAlive {
			snap.DependentStats, _ = w.sampler.Sample(run.Dependent.PID)
		} else {
			w.sampler.Forget(run.Dependent.PID)
		}
	}
	return w.publish(events.DomainTypeRunSnapshot, snap)
}

// probePrimary re-checks the primary's probe target so the dashboard can
// show current readiness, not just the phase the record was left in.
func (w *RunWatcher) probePrimary(ctx context.Context, rec *state.ProcessRecord) *probe.Result {
	if rec.Probe == nil {
		return nil
	}
	if w.checker == nil || w.checkerFor != *rec.Probe {
		c, err := probe.New(*rec.Probe)
		if err != nil {
			return &probe.Result{Status: probe.StatusNotReady, Reason: err.Error()}
		}
		w.checker = c
		w.checkerFor = *rec.Probe
	}
	res := w.checker.Check(ctx)
	return &res
}

// publishExit reports an observed death. The exit info file, when the
// launcher or stop wrote one, supplies the real code and signal.
func (w *RunWatcher) publishExit(role string, rec *state.ProcessRecord, at time.Time) error {
	ev := events.ProcessExited{Role: role, Name: rec.Name, PID: rec.PID, Code: -1, At: at}
	if rec.StdoutLog != "" {
		if ei, err := state.ReadExitInfo(state.ExitInfoPath(rec.StdoutLog)); err == nil {
			if ei.ExitCode != nil {
				ev.Code = *ei.ExitCode
			}
			if ei.Signal != "" {
				ev.Signaled = true
				ev.Signal = ei.Signal
			}
		}
	}
	return w.publish(events.DomainTypeProcessExited, ev)
}

func (w *RunWatcher) publish(typ string, payload any) error {
	env, err := events.NewEnvelope(typ, payload)
	if err != nil {
		return err
	}
	b, err := env.MarshalJSONBytes()
	if err != nil {
		return err
	}
	return w.Pub.Publish(events.TopicBootEvents, message.NewMessage(watermill.NewUUID(), b))
}
