package cmds

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-go-golems/bootgate/pkg/boot"
	"github.com/go-go-golems/bootgate/pkg/events"
	"github.com/go-go-golems/bootgate/pkg/launch"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/go-go-golems/bootgate/pkg/proc"
	"github.com/go-go-golems/bootgate/pkg/readiness"
	"github.com/go-go-golems/bootgate/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	var ov planOverrides
	var stopPrimary bool
	var streamEvents bool
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the primary, wait for its readiness, then run the dependent",
		Long: `Run executes one boot cycle: the primary service is started in the
background, its readiness probe is polled until it reports ready, and the
dependent is then run in the foreground. The command's exit code is the
dependent's own; 124 means the primary never became ready, 125 means it
could not be started at all.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("stop-primary") {
				ov.StopPrimary = &stopPrimary
			}

			opts, err := getRootOptions(cmd)
			if err != nil {
				return reportErr(cmd, err)
			}
			plan, err := resolvePlan(opts, ov)
			if err != nil {
				return reportErr(cmd, err)
			}

			if opts.DryRun {
				b, err := json.MarshalIndent(plan.display(), "", "  ")
				if err != nil {
					return reportErr(cmd, err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}

			if _, err := os.Stat(state.RunPath(opts.Root)); err == nil {
				if !force {
					return reportErr(cmd, errors.New("run record exists; run bootgate stop first or use --force"))
				}
				log.Info().Msg("existing run record found; stopping first (--force)")
				if err := stopRecordedRun(cmd.Context(), opts, plan.grace); err != nil {
					return reportErr(cmd, err)
				}
			}

			code, runErr := executeRun(cmd, opts, plan, streamEvents)
			if runErr != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Error:", runErr)
			}
			return exitWithCode(code)
		},
	}

	addOverrideFlags(cmd.Flags(), &ov)
	cmd.Flags().StringVar(&ov.LogDir, "log-dir", "", "Directory for captured primary logs (overrides config)")
	cmd.Flags().BoolVar(&stopPrimary, "stop-primary", false, "Tear the primary down after the dependent exits (overrides config)")
	cmd.Flags().BoolVar(&streamEvents, "events", false, "Stream boot events as NDJSON on stdout")
	cmd.Flags().BoolVar(&force, "force", false, "Stop a recorded run before starting")
	return cmd
}

func reportErr(cmd *cobra.Command, err error) error {
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	return exitWithCode(1)
}

// executeRun drives one orchestration, persisting the run record on every
// transition and optionally streaming events. It returns the process exit
// code and the abort error, if any.
func executeRun(cmd *cobra.Command, opts rootOptions, plan runPlan, streamEvents bool) (int, error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker, err := probe.New(plan.Probe)
	if err != nil {
		return 1, err
	}
	launcher := launch.New(launch.Options{LogDir: plan.LogDir, GraceTimeout: plan.grace})

	var bus *events.Bus
	var eg *errgroup.Group
	var busCancel context.CancelFunc
	if streamEvents {
		bus, err = events.NewInMemoryBus()
		if err != nil {
			return 1, err
		}
		events.RegisterNDJSONPrinter(bus, cmd.OutOrStdout())

		var busCtx context.Context
		busCtx, busCancel = context.WithCancel(context.Background())
		defer busCancel()
		eg = &errgroup.Group{}
		eg.Go(func() error {
			err := bus.Run(busCtx)
			if stderrors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		<-bus.Router.Running()
	}
	publish := func(typ string, payload any) {
		if bus == nil {
			return
		}
		if err := bus.PublishEnvelope(events.TopicBootEvents, typ, payload); err != nil {
			log.Warn().Err(err).Str("type", typ).Msg("publish event failed")
		}
	}

	run := &state.Run{
		Root:          opts.Root,
		SupervisorPID: os.Getpid(),
		CreatedAt:     time.Now(),
		Phase:         string(boot.PhaseInit),
	}
	saveRun := func() {
		if err := state.Save(opts.Root, run); err != nil {
			log.Warn().Err(err).Msg("save run record failed")
		}
	}
	saveRun()

	var primary launch.Process

	waiter := readiness.New(checker, readiness.Options{
		OnAttempt: func(attempt int, res probe.Result) {
			run.Attempts = attempt
			saveRun()
			publish(events.DomainTypeProbeAttempt, events.ProbeAttempt{
				Attempt: attempt,
				Status:  string(res.Status),
				Reason:  res.Reason,
				Target:  checker.Describe(),
				At:      time.Now(),
			})
		},
	})

	orch := boot.New(launcher, waiter, boot.Options{
		OnTransition: func(t boot.Transition) {
			run.Phase = string(t.To)
			if t.To == boot.PhaseDependentRunning {
				run.Dependent = &state.ProcessRecord{
					Name:    plan.Dependent.Name,
					Command: plan.Dependent.Command,
					Cwd:     plan.Dependent.Dir,
					Env:     state.SanitizeEnv(plan.Dependent.Env),
				}
			}
			saveRun()
			publish(events.DomainTypePhaseChanged, events.PhaseChanged{
				From:     string(t.From),
				To:       string(t.To),
				At:       t.At,
				Attempts: t.Attempts,
				Cause:    string(t.Cause),
			})
		},
		OnPrimaryStarted: func(p launch.Process) {
			primary = p
			run.Primary = &state.ProcessRecord{
				Name:      plan.Primary.Name,
				PID:       p.PID(),
				Command:   plan.Primary.Command,
				Cwd:       plan.Primary.Dir,
				Env:       state.SanitizeEnv(plan.Primary.Env),
				StdoutLog: p.StdoutLog(),
				StderrLog: p.StderrLog(),
				StartedAt: p.StartedAt(),
				Probe:     &plan.Probe,
			}
			saveRun()
			publish(events.DomainTypeProcessStarted, events.ProcessStarted{
				Role: events.RolePrimary,
				Name: plan.Primary.Name,
				PID:  p.PID(),
				At:   p.StartedAt(),
			})
		},
	})

	res, runErr := orch.Run(ctx, boot.RunSpec{
		Primary:           plan.Primary,
		Dependent:         plan.Dependent,
		Policy:            plan.policy,
		StopPrimaryOnExit: plan.StopPrimaryOnExit,
	})

	finalizeRun(run, res, plan, primary, publish)
	saveRun()

	if bus != nil {
		// Publish blocks until the printer acks, so everything sent above
		// has already been written; the router can close now.
		busCancel()
		if err := eg.Wait(); err != nil {
			log.Warn().Err(err).Msg("event bus shut down uncleanly")
		}
	}

	return res.ExitCode(), runErr
}

// finalizeRun records the outcome on the run record and publishes the
// closing events.
func finalizeRun(run *state.Run, res boot.Result, plan runPlan, primary launch.Process, publish func(string, any)) {
	now := time.Now()
	code := res.ExitCode()
	run.ExitCode = &code

	if res.Dependent != nil && run.Dependent != nil {
		depCode := res.Dependent.Code
		run.Dependent.ExitCode = &depCode
		run.Dependent.Signal = res.Dependent.Signal
		publish(events.DomainTypeProcessExited, events.ProcessExited{
			Role:     events.RoleDependent,
			Name:     plan.Dependent.Name,
			Code:     res.Dependent.Code,
			Signaled: res.Dependent.Signaled,
			Signal:   res.Dependent.Signal,
			At:       now,
		})
	}

	if res.PrimaryStopped && primary != nil && run.Primary != nil {
		status, ok := primary.ExitStatus()
		if ok {
			run.Primary.ExitCode = &status.Code
			run.Primary.Signal = status.Signal
			writePrimaryExitInfo(primary, status, now)
			publish(events.DomainTypeProcessExited, events.ProcessExited{
				Role:     events.RolePrimary,
				Name:     primary.Name(),
				PID:      primary.PID(),
				Code:     status.Code,
				Signaled: status.Signaled,
				Signal:   status.Signal,
				At:       now,
			})
		}
	}

	publish(events.DomainTypeRunFinished, events.RunFinished{
		Phase:    string(res.Phase),
		Cause:    string(res.Cause),
		ExitCode: code,
		Attempts: res.Attempts,
		At:       now,
	})
}

func writePrimaryExitInfo(p launch.Process, status launch.ExitStatus, exitedAt time.Time) {
	path := state.ExitInfoPath(p.StdoutLog())
	if path == "" {
		return
	}

	info := state.ExitInfo{
		Process:   p.Name(),
		PID:       p.PID(),
		StartedAt: p.StartedAt(),
		ExitedAt:  exitedAt,
		Signal:    status.Signal,
	}
	if !status.Signaled {
		code := status.Code
		info.ExitCode = &code
	}
	if lines, err := state.TailLines(p.StderrLog(), 25, 2<<20); err == nil {
		info.StderrTail = lines
	}
	if err := state.WriteExitInfo(path, info); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("write exit info failed")
	}
}

// stopRecordedRun tears down whatever a previous run left behind and
// removes its record.
func stopRecordedRun(ctx context.Context, opts rootOptions, grace time.Duration) error {
	run, err := state.Load(opts.Root)
	if err != nil {
		return err
	}

	if run.Primary != nil && run.Primary.PID > 0 && proc.Alive(run.Primary.PID) {
		stopCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		if err := launch.TerminateGroup(stopCtx, run.Primary.PID, grace); err != nil {
			return errors.Wrapf(err, "stop primary %q (pid %d)", run.Primary.Name, run.Primary.PID)
		}
	}
	return state.Remove(opts.Root)
}
