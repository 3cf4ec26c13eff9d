package smoketest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/bootgate/pkg/boot"
	"github.com/go-go-golems/bootgate/pkg/launch"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/go-go-golems/bootgate/pkg/readiness"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newFailuresCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Smoke test: primary launch failure and readiness timeout abort paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := smoketestLaunchFails(ctx); err != nil {
				return err
			}
			if err := smoketestNeverReady(ctx); err != nil {
				return err
			}

			out := map[string]any{"ok": true}
			b, _ := json.MarshalIndent(out, "", "  ")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			log.Info().Msg("smoketest failures ok")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Overall timeout for the smoketest")
	return cmd
}

func smoketestLaunchFails(ctx context.Context) error {
	workRoot, err := os.MkdirTemp("", "bootgate-smoketest-launchfail-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(workRoot) }()

	launcher := &countingLauncher{inner: launch.New(launch.Options{})}
	checker, err := probe.New(probe.Target{Type: "tcp", Address: "127.0.0.1:1", TimeoutMs: 100})
	if err != nil {
		return err
	}
	waiter := readiness.New(checker, readiness.Options{})

	orch := boot.New(launcher, waiter, boot.Options{})
	res, runErr := orch.Run(ctx, boot.RunSpec{
		Primary: launch.Spec{
			Name:    "missing",
			Command: []string{filepath.Join(workRoot, "no-such-binary")},
		},
		Dependent: launch.Spec{
			Name:    "dep",
			Command: []string{"/bin/true"},
		},
		Policy: readiness.Policy{Interval: 50 * time.Millisecond, MaxAttempts: 3},
	})
	if runErr == nil {
		return errors.New("expected launch failure")
	}
	if res.Phase != boot.PhaseAborted || res.Cause != boot.CauseLaunchFailed {
		return errors.Errorf("expected aborted/launch_failed, got %s/%s", res.Phase, res.Cause)
	}
	if code := res.ExitCode(); code != boot.ExitCodeLaunchFailure {
		return errors.Errorf("expected exit %d, got %d", boot.ExitCodeLaunchFailure, code)
	}
	if n := launcher.foregrounds.Load(); n != 0 {
		return errors.Errorf("dependent launched %d times despite launch failure", n)
	}
	return nil
}

func smoketestNeverReady(ctx context.Context) error {
	workRoot, err := os.MkdirTemp("", "bootgate-smoketest-neverready-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(workRoot) }()

	port, err := findFreeTCPPort()
	if err != nil {
		return err
	}

	launcher := &countingLauncher{inner: launch.New(launch.Options{
		LogDir:       filepath.Join(workRoot, "logs"),
		GraceTimeout: 1 * time.Second,
	})}
	// The reserved port is closed again by now; nothing ever answers.
	checker, err := probe.New(probe.Target{Type: "tcp", Address: fmt.Sprintf("127.0.0.1:%d", port), TimeoutMs: 100})
	if err != nil {
		return err
	}

	attempts := 0
	waiter := readiness.New(checker, readiness.Options{
		OnAttempt: func(int, probe.Result) { attempts++ },
	})

	orch := boot.New(launcher, waiter, boot.Options{})
	res, runErr := orch.Run(ctx, boot.RunSpec{
		Primary: launch.Spec{
			Name:    "sleeper",
			Command: []string{"/bin/sh", "-c", "sleep 30"},
			Dir:     workRoot,
		},
		Dependent: launch.Spec{
			Name:    "dep",
			Command: []string{"/bin/true"},
		},
		Policy: readiness.Policy{Interval: 50 * time.Millisecond, MaxAttempts: 5},
	})
	if runErr == nil {
		return errors.New("expected readiness timeout")
	}
	if res.Phase != boot.PhaseAborted || res.Cause != boot.CauseWaitTimedOut {
		return errors.Errorf("expected aborted/wait_timed_out, got %s/%s", res.Phase, res.Cause)
	}
	if code := res.ExitCode(); code != boot.ExitCodeWaitTimeout {
		return errors.Errorf("expected exit %d, got %d", boot.ExitCodeWaitTimeout, code)
	}
	if attempts != 5 {
		return errors.Errorf("expected exactly 5 probe attempts, got %d", attempts)
	}
	if n := launcher.foregrounds.Load(); n != 0 {
		return errors.Errorf("dependent launched %d times despite timeout", n)
	}
	if !res.PrimaryStopped {
		return errors.New("expected the primary to be torn down on abort")
	}
	return nil
}
