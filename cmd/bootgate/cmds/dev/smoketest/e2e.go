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

func newE2ECmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "e2e",
		Short: "Smoke test: build test apps, run a full gated boot end-to-end",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			workRoot, err := os.MkdirTemp("", "bootgate-smoketest-e2e-*")
			if err != nil {
				return err
			}
			defer func() { _ = os.RemoveAll(workRoot) }()

			repoRoot := findRootFromCaller()

			binDir := filepath.Join(workRoot, "bin")
			if err := os.MkdirAll(binDir, 0o755); err != nil {
				return err
			}
			slowReadyBin := filepath.Join(binDir, "slow-ready")
			exitAfterBin := filepath.Join(binDir, "exit-after")
			if err := buildTestApp(ctx, repoRoot, "./testapps/cmd/slow-ready", slowReadyBin); err != nil {
				return err
			}
			if err := buildTestApp(ctx, repoRoot, "./testapps/cmd/exit-after", exitAfterBin); err != nil {
				return err
			}

			port, err := findFreeTCPPort()
			if err != nil {
				return err
			}

			logDir := filepath.Join(workRoot, "logs")
			launcher := launch.New(launch.Options{LogDir: logDir, GraceTimeout: 2 * time.Second})

			target := probe.Target{
				Type:      "http",
				URL:       fmt.Sprintf("http://127.0.0.1:%d/health", port),
				TimeoutMs: 300,
			}
			checker, err := probe.New(target)
			if err != nil {
				return err
			}
			waiter := readiness.New(checker, readiness.Options{})

			var primary launch.Process
			orch := boot.New(launcher, waiter, boot.Options{
				OnPrimaryStarted: func(p launch.Process) { primary = p },
			})

			res, runErr := orch.Run(ctx, boot.RunSpec{
				Primary: launch.Spec{
					Name:    "slow-ready",
					Command: []string{slowReadyBin, "-port", fmt.Sprint(port), "-ready-after", "400ms"},
					Dir:     workRoot,
				},
				Dependent: launch.Spec{
					Name:    "exit-after",
					Command: []string{exitAfterBin, "-after", "100ms", "-code", "0"},
					Dir:     workRoot,
				},
				Policy: readiness.Policy{
					Interval:    100 * time.Millisecond,
					MaxAttempts: 100,
				},
				StopPrimaryOnExit: true,
			})
			if runErr != nil {
				return errors.Wrap(runErr, "unexpected abort")
			}
			if res.Phase != boot.PhaseDone {
				return errors.Errorf("expected done, got %s", res.Phase)
			}
			if code := res.ExitCode(); code != 0 {
				return errors.Errorf("expected exit 0, got %d", code)
			}
			if res.Attempts < 2 {
				return errors.Errorf("expected the probe to fail at least once, got %d attempts", res.Attempts)
			}
			if !res.PrimaryStopped {
				return errors.New("expected the primary to be torn down")
			}
			if primary == nil {
				return errors.New("primary handle never observed")
			}
			b, err := os.ReadFile(primary.StdoutLog())
			if err != nil {
				return errors.Wrap(err, "read primary stdout log")
			}
			if len(b) == 0 {
				return errors.New("expected primary stdout log to be non-empty")
			}

			out := map[string]any{
				"ok":       true,
				"attempts": res.Attempts,
				"phase":    res.Phase,
			}
			jb, _ := json.MarshalIndent(out, "", "  ")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(jb))
			log.Info().Msg("smoketest e2e ok")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout for the smoketest")
	return cmd
}
