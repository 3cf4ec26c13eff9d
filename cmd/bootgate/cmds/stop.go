package cmds

import (
	"context"
	"fmt"
	"time"

	"github.com/go-go-golems/bootgate/pkg/launch"
	"github.com/go-go-golems/bootgate/pkg/proc"
	"github.com/go-go-golems/bootgate/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	var grace time.Duration
	var keepRecord bool

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Terminate a primary left running by a finished run and remove the record",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			run, err := state.Load(opts.Root)
			if err != nil {
				return err
			}

			if run.Primary != nil && run.Primary.PID > 0 && proc.Alive(run.Primary.PID) {
				if opts.DryRun {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "would stop %s (pid %d)\n", run.Primary.Name, run.Primary.PID)
					return nil
				}

				log.Info().Str("process", run.Primary.Name).Int("pid", run.Primary.PID).Msg("stopping primary")
				stopCtx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
				defer cancel()
				if err := launch.TerminateGroup(stopCtx, run.Primary.PID, grace); err != nil {
					return errors.Wrapf(err, "stop primary %q (pid %d)", run.Primary.Name, run.Primary.PID)
				}
				writeStoppedExitInfo(run.Primary, run.CreatedAt)
			}

			if !keepRecord {
				if err := state.Remove(opts.Root); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", 3*time.Second, "How long to wait between SIGTERM and SIGKILL")
	cmd.Flags().BoolVar(&keepRecord, "keep-record", false, "Leave the run record in place")
	return cmd
}

// writeStoppedExitInfo leaves a post-mortem next to the logs. The exact
// exit status is unknowable here (the reaper was the run's own process),
// so only the stop itself and a stderr tail are recorded.
func writeStoppedExitInfo(rec *state.ProcessRecord, startedAt time.Time) {
	path := state.ExitInfoPath(rec.StdoutLog)
	if path == "" {
		return
	}

	info := state.ExitInfo{
		Process:   rec.Name,
		PID:       rec.PID,
		StartedAt: startedAt,
		ExitedAt:  time.Now(),
		Error:     "stopped by bootgate stop",
	}
	if !rec.StartedAt.IsZero() {
		info.StartedAt = rec.StartedAt
	}
	if lines, err := state.TailLines(rec.StderrLog, 25, 2<<20); err == nil {
		info.StderrTail = lines
	}
	if err := state.WriteExitInfo(path, info); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("write exit info failed")
	}
}
