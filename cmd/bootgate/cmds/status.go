package cmds

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-go-golems/bootgate/pkg/proc"
	"github.com/go-go-golems/bootgate/pkg/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var tailLines int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report the recorded run: phase, process liveness, stats, exit info",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			run, err := state.Load(opts.Root)
			if err != nil {
				return err
			}

			sampler := proc.NewSampler()

			out := map[string]any{
				"root":       run.Root,
				"phase":      run.Phase,
				"created_at": run.CreatedAt,
				"updated_at": run.UpdatedAt,
			}
			if run.Attempts > 0 {
				out["attempts"] = run.Attempts
			}
			if run.ExitCode != nil {
				out["exit_code"] = *run.ExitCode
			}
			if run.Primary != nil {
				out["primary"] = processStatus(run.Primary, sampler, tailLines, run.CreatedAt)
			}
			if run.Dependent != nil {
				out["dependent"] = processStatus(run.Dependent, sampler, tailLines, run.CreatedAt)
			}

			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return errors.Wrap(err, "marshal status")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	cmd.Flags().IntVar(&tailLines, "tail-lines", 25, "How many stderr lines to include for dead processes")
	return cmd
}

type procStatus struct {
	Name   string          `json:"name"`
	PID    int             `json:"pid,omitempty"`
	Alive  bool            `json:"alive"`
	Stdout string          `json:"stdout_log,omitempty"`
	Stderr string          `json:"stderr_log,omitempty"`
	Stats  *proc.Stats     `json:"stats,omitempty"`
	Exit   *state.ExitInfo `json:"exit,omitempty"`
}

func processStatus(rec *state.ProcessRecord, sampler *proc.Sampler, tailLines int, startedAt time.Time) procStatus {
	st := procStatus{
		Name:   rec.Name,
		PID:    rec.PID,
		Stdout: rec.StdoutLog,
		Stderr: rec.StderrLog,
	}
	if rec.PID > 0 {
		st.Alive = proc.Alive(rec.PID)
	}
	if st.Alive {
		st.Stats, _ = sampler.Sample(rec.PID)
		return st
	}

	exitPath := state.ExitInfoPath(rec.StdoutLog)
	if exitPath != "" {
		if _, err := os.Stat(exitPath); err == nil {
			if ei, err := state.ReadExitInfo(exitPath); err == nil {
				trimTail(&ei.StderrTail, tailLines)
				trimTail(&ei.StdoutTail, tailLines)
				st.Exit = ei
			}
		}
	}
	if st.Exit == nil && (rec.ExitCode != nil || rec.Signal != "") {
		st.Exit = &state.ExitInfo{
			Process:   rec.Name,
			PID:       rec.PID,
			StartedAt: startedAt,
			ExitCode:  rec.ExitCode,
			Signal:    rec.Signal,
		}
	}
	if st.Exit != nil && st.Exit.StderrTail == nil && tailLines > 0 && rec.StderrLog != "" {
		if lines, err := state.TailLines(rec.StderrLog, tailLines, 2<<20); err == nil {
			st.Exit.StderrTail = lines
		}
	}
	return st
}

func trimTail(lines *[]string, n int) {
	if n > 0 && len(*lines) > n {
		*lines = append([]string{}, (*lines)[len(*lines)-n:]...)
	}
}
