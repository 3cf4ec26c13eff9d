package cmds

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/bootgate/pkg/boot"
	"github.com/go-go-golems/bootgate/pkg/config"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/go-go-golems/bootgate/pkg/readiness"
	"github.com/spf13/cobra"
)

func newWaitCmd() *cobra.Command {
	var ov planOverrides
	var url string
	var timeoutMs int64

	cmd := &cobra.Command{
		Use:           "wait",
		Short:         "Poll the readiness target until ready; exit 0 on ready, 124 on timeout",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return reportErr(cmd, err)
			}
			target, err := resolveTarget(opts, url, timeoutMs)
			if err != nil {
				return reportErr(cmd, err)
			}
			checker, err := probe.New(target)
			if err != nil {
				return reportErr(cmd, err)
			}

			cfg, err := config.LoadOptional(opts.Config)
			if err != nil {
				return reportErr(cmd, err)
			}
			applyOverrides(cfg, ov)
			policy := cfg.Wait.Policy()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			waiter := readiness.New(checker, readiness.Options{})
			res, waitErr := waiter.WaitUntilReady(ctx, policy)

			out := map[string]any{
				"target":   checker.Describe(),
				"outcome":  res.Outcome,
				"attempts": res.Attempts,
				"elapsed":  res.Elapsed.String(),
			}
			if res.LastReason != "" {
				out["last_reason"] = res.LastReason
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return reportErr(cmd, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))

			switch {
			case waitErr != nil:
				return exitWithCode(boot.ExitCodeInterrupted)
			case res.Outcome != readiness.OutcomeReady:
				return exitWithCode(boot.ExitCodeWaitTimeout)
			}
			return nil
		},
	}

	addOverrideFlags(cmd.Flags(), &ov)
	cmd.Flags().StringVar(&url, "url", "", "Probe this HTTP URL instead of the configured target")
	cmd.Flags().Int64Var(&timeoutMs, "probe-timeout-ms", 0, "Per-observation timeout in milliseconds")
	return cmd
}
