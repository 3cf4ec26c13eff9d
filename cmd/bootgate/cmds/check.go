package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/bootgate/pkg/config"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// resolveTarget picks the probe target: --url shortcut first, then the
// configured primary probe.
func resolveTarget(opts rootOptions, url string, timeoutMs int64) (probe.Target, error) {
	if url != "" {
		return probe.Target{Type: "http", URL: url, TimeoutMs: timeoutMs}, nil
	}

	cfg, err := config.LoadOptional(opts.Config)
	if err != nil {
		return probe.Target{}, err
	}
	if cfg.Primary.Probe == nil {
		return probe.Target{}, errors.New("no probe configured (set primary.probe or pass --url)")
	}
	t := *cfg.Primary.Probe
	if timeoutMs > 0 {
		t.TimeoutMs = timeoutMs
	}
	return t, nil
}

func newCheckCmd() *cobra.Command {
	var url string
	var timeoutMs int64

	cmd := &cobra.Command{
		Use:           "check",
		Short:         "Probe the readiness target once; exit 0 when ready, 1 when not",
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

			res := checker.Check(cmd.Context())

			out := map[string]any{
				"target": checker.Describe(),
				"status": res.Status,
			}
			if res.Reason != "" {
				out["reason"] = res.Reason
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return reportErr(cmd, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))

			if !res.Ready() {
				return exitWithCode(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Probe this HTTP URL instead of the configured target")
	cmd.Flags().Int64Var(&timeoutMs, "probe-timeout-ms", 0, "Per-observation timeout in milliseconds")
	return cmd
}
