package cmds

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-go-golems/bootgate/pkg/config"
	"github.com/go-go-golems/bootgate/pkg/launch"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/go-go-golems/bootgate/pkg/readiness"
	"github.com/go-go-golems/bootgate/pkg/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runPlan is the fully resolved boot: config merged with flag overrides,
// cwds anchored at the root, probe target validated.
type runPlan struct {
	Root              string       `json:"root"`
	Primary           launch.Spec  `json:"primary"`
	Dependent         launch.Spec  `json:"dependent"`
	Probe             probe.Target `json:"probe"`
	Interval          string       `json:"interval"`
	MaxAttempts       int          `json:"max_attempts,omitempty"`
	MaxWait           string       `json:"max_wait,omitempty"`
	Grace             string       `json:"grace"`
	StopPrimaryOnExit bool         `json:"stop_primary_on_exit"`
	LogDir            string       `json:"log_dir"`

	policy readiness.Policy
	grace  time.Duration
}

// planOverrides are flag-level overrides on top of the config file. Zero
// values leave the file's setting alone.
type planOverrides struct {
	Interval    time.Duration
	MaxAttempts int
	MaxWait     time.Duration
	LogDir      string
	StopPrimary *bool
}

func addOverrideFlags(flags *pflag.FlagSet, ov *planOverrides) {
	flags.DurationVar(&ov.Interval, "interval", 0, "Poll interval between probes (overrides config)")
	flags.IntVar(&ov.MaxAttempts, "max-attempts", 0, "Probe attempt cap, 0 for unbounded (overrides config)")
	flags.DurationVar(&ov.MaxWait, "max-wait", 0, "Wall-clock wait cap, 0 for unbounded (overrides config)")
}

func resolvePlan(opts rootOptions, ov planOverrides) (runPlan, error) {
	cfg, err := config.LoadOptional(opts.Config)
	if err != nil {
		return runPlan{}, err
	}
	applyOverrides(cfg, ov)
	if err := cfg.Validate(); err != nil {
		return runPlan{}, errors.Wrap(err, "config")
	}
	return planFromConfig(opts.Root, cfg), nil
}

func applyOverrides(cfg *config.File, ov planOverrides) {
	if ov.Interval > 0 {
		cfg.Wait.IntervalMs = ov.Interval.Milliseconds()
	}
	if ov.MaxAttempts > 0 {
		cfg.Wait.MaxAttempts = ov.MaxAttempts
	}
	if ov.MaxWait > 0 {
		cfg.Wait.MaxWaitMs = ov.MaxWait.Milliseconds()
	}
	if ov.LogDir != "" {
		cfg.LogDir = ov.LogDir
	}
	if ov.StopPrimary != nil {
		cfg.Shutdown.StopPrimaryOnExit = *ov.StopPrimary
	}
}

func planFromConfig(root string, cfg *config.File) runPlan {
	policy := cfg.Wait.Policy()

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = state.LogsDir(root)
	}

	p := runPlan{
		Root:              root,
		Primary:           cfg.Primary.LaunchSpec(root),
		Dependent:         cfg.Dependent.LaunchSpec(root),
		Probe:             *cfg.Primary.Probe,
		Interval:          policy.Interval.String(),
		MaxAttempts:       policy.MaxAttempts,
		Grace:             cfg.Shutdown.Grace().String(),
		StopPrimaryOnExit: cfg.Shutdown.StopPrimaryOnExit,
		LogDir:            logDir,

		policy: policy,
		grace:  cfg.Shutdown.Grace(),
	}
	if policy.MaxWait > 0 {
		p.MaxWait = policy.MaxWait.String()
	}
	return p
}

// display returns a copy safe to print: env values that look like
// secrets are redacted.
func (p runPlan) display() runPlan {
	p.Primary.Env = state.SanitizeEnv(p.Primary.Env)
	p.Dependent.Env = state.SanitizeEnv(p.Dependent.Env)
	return p
}

func newPlanCmd() *cobra.Command {
	var ov planOverrides

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the fully resolved run plan as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			plan, err := resolvePlan(opts, ov)
			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(plan.display(), "", "  ")
			if err != nil {
				return errors.Wrap(err, "marshal plan")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	addOverrideFlags(cmd.Flags(), &ov)
	return cmd
}
