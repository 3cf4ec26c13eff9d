package cmds

import (
	"testing"
	"time"

	"github.com/go-go-golems/bootgate/pkg/config"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.File {
	return &config.File{
		Primary: config.Service{
			Name:    "api",
			Command: []string{"./api", "--port", "8080"},
			Probe:   &probe.Target{Type: "http", URL: "http://127.0.0.1:8080/health"},
		},
		Dependent: config.Service{
			Name:    "dash",
			Command: []string{"./dash"},
		},
		Wait: config.Wait{IntervalMs: 2000, MaxAttempts: 10},
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := testConfig()

	stop := true
	applyOverrides(cfg, planOverrides{
		Interval:    500 * time.Millisecond,
		MaxAttempts: 3,
		MaxWait:     10 * time.Second,
		LogDir:      "/tmp/logs",
		StopPrimary: &stop,
	})

	require.Equal(t, int64(500), cfg.Wait.IntervalMs)
	require.Equal(t, 3, cfg.Wait.MaxAttempts)
	require.Equal(t, int64(10000), cfg.Wait.MaxWaitMs)
	require.Equal(t, "/tmp/logs", cfg.LogDir)
	require.True(t, cfg.Shutdown.StopPrimaryOnExit)
}

func TestApplyOverridesZeroValuesLeaveConfigAlone(t *testing.T) {
	cfg := testConfig()
	applyOverrides(cfg, planOverrides{})

	require.Equal(t, int64(2000), cfg.Wait.IntervalMs)
	require.Equal(t, 10, cfg.Wait.MaxAttempts)
	require.False(t, cfg.Shutdown.StopPrimaryOnExit)
}

func TestPlanFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Primary.Cwd = "services/api"

	plan := planFromConfig("/work", cfg)

	require.Equal(t, "/work", plan.Root)
	require.Equal(t, "/work/services/api", plan.Primary.Dir)
	require.Equal(t, "2s", plan.Interval)
	require.Equal(t, 10, plan.MaxAttempts)
	require.Empty(t, plan.MaxWait)
	require.Equal(t, "/work/.bootgate/logs", plan.LogDir)
	require.Equal(t, 2*time.Second, plan.policy.Interval)
}

func TestResolveExitCode(t *testing.T) {
	require.Equal(t, 0, ResolveExitCode(nil))
	require.Equal(t, 3, ResolveExitCode(exitCodeError{code: 3}))
	require.Equal(t, 124, ResolveExitCode(errors.Wrap(exitCodeError{code: 124}, "run")))
	require.Equal(t, 1, ResolveExitCode(errors.New("boom")))
	require.NoError(t, exitWithCode(0))
}
