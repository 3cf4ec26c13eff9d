package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `primary:
  name: db
  command: ["postgres", "-D", "data"]
  cwd: db
  env:
    PGPORT: "5432"
  probe:
    type: tcp
    address: 127.0.0.1:5432
    timeout_ms: 500
dependent:
  name: web
  command: ["./web", "--port", "8080"]
wait:
  interval_ms: 2000
  max_attempts: 5
  max_wait_ms: 30000
shutdown:
  grace_ms: 3000
  stop_primary_on_exit: true
log_dir: .bootgate/logs
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "bootgate-config-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "db", cfg.Primary.Name)
	require.Equal(t, []string{"postgres", "-D", "data"}, cfg.Primary.Command)
	require.NotNil(t, cfg.Primary.Probe)
	require.Equal(t, "tcp", cfg.Primary.Probe.Type)
	require.EqualValues(t, 500, cfg.Primary.Probe.TimeoutMs)

	require.Equal(t, "web", cfg.Dependent.Name)
	require.True(t, cfg.Shutdown.StopPrimaryOnExit)
	require.Equal(t, ".bootgate/logs", cfg.LogDir)
}

func TestWaitPolicyConversion(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	pol := cfg.Wait.Policy()
	require.Equal(t, 2*time.Second, pol.Interval)
	require.Equal(t, 5, pol.MaxAttempts)
	require.Equal(t, 30*time.Second, pol.MaxWait)

	require.Equal(t, 3*time.Second, cfg.Shutdown.Grace())
}

func TestLaunchSpecResolvesCwd(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	spec := cfg.Primary.LaunchSpec("/srv/app")
	require.Equal(t, "/srv/app/db", spec.Dir)
	require.Equal(t, "5432", spec.Env["PGPORT"])

	// Absolute cwd wins; empty cwd falls back to the root.
	cfg.Primary.Cwd = "/opt/db"
	require.Equal(t, "/opt/db", cfg.Primary.LaunchSpec("/srv/app").Dir)

	require.Equal(t, "/srv/app", cfg.Dependent.LaunchSpec("/srv/app").Dir)
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional("/nonexistent/bootgate.yaml")
	require.NoError(t, err)
	require.Equal(t, &File{}, cfg)
}

func TestValidateCatchesGaps(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no primary command", "primary:\n  name: db\ndependent:\n  name: web\n  command: [\"true\"]\n"},
		{"no probe", "primary:\n  name: db\n  command: [\"true\"]\ndependent:\n  name: web\n  command: [\"true\"]\n"},
		{"bad probe", "primary:\n  name: db\n  command: [\"true\"]\n  probe:\n    type: smoke-signal\ndependent:\n  name: web\n  command: [\"true\"]\n"},
		{"no dependent", "primary:\n  name: db\n  command: [\"true\"]\n  probe:\n    type: tcp\n    address: 127.0.0.1:1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadFromFile(writeConfig(t, tc.yaml))
			require.NoError(t, err)
			require.Error(t, cfg.Validate())
		})
	}
}
