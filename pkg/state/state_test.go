package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/stretchr/testify/require"
)

func TestRunRecord_SaveLoadRemove(t *testing.T) {
	root, err := os.MkdirTemp("", "bootgate-state-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(root) }()

	r := &Run{
		Root:          root,
		SupervisorPID: os.Getpid(),
		CreatedAt:     time.Now(),
		Phase:         "waiting_for_ready",
		Attempts:      2,
		Primary: &ProcessRecord{
			Name:    "db",
			PID:     4242,
			Command: []string{"postgres", "-D", "/tmp/data"},
			Env:     map[string]string{"PGPORT": "5432"},
			Probe:   &probe.Target{Type: "tcp", Address: "127.0.0.1:5432"},
		},
	}
	require.NoError(t, Save(root, r))
	require.False(t, r.UpdatedAt.IsZero())

	got, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "waiting_for_ready", got.Phase)
	require.Equal(t, 2, got.Attempts)
	require.NotNil(t, got.Primary)
	require.Equal(t, 4242, got.Primary.PID)
	require.NotNil(t, got.Primary.Probe)
	require.Equal(t, "tcp", got.Primary.Probe.Type)
	require.Nil(t, got.Dependent)

	require.NoError(t, Remove(root))
	_, err = Load(root)
	require.Error(t, err)

	// Removing twice is fine.
	require.NoError(t, Remove(root))
}

func TestExitInfo_RoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "bootgate-state-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "web.exit.json")
	code := 3
	require.NoError(t, WriteExitInfo(path, ExitInfo{
		Process:    "web",
		PID:        99,
		StartedAt:  time.Now().Add(-time.Minute),
		ExitedAt:   time.Now(),
		ExitCode:   &code,
		StderrTail: []string{"boom"},
	}))

	info, err := ReadExitInfo(path)
	require.NoError(t, err)
	require.Equal(t, "web", info.Process)
	require.NotNil(t, info.ExitCode)
	require.Equal(t, 3, *info.ExitCode)
	require.Equal(t, []string{"boom"}, info.StderrTail)
}

func TestExitInfoPath(t *testing.T) {
	require.Equal(t, "/x/logs/db-1.exit.json", ExitInfoPath("/x/logs/db-1.stdout.log"))
	require.Equal(t, "", ExitInfoPath(""))
}

func TestTailLines(t *testing.T) {
	dir, err := os.MkdirTemp("", "bootgate-state-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "out.log")
	var b strings.Builder
	for i := 1; i <= 50; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	lines, err := TailLines(path, 3, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"line 48", "line 49", "line 50"}, lines)

	// A tiny byte cap drops the partial leading line.
	lines, err = TailLines(path, 100, 16)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	for _, l := range lines {
		require.True(t, strings.HasPrefix(l, "line "), "unexpected partial line %q", l)
	}
}

func TestSanitizeEnv(t *testing.T) {
	in := map[string]string{
		"PGPASSWORD": "hunter2",
		"API_KEY":    "abc",
		"PGPORT":     "5432",
	}
	out := SanitizeEnv(in)
	require.Equal(t, "[REDACTED]", out["PGPASSWORD"])
	require.Equal(t, "[REDACTED]", out["API_KEY"])
	require.Equal(t, "5432", out["PGPORT"])

	// Input map untouched.
	require.Equal(t, "hunter2", in["PGPASSWORD"])

	require.Nil(t, SanitizeEnv(nil))
}
