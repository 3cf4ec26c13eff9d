package launch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/bootgate/pkg/proc"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, p Process, timeout time.Duration) ExitStatus {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(timeout):
		t.Fatalf("process %s (pid %d) did not exit", p.Name(), p.PID())
	}
	st, ok := p.ExitStatus()
	require.True(t, ok)
	return st
}

func TestLauncher_StartBackgroundAndShutdown(t *testing.T) {
	l := New(Options{GraceTimeout: 2 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := l.StartBackground(ctx, Spec{Name: "sleep", Command: []string{"bash", "-c", "sleep 30"}})
	require.NoError(t, err)
	require.True(t, proc.Alive(p.PID()))

	_, ok := p.ExitStatus()
	require.False(t, ok)

	require.NoError(t, p.Shutdown(ctx))

	st := waitDone(t, p, 3*time.Second)
	require.False(t, proc.Alive(p.PID()))
	require.True(t, st.Signaled)
	require.Equal(t, 128+15, st.Code)
}

func TestLauncher_StartBackgroundMissingBinary(t *testing.T) {
	l := New(Options{})

	_, err := l.StartBackground(context.Background(), Spec{
		Name:    "ghost",
		Command: []string{"/nonexistent/bootgate-test-binary"},
	})
	require.Error(t, err)
}

func TestLauncher_BackgroundExitCodeCaptured(t *testing.T) {
	l := New(Options{})

	p, err := l.StartBackground(context.Background(), Spec{Name: "fail", Command: []string{"bash", "-c", "exit 3"}})
	require.NoError(t, err)

	st := waitDone(t, p, 5*time.Second)
	require.False(t, st.Signaled)
	require.Equal(t, 3, st.Code)
}

func TestLauncher_ShutdownKillsWholeGroup(t *testing.T) {
	dir, err := os.MkdirTemp("", "bootgate-launch-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	pidFile := filepath.Join(dir, "child.pid")
	script := fmt.Sprintf("sleep 30 & echo $! > %s; wait", pidFile)

	l := New(Options{GraceTimeout: 2 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := l.StartBackground(ctx, Spec{Name: "parent", Command: []string{"bash", "-c", script}})
	require.NoError(t, err)

	var childPID int
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		b, err := os.ReadFile(pidFile)
		if err == nil {
			childPID, err = strconv.Atoi(strings.TrimSpace(string(b)))
			require.NoError(t, err)
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Greater(t, childPID, 0, "child pid file never appeared")
	require.True(t, proc.Alive(childPID))

	require.NoError(t, p.Shutdown(ctx))

	deadline = time.Now().Add(3 * time.Second)
	for (proc.Alive(p.PID()) || proc.Alive(childPID)) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	require.False(t, proc.Alive(p.PID()))
	require.False(t, proc.Alive(childPID))
}

func TestLauncher_LogFilesCapture(t *testing.T) {
	dir, err := os.MkdirTemp("", "bootgate-launch-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	l := New(Options{LogDir: dir})

	p, err := l.StartBackground(context.Background(), Spec{
		Name:    "noisy",
		Command: []string{"bash", "-c", "echo out-line; echo err-line 1>&2"},
	})
	require.NoError(t, err)

	st := waitDone(t, p, 5*time.Second)
	require.Equal(t, 0, st.Code)

	out, err := os.ReadFile(p.StdoutLog())
	require.NoError(t, err)
	require.Contains(t, string(out), "out-line")

	errOut, err := os.ReadFile(p.StderrLog())
	require.NoError(t, err)
	require.Contains(t, string(errOut), "err-line")
}

func TestLauncher_EnvReachesChild(t *testing.T) {
	dir, err := os.MkdirTemp("", "bootgate-launch-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	l := New(Options{LogDir: dir})

	p, err := l.StartBackground(context.Background(), Spec{
		Name:    "env",
		Command: []string{"bash", "-c", "echo $BOOTGATE_TEST_VALUE"},
		Env:     map[string]string{"BOOTGATE_TEST_VALUE": "hello-from-env"},
	})
	require.NoError(t, err)

	waitDone(t, p, 5*time.Second)

	out, err := os.ReadFile(p.StdoutLog())
	require.NoError(t, err)
	require.Contains(t, string(out), "hello-from-env")
}

func TestLauncher_RunForegroundExitCode(t *testing.T) {
	l := New(Options{})

	st, err := l.RunForeground(context.Background(), Spec{Name: "fg", Command: []string{"bash", "-c", "exit 7"}})
	require.NoError(t, err)
	require.False(t, st.Signaled)
	require.Equal(t, 7, st.Code)
}

func TestLauncher_RunForegroundCtxCancelTerminates(t *testing.T) {
	l := New(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	st, err := l.RunForeground(ctx, Spec{Name: "fg-sleep", Command: []string{"sleep", "30"}})
	require.NoError(t, err)
	require.True(t, st.Signaled)
	require.Less(t, time.Since(start), 5*time.Second)
}
