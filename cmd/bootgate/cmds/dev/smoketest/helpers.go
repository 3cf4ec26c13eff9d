package smoketest

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"sync/atomic"

	"github.com/go-go-golems/bootgate/pkg/launch"
	"github.com/pkg/errors"
)

func findRootFromCaller() string {
	_, thisFile, _, ok := goruntime.Caller(0)
	if !ok {
		wd, _ := os.Getwd()
		return wd
	}
	// this file: bootgate/cmd/bootgate/cmds/dev/smoketest/helpers.go
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "..", ".."))
}

func buildTestApp(ctx context.Context, repoRoot string, pkg string, outPath string) error {
	c := exec.CommandContext(ctx, "go", "build", "-o", outPath, pkg)
	c.Dir = repoRoot
	c.Env = append(os.Environ(), "GOWORK=off")
	b, err := c.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "build %s: %s", pkg, string(b))
	}
	return nil
}

func findFreeTCPPort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = ln.Close() }()
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		return 0, err
	}
	var port int
	_, _ = fmt.Sscanf(portStr, "%d", &port)
	if port <= 0 {
		return 0, errors.New("failed to allocate port")
	}
	return port, nil
}

// countingLauncher counts foreground launches so the failure scenarios
// can assert the dependent was never started.
type countingLauncher struct {
	inner       *launch.Launcher
	foregrounds atomic.Int64
}

func (c *countingLauncher) StartBackground(ctx context.Context, spec launch.Spec) (launch.Process, error) {
	return c.inner.StartBackground(ctx, spec)
}

func (c *countingLauncher) RunForeground(ctx context.Context, spec launch.Spec) (launch.ExitStatus, error) {
	c.foregrounds.Add(1)
	return c.inner.RunForeground(ctx, spec)
}
