package probe

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

// fileChecker reports Ready once the path exists. Useful for services
// that touch a sentinel file when they finish warming up.
type fileChecker struct {
	path string
}

func newFileChecker(t Target) (*fileChecker, error) {
	if t.Path == "" {
		return nil, errors.New("file probe missing path")
	}
	return &fileChecker{path: t.Path}, nil
}

func (c *fileChecker) Describe() string {
	return "file " + c.path
}

func (c *fileChecker) Check(ctx context.Context) Result {
	_ = ctx

	if _, err := os.Stat(c.path); err != nil {
		return notReady(err)
	}
	return Result{Status: StatusReady, Reason: "file exists"}
}
