package cmds

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-go-golems/bootgate/pkg/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	Root    string
	Config  string
	DryRun  bool
	Timeout time.Duration
}

func AddRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("root", "", "Working root directory (defaults to current directory)")
	root.PersistentFlags().String("config", "", "Path to config file (defaults to .bootgate.yaml under root)")
	root.PersistentFlags().Bool("dry-run", false, "Resolve and print without launching anything")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "Default timeout for one-shot operations (check, stop)")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	root, err := cmd.Root().PersistentFlags().GetString("root")
	if err != nil {
		return rootOptions{}, err
	}
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return rootOptions{}, err
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return rootOptions{}, err
	}

	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cfgPath = config.DefaultPath(root)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(root, cfgPath)
	}

	dryRun, err := cmd.Root().PersistentFlags().GetBool("dry-run")
	if err != nil {
		return rootOptions{}, err
	}
	timeout, err := cmd.Root().PersistentFlags().GetDuration("timeout")
	if err != nil {
		return rootOptions{}, err
	}
	if timeout <= 0 {
		return rootOptions{}, errors.New("timeout must be > 0")
	}

	return rootOptions{
		Root:    root,
		Config:  cfgPath,
		DryRun:  dryRun,
		Timeout: timeout,
	}, nil
}

// exitCodeError carries a specific process exit code to main. The
// command has already reported the outcome; main only translates the
// code.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return "exit code " + strconv.Itoa(e.code)
}

// exitWithCode returns nil for code 0 so RunE success stays a plain nil.
func exitWithCode(code int) error {
	if code == 0 {
		return nil
	}
	return exitCodeError{code: code}
}

// ResolveExitCode maps a cobra.Execute error to the process exit code.
func ResolveExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec exitCodeError
	if stderrors.As(err, &ec) {
		return ec.code
	}
	return 1
}
