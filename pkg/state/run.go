// Package state persists the record of the current boot run under
// .bootgate/ so that status, logs and stop can operate on it after the
// orchestrating process has made its transitions.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/pkg/errors"
)

const (
	StateDirName = ".bootgate"
	RunFilename  = "run.json"
	LogsDirName  = "logs"
)

// Run is the on-disk record of one orchestrated boot. It is rewritten on
// every phase transition, so readers always see the latest phase plus
// whatever process records exist by then.
type Run struct {
	Root          string    `json:"root"`
	SupervisorPID int       `json:"supervisor_pid"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Phase    string `json:"phase"`
	Attempts int    `json:"attempts,omitempty"`

	Primary   *ProcessRecord `json:"primary,omitempty"`
	Dependent *ProcessRecord `json:"dependent,omitempty"`

	// ExitCode is the orchestrator's own final code, set once the run
	// reaches done or aborted.
	ExitCode *int `json:"exit_code,omitempty"`
}

type ProcessRecord struct {
	Name      string            `json:"name"`
	PID       int               `json:"pid"`
	Command   []string          `json:"command"`
	Cwd       string            `json:"cwd,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	StdoutLog string            `json:"stdout_log,omitempty"`
	StderrLog string            `json:"stderr_log,omitempty"`
	StartedAt time.Time         `json:"started_at,omitempty"`

	Probe *probe.Target `json:"probe,omitempty"`

	ExitCode *int   `json:"exit_code,omitempty"`
	Signal   string `json:"signal,omitempty"`
}

func RunPath(root string) string {
	return filepath.Join(root, StateDirName, RunFilename)
}

func LogsDir(root string) string {
	return filepath.Join(root, StateDirName, LogsDirName)
}

func Load(root string) (*Run, error) {
	b, err := os.ReadFile(RunPath(root))
	if err != nil {
		return nil, errors.Wrap(err, "read run record")
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrap(err, "parse run record")
	}
	return &r, nil
}

func Save(root string, r *Run) error {
	if r == nil {
		return errors.New("nil run record")
	}
	r.UpdatedAt = time.Now()

	dir := filepath.Dir(RunPath(root))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir state dir")
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal run record")
	}
	if err := os.WriteFile(RunPath(root), b, 0o644); err != nil {
		return errors.Wrap(err, "write run record")
	}
	return nil
}

func Remove(root string) error {
	if err := os.Remove(RunPath(root)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "remove run record")
	}
	return nil
}
