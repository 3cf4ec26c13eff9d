// Package probe implements single-shot readiness checks against service
// endpoints. A Checker observes a target exactly once per Check call and
// reports Ready or NotReady; retry policy lives in pkg/readiness.
package probe

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Status is the outcome of a single readiness observation.
type Status string

const (
	StatusReady    Status = "ready"
	StatusNotReady Status = "not_ready"
)

// Target describes what to probe. Type selects the checker; the other
// fields are interpreted per type. TimeoutMs bounds a single observation,
// not the overall wait.
type Target struct {
	Type      string `yaml:"type" json:"type"`
	URL       string `yaml:"url,omitempty" json:"url,omitempty"`
	Address   string `yaml:"address,omitempty" json:"address,omitempty"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty"`
	Expr      string `yaml:"expr,omitempty" json:"expr,omitempty"`
	TimeoutMs int64  `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
}

// Result is a single observation. Transport failures are reported as
// NotReady with the failure in Reason, never as an error.
type Result struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (r Result) Ready() bool {
	return r.Status == StatusReady
}

// Checker performs one observation per Check call. Implementations do not
// retry and do not sleep beyond their per-observation timeout.
type Checker interface {
	Check(ctx context.Context) Result
	Describe() string
}

// New builds a checker for the target. The target is validated here so
// that misconfiguration surfaces before the first probe.
func New(t Target) (Checker, error) {
	switch strings.ToLower(t.Type) {
	case "tcp":
		return newTCPChecker(t)
	case "http", "":
		return newHTTPChecker(t)
	case "file":
		return newFileChecker(t)
	case "expr":
		return newExprChecker(t)
	default:
		return nil, errors.Errorf("unsupported probe type %q", t.Type)
	}
}

func notReady(err error) Result {
	return Result{Status: StatusNotReady, Reason: err.Error()}
}
