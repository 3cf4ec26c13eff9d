// Package config loads the .bootgate.yaml run plan: which primary to
// start, how to probe it, and which dependent to gate on it.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/bootgate/pkg/launch"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/go-go-golems/bootgate/pkg/readiness"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = ".bootgate.yaml"

type File struct {
	Primary   Service  `yaml:"primary"`
	Dependent Service  `yaml:"dependent"`
	Wait      Wait     `yaml:"wait,omitempty"`
	Shutdown  Shutdown `yaml:"shutdown,omitempty"`
	LogDir    string   `yaml:"log_dir,omitempty"`
}

type Service struct {
	Name    string            `yaml:"name"`
	Command []string          `yaml:"command"`
	Cwd     string            `yaml:"cwd,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Probe   *probe.Target     `yaml:"probe,omitempty"`
}

// Wait bounds the readiness loop. Durations are plain milliseconds in
// the yaml; zero means unbounded (attempts, wall clock) or the built-in
// default (interval).
type Wait struct {
	IntervalMs  int64 `yaml:"interval_ms,omitempty"`
	MaxAttempts int   `yaml:"max_attempts,omitempty"`
	MaxWaitMs   int64 `yaml:"max_wait_ms,omitempty"`
}

type Shutdown struct {
	GraceMs           int64 `yaml:"grace_ms,omitempty"`
	StopPrimaryOnExit bool  `yaml:"stop_primary_on_exit,omitempty"`
}

func DefaultPath(root string) string {
	return filepath.Join(root, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

func (f *File) Validate() error {
	if f.Primary.Name == "" {
		return errors.New("primary: missing name")
	}
	if len(f.Primary.Command) == 0 {
		return errors.Errorf("primary %q: missing command", f.Primary.Name)
	}
	if f.Primary.Probe == nil {
		return errors.Errorf("primary %q: missing probe", f.Primary.Name)
	}
	if _, err := probe.New(*f.Primary.Probe); err != nil {
		return errors.Wrapf(err, "primary %q probe", f.Primary.Name)
	}
	if f.Dependent.Name == "" {
		return errors.New("dependent: missing name")
	}
	if len(f.Dependent.Command) == 0 {
		return errors.Errorf("dependent %q: missing command", f.Dependent.Name)
	}
	return nil
}

// LaunchSpec resolves the service into a launch spec, with a relative
// cwd anchored at root.
func (s Service) LaunchSpec(root string) launch.Spec {
	cwd := root
	if s.Cwd != "" {
		if filepath.IsAbs(s.Cwd) {
			cwd = s.Cwd
		} else {
			cwd = filepath.Join(root, s.Cwd)
		}
	}
	return launch.Spec{
		Name:    s.Name,
		Command: s.Command,
		Dir:     cwd,
		Env:     s.Env,
	}
}

func (w Wait) Policy() readiness.Policy {
	return readiness.Policy{
		Interval:    time.Duration(w.IntervalMs) * time.Millisecond,
		MaxAttempts: w.MaxAttempts,
		MaxWait:     time.Duration(w.MaxWaitMs) * time.Millisecond,
	}
}

func (s Shutdown) Grace() time.Duration {
	return time.Duration(s.GraceMs) * time.Millisecond
}
