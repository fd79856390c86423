package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a replayable description of a session tree: who spawns
// whom, and what each session writes, works on, or tracks.
type Scenario struct {
	Name    string  `yaml:"name"`
	Session Session `yaml:"session"`
}

// Session is one scheduler instance in the tree. Jobs run in order;
// children run concurrently with the jobs and with each other. Level
// pins the session's band (the root's for the top session, the spawned
// child's otherwise); zero takes the next default.
type Session struct {
	Name     string    `yaml:"name"`
	Level    int       `yaml:"level,omitempty"`
	Jobs     []JobSpec `yaml:"jobs,omitempty"`
	Children []Session `yaml:"children,omitempty"`
}

// JobSpec is one unit of scripted activity.
type JobSpec struct {
	Kind     string   `yaml:"kind"`
	Message  string   `yaml:"message"`
	Duration Duration `yaml:"duration,omitempty"`
	Steps    int      `yaml:"steps,omitempty"`
}

// Job kinds a scenario may use.
const (
	kindLog      = "log"
	kindBlocking = "blocking"
	kindProgress = "progress"
)

// Duration wraps time.Duration so scenario files can say "250ms".
type Duration time.Duration

// UnmarshalYAML parses Go duration syntax.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the scenario is complete enough to run.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("scenario needs a name")
	}
	return s.Session.validate("session")
}

func (s *Session) validate(path string) error {
	if s.Name == "" {
		return fmt.Errorf("%s: session needs a name", path)
	}
	for i, job := range s.Jobs {
		switch job.Kind {
		case kindLog, kindBlocking, kindProgress:
		default:
			return fmt.Errorf("%s.jobs[%d]: unknown kind %q", path, i, job.Kind)
		}
		if job.Message == "" {
			return fmt.Errorf("%s.jobs[%d]: job needs a message", path, i)
		}
	}
	for i := range s.Children {
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		if err := s.Children[i].validate(childPath); err != nil {
			return err
		}
	}
	return nil
}
