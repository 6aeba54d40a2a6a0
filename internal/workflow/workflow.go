package workflow

import (
	"fmt"
	"path"

	"gopkg.in/yaml.v3"
)

// Workflow is the parsed form of a workflow definition file: the trigger
// set, plus named jobs each holding an ordered list of steps.
type Workflow struct {
	Name string         `yaml:"name"`
	On   Triggers       `yaml:"on"`
	Jobs map[string]Job `yaml:"jobs"`
}

// Triggers is the set of repository events that start a run. The YAML
// form may be a single event name, a list of names, or a map of event
// name to rule.
type Triggers struct {
	Events map[string]TriggerRule
}

// TriggerRule scopes a trigger to particular branches. Empty means any.
type TriggerRule struct {
	Branches []string `yaml:"branches"`
}

func (t *Triggers) UnmarshalYAML(node *yaml.Node) error {
	t.Events = make(map[string]TriggerRule)
	switch node.Kind {
	case yaml.ScalarNode:
		t.Events[node.Value] = TriggerRule{}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("trigger list entry at line %d is not a name", item.Line)
			}
			t.Events[item.Value] = TriggerRule{}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var rule TriggerRule
			if node.Content[i+1].Kind != yaml.ScalarNode || node.Content[i+1].Value != "" {
				if err := node.Content[i+1].Decode(&rule); err != nil {
					return err
				}
			}
			t.Events[node.Content[i].Value] = rule
		}
	default:
		return fmt.Errorf("unsupported trigger form at line %d", node.Line)
	}
	return nil
}

// Matches reports whether an event with the given branch selects this
// trigger set. Branch patterns use path-style globs.
func (t Triggers) Matches(event, branch string) bool {
	rule, ok := t.Events[event]
	if !ok {
		return false
	}
	if len(rule.Branches) == 0 {
		return true
	}
	for _, pat := range rule.Branches {
		if ok, _ := path.Match(pat, branch); ok {
			return true
		}
	}
	return false
}

// Job is a named unit of work: a target environment label, an optional
// matrix strategy, and the steps to run.
type Job struct {
	RunsOn   string    `yaml:"runs-on"`
	Strategy *Strategy `yaml:"strategy"`
	Steps    []Step    `yaml:"steps"`
}

// FailFast reports whether a failing matrix instance should cancel its
// siblings. Defaults to true, matching the runner convention.
func (j Job) FailFast() bool {
	if j.Strategy == nil || j.Strategy.FailFast == nil {
		return true
	}
	return *j.Strategy.FailFast
}

// Strategy multiplies a job across a matrix of parameter values.
type Strategy struct {
	FailFast *bool                    `yaml:"fail-fast"`
	Matrix   map[string][]MatrixValue `yaml:"matrix"`
}

// MatrixValue is a matrix axis value kept in its lexical YAML form, so a
// version written 3.10 survives as "3.10" rather than a float.
type MatrixValue string

func (v *MatrixValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("matrix value at line %d is not a scalar", node.Line)
	}
	*v = MatrixValue(node.Value)
	return nil
}

// Step is one action inside a job: either a named builtin action
// (uses, parameterized by with) or a shell command (run).
type Step struct {
	Name string            `yaml:"name"`
	Uses string            `yaml:"uses"`
	Run  string            `yaml:"run"`
	With map[string]string `yaml:"with"`
	Env  map[string]string `yaml:"env"`
}

// Label names a step for logs and storage.
func (s Step) Label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Uses != "":
		return s.Uses
	default:
		return s.Run
	}
}
