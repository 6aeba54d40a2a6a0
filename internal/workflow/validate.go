package workflow

import (
	"errors"
	"fmt"
)

var ErrInvalidWorkflow = errors.New("invalid workflow")

// ValidationError wraps a schema validity failure.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "invalid workflow: " + e.Msg }

func (e *ValidationError) Unwrap() error { return ErrInvalidWorkflow }

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// KnownEvents are the repository events a trigger set may name.
var KnownEvents = map[string]bool{
	"push":         true,
	"pull_request": true,
}

// Validate checks schema validity: recognized triggers, at least one
// job, well-formed steps and a non-degenerate matrix. When actions are
// given, every uses: step must name one of them.
func (w *Workflow) Validate(actions ...string) error {
	if len(w.On.Events) == 0 {
		return invalidf("no triggers declared")
	}
	for event := range w.On.Events {
		if !KnownEvents[event] {
			return invalidf("unknown trigger event %q", event)
		}
	}
	if len(w.Jobs) == 0 {
		return invalidf("no jobs declared")
	}

	known := make(map[string]bool, len(actions))
	for _, a := range actions {
		known[a] = true
	}

	for name, job := range w.Jobs {
		if job.RunsOn == "" {
			return invalidf("job %q: runs-on is required", name)
		}
		if len(job.Steps) == 0 {
			return invalidf("job %q: no steps", name)
		}
		if job.Strategy != nil {
			for axis, values := range job.Strategy.Matrix {
				if axis == "" {
					return invalidf("job %q: empty matrix axis name", name)
				}
				if len(values) == 0 {
					return invalidf("job %q: matrix axis %q has no values", name, axis)
				}
			}
			seen := make(map[string]bool)
			for _, inst := range job.Expand(name) {
				if seen[inst.Name] {
					return invalidf("job %q: duplicate matrix instance %q", name, inst.Name)
				}
				seen[inst.Name] = true
			}
		}
		for i, step := range job.Steps {
			if step.Run == "" && step.Uses == "" {
				return invalidf("job %q step %d: needs run or uses", name, i+1)
			}
			if step.Run != "" && step.Uses != "" {
				return invalidf("job %q step %d: run and uses are exclusive", name, i+1)
			}
			if step.Uses == "" && len(step.With) > 0 {
				return invalidf("job %q step %d: with requires uses", name, i+1)
			}
			if step.Uses != "" && len(known) > 0 && !known[step.Uses] {
				return invalidf("job %q step %d: unknown action %q", name, i+1, step.Uses)
			}
		}
	}
	return nil
}
