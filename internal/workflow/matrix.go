package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// Instance is one concrete execution of a job: the job itself after one
// matrix combination has been fixed. A job without a matrix expands to a
// single instance carrying no variables.
type Instance struct {
	Job  string
	Name string
	Vars map[string]string
}

// Expand produces the deterministic cross-product of a job's matrix.
// Axis keys are walked in sorted order, the rightmost axis varying
// fastest, so the instance list is stable across runs.
func (j Job) Expand(jobName string) []Instance {
	if j.Strategy == nil || len(j.Strategy.Matrix) == 0 {
		return []Instance{{Job: jobName, Name: jobName}}
	}

	axes := make([]string, 0, len(j.Strategy.Matrix))
	for axis := range j.Strategy.Matrix {
		axes = append(axes, axis)
	}
	sort.Strings(axes)

	total := 1
	for _, axis := range axes {
		total *= len(j.Strategy.Matrix[axis])
	}

	instances := make([]Instance, 0, total)
	counters := make([]int, len(axes))
	for {
		vars := make(map[string]string, len(axes))
		labels := make([]string, len(axes))
		for i, axis := range axes {
			v := string(j.Strategy.Matrix[axis][counters[i]])
			vars[axis] = v
			labels[i] = v
		}
		instances = append(instances, Instance{
			Job:  jobName,
			Name: fmt.Sprintf("%s (%s)", jobName, strings.Join(labels, ", ")),
			Vars: vars,
		})

		// odometer increment
		i := len(counters) - 1
		for ; i >= 0; i-- {
			counters[i]++
			if counters[i] < len(j.Strategy.Matrix[axes[i]]) {
				break
			}
			counters[i] = 0
		}
		if i < 0 {
			return instances
		}
	}
}

// JobNames returns the workflow's job names in sorted order, which is
// the order the runner executes them in.
func (w *Workflow) JobNames() []string {
	names := make([]string, 0, len(w.Jobs))
	for name := range w.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
