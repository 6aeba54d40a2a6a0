package core

import (
	"fmt"
	"sort"

	"chainci/internal/workflow"
)

// ActionFunc is a builtin action invoked by a uses: step. It may mutate
// env, which is shared by the remaining steps of the instance, and
// returns the text recorded as the step's output.
type ActionFunc func(step workflow.Step, workDir string, env map[string]string) (string, error)

// builtins are the actions a workflow may name. External-tool actions
// (linters, test runners, interpreter installers) are not reimplemented
// here; these builtins only prepare the environment the run: steps see.
var builtins = map[string]ActionFunc{
	"checkout": checkoutAction,
	"setup":    setupAction,
}

// ActionNames lists the registered builtin actions, sorted.
func ActionNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkoutAction pins the instance to the runner's working copy. Runs
// are local, so there is nothing to fetch.
func checkoutAction(_ workflow.Step, workDir string, _ map[string]string) (string, error) {
	return fmt.Sprintf("using working copy at %s\n", workDir), nil
}

// setupAction exports the step's with: pairs into the instance
// environment for the steps that follow.
func setupAction(step workflow.Step, _ string, env map[string]string) (string, error) {
	keys := make([]string, 0, len(step.With))
	for k := range step.With {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for _, k := range keys {
		env[k] = step.With[k]
		out += fmt.Sprintf("%s=%s\n", EnvName(k), step.With[k])
	}
	return out, nil
}

// runAction dispatches a uses: step to its builtin.
func runAction(step workflow.Step, workDir string, env map[string]string) (string, error) {
	action, ok := builtins[step.Uses]
	if !ok {
		return "", fmt.Errorf("unknown action %q", step.Uses)
	}
	return action(step, workDir, env)
}
