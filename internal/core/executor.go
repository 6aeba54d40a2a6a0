package core

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"chainci/internal/workflow"
)

// Executor runs shell steps inside the working directory.
type Executor struct {
	WorkDir string
}

func NewExecutor(workDir string) *Executor {
	return &Executor{WorkDir: workDir}
}

// RunStep executes a single run: step in a shell (sh -c) and returns its
// combined output. The env map is exported on top of the process
// environment, map keys converted to environment-variable form.
func (e *Executor) RunStep(ctx context.Context, step workflow.Step, env map[string]string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", step.Run)
	cmd.Dir = e.WorkDir
	cmd.Env = append(os.Environ(), envList(env)...)
	// The shell gets its own process group so cancellation kills any
	// children still holding the output pipe, not just the shell itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}

// envList renders an env map as KEY=VALUE pairs in sorted order.
func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, EnvName(k)+"="+v)
	}
	sort.Strings(list)
	return list
}

// EnvName converts a workflow variable name like python-version to its
// environment-variable form PYTHON_VERSION.
func EnvName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
}
