package core

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/op/go-logging"

	"chainci/internal/config"
	"chainci/internal/ledger"
	"chainci/internal/security"
	"chainci/internal/storage"
	"chainci/internal/workflow"
)

var lg = logging.MustGetLogger("chainci")

var ErrNoMatch = errors.New("event does not match any trigger")

// Event is an incoming repository event a run may be started for.
type Event struct {
	Name   string `json:"event"`
	Branch string `json:"branch"`
}

// Runner ties together the workflow definition, executor, run store,
// and attestation ledger.
type Runner struct {
	Workflow *workflow.Workflow
	Executor *Executor
	Store    *storage.Store
	Ledger   *ledger.Ledger

	StepTimeout time.Duration

	priv ed25519.PrivateKey
	pub  ed25519.PublicKey

	attestMu sync.Mutex // serializes ledger chain extension
}

// New builds a Runner from configuration: loads and validates the
// workflow, opens the store and ledger, and ensures a signing identity.
func New(conf *config.Config) (*Runner, error) {
	wf, err := workflow.Load(conf.Workflow)
	if err != nil {
		return nil, err
	}
	if err := wf.Validate(ActionNames()...); err != nil {
		return nil, err
	}

	store, err := storage.Open(conf.DBPath, conf.LogDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	led, err := ledger.Open(conf.LedgerPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	pub, priv, err := security.EnsureKeyPair(conf.PubKeyPath, conf.PrivKeyPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init signing keys: %w", err)
	}

	return &Runner{
		Workflow:    wf,
		Executor:    NewExecutor(conf.WorkDir),
		Store:       store,
		Ledger:      led,
		StepTimeout: time.Duration(conf.MaxExecTime) * time.Second,
		priv:        priv,
		pub:         pub,
	}, nil
}

func (r *Runner) Close() error {
	return r.Store.Close()
}

// StartRun matches an event against the workflow's trigger set and, on a
// match, records a pending run.
func (r *Runner) StartRun(ev Event) (string, error) {
	if !r.Workflow.On.Matches(ev.Name, ev.Branch) {
		return "", fmt.Errorf("%w: %s on %q", ErrNoMatch, ev.Name, ev.Branch)
	}
	return r.Store.CreateRun(r.Workflow.Name, ev.Name, ev.Branch)
}

// ExecuteRun runs every job of the workflow for a previously started
// run. Jobs execute in name order; a failing job aborts the run.
func (r *Runner) ExecuteRun(ctx context.Context, runID string) error {
	if err := r.Store.SetRunStatus(runID, storage.StatusRunning); err != nil {
		return err
	}
	lg.Infof("run %s: starting workflow %q", runID, r.Workflow.Name)

	for _, name := range r.Workflow.JobNames() {
		job := r.Workflow.Jobs[name]
		if err := r.runJob(ctx, runID, name, job); err != nil {
			lg.Errorf("run %s: job %q failed: %v", runID, name, err)
			if serr := r.Store.SetRunStatus(runID, storage.StatusFailed); serr != nil {
				lg.Errorf("run %s: record failure: %v", runID, serr)
			}
			return err
		}
	}

	lg.Infof("run %s: passed", runID)
	return r.Store.SetRunStatus(runID, storage.StatusPassed)
}

// runJob expands the job's matrix and executes the instances
// concurrently. With fail-fast, the first failure cancels the siblings;
// without it they run to completion and the first error is reported.
func (r *Runner) runJob(ctx context.Context, runID, name string, job workflow.Job) error {
	instances := job.Expand(name)
	lg.Infof("run %s: job %q (%d instance(s))", runID, name, len(instances))

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, inst := range instances {
		wg.Add(1)
		go func(inst workflow.Instance) {
			defer wg.Done()
			if err := r.runInstance(jobCtx, runID, job, inst); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				if job.FailFast() {
					cancel()
				}
			}
		}(inst)
	}
	wg.Wait()
	return firstErr
}

// runInstance executes the steps of one matrix instance in order. The
// instance's matrix values seed a shared environment that setup actions
// may extend.
func (r *Runner) runInstance(ctx context.Context, runID string, job workflow.Job, inst workflow.Instance) error {
	env := make(map[string]string, len(inst.Vars))
	for k, v := range inst.Vars {
		env[k] = v
	}

	for _, step := range job.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("instance %q canceled: %w", inst.Name, err)
		}

		output, err := r.runStep(ctx, step, inst, env)
		status := storage.StatusPassed
		if err != nil {
			status = storage.StatusFailed
			output += fmt.Sprintf("\nstep failed: %v\n", err)
		}

		addr, aerr := r.attest(runID, inst.Name, step.Label(), status, output)
		if aerr != nil {
			lg.Errorf("run %s: attest %q: %v", runID, step.Label(), aerr)
		}
		if _, serr := r.Store.RecordStep(runID, inst.Name, step.Label(), status, output, addr); serr != nil {
			lg.Errorf("run %s: record step %q: %v", runID, step.Label(), serr)
		}

		if err != nil {
			// A failing step aborts the instance.
			return fmt.Errorf("step %q: %w", step.Label(), err)
		}
		lg.Debugf("run %s: %s / %s ok", runID, inst.Name, step.Label())
	}
	return nil
}

// runStep executes one step: uses: steps dispatch to a builtin action
// with their with: values expanded against the matrix variables, run:
// steps go through the shell executor.
func (r *Runner) runStep(ctx context.Context, step workflow.Step, inst workflow.Instance, env map[string]string) (string, error) {
	if step.Uses != "" {
		expanded := step
		if len(step.With) > 0 {
			expanded.With = make(map[string]string, len(step.With))
			for k, v := range step.With {
				expanded.With[k] = expandVars(v, inst.Vars)
			}
		}
		return runAction(expanded, r.Executor.WorkDir, env)
	}

	merged := make(map[string]string, len(env)+len(step.Env))
	for k, v := range env {
		merged[k] = v
	}
	for k, v := range step.Env {
		merged[k] = v
	}
	return r.Executor.RunStep(ctx, step, merged, r.StepTimeout)
}

// attest appends a signed ledger entry for a step result and returns its
// attestation address. Chain extension is serialized so concurrent
// instances cannot race on the head.
func (r *Runner) attest(runID, instance, step, status, output string) (string, error) {
	digest, err := ledger.DigestAddress([]byte(output))
	if err != nil {
		return "", err
	}

	r.attestMu.Lock()
	defer r.attestMu.Unlock()

	entry, err := ledger.NewEntry(r.Ledger.NextIndex(), runID, instance, step, status, digest, r.Ledger.LastHash())
	if err != nil {
		return "", err
	}
	if err := r.Ledger.Append(entry, r.priv, r.pub); err != nil {
		return "", err
	}
	return entry.Address, nil
}

// expandVars substitutes $name and ${name} references in with: values
// against the instance's matrix variables.
func expandVars(s string, vars map[string]string) string {
	return os.Expand(s, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return ""
	})
}
