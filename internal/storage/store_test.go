package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "chainci.db"), filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := testStore(t)

	id, err := s.CreateRun("ci", "push", "main")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	run, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != StatusPending || run.Event != "push" || run.Branch != "main" {
		t.Errorf("run = %+v", run)
	}

	for _, status := range []string{StatusRunning, StatusPassed} {
		if err := s.SetRunStatus(id, status); err != nil {
			t.Fatalf("SetRunStatus(%s): %v", status, err)
		}
	}
	run, err = s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != StatusPassed {
		t.Errorf("status = %q, want passed", run.Status)
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != id {
		t.Errorf("runs = %+v", runs)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetRun("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRecordStep(t *testing.T) {
	s := testStore(t)

	id, err := s.CreateRun("ci", "push", "main")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	logPath, err := s.RecordStep(id, "test (3.10)", "tests", StatusPassed, "ok\n", "ca1qexample")
	if err != nil {
		t.Fatalf("RecordStep: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(data) != "ok\n" {
		t.Errorf("log content = %q", data)
	}

	steps, err := s.ListSteps(id)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(steps))
	}
	if steps[0].Instance != "test (3.10)" || steps[0].Attestation != "ca1qexample" {
		t.Errorf("step = %+v", steps[0])
	}
}
