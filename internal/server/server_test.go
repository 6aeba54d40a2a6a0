package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chainci/internal/config"
	"chainci/internal/core"
	"chainci/internal/ledger"
	"chainci/internal/storage"
)

const testDefinition = `
name: ci
on: [push]
jobs:
  check:
    runs-on: local
    steps:
      - name: lint
        run: "true"
`

func testServer(t *testing.T) (*Server, *core.Runner) {
	t.Helper()
	dir := t.TempDir()

	wfPath := filepath.Join(dir, "chainci.yaml")
	if err := os.WriteFile(wfPath, []byte(testDefinition), 0644); err != nil {
		t.Fatal(err)
	}

	conf := config.Default()
	conf.Workflow = wfPath
	conf.WorkDir = dir
	conf.LogDir = filepath.Join(dir, "logs")
	conf.DBPath = filepath.Join(dir, "chainci.db")
	conf.LedgerPath = filepath.Join(dir, "ledger.json")
	conf.PubKeyPath = filepath.Join(dir, "keys", "chainci.pub")
	conf.PrivKeyPath = filepath.Join(dir, "keys", "chainci.priv")

	runner, err := core.New(conf)
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	t.Cleanup(func() { runner.Close() })

	return New(runner), runner
}

func postEvent(t *testing.T, ts *httptest.Server, body string) (int, map[string]string) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/events", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /events: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func waitForRun(t *testing.T, runner *core.Runner, runID string) *storage.Run {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		run, err := runner.Store.GetRun(runID)
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if run.Status == storage.StatusPassed || run.Status == storage.StatusFailed {
			return run
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("run did not finish in time")
	return nil
}

func TestSubmitEventRunsWorkflow(t *testing.T) {
	srv, runner := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	code, out := postEvent(t, ts, `{"event": "push", "branch": "main"}`)
	if code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", code)
	}
	runID := out["id"]
	if runID == "" {
		t.Fatalf("response = %v", out)
	}

	run := waitForRun(t, runner, runID)
	if run.Status != storage.StatusPassed {
		t.Errorf("run status = %q", run.Status)
	}

	// Run listing and steps are served back.
	resp, err := http.Get(ts.URL + "/runs/" + runID + "/steps")
	if err != nil {
		t.Fatalf("GET steps: %v", err)
	}
	defer resp.Body.Close()
	var steps []storage.StepResult
	if err := json.NewDecoder(resp.Body).Decode(&steps); err != nil {
		t.Fatalf("decode steps: %v", err)
	}
	if len(steps) != 1 || steps[0].Step != "lint" {
		t.Fatalf("steps = %+v", steps)
	}

	// The recorded attestation resolves through the API.
	resp, err = http.Get(ts.URL + "/attest/" + steps[0].Attestation)
	if err != nil {
		t.Fatalf("GET attest: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("attest status = %d", resp.StatusCode)
	}
	var entry ledger.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Run != runID || entry.Step != "lint" {
		t.Errorf("entry = %+v", entry)
	}

	// And the chain verifies.
	resp, err = http.Get(ts.URL + "/ledger/verify")
	if err != nil {
		t.Fatalf("GET verify: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("verify status = %d", resp.StatusCode)
	}
}

func TestSubmitEventIgnored(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	code, out := postEvent(t, ts, `{"event": "pull_request"}`)
	if code != http.StatusOK || out["status"] != "ignored" {
		t.Fatalf("code = %d, out = %v", code, out)
	}
}

func TestNotFoundResponses(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, path := range []string{"/runs/unknown", "/attest/ca1unknown"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestPing(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ping")
	if err != nil {
		t.Fatalf("GET /ping: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ping status = %d", resp.StatusCode)
	}
}
