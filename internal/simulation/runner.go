package simulation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nvandessel/vitaldyn/internal/store"
)

// Runner executes scenarios against an isolated SQLite store.
type Runner struct {
	t     *testing.T
	store *store.SQLiteStore
}

// NewRunner creates a simulation runner with an isolated SQLite store
// and sandboxed HOME directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.NewSQLiteStore(filepath.Join(tmpDir, store.DBFile))
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Store returns the runner's store.
func (r *Runner) Store() *store.SQLiteStore {
	return r.store
}

// Run executes the scenario, stores it and returns the result. Any error
// fails the test immediately.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()

	out, err := Execute(context.Background(), scenario, WithStore(r.store))
	if err != nil {
		r.t.Fatalf("Run(%s): %v", scenario.Name, err)
	}
	if !out.Report.Passed() {
		r.t.Logf("Run(%s) seed %d:\n%s", scenario.Name, out.Result.Seed, out.Report.Summary())
	}
	return SimulationResult{Outcome: out, Store: r.store}
}
