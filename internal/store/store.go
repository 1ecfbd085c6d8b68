// Package store persists runs, their event logs and their validation
// findings, and exports event logs as JSONL or Arrow IPC streams.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/vitaldyn/internal/models"
	"github.com/nvandessel/vitaldyn/internal/validation"
)

// ErrRunNotFound is returned when no run matches an ID or ID prefix.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun is returned when an ID prefix matches several runs.
var ErrAmbiguousRun = errors.New("run id prefix is ambiguous")

// RunRecord describes one persisted simulation run.
type RunRecord struct {
	ID              string        `json:"id"`
	Name            string        `json:"name,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	Seed            uint64        `json:"seed"`
	Days            int           `json:"days"`
	Model           string        `json:"model"`
	Config          string        `json:"config,omitempty"` // YAML
	Births          int           `json:"births"`
	Deaths          int           `json:"deaths"`
	Conceptions     int           `json:"conceptions"`
	FinalPopulation int           `json:"final_population"`
	Passed          bool          `json:"passed"`
	Elapsed         time.Duration `json:"elapsed"`
}

// RunStore defines the persistence operations on runs.
type RunStore interface {
	// SaveRun stores a run with its events and findings atomically and
	// returns its ID. An empty run.ID is assigned a new UUID.
	SaveRun(ctx context.Context, run RunRecord, events []models.Event, findings []validation.Finding) (string, error)

	// GetRun returns the run whose ID equals or uniquely starts with id.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns every run, newest first.
	ListRuns(ctx context.Context) ([]RunRecord, error)

	// LoadEvents returns a run's events in log order.
	LoadEvents(ctx context.Context, runID string) ([]models.Event, error)

	// LoadFindings returns a run's findings in report order.
	LoadFindings(ctx context.Context, runID string) ([]validation.Finding, error)

	// DeleteRun removes a run with its events and findings.
	DeleteRun(ctx context.Context, runID string) error

	Close() error
}
