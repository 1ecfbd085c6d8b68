package simulation

import (
	"slices"

	"github.com/nvandessel/vitaldyn/internal/config"
	"github.com/nvandessel/vitaldyn/internal/driver"
	"github.com/nvandessel/vitaldyn/internal/ratemodel"
	"github.com/nvandessel/vitaldyn/internal/store"
	"github.com/nvandessel/vitaldyn/internal/validation"
)

// Scenario defines one simulation experiment.
type Scenario struct {
	Name string

	// Config is the starting configuration. Nil means config.Default().
	// Execute works on a copy and never modifies it.
	Config *config.Config

	// Configure, when non-nil, adjusts the copied configuration before the
	// model is built.
	Configure func(c *config.Config)

	// Seed overrides Config.Simulation.Seed when non-zero.
	Seed uint64
}

// Outcome captures a finished and validated run.
type Outcome struct {
	Name string
	// Config is the configuration the run used, with the seed it drew.
	Config *config.Config
	Model  *ratemodel.Model
	Result *driver.Result
	Report *validation.Report

	// RunID is the store identifier, empty when the run was not persisted.
	RunID string
}

// SimulationResult is an Outcome together with the store it was saved to.
type SimulationResult struct {
	*Outcome
	Store *store.SQLiteStore
}

// cloneConfig deep-copies c so Configure hooks cannot reach the caller's tables.
func cloneConfig(c *config.Config) *config.Config {
	out := *c
	out.Birth.Fertility = cloneTable(c.Birth.Fertility)
	out.Mortality.Male = cloneTable(c.Mortality.Male)
	out.Mortality.Female = cloneTable(c.Mortality.Female)
	return &out
}

func cloneTable(t *config.TableConfig) *config.TableConfig {
	if t == nil {
		return nil
	}
	out := *t
	out.AgeBreakpoints = slices.Clone(t.AgeBreakpoints)
	out.YearBreakpoints = slices.Clone(t.YearBreakpoints)
	out.Values = make([][]float64, len(t.Values))
	for i, row := range t.Values {
		out.Values[i] = slices.Clone(row)
	}
	return &out
}
