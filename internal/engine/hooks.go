// Package engine defines the callback surface between a population engine
// and the vital-dynamics harness, and the Recorder that implements it.
//
// An engine (the self-contained driver, or an adapter around an external
// simulator) calls the hooks as individuals are created, conceive, progress
// through pregnancy and ask for their mortality hazard. The Recorder turns
// those calls into registry and tracker mutations and an event log that the
// validation package can check.
package engine

import "github.com/nvandessel/vitaldyn/internal/models"

// Hooks is the capability set an engine needs from the harness.
type Hooks interface {
	// OnCreate registers a new individual and returns its ID.
	OnCreate(weight float64, ageDays int, sex models.Sex) (models.ID, error)

	// OnConceive starts a pregnancy of gestationDays for id.
	OnConceive(id models.ID, gestationDays int) error

	// OnUpdatePregnancy advances id's pregnancy by dt days and reports
	// whether it continues. A false result means the engine must now create
	// the newborn.
	OnUpdatePregnancy(id models.ID, dt int) (stillPregnant bool, err error)

	// OnMortalityQuery returns the daily probability of death.
	OnMortalityQuery(ageDays int, sex models.Sex, simYear float64) float64
}
