package engine

import (
	"errors"
	"fmt"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/models"
	"github.com/nvandessel/vitaldyn/internal/population"
	"github.com/nvandessel/vitaldyn/internal/pregnancy"
	"github.com/nvandessel/vitaldyn/internal/ratemodel"
)

var (
	// ErrNotRunning is returned by day-scoped operations before BeginDay.
	ErrNotRunning = errors.New("recorder has not started a day")

	// ErrUnsupportedStep is returned when an engine steps by other than one day.
	ErrUnsupportedStep = errors.New("unsupported time step")

	// ErrUndelivered is returned when a day ends with a delivery that never
	// produced a newborn.
	ErrUndelivered = errors.New("delivery without newborn")
)

// Delivery is a pregnancy that ended today and is owed a newborn.
type Delivery struct {
	Mother models.ID
	Weight float64
}

// Recorder implements Hooks over an exclusively owned registry, tracker and
// event log.
type Recorder struct {
	model    *ratemodel.Model
	registry *population.Registry
	tracker  *pregnancy.Tracker
	log      *models.EventLog

	nextID    models.ID
	day       int
	running   bool
	dayEvents []models.Event
	pending   []models.ID
}

var _ Hooks = (*Recorder)(nil)

// NewRecorder returns a Recorder in its setup phase: individuals created
// before the first BeginDay form the initial population and log no event.
func NewRecorder(model *ratemodel.Model) *Recorder {
	return &Recorder{
		model:    model,
		registry: population.NewRegistry(),
		tracker:  pregnancy.NewTracker(),
		log:      models.NewEventLog(),
		nextID:   1,
		day:      -1,
	}
}

// Registry returns the live population.
func (r *Recorder) Registry() *population.Registry { return r.registry }

// Tracker returns the pregnancy tracker.
func (r *Recorder) Tracker() *pregnancy.Tracker { return r.tracker }

// Log returns the event log.
func (r *Recorder) Log() *models.EventLog { return r.log }

// Day returns the current day, or -1 during setup.
func (r *Recorder) Day() int { return r.day }

// BeginDay starts day. Days must strictly increase and the previous day must
// have been ended.
func (r *Recorder) BeginDay(day int) error {
	if day <= r.day {
		return fmt.Errorf("day %d does not follow day %d", day, r.day)
	}
	if r.running && (len(r.dayEvents) > 0 || len(r.pending) > 0) {
		return fmt.Errorf("day %d was not ended", r.day)
	}
	r.day = day
	r.running = true
	return nil
}

// EndDay checks the day's invariants, appends its events to the log and
// returns them.
func (r *Recorder) EndDay() ([]models.Event, error) {
	if !r.running {
		return nil, ErrNotRunning
	}
	if len(r.pending) > 0 {
		return nil, fmt.Errorf("%w: day %d, mothers %v", ErrUndelivered, r.day, r.pending)
	}
	if err := r.tracker.CheckConsistent(r.registry.PregnantIDs()); err != nil {
		return nil, fmt.Errorf("day %d: %w", r.day, err)
	}
	events := r.dayEvents
	r.dayEvents = nil
	if err := r.log.Append(events...); err != nil {
		return nil, fmt.Errorf("day %d: %w", r.day, err)
	}
	return events, nil
}

// OnCreate implements Hooks. During a day only newborns (age 0) may be
// created; each consumes the oldest pending delivery, if any, as its mother.
func (r *Recorder) OnCreate(weight float64, ageDays int, sex models.Sex) (models.ID, error) {
	if r.running && ageDays != 0 {
		return 0, fmt.Errorf("day %d: individuals created during a run must be newborns, got age %d", r.day, ageDays)
	}
	id := r.nextID
	if err := r.registry.Add(models.Individual{ID: id, AgeDays: ageDays, Sex: sex, Weight: weight}); err != nil {
		return 0, err
	}
	r.nextID++
	if !r.running {
		return id, nil
	}

	var mother models.ID
	if len(r.pending) > 0 {
		mother = r.pending[0]
		r.pending = r.pending[1:]
	}
	r.dayEvents = append(r.dayEvents, models.Event{
		Day:          r.day,
		Type:         models.EventBirth,
		IndividualID: id,
		MotherID:     mother,
		Sex:          sex,
		Weight:       weight,
	})
	return id, nil
}

// OnConceive implements Hooks.
func (r *Recorder) OnConceive(id models.ID, gestationDays int) error {
	if !r.running {
		return ErrNotRunning
	}
	if gestationDays != constants.GestationDays {
		return fmt.Errorf("gestation of %d days requested, want %d", gestationDays, constants.GestationDays)
	}
	ind, ok := r.registry.Get(id)
	if !ok {
		return fmt.Errorf("day %d: conception: %w: %d", r.day, population.ErrUnknownIndividual, id)
	}
	if ind.Sex != models.Female {
		return fmt.Errorf("day %d: conception by male individual %d", r.day, id)
	}
	if err := r.tracker.Conceive(id, r.day); err != nil {
		return err
	}
	if err := r.registry.SetPregnant(id, true); err != nil {
		return err
	}
	r.dayEvents = append(r.dayEvents, models.Event{
		Day:          r.day,
		Type:         models.EventConception,
		IndividualID: id,
		Sex:          ind.Sex,
		AgeDays:      ind.AgeDays,
		Weight:       ind.Weight,
	})
	return nil
}

// OnUpdatePregnancy implements Hooks. The harness is day-stepped, so dt must be 1.
func (r *Recorder) OnUpdatePregnancy(id models.ID, dt int) (bool, error) {
	if !r.running {
		return false, ErrNotRunning
	}
	if dt != 1 {
		return false, fmt.Errorf("%w: dt=%d", ErrUnsupportedStep, dt)
	}
	still, err := r.tracker.Update(id, r.day)
	if err != nil {
		return false, err
	}
	if !still {
		if err := r.registry.SetPregnant(id, false); err != nil {
			return false, err
		}
		r.pending = append(r.pending, id)
	}
	return still, nil
}

// OnMortalityQuery implements Hooks.
func (r *Recorder) OnMortalityQuery(ageDays int, sex models.Sex, simYear float64) float64 {
	return r.model.MortalityHazard(ageDays, sex, simYear)
}

// DeliverDue closes every pregnancy due today and returns the deliveries,
// which are owed a newborn via OnCreate before EndDay.
func (r *Recorder) DeliverDue() ([]Delivery, error) {
	if !r.running {
		return nil, ErrNotRunning
	}
	due, err := r.tracker.Advance(r.day)
	if err != nil {
		return nil, err
	}
	out := make([]Delivery, 0, len(due))
	for _, rec := range due {
		mother, ok := r.registry.Get(rec.Mother)
		if !ok {
			return nil, fmt.Errorf("day %d: delivery: %w: %d", r.day, population.ErrUnknownIndividual, rec.Mother)
		}
		if err := r.registry.SetPregnant(rec.Mother, false); err != nil {
			return nil, err
		}
		r.pending = append(r.pending, rec.Mother)
		out = append(out, Delivery{Mother: rec.Mother, Weight: mother.Weight})
	}
	return out, nil
}

// RecordDeath removes id from the population. An open pregnancy ends without
// a delivery.
func (r *Recorder) RecordDeath(id models.ID) error {
	if !r.running {
		return ErrNotRunning
	}
	gone, err := r.registry.Remove(id)
	if err != nil {
		return fmt.Errorf("day %d: death: %w", r.day, err)
	}
	if gone.Pregnant {
		r.tracker.Cancel(id)
	}
	r.dayEvents = append(r.dayEvents, models.Event{
		Day:          r.day,
		Type:         models.EventDeath,
		IndividualID: id,
		Sex:          gone.Sex,
		AgeDays:      gone.AgeDays,
		Weight:       gone.Weight,
	})
	return nil
}

// Snapshot summarizes the live population for the current day.
func (r *Recorder) Snapshot() models.Snapshot {
	snap := models.Snapshot{
		Day:     r.day,
		SimYear: r.model.SimYear(r.day),
		Total:   r.registry.Len(),
		Members: make([]models.Member, 0, r.registry.Len()),
	}
	r.registry.Each(func(ind models.Individual) {
		snap.Members = append(snap.Members, models.Member{ID: ind.ID, AgeDays: ind.AgeDays, Sex: ind.Sex})
		if ind.Pregnant {
			snap.Pregnant++
		}
		if r.model.IsPossibleMother(ind) {
			snap.PossibleMothers++
			snap.MotherAges = append(snap.MotherAges, ind.AgeDays)
		}
	})
	return snap
}
