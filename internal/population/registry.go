// Package population owns the live set of individuals during a run.
package population

import (
	"errors"
	"fmt"

	"github.com/nvandessel/vitaldyn/internal/models"
)

// ErrUnknownIndividual is returned when an operation names an individual
// that is not alive in the registry.
var ErrUnknownIndividual = errors.New("unknown individual")

// ErrDuplicateIndividual is returned when an ID is added twice.
var ErrDuplicateIndividual = errors.New("duplicate individual")

// Registry stores live individuals. Iteration order is deterministic:
// insertion order, except that removal moves the last individual into the
// vacated slot.
type Registry struct {
	members []*models.Individual
	index   map[models.ID]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[models.ID]int)}
}

// Add inserts a copy of ind.
func (r *Registry) Add(ind models.Individual) error {
	if ind.ID == 0 {
		return fmt.Errorf("individual ID is required")
	}
	if _, ok := r.index[ind.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateIndividual, ind.ID)
	}
	if !ind.Sex.Valid() {
		return fmt.Errorf("individual %d has invalid sex %d", ind.ID, ind.Sex)
	}
	if ind.Weight <= 0 {
		return fmt.Errorf("individual %d has non-positive weight %v", ind.ID, ind.Weight)
	}
	if ind.AgeDays < 0 {
		return fmt.Errorf("individual %d has negative age %d", ind.ID, ind.AgeDays)
	}
	p := ind
	r.index[ind.ID] = len(r.members)
	r.members = append(r.members, &p)
	return nil
}

// Remove deletes an individual and returns its final state.
func (r *Registry) Remove(id models.ID) (models.Individual, error) {
	i, ok := r.index[id]
	if !ok {
		return models.Individual{}, fmt.Errorf("%w: %d", ErrUnknownIndividual, id)
	}
	gone := *r.members[i]
	last := len(r.members) - 1
	if i != last {
		r.members[i] = r.members[last]
		r.index[r.members[i].ID] = i
	}
	r.members[last] = nil
	r.members = r.members[:last]
	delete(r.index, id)
	return gone, nil
}

// Get returns a copy of the individual with the given ID.
func (r *Registry) Get(id models.ID) (models.Individual, bool) {
	i, ok := r.index[id]
	if !ok {
		return models.Individual{}, false
	}
	return *r.members[i], true
}

// Contains reports whether id is alive.
func (r *Registry) Contains(id models.ID) bool {
	_, ok := r.index[id]
	return ok
}

// Len returns the number of live individuals.
func (r *Registry) Len() int {
	return len(r.members)
}

// Each calls fn for every individual in iteration order. fn must not add or
// remove individuals.
func (r *Registry) Each(fn func(models.Individual)) {
	for _, m := range r.members {
		fn(*m)
	}
}

// Members returns copies of every live individual in iteration order.
func (r *Registry) Members() []models.Individual {
	out := make([]models.Individual, len(r.members))
	for i, m := range r.members {
		out[i] = *m
	}
	return out
}

// SetPregnant updates the pregnancy flag of a live individual.
func (r *Registry) SetPregnant(id models.ID, pregnant bool) error {
	i, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownIndividual, id)
	}
	r.members[i].Pregnant = pregnant
	return nil
}

// PregnantIDs returns the IDs flagged as pregnant, in iteration order.
func (r *Registry) PregnantIDs() []models.ID {
	var out []models.ID
	for _, m := range r.members {
		if m.Pregnant {
			out = append(out, m.ID)
		}
	}
	return out
}

// AgeAll adds days to every individual's age.
func (r *Registry) AgeAll(days int) {
	for _, m := range r.members {
		m.AgeDays += days
	}
}

// TotalWeight returns the sum of sampling weights, i.e. the number of real
// people the population represents.
func (r *Registry) TotalWeight() float64 {
	total := 0.0
	for _, m := range r.members {
		total += m.Weight
	}
	return total
}
