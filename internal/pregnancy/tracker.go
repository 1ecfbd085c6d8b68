// Package pregnancy tracks open gestations from conception to delivery.
//
// Gestation is exactly constants.GestationDays. A record that is still open
// past that length means a delivery was missed and is reported as an error,
// never silently delivered late.
package pregnancy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/models"
)

var (
	// ErrAlreadyPregnant is returned when an individual with an open record conceives.
	ErrAlreadyPregnant = errors.New("individual is already pregnant")

	// ErrNotPregnant is returned when updating an individual without an open record.
	ErrNotPregnant = errors.New("individual is not pregnant")

	// ErrOvershoot is returned when an open record is older than the gestation length.
	ErrOvershoot = errors.New("pregnancy exceeded gestation length")

	// ErrInconsistent is returned when open records and pregnancy flags disagree.
	ErrInconsistent = errors.New("pregnancy records inconsistent with population")
)

// Record is one open (or just delivered) pregnancy.
type Record struct {
	Mother        models.ID
	ConceptionDay int
	seq           int
}

// DueDay returns the day on which the record delivers.
func (r Record) DueDay() int {
	return r.ConceptionDay + constants.GestationDays
}

// Tracker holds at most one open record per individual.
type Tracker struct {
	open map[models.ID]Record
	// due buckets records by DueDay in conception order. Entries closed by
	// Update or Cancel stay until their day is swept and are skipped.
	due     map[int][]Record
	nextSeq int
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		open: make(map[models.ID]Record),
		due:  make(map[int][]Record),
	}
}

// live reports whether r is still the open record of its mother.
func (t *Tracker) live(r Record) bool {
	cur, ok := t.open[r.Mother]
	return ok && cur.seq == r.seq
}

// Conceive opens a record for mother on day.
func (t *Tracker) Conceive(mother models.ID, day int) error {
	if _, ok := t.open[mother]; ok {
		return fmt.Errorf("%w: %d on day %d", ErrAlreadyPregnant, mother, day)
	}
	r := Record{Mother: mother, ConceptionDay: day, seq: t.nextSeq}
	t.open[mother] = r
	t.due[r.DueDay()] = append(t.due[r.DueDay()], r)
	t.nextSeq++
	return nil
}

// Advance closes and returns, in conception order, every record whose
// gestation ends exactly on day. Any record older than the gestation length
// is an error and nothing is closed.
//
// The cost is the number of distinct pending due days plus today's
// deliveries, independent of how many records are open.
func (t *Tracker) Advance(day int) ([]Record, error) {
	var (
		overdue Record
		found   bool
	)
	for d, bucket := range t.due {
		if d >= day {
			continue
		}
		for _, r := range bucket {
			if t.live(r) && (!found || r.seq < overdue.seq) {
				overdue, found = r, true
			}
		}
	}
	if found {
		return nil, fmt.Errorf("%w: mother %d conceived on day %d, now day %d", ErrOvershoot, overdue.Mother, overdue.ConceptionDay, day)
	}

	var due []Record
	for _, r := range t.due[day] {
		if t.live(r) {
			due = append(due, r)
			delete(t.open, r.Mother)
		}
	}
	for d := range t.due {
		if d <= day {
			delete(t.due, d)
		}
	}
	return due, nil
}

// Update checks a single record on day. It returns false and closes the
// record when gestation ends exactly on day.
func (t *Tracker) Update(mother models.ID, day int) (stillPregnant bool, err error) {
	r, ok := t.open[mother]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrNotPregnant, mother)
	}
	elapsed := day - r.ConceptionDay
	switch {
	case elapsed > constants.GestationDays:
		return false, fmt.Errorf("%w: mother %d conceived on day %d, now day %d", ErrOvershoot, mother, r.ConceptionDay, day)
	case elapsed == constants.GestationDays:
		delete(t.open, mother)
		return false, nil
	}
	return true, nil
}

// Cancel closes mother's record without a delivery, e.g. when she dies.
// It reports whether a record was open.
func (t *Tracker) Cancel(mother models.ID) bool {
	if _, ok := t.open[mother]; !ok {
		return false
	}
	delete(t.open, mother)
	return true
}

// IsPregnant reports whether mother has an open record.
func (t *Tracker) IsPregnant(mother models.ID) bool {
	_, ok := t.open[mother]
	return ok
}

// Get returns mother's open record.
func (t *Tracker) Get(mother models.ID) (Record, bool) {
	r, ok := t.open[mother]
	return r, ok
}

// Open returns the number of open records.
func (t *Tracker) Open() int {
	return len(t.open)
}

// Records returns every open record in conception order.
func (t *Tracker) Records() []Record {
	return t.ordered()
}

// CheckConsistent compares open records with the IDs a population reports
// as pregnant. Both sets must be equal.
func (t *Tracker) CheckConsistent(pregnant []models.ID) error {
	flagged := make(map[models.ID]bool, len(pregnant))
	for _, id := range pregnant {
		flagged[id] = true
		if _, ok := t.open[id]; !ok {
			return fmt.Errorf("%w: %d flagged pregnant without an open record", ErrInconsistent, id)
		}
	}
	for id := range t.open {
		if !flagged[id] {
			return fmt.Errorf("%w: %d has an open record but is not flagged pregnant", ErrInconsistent, id)
		}
	}
	return nil
}

func (t *Tracker) ordered() []Record {
	out := make([]Record, 0, len(t.open))
	for _, r := range t.open {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
