package pregnancy

import (
	"errors"
	"testing"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/models"
)

func TestConceive_Twice(t *testing.T) {
	tr := NewTracker()
	if err := tr.Conceive(1, 0); err != nil {
		t.Fatalf("Conceive: %v", err)
	}
	if err := tr.Conceive(1, 5); !errors.Is(err, ErrAlreadyPregnant) {
		t.Errorf("second Conceive error = %v, want ErrAlreadyPregnant", err)
	}
	if !tr.IsPregnant(1) || tr.Open() != 1 {
		t.Errorf("IsPregnant=%v Open=%d", tr.IsPregnant(1), tr.Open())
	}
}

func TestAdvance_ExactGestation(t *testing.T) {
	tr := NewTracker()
	_ = tr.Conceive(7, 10)
	_ = tr.Conceive(3, 10)
	_ = tr.Conceive(5, 11)

	for day := 10; day < 10+constants.GestationDays; day++ {
		due, err := tr.Advance(day)
		if err != nil {
			t.Fatalf("Advance(%d): %v", day, err)
		}
		if len(due) != 0 {
			t.Fatalf("Advance(%d) delivered %v early", day, due)
		}
	}

	due, err := tr.Advance(10 + constants.GestationDays)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(due) != 2 || due[0].Mother != 7 || due[1].Mother != 3 {
		t.Fatalf("Advance delivered %+v, want mothers 7 then 3", due)
	}
	if due[0].DueDay() != 290 {
		t.Errorf("DueDay() = %d, want 290", due[0].DueDay())
	}
	if tr.IsPregnant(7) || !tr.IsPregnant(5) {
		t.Error("wrong records closed")
	}
}

func TestAdvance_OvershootIsAnError(t *testing.T) {
	tr := NewTracker()
	_ = tr.Conceive(1, 0)
	_, err := tr.Advance(constants.GestationDays + 1)
	if !errors.Is(err, ErrOvershoot) {
		t.Fatalf("Advance past due error = %v, want ErrOvershoot", err)
	}
	if !tr.IsPregnant(1) {
		t.Error("overshoot closed the record")
	}
}

func TestUpdate(t *testing.T) {
	tr := NewTracker()
	_ = tr.Conceive(1, 100)

	still, err := tr.Update(1, 100+constants.GestationDays-1)
	if err != nil || !still {
		t.Fatalf("Update before due = (%v, %v), want (true, nil)", still, err)
	}
	still, err = tr.Update(1, 100+constants.GestationDays)
	if err != nil || still {
		t.Fatalf("Update on due = (%v, %v), want (false, nil)", still, err)
	}
	if _, err := tr.Update(1, 400); !errors.Is(err, ErrNotPregnant) {
		t.Errorf("Update after delivery error = %v, want ErrNotPregnant", err)
	}

	_ = tr.Conceive(2, 0)
	if _, err := tr.Update(2, 500); !errors.Is(err, ErrOvershoot) {
		t.Errorf("late Update error = %v, want ErrOvershoot", err)
	}
}

func TestCancel(t *testing.T) {
	tr := NewTracker()
	_ = tr.Conceive(1, 0)
	if !tr.Cancel(1) {
		t.Error("Cancel(1) = false")
	}
	if tr.Cancel(1) {
		t.Error("second Cancel(1) = true")
	}
	if err := tr.Conceive(1, 3); err != nil {
		t.Errorf("Conceive after Cancel: %v", err)
	}
}

func TestCheckConsistent(t *testing.T) {
	tr := NewTracker()
	_ = tr.Conceive(1, 0)
	_ = tr.Conceive(2, 0)

	tests := []struct {
		name    string
		flagged []models.ID
		wantErr bool
	}{
		{"equal sets", []models.ID{2, 1}, false},
		{"flag without record", []models.ID{1, 2, 3}, true},
		{"record without flag", []models.ID{1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.CheckConsistent(tt.flagged)
			if tt.wantErr != (err != nil) {
				t.Fatalf("CheckConsistent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInconsistent) {
				t.Errorf("error %v does not wrap ErrInconsistent", err)
			}
		})
	}
}

func TestRecords_ConceptionOrder(t *testing.T) {
	tr := NewTracker()
	for _, id := range []models.ID{9, 4, 6} {
		_ = tr.Conceive(id, 0)
	}
	recs := tr.Records()
	for i, want := range []models.ID{9, 4, 6} {
		if recs[i].Mother != want {
			t.Errorf("Records()[%d].Mother = %d, want %d", i, recs[i].Mother, want)
		}
	}
}

func TestAdvance_SkipsClosedRecords(t *testing.T) {
	tr := NewTracker()
	_ = tr.Conceive(1, 0)
	_ = tr.Conceive(2, 0)
	_ = tr.Conceive(3, 0)

	// 2 dies and 3 delivers through Update; 1 cancels and conceives again
	// the same day, so its old and new entries share a due day.
	tr.Cancel(2)
	if still, err := tr.Update(3, constants.GestationDays); err != nil || still {
		t.Fatalf("Update(3) = %v, %v", still, err)
	}
	tr.Cancel(1)
	if err := tr.Conceive(1, 0); err != nil {
		t.Fatalf("reconceive: %v", err)
	}

	due, err := tr.Advance(constants.GestationDays)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(due) != 1 || due[0].Mother != 1 {
		t.Fatalf("Advance delivered %+v, want mother 1 once", due)
	}
	if tr.Open() != 0 {
		t.Errorf("Open() = %d, want 0", tr.Open())
	}
	if len(tr.due) != 0 {
		t.Errorf("%d due buckets left after delivery, want 0", len(tr.due))
	}
}

func TestAdvance_TouchesOnlyPendingDueDays(t *testing.T) {
	tr := NewTracker()
	id := models.ID(1)
	for day := 0; day < 3*constants.GestationDays; day++ {
		if _, err := tr.Advance(day); err != nil {
			t.Fatalf("Advance(%d): %v", day, err)
		}
		for i := 0; i < 5; i++ {
			if err := tr.Conceive(id, day); err != nil {
				t.Fatalf("Conceive: %v", err)
			}
			id++
		}
		if len(tr.due) > constants.GestationDays+1 {
			t.Fatalf("day %d: %d due buckets, want at most %d", day, len(tr.due), constants.GestationDays+1)
		}
	}
	if got, want := tr.Open(), 5*constants.GestationDays; got != want {
		t.Errorf("Open() = %d, want %d", got, want)
	}
}
