package validation

import (
	"fmt"
	"sort"

	"github.com/nvandessel/vitaldyn/internal/constants"
	"github.com/nvandessel/vitaldyn/internal/models"
	"github.com/nvandessel/vitaldyn/internal/ratemodel"
)

type violations struct {
	check string
	count int
	first string
}

func (v *violations) add(format string, args ...any) {
	if v.count == 0 {
		v.first = fmt.Sprintf(format, args...)
	}
	v.count++
}

func (v *violations) finding() Finding {
	return Finding{
		Check:    v.check,
		Day:      WholeRun,
		Kind:     KindInvariant,
		Observed: float64(v.count),
		Passed:   v.count == 0,
		Detail:   v.first,
	}
}

// CheckInvariants replays log and reports the structural checks: every
// pregnancy birth follows exactly one conception by the same mother
// GestationDays earlier, nobody dies twice or appears after death, and
// disabled processes log nothing. days is the number of simulated days,
// used to find pregnancies that should have delivered.
func CheckInvariants(model *ratemodel.Model, log *models.EventLog, days int) []Finding {
	gestation := &violations{check: CheckGestation}
	unique := &violations{check: CheckUniqueDeath}
	afterDeath := &violations{check: CheckEventAfterDeath}
	disabled := &violations{check: CheckDisabledProcess}

	open := make(map[models.ID]int)
	dead := make(map[models.ID]int)
	pregnancies := model.UsesPregnancies()

	for _, e := range log.Events() {
		if d, ok := dead[e.IndividualID]; ok {
			if e.Type == models.EventDeath {
				unique.add("%d died on day %d and again on day %d", e.IndividualID, d, e.Day)
			} else {
				afterDeath.add("%s of %d on day %d after death on day %d", e.Type, e.IndividualID, e.Day, d)
			}
			continue
		}

		switch e.Type {
		case models.EventConception:
			if !model.BirthsEnabled() || !pregnancies {
				disabled.add("conception of %d on day %d without a pregnancy birth mode", e.IndividualID, e.Day)
			}
			if c, ok := open[e.IndividualID]; ok {
				gestation.add("%d conceived on day %d while pregnant since day %d", e.IndividualID, e.Day, c)
			}
			open[e.IndividualID] = e.Day

		case models.EventBirth:
			if !model.BirthsEnabled() {
				disabled.add("birth of %d on day %d with births disabled", e.IndividualID, e.Day)
			}
			if !pregnancies {
				if e.MotherID != 0 {
					gestation.add("node-level birth of %d on day %d names mother %d", e.IndividualID, e.Day, e.MotherID)
				}
				continue
			}
			if d, ok := dead[e.MotherID]; ok {
				afterDeath.add("mother %d gave birth on day %d after death on day %d", e.MotherID, e.Day, d)
				continue
			}
			c, ok := open[e.MotherID]
			switch {
			case !ok:
				gestation.add("birth of %d on day %d without a conception by mother %d", e.IndividualID, e.Day, e.MotherID)
			case e.Day-c != constants.GestationDays:
				gestation.add("mother %d conceived on day %d and delivered on day %d", e.MotherID, c, e.Day)
			}
			delete(open, e.MotherID)

		case models.EventDeath:
			if !model.MortalityEnabled() {
				disabled.add("death of %d on day %d with mortality disabled", e.IndividualID, e.Day)
			}
			dead[e.IndividualID] = e.Day
			delete(open, e.IndividualID)
		}
	}

	overdue := make([]models.ID, 0, len(open))
	for mother, c := range open {
		if c+constants.GestationDays < days {
			overdue = append(overdue, mother)
		}
	}
	sort.Slice(overdue, func(i, j int) bool { return overdue[i] < overdue[j] })
	for _, mother := range overdue {
		gestation.add("mother %d conceived on day %d never delivered", mother, open[mother])
	}

	return []Finding{gestation.finding(), unique.finding(), afterDeath.finding(), disabled.finding()}
}
