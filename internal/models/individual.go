package models

// ID identifies an individual for the lifetime of a run. IDs start at 1 and
// are never reused; 0 means "no individual".
type ID int64

// Individual is one simulated agent.
type Individual struct {
	ID      ID
	AgeDays int
	Sex     Sex

	// Weight is the Monte-Carlo weight: how many real people this agent represents.
	Weight float64

	// Pregnant mirrors whether the pregnancy tracker holds an open record
	// for this individual.
	Pregnant bool
}

// AgeYears returns the age in fractional years.
func (i Individual) AgeYears(daysPerYear float64) float64 {
	return float64(i.AgeDays) / daysPerYear
}
