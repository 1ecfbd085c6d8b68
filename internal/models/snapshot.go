package models

// Member is the part of an individual the rate model needs to compute a
// mortality hazard.
type Member struct {
	ID      ID
	AgeDays int
	Sex     Sex
}

// Snapshot holds the aggregate population state at the start of one day.
// It is rebuilt every day and not retained once the day's observers return.
type Snapshot struct {
	Day     int
	SimYear float64

	Total           int
	Pregnant        int
	PossibleMothers int

	// MotherAges holds the age in days of every possible mother, in registry order.
	MotherAges []int

	// Members lists every live individual, in registry order.
	Members []Member
}

// CountBySex returns the number of live individuals of each sex.
func (s Snapshot) CountBySex() [2]int {
	var out [2]int
	for _, m := range s.Members {
		out[m.Sex]++
	}
	return out
}
