package models

import "fmt"

// EventLog is an append-only, day-ordered sequence of events.
// Appends must arrive in non-decreasing day order.
type EventLog struct {
	events []Event
	// dayStart[d] is the index of the first event of day d; days with no
	// events share the index of the next event.
	dayStart []int
}

// NewEventLog returns an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append adds events to the end of the log. It returns an error if an event
// is older than the last logged day.
func (l *EventLog) Append(events ...Event) error {
	for _, e := range events {
		if e.Day < 0 {
			return fmt.Errorf("event day %d is negative", e.Day)
		}
		if last := len(l.dayStart) - 1; e.Day < last {
			return fmt.Errorf("event day %d precedes last logged day %d", e.Day, last)
		}
		for len(l.dayStart) <= e.Day {
			l.dayStart = append(l.dayStart, len(l.events))
		}
		l.events = append(l.events, e)
	}
	return nil
}

// Len returns the number of events.
func (l *EventLog) Len() int {
	return len(l.events)
}

// Events returns a copy of every event in log order.
func (l *EventLog) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Day returns the events logged for day d. The returned slice aliases the
// log and must not be modified.
func (l *EventLog) Day(d int) []Event {
	if d < 0 || d >= len(l.dayStart) {
		return nil
	}
	end := len(l.events)
	if d+1 < len(l.dayStart) {
		end = l.dayStart[d+1]
	}
	return l.events[l.dayStart[d]:end]
}

// Count returns the number of events of type t.
func (l *EventLog) Count(t EventType) int {
	return l.CountWhere(t, nil)
}

// CountWhere returns the number of events of type t for which pred holds.
// A nil pred matches everything.
func (l *EventLog) CountWhere(t EventType, pred func(Event) bool) int {
	n := 0
	for _, e := range l.events {
		if e.Type == t && (pred == nil || pred(e)) {
			n++
		}
	}
	return n
}

// CountByDay returns a slice of length days with the number of events of
// type t on each day.
func (l *EventLog) CountByDay(t EventType, days int) []int {
	out := make([]int, days)
	for _, e := range l.events {
		if e.Type == t && e.Day < days {
			out[e.Day]++
		}
	}
	return out
}
