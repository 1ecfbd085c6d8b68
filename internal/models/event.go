package models

import (
	"fmt"
	"strings"
)

// EventType identifies what happened to an individual.
type EventType string

const (
	EventBirth      EventType = "birth"
	EventDeath      EventType = "death"
	EventConception EventType = "conception"
)

// Valid returns true if the event type is a recognized value.
func (t EventType) Valid() bool {
	switch t {
	case EventBirth, EventDeath, EventConception:
		return true
	}
	return false
}

// ParseEventType maps a string to an EventType.
func ParseEventType(v string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(v)))
	if !t.Valid() {
		return "", fmt.Errorf("invalid event type: %q", v)
	}
	return t, nil
}

// Event is one entry of the event log.
//
// Field usage by type:
//   - Birth: IndividualID is the newborn, MotherID the mother (0 for
//     node-level births), Sex and Weight describe the newborn.
//   - Death: IndividualID, Sex, AgeDays at death and Weight of the deceased.
//   - Conception: IndividualID is the mother, AgeDays her age on that day.
type Event struct {
	Day          int       `json:"day"`
	Type         EventType `json:"type"`
	IndividualID ID        `json:"individual_id"`
	MotherID     ID        `json:"mother_id,omitempty"`
	Sex          Sex       `json:"sex"`
	AgeDays      int       `json:"age_days"`
	Weight       float64   `json:"weight"`
}

// String renders a compact one-line description for diagnostics.
func (e Event) String() string {
	switch e.Type {
	case EventBirth:
		return fmt.Sprintf("day %d: birth of %d (%s, mother %d)", e.Day, e.IndividualID, e.Sex, e.MotherID)
	case EventDeath:
		return fmt.Sprintf("day %d: death of %d (%s, age %d days)", e.Day, e.IndividualID, e.Sex, e.AgeDays)
	default:
		return fmt.Sprintf("day %d: conception by %d (age %d days)", e.Day, e.IndividualID, e.AgeDays)
	}
}
