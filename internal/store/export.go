package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nvandessel/vitaldyn/internal/models"
)

// WriteJSONL writes one JSON object per event.
func WriteJSONL(w io.Writer, events []models.Event) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode event %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush events: %w", err)
	}
	return nil
}

// ReadJSONL reads events written by WriteJSONL. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]models.Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var events []models.Event
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var e models.Event
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("line %d: failed to decode event: %w", line, err)
		}
		if !e.Type.Valid() {
			return nil, fmt.Errorf("line %d: invalid event type %q", line, e.Type)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}
