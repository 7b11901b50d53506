package ariss

import (
	"fmt"
	"time"
)

// TimeLayout is the timestamp format used by the ariss.net results table
// (UTC, no separators).
const TimeLayout = "20060102150405"

// Heard is an immutable snapshot of the most recent APRS packet digipeated
// by the ISS: who was heard, when, and an optional findu.com detail link.
//
// Produced only by the Client; equality is structural over all three fields.
type Heard struct {
	Callsign  string
	Timestamp string // TimeLayout, UTC
	Link      string // may be empty
}

// Equal reports structural equality.
func (h Heard) Equal(o Heard) bool { return h == o }

// Time parses the record's timestamp as UTC.
func (h Heard) Time() (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, h.Timestamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("ariss: bad timestamp %q: %w", h.Timestamp, err)
	}
	return t, nil
}

// ElapsedSince returns how long before now the record was heard.
func (h Heard) ElapsedSince(now time.Time) (time.Duration, error) {
	t, err := h.Time()
	if err != nil {
		return 0, err
	}
	return now.UTC().Sub(t), nil
}
