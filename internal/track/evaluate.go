package track

import (
	"time"

	"arissbot/internal/ariss"
)

// NewActivity decides whether a notification-worthy transition occurred.
//
// It fires iff the record changed structurally AND the previous record is
// older than the threshold at the given instant. A changed record alone is
// not enough: requiring a qualifying gap of silence collapses a burst of
// traffic into a single notification per dry spell.
func NewActivity(prev, cur ariss.Heard, threshold time.Duration, now time.Time) (bool, error) {
	elapsed, err := prev.ElapsedSince(now)
	if err != nil {
		return false, err
	}
	return !prev.Equal(cur) && elapsed > threshold, nil
}
