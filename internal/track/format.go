package track

import (
	"fmt"
	"math"
)

const (
	second = 1.0
	minute = 60 * second
	hour   = 60 * minute
	day    = 24 * hour
)

// FormatElapsed renders a duration in seconds as a coarse human phrase,
// e.g. "1 second", "10 minutes", "8 days".
//
// The cascade is ordered exactly as the bot has always printed it: each
// bucket rounds against the un-rounded comparison, so values just under a
// boundary can print "60 seconds" or "24 hours" instead of rolling over.
// That is long-standing observable behavior; keep it.
func FormatElapsed(delta float64) string {
	if delta == second {
		return "1 second"
	}
	if delta < minute {
		return fmt.Sprintf("%d seconds", int(math.Round(delta)))
	}

	if delta < hour {
		n := int(math.Round(delta / minute))
		if n == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", n)
	}

	if delta < day {
		n := int(math.Round(delta / hour))
		if n == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", n)
	}

	n := int(math.Round(delta / day))
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
