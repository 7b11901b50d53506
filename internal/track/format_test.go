package track

import "testing"

func TestFormatElapsedBoundaries(t *testing.T) {
	t.Parallel()
	tests := []struct {
		delta float64
		want  string
	}{
		{1, "1 second"},
		{0, "0 seconds"},
		{2, "2 seconds"},
		{59, "59 seconds"},
		{60, "1 minute"},
		{90, "2 minutes"},
		{3599, "60 minutes"}, // rounding edge: does not roll over to hours
		{3600, "1 hour"},
		{7200, "2 hours"},
		{86399, "24 hours"}, // rounding edge: does not roll over to days
		{86400, "1 day"},
		{172800, "2 days"},
		{691200, "8 days"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.delta); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.delta, got, tt.want)
		}
	}
}

func TestFormatElapsedSubSecondRounding(t *testing.T) {
	t.Parallel()
	// 0.6 rounds up into the plural form; only an exact 1 gets the
	// singular. Long-standing behavior, not worth special-casing.
	if got := FormatElapsed(0.6); got != "1 seconds" {
		t.Fatalf("FormatElapsed(0.6) = %q, want %q", got, "1 seconds")
	}
	if got := FormatElapsed(59.7); got != "60 seconds" {
		t.Fatalf("FormatElapsed(59.7) = %q, want %q", got, "60 seconds")
	}
}
