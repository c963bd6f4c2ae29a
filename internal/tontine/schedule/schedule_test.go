package schedule

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddCycles(t *testing.T) {
	start := date(2025, time.January, 1)

	tests := []struct {
		name string
		freq Frequency
		n    int
		want time.Time
	}{
		{"monthly zero cycles", FrequencyMonthly, 0, date(2025, time.January, 1)},
		{"monthly one cycle", FrequencyMonthly, 1, date(2025, time.February, 1)},
		{"monthly across year boundary", FrequencyMonthly, 12, date(2026, time.January, 1)},
		{"weekly zero cycles", FrequencyWeekly, 0, date(2025, time.January, 1)},
		{"weekly one cycle", FrequencyWeekly, 1, date(2025, time.January, 8)},
		{"weekly across month boundary", FrequencyWeekly, 5, date(2025, time.February, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddCycles(start, tt.freq, tt.n)
			if !got.Equal(tt.want) {
				t.Errorf("AddCycles(%v, %s, %d) = %v, want %v", start, tt.freq, tt.n, got, tt.want)
			}
		})
	}
}

func TestPayoutDate(t *testing.T) {
	start := date(2025, time.January, 1)

	// Position 1 is paid on the start date, then one cycle per position.
	if got := PayoutDate(start, FrequencyMonthly, 1); !got.Equal(start) {
		t.Errorf("position 1 payout = %v, want %v", got, start)
	}
	if got, want := PayoutDate(start, FrequencyMonthly, 3), date(2025, time.March, 1); !got.Equal(want) {
		t.Errorf("position 3 payout = %v, want %v", got, want)
	}
	if got, want := PayoutDate(start, FrequencyWeekly, 2), date(2025, time.January, 8); !got.Equal(want) {
		t.Errorf("weekly position 2 payout = %v, want %v", got, want)
	}
}

func TestValid(t *testing.T) {
	if !Valid(FrequencyWeekly) || !Valid(FrequencyMonthly) {
		t.Error("expected known frequencies to be valid")
	}
	if Valid("DAILY") {
		t.Error("expected unknown frequency to be invalid")
	}
}
