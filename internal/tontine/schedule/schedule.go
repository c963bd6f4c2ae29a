// Package schedule computes tontine cycle dates. Pure functions, no I/O.
package schedule

import "time"

// Frequency is the length of one tontine cycle
type Frequency string

const (
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// Valid reports whether f is a known frequency
func Valid(f Frequency) bool {
	return f == FrequencyWeekly || f == FrequencyMonthly
}

// AddCycles returns start advanced by n cycles: seven days per cycle for
// weekly tontines, one calendar month for monthly ones.
func AddCycles(start time.Time, f Frequency, n int) time.Time {
	if f == FrequencyWeekly {
		return start.AddDate(0, 0, 7*n)
	}
	return start.AddDate(0, n, 0)
}

// PayoutDate returns the date the member at the given 1-indexed position
// receives the pot: the member at position 1 is paid on the start date.
func PayoutDate(start time.Time, f Frequency, position int) time.Time {
	return AddCycles(start, f, position-1)
}
