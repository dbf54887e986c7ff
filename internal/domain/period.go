package domain

import (
	"fmt"
	"time"
)

// Period identifies one calendar month. It is the bucketing key for ledger
// entries: at most one entry exists per (product, period).
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing the given instant.
// Periods are evaluated in UTC.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Year: u.Year(), Month: u.Month()}
}

// Valid reports whether the period is a usable (year, month) pair.
func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= time.January && p.Month <= time.December
}

// Start returns the first instant of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month, rolling the year over after
// December. time.Date normalizes the out-of-range month.
func (p Period) Next() Period {
	return PeriodOf(time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC))
}

// Previous returns the preceding calendar month. On the first month of a year
// it rolls back to December of the prior year.
func (p Period) Previous() Period {
	return PeriodOf(time.Date(p.Year, p.Month-1, 1, 0, 0, 0, 0, time.UTC))
}

// Contains reports whether the given instant falls inside the period,
// accounting for month length and leap years.
func (p Period) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(p.Start()) && u.Before(p.Next().Start())
}

// String formats the period as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
