package recurrence

import (
	"sort"
	"time"
)

// Frequency is the repetition unit of a pattern.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Pattern is an immutable recurrence rule.
//
// Interval means "every N units"; zero is treated as 1. Day and month
// constraint sets are required per frequency:
//
//   - Weekly:  DaysOfWeek, 0=Sunday .. 6=Saturday
//   - Monthly: DaysOfMonth, 1..31
//   - Yearly:  MonthsOfYear, 0=January .. 11=December
//
// StartDate is an inclusive lower bound; EndDate, when set, an inclusive
// upper bound.
type Pattern struct {
	Frequency    Frequency  `json:"frequency"`
	Interval     int        `json:"interval,omitempty"`
	DaysOfWeek   []int      `json:"days_of_week,omitempty"`
	DaysOfMonth  []int      `json:"days_of_month,omitempty"`
	MonthsOfYear []int      `json:"months_of_year,omitempty"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

// Validate rejects patterns that are structurally inconsistent for their
// frequency. It has no side effects.
func (p Pattern) Validate() error {
	if p.Interval < 0 {
		return &ValidationError{Field: "interval", Reason: "must be positive"}
	}

	switch p.Frequency {
	case Daily:
		// No constraint sets required.
	case Weekly:
		if len(p.DaysOfWeek) == 0 {
			return &ValidationError{Field: "days_of_week", Reason: "required for weekly patterns"}
		}
		for _, d := range p.DaysOfWeek {
			if d < 0 || d > 6 {
				return &ValidationError{Field: "days_of_week", Reason: "days must be in 0..6"}
			}
		}
	case Monthly:
		if len(p.DaysOfMonth) == 0 {
			return &ValidationError{Field: "days_of_month", Reason: "required for monthly patterns"}
		}
		for _, d := range p.DaysOfMonth {
			if d < 1 || d > 31 {
				return &ValidationError{Field: "days_of_month", Reason: "days must be in 1..31"}
			}
		}
	case Yearly:
		if len(p.MonthsOfYear) == 0 {
			return &ValidationError{Field: "months_of_year", Reason: "required for yearly patterns"}
		}
		for _, m := range p.MonthsOfYear {
			if m < 0 || m > 11 {
				return &ValidationError{Field: "months_of_year", Reason: "months must be in 0..11"}
			}
		}
	default:
		return &ValidationError{Field: "frequency", Reason: "invalid frequency"}
	}

	if p.EndDate != nil && !p.StartDate.IsZero() && !p.StartDate.Before(*p.EndDate) {
		return &ValidationError{Field: "end_date", Reason: "must be after start_date"}
	}
	return nil
}

// step returns the effective interval (zero defaults to 1).
func (p Pattern) step() int {
	if p.Interval <= 0 {
		return 1
	}
	return p.Interval
}

// Equal reports whether two patterns describe the same rule.
func (p Pattern) Equal(o Pattern) bool {
	if p.Frequency != o.Frequency || p.step() != o.step() {
		return false
	}
	if !intsEqual(p.DaysOfWeek, o.DaysOfWeek) ||
		!intsEqual(p.DaysOfMonth, o.DaysOfMonth) ||
		!intsEqual(p.MonthsOfYear, o.MonthsOfYear) {
		return false
	}
	if !DateOnly(p.StartDate).Equal(DateOnly(o.StartDate)) {
		return false
	}
	if (p.EndDate == nil) != (o.EndDate == nil) {
		return false
	}
	if p.EndDate != nil && !DateOnly(*p.EndDate).Equal(DateOnly(*o.EndDate)) {
		return false
	}
	return true
}

// DateOnly truncates t to a UTC calendar date.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sortedUnique(in []int) []int {
	out := make([]int, 0, len(in))
	seen := map[int]bool{}
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func intsEqual(a, b []int) bool {
	as, bs := sortedUnique(a), sortedUnique(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
