package recurrence

import "time"

// maxAdvanceRetries bounds the "candidate did not advance" correction.
// Exceeding it means the pattern is degenerate; we fail closed instead of
// looping.
const maxAdvanceRetries = 2

// monthScanBound caps the roll-forward search for a month that contains the
// requested day-of-month. Day 29 is the worst legitimate case (next leap
// February can be 8 years out); 48 months of slack covers every real day
// value with room to spare.
const monthScanBound = 48

// yearScanBound caps the roll-forward search across years for yearly
// patterns whose day does not exist in the candidate month (Feb 29).
const yearScanBound = 9

// Next computes the next occurrence of p strictly after anchor.
//
// The anchor's time-of-day is ignored; all math happens on UTC calendar
// dates. It returns ErrNoFutureOccurrence when the computed date would
// exceed p.EndDate, and ErrScheduleStalled when no advancing date can be
// produced within the retry bound.
func Next(anchor time.Time, p Pattern) (time.Time, error) {
	if err := p.Validate(); err != nil {
		return time.Time{}, err
	}

	anchor = DateOnly(anchor)
	cur := anchor
	for attempt := 0; attempt <= maxAdvanceRetries; attempt++ {
		cand, err := advance(cur, p)
		if err != nil {
			return time.Time{}, err
		}
		if cand.After(anchor) {
			if p.EndDate != nil && cand.After(DateOnly(*p.EndDate)) {
				return time.Time{}, ErrNoFutureOccurrence
			}
			return cand, nil
		}
		// Degenerate input: retry from the candidate rather than returning a
		// non-advancing date.
		cur = cand
	}
	return time.Time{}, ErrScheduleStalled
}

func advance(anchor time.Time, p Pattern) (time.Time, error) {
	switch p.Frequency {
	case Daily:
		return anchor.AddDate(0, 0, p.step()), nil
	case Weekly:
		return nextWeekly(anchor, p), nil
	case Monthly:
		return nextMonthly(anchor, p)
	case Yearly:
		return nextYearly(anchor, p)
	default:
		return time.Time{}, &ValidationError{Field: "frequency", Reason: "invalid frequency"}
	}
}

func nextWeekly(anchor time.Time, p Pattern) time.Time {
	days := sortedUnique(p.DaysOfWeek)
	dow := int(anchor.Weekday())

	// Later weekday within the anchor's week.
	for _, d := range days {
		if d > dow {
			return anchor.AddDate(0, 0, d-dow)
		}
	}

	// Wrap to the first weekday of a week interval weeks ahead: natural wrap
	// to next week plus (interval-1) extra weeks.
	delta := 7 - dow + days[0] + 7*(p.step()-1)
	return anchor.AddDate(0, 0, delta)
}

func nextMonthly(anchor time.Time, p Pattern) (time.Time, error) {
	days := sortedUnique(p.DaysOfMonth)

	// Later day within the anchor's month, if it exists in this month.
	dim := daysIn(anchor.Year(), anchor.Month())
	for _, d := range days {
		if d > anchor.Day() && d <= dim {
			return time.Date(anchor.Year(), anchor.Month(), d, 0, 0, 0, 0, time.UTC), nil
		}
	}

	// Advance by interval months and take the smallest day. Months that do
	// not contain that day (day 31 in a 30-day month) roll forward one month
	// at a time; never clamp to month-end.
	day := days[0]
	base := anchor.Year()*12 + int(anchor.Month()) - 1 + p.step()
	for i := 0; i <= monthScanBound; i++ {
		y := (base + i) / 12
		m := time.Month((base+i)%12 + 1)
		if day <= daysIn(y, m) {
			return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrScheduleStalled
}

func nextYearly(anchor time.Time, p Pattern) (time.Time, error) {
	months := sortedUnique(p.MonthsOfYear) // 0=January

	// The days within the month: constrained by DaysOfMonth when present,
	// otherwise the anchor's day carries over.
	days := []int{anchor.Day()}
	if len(p.DaysOfMonth) > 0 {
		days = sortedUnique(p.DaysOfMonth)
	}
	day := days[0]

	// Later month within the anchor's year. The anchor's own month still
	// counts when a constrained day later than the anchor's remains in it.
	am := int(anchor.Month()) - 1
	for _, m := range months {
		dim := daysIn(anchor.Year(), time.Month(m+1))
		if m == am {
			for _, d := range days {
				if d > anchor.Day() && d <= dim {
					return time.Date(anchor.Year(), time.Month(m+1), d, 0, 0, 0, 0, time.UTC), nil
				}
			}
			continue
		}
		if m > am && day <= dim {
			return time.Date(anchor.Year(), time.Month(m+1), day, 0, 0, 0, 0, time.UTC), nil
		}
	}

	// Wrap by interval years, then scan candidate months year by year until
	// one contains the day (Feb 29 waits for a leap year).
	year := anchor.Year() + p.step()
	for i := 0; i <= yearScanBound; i++ {
		for _, m := range months {
			if day <= daysIn(year+i, time.Month(m+1)) {
				return time.Date(year+i, time.Month(m+1), day, 0, 0, 0, 0, time.UTC), nil
			}
		}
	}
	return time.Time{}, ErrScheduleStalled
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
