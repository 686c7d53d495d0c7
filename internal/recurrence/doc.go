// Package recurrence implements the pure scheduling math of taskmill.
//
// # Overview
//
// A Pattern describes how often a recurring task repeats (daily, weekly,
// monthly, yearly), at which interval ("every N units"), and under which
// day/month constraints. Patterns are value types: once validated they are
// never mutated.
//
// Next computes the next occurrence strictly after an anchor date. It is a
// pure function with no I/O and no clock access; callers supply the anchor
// (typically the last scheduled date or the pattern's start date) already
// normalized to UTC.
//
// # Edge-case policy
//
//   - Weekly wrap skips exactly (interval-1) additional weeks beyond the
//     natural wrap to the next week.
//   - Monthly days that do not exist in the target month (day 31 in a
//     30-day month) roll forward to the next month that contains them;
//     they are never clamped to month-end.
//   - A candidate that fails to advance past the anchor is retried from the
//     candidate at most twice, then the calculator fails closed with
//     ErrScheduleStalled.
package recurrence
