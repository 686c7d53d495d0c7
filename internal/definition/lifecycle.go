package definition

import (
	"errors"
	"time"

	"taskmill/internal/recurrence"
	"taskmill/pkg/logx"
)

// Manager owns a definition's scheduling state transitions.
//
// States are {Inactive, Active}. A definition becomes Active via
// create-with-valid-schedule or explicit Activate, and Inactive via explicit
// Deactivate or automatic exhaustion (the calculator reports no future
// occurrence). No transition leaves Active with a nil NextRun.
type Manager struct {
	log logx.Logger
	now func() time.Time
}

func NewManager(log logx.Logger) *Manager {
	return &Manager{log: log, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the manager's clock. Test hook.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// OnCreate validates the pattern and computes the initial NextRun from
// max(now, StartDate). A pattern already exhausted at creation time yields
// an inactive definition rather than an error.
func (m *Manager) OnCreate(d *Definition) error {
	if err := d.Pattern.Validate(); err != nil {
		return err
	}

	now := m.now()
	anchor := recurrence.DateOnly(now)
	if start := recurrence.DateOnly(d.Pattern.StartDate); start.After(anchor) {
		anchor = start
	}

	next, err := recurrence.Next(anchor, d.Pattern)
	switch {
	case errors.Is(err, recurrence.ErrNoFutureOccurrence):
		d.Active = false
		d.NextRun = nil
	case err != nil:
		return err
	default:
		d.Active = true
		d.NextRun = &next
	}

	d.CreatedAt = now
	d.UpdatedAt = now
	m.log.Debug("definition created",
		logx.String("definition", d.ID),
		logx.Bool("active", d.Active),
		logx.Any("next_run", d.NextRun))
	return nil
}

// PatternUpdate is a partial pattern edit. Nil fields are left unchanged;
// ClearEndDate removes the end date.
type PatternUpdate struct {
	Frequency    *recurrence.Frequency
	Interval     *int
	DaysOfWeek   *[]int
	DaysOfMonth  *[]int
	MonthsOfYear *[]int
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
}

func (u PatternUpdate) apply(p recurrence.Pattern) recurrence.Pattern {
	if u.Frequency != nil {
		p.Frequency = *u.Frequency
	}
	if u.Interval != nil {
		p.Interval = *u.Interval
	}
	if u.DaysOfWeek != nil {
		p.DaysOfWeek = append([]int(nil), (*u.DaysOfWeek)...)
	}
	if u.DaysOfMonth != nil {
		p.DaysOfMonth = append([]int(nil), (*u.DaysOfMonth)...)
	}
	if u.MonthsOfYear != nil {
		p.MonthsOfYear = append([]int(nil), (*u.MonthsOfYear)...)
	}
	if u.StartDate != nil {
		p.StartDate = *u.StartDate
	}
	if u.ClearEndDate {
		p.EndDate = nil
	} else if u.EndDate != nil {
		end := *u.EndDate
		p.EndDate = &end
	}
	return p
}

// OnPatternUpdate merges the update into the definition's pattern,
// re-validates, and, when any schedule-affecting field changed, recomputes
// NextRun from the current anchor (the existing NextRun if still in the
// future, else now). Exhaustion forcibly deactivates.
func (m *Manager) OnPatternUpdate(d *Definition, u PatternUpdate) error {
	merged := u.apply(d.Pattern)
	if err := merged.Validate(); err != nil {
		return err
	}

	now := m.now()
	changed := !merged.Equal(d.Pattern)
	d.Pattern = merged
	d.UpdatedAt = now

	if !changed {
		return nil
	}

	anchor := recurrence.DateOnly(now)
	if d.NextRun != nil && d.NextRun.After(now) {
		anchor = recurrence.DateOnly(*d.NextRun)
	}

	next, err := recurrence.Next(anchor, merged)
	switch {
	case errors.Is(err, recurrence.ErrNoFutureOccurrence):
		d.Active = false
		d.NextRun = nil
		m.log.Info("definition exhausted by pattern update", logx.String("definition", d.ID))
	case err != nil:
		return err
	default:
		d.NextRun = &next
	}
	return nil
}

// Activate turns an inactive definition back on. A stale or missing NextRun
// is recomputed from max(now, StartDate). It fails with
// recurrence.ErrNoFutureOccurrence when no valid date exists: activation is
// rejected, never accepted with a null schedule.
func (m *Manager) Activate(d *Definition) error {
	if d.Active {
		return nil
	}

	now := m.now()
	if d.NextRun == nil || d.NextRun.Before(recurrence.DateOnly(now)) {
		anchor := recurrence.DateOnly(now)
		if start := recurrence.DateOnly(d.Pattern.StartDate); start.After(anchor) {
			anchor = start
		}
		next, err := recurrence.Next(anchor, d.Pattern)
		if err != nil {
			return err
		}
		d.NextRun = &next
	}

	d.Active = true
	d.UpdatedAt = now
	m.log.Debug("definition activated",
		logx.String("definition", d.ID),
		logx.Time("next_run", *d.NextRun))
	return nil
}

// Deactivate turns the definition off but leaves NextRun untouched so it can
// be resumed later (Activate recomputes when stale).
func (m *Manager) Deactivate(d *Definition) {
	if !d.Active {
		return
	}
	d.Active = false
	d.UpdatedAt = m.now()
	m.log.Debug("definition deactivated", logx.String("definition", d.ID))
}
