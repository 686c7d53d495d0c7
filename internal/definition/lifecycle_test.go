package definition

import (
	"errors"
	"testing"
	"time"

	"taskmill/internal/recurrence"
	"taskmill/pkg/logx"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

// 2026-01-07 is a Wednesday.
var testNow = time.Date(2026, time.January, 7, 10, 0, 0, 0, time.UTC)

func testManager() *Manager {
	return NewManager(logx.Nop()).WithClock(func() time.Time { return testNow })
}

func dailyDef(id string) *Definition {
	return &Definition{
		ID:      id,
		OwnerID: "owner-1",
		Pattern: recurrence.Pattern{
			Frequency: recurrence.Daily,
			StartDate: date(2026, time.January, 1),
		},
		Template: Template{Title: "water the plants"},
	}
}

func TestOnCreateActivates(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")

	if err := m.OnCreate(d); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	if !d.Active {
		t.Fatal("expected definition to be active")
	}
	if d.NextRun == nil || !d.NextRun.Equal(date(2026, time.January, 8)) {
		t.Fatalf("NextRun = %v, want 2026-01-08", d.NextRun)
	}
}

func TestOnCreateFutureStartAnchorsAtStart(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	d.Pattern.StartDate = date(2026, time.February, 1)

	if err := m.OnCreate(d); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	if d.NextRun == nil || !d.NextRun.Equal(date(2026, time.February, 2)) {
		t.Fatalf("NextRun = %v, want 2026-02-02", d.NextRun)
	}
	if d.NextRun.Before(d.Pattern.StartDate) {
		t.Fatal("NextRun must not precede the start date")
	}
}

func TestOnCreateExhaustedIsInactiveNotError(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	d.Pattern.EndDate = ptr(date(2026, time.January, 6))

	if err := m.OnCreate(d); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	if d.Active {
		t.Fatal("expected exhausted definition to be created inactive")
	}
	if d.NextRun != nil {
		t.Fatalf("NextRun = %v, want nil", d.NextRun)
	}
}

func TestOnCreateInvalidPattern(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	d.Pattern.Frequency = recurrence.Weekly // no days set

	err := m.OnCreate(d)
	var verr *recurrence.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestActivateRejectsExhaustedPattern(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	// Validity window entirely in the past.
	d.Pattern.StartDate = testNow.AddDate(0, 0, -10)
	d.Pattern.EndDate = ptr(testNow.AddDate(0, 0, -1))
	d.Active = false

	err := m.Activate(d)
	if !errors.Is(err, recurrence.ErrNoFutureOccurrence) {
		t.Fatalf("expected ErrNoFutureOccurrence, got %v", err)
	}
	if d.Active {
		t.Fatal("failed activation must not leave the definition active")
	}
}

func TestActivateKeepsFutureNextRun(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	d.Active = false
	d.NextRun = ptr(date(2026, time.January, 20))

	if err := m.Activate(d); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !d.Active {
		t.Fatal("expected active")
	}
	if !d.NextRun.Equal(date(2026, time.January, 20)) {
		t.Fatalf("NextRun = %v, want untouched 2026-01-20", d.NextRun)
	}
}

func TestActivateRecomputesStaleNextRun(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	d.Active = false
	d.NextRun = ptr(date(2026, time.January, 2))

	if err := m.Activate(d); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !d.NextRun.Equal(date(2026, time.January, 8)) {
		t.Fatalf("NextRun = %v, want recomputed 2026-01-08", d.NextRun)
	}
}

func TestActivateOnActiveIsNoop(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	if err := m.OnCreate(d); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	before := *d.NextRun
	if err := m.Activate(d); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !d.NextRun.Equal(before) {
		t.Fatalf("NextRun changed on no-op activate: %v", d.NextRun)
	}
}

func TestDeactivateKeepsNextRun(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	if err := m.OnCreate(d); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	before := *d.NextRun

	m.Deactivate(d)
	if d.Active {
		t.Fatal("expected inactive")
	}
	if d.NextRun == nil || !d.NextRun.Equal(before) {
		t.Fatalf("NextRun = %v, want untouched %v", d.NextRun, before)
	}
}

func TestOnPatternUpdateRecomputesFromFutureNextRun(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	if err := m.OnCreate(d); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	d.NextRun = ptr(date(2026, time.January, 20))

	interval := 2
	if err := m.OnPatternUpdate(d, PatternUpdate{Interval: &interval}); err != nil {
		t.Fatalf("OnPatternUpdate: %v", err)
	}
	if !d.NextRun.Equal(date(2026, time.January, 22)) {
		t.Fatalf("NextRun = %v, want 2026-01-22 (anchored at old next run)", d.NextRun)
	}
}

func TestOnPatternUpdateExhaustionDeactivates(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	if err := m.OnCreate(d); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}

	end := date(2026, time.January, 7)
	if err := m.OnPatternUpdate(d, PatternUpdate{EndDate: &end}); err != nil {
		t.Fatalf("OnPatternUpdate: %v", err)
	}
	if d.Active {
		t.Fatal("expected forced deactivation on exhaustion")
	}
	if d.NextRun != nil {
		t.Fatalf("NextRun = %v, want nil", d.NextRun)
	}
}

func TestOnPatternUpdateNoChangeKeepsSchedule(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	if err := m.OnCreate(d); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	before := *d.NextRun

	freq := recurrence.Daily
	if err := m.OnPatternUpdate(d, PatternUpdate{Frequency: &freq}); err != nil {
		t.Fatalf("OnPatternUpdate: %v", err)
	}
	if !d.NextRun.Equal(before) {
		t.Fatalf("NextRun = %v, want unchanged %v", d.NextRun, before)
	}
}

func TestOnPatternUpdateInvalidLeavesPatternUntouched(t *testing.T) {
	t.Parallel()
	m := testManager()
	d := dailyDef("d1")
	if err := m.OnCreate(d); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}

	freq := recurrence.Weekly // without days: invalid
	err := m.OnPatternUpdate(d, PatternUpdate{Frequency: &freq})
	var verr *recurrence.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if d.Pattern.Frequency != recurrence.Daily {
		t.Fatalf("pattern mutated on failed update: %v", d.Pattern.Frequency)
	}
}
