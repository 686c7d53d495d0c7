// Package materializer runs the scheduled batch pass over recurring task
// definitions.
//
// # Overview
//
// ProcessDue scans all active definitions whose next run is at or before the
// processing time, creates one concrete task instance per due definition,
// advances its schedule, and reports processed/created/error counts.
//
// # Partial failure
//
// Each definition is an independent unit of work: a projection or
// persistence failure on one is counted and logged but never aborts the
// rest of the batch. The aggregate Report is always returned.
//
// # Idempotency
//
// Instance creation is idempotent on (definition, scheduled date), and
// recomputing the next run strictly advances it, so at-least-once
// invocations (or a crash between instance write and definition save) never
// double-materialize.
package materializer
