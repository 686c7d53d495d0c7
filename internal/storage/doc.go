// Package storage provides the sqlite persistence layer for recurring task
// definitions and their materialized instances.
//
// The instances table is the append-only created-instances log: rows are
// only ever inserted, keyed by definition id, with a uniqueness guard on
// (definition_id, scheduled_for) so that re-processing an occurrence is a
// no-op.
package storage
