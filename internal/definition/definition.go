package definition

import (
	"context"
	"time"

	"taskmill/internal/recurrence"
)

// Attachment is a file reference carried on a template and copied onto each
// materialized instance.
type Attachment struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size,omitempty"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

// Template holds the fields copied onto every materialized task instance.
type Template struct {
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Priority        string       `json:"priority,omitempty"`
	Tags            []string     `json:"tags,omitempty"`
	EstimateMinutes int          `json:"estimate_minutes,omitempty"`
	Attachments     []Attachment `json:"attachments,omitempty"`
}

// Definition is the aggregate root: a recurrence rule plus template and
// scheduling state. Distinct from the instances it produces.
//
// Invariants:
//   - Active implies NextRun is non-nil and >= Pattern.StartDate.
//   - NextRun, once computed, is strictly after the anchor used to compute it.
type Definition struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	ProjectID string `json:"project_id,omitempty"`

	Pattern  recurrence.Pattern `json:"pattern"`
	Template Template           `json:"template"`

	Active      bool       `json:"active"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	LastCreated *time.Time `json:"last_created,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Due reports whether the definition should be materialized at now.
func (d *Definition) Due(now time.Time) bool {
	return d.Active && d.NextRun != nil && !d.NextRun.After(now)
}

// InstanceRef is an opaque reference to a materialized task instance.
type InstanceRef string

// InstancePayload is a concrete task built from a definition's template.
// It carries back-references to the definition and its project but is
// independent of any persistence mechanism.
type InstancePayload struct {
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Priority        string       `json:"priority,omitempty"`
	Tags            []string     `json:"tags,omitempty"`
	EstimateMinutes int          `json:"estimate_minutes,omitempty"`
	Attachments     []Attachment `json:"attachments,omitempty"`

	DefinitionID string    `json:"definition_id"`
	ProjectID    string    `json:"project_id,omitempty"`
	OwnerID      string    `json:"owner_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// CreatedInstance is one entry of a definition's append-only instance log.
type CreatedInstance struct {
	Ref          InstanceRef
	DefinitionID string
	ScheduledFor time.Time
	CreatedAt    time.Time
}

// DefinitionStore persists definitions. Implementations must provide
// single-document atomic writes; the engine never needs cross-document
// transactions.
type DefinitionStore interface {
	Load(ctx context.Context, id string) (*Definition, error)
	Save(ctx context.Context, d *Definition) error
	// FindDue returns definitions with active=true and next_run <= now.
	FindDue(ctx context.Context, now time.Time) ([]*Definition, error)
}

// InstanceStore creates task instances. Create must be idempotent on
// (DefinitionID, ScheduledFor): re-creating an already materialized
// occurrence returns the existing reference, so at-least-once batch
// invocations never double-materialize.
type InstanceStore interface {
	Create(ctx context.Context, p InstancePayload) (InstanceRef, error)
	// ByDefinition returns the append-only instance log for a definition,
	// oldest first.
	ByDefinition(ctx context.Context, definitionID string) ([]CreatedInstance, error)
}

// Notifier is told about each successfully materialized instance. Delivery
// is best-effort: failures must not affect materialization.
type Notifier interface {
	InstanceCreated(ctx context.Context, ownerID string, ref InstanceRef, definitionID string)
}
