package definition

import "fmt"

// ProjectionError reports a template that cannot be projected into an
// instance payload. The definition is left untouched so the next batch pass
// retries it.
type ProjectionError struct {
	DefinitionID string
	Reason       string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("project definition %s: %s", e.DefinitionID, e.Reason)
}
