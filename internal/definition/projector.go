package definition

import (
	"strings"
	"time"
)

// recurringTag marks every materialized instance so downstream consumers can
// tell projected tasks from hand-created ones.
const recurringTag = "recurring"

// Project builds a concrete task payload from the definition's template.
// Pure function: no persistence, no network calls.
//
// Tags are unioned with the fixed "recurring" tag. Attachments are
// re-timestamped to now with the uploader set to the definition's owner.
// ScheduledFor is the definition's NextRun (now, if unset).
func Project(d *Definition, now time.Time) (InstancePayload, error) {
	if strings.TrimSpace(d.Template.Title) == "" {
		return InstancePayload{}, &ProjectionError{DefinitionID: d.ID, Reason: "template title is empty"}
	}

	scheduledFor := now
	if d.NextRun != nil {
		scheduledFor = *d.NextRun
	}

	attachments := make([]Attachment, 0, len(d.Template.Attachments))
	for _, a := range d.Template.Attachments {
		if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.URL) == "" {
			return InstancePayload{}, &ProjectionError{DefinitionID: d.ID, Reason: "attachment missing name or url"}
		}
		a.UploadedAt = now
		a.UploadedBy = d.OwnerID
		attachments = append(attachments, a)
	}

	return InstancePayload{
		Title:           d.Template.Title,
		Description:     d.Template.Description,
		Priority:        d.Template.Priority,
		Tags:            unionTags(d.Template.Tags, recurringTag),
		EstimateMinutes: d.Template.EstimateMinutes,
		Attachments:     attachments,
		DefinitionID:    d.ID,
		ProjectID:       d.ProjectID,
		OwnerID:         d.OwnerID,
		ScheduledFor:    scheduledFor,
	}, nil
}

func unionTags(tags []string, extra string) []string {
	out := make([]string, 0, len(tags)+1)
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if !seen[extra] {
		out = append(out, extra)
	}
	return out
}
