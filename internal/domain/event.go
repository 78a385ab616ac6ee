package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies a claim lifecycle event.
type EventKind string

const (
	EventCreated          EventKind = "claim.created"
	EventReviewUpdated    EventKind = "claim.review_updated"
	EventMarkedReviewed   EventKind = "claim.marked_reviewed"
	EventStatusChanged    EventKind = "claim.status_changed"
	EventResubmitted      EventKind = "claim.resubmitted"
	EventFormUpdated      EventKind = "claim.form_updated"
	EventDeleted          EventKind = "claim.deleted"
	EventDocumentAdded    EventKind = "claim.document_added"
	EventBulkStatus       EventKind = "claim.bulk_status_changed"
	EventReviewerReminder EventKind = "claim.reviewer_reminder"
)

// ClaimEvent is emitted once per committed business action.
type ClaimEvent struct {
	EventID    string    `json:"event_id"`
	Kind       EventKind `json:"kind"`
	ClaimID    int64     `json:"claim_id"`
	ActorID    int64     `json:"actor_id"`
	ClaimantID int64     `json:"claimant_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`

	OldStatus        ClaimStatus `json:"old_status,omitempty"`
	NewStatus        ClaimStatus `json:"new_status,omitempty"`
	RejectionMessage string      `json:"rejection_message,omitempty"`

	// Changes holds the fields touched by update-like events.
	Changes map[string]any `json:"changes,omitempty"`
	// Affected is the row count of a bulk transition.
	Affected int64 `json:"affected,omitempty"`
}

// NewClaimEvent stamps a fresh id and time.
func NewClaimEvent(kind EventKind, claimID, actorID int64) ClaimEvent {
	return ClaimEvent{
		EventID:    uuid.NewString(),
		Kind:       kind,
		ClaimID:    claimID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}
