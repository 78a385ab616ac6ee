// Package audit writes the append-only trail of claim actions.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/repository"
)

// Recorder persists audit entries. Write failures are logged and swallowed;
// they never fail the business action that produced them.
type Recorder struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

func NewRecorder(repo repository.AuditRepository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends one entry.
func (r *Recorder) Record(ctx context.Context, action domain.AuditAction, claimID, actorID int64, details map[string]any) {
	r.record(ctx, time.Now().UTC(), action, claimID, actorID, details)
}

func (r *Recorder) record(ctx context.Context, at time.Time, action domain.AuditAction, claimID, actorID int64, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	entry := &domain.AuditEntry{
		At:      at,
		Action:  action,
		ActorID: actorID,
		ClaimID: claimID,
		Details: details,
	}
	if err := r.repo.AppendAudit(ctx, entry); err != nil {
		r.logger.Error("failed to write audit entry",
			zap.String("action", string(action)),
			zap.Int64("claim_id", claimID),
			zap.Int64("actor_id", actorID),
			zap.Error(err),
		)
	}
}

// HandleEvent maps a lifecycle event to its audit entries. It always returns nil.
func (r *Recorder) HandleEvent(ctx context.Context, ev domain.ClaimEvent) error {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	statusChange := func() {
		r.record(ctx, at, domain.AuditStatusChange, ev.ClaimID, ev.ActorID, map[string]any{
			"old_status": int(ev.OldStatus),
			"new_status": int(ev.NewStatus),
		})
	}

	switch ev.Kind {
	case domain.EventCreated:
		r.record(ctx, at, domain.AuditCreate, ev.ClaimID, ev.ActorID, map[string]any{
			"status": int(ev.NewStatus),
		})

	case domain.EventReviewUpdated:
		r.record(ctx, at, domain.AuditUpdate, ev.ClaimID, ev.ActorID, changesOrEmpty(ev.Changes))
		statusChange()

	case domain.EventMarkedReviewed:
		r.record(ctx, at, domain.AuditReview, ev.ClaimID, ev.ActorID, map[string]any{
			"old_status": int(ev.OldStatus),
			"new_status": int(ev.NewStatus),
		})

	case domain.EventStatusChanged:
		details := map[string]any{
			"old_status": int(ev.OldStatus),
			"new_status": int(ev.NewStatus),
		}
		if ev.RejectionMessage != "" {
			details["rejection_message"] = ev.RejectionMessage
		}
		r.record(ctx, at, domain.AuditStatusChange, ev.ClaimID, ev.ActorID, details)

	case domain.EventResubmitted:
		details := map[string]any{
			"old_status": int(ev.OldStatus),
			"new_status": int(ev.NewStatus),
		}
		if len(ev.Changes) > 0 {
			details["changes"] = ev.Changes
		}
		r.record(ctx, at, domain.AuditResubmit, ev.ClaimID, ev.ActorID, details)

	case domain.EventFormUpdated:
		r.record(ctx, at, domain.AuditUpdate, ev.ClaimID, ev.ActorID, changesOrEmpty(ev.Changes))

	case domain.EventDeleted:
		r.record(ctx, at, domain.AuditDelete, ev.ClaimID, ev.ActorID, changesOrEmpty(ev.Changes))

	case domain.EventDocumentAdded:
		r.record(ctx, at, domain.AuditUpload, ev.ClaimID, ev.ActorID, changesOrEmpty(ev.Changes))

	case domain.EventBulkStatus:
		r.record(ctx, at, domain.AuditBulkStatusChange, 0, ev.ActorID, map[string]any{
			"old_status": int(ev.OldStatus),
			"new_status": int(ev.NewStatus),
			"affected":   ev.Affected,
		})
	}
	return nil
}

func changesOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
