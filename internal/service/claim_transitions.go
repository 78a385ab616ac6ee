package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"incapacity-claims/internal/domain"
)

// ReviewUpdate applies reviewer fields and moves the claim to REVIEWED.
func (s *ClaimService) ReviewUpdate(ctx context.Context, claimID, reviewerID int64, fields domain.AdminFields) (bool, error) {
	var old domain.ClaimStatus
	c, err := s.claims.MutateClaim(ctx, claimID, func(c *domain.Claim) error {
		old = c.Status
		next, err := domain.Transition(c.Status, domain.StatusReviewed, domain.RoleAdmin, domain.TransitionPayload{})
		if err != nil {
			return err
		}
		fields.Apply(c, reviewerID)
		c.Status = next
		c.RejectionMessage = ""
		return nil
	})
	if err != nil {
		return false, err
	}

	ev := domain.NewClaimEvent(domain.EventReviewUpdated, claimID, reviewerID)
	ev.ClaimantID = c.ClaimantID
	ev.OldStatus = old
	ev.NewStatus = c.Status
	ev.Changes = fields.Changes()
	s.emitter.Emit(ctx, ev)
	return true, nil
}

// ChangeStatus sets any reviewer-settable status. REJECTED needs a message;
// every other target clears it.
func (s *ClaimService) ChangeStatus(ctx context.Context, claimID int64, newStatus domain.ClaimStatus, reviewerID int64, rejectionMessage string) (bool, error) {
	msg := strings.TrimSpace(rejectionMessage)
	var old domain.ClaimStatus
	c, err := s.claims.MutateClaim(ctx, claimID, func(c *domain.Claim) error {
		old = c.Status
		next, err := domain.Transition(c.Status, newStatus, domain.RoleAdmin, domain.TransitionPayload{RejectionMessage: msg})
		if err != nil {
			return err
		}
		c.Status = next
		if next == domain.StatusRejected {
			c.RejectionMessage = msg
		} else {
			c.RejectionMessage = ""
		}
		r := reviewerID
		c.ReviewerID = &r
		return nil
	})
	if err != nil {
		return false, err
	}

	ev := domain.NewClaimEvent(domain.EventStatusChanged, claimID, reviewerID)
	ev.ClaimantID = c.ClaimantID
	ev.OldStatus = old
	ev.NewStatus = c.Status
	ev.RejectionMessage = c.RejectionMessage
	s.emitter.Emit(ctx, ev)

	s.logger.Info("Claim status changed",
		zap.Int64("claim_id", claimID),
		zap.Stringer("from", old),
		zap.Stringer("to", c.Status),
	)
	return true, nil
}

// MarkReviewed moves a PENDING claim to REVIEWED. On a claim that is already
// REVIEWED it only records the action.
func (s *ClaimService) MarkReviewed(ctx context.Context, claimID, reviewerID int64) (bool, error) {
	var old domain.ClaimStatus
	c, err := s.claims.MutateClaim(ctx, claimID, func(c *domain.Claim) error {
		old = c.Status
		next, err := domain.MarkReviewed(c.Status)
		if err != nil {
			return err
		}
		c.Status = next
		c.RejectionMessage = ""
		r := reviewerID
		c.ReviewerID = &r
		return nil
	})
	if err != nil {
		return false, err
	}

	ev := domain.NewClaimEvent(domain.EventMarkedReviewed, claimID, reviewerID)
	ev.ClaimantID = c.ClaimantID
	ev.OldStatus = old
	ev.NewStatus = c.Status
	s.emitter.Emit(ctx, ev)
	return true, nil
}

// Resubmit returns the claimant's own REJECTED claim to PENDING.
func (s *ClaimService) Resubmit(ctx context.Context, claimID, claimantID int64) (bool, error) {
	c, err := s.claims.MutateClaim(ctx, claimID, func(c *domain.Claim) error {
		return resubmit(c, claimantID)
	})
	if err != nil {
		return false, err
	}

	ev := domain.NewClaimEvent(domain.EventResubmitted, claimID, claimantID)
	ev.ClaimantID = c.ClaimantID
	ev.OldStatus = domain.StatusRejected
	ev.NewStatus = c.Status
	s.emitter.Emit(ctx, ev)
	return true, nil
}

func resubmit(c *domain.Claim, claimantID int64) error {
	if c.ClaimantID != claimantID {
		return fmt.Errorf("%w: claim %d", domain.ErrOwnership, c.ClaimID)
	}
	next, err := domain.Transition(c.Status, domain.StatusPending, domain.RoleEmployee, domain.TransitionPayload{OwnsClaim: true})
	if err != nil {
		return err
	}
	c.Status = next
	c.RejectionMessage = ""
	return nil
}

// UpdateForm edits the claim form. A reviewer edits in place. A claimant may
// only edit an owned REJECTED claim, which is resubmitted in the same write.
func (s *ClaimService) UpdateForm(ctx context.Context, claimID int64, actor domain.Actor, upd domain.FormUpdate) (bool, error) {
	if upd.Empty() {
		return false, fmt.Errorf("%w: no fields to update", domain.ErrValidation)
	}
	if err := validateFormUpdate(upd); err != nil {
		return false, err
	}

	reviewer := actor.IsReviewer()
	var old domain.ClaimStatus
	c, err := s.claims.MutateClaim(ctx, claimID, func(c *domain.Claim) error {
		old = c.Status
		if !reviewer {
			if err := resubmit(c, actor.ID); err != nil {
				return err
			}
		}
		upd.Apply(c)
		return validatePeriod(c.StartDate, c.EndDate, c.Days)
	})
	if err != nil {
		return false, err
	}

	kind := domain.EventFormUpdated
	if !reviewer {
		kind = domain.EventResubmitted
	}
	ev := domain.NewClaimEvent(kind, claimID, actor.ID)
	ev.ClaimantID = c.ClaimantID
	ev.OldStatus = old
	ev.NewStatus = c.Status
	ev.Changes = upd.Changes()
	s.emitter.Emit(ctx, ev)
	return true, nil
}

func validateFormUpdate(upd domain.FormUpdate) error {
	for name, id := range map[string]*int64{
		"insurer_id":   upd.InsurerID,
		"service_id":   upd.ServiceID,
		"diagnosis_id": upd.DiagnosisID,
	} {
		if id != nil && *id <= 0 {
			return fmt.Errorf("%w: %s must be positive", domain.ErrValidation, name)
		}
	}
	if upd.Salary != nil && !upd.Salary.IsPositive() {
		return fmt.Errorf("%w: salary must be positive", domain.ErrValidation)
	}
	if upd.Days != nil && *upd.Days <= 0 {
		return fmt.Errorf("%w: days must be positive", domain.ErrValidation)
	}
	return nil
}

// Delete removes a claim and its attachments. Audit rows are kept.
func (s *ClaimService) Delete(ctx context.Context, claimID, reviewerID int64) (bool, error) {
	c, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return false, err
	}
	if err := s.claims.DeleteClaim(ctx, claimID); err != nil {
		return false, err
	}

	ev := domain.NewClaimEvent(domain.EventDeleted, claimID, reviewerID)
	ev.ClaimantID = c.ClaimantID
	ev.OldStatus = c.Status
	s.emitter.Emit(ctx, ev)

	s.logger.Info("Claim deleted", zap.Int64("claim_id", claimID), zap.Int64("reviewer_id", reviewerID))
	return true, nil
}

// BulkTransition moves every claim in from to to with one statement and
// returns the number of claims moved. REJECTED is refused as a target since
// each rejection needs its own message.
func (s *ClaimService) BulkTransition(ctx context.Context, from, to domain.ClaimStatus, reviewerID int64) (int64, error) {
	if !from.Valid() || !to.Valid() {
		return 0, fmt.Errorf("%w: unknown status in %d -> %d", domain.ErrValidation, from, to)
	}
	if to == domain.StatusRejected {
		return 0, fmt.Errorf("%w: bulk rejection is not supported", domain.ErrValidation)
	}
	if _, err := domain.Transition(from, to, domain.RoleAdmin, domain.TransitionPayload{}); err != nil {
		return 0, err
	}

	n, err := s.claims.BulkUpdateStatus(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk transition: %w", err)
	}

	ev := domain.NewClaimEvent(domain.EventBulkStatus, 0, reviewerID)
	ev.OldStatus = from
	ev.NewStatus = to
	ev.Affected = n
	s.emitter.Emit(ctx, ev)

	s.logger.Info("Bulk status transition",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int64("affected", n),
	)
	return n, nil
}

// NotifyReviewers re-sends the new-claim notification for a claim.
func (s *ClaimService) NotifyReviewers(ctx context.Context, claimID int64, actor domain.Actor) error {
	c, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if !actor.IsReviewer() && c.ClaimantID != actor.ID {
		return fmt.Errorf("%w: claim %d", domain.ErrOwnership, claimID)
	}
	ev := domain.NewClaimEvent(domain.EventReviewerReminder, claimID, actor.ID)
	ev.ClaimantID = c.ClaimantID
	ev.NewStatus = c.Status
	s.emitter.Emit(ctx, ev)
	return nil
}
