package notify

import (
	"context"

	"go.uber.org/zap"

	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/repository"
)

// ClaimReader is the part of the claims repository the router reads.
type ClaimReader interface {
	GetClaim(ctx context.Context, claimID int64) (*domain.Claim, error)
}

// Router turns claim events into notifications: new and resubmitted claims go
// to every active reviewer, decisions go to the claimant.
type Router struct {
	dispatcher *Dispatcher
	users      repository.UsersRepository
	catalog    repository.CatalogRepository
	claims     ClaimReader
	logger     *zap.Logger
}

func NewRouter(dispatcher *Dispatcher, users repository.UsersRepository, catalog repository.CatalogRepository, claims ClaimReader, logger *zap.Logger) *Router {
	return &Router{
		dispatcher: dispatcher,
		users:      users,
		catalog:    catalog,
		claims:     claims,
		logger:     logger,
	}
}

// HandleEvent dispatches the notification for ev, if any. Lookup failures are
// logged; the returned error is always nil so one bad event does not stall a consumer.
func (r *Router) HandleEvent(ctx context.Context, ev domain.ClaimEvent) error {
	switch ev.Kind {
	case domain.EventCreated, domain.EventReviewerReminder:
		r.toReviewers(ctx, KindNewClaim, ev)
	case domain.EventResubmitted:
		r.toReviewers(ctx, KindResubmitted, ev)
	case domain.EventReviewUpdated:
		r.toClaimant(ctx, ev)
	case domain.EventStatusChanged, domain.EventMarkedReviewed:
		if ev.OldStatus == ev.NewStatus {
			return nil
		}
		r.toClaimant(ctx, ev)
	}
	return nil
}

func (r *Router) toReviewers(ctx context.Context, kind Kind, ev domain.ClaimEvent) {
	reviewers, err := r.users.ListActiveByRole(ctx, domain.RoleAdmin)
	if err != nil {
		r.logger.Error("failed to resolve reviewers", zap.Int64("claim_id", ev.ClaimID), zap.Error(err))
		return
	}
	addrs := make([]string, 0, len(reviewers))
	for _, u := range reviewers {
		addrs = append(addrs, u.Email)
	}
	r.dispatcher.Notify(ctx, kind, addrs, r.payload(ctx, ev))
}

func (r *Router) toClaimant(ctx context.Context, ev domain.ClaimEvent) {
	var kind Kind
	switch ev.NewStatus {
	case domain.StatusReviewed:
		kind = KindReviewed
	case domain.StatusRejected:
		kind = KindRejected
	case domain.StatusPaid:
		kind = KindPaid
	case domain.StatusUnpaid:
		kind = KindUnpaid
	default:
		return
	}

	claimantID := ev.ClaimantID
	if claimantID == 0 {
		if c, err := r.claims.GetClaim(ctx, ev.ClaimID); err == nil {
			claimantID = c.ClaimantID
		}
	}
	u, err := r.users.GetUser(ctx, claimantID)
	if err != nil {
		r.logger.Error("failed to resolve claimant",
			zap.Int64("claim_id", ev.ClaimID),
			zap.Int64("claimant_id", claimantID),
			zap.Error(err),
		)
		return
	}

	p := Payload{ClaimID: ev.ClaimID, ClaimantName: u.FullName}
	if kind == KindRejected {
		p.Reason = ev.RejectionMessage
	}
	r.dispatcher.Notify(ctx, kind, []string{u.Email}, p)
}

func (r *Router) payload(ctx context.Context, ev domain.ClaimEvent) Payload {
	p := Payload{ClaimID: ev.ClaimID}
	c, err := r.claims.GetClaim(ctx, ev.ClaimID)
	if err != nil {
		r.logger.Warn("claim not readable for notification", zap.Int64("claim_id", ev.ClaimID), zap.Error(err))
		return p
	}
	p.StartDate = c.StartDate.Format("2006-01-02")
	p.EndDate = c.EndDate.Format("2006-01-02")
	p.Days = c.Days
	if u, err := r.users.GetUser(ctx, c.ClaimantID); err == nil {
		p.ClaimantName = u.FullName
	}
	if ct, err := r.catalog.GetClaimType(ctx, c.ClaimTypeID); err == nil {
		p.ClaimType = ct.Name
	}
	return p
}
