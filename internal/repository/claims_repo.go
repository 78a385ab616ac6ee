package repository

import (
	"context"

	"incapacity-claims/internal/domain"
)

// ClaimsRepository persists claims and their attachments.
// Attachments live here because deleting a claim removes them in the same transaction.
type ClaimsRepository interface {
	// CreateClaim inserts c and returns the new claim_id. SubmittedAt must be set by the caller.
	CreateClaim(ctx context.Context, c *domain.Claim) (int64, error)

	GetClaim(ctx context.Context, claimID int64) (*domain.Claim, error)

	// ListClaims returns one page ordered by submission time, newest first, plus the total.
	ListClaims(ctx context.Context, filter domain.ClaimFilter, page domain.Pagination) ([]*domain.Claim, int, error)

	// MutateClaim loads the claim under a row lock, applies fn and persists the result
	// in one transaction. If fn returns an error nothing is written and the error is returned.
	// submitted_at, claimant_id, claim_type_id and cause_id are never rewritten.
	MutateClaim(ctx context.Context, claimID int64, fn func(c *domain.Claim) error) (*domain.Claim, error)

	// DeleteClaim removes the attachments and then the claim.
	DeleteClaim(ctx context.Context, claimID int64) error

	// BulkUpdateStatus moves every claim in status from to status to with one statement.
	BulkUpdateStatus(ctx context.Context, from, to domain.ClaimStatus) (int64, error)

	// UpsertAttachment records a document; an existing row for the same
	// (claim, doc type) is replaced.
	UpsertAttachment(ctx context.Context, a *domain.Attachment) (*domain.Attachment, error)
	ListAttachments(ctx context.Context, claimID int64) ([]domain.Attachment, error)
	AttachedDocTypes(ctx context.Context, claimID int64) ([]int64, error)
	// AttachedDocTypesFor is the batched form used by listings.
	AttachedDocTypesFor(ctx context.Context, claimIDs []int64) (map[int64][]int64, error)
}
