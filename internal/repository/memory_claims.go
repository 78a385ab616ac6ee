package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"incapacity-claims/internal/domain"
)

// MemoryClaimsRepo is used when the database is disabled and by service tests.
// One mutex serializes every mutation, which gives the same per-claim
// atomicity as the row lock in Postgres.
type MemoryClaimsRepo struct {
	mu sync.Mutex

	nextClaimID      int64
	nextAttachmentID int64

	claims map[int64]*domain.Claim
	// attachments keyed by claim, then doc type
	attachments map[int64]map[int64]domain.Attachment
}

func NewMemoryClaimsRepo() *MemoryClaimsRepo {
	return &MemoryClaimsRepo{
		claims:      map[int64]*domain.Claim{},
		attachments: map[int64]map[int64]domain.Attachment{},
	}
}

var _ ClaimsRepository = (*MemoryClaimsRepo)(nil)

func (r *MemoryClaimsRepo) CreateClaim(_ context.Context, c *domain.Claim) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("%w: claim is required", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = time.Now().UTC()
	}
	r.nextClaimID++
	c.ClaimID = r.nextClaimID
	r.claims[c.ClaimID] = c.Clone()
	return c.ClaimID, nil
}

func (r *MemoryClaimsRepo) GetClaim(_ context.Context, claimID int64) (*domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.claims[claimID]
	if !ok {
		return nil, fmt.Errorf("claim %d: %w", claimID, domain.ErrNotFound)
	}
	return c.Clone(), nil
}

func (r *MemoryClaimsRepo) ListClaims(_ context.Context, filter domain.ClaimFilter, page domain.Pagination) ([]*domain.Claim, int, error) {
	page = page.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Claim
	for _, c := range r.claims {
		if filter.Status != 0 && c.Status != filter.Status {
			continue
		}
		if filter.ClaimTypeID > 0 && c.ClaimTypeID != filter.ClaimTypeID {
			continue
		}
		if filter.ClaimantID > 0 && c.ClaimantID != filter.ClaimantID {
			continue
		}
		if filter.SubmittedFrom != nil && c.SubmittedAt.Before(*filter.SubmittedFrom) {
			continue
		}
		if filter.SubmittedTo != nil && !c.SubmittedAt.Before(*filter.SubmittedTo) {
			continue
		}
		matched = append(matched, c.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SubmittedAt.Equal(matched[j].SubmittedAt) {
			return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
		}
		return matched[i].ClaimID > matched[j].ClaimID
	})

	total := len(matched)
	start := page.Offset()
	if start >= total {
		return []*domain.Claim{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryClaimsRepo) MutateClaim(_ context.Context, claimID int64, fn func(c *domain.Claim) error) (*domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.claims[claimID]
	if !ok {
		return nil, fmt.Errorf("claim %d: %w", claimID, domain.ErrNotFound)
	}
	work := stored.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}

	// identity and submission fields are not writable
	work.ClaimID = stored.ClaimID
	work.ClaimantID = stored.ClaimantID
	work.ClaimTypeID = stored.ClaimTypeID
	work.CauseID = stored.CauseID
	work.SubmittedAt = stored.SubmittedAt

	r.claims[claimID] = work.Clone()
	return work, nil
}

func (r *MemoryClaimsRepo) DeleteClaim(_ context.Context, claimID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claims[claimID]; !ok {
		return fmt.Errorf("claim %d: %w", claimID, domain.ErrNotFound)
	}
	delete(r.attachments, claimID)
	delete(r.claims, claimID)
	return nil
}

func (r *MemoryClaimsRepo) BulkUpdateStatus(_ context.Context, from, to domain.ClaimStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, c := range r.claims {
		if c.Status == from {
			c.Status = to
			if to != domain.StatusRejected {
				c.RejectionMessage = ""
			}
			n++
		}
	}
	return n, nil
}

func (r *MemoryClaimsRepo) UpsertAttachment(_ context.Context, a *domain.Attachment) (*domain.Attachment, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: attachment is required", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claims[a.ClaimID]; !ok {
		return nil, fmt.Errorf("%w: attachment references missing claim", domain.ErrIntegrity)
	}
	byType := r.attachments[a.ClaimID]
	if byType == nil {
		byType = map[int64]domain.Attachment{}
		r.attachments[a.ClaimID] = byType
	}

	out := *a
	if out.UploadedAt.IsZero() {
		out.UploadedAt = time.Now().UTC()
	}
	if existing, ok := byType[a.DocTypeID]; ok {
		out.AttachmentID = existing.AttachmentID
	} else {
		r.nextAttachmentID++
		out.AttachmentID = r.nextAttachmentID
	}
	byType[a.DocTypeID] = out
	return &out, nil
}

func (r *MemoryClaimsRepo) ListAttachments(_ context.Context, claimID int64) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Attachment
	for _, a := range r.attachments[claimID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocTypeID < out[j].DocTypeID })
	return out, nil
}

func (r *MemoryClaimsRepo) AttachedDocTypes(ctx context.Context, claimID int64) ([]int64, error) {
	m, err := r.AttachedDocTypesFor(ctx, []int64{claimID})
	if err != nil {
		return nil, err
	}
	return m[claimID], nil
}

func (r *MemoryClaimsRepo) AttachedDocTypesFor(_ context.Context, claimIDs []int64) (map[int64][]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int64][]int64, len(claimIDs))
	for _, id := range claimIDs {
		for docType := range r.attachments[id] {
			out[id] = append(out[id], docType)
		}
		sort.Slice(out[id], func(i, j int) bool { return out[id][i] < out[id][j] })
	}
	return out, nil
}
