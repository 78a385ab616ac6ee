package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incapacity-claims/internal/domain"
)

func TestMemoryClaimsRepo_MutateKeepsSubmittedAt(t *testing.T) {
	repo := NewMemoryClaimsRepo()
	ctx := context.Background()

	c := newClaim()
	submitted := c.SubmittedAt
	id, err := repo.CreateClaim(ctx, c)
	require.NoError(t, err)

	_, err = repo.MutateClaim(ctx, id, func(c *domain.Claim) error {
		c.SubmittedAt = time.Time{}
		c.ClaimantID = 999
		c.Status = domain.StatusReviewed
		return nil
	})
	require.NoError(t, err)

	got, err := repo.GetClaim(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, submitted, got.SubmittedAt)
	assert.Equal(t, int64(100), got.ClaimantID)
	assert.Equal(t, domain.StatusReviewed, got.Status)
}

func TestMemoryClaimsRepo_ConcurrentMutationsSerialize(t *testing.T) {
	repo := NewMemoryClaimsRepo()
	ctx := context.Background()
	id, err := repo.CreateClaim(ctx, newClaim())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.MutateClaim(ctx, id, func(c *domain.Claim) error {
				c.Days++
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := repo.GetClaim(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 55, got.Days)
}

func TestMemoryClaimsRepo_AttachmentUpsertAndDelete(t *testing.T) {
	repo := NewMemoryClaimsRepo()
	ctx := context.Background()
	id, err := repo.CreateClaim(ctx, newClaim())
	require.NoError(t, err)

	first, err := repo.UpsertAttachment(ctx, &domain.Attachment{ClaimID: id, DocTypeID: 2, StorageRef: "a"})
	require.NoError(t, err)
	second, err := repo.UpsertAttachment(ctx, &domain.Attachment{ClaimID: id, DocTypeID: 2, StorageRef: "b"})
	require.NoError(t, err)
	assert.Equal(t, first.AttachmentID, second.AttachmentID)

	list, err := repo.ListAttachments(ctx, id)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].StorageRef)

	require.NoError(t, repo.DeleteClaim(ctx, id))
	docs, err := repo.AttachedDocTypes(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.ErrorIs(t, repo.DeleteClaim(ctx, id), domain.ErrNotFound)

	_, err = repo.UpsertAttachment(ctx, &domain.Attachment{ClaimID: id, DocTypeID: 1})
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestMemoryClaimsRepo_BulkAndList(t *testing.T) {
	repo := NewMemoryClaimsRepo()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := repo.CreateClaim(ctx, newClaim())
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		c := newClaim()
		c.Status = domain.StatusReviewed
		_, err := repo.CreateClaim(ctx, c)
		require.NoError(t, err)
	}

	n, err := repo.BulkUpdateStatus(ctx, domain.StatusPending, domain.StatusReviewed)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	items, total, err := repo.ListClaims(ctx, domain.ClaimFilter{Status: domain.StatusReviewed}, domain.Pagination{Page: 2, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	assert.Len(t, items, 3)
}
