package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/repository"
)

type countingCatalog struct {
	repository.CatalogRepository
	claimTypeCalls int
}

func (c *countingCatalog) GetClaimType(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	c.claimTypeCalls++
	return c.CatalogRepository.GetClaimType(ctx, id)
}

func TestCachedCatalog_ClaimTypeHitsRepositoryOnce(t *testing.T) {
	ref := repository.NewMemoryReferenceRepo()
	ref.PutClaimType(domain.CatalogItem{ID: 1, Name: "Enfermedad general"})
	counting := &countingCatalog{CatalogRepository: ref}
	c := NewCachedCatalog(counting, ref, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		it, err := c.GetClaimType(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Enfermedad general", it.Name)
	}
	assert.Equal(t, 1, counting.claimTypeCalls)
}

func TestCachedCatalog_NotFoundIsNotCached(t *testing.T) {
	ref := repository.NewMemoryReferenceRepo()
	counting := &countingCatalog{CatalogRepository: ref}
	c := NewCachedCatalog(counting, ref, time.Minute)
	ctx := context.Background()

	_, err := c.GetClaimType(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ref.PutClaimType(domain.CatalogItem{ID: 2, Name: "Accidente laboral"})
	it, err := c.GetClaimType(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Accidente laboral", it.Name)
	assert.Equal(t, 2, counting.claimTypeCalls)
}

func TestCachedCatalog_ReplaceRequirementsInvalidates(t *testing.T) {
	ref := repository.NewMemoryReferenceRepo()
	ctx := context.Background()
	require.NoError(t, ref.ReplaceRequirements(ctx, 1, []int64{1, 2}))
	c := NewCachedCatalog(ref, ref, time.Minute)

	got, err := c.RequiredDocTypes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got)

	// callers may not corrupt the cached slice
	got[0] = 42
	again, err := c.RequiredDocTypes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, again)

	require.NoError(t, c.ReplaceRequirements(ctx, 1, []int64{3}))
	got, err = c.RequiredDocTypes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, got)
}
