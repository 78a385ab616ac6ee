package catalog

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/repository"
)

// CachedCatalog memoizes catalog and requirement lookups in process.
// Not-found results are not cached.
type CachedCatalog struct {
	catalog      repository.CatalogRepository
	requirements repository.RequirementsRepository
	cache        *gocache.Cache
}

// NewCachedCatalog wraps the two repositories with a TTL cache.
func NewCachedCatalog(catalog repository.CatalogRepository, requirements repository.RequirementsRepository, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedCatalog{
		catalog:      catalog,
		requirements: requirements,
		cache:        gocache.New(ttl, 2*ttl),
	}
}

var (
	_ repository.CatalogRepository      = (*CachedCatalog)(nil)
	_ repository.RequirementsRepository = (*CachedCatalog)(nil)
)

func cached[T any](c *CachedCatalog, key string, load func() (T, error)) (T, error) {
	if v, ok := c.cache.Get(key); ok {
		return v.(T), nil
	}
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.cache.SetDefault(key, v)
	return v, nil
}

func (c *CachedCatalog) GetClaimType(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	it, err := cached(c, fmt.Sprintf("claim_type:%d", id), func() (domain.CatalogItem, error) {
		p, err := c.catalog.GetClaimType(ctx, id)
		if err != nil {
			return domain.CatalogItem{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *CachedCatalog) ListClaimTypes(ctx context.Context) ([]domain.CatalogItem, error) {
	items, err := cached(c, "claim_types", func() ([]domain.CatalogItem, error) {
		return c.catalog.ListClaimTypes(ctx)
	})
	return append([]domain.CatalogItem(nil), items...), err
}

func (c *CachedCatalog) GetDocumentType(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	it, err := cached(c, fmt.Sprintf("doc_type:%d", id), func() (domain.CatalogItem, error) {
		p, err := c.catalog.GetDocumentType(ctx, id)
		if err != nil {
			return domain.CatalogItem{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *CachedCatalog) ListDocumentTypes(ctx context.Context) ([]domain.CatalogItem, error) {
	items, err := cached(c, "doc_types", func() ([]domain.CatalogItem, error) {
		return c.catalog.ListDocumentTypes(ctx)
	})
	return append([]domain.CatalogItem(nil), items...), err
}

func (c *CachedCatalog) ListItems(ctx context.Context, kind domain.CatalogKind) ([]domain.CatalogItem, error) {
	items, err := cached(c, "items:"+string(kind), func() ([]domain.CatalogItem, error) {
		return c.catalog.ListItems(ctx, kind)
	})
	return append([]domain.CatalogItem(nil), items...), err
}

func (c *CachedCatalog) RequiredDocTypes(ctx context.Context, claimTypeID int64) ([]int64, error) {
	ids, err := cached(c, fmt.Sprintf("required:%d", claimTypeID), func() ([]int64, error) {
		return c.requirements.RequiredDocTypes(ctx, claimTypeID)
	})
	if err != nil {
		return nil, err
	}
	return append([]int64{}, ids...), nil
}

// ListRequirements is not cached; it is only used by tooling.
func (c *CachedCatalog) ListRequirements(ctx context.Context) ([]domain.DocumentRequirement, error) {
	return c.requirements.ListRequirements(ctx)
}

// ReplaceRequirements writes through and drops the cached row set.
func (c *CachedCatalog) ReplaceRequirements(ctx context.Context, claimTypeID int64, docTypeIDs []int64) error {
	if err := c.requirements.ReplaceRequirements(ctx, claimTypeID, docTypeIDs); err != nil {
		return err
	}
	c.cache.Delete(fmt.Sprintf("required:%d", claimTypeID))
	return nil
}

// Flush drops every cached entry.
func (c *CachedCatalog) Flush() {
	c.cache.Flush()
}
