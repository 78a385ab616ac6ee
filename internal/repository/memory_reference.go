package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"incapacity-claims/internal/domain"
)

// MemoryReferenceRepo holds catalogs, the requirement matrix and users in
// memory. It implements RequirementsRepository, CatalogRepository and UsersRepository.
type MemoryReferenceRepo struct {
	mu sync.RWMutex

	claimTypes    map[int64]domain.CatalogItem
	documentTypes map[int64]domain.CatalogItem
	items         map[domain.CatalogKind][]domain.CatalogItem
	requirements  map[int64][]int64 // claim type -> doc types
	users         map[int64]domain.User
}

func NewMemoryReferenceRepo() *MemoryReferenceRepo {
	return &MemoryReferenceRepo{
		claimTypes:    map[int64]domain.CatalogItem{},
		documentTypes: map[int64]domain.CatalogItem{},
		items:         map[domain.CatalogKind][]domain.CatalogItem{},
		requirements:  map[int64][]int64{},
		users:         map[int64]domain.User{},
	}
}

var (
	_ RequirementsRepository = (*MemoryReferenceRepo)(nil)
	_ CatalogRepository      = (*MemoryReferenceRepo)(nil)
	_ UsersRepository        = (*MemoryReferenceRepo)(nil)
)

// ---- seeding (dev mode and tests) ----

func (r *MemoryReferenceRepo) PutClaimType(it domain.CatalogItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claimTypes[it.ID] = it
}

func (r *MemoryReferenceRepo) PutDocumentType(it domain.CatalogItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documentTypes[it.ID] = it
}

func (r *MemoryReferenceRepo) PutItems(kind domain.CatalogKind, items ...domain.CatalogItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[kind] = append(r.items[kind], items...)
}

func (r *MemoryReferenceRepo) PutUser(u domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.UserID] = u
}

// ---- RequirementsRepository ----

func (r *MemoryReferenceRepo) RequiredDocTypes(_ context.Context, claimTypeID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]int64{}, r.requirements[claimTypeID]...)
	return out, nil
}

func (r *MemoryReferenceRepo) ListRequirements(_ context.Context) ([]domain.DocumentRequirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.DocumentRequirement
	for ct, docs := range r.requirements {
		for _, d := range docs {
			out = append(out, domain.DocumentRequirement{ClaimTypeID: ct, DocTypeID: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClaimTypeID != out[j].ClaimTypeID {
			return out[i].ClaimTypeID < out[j].ClaimTypeID
		}
		return out[i].DocTypeID < out[j].DocTypeID
	})
	return out, nil
}

func (r *MemoryReferenceRepo) ReplaceRequirements(_ context.Context, claimTypeID int64, docTypeIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[int64]struct{}{}
	var docs []int64
	for _, d := range docTypeIDs {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })
	r.requirements[claimTypeID] = docs
	return nil
}

// ---- CatalogRepository ----

func (r *MemoryReferenceRepo) GetClaimType(_ context.Context, id int64) (*domain.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.claimTypes[id]
	if !ok {
		return nil, fmt.Errorf("claim type %d: %w", id, domain.ErrNotFound)
	}
	return &it, nil
}

func (r *MemoryReferenceRepo) ListClaimTypes(_ context.Context) ([]domain.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedItems(r.claimTypes), nil
}

func (r *MemoryReferenceRepo) GetDocumentType(_ context.Context, id int64) (*domain.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.documentTypes[id]
	if !ok {
		return nil, fmt.Errorf("document type %d: %w", id, domain.ErrNotFound)
	}
	return &it, nil
}

func (r *MemoryReferenceRepo) ListDocumentTypes(_ context.Context) ([]domain.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedItems(r.documentTypes), nil
}

func (r *MemoryReferenceRepo) ListItems(_ context.Context, kind domain.CatalogKind) ([]domain.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.CatalogItem{}, r.items[kind]...), nil
}

func sortedItems(m map[int64]domain.CatalogItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(m))
	for _, it := range m {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- UsersRepository ----

func (r *MemoryReferenceRepo) GetUser(_ context.Context, userID int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *MemoryReferenceRepo) ListUsersByIDs(_ context.Context, userIDs []int64) (map[int64]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64]domain.User, len(userIDs))
	for _, id := range userIDs {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *MemoryReferenceRepo) ListActiveByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.User
	for _, u := range r.users {
		if u.Active && u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// MemoryAuditRepo keeps audit entries in insertion order.
type MemoryAuditRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []domain.AuditEntry
}

func NewMemoryAuditRepo() *MemoryAuditRepo {
	return &MemoryAuditRepo{}
}

var _ AuditRepository = (*MemoryAuditRepo)(nil)

func (r *MemoryAuditRepo) AppendAudit(_ context.Context, e *domain.AuditEntry) error {
	if e == nil {
		return fmt.Errorf("%w: audit entry is required", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.AuditID = r.nextID
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *MemoryAuditRepo) ListAudit(_ context.Context, claimID int64) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range r.entries {
		if e.ClaimID == claimID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every entry, including those without a claim.
func (r *MemoryAuditRepo) All() []domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEntry{}, r.entries...)
}
