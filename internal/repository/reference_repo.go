package repository

import (
	"context"

	"incapacity-claims/internal/domain"
)

// RequirementsRepository is the document requirement matrix.
type RequirementsRepository interface {
	// RequiredDocTypes returns the document types required for a claim type.
	// An unknown claim type yields an empty list.
	RequiredDocTypes(ctx context.Context, claimTypeID int64) ([]int64, error)
	ListRequirements(ctx context.Context) ([]domain.DocumentRequirement, error)
	// ReplaceRequirements rewrites the row set of one claim type.
	ReplaceRequirements(ctx context.Context, claimTypeID int64, docTypeIDs []int64) error
}

// CatalogRepository resolves parameter catalogs by id.
type CatalogRepository interface {
	GetClaimType(ctx context.Context, id int64) (*domain.CatalogItem, error)
	ListClaimTypes(ctx context.Context) ([]domain.CatalogItem, error)
	GetDocumentType(ctx context.Context, id int64) (*domain.CatalogItem, error)
	ListDocumentTypes(ctx context.Context) ([]domain.CatalogItem, error)
	ListItems(ctx context.Context, kind domain.CatalogKind) ([]domain.CatalogItem, error)
}

// UsersRepository reads accounts for recipients and display names.
type UsersRepository interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	ListUsersByIDs(ctx context.Context, userIDs []int64) (map[int64]domain.User, error)
	ListActiveByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// AuditRepository is the append-only audit trail.
type AuditRepository interface {
	AppendAudit(ctx context.Context, e *domain.AuditEntry) error
	ListAudit(ctx context.Context, claimID int64) ([]domain.AuditEntry, error)
}
