package main

import (
	"context"

	"go.uber.org/zap"

	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/repository"
)

// seedDevReference fills the memory catalogs when the database is disabled,
// so the API is usable for local front-end work.
func seedDevReference(ctx context.Context, ref *repository.MemoryReferenceRepo, log *zap.Logger) {
	ref.PutClaimType(domain.CatalogItem{ID: 1, Name: "General illness"})
	ref.PutClaimType(domain.CatalogItem{ID: 2, Name: "Work accident"})
	ref.PutClaimType(domain.CatalogItem{ID: 3, Name: "Maternity leave"})

	ref.PutDocumentType(domain.CatalogItem{ID: 1, Name: "Medical certificate"})
	ref.PutDocumentType(domain.CatalogItem{ID: 2, Name: "Clinical history"})
	ref.PutDocumentType(domain.CatalogItem{ID: 3, Name: "Accident report"})
	ref.PutDocumentType(domain.CatalogItem{ID: 4, Name: "Birth certificate"})

	ref.PutItems(domain.CatalogCause,
		domain.CatalogItem{ID: 1, Name: "Common illness"},
		domain.CatalogItem{ID: 2, Name: "Occupational"},
	)
	ref.PutItems(domain.CatalogStatus,
		domain.CatalogItem{ID: int64(domain.StatusPending), Name: "Pending"},
		domain.CatalogItem{ID: int64(domain.StatusReviewed), Name: "Reviewed"},
		domain.CatalogItem{ID: int64(domain.StatusPaid), Name: "Paid"},
		domain.CatalogItem{ID: int64(domain.StatusUnpaid), Name: "Unpaid"},
		domain.CatalogItem{ID: int64(domain.StatusRejected), Name: "Rejected"},
	)

	matrix := map[int64][]int64{1: {1, 2}, 2: {1, 3}, 3: {1, 4}}
	for claimType, docs := range matrix {
		if err := ref.ReplaceRequirements(ctx, claimType, docs); err != nil {
			log.Warn("Failed to seed requirements", zap.Int64("claim_type_id", claimType), zap.Error(err))
		}
	}

	ref.PutUser(domain.User{UserID: 1, FullName: "Dev Reviewer", Email: "reviewer@localhost", Role: domain.RoleAdmin, Active: true})
	ref.PutUser(domain.User{UserID: 100, FullName: "Dev Employee", Email: "employee@localhost", Role: domain.RoleEmployee, Active: true})
	log.Info("Seeded in-memory reference data for development")
}
