package domain

// CatalogItem is a generic id/name/description row from the parameter
// catalogs (claim types, document types, statuses, insurers, services,
// diagnoses, causes).
type CatalogItem struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
}

// CatalogKind names a parameter catalog group (catalog_items.kind).
type CatalogKind string

const (
	CatalogCause     CatalogKind = "cause"
	CatalogInsurer   CatalogKind = "insurer"
	CatalogService   CatalogKind = "service"
	CatalogDiagnosis CatalogKind = "diagnosis"
	CatalogStatus    CatalogKind = "claim_status"
)

// DocumentRequirement is one row of the requirement matrix.
type DocumentRequirement struct {
	ClaimTypeID int64 `json:"claim_type_id" db:"claim_type_id"`
	DocTypeID   int64 `json:"doc_type_id" db:"doc_type_id"`
}
