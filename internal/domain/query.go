package domain

import "time"

// Pagination follows the page/size/count shape the front end expects.
type Pagination struct {
	Size  int `json:"size"`
	Page  int `json:"page"`
	Count int `json:"count"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Normalize clamps page and size to usable values.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the row offset for the current page.
func (p Pagination) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Size
}

// ClaimFilter narrows the reviewer listing. Zero values mean "any".
type ClaimFilter struct {
	Status        ClaimStatus
	ClaimTypeID   int64
	ClaimantID    int64
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
}
