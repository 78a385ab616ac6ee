package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Claim is one submitted sick-leave case (claims table).
type Claim struct {
	ClaimID     int64 `db:"claim_id"`
	ClaimantID  int64 `db:"claimant_id"`
	ClaimTypeID int64 `db:"claim_type_id"`
	CauseID     int64 `db:"cause_id"`

	StartDate time.Time       `db:"start_date"`
	EndDate   time.Time       `db:"end_date"`
	Days      int             `db:"days"`
	Salary    decimal.Decimal `db:"salary"`

	// references into the parameter catalog, not owned here
	InsurerID   int64 `db:"insurer_id"`
	ServiceID   int64 `db:"service_id"`
	DiagnosisID int64 `db:"diagnosis_id"`

	Status           ClaimStatus `db:"status"`
	SubmittedAt      time.Time   `db:"submitted_at"`
	RejectionMessage string      `db:"rejection_message"`

	// administrative fields, nil until the first review
	ReviewerID       *int64     `db:"reviewer_id"`
	CaseNumber       *string    `db:"case_number"`
	FilingDate       *time.Time `db:"filing_date"`
	Paid             *bool      `db:"paid"`
	AdminStatusLabel *string    `db:"admin_status_label"`
	AdminClass       *string    `db:"admin_class"`
}

// Clone returns a deep copy; pointer fields are copied by value.
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	out := *c
	if c.ReviewerID != nil {
		v := *c.ReviewerID
		out.ReviewerID = &v
	}
	if c.CaseNumber != nil {
		v := *c.CaseNumber
		out.CaseNumber = &v
	}
	if c.FilingDate != nil {
		v := *c.FilingDate
		out.FilingDate = &v
	}
	if c.Paid != nil {
		v := *c.Paid
		out.Paid = &v
	}
	if c.AdminStatusLabel != nil {
		v := *c.AdminStatusLabel
		out.AdminStatusLabel = &v
	}
	if c.AdminClass != nil {
		v := *c.AdminClass
		out.AdminClass = &v
	}
	return &out
}

// AdminFields is the reviewer-only partial update. Nil fields are left as is.
type AdminFields struct {
	AdminClass       *string
	CaseNumber       *string
	FilingDate       *time.Time
	Paid             *bool
	AdminStatusLabel *string
}

// Apply copies the present fields onto c and records reviewerID.
func (f AdminFields) Apply(c *Claim, reviewerID int64) {
	if f.AdminClass != nil {
		v := *f.AdminClass
		c.AdminClass = &v
	}
	if f.CaseNumber != nil {
		v := *f.CaseNumber
		c.CaseNumber = &v
	}
	if f.FilingDate != nil {
		v := *f.FilingDate
		c.FilingDate = &v
	}
	if f.Paid != nil {
		v := *f.Paid
		c.Paid = &v
	}
	if f.AdminStatusLabel != nil {
		v := *f.AdminStatusLabel
		c.AdminStatusLabel = &v
	}
	r := reviewerID
	c.ReviewerID = &r
}

// Changes lists the present fields for the audit payload.
func (f AdminFields) Changes() map[string]any {
	changes := map[string]any{}
	if f.AdminClass != nil {
		changes["admin_class"] = *f.AdminClass
	}
	if f.CaseNumber != nil {
		changes["case_number"] = *f.CaseNumber
	}
	if f.FilingDate != nil {
		changes["filing_date"] = f.FilingDate.Format(time.RFC3339)
	}
	if f.Paid != nil {
		changes["paid"] = *f.Paid
	}
	if f.AdminStatusLabel != nil {
		changes["admin_status_label"] = *f.AdminStatusLabel
	}
	return changes
}

// FormUpdate is the partial update of period, salary and reference fields.
// Nil fields keep the persisted value. SubmittedAt is never part of it.
type FormUpdate struct {
	StartDate   *time.Time
	EndDate     *time.Time
	Days        *int
	Salary      *decimal.Decimal
	InsurerID   *int64
	ServiceID   *int64
	DiagnosisID *int64
}

// Empty reports whether no field is present.
func (f FormUpdate) Empty() bool {
	return f.StartDate == nil && f.EndDate == nil && f.Days == nil && f.Salary == nil &&
		f.InsurerID == nil && f.ServiceID == nil && f.DiagnosisID == nil
}

// Apply copies the present fields onto c.
func (f FormUpdate) Apply(c *Claim) {
	if f.StartDate != nil {
		c.StartDate = *f.StartDate
	}
	if f.EndDate != nil {
		c.EndDate = *f.EndDate
	}
	if f.Days != nil {
		c.Days = *f.Days
	}
	if f.Salary != nil {
		c.Salary = *f.Salary
	}
	if f.InsurerID != nil {
		c.InsurerID = *f.InsurerID
	}
	if f.ServiceID != nil {
		c.ServiceID = *f.ServiceID
	}
	if f.DiagnosisID != nil {
		c.DiagnosisID = *f.DiagnosisID
	}
}

// Changes lists the present fields for the audit payload.
func (f FormUpdate) Changes() map[string]any {
	changes := map[string]any{}
	if f.StartDate != nil {
		changes["start_date"] = f.StartDate.Format(time.RFC3339)
	}
	if f.EndDate != nil {
		changes["end_date"] = f.EndDate.Format(time.RFC3339)
	}
	if f.Days != nil {
		changes["days"] = *f.Days
	}
	if f.Salary != nil {
		changes["salary"] = f.Salary.String()
	}
	if f.InsurerID != nil {
		changes["insurer_id"] = *f.InsurerID
	}
	if f.ServiceID != nil {
		changes["service_id"] = *f.ServiceID
	}
	if f.DiagnosisID != nil {
		changes["diagnosis_id"] = *f.DiagnosisID
	}
	return changes
}

// InclusiveDays counts calendar days from start to end, both included.
func InclusiveDays(start, end time.Time) int {
	start, end = start.UTC(), end.UTC()
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}

// Attachment links a claim to one uploaded document (claim_attachments table).
// At most one row exists per (ClaimID, DocTypeID).
type Attachment struct {
	AttachmentID int64     `json:"attachment_id" db:"attachment_id"`
	ClaimID      int64     `json:"claim_id" db:"claim_id"`
	DocTypeID    int64     `json:"doc_type_id" db:"doc_type_id"`
	StorageRef   string    `json:"storage_ref" db:"storage_ref"`
	UploadedAt   time.Time `json:"uploaded_at" db:"uploaded_at"`
}
