package domain

import "time"

// AuditAction names a recorded business action.
type AuditAction string

const (
	AuditCreate           AuditAction = "CREATE"
	AuditUpdate           AuditAction = "UPDATE"
	AuditDelete           AuditAction = "DELETE"
	AuditReview           AuditAction = "REVIEW"
	AuditStatusChange     AuditAction = "STATUS_CHANGE"
	AuditUpload           AuditAction = "UPLOAD"
	AuditResubmit         AuditAction = "RESUBMIT"
	AuditBulkStatusChange AuditAction = "BULK_STATUS_CHANGE"
)

// AuditEntry is one append-only row of claim_audit.
// ClaimID is zero for set-based actions that do not target a single claim.
type AuditEntry struct {
	AuditID int64          `json:"audit_id"`
	At      time.Time      `json:"at"`
	Action  AuditAction    `json:"action"`
	ActorID int64          `json:"actor_id"`
	ClaimID int64          `json:"claim_id"`
	Details map[string]any `json:"details"`
}
