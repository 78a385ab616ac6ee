package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"incapacity-claims/internal/domain"
)

// PostgresAuditRepository appends to claim_audit. There is no foreign key to
// claims, so rows outlive deleted claims.
type PostgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

var _ AuditRepository = (*PostgresAuditRepository)(nil)

func (r *PostgresAuditRepository) AppendAudit(ctx context.Context, e *domain.AuditEntry) error {
	if e == nil {
		return fmt.Errorf("%w: audit entry is required", domain.ErrValidation)
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	var claimID sql.NullInt64
	if e.ClaimID > 0 {
		claimID = sql.NullInt64{Int64: e.ClaimID, Valid: true}
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO claim_audit (at, action, actor_id, claim_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING audit_id
	`, e.At, string(e.Action), e.ActorID, claimID, payload).Scan(&e.AuditID)
	if err != nil {
		return fmt.Errorf("failed to append audit: %w", err)
	}
	return nil
}

func (r *PostgresAuditRepository) ListAudit(ctx context.Context, claimID int64) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT audit_id, at, action, actor_id, COALESCE(claim_id, 0), details
		FROM claim_audit
		WHERE claim_id = $1
		ORDER BY at, audit_id
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var action string
		var raw []byte
		if err := rows.Scan(&e.AuditID, &e.At, &action, &e.ActorID, &e.ClaimID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}
		e.Action = domain.AuditAction(action)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit details: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
