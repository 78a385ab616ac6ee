package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"incapacity-claims/internal/domain"
)

// PostgresClaimsRepository implements ClaimsRepository on lib/pq.
type PostgresClaimsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresClaimsRepository creates the repository.
func NewPostgresClaimsRepository(db *sql.DB, logger *zap.Logger) *PostgresClaimsRepository {
	return &PostgresClaimsRepository{db: db, logger: logger}
}

var _ ClaimsRepository = (*PostgresClaimsRepository)(nil)

const claimColumns = `
	claim_id,
	claimant_id,
	claim_type_id,
	cause_id,
	start_date,
	end_date,
	days,
	salary,
	COALESCE(insurer_id, 0),
	COALESCE(service_id, 0),
	COALESCE(diagnosis_id, 0),
	status,
	submitted_at,
	COALESCE(rejection_message, ''),
	reviewer_id,
	case_number,
	filing_date,
	paid,
	admin_status_label,
	admin_class`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*domain.Claim, error) {
	var c domain.Claim
	err := row.Scan(
		&c.ClaimID,
		&c.ClaimantID,
		&c.ClaimTypeID,
		&c.CauseID,
		&c.StartDate,
		&c.EndDate,
		&c.Days,
		&c.Salary,
		&c.InsurerID,
		&c.ServiceID,
		&c.DiagnosisID,
		&c.Status,
		&c.SubmittedAt,
		&c.RejectionMessage,
		&c.ReviewerID,
		&c.CaseNumber,
		&c.FilingDate,
		&c.Paid,
		&c.AdminStatusLabel,
		&c.AdminClass,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateClaim inserts the claim. Deployments on an older schema without the
// reference columns get a second insert without them.
func (r *PostgresClaimsRepository) CreateClaim(ctx context.Context, c *domain.Claim) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("%w: claim is required", domain.ErrValidation)
	}
	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO claims (
			claimant_id, claim_type_id, cause_id, start_date, end_date, days, salary,
			insurer_id, service_id, diagnosis_id,
			status, submitted_at, rejection_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING claim_id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		c.ClaimantID, c.ClaimTypeID, c.CauseID, c.StartDate, c.EndDate, c.Days, c.Salary,
		c.InsurerID, c.ServiceID, c.DiagnosisID,
		c.Status, c.SubmittedAt, c.RejectionMessage,
	).Scan(&id)
	if err == nil {
		c.ClaimID = id
		return id, nil
	}
	if !isUndefinedColumn(err) {
		return 0, fmt.Errorf("failed to create claim: %w", err)
	}

	r.logger.Warn("claims insert hit undefined column, retrying with minimal columns", zap.Error(err))
	minimal := `
		INSERT INTO claims (
			claimant_id, claim_type_id, cause_id, start_date, end_date, days, salary,
			status, submitted_at, rejection_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING claim_id
	`
	err = r.db.QueryRowContext(ctx, minimal,
		c.ClaimantID, c.ClaimTypeID, c.CauseID, c.StartDate, c.EndDate, c.Days, c.Salary,
		c.Status, c.SubmittedAt, c.RejectionMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create claim (minimal columns): %w", err)
	}
	c.ClaimID = id
	return id, nil
}

// GetClaim returns the claim or domain.ErrNotFound.
func (r *PostgresClaimsRepository) GetClaim(ctx context.Context, claimID int64) (*domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE claim_id = $1`
	c, err := scanClaim(r.db.QueryRowContext(ctx, query, claimID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("claim %d: %w", claimID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return c, nil
}

// ListClaims applies filter and pagination.
func (r *PostgresClaimsRepository) ListClaims(ctx context.Context, filter domain.ClaimFilter, page domain.Pagination) ([]*domain.Claim, int, error) {
	page = page.Normalize()

	where := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if filter.Status != 0 {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.ClaimTypeID > 0 {
		where = append(where, fmt.Sprintf("claim_type_id = $%d", argIdx))
		args = append(args, filter.ClaimTypeID)
		argIdx++
	}
	if filter.ClaimantID > 0 {
		where = append(where, fmt.Sprintf("claimant_id = $%d", argIdx))
		args = append(args, filter.ClaimantID)
		argIdx++
	}
	if filter.SubmittedFrom != nil {
		where = append(where, fmt.Sprintf("submitted_at >= $%d", argIdx))
		args = append(args, *filter.SubmittedFrom)
		argIdx++
	}
	if filter.SubmittedTo != nil {
		where = append(where, fmt.Sprintf("submitted_at < $%d", argIdx))
		args = append(args, *filter.SubmittedTo)
		argIdx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM claims WHERE %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count claims: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM claims WHERE %s ORDER BY submitted_at DESC, claim_id DESC LIMIT $%d OFFSET $%d`,
		claimColumns, whereClause, argIdx, argIdx+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var out []*domain.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan claim: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate claims: %w", err)
	}
	return out, total, nil
}

// MutateClaim runs fn against the row locked with SELECT ... FOR UPDATE.
func (r *PostgresClaimsRepository) MutateClaim(ctx context.Context, claimID int64, fn func(c *domain.Claim) error) (*domain.Claim, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + claimColumns + ` FROM claims WHERE claim_id = $1 FOR UPDATE`
	c, err := scanClaim(tx.QueryRowContext(ctx, query, claimID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("claim %d: %w", claimID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock claim: %w", err)
	}

	if err := fn(c); err != nil {
		return nil, err
	}
	c.ClaimID = claimID

	update := `
		UPDATE claims SET
			start_date = $1,
			end_date = $2,
			days = $3,
			salary = $4,
			insurer_id = $5,
			service_id = $6,
			diagnosis_id = $7,
			status = $8,
			rejection_message = $9,
			reviewer_id = $10,
			case_number = $11,
			filing_date = $12,
			paid = $13,
			admin_status_label = $14,
			admin_class = $15
		WHERE claim_id = $16
	`
	_, err = tx.ExecContext(ctx, update,
		c.StartDate, c.EndDate, c.Days, c.Salary,
		nullableID(c.InsurerID), nullableID(c.ServiceID), nullableID(c.DiagnosisID),
		c.Status, c.RejectionMessage,
		c.ReviewerID, c.CaseNumber, c.FilingDate, c.Paid, c.AdminStatusLabel, c.AdminClass,
		claimID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update claim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim update: %w", err)
	}
	return c, nil
}

// DeleteClaim removes attachments first, then the claim row.
func (r *PostgresClaimsRepository) DeleteClaim(ctx context.Context, claimID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM claim_attachments WHERE claim_id = $1`, claimID); err != nil {
		return fmt.Errorf("failed to delete attachments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM claims WHERE claim_id = $1`, claimID)
	if err != nil {
		return fmt.Errorf("failed to delete claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("claim %d: %w", claimID, domain.ErrNotFound)
	}
	return tx.Commit()
}

// BulkUpdateStatus is a single set-based UPDATE. The rejection message only
// survives when the target is REJECTED.
func (r *PostgresClaimsRepository) BulkUpdateStatus(ctx context.Context, from, to domain.ClaimStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE claims
		SET status = $1,
		    rejection_message = CASE WHEN $1 = $3 THEN rejection_message ELSE '' END
		WHERE status = $2`, to, from, domain.StatusRejected)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// UpsertAttachment keeps one row per (claim_id, doc_type_id).
func (r *PostgresClaimsRepository) UpsertAttachment(ctx context.Context, a *domain.Attachment) (*domain.Attachment, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: attachment is required", domain.ErrValidation)
	}
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO claim_attachments (claim_id, doc_type_id, storage_ref, uploaded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (claim_id, doc_type_id) DO UPDATE SET
			storage_ref = EXCLUDED.storage_ref,
			uploaded_at = EXCLUDED.uploaded_at
		RETURNING attachment_id
	`
	out := *a
	err := r.db.QueryRowContext(ctx, query, a.ClaimID, a.DocTypeID, a.StorageRef, a.UploadedAt).Scan(&out.AttachmentID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return nil, fmt.Errorf("%w: attachment references missing claim or document type", domain.ErrIntegrity)
		}
		return nil, fmt.Errorf("failed to upsert attachment: %w", err)
	}
	return &out, nil
}

// ListAttachments returns the attachments of one claim ordered by doc type.
func (r *PostgresClaimsRepository) ListAttachments(ctx context.Context, claimID int64) ([]domain.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT attachment_id, claim_id, doc_type_id, storage_ref, uploaded_at
		FROM claim_attachments
		WHERE claim_id = $1
		ORDER BY doc_type_id
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var out []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.AttachmentID, &a.ClaimID, &a.DocTypeID, &a.StorageRef, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AttachedDocTypes returns the doc type ids attached to one claim.
func (r *PostgresClaimsRepository) AttachedDocTypes(ctx context.Context, claimID int64) ([]int64, error) {
	m, err := r.AttachedDocTypesFor(ctx, []int64{claimID})
	if err != nil {
		return nil, err
	}
	return m[claimID], nil
}

// AttachedDocTypesFor groups attached doc type ids by claim.
func (r *PostgresClaimsRepository) AttachedDocTypesFor(ctx context.Context, claimIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(claimIDs))
	if len(claimIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT claim_id, doc_type_id
		FROM claim_attachments
		WHERE claim_id = ANY($1)
		ORDER BY claim_id, doc_type_id
	`, pq.Array(claimIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query attached doc types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var claimID, docTypeID int64
		if err := rows.Scan(&claimID, &docTypeID); err != nil {
			return nil, fmt.Errorf("failed to scan attached doc type: %w", err)
		}
		out[claimID] = append(out[claimID], docTypeID)
	}
	return out, rows.Err()
}

func isUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42703"
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}
