package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"incapacity-claims/internal/domain"
)

// PostgresRequirementsRepository reads claim_requirements.
type PostgresRequirementsRepository struct {
	db *sql.DB
}

func NewPostgresRequirementsRepository(db *sql.DB) *PostgresRequirementsRepository {
	return &PostgresRequirementsRepository{db: db}
}

var _ RequirementsRepository = (*PostgresRequirementsRepository)(nil)

func (r *PostgresRequirementsRepository) RequiredDocTypes(ctx context.Context, claimTypeID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT doc_type_id FROM claim_requirements
		WHERE claim_type_id = $1
		ORDER BY doc_type_id
	`, claimTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirements: %w", err)
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *PostgresRequirementsRepository) ListRequirements(ctx context.Context) ([]domain.DocumentRequirement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT claim_type_id, doc_type_id FROM claim_requirements
		ORDER BY claim_type_id, doc_type_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentRequirement
	for rows.Next() {
		var req domain.DocumentRequirement
		if err := rows.Scan(&req.ClaimTypeID, &req.DocTypeID); err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ReplaceRequirements deletes and re-inserts the rows of one claim type in a transaction.
func (r *PostgresRequirementsRepository) ReplaceRequirements(ctx context.Context, claimTypeID int64, docTypeIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM claim_requirements WHERE claim_type_id = $1`, claimTypeID); err != nil {
		return fmt.Errorf("failed to clear requirements: %w", err)
	}
	if len(docTypeIDs) > 0 {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO claim_requirements (claim_type_id, doc_type_id)
			SELECT $1, unnest($2::bigint[])
			ON CONFLICT DO NOTHING
		`, claimTypeID, pq.Array(docTypeIDs))
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23503" {
				return fmt.Errorf("%w: unknown claim type or document type", domain.ErrIntegrity)
			}
			return fmt.Errorf("failed to insert requirements: %w", err)
		}
	}
	return tx.Commit()
}

// PostgresCatalogRepository reads claim_types, document_types and catalog_items.
type PostgresCatalogRepository struct {
	db *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

var _ CatalogRepository = (*PostgresCatalogRepository)(nil)

func (r *PostgresCatalogRepository) GetClaimType(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	return r.getOne(ctx, `SELECT claim_type_id, name, COALESCE(description, '') FROM claim_types WHERE claim_type_id = $1`, "claim type", id)
}

func (r *PostgresCatalogRepository) ListClaimTypes(ctx context.Context) ([]domain.CatalogItem, error) {
	return r.list(ctx, `SELECT claim_type_id, name, COALESCE(description, '') FROM claim_types ORDER BY claim_type_id`)
}

func (r *PostgresCatalogRepository) GetDocumentType(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	return r.getOne(ctx, `SELECT doc_type_id, name, COALESCE(description, '') FROM document_types WHERE doc_type_id = $1`, "document type", id)
}

func (r *PostgresCatalogRepository) ListDocumentTypes(ctx context.Context) ([]domain.CatalogItem, error) {
	return r.list(ctx, `SELECT doc_type_id, name, COALESCE(description, '') FROM document_types ORDER BY doc_type_id`)
}

func (r *PostgresCatalogRepository) ListItems(ctx context.Context, kind domain.CatalogKind) ([]domain.CatalogItem, error) {
	return r.list(ctx, `SELECT item_id, name, COALESCE(description, '') FROM catalog_items WHERE kind = $1 ORDER BY item_id`, string(kind))
}

func (r *PostgresCatalogRepository) getOne(ctx context.Context, query, what string, id int64) (*domain.CatalogItem, error) {
	var it domain.CatalogItem
	err := r.db.QueryRowContext(ctx, query, id).Scan(&it.ID, &it.Name, &it.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return &it, nil
}

func (r *PostgresCatalogRepository) list(ctx context.Context, query string, args ...any) ([]domain.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var out []domain.CatalogItem
	for rows.Next() {
		var it domain.CatalogItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Description); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// PostgresUsersRepository reads users.
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `user_id, full_name, COALESCE(email, ''), role, active`

func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID).
		Scan(&u.UserID, &u.FullName, &u.Email, &u.Role, &u.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *PostgresUsersRepository) ListUsersByIDs(ctx context.Context, userIDs []int64) (map[int64]domain.User, error) {
	out := make(map[int64]domain.User, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ANY($1)`, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.UserID, &u.FullName, &u.Email, &u.Role, &u.Active); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out[u.UserID] = u
	}
	return out, rows.Err()
}

func (r *PostgresUsersRepository) ListActiveByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = $1 AND active = TRUE
		ORDER BY user_id
	`, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.UserID, &u.FullName, &u.Email, &u.Role, &u.Active); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
