package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jaypee15/veirifire/internal/org/models"
	"github.com/jaypee15/veirifire/internal/sentinel"
	id "github.com/jaypee15/veirifire/pkg/domain"
)

const orgColumns = `id, name, description, url, email, created_at, updated_at`

// PostgresStore persists organizations in PostgreSQL. A unique index on
// lower(name) enforces case-insensitive name uniqueness; collisions surface
// as unique violations and map to sentinel.ErrAlreadyUsed.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed organization store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, org *models.Organization) error {
	if org == nil {
		return fmt.Errorf("organization is required")
	}
	query := `
		INSERT INTO organizations (name, description, url, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var orgID uuid.UUID
	err := s.db.QueryRowContext(ctx, query,
		org.Name,
		org.Description,
		org.URL,
		org.Email,
		org.CreatedAt,
		org.UpdatedAt,
	).Scan(&orgID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	org.ID = id.OrganizationID(orgID)
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, organizationID id.OrganizationID) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(organizationID)))
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations ORDER BY lower(name)`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, org *models.Organization) error {
	if org == nil {
		return fmt.Errorf("organization is required")
	}
	query := `
		UPDATE organizations
		SET name = $2, description = $3, url = $4, email = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(org.ID),
		org.Name,
		org.Description,
		org.URL,
		org.Email,
		org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, organizationID id.OrganizationID) (*models.Organization, error) {
	query := `DELETE FROM organizations WHERE id = $1 RETURNING ` + orgColumns
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(organizationID)))
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Organization, error) {
	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return org, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var (
		org         models.Organization
		orgID       uuid.UUID
		description sql.NullString
	)
	err := row.Scan(
		&orgID,
		&org.Name,
		&description,
		&org.URL,
		&org.Email,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	org.ID = id.OrganizationID(orgID)
	org.Description = description.String
	return &org, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
