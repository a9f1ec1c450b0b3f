package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jaypee15/veirifire/internal/badge/models"
	"github.com/jaypee15/veirifire/internal/sentinel"
	id "github.com/jaypee15/veirifire/pkg/domain"
)

const badgeColumns = `
	id, external_id, name, description, image, criteria, issuer, recipient,
	evidence, alignment, verification, revoked, revocation_reason, expires, issued_on`

// PostgresStore persists badges in PostgreSQL. Nested documents (criteria,
// issuer snapshot, recipient, evidence, alignment, verification) live in
// JSONB columns; the fields used for lookups and for the conditional revoke
// are promoted to real columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed badge store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, badge *models.Badge) error {
	if badge == nil {
		return fmt.Errorf("badge is required")
	}
	criteria, issuer, recipient, evidence, alignment, verification, err := encodeBadgeDocs(badge)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO badges (
			external_id, name, description, image, criteria, issuer, issuer_org_id,
			recipient, recipient_identity, evidence, alignment, verification,
			revoked, revocation_reason, expires, issued_on
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	var badgeID uuid.UUID
	err = s.db.QueryRowContext(ctx, query,
		badge.ExternalID.String(),
		badge.Name,
		badge.Description,
		badge.Image,
		criteria,
		issuer,
		uuid.UUID(badge.Issuer.OrganizationID),
		recipient,
		badge.Recipient.Identity,
		evidence,
		alignment,
		verification,
		badge.Revoked,
		nullString(badge.RevocationReason, badge.Revoked),
		badge.Expires,
		badge.IssuedOn,
	).Scan(&badgeID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("external badge ID already in use: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create badge: %w", err)
	}
	badge.ID = id.BadgeID(badgeID)
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges WHERE id = $1`
	badge, err := scanBadge(s.db.QueryRowContext(ctx, query, uuid.UUID(badgeID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find badge by id: %w", err)
	}
	return badge, nil
}

func (s *PostgresStore) FindByExternalID(ctx context.Context, externalID models.ExternalBadgeID) (*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges WHERE external_id = $1`
	badge, err := scanBadge(s.db.QueryRowContext(ctx, query, externalID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find badge by external id: %w", err)
	}
	return badge, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges ORDER BY issued_on DESC`
	return s.queryBadges(ctx, "list badges", query)
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, identity string) ([]*models.Badge, error) {
	query := `SELECT ` + badgeColumns + `
		FROM badges
		WHERE recipient_identity = $1 AND revoked = FALSE
		ORDER BY issued_on DESC`
	return s.queryBadges(ctx, "list badges by recipient", query, identity)
}

func (s *PostgresStore) ListByIssuer(ctx context.Context, organizationID id.OrganizationID) ([]*models.Badge, error) {
	query := `SELECT ` + badgeColumns + `
		FROM badges
		WHERE issuer_org_id = $1
		ORDER BY issued_on DESC`
	return s.queryBadges(ctx, "list badges by issuer", query, uuid.UUID(organizationID))
}

func (s *PostgresStore) Search(ctx context.Context, query string) ([]*models.Badge, error) {
	sqlQuery := `SELECT ` + badgeColumns + `
		FROM badges
		WHERE name ILIKE $1
			OR description ILIKE $1
			OR criteria->>'narrative' ILIKE $1
		ORDER BY issued_on DESC`
	return s.queryBadges(ctx, "search badges", sqlQuery, "%"+escapeLike(query)+"%")
}

// Revoke flips the revoked flag in a single conditional statement. Zero rows
// affected means the badge either does not exist or is already revoked; a
// follow-up probe distinguishes the two. Concurrent revokes therefore resolve
// to exactly one winner at the database.
func (s *PostgresStore) Revoke(ctx context.Context, badgeID id.BadgeID, reason string) (*models.Badge, error) {
	query := `
		UPDATE badges
		SET revoked = TRUE, revocation_reason = $2
		WHERE id = $1 AND revoked = FALSE
		RETURNING ` + badgeColumns
	badge, err := scanBadge(s.db.QueryRowContext(ctx, query, uuid.UUID(badgeID), reason))
	if err == nil {
		return badge, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revoke badge: %w", err)
	}

	var exists bool
	if probeErr := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM badges WHERE id = $1)`, uuid.UUID(badgeID),
	).Scan(&exists); probeErr != nil {
		return nil, fmt.Errorf("revoke badge probe: %w", probeErr)
	}
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return nil, sentinel.ErrInvalidState
}

// AppendEvidence appends one item to the JSONB evidence array in a single
// statement, so concurrent appends cannot lose entries.
func (s *PostgresStore) AppendEvidence(ctx context.Context, badgeID id.BadgeID, item models.Evidence) (*models.Badge, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode evidence: %w", err)
	}
	query := `
		UPDATE badges
		SET evidence = COALESCE(evidence, '[]'::jsonb) || $2::jsonb
		WHERE id = $1
		RETURNING ` + badgeColumns
	badge, err := scanBadge(s.db.QueryRowContext(ctx, query, uuid.UUID(badgeID), payload))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("append evidence: %w", err)
	}
	return badge, nil
}

func (s *PostgresStore) queryBadges(ctx context.Context, op, query string, args ...any) ([]*models.Badge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var badges []*models.Badge
	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		badges = append(badges, badge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return badges, nil
}

type badgeRow interface {
	Scan(dest ...any) error
}

func scanBadge(row badgeRow) (*models.Badge, error) {
	var (
		badge            models.Badge
		badgeID          uuid.UUID
		externalID       string
		criteriaBytes    []byte
		issuerBytes      []byte
		recipientBytes   []byte
		evidenceBytes    []byte
		alignmentBytes   []byte
		verifBytes       []byte
		revocationReason sql.NullString
		expires          sql.NullTime
	)
	if err := row.Scan(
		&badgeID, &externalID, &badge.Name, &badge.Description, &badge.Image,
		&criteriaBytes, &issuerBytes, &recipientBytes,
		&evidenceBytes, &alignmentBytes, &verifBytes,
		&badge.Revoked, &revocationReason, &expires, &badge.IssuedOn,
	); err != nil {
		return nil, err
	}

	badge.ID = id.BadgeID(badgeID)
	badge.ExternalID = models.ExternalBadgeID(externalID)
	if revocationReason.Valid {
		badge.RevocationReason = revocationReason.String
	}
	if expires.Valid {
		t := expires.Time
		badge.Expires = &t
	}

	for _, doc := range []struct {
		data   []byte
		target any
	}{
		{criteriaBytes, &badge.Criteria},
		{issuerBytes, &badge.Issuer},
		{recipientBytes, &badge.Recipient},
		{verifBytes, &badge.Verification},
	} {
		if err := json.Unmarshal(doc.data, doc.target); err != nil {
			return nil, fmt.Errorf("decode badge document: %w", err)
		}
	}
	if len(evidenceBytes) > 0 {
		if err := json.Unmarshal(evidenceBytes, &badge.Evidence); err != nil {
			return nil, fmt.Errorf("decode badge evidence: %w", err)
		}
	}
	if len(alignmentBytes) > 0 {
		if err := json.Unmarshal(alignmentBytes, &badge.Alignment); err != nil {
			return nil, fmt.Errorf("decode badge alignment: %w", err)
		}
	}
	return &badge, nil
}

func encodeBadgeDocs(badge *models.Badge) (criteria, issuer, recipient, evidence, alignment, verification []byte, err error) {
	if criteria, err = json.Marshal(badge.Criteria); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("encode criteria: %w", err)
	}
	if issuer, err = json.Marshal(badge.Issuer); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("encode issuer: %w", err)
	}
	if recipient, err = json.Marshal(badge.Recipient); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("encode recipient: %w", err)
	}
	if badge.Evidence == nil {
		evidence = []byte("[]")
	} else if evidence, err = json.Marshal(badge.Evidence); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("encode evidence: %w", err)
	}
	if badge.Alignment != nil {
		if alignment, err = json.Marshal(badge.Alignment); err != nil {
			return nil, nil, nil, nil, nil, nil, fmt.Errorf("encode alignment: %w", err)
		}
	}
	if verification, err = json.Marshal(badge.Verification); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("encode verification: %w", err)
	}
	return criteria, issuer, recipient, evidence, alignment, verification, nil
}

func nullString(s string, valid bool) sql.NullString {
	return sql.NullString{String: s, Valid: valid}
}

// likeEscaper escapes LIKE wildcards so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
