package store

import (
	"context"

	"github.com/jaypee15/veirifire/internal/badge/models"
	id "github.com/jaypee15/veirifire/pkg/domain"
)

// Store persists badges. Implementations return sentinel errors
// (sentinel.ErrNotFound, sentinel.ErrAlreadyUsed, sentinel.ErrInvalidState)
// so the service can translate them into domain errors exactly once.
//
// Revoke and AppendEvidence are atomic at the store level: two concurrent
// revokes of one badge must resolve to exactly one winner, and concurrent
// evidence appends must not lose entries. The in-memory store serializes
// under a mutex; the Postgres store uses conditional single-statement
// updates.
type Store interface {
	// Create persists a new badge and assigns its internal ID.
	// Returns sentinel.ErrAlreadyUsed if the external ID is already taken.
	Create(ctx context.Context, badge *models.Badge) error

	FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	FindByExternalID(ctx context.Context, externalID models.ExternalBadgeID) (*models.Badge, error)

	// ListAll returns every badge, newest first by issuedOn.
	ListAll(ctx context.Context) ([]*models.Badge, error)

	// ListByRecipient returns non-revoked badges for the recipient identity,
	// newest first by issuedOn.
	ListByRecipient(ctx context.Context, identity string) ([]*models.Badge, error)

	// ListByIssuer returns all badges, revoked included, whose issuer
	// snapshot references the organization, newest first by issuedOn.
	ListByIssuer(ctx context.Context, organizationID id.OrganizationID) ([]*models.Badge, error)

	// Search matches the query case-insensitively as a substring of name,
	// description, or criteria narrative.
	Search(ctx context.Context, query string) ([]*models.Badge, error)

	// Revoke atomically marks the badge revoked and records the reason.
	// Returns sentinel.ErrNotFound if the badge does not exist and
	// sentinel.ErrInvalidState if it is already revoked.
	Revoke(ctx context.Context, badgeID id.BadgeID, reason string) (*models.Badge, error)

	// AppendEvidence atomically appends one evidence item, preserving all
	// prior entries and their order. Returns sentinel.ErrNotFound if the
	// badge does not exist.
	AppendEvidence(ctx context.Context, badgeID id.BadgeID, item models.Evidence) (*models.Badge, error)
}
