package store

import (
	"context"

	"github.com/jaypee15/veirifire/internal/org/models"
	id "github.com/jaypee15/veirifire/pkg/domain"
)

// Store persists organizations. Implementations return sentinel errors
// (sentinel.ErrNotFound, sentinel.ErrAlreadyUsed) so the service can
// translate them into domain errors exactly once.
//
// Organization names are unique case-insensitively. Uniqueness is enforced
// at the store so concurrent registrations cannot both win.
type Store interface {
	// Create persists a new organization and assigns its ID.
	// Returns sentinel.ErrAlreadyUsed if the name is already registered.
	Create(ctx context.Context, org *models.Organization) error

	FindByID(ctx context.Context, organizationID id.OrganizationID) (*models.Organization, error)

	// List returns every organization ordered by name.
	List(ctx context.Context) ([]*models.Organization, error)

	// Update replaces the stored record. Returns sentinel.ErrNotFound if the
	// organization does not exist and sentinel.ErrAlreadyUsed if the new
	// name collides with another organization.
	Update(ctx context.Context, org *models.Organization) error

	// Delete removes the organization and returns the deleted record.
	// Issued badges keep their issuer snapshot; deletion never cascades.
	Delete(ctx context.Context, organizationID id.OrganizationID) (*models.Organization, error)
}
