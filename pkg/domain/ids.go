// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/jaypee15/veirifire/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a BadgeID where an
// OrganizationID is expected.
type (
	BadgeID        uuid.UUID
	OrganizationID uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseBadgeID(s string) (BadgeID, error) {
	id, err := parseUUID(s, "badge ID")
	return BadgeID(id), err
}

func ParseOrganizationID(s string) (OrganizationID, error) {
	id, err := parseUUID(s, "organization ID")
	return OrganizationID(id), err
}

// String methods - for logging and debugging.

func (id BadgeID) String() string        { return uuid.UUID(id).String() }
func (id OrganizationID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id BadgeID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id OrganizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling - IDs travel through JSON bodies as UUID strings, so the
// defined types must delegate to uuid.UUID instead of falling back to the
// byte-array encoding.

func (id BadgeID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id OrganizationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *BadgeID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

func (id *OrganizationID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here. Use IsNil() at the service layer for business
// validation, which lets store lookups return proper "not found" errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return id, nil
}
