package models

import (
	"time"

	id "github.com/jaypee15/veirifire/pkg/domain"
)

// Organization is an issuing body registered with the service. Badge issuers
// snapshot these fields at issuance time, so edits here never rewrite history.
type Organization struct {
	ID          id.OrganizationID `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	URL         string            `json:"url"`
	Email       string            `json:"email"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Clone returns a copy so callers cannot alias store-owned state.
func (o *Organization) Clone() *Organization {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

// CreateRequest carries the fields for registering an organization.
type CreateRequest struct {
	Name        string
	Description string
	URL         string
	Email       string
}

// UpdateRequest carries a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	Name        *string
	Description *string
	URL         *string
	Email       *string
}
