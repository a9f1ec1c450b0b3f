package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	// Subject is the primary entity the action applies to: an external
	// badge ID or organization ID.
	Subject   string `json:"subject"`
	Actor     string `json:"actor,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Lifecycle actions recorded by the audit trail.
const (
	ActionBadgeIssued         = "badge_issued"
	ActionBadgeRevoked        = "badge_revoked"
	ActionEvidenceAdded       = "evidence_added"
	ActionOrganizationCreated = "organization_created"
	ActionOrganizationUpdated = "organization_updated"
	ActionOrganizationDeleted = "organization_deleted"
)
