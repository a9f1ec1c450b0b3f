package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "github.com/jaypee15/veirifire/pkg/domain"
	dErrors "github.com/jaypee15/veirifire/pkg/domain-errors"
)

const externalIDPrefix = "bdg_"

// ExternalBadgeID is the public, shareable credential reference embedded in
// verification links. It is generated once at issuance and never changes.
// The internal badge ID stays a storage handle; this is the value that
// crosses the trust boundary.
type ExternalBadgeID string

// NewExternalBadgeID generates a new external badge ID with a stable prefix.
func NewExternalBadgeID() ExternalBadgeID {
	return ExternalBadgeID(externalIDPrefix + uuid.NewString())
}

// ParseExternalBadgeID validates and parses an external badge ID string.
func ParseExternalBadgeID(value string) (ExternalBadgeID, error) {
	if strings.TrimSpace(value) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "badge ID is required")
	}
	if !strings.HasPrefix(value, externalIDPrefix) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "badge ID must start with bdg_")
	}
	if _, err := uuid.Parse(strings.TrimPrefix(value, externalIDPrefix)); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid badge ID format")
	}
	return ExternalBadgeID(value), nil
}

// String returns the external badge ID as a string.
func (e ExternalBadgeID) String() string {
	return string(e)
}

// RecipientType tags how a recipient identity should be interpreted.
type RecipientType string

const (
	RecipientTypeEmail      RecipientType = "email"
	RecipientTypeURL        RecipientType = "url"
	RecipientTypeTelephone  RecipientType = "telephone"
	RecipientTypeBlockchain RecipientType = "blockchain"
)

// ParseRecipientType validates a recipient type string and returns the domain type.
func ParseRecipientType(value string) (RecipientType, error) {
	switch RecipientType(value) {
	case RecipientTypeEmail, RecipientTypeURL, RecipientTypeTelephone, RecipientTypeBlockchain:
		return RecipientType(value), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "recipient type must be one of email, url, telephone, blockchain")
	}
}

// VerificationTypeHosted is the only verification scheme this service issues:
// the badge is verified by dereferencing a URL hosted here.
const VerificationTypeHosted = "hosted"

// Criteria describes what the recipient did to earn the badge.
type Criteria struct {
	Narrative    string   `json:"narrative"`
	Requirements []string `json:"requirements"`
	URL          string   `json:"url,omitempty"`
}

// IssuerSnapshot is the issuing organization as of issuance time. It is
// denormalized on purpose: later edits to the organization record must not
// retroactively change issued badges.
type IssuerSnapshot struct {
	OrganizationID id.OrganizationID `json:"organizationId"`
	Name           string            `json:"name"`
	URL            string            `json:"url"`
	Email          string            `json:"email"`
}

// Recipient identifies who the badge was issued to.
// Salt is only meaningful when Hashed is true.
type Recipient struct {
	Identity string        `json:"identity"`
	Type     RecipientType `json:"type"`
	Hashed   bool          `json:"hashed"`
	Salt     string        `json:"salt,omitempty"`
}

// Evidence is one supporting artifact attached to a badge. The evidence list
// is append-only: entries are never reordered or removed.
type Evidence struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Description string `json:"description"`
	Narrative   string `json:"narrative,omitempty"`
}

// Alignment references an external competency framework. Pass-through data:
// no core operation mutates it after creation.
type Alignment struct {
	TargetName        string `json:"targetName"`
	TargetURL         string `json:"targetUrl"`
	TargetDescription string `json:"targetDescription,omitempty"`
	TargetFramework   string `json:"targetFramework,omitempty"`
	TargetCode        string `json:"targetCode,omitempty"`
}

// Verification tells relying parties how to check the badge's status.
type Verification struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// HostedVerification builds the verification descriptor for an external ID.
// The URL must exactly match the route the verify handler serves.
func HostedVerification(baseURL string, externalID ExternalBadgeID) Verification {
	return Verification{
		Type: VerificationTypeHosted,
		URL:  strings.TrimRight(baseURL, "/") + "/badges/verify/" + externalID.String(),
	}
}

// Badge is an issued credential. The internal ID is store-assigned; the
// external ID is the public reference.
type Badge struct {
	ID               id.BadgeID      `json:"id"`
	ExternalID       ExternalBadgeID `json:"badgeId"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Image            string          `json:"image"`
	Criteria         Criteria        `json:"criteria"`
	Issuer           IssuerSnapshot  `json:"issuer"`
	Recipient        Recipient       `json:"recipient"`
	Evidence         []Evidence      `json:"evidence,omitempty"`
	Alignment        []Alignment     `json:"alignment,omitempty"`
	Verification     Verification    `json:"verification"`
	Revoked          bool            `json:"revoked"`
	RevocationReason string          `json:"revocationReason,omitempty"`
	Expires          *time.Time      `json:"expires,omitempty"`
	IssuedOn         time.Time       `json:"issuedOn"`
}

// Revoke transitions the badge to revoked. Revocation is not idempotent:
// a second attempt is an invariant violation so accidental double revocations
// surface to the caller instead of being silently absorbed.
func (b *Badge) Revoke(reason string) error {
	if b.Revoked {
		return dErrors.New(dErrors.CodeInvariantViolation, "badge is already revoked")
	}
	b.Revoked = true
	b.RevocationReason = reason
	return nil
}

// AppendEvidence adds one evidence item to the end of the list, initializing
// the list if previously absent. Revoked badges still accept evidence:
// evidence is historical record, not a grant of status.
func (b *Badge) AppendEvidence(item Evidence) {
	b.Evidence = append(b.Evidence, item)
}

// Expired reports whether the badge's expiry is set and strictly before now.
func (b *Badge) Expired(now time.Time) bool {
	return b.Expires != nil && b.Expires.Before(now)
}

// Clone returns a deep copy so callers can hand out badges without aliasing
// store-owned state.
func (b *Badge) Clone() *Badge {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Criteria.Requirements = append([]string(nil), b.Criteria.Requirements...)
	clone.Evidence = append([]Evidence(nil), b.Evidence...)
	clone.Alignment = append([]Alignment(nil), b.Alignment...)
	if b.Expires != nil {
		expires := *b.Expires
		clone.Expires = &expires
	}
	return &clone
}

// IssueRequest captures the data required to issue a badge. Structural
// validation happens at the handler; the service enforces domain rules only.
type IssueRequest struct {
	Name           string
	Description    string
	Image          string
	Criteria       Criteria
	OrganizationID id.OrganizationID
	Recipient      Recipient
	Evidence       []Evidence
	Alignment      []Alignment
	Expires        *time.Time
}

// Verification status strings returned to relying parties. The exact values
// are part of the public verification contract.
const (
	StatusValid    = "Valid"
	StatusNotFound = "Badge not found"
	StatusExpired  = "Badge has expired"

	statusRevokedPrefix = "Badge revoked: "
)

// RevokedStatus builds the status string for a revoked badge, carrying the
// recorded revocation reason.
func RevokedStatus(reason string) string {
	return statusRevokedPrefix + reason
}

// VerificationResult reports the current standing of a badge. An invalid
// badge is an expected outcome of verification, never an error.
type VerificationResult struct {
	Valid  bool   `json:"valid"`
	Status string `json:"status"`
	Badge  *Badge `json:"badge,omitempty"`
}
