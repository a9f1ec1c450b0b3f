package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/jaypee15/veirifire/pkg/domain-errors"
)

func TestNewExternalBadgeID_RoundTrips(t *testing.T) {
	generated := NewExternalBadgeID()

	parsed, err := ParseExternalBadgeID(generated.String())
	require.NoError(t, err)
	assert.Equal(t, generated, parsed)
}

func TestParseExternalBadgeID_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"missing prefix", "550e8400-e29b-41d4-a716-446655440000"},
		{"wrong prefix", "vc_550e8400-e29b-41d4-a716-446655440000"},
		{"prefix without uuid", "bdg_"},
		{"malformed uuid", "bdg_not-a-uuid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseExternalBadgeID(tc.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestParseRecipientType(t *testing.T) {
	for _, valid := range []string{"email", "url", "telephone", "blockchain"} {
		parsed, err := ParseRecipientType(valid)
		require.NoError(t, err)
		assert.Equal(t, RecipientType(valid), parsed)
	}

	_, err := ParseRecipientType("carrier-pigeon")
	require.Error(t, err)
}

func TestHostedVerification_URLShape(t *testing.T) {
	externalID := NewExternalBadgeID()

	verification := HostedVerification("https://badges.example.org", externalID)
	assert.Equal(t, VerificationTypeHosted, verification.Type)
	assert.Equal(t, "https://badges.example.org/badges/verify/"+externalID.String(), verification.URL)

	// A trailing slash on the base URL must not double up.
	withSlash := HostedVerification("https://badges.example.org/", externalID)
	assert.Equal(t, verification.URL, withSlash.URL)
}

func TestBadgeRevoke_NotIdempotent(t *testing.T) {
	badge := Badge{Name: "Gopher"}

	require.NoError(t, badge.Revoke("cheating detected"))
	assert.True(t, badge.Revoked)
	assert.Equal(t, "cheating detected", badge.RevocationReason)

	err := badge.Revoke("second attempt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	// The original reason survives the failed second attempt.
	assert.Equal(t, "cheating detected", badge.RevocationReason)
}

func TestBadgeAppendEvidence_PreservesOrder(t *testing.T) {
	badge := Badge{}

	badge.AppendEvidence(Evidence{ID: "first", Type: "url", Description: "a"})
	badge.AppendEvidence(Evidence{ID: "second", Type: "url", Description: "b"})
	badge.AppendEvidence(Evidence{ID: "third", Type: "url", Description: "c"})

	require.Len(t, badge.Evidence, 3)
	assert.Equal(t, "first", badge.Evidence[0].ID)
	assert.Equal(t, "second", badge.Evidence[1].ID)
	assert.Equal(t, "third", badge.Evidence[2].ID)
}

func TestBadgeExpired_BoundaryIsNotExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	noExpiry := Badge{}
	assert.False(t, noExpiry.Expired(now))

	atBoundary := Badge{Expires: &now}
	assert.False(t, atBoundary.Expired(now), "a badge expiring exactly now is still valid")

	past := now.Add(-time.Second)
	expired := Badge{Expires: &past}
	assert.True(t, expired.Expired(now))
}

func TestBadgeClone_IsDeep(t *testing.T) {
	expires := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	badge := Badge{
		Name:     "Original",
		Criteria: Criteria{Requirements: []string{"req-1"}},
		Evidence: []Evidence{{ID: "ev-1"}},
		Expires:  &expires,
	}

	clone := badge.Clone()
	clone.Criteria.Requirements[0] = "changed"
	clone.Evidence[0].ID = "changed"
	*clone.Expires = clone.Expires.AddDate(1, 0, 0)

	assert.Equal(t, "req-1", badge.Criteria.Requirements[0])
	assert.Equal(t, "ev-1", badge.Evidence[0].ID)
	assert.Equal(t, expires, *badge.Expires)
}

func TestRevokedStatus_CarriesReason(t *testing.T) {
	assert.Equal(t, "Badge revoked: issued in error", RevokedStatus("issued in error"))
}
