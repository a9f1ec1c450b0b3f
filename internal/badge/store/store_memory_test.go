package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jaypee15/veirifire/internal/badge/models"
	"github.com/jaypee15/veirifire/internal/sentinel"
	id "github.com/jaypee15/veirifire/pkg/domain"
)

func newTestBadge(name, identity string, issuedOn time.Time) *models.Badge {
	externalID := models.NewExternalBadgeID()
	return &models.Badge{
		ExternalID:  externalID,
		Name:        name,
		Description: "A badge for " + name,
		Criteria:    models.Criteria{Narrative: "Complete the " + name + " track"},
		Issuer: models.IssuerSnapshot{
			OrganizationID: id.OrganizationID(uuid.New()),
			Name:           "Test Org",
		},
		Recipient: models.Recipient{
			Identity: identity,
			Type:     models.RecipientTypeEmail,
		},
		Verification: models.HostedVerification("http://localhost:8080", externalID),
		IssuedOn:     issuedOn,
	}
}

func TestCreate_AssignsIDAndFindsBack(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	badge := newTestBadge("Go Fundamentals", "dev@example.com", time.Now())
	require.NoError(t, store.Create(ctx, badge))
	require.False(t, badge.ID.IsNil())

	byID, err := store.FindByID(ctx, badge.ID)
	require.NoError(t, err)
	assert.Equal(t, badge.Name, byID.Name)

	byExternal, err := store.FindByExternalID(ctx, badge.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, badge.ID, byExternal.ID)
}

func TestCreate_DuplicateExternalIDRejected(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	first := newTestBadge("First", "a@example.com", time.Now())
	require.NoError(t, store.Create(ctx, first))

	second := newTestBadge("Second", "b@example.com", time.Now())
	second.ExternalID = first.ExternalID

	err := store.Create(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestFind_UnknownBadge(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	_, err := store.FindByID(ctx, id.BadgeID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = store.FindByExternalID(ctx, models.NewExternalBadgeID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestListAll_NewestFirst(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	oldest := newTestBadge("Oldest", "dev@example.com", base)
	middle := newTestBadge("Middle", "dev@example.com", base.Add(time.Hour))
	newest := newTestBadge("Newest", "dev@example.com", base.Add(2*time.Hour))
	for _, b := range []*models.Badge{middle, oldest, newest} {
		require.NoError(t, store.Create(ctx, b))
	}

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Newest", all[0].Name)
	assert.Equal(t, "Middle", all[1].Name)
	assert.Equal(t, "Oldest", all[2].Name)
}

func TestListByRecipient_ExcludesRevoked(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	now := time.Now()

	kept := newTestBadge("Kept", "dev@example.com", now)
	revoked := newTestBadge("Revoked", "dev@example.com", now.Add(time.Minute))
	other := newTestBadge("Other", "someone-else@example.com", now)
	for _, b := range []*models.Badge{kept, revoked, other} {
		require.NoError(t, store.Create(ctx, b))
	}
	_, err := store.Revoke(ctx, revoked.ID, "expired certification")
	require.NoError(t, err)

	badges, err := store.ListByRecipient(ctx, "dev@example.com")
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "Kept", badges[0].Name)
}

func TestListByRecipient_UnknownIdentityIsEmpty(t *testing.T) {
	store := NewInMemory()

	badges, err := store.ListByRecipient(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, badges)
}

func TestListByIssuer_IncludesRevoked(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	orgID := id.OrganizationID(uuid.New())
	now := time.Now()

	active := newTestBadge("Active", "a@example.com", now)
	active.Issuer.OrganizationID = orgID
	revoked := newTestBadge("Revoked", "b@example.com", now.Add(time.Minute))
	revoked.Issuer.OrganizationID = orgID
	foreign := newTestBadge("Foreign", "c@example.com", now)
	for _, b := range []*models.Badge{active, revoked, foreign} {
		require.NoError(t, store.Create(ctx, b))
	}
	_, err := store.Revoke(ctx, revoked.ID, "audit finding")
	require.NoError(t, err)

	badges, err := store.ListByIssuer(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, badges, 2)
}

func TestSearch_CaseInsensitiveAcrossFields(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	now := time.Now()

	byName := newTestBadge("Kubernetes Expert", "a@example.com", now)
	byDescription := newTestBadge("Ops Badge", "b@example.com", now)
	byDescription.Description = "Awarded for KUBERNETES operations"
	byNarrative := newTestBadge("Platform Badge", "c@example.com", now)
	byNarrative.Criteria.Narrative = "Run a kubernetes cluster in production"
	unrelated := newTestBadge("Baking Badge", "d@example.com", now)
	for _, b := range []*models.Badge{byName, byDescription, byNarrative, unrelated} {
		require.NoError(t, store.Create(ctx, b))
	}

	badges, err := store.Search(ctx, "kubernetes")
	require.NoError(t, err)
	assert.Len(t, badges, 3)
}

func TestRevoke_Transitions(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	badge := newTestBadge("Revocable", "dev@example.com", time.Now())
	require.NoError(t, store.Create(ctx, badge))

	revoked, err := store.Revoke(ctx, badge.ID, "policy violation")
	require.NoError(t, err)
	assert.True(t, revoked.Revoked)
	assert.Equal(t, "policy violation", revoked.RevocationReason)

	_, err = store.Revoke(ctx, badge.ID, "again")
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	_, err = store.Revoke(ctx, id.BadgeID(uuid.New()), "ghost")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRevoke_ConcurrentExactlyOneWinner(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	badge := newTestBadge("Contested", "dev@example.com", time.Now())
	require.NoError(t, store.Create(ctx, badge))

	const attempts = 16
	results := make([]error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, results[i] = store.Revoke(ctx, badge.ID, "race")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, sentinel.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestAppendEvidence_AccumulatesInOrder(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	badge := newTestBadge("Evidenced", "dev@example.com", time.Now())
	badge.Evidence = []models.Evidence{{ID: "seed", Type: "url", Description: "seed item"}}
	require.NoError(t, store.Create(ctx, badge))

	_, err := store.AppendEvidence(ctx, badge.ID, models.Evidence{ID: "second", Type: "url", Description: "more"})
	require.NoError(t, err)
	updated, err := store.AppendEvidence(ctx, badge.ID, models.Evidence{ID: "third", Type: "url", Description: "even more"})
	require.NoError(t, err)

	require.Len(t, updated.Evidence, 3)
	assert.Equal(t, "seed", updated.Evidence[0].ID)
	assert.Equal(t, "second", updated.Evidence[1].ID)
	assert.Equal(t, "third", updated.Evidence[2].ID)

	_, err = store.AppendEvidence(ctx, id.BadgeID(uuid.New()), models.Evidence{ID: "ghost"})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestAppendEvidence_RevokedBadgeStillAccepts(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	badge := newTestBadge("Revoked but documented", "dev@example.com", time.Now())
	require.NoError(t, store.Create(ctx, badge))
	_, err := store.Revoke(ctx, badge.ID, "superseded")
	require.NoError(t, err)

	updated, err := store.AppendEvidence(ctx, badge.ID, models.Evidence{ID: "late", Type: "url", Description: "historical record"})
	require.NoError(t, err)
	assert.True(t, updated.Revoked)
	require.Len(t, updated.Evidence, 1)
}

func TestStoreReturnsClones(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	badge := newTestBadge("Aliased", "dev@example.com", time.Now())
	require.NoError(t, store.Create(ctx, badge))

	first, err := store.FindByID(ctx, badge.ID)
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := store.FindByID(ctx, badge.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aliased", second.Name)
}
