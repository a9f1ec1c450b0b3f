package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaypee15/veirifire/internal/org/models"
	"github.com/jaypee15/veirifire/internal/sentinel"
	id "github.com/jaypee15/veirifire/pkg/domain"
)

func newTestOrg(name string) *models.Organization {
	now := time.Now()
	return &models.Organization{
		Name:      name,
		URL:       "https://" + uuid.NewString() + ".example.org",
		Email:     "badges@example.org",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreate_AssignsID(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	org := newTestOrg("Gopher Academy")
	require.NoError(t, store.Create(ctx, org))
	require.False(t, org.ID.IsNil())

	found, err := store.FindByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gopher Academy", found.Name)
}

func TestCreate_DuplicateNameCaseInsensitive(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestOrg("Gopher Academy")))

	err := store.Create(ctx, newTestOrg("gopher academy"))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

	err = store.Create(ctx, newTestOrg("  Gopher Academy  "))
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestList_SortedByName(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	for _, name := range []string{"zeta guild", "Alpha Institute", "Mid College"} {
		require.NoError(t, store.Create(ctx, newTestOrg(name)))
	}

	orgs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 3)
	assert.Equal(t, "Alpha Institute", orgs[0].Name)
	assert.Equal(t, "Mid College", orgs[1].Name)
	assert.Equal(t, "zeta guild", orgs[2].Name)
}

func TestUpdate_RenameAndCollision(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	first := newTestOrg("First")
	second := newTestOrg("Second")
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	first.Name = "Renamed"
	require.NoError(t, store.Update(ctx, first))

	found, err := store.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.Name)

	// The old name is free again.
	require.NoError(t, store.Create(ctx, newTestOrg("First")))

	// Renaming onto another organization's name is rejected.
	second.Name = "renamed"
	err = store.Update(ctx, second)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

	// Keeping your own name is not a collision.
	found.Description = "updated"
	require.NoError(t, store.Update(ctx, found))
}

func TestUpdate_UnknownOrganization(t *testing.T) {
	store := NewInMemory()

	ghost := newTestOrg("Ghost")
	ghost.ID = id.OrganizationID(uuid.New())
	err := store.Update(context.Background(), ghost)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDelete_ReturnsRecordAndFreesName(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	org := newTestOrg("Ephemeral")
	require.NoError(t, store.Create(ctx, org))

	deleted, err := store.Delete(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, org.ID, deleted.ID)

	_, err = store.FindByID(ctx, org.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// Name becomes available after deletion.
	require.NoError(t, store.Create(ctx, newTestOrg("Ephemeral")))

	_, err = store.Delete(ctx, org.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
