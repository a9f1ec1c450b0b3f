//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/jaypee15/veirifire/internal/org/models"
	"github.com/jaypee15/veirifire/internal/org/store"
	"github.com/jaypee15/veirifire/internal/sentinel"
	id "github.com/jaypee15/veirifire/pkg/domain"
	"github.com/jaypee15/veirifire/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func newOrg(name string) *models.Organization {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Organization{
		Name:        name,
		Description: "An issuing body",
		URL:         "https://example.org",
		Email:       "badges@example.org",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()

	org := newOrg("Gopher Academy")
	s.Require().NoError(s.store.Create(ctx, org))
	s.Require().False(org.ID.IsNil())

	found, err := s.store.FindByID(ctx, org.ID)
	s.Require().NoError(err)
	s.Equal(org.Name, found.Name)
	s.Equal(org.Description, found.Description)
	s.Equal(org.URL, found.URL)
	s.Equal(org.Email, found.Email)
	s.True(found.CreatedAt.Equal(org.CreatedAt))
}

func (s *PostgresStoreSuite) TestCreateDuplicateNameCaseInsensitive() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, newOrg("Gopher Academy")))

	err := s.store.Create(ctx, newOrg("GOPHER ACADEMY"))
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

// TestConcurrentCreateSameName verifies the unique index lets exactly one of
// many concurrent registrations win.
func (s *PostgresStoreSuite) TestConcurrentCreateSameName() {
	ctx := context.Background()

	const goroutines = 10
	var wg sync.WaitGroup
	var winners atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Create(ctx, newOrg("Contested Name")); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
}

func (s *PostgresStoreSuite) TestListSortedByName() {
	ctx := context.Background()

	for _, name := range []string{"zeta guild", "Alpha Institute", "Mid College"} {
		s.Require().NoError(s.store.Create(ctx, newOrg(name)))
	}

	orgs, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(orgs, 3)
	s.Equal("Alpha Institute", orgs[0].Name)
	s.Equal("Mid College", orgs[1].Name)
	s.Equal("zeta guild", orgs[2].Name)
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()

	org := newOrg("Original")
	s.Require().NoError(s.store.Create(ctx, org))
	other := newOrg("Taken")
	s.Require().NoError(s.store.Create(ctx, other))

	org.Name = "Renamed"
	org.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.Update(ctx, org))

	found, err := s.store.FindByID(ctx, org.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", found.Name)

	// Renaming onto another organization's name is rejected.
	org.Name = "taken"
	err = s.store.Update(ctx, org)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	// Unknown organizations report not found.
	ghost := newOrg("Ghost")
	ghost.ID = id.OrganizationID(uuid.New())
	err = s.store.Update(ctx, ghost)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()

	org := newOrg("Ephemeral")
	s.Require().NoError(s.store.Create(ctx, org))

	deleted, err := s.store.Delete(ctx, org.ID)
	s.Require().NoError(err)
	s.Equal(org.ID, deleted.ID)

	_, err = s.store.FindByID(ctx, org.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Delete(ctx, org.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
