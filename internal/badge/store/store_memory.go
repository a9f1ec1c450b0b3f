package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jaypee15/veirifire/internal/badge/models"
	"github.com/jaypee15/veirifire/internal/sentinel"
	id "github.com/jaypee15/veirifire/pkg/domain"
)

// InMemory stores badges in memory. All mutations run under one mutex, which
// gives the same exactly-one-winner revoke semantics as the conditional
// updates in the Postgres store.
type InMemory struct {
	mu          sync.RWMutex
	badges      map[id.BadgeID]*models.Badge
	externalIdx map[models.ExternalBadgeID]id.BadgeID
}

// NewInMemory creates an in-memory badge store.
func NewInMemory() *InMemory {
	return &InMemory{
		badges:      make(map[id.BadgeID]*models.Badge),
		externalIdx: make(map[models.ExternalBadgeID]id.BadgeID),
	}
}

func (s *InMemory) Create(_ context.Context, badge *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.externalIdx[badge.ExternalID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	badge.ID = id.BadgeID(uuid.New())
	s.badges[badge.ID] = badge.Clone()
	s.externalIdx[badge.ExternalID] = badge.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.badges[badgeID]; ok {
		return b.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByExternalID(_ context.Context, externalID models.ExternalBadgeID) (*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if badgeID, ok := s.externalIdx[externalID]; ok {
		return s.badges[badgeID].Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*models.Badge) bool { return true }), nil
}

func (s *InMemory) ListByRecipient(_ context.Context, identity string) ([]*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(b *models.Badge) bool {
		return !b.Revoked && b.Recipient.Identity == identity
	}), nil
}

func (s *InMemory) ListByIssuer(_ context.Context, organizationID id.OrganizationID) ([]*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(b *models.Badge) bool {
		return b.Issuer.OrganizationID == organizationID
	}), nil
}

func (s *InMemory) Search(_ context.Context, query string) ([]*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	return s.collect(func(b *models.Badge) bool {
		return strings.Contains(strings.ToLower(b.Name), q) ||
			strings.Contains(strings.ToLower(b.Description), q) ||
			strings.Contains(strings.ToLower(b.Criteria.Narrative), q)
	}), nil
}

func (s *InMemory) Revoke(_ context.Context, badgeID id.BadgeID, reason string) (*models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[badgeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if b.Revoked {
		return nil, sentinel.ErrInvalidState
	}
	b.Revoked = true
	b.RevocationReason = reason
	return b.Clone(), nil
}

func (s *InMemory) AppendEvidence(_ context.Context, badgeID id.BadgeID, item models.Evidence) (*models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[badgeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	b.Evidence = append(b.Evidence, item)
	return b.Clone(), nil
}

// collect returns clones of matching badges, newest first by issuedOn.
// Caller must hold at least the read lock.
func (s *InMemory) collect(match func(*models.Badge) bool) []*models.Badge {
	var out []*models.Badge
	for _, b := range s.badges {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IssuedOn.After(out[j].IssuedOn)
	})
	return out
}
