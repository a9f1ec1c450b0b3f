package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jaypee15/veirifire/internal/org/models"
	"github.com/jaypee15/veirifire/internal/sentinel"
	id "github.com/jaypee15/veirifire/pkg/domain"
)

// InMemory stores organizations in memory. The name index is keyed by the
// lowercased name so uniqueness is case-insensitive, matching the Postgres
// unique index on lower(name).
type InMemory struct {
	mu      sync.RWMutex
	orgs    map[id.OrganizationID]*models.Organization
	nameIdx map[string]id.OrganizationID
}

// NewInMemory creates an in-memory organization store.
func NewInMemory() *InMemory {
	return &InMemory{
		orgs:    make(map[id.OrganizationID]*models.Organization),
		nameIdx: make(map[string]id.OrganizationID),
	}
}

func (s *InMemory) Create(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nameKey(org.Name)
	if _, exists := s.nameIdx[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	org.ID = id.OrganizationID(uuid.New())
	s.orgs[org.ID] = org.Clone()
	s.nameIdx[key] = org.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, organizationID id.OrganizationID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if org, ok := s.orgs[organizationID]; ok {
		return org.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		out = append(out, org.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return nameKey(out[i].Name) < nameKey(out[j].Name)
	})
	return out, nil
}

func (s *InMemory) Update(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orgs[org.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	newKey := nameKey(org.Name)
	if owner, taken := s.nameIdx[newKey]; taken && owner != org.ID {
		return sentinel.ErrAlreadyUsed
	}
	delete(s.nameIdx, nameKey(current.Name))
	s.nameIdx[newKey] = org.ID
	s.orgs[org.ID] = org.Clone()
	return nil
}

func (s *InMemory) Delete(_ context.Context, organizationID id.OrganizationID) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[organizationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.orgs, organizationID)
	delete(s.nameIdx, nameKey(org.Name))
	return org, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
