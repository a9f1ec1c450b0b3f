package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jaypee15/veirifire/internal/audit"
	"github.com/jaypee15/veirifire/internal/org/models"
	"github.com/jaypee15/veirifire/internal/org/store"
	"github.com/jaypee15/veirifire/internal/sentinel"
	id "github.com/jaypee15/veirifire/pkg/domain"
	dErrors "github.com/jaypee15/veirifire/pkg/domain-errors"
	"github.com/jaypee15/veirifire/pkg/requestcontext"
)

// AuditPublisher emits audit events for organization lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Recorder counts organization registry outcomes.
type Recorder interface {
	IncrementCreated()
	IncrementUpdated()
	IncrementDeleted()
}

// Option configures the organization service.
type Option func(*Service)

// Service manages the organization registry. Badges snapshot issuer data at
// issuance, so registry edits and deletes never touch issued badges.
type Service struct {
	store   store.Store
	auditor AuditPublisher
	metrics Recorder
	logger  *slog.Logger
}

// NewService creates an organization service.
func NewService(store store.Store, opts ...Option) *Service {
	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithAuditor configures an audit publisher for the service.
func WithAuditor(auditor AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics configures registry metrics.
func WithMetrics(metrics Recorder) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// Create registers a new organization. Names are unique case-insensitively;
// a duplicate name is a conflict.
func (s *Service) Create(ctx context.Context, req models.CreateRequest) (*models.Organization, error) {
	now := requestcontext.Now(ctx)
	org := models.Organization{
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		Email:       req.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, &org); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "organization name is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create organization")
	}

	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionOrganizationCreated,
		Subject: org.ID.String(),
	})

	return &org, nil
}

// Get returns the organization with the given ID.
func (s *Service) Get(ctx context.Context, organizationID id.OrganizationID) (*models.Organization, error) {
	org, err := s.store.FindByID(ctx, organizationID)
	if err != nil {
		return nil, translateLookup(err)
	}
	return org, nil
}

// Organization satisfies the badge service's directory port.
func (s *Service) Organization(ctx context.Context, organizationID id.OrganizationID) (*models.Organization, error) {
	return s.Get(ctx, organizationID)
}

// List returns all organizations ordered by name.
func (s *Service) List(ctx context.Context) ([]*models.Organization, error) {
	orgs, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}
	return orgs, nil
}

// Update applies a partial update. Nil fields keep their stored value.
func (s *Service) Update(ctx context.Context, organizationID id.OrganizationID, req models.UpdateRequest) (*models.Organization, error) {
	org, err := s.store.FindByID(ctx, organizationID)
	if err != nil {
		return nil, translateLookup(err)
	}

	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.Description != nil {
		org.Description = *req.Description
	}
	if req.URL != nil {
		org.URL = *req.URL
	}
	if req.Email != nil {
		org.Email = *req.Email
	}
	org.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Update(ctx, org); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, "organization name is already registered")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update organization")
		}
	}

	if s.metrics != nil {
		s.metrics.IncrementUpdated()
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionOrganizationUpdated,
		Subject: org.ID.String(),
	})

	return org, nil
}

// Delete removes the organization from the registry. Badges already issued
// by it remain valid: their issuer snapshot was taken at issuance.
func (s *Service) Delete(ctx context.Context, organizationID id.OrganizationID) (*models.Organization, error) {
	org, err := s.store.Delete(ctx, organizationID)
	if err != nil {
		return nil, translateLookup(err)
	}

	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionOrganizationDeleted,
		Subject: org.ID.String(),
	})

	return org, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if event.Actor == "" {
		event.Actor = requestcontext.ClientIP(ctx)
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}

func translateLookup(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "organization not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "organization store failure")
}
