package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jaypee15/veirifire/internal/audit"
	"github.com/jaypee15/veirifire/internal/badge/models"
	"github.com/jaypee15/veirifire/internal/badge/store"
	orgmodels "github.com/jaypee15/veirifire/internal/org/models"
	"github.com/jaypee15/veirifire/internal/sentinel"
	id "github.com/jaypee15/veirifire/pkg/domain"
	dErrors "github.com/jaypee15/veirifire/pkg/domain-errors"
	"github.com/jaypee15/veirifire/pkg/requestcontext"
)

// OrganizationDirectory resolves issuing organizations at issuance time.
type OrganizationDirectory interface {
	Organization(ctx context.Context, organizationID id.OrganizationID) (*orgmodels.Organization, error)
}

// AuditPublisher emits audit events for badge lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// VerificationCache is a read-through cache for verification lookups keyed by
// external badge ID. Misses surface as sentinel.ErrNotFound.
type VerificationCache interface {
	FindByExternalID(ctx context.Context, externalID models.ExternalBadgeID) (*models.Badge, error)
	Save(ctx context.Context, badge *models.Badge) error
	Invalidate(ctx context.Context, externalID models.ExternalBadgeID) error
}

// Recorder counts badge lifecycle outcomes.
type Recorder interface {
	IncrementBadgesIssued()
	IncrementBadgesRevoked()
	IncrementEvidenceAdded()
	IncrementVerifications(outcome string)
	ObserveIssueLatency(seconds float64)
}

// Option configures the badge service.
type Option func(*Service)

// Service runs the badge lifecycle: issuance, lookup, revocation, evidence
// and hosted verification.
type Service struct {
	store     store.Store
	directory OrganizationDirectory
	baseURL   string
	auditor   AuditPublisher
	cache     VerificationCache
	metrics   Recorder
	logger    *slog.Logger
}

// NewService creates a badge service. baseURL is the public origin embedded
// into hosted verification URLs.
func NewService(store store.Store, directory OrganizationDirectory, baseURL string, opts ...Option) *Service {
	svc := &Service{
		store:     store,
		directory: directory,
		baseURL:   baseURL,
	}
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

// WithVerificationCache configures a read-through cache for Verify.
func WithVerificationCache(cache VerificationCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithMetrics configures lifecycle metrics.
func WithMetrics(metrics Recorder) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// Issue mints a new badge for the request. The issuing organization is
// resolved and snapshotted into the badge so later edits to the organization
// never change what was issued.
func (s *Service) Issue(ctx context.Context, req models.IssueRequest) (*models.Badge, error) {
	if req.OrganizationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization ID is required")
	}
	if s.directory == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "organization directory unavailable")
	}
	if s.store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "badge store unavailable")
	}

	now := requestcontext.Now(ctx)
	started := time.Now()

	org, err := s.directory.Organization(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}

	badge := models.Badge{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Criteria:    req.Criteria,
		Issuer: models.IssuerSnapshot{
			OrganizationID: org.ID,
			Name:           org.Name,
			URL:            org.URL,
			Email:          org.Email,
		},
		Recipient: req.Recipient,
		Evidence:  req.Evidence,
		Alignment: req.Alignment,
		Expires:   req.Expires,
		IssuedOn:  now,
	}

	// One retry on external ID collision. Collisions require a UUID clash,
	// so a second one in a row means something else is wrong.
	for attempt := 0; attempt < 2; attempt++ {
		badge.ExternalID = models.NewExternalBadgeID()
		badge.Verification = models.HostedVerification(s.baseURL, badge.ExternalID)

		err = s.store.Create(ctx, &badge)
		if err == nil {
			break
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store badge")
		}
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign badge ID")
	}

	if s.metrics != nil {
		s.metrics.IncrementBadgesIssued()
		s.metrics.ObserveIssueLatency(time.Since(started).Seconds())
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionBadgeIssued,
		Subject: badge.ExternalID.String(),
		Actor:   org.ID.String(),
	})

	return &badge, nil
}

// GetByID returns the badge with the internal ID.
func (s *Service) GetByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	badge, err := s.store.FindByID(ctx, badgeID)
	if err != nil {
		return nil, translateLookup(err)
	}
	return badge, nil
}

// List returns every badge, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Badge, error) {
	badges, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list badges")
	}
	return badges, nil
}

// FindByRecipient returns the recipient's non-revoked badges, newest first.
// An unknown recipient yields an empty list, not an error.
func (s *Service) FindByRecipient(ctx context.Context, identity string) ([]*models.Badge, error) {
	if identity == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "recipient identity is required")
	}
	badges, err := s.store.ListByRecipient(ctx, identity)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list recipient badges")
	}
	return badges, nil
}

// FindByIssuer returns every badge issued by the organization, revoked
// included, newest first.
func (s *Service) FindByIssuer(ctx context.Context, organizationID id.OrganizationID) ([]*models.Badge, error) {
	if organizationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization ID is required")
	}
	badges, err := s.store.ListByIssuer(ctx, organizationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list issuer badges")
	}
	return badges, nil
}

// Search matches the query case-insensitively against badge name,
// description and criteria narrative.
func (s *Service) Search(ctx context.Context, query string) ([]*models.Badge, error) {
	badges, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search badges")
	}
	return badges, nil
}

// Revoke marks the badge revoked with the given reason. Revoking an already
// revoked badge is a conflict, not a no-op, so double revocations surface.
// The reason may be empty; the transport layer decides whether the field
// itself is mandatory.
func (s *Service) Revoke(ctx context.Context, badgeID id.BadgeID, reason string) (*models.Badge, error) {
	badge, err := s.store.Revoke(ctx, badgeID, reason)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "badge not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "badge is already revoked")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke badge")
		}
	}

	s.invalidateCache(ctx, badge.ExternalID)
	if s.metrics != nil {
		s.metrics.IncrementBadgesRevoked()
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionBadgeRevoked,
		Subject: badge.ExternalID.String(),
		Reason:  reason,
	})

	return badge, nil
}

// AddEvidence appends one evidence item to the badge. Existing entries and
// their order are preserved; revoked badges still accept evidence.
func (s *Service) AddEvidence(ctx context.Context, badgeID id.BadgeID, item models.Evidence) (*models.Badge, error) {
	badge, err := s.store.AppendEvidence(ctx, badgeID, item)
	if err != nil {
		return nil, translateLookup(err)
	}

	s.invalidateCache(ctx, badge.ExternalID)
	if s.metrics != nil {
		s.metrics.IncrementEvidenceAdded()
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionEvidenceAdded,
		Subject: badge.ExternalID.String(),
	})

	return badge, nil
}

// Verify reports the standing of the badge with the given external ID.
// An invalid badge (unknown, revoked, expired) is a normal verification
// outcome; Verify only errors when the backing store fails.
//
// Status precedence: not found, then revoked, then expired. A badge that is
// both revoked and past expiry reports revoked.
func (s *Service) Verify(ctx context.Context, rawID string) (*models.VerificationResult, error) {
	externalID, err := models.ParseExternalBadgeID(rawID)
	if err != nil {
		return s.verifyOutcome("not_found", &models.VerificationResult{
			Valid:  false,
			Status: models.StatusNotFound,
		}), nil
	}

	badge, err := s.lookupForVerify(ctx, externalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.verifyOutcome("not_found", &models.VerificationResult{
				Valid:  false,
				Status: models.StatusNotFound,
			}), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load badge")
	}

	if badge.Revoked {
		return s.verifyOutcome("revoked", &models.VerificationResult{
			Valid:  false,
			Status: models.RevokedStatus(badge.RevocationReason),
			Badge:  badge,
		}), nil
	}
	if badge.Expired(requestcontext.Now(ctx)) {
		return s.verifyOutcome("expired", &models.VerificationResult{
			Valid:  false,
			Status: models.StatusExpired,
			Badge:  badge,
		}), nil
	}

	return s.verifyOutcome("valid", &models.VerificationResult{
		Valid:  true,
		Status: models.StatusValid,
		Badge:  badge,
	}), nil
}

// lookupForVerify reads through the cache when one is configured. Cache
// failures other than a miss fall back to the store so verification stays
// available when Redis is down.
func (s *Service) lookupForVerify(ctx context.Context, externalID models.ExternalBadgeID) (*models.Badge, error) {
	if s.cache != nil {
		badge, err := s.cache.FindByExternalID(ctx, externalID)
		if err == nil {
			return badge, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) && s.logger != nil {
			s.logger.WarnContext(ctx, "verification cache read failed", "error", err)
		}
	}

	badge, err := s.store.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, badge); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "verification cache write failed", "error", err)
		}
	}
	return badge, nil
}

func (s *Service) verifyOutcome(outcome string, result *models.VerificationResult) *models.VerificationResult {
	if s.metrics != nil {
		s.metrics.IncrementVerifications(outcome)
	}
	return result
}

func (s *Service) invalidateCache(ctx context.Context, externalID models.ExternalBadgeID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, externalID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "verification cache invalidation failed",
			"error", err,
			"badge_id", externalID.String(),
		)
	}
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
		return dErrors.New(dErrors.CodeNotFound, "badge not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "badge store failure")
}
