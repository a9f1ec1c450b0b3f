package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jaypee15/veirifire/internal/badge/models"
	badgeservice "github.com/jaypee15/veirifire/internal/badge/service"
	id "github.com/jaypee15/veirifire/pkg/domain"
	dErrors "github.com/jaypee15/veirifire/pkg/domain-errors"
	"github.com/jaypee15/veirifire/pkg/platform/httputil"
	"github.com/jaypee15/veirifire/pkg/requestcontext"
)

// Service defines the badge lifecycle operations used by the handler.
type Service interface {
	Issue(ctx context.Context, req models.IssueRequest) (*models.Badge, error)
	GetByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	List(ctx context.Context) ([]*models.Badge, error)
	FindByRecipient(ctx context.Context, identity string) ([]*models.Badge, error)
	FindByIssuer(ctx context.Context, organizationID id.OrganizationID) ([]*models.Badge, error)
	Search(ctx context.Context, query string) ([]*models.Badge, error)
	Revoke(ctx context.Context, badgeID id.BadgeID, reason string) (*models.Badge, error)
	AddEvidence(ctx context.Context, badgeID id.BadgeID, item models.Evidence) (*models.Badge, error)
	Verify(ctx context.Context, rawID string) (*models.VerificationResult, error)
}

// Handler wires badge endpoints to the badge service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a badge handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts badge endpoints on the router. The verify and recipient
// routes are registered before the {badgeID} wildcard so chi never treats
// "verify" or "recipient" as an internal ID.
func (h *Handler) Register(r chi.Router) {
	r.Route("/badges", func(r chi.Router) {
		r.Post("/", h.HandleIssue)
		r.Get("/", h.HandleList)
		r.Get("/verify/{badgeID}", h.HandleVerify)
		r.Get("/recipient/{identity}", h.HandleFindByRecipient)
		r.Get("/issuer/{organizationID}", h.HandleFindByIssuer)
		r.Get("/{badgeID}", h.HandleGet)
		r.Put("/{badgeID}/revoke", h.HandleRevoke)
		r.Post("/{badgeID}/evidence", h.HandleAddEvidence)
	})
}

// CriteriaPayload mirrors the criteria block of the issue request body.
type CriteriaPayload struct {
	Narrative    string   `json:"narrative"`
	Requirements []string `json:"requirements"`
	URL          string   `json:"url,omitempty"`
}

// RecipientPayload mirrors the recipient block of the issue request body.
type RecipientPayload struct {
	Identity string `json:"identity"`
	Type     string `json:"type"`
	Hashed   bool   `json:"hashed"`
	Salt     string `json:"salt,omitempty"`
}

// EvidencePayload mirrors one evidence entry in request bodies.
type EvidencePayload struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Description string `json:"description"`
	Narrative   string `json:"narrative,omitempty"`
}

// AlignmentPayload mirrors one alignment entry of the issue request body.
type AlignmentPayload struct {
	TargetName        string `json:"targetName"`
	TargetURL         string `json:"targetUrl"`
	TargetDescription string `json:"targetDescription,omitempty"`
	TargetFramework   string `json:"targetFramework,omitempty"`
	TargetCode        string `json:"targetCode,omitempty"`
}

// IssueBadgeRequest is the request body for badge issuance.
type IssueBadgeRequest struct {
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Image          string             `json:"image"`
	Criteria       CriteriaPayload    `json:"criteria"`
	OrganizationID string             `json:"organizationId"`
	Recipient      RecipientPayload   `json:"recipient"`
	Evidence       []EvidencePayload  `json:"evidence,omitempty"`
	Alignment      []AlignmentPayload `json:"alignment,omitempty"`
	Expires        string             `json:"expires,omitempty"`

	parsedOrganizationID id.OrganizationID
	parsedRecipientType  models.RecipientType
	parsedExpires        *time.Time
}

// Validate validates and parses the issuance request.
func (r *IssueBadgeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.Name) > 256 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 256 characters")
	}

	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	if r.Image == "" {
		return dErrors.New(dErrors.CodeValidation, "image is required")
	}
	if r.Criteria.Narrative == "" && len(r.Criteria.Requirements) == 0 {
		return dErrors.New(dErrors.CodeValidation, "criteria narrative or requirements are required")
	}
	if r.OrganizationID == "" {
		return dErrors.New(dErrors.CodeValidation, "organizationId is required")
	}
	if r.Recipient.Identity == "" {
		return dErrors.New(dErrors.CodeValidation, "recipient identity is required")
	}
	if r.Recipient.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "recipient type is required")
	}

	orgID, err := id.ParseOrganizationID(r.OrganizationID)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid organizationId")
	}
	recipientType, err := models.ParseRecipientType(r.Recipient.Type)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	if r.Expires != "" {
		expires, err := time.Parse(time.RFC3339, r.Expires)
		if err != nil {
			return dErrors.New(dErrors.CodeBadRequest, "expires must be an RFC 3339 timestamp")
		}
		r.parsedExpires = &expires
	}

	r.parsedOrganizationID = orgID
	r.parsedRecipientType = recipientType
	return nil
}

// ToIssueRequest converts the validated body to the service request.
func (r *IssueBadgeRequest) ToIssueRequest() models.IssueRequest {
	evidence := make([]models.Evidence, 0, len(r.Evidence))
	for _, e := range r.Evidence {
		evidence = append(evidence, models.Evidence(e))
	}
	alignment := make([]models.Alignment, 0, len(r.Alignment))
	for _, a := range r.Alignment {
		alignment = append(alignment, models.Alignment(a))
	}
	if len(evidence) == 0 {
		evidence = nil
	}
	if len(alignment) == 0 {
		alignment = nil
	}

	return models.IssueRequest{
		Name:        r.Name,
		Description: r.Description,
		Image:       r.Image,
		Criteria: models.Criteria{
			Narrative:    r.Criteria.Narrative,
			Requirements: r.Criteria.Requirements,
			URL:          r.Criteria.URL,
		},
		OrganizationID: r.parsedOrganizationID,
		Recipient: models.Recipient{
			Identity: r.Recipient.Identity,
			Type:     r.parsedRecipientType,
			Hashed:   r.Recipient.Hashed,
			Salt:     r.Recipient.Salt,
		},
		Evidence:  evidence,
		Alignment: alignment,
		Expires:   r.parsedExpires,
	}
}

// RevokeBadgeRequest is the request body for badge revocation. Reason is a
// pointer so a missing field can be told apart from a deliberately empty one:
// the field must be present, but an empty reason is allowed.
type RevokeBadgeRequest struct {
	Reason *string `json:"reason"`
}

// Validate validates the revocation request.
func (r *RevokeBadgeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Reason == nil {
		return dErrors.New(dErrors.CodeValidation, "reason field is required")
	}
	if len(*r.Reason) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 1024 characters")
	}
	return nil
}

// AddEvidenceRequest is the request body for appending evidence.
type AddEvidenceRequest struct {
	Evidence EvidencePayload `json:"evidence"`
}

// Validate validates the evidence request.
func (r *AddEvidenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Evidence.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "evidence id is required")
	}
	if r.Evidence.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "evidence type is required")
	}
	if r.Evidence.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "evidence description is required")
	}
	return nil
}

// BadgeListResponse wraps list results so the count travels with them.
type BadgeListResponse struct {
	Badges []*models.Badge `json:"badges"`
	Count  int             `json:"count"`
}

// HandleIssue handles POST /badges requests.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueBadgeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	badge, err := h.service.Issue(ctx, req.ToIssueRequest())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue badge",
			"request_id", requestID,
			"organization_id", req.OrganizationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, badge)
}

// HandleList handles GET /badges requests. A non-empty search query filters
// by name, description or criteria narrative.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		badges []*models.Badge
		err    error
	)
	if query := r.URL.Query().Get("search"); query != "" {
		badges, err = h.service.Search(ctx, query)
	} else {
		badges, err = h.service.List(ctx)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list badges",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, BadgeListResponse{Badges: badges, Count: len(badges)})
}

// HandleGet handles GET /badges/{badgeID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	badgeID, err := id.ParseBadgeID(chi.URLParam(r, "badgeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid badge ID"))
		return
	}

	badge, err := h.service.GetByID(ctx, badgeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, badge)
}

// HandleFindByRecipient handles GET /badges/recipient/{identity} requests.
func (h *Handler) HandleFindByRecipient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity := chi.URLParam(r, "identity")
	badges, err := h.service.FindByRecipient(ctx, identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, BadgeListResponse{Badges: badges, Count: len(badges)})
}

// HandleFindByIssuer handles GET /badges/issuer/{organizationID} requests.
func (h *Handler) HandleFindByIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, err := id.ParseOrganizationID(chi.URLParam(r, "organizationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid organization ID"))
		return
	}

	badges, err := h.service.FindByIssuer(ctx, orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, BadgeListResponse{Badges: badges, Count: len(badges)})
}

// HandleRevoke handles PUT /badges/{badgeID}/revoke requests.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	badgeID, err := id.ParseBadgeID(chi.URLParam(r, "badgeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid badge ID"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RevokeBadgeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	badge, err := h.service.Revoke(ctx, badgeID, *req.Reason)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) && !dErrors.HasCode(err, dErrors.CodeConflict) {
			h.logger.ErrorContext(ctx, "failed to revoke badge",
				"request_id", requestID,
				"badge_id", badgeID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, badge)
}

// HandleAddEvidence handles POST /badges/{badgeID}/evidence requests.
func (h *Handler) HandleAddEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	badgeID, err := id.ParseBadgeID(chi.URLParam(r, "badgeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid badge ID"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[AddEvidenceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	badge, err := h.service.AddEvidence(ctx, badgeID, models.Evidence(req.Evidence))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, badge)
}

// HandleVerify handles GET /badges/verify/{badgeID} requests. Verification
// always answers 200: an unknown, revoked or expired badge is a result, not
// an error. Only infrastructure failures produce an error status.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.service.Verify(ctx, chi.URLParam(r, "badgeID"))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to verify badge",
			"request_id", requestcontext.RequestID(ctx),
			"badge_id", chi.URLParam(r, "badgeID"),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

var _ Service = (*badgeservice.Service)(nil)
