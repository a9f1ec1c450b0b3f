package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/jaypee15/veirifire/internal/org/models"
	orgservice "github.com/jaypee15/veirifire/internal/org/service"
	id "github.com/jaypee15/veirifire/pkg/domain"
	dErrors "github.com/jaypee15/veirifire/pkg/domain-errors"
	"github.com/jaypee15/veirifire/pkg/platform/httputil"
	"github.com/jaypee15/veirifire/pkg/requestcontext"
)

// Service defines the organization registry operations used by the handler.
type Service interface {
	Create(ctx context.Context, req models.CreateRequest) (*models.Organization, error)
	Get(ctx context.Context, organizationID id.OrganizationID) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
	Update(ctx context.Context, organizationID id.OrganizationID, req models.UpdateRequest) (*models.Organization, error)
	Delete(ctx context.Context, organizationID id.OrganizationID) (*models.Organization, error)
}

// Handler wires organization endpoints to the organization service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an organization handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts organization endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/organizations", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{organizationID}", h.HandleGet)
		r.Put("/{organizationID}", h.HandleUpdate)
		r.Delete("/{organizationID}", h.HandleDelete)
	})
}

// CreateOrganizationRequest is the request body for registering an organization.
type CreateOrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Email       string `json:"email"`
}

// Validate validates the registration request.
func (r *CreateOrganizationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.Name) > 256 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 256 characters")
	}

	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.URL == "" {
		return dErrors.New(dErrors.CodeValidation, "url is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}

	if err := validateURL(r.URL); err != nil {
		return err
	}
	return validateEmail(r.Email)
}

// UpdateOrganizationRequest is the request body for a partial update.
// Absent fields leave the stored value unchanged.
type UpdateOrganizationRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	URL         *string `json:"url,omitempty"`
	Email       *string `json:"email,omitempty"`
}

// Validate validates the update request.
func (r *UpdateOrganizationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Name == nil && r.Description == nil && r.URL == nil && r.Email == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one field is required")
	}
	if r.Name != nil && *r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if r.URL != nil {
		if err := validateURL(*r.URL); err != nil {
			return err
		}
	}
	if r.Email != nil {
		if err := validateEmail(*r.Email); err != nil {
			return err
		}
	}
	return nil
}

// OrganizationListResponse wraps list results so the count travels with them.
type OrganizationListResponse struct {
	Organizations []*models.Organization `json:"organizations"`
	Count         int                    `json:"count"`
}

// HandleCreate handles POST /organizations requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateOrganizationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	org, err := h.service.Create(ctx, models.CreateRequest{
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		Email:       req.Email,
	})
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeConflict) {
			h.logger.ErrorContext(ctx, "failed to create organization",
				"request_id", requestID,
				"name", req.Name,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, org)
}

// HandleList handles GET /organizations requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgs, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list organizations",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, OrganizationListResponse{Organizations: orgs, Count: len(orgs)})
}

// HandleGet handles GET /organizations/{organizationID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, err := id.ParseOrganizationID(chi.URLParam(r, "organizationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid organization ID"))
		return
	}

	org, err := h.service.Get(ctx, orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, org)
}

// HandleUpdate handles PUT /organizations/{organizationID} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	orgID, err := id.ParseOrganizationID(chi.URLParam(r, "organizationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid organization ID"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateOrganizationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	org, err := h.service.Update(ctx, orgID, models.UpdateRequest{
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		Email:       req.Email,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, org)
}

// HandleDelete handles DELETE /organizations/{organizationID} requests.
// Deleting an organization never touches badges it issued.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, err := id.ParseOrganizationID(chi.URLParam(r, "organizationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid organization ID"))
		return
	}

	org, err := h.service.Delete(ctx, orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, org)
}

func validateURL(value string) error {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return dErrors.New(dErrors.CodeBadRequest, "url must be an absolute URL")
	}
	return nil
}

func validateEmail(value string) error {
	if _, err := mail.ParseAddress(value); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "email must be a valid address")
	}
	return nil
}

var _ Service = (*orgservice.Service)(nil)
