package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/tutoring-scheduler/internal/application"
	"github.com/example/tutoring-scheduler/internal/scheduler"
)

type resourceService interface {
	CreateResource(ctx context.Context, params application.CreateResourceParams) (application.Resource, error)
	UpdateResource(ctx context.Context, params application.UpdateResourceParams) (application.Resource, error)
	GetResource(ctx context.Context, principal application.Principal, resourceID string) (application.Resource, error)
	ListResources(ctx context.Context, principal application.Principal) ([]application.Resource, error)
	DeleteResource(ctx context.Context, principal application.Principal, resourceID string) error
	CheckAvailability(ctx context.Context, params application.ResourceAvailabilityParams) ([]application.ResourceAvailability, error)
}

type ResourceHandler struct {
	service   resourceService
	responder responder
	logger    *slog.Logger
}

func NewResourceHandler(service resourceService, logger *slog.Logger) *ResourceHandler {
	base := defaultLogger(logger)
	return &ResourceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ResourceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ResourceHandler", operation, attrs...)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req resourceRequest
	if !decodeRequest(r.Context(), w, r, h.responder, &req) {
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	resource, err := h.service.CreateResource(r.Context(), application.CreateResourceParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "resource creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("resource_id", resource.ID).InfoContext(r.Context(), "resource created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req resourceRequest
	if !decodeRequest(r.Context(), w, r, h.responder, &req) {
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "resource_id", resourceID)

	resource, err := h.service.UpdateResource(r.Context(), application.UpdateResourceParams{
		Principal:  principal,
		ResourceID: resourceID,
		Input:      req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "resource update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "resource updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	resource, err := h.service.GetResource(r.Context(), principal, resourceID)
	if err != nil {
		h.log(r.Context(), "Get", "resource_id", resourceID).ErrorContext(r.Context(), "resource fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "resource_id", resourceID)

	if err := h.service.DeleteResource(r.Context(), principal, resourceID); err != nil {
		logger.ErrorContext(r.Context(), "resource delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "resource deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	resources, err := h.service.ListResources(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "resource list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(resources)).InfoContext(r.Context(), "resources listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResourcesResponse{Resources: toResourceDTOs(resources)})
}

// Availability probes the pool for a concrete window or a weekly pattern.
func (h *ResourceHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req availabilityRequest
	if !decodeRequest(r.Context(), w, r, h.responder, &req) {
		return
	}

	params := application.ResourceAvailabilityParams{Principal: principal}
	if req.Window != nil {
		window, err := req.Window.toWindow()
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		params.Window = &window
	}
	if req.Pattern != nil {
		slot := req.Pattern.toInput()
		params.Pattern = &slot
	}

	logger := h.log(r.Context(), "Availability", "principal_id", principal.UserID)

	results, err := h.service.CheckAvailability(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "availability probe failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]availabilityDTO, 0, len(results))
	for _, entry := range results {
		out = append(out, availabilityDTO{
			Resource:  toResourceDTO(entry.Resource),
			Available: entry.Available,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Results: out})
}

type resourceRequest struct {
	Name         string `json:"name" validate:"required"`
	ExternalLink string `json:"external_link" validate:"omitempty,url"`
}

func (r resourceRequest) toInput() application.ResourceInput {
	return application.ResourceInput{
		Name:         strings.TrimSpace(r.Name),
		ExternalLink: strings.TrimSpace(r.ExternalLink),
	}
}

type availabilityRequest struct {
	Window  *windowDTO `json:"window"`
	Pattern *slotDTO   `json:"pattern"`
}

type windowDTO struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

func (w windowDTO) toWindow() (scheduler.Window, error) {
	start, err := time.Parse(time.RFC3339, w.Start)
	if err != nil {
		return scheduler.Window{}, errInvalidTimestamp
	}
	end, err := time.Parse(time.RFC3339, w.End)
	if err != nil {
		return scheduler.Window{}, errInvalidTimestamp
	}
	return scheduler.Window{Start: start, End: end}, nil
}

type resourceResponse struct {
	Resource resourceDTO `json:"resource"`
}

type listResourcesResponse struct {
	Resources []resourceDTO `json:"resources"`
}

type availabilityResponse struct {
	Results []availabilityDTO `json:"results"`
}

type availabilityDTO struct {
	Resource  resourceDTO `json:"resource"`
	Available bool        `json:"available"`
}

type resourceDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ExternalLink string `json:"external_link,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toResourceDTO(resource application.Resource) resourceDTO {
	return resourceDTO{
		ID:           resource.ID,
		Name:         resource.Name,
		ExternalLink: resource.ExternalLink,
		CreatedAt:    resource.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    resource.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toResourceDTOs(resources []application.Resource) []resourceDTO {
	if len(resources) == 0 {
		return nil
	}
	out := make([]resourceDTO, 0, len(resources))
	for _, resource := range resources {
		out = append(out, toResourceDTO(resource))
	}
	return out
}
