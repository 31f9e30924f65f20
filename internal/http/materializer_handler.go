package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/tutoring-scheduler/internal/application"
)

type materializerService interface {
	MaterializeWeek(ctx context.Context, params application.MaterializeParams) (application.MaterializeRunResult, error)
}

type MaterializerHandler struct {
	service   materializerService
	responder responder
	logger    *slog.Logger
}

func NewMaterializerHandler(service materializerService, logger *slog.Logger) *MaterializerHandler {
	base := defaultLogger(logger)
	return &MaterializerHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MaterializerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MaterializerHandler", operation, attrs...)
}

// Run materializes the week containing the requested date, defaulting to the
// current week when the body omits one.
func (h *MaterializerHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	// An empty body means "the current week".
	var req materializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params := application.MaterializeParams{Principal: principal}
	if raw := strings.TrimSpace(req.WeekOf); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		params.WeekOf = parsed
	}

	logger := h.log(r.Context(), "Run", "principal_id", principal.UserID)

	result, err := h.service.MaterializeWeek(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "materializer run failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With(
		"created", len(result.Created),
		"skipped", len(result.Skipped),
	).InfoContext(r.Context(), "materializer run completed")

	resp := materializeResponse{WeekStart: result.WeekStart.UTC().Format(time.RFC3339Nano)}
	for _, lesson := range result.Created {
		resp.Created = append(resp.Created, toLessonDTO(lesson))
	}
	for _, sk := range result.Skipped {
		resp.Skipped = append(resp.Skipped, skippedEnrollmentDTO{
			EnrollmentID: sk.EnrollmentID,
			Reason:       sk.Reason,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resp)
}

type materializeRequest struct {
	WeekOf string `json:"week_of"`
}

type materializeResponse struct {
	WeekStart string                 `json:"week_start"`
	Created   []lessonDTO            `json:"created"`
	Skipped   []skippedEnrollmentDTO `json:"skipped,omitempty"`
}

type skippedEnrollmentDTO struct {
	EnrollmentID string `json:"enrollment_id"`
	Reason       string `json:"reason"`
}
