package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/tutoring-scheduler/internal/application"
)

type enrollmentService interface {
	CreateEnrollment(ctx context.Context, params application.CreateEnrollmentParams) (application.Enrollment, error)
	UpdateEnrollment(ctx context.Context, params application.UpdateEnrollmentParams) (application.Enrollment, error)
	SetEnrollmentPaused(ctx context.Context, principal application.Principal, enrollmentID string, paused bool) (application.Enrollment, error)
	GetEnrollment(ctx context.Context, principal application.Principal, enrollmentID string) (application.Enrollment, error)
	ListEnrollments(ctx context.Context, params application.ListEnrollmentsParams) ([]application.Enrollment, error)
	DeleteEnrollment(ctx context.Context, principal application.Principal, enrollmentID string) error
}

type EnrollmentHandler struct {
	service   enrollmentService
	responder responder
	logger    *slog.Logger
}

func NewEnrollmentHandler(service enrollmentService, logger *slog.Logger) *EnrollmentHandler {
	base := defaultLogger(logger)
	return &EnrollmentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EnrollmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EnrollmentHandler", operation, attrs...)
}

func (h *EnrollmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req enrollmentRequest
	if !decodeRequest(r.Context(), w, r, h.responder, &req) {
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	enrollment, err := h.service.CreateEnrollment(r.Context(), application.CreateEnrollmentParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "enrollment creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("enrollment_id", enrollment.ID).InfoContext(r.Context(), "enrollment created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, enrollmentResponse{Enrollment: toEnrollmentDTO(enrollment)})
}

func (h *EnrollmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	enrollmentID, ok := EnrollmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(enrollmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEnrollmentID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req enrollmentRequest
	if !decodeRequest(r.Context(), w, r, h.responder, &req) {
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "enrollment_id", enrollmentID)

	enrollment, err := h.service.UpdateEnrollment(r.Context(), application.UpdateEnrollmentParams{
		Principal:    principal,
		EnrollmentID: enrollmentID,
		Input:        input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "enrollment update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "enrollment updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, enrollmentResponse{Enrollment: toEnrollmentDTO(enrollment)})
}

// SetPaused backs both the pause and resume endpoints.
func (h *EnrollmentHandler) SetPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	enrollmentID, ok := EnrollmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(enrollmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEnrollmentID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "SetPaused", "principal_id", principal.UserID, "enrollment_id", enrollmentID, "paused", paused)

	enrollment, err := h.service.SetEnrollmentPaused(r.Context(), principal, enrollmentID, paused)
	if err != nil {
		logger.ErrorContext(r.Context(), "enrollment pause toggle failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "enrollment pause state changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, enrollmentResponse{Enrollment: toEnrollmentDTO(enrollment)})
}

func (h *EnrollmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	enrollmentID, ok := EnrollmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(enrollmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEnrollmentID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	enrollment, err := h.service.GetEnrollment(r.Context(), principal, enrollmentID)
	if err != nil {
		h.log(r.Context(), "Get", "enrollment_id", enrollmentID).ErrorContext(r.Context(), "enrollment fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, enrollmentResponse{Enrollment: toEnrollmentDTO(enrollment)})
}

func (h *EnrollmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	enrollmentID, ok := EnrollmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(enrollmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEnrollmentID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "enrollment_id", enrollmentID)

	if err := h.service.DeleteEnrollment(r.Context(), principal, enrollmentID); err != nil {
		logger.ErrorContext(r.Context(), "enrollment delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "enrollment deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EnrollmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	params := application.ListEnrollmentsParams{
		Principal: principal,
		StudentID: strings.TrimSpace(query.Get("student_id")),
		TutorID:   strings.TrimSpace(query.Get("tutor_id")),
	}
	if raw := strings.TrimSpace(query.Get("active_on")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		params.ActiveOn = &parsed
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	enrollments, err := h.service.ListEnrollments(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "enrollment list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(enrollments)).InfoContext(r.Context(), "enrollments listed")
	out := make([]enrollmentDTO, 0, len(enrollments))
	for _, enrollment := range enrollments {
		out = append(out, toEnrollmentDTO(enrollment))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEnrollmentsResponse{Enrollments: out})
}

const dateLayout = "2006-01-02"

type slotDTO struct {
	Weekday   int    `json:"weekday" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

func (s slotDTO) toInput() application.SlotInput {
	return application.SlotInput{
		Weekday:   s.Weekday,
		StartTime: strings.TrimSpace(s.StartTime),
		EndTime:   strings.TrimSpace(s.EndTime),
	}
}

type enrollmentRequest struct {
	StudentID         string    `json:"student_id" validate:"required"`
	TutorID           string    `json:"tutor_id" validate:"required"`
	Slots             []slotDTO `json:"slots" validate:"min=1,dive"`
	StartDate         string    `json:"start_date" validate:"required"`
	EndDate           *string   `json:"end_date"`
	Frequency         string    `json:"frequency" validate:"required,oneof=weekly biweekly monthly"`
	DurationHours     float64   `json:"duration_hours" validate:"gt=0"`
	MeetingResourceID *string   `json:"meeting_resource_id"`
	Summary           string    `json:"summary"`
}

func (r enrollmentRequest) toInput() (application.EnrollmentInput, error) {
	startDate, err := time.Parse(dateLayout, strings.TrimSpace(r.StartDate))
	if err != nil {
		return application.EnrollmentInput{}, errInvalidDate
	}

	input := application.EnrollmentInput{
		StudentID:         strings.TrimSpace(r.StudentID),
		TutorID:           strings.TrimSpace(r.TutorID),
		StartDate:         startDate,
		Frequency:         strings.TrimSpace(r.Frequency),
		DurationHours:     r.DurationHours,
		MeetingResourceID: r.MeetingResourceID,
		Summary:           strings.TrimSpace(r.Summary),
	}
	for _, slot := range r.Slots {
		input.Slots = append(input.Slots, slot.toInput())
	}
	if r.EndDate != nil && strings.TrimSpace(*r.EndDate) != "" {
		endDate, err := time.Parse(dateLayout, strings.TrimSpace(*r.EndDate))
		if err != nil {
			return application.EnrollmentInput{}, errInvalidDate
		}
		input.EndDate = &endDate
	}
	return input, nil
}

type enrollmentResponse struct {
	Enrollment enrollmentDTO `json:"enrollment"`
}

type listEnrollmentsResponse struct {
	Enrollments []enrollmentDTO `json:"enrollments"`
}

type enrollmentDTO struct {
	ID                string    `json:"id"`
	StudentID         string    `json:"student_id"`
	TutorID           string    `json:"tutor_id"`
	Slots             []slotDTO `json:"slots"`
	StartDate         string    `json:"start_date"`
	EndDate           *string   `json:"end_date,omitempty"`
	Frequency         string    `json:"frequency"`
	DurationHours     float64   `json:"duration_hours"`
	MeetingResourceID *string   `json:"meeting_resource_id,omitempty"`
	Paused            bool      `json:"paused"`
	Summary           string    `json:"summary,omitempty"`
	CreatedAt         string    `json:"created_at"`
	UpdatedAt         string    `json:"updated_at"`
}

func toEnrollmentDTO(enrollment application.Enrollment) enrollmentDTO {
	dto := enrollmentDTO{
		ID:                enrollment.ID,
		StudentID:         enrollment.StudentID,
		TutorID:           enrollment.TutorID,
		StartDate:         enrollment.StartDate.Format(dateLayout),
		Frequency:         enrollment.Frequency,
		DurationHours:     enrollment.DurationHours,
		MeetingResourceID: enrollment.MeetingResourceID,
		Paused:            enrollment.Paused,
		Summary:           enrollment.Summary,
		CreatedAt:         enrollment.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:         enrollment.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, slot := range enrollment.Slots {
		dto.Slots = append(dto.Slots, slotDTO{Weekday: slot.Weekday, StartTime: slot.StartTime, EndTime: slot.EndTime})
	}
	if enrollment.EndDate != nil {
		end := enrollment.EndDate.Format(dateLayout)
		dto.EndDate = &end
	}
	return dto
}
