package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/tutoring-scheduler/internal/application"
)

type lessonService interface {
	CreateLesson(ctx context.Context, params application.CreateLessonParams) (application.Lesson, error)
	RescheduleLesson(ctx context.Context, params application.RescheduleLessonParams) (application.Lesson, error)
	CancelLesson(ctx context.Context, principal application.Principal, lessonID string) (application.Lesson, error)
	CompleteLesson(ctx context.Context, principal application.Principal, lessonID string) (application.Lesson, error)
	GetLesson(ctx context.Context, principal application.Principal, lessonID string) (application.Lesson, error)
	ListLessons(ctx context.Context, params application.ListLessonsParams) ([]application.Lesson, error)
}

type LessonHandler struct {
	service   lessonService
	responder responder
	logger    *slog.Logger
}

func NewLessonHandler(service lessonService, logger *slog.Logger) *LessonHandler {
	base := defaultLogger(logger)
	return &LessonHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *LessonHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "LessonHandler", operation, attrs...)
}

func (h *LessonHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req lessonRequest
	if !decodeRequest(r.Context(), w, r, h.responder, &req) {
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	lesson, err := h.service.CreateLesson(r.Context(), application.CreateLessonParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "lesson booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("lesson_id", lesson.ID).InfoContext(r.Context(), "lesson booked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, lessonResponse{Lesson: toLessonDTO(lesson)})
}

func (h *LessonHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lessonID, ok := LessonIDFromContext(r.Context())
	if !ok || strings.TrimSpace(lessonID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLessonID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req rescheduleRequest
	if !decodeRequest(r.Context(), w, r, h.responder, &req) {
		return
	}

	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimestamp)
		return
	}

	logger := h.log(r.Context(), "Reschedule", "principal_id", principal.UserID, "lesson_id", lessonID)

	lesson, err := h.service.RescheduleLesson(r.Context(), application.RescheduleLessonParams{
		Principal: principal,
		LessonID:  lessonID,
		StartsAt:  startsAt,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "lesson reschedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("replacement_id", lesson.ID).InfoContext(r.Context(), "lesson rescheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lessonResponse{Lesson: toLessonDTO(lesson)})
}

func (h *LessonHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Cancel", func(ctx context.Context, principal application.Principal, lessonID string) (application.Lesson, error) {
		return h.service.CancelLesson(ctx, principal, lessonID)
	})
}

func (h *LessonHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Complete", func(ctx context.Context, principal application.Principal, lessonID string) (application.Lesson, error) {
		return h.service.CompleteLesson(ctx, principal, lessonID)
	})
}

func (h *LessonHandler) transition(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, application.Principal, string) (application.Lesson, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lessonID, ok := LessonIDFromContext(r.Context())
	if !ok || strings.TrimSpace(lessonID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLessonID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.UserID, "lesson_id", lessonID)

	lesson, err := apply(r.Context(), principal, lessonID)
	if err != nil {
		logger.ErrorContext(r.Context(), "lesson transition failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", lesson.Status).InfoContext(r.Context(), "lesson transitioned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lessonResponse{Lesson: toLessonDTO(lesson)})
}

func (h *LessonHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lessonID, ok := LessonIDFromContext(r.Context())
	if !ok || strings.TrimSpace(lessonID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLessonID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	lesson, err := h.service.GetLesson(r.Context(), principal, lessonID)
	if err != nil {
		h.log(r.Context(), "Get", "lesson_id", lessonID).ErrorContext(r.Context(), "lesson fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, lessonResponse{Lesson: toLessonDTO(lesson)})
}

func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	params := application.ListLessonsParams{
		Principal: principal,
		StudentID: strings.TrimSpace(query.Get("student_id")),
		TutorID:   strings.TrimSpace(query.Get("tutor_id")),
	}
	if raw := strings.TrimSpace(query.Get("starts_after")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimestamp)
			return
		}
		params.StartsAfter = &parsed
	}
	if raw := strings.TrimSpace(query.Get("ends_before")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimestamp)
			return
		}
		params.EndsBefore = &parsed
	}
	for _, status := range query["status"] {
		if trimmed := strings.TrimSpace(status); trimmed != "" {
			params.Statuses = append(params.Statuses, trimmed)
		}
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	lessons, err := h.service.ListLessons(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "lesson list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(lessons)).InfoContext(r.Context(), "lessons listed")
	out := make([]lessonDTO, 0, len(lessons))
	for _, lesson := range lessons {
		out = append(out, toLessonDTO(lesson))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listLessonsResponse{Lessons: out})
}

type lessonRequest struct {
	StudentID         string  `json:"student_id" validate:"required"`
	TutorID           string  `json:"tutor_id" validate:"required"`
	StartsAt          string  `json:"starts_at" validate:"required"`
	DurationHours     float64 `json:"duration_hours" validate:"gt=0"`
	MeetingResourceID *string `json:"meeting_resource_id"`
	Summary           string  `json:"summary"`
}

func (r lessonRequest) toInput() (application.LessonInput, error) {
	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(r.StartsAt))
	if err != nil {
		return application.LessonInput{}, errInvalidTimestamp
	}
	return application.LessonInput{
		StudentID:         strings.TrimSpace(r.StudentID),
		TutorID:           strings.TrimSpace(r.TutorID),
		StartsAt:          startsAt,
		DurationHours:     r.DurationHours,
		MeetingResourceID: r.MeetingResourceID,
		Summary:           strings.TrimSpace(r.Summary),
	}, nil
}

type rescheduleRequest struct {
	StartsAt string `json:"starts_at" validate:"required"`
}

type lessonResponse struct {
	Lesson lessonDTO `json:"lesson"`
}

type listLessonsResponse struct {
	Lessons []lessonDTO `json:"lessons"`
}

type lessonDTO struct {
	ID                string  `json:"id"`
	EnrollmentID      *string `json:"enrollment_id,omitempty"`
	StudentID         string  `json:"student_id"`
	TutorID           string  `json:"tutor_id"`
	StartsAt          string  `json:"starts_at"`
	DurationHours     float64 `json:"duration_hours"`
	MeetingResourceID *string `json:"meeting_resource_id,omitempty"`
	Status            string  `json:"status"`
	Summary           string  `json:"summary,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func toLessonDTO(lesson application.Lesson) lessonDTO {
	return lessonDTO{
		ID:                lesson.ID,
		EnrollmentID:      lesson.EnrollmentID,
		StudentID:         lesson.StudentID,
		TutorID:           lesson.TutorID,
		StartsAt:          lesson.StartsAt.UTC().Format(time.RFC3339Nano),
		DurationHours:     lesson.DurationHours,
		MeetingResourceID: lesson.MeetingResourceID,
		Status:            lesson.Status,
		Summary:           lesson.Summary,
		CreatedAt:         lesson.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:         lesson.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
