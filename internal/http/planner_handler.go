package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/tutoring-scheduler/internal/application"
)

type plannerService interface {
	ValidateSlot(params application.ValidateSlotParams) (application.SlotValidationResult, error)
	TimeOptions(params application.TimeOptionsParams) (application.TimeOptionsResult, error)
	OpenWindows(params application.OpenWindowsParams) ([]application.SlotInput, error)
}

type PlannerHandler struct {
	service   plannerService
	responder responder
	logger    *slog.Logger
}

func NewPlannerHandler(service plannerService, logger *slog.Logger) *PlannerHandler {
	base := defaultLogger(logger)
	return &PlannerHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PlannerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PlannerHandler", operation, attrs...)
}

func (h *PlannerHandler) ValidateSlot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req validateSlotRequest
	if !decodeRequest(r.Context(), w, r, h.responder, &req) {
		return
	}

	result, err := h.service.ValidateSlot(application.ValidateSlotParams{
		Open:      toSlotInputs(req.Open),
		Proposed:  req.Proposed.toInput(),
		Selection: toSlotInputs(req.Selection),
	})
	if err != nil {
		h.log(r.Context(), "ValidateSlot").ErrorContext(r.Context(), "slot validation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := validateSlotResponse{OK: result.OK, Reason: result.Reason}
	for _, slot := range result.Selection {
		resp.Selection = append(resp.Selection, slotDTO{Weekday: slot.Weekday, StartTime: slot.StartTime, EndTime: slot.EndTime})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// TimeOptions reads its inputs from the query string: a weekday, optional
// selected start, and open windows encoded as repeated
// open=weekday|start|end parameters.
func (h *PlannerHandler) TimeOptions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	weekday, err := strconv.Atoi(strings.TrimSpace(query.Get("weekday")))
	if err != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Message: "weekday must be a number between 0 and 6"})
		return
	}

	open := make([]application.SlotInput, 0)
	for _, raw := range query["open"] {
		slot, ok := parseSlotParam(raw)
		if !ok {
			h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Message: "open windows must use the weekday|start|end format"})
			return
		}
		open = append(open, slot)
	}

	result, err := h.service.TimeOptions(application.TimeOptionsParams{
		Weekday:       weekday,
		Open:          open,
		SelectedStart: strings.TrimSpace(query.Get("selected_start")),
	})
	if err != nil {
		h.log(r.Context(), "TimeOptions").ErrorContext(r.Context(), "time option generation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, timeOptionsResponse{
		Starts: result.Starts,
		Ends:   result.Ends,
	})
}

func (h *PlannerHandler) OpenWindows(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req openWindowsRequest
	if !decodeRequest(r.Context(), w, r, h.responder, &req) {
		return
	}

	shared, err := h.service.OpenWindows(application.OpenWindowsParams{
		First:  toSlotInputs(req.First),
		Second: toSlotInputs(req.Second),
	})
	if err != nil {
		h.log(r.Context(), "OpenWindows").ErrorContext(r.Context(), "availability intersection failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := openWindowsResponse{}
	for _, slot := range shared {
		resp.Windows = append(resp.Windows, slotDTO{Weekday: slot.Weekday, StartTime: slot.StartTime, EndTime: slot.EndTime})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// parseSlotParam decodes the compact weekday|start|end query form.
func parseSlotParam(raw string) (application.SlotInput, bool) {
	parts := strings.Split(strings.TrimSpace(raw), "|")
	if len(parts) != 3 {
		return application.SlotInput{}, false
	}
	weekday, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return application.SlotInput{}, false
	}
	return application.SlotInput{
		Weekday:   weekday,
		StartTime: strings.TrimSpace(parts[1]),
		EndTime:   strings.TrimSpace(parts[2]),
	}, true
}

func toSlotInputs(slots []slotDTO) []application.SlotInput {
	if len(slots) == 0 {
		return nil
	}
	out := make([]application.SlotInput, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot.toInput())
	}
	return out
}

type validateSlotRequest struct {
	Open      []slotDTO `json:"open" validate:"dive"`
	Proposed  slotDTO   `json:"proposed"`
	Selection []slotDTO `json:"selection" validate:"dive"`
}

type validateSlotResponse struct {
	OK        bool      `json:"ok"`
	Reason    string    `json:"reason,omitempty"`
	Selection []slotDTO `json:"selection,omitempty"`
}

type timeOptionsResponse struct {
	Starts []string `json:"starts"`
	Ends   []string `json:"ends"`
}

type openWindowsRequest struct {
	First  []slotDTO `json:"first" validate:"dive"`
	Second []slotDTO `json:"second" validate:"dive"`
}

type openWindowsResponse struct {
	Windows []slotDTO `json:"windows"`
}
