package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"therapy-booking/internal/availability"
	"therapy-booking/internal/booking"
	"therapy-booking/internal/model"
	"therapy-booking/internal/outbox"
	"therapy-booking/internal/slots"
)

// EventSink receives domain events after a successful lifecycle operation.
// Backed by the outbox repository in production, a fake in tests.
type EventSink interface {
	Append(ctx context.Context, evt outbox.Event) error
}

type AppointmentLister interface {
	ListByProvider(ctx context.Context, providerID string, limit int) ([]model.Appointment, error)
}

type BookingHandler struct {
	engine    *booking.Engine
	generator *slots.Generator
	resolver  *availability.Resolver
	lister    AppointmentLister
	events    EventSink
	logger    *slog.Logger
}

func NewBookingHandler(engine *booking.Engine, generator *slots.Generator, resolver *availability.Resolver, lister AppointmentLister, events EventSink, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		engine:    engine,
		generator: generator,
		resolver:  resolver,
		lister:    lister,
		events:    events,
		logger:    logger,
	}
}

type createBookingRequest struct {
	ClientID   string `json:"client_id"`
	ProviderID string `json:"provider_id"`
	ServiceID  string `json:"service_id"`
	StartTime  string `json:"start_time"`
	Notes      string `json:"notes"`
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	NewStartTime  string `json:"new_start_time"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type transitionRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type appointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id,omitempty"`
	ProviderID    string `json:"provider_id,omitempty"`
	ServiceID     string `json:"service_id,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	Status        string `json:"status"`
}

type errorResponse struct {
	ErrorKind string `json:"error_kind"`
	Error     string `json:"error"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	res, err := h.engine.Create(r.Context(), booking.CreateParams{
		ClientID:   req.ClientID,
		ProviderID: req.ProviderID,
		ServiceID:  req.ServiceID,
		StartTime:  start,
		Notes:      req.Notes,
	})
	if err != nil {
		h.logger.Error("create booking failed", "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if !res.OK {
		writeFailure(w, res)
		return
	}

	h.emit(r.Context(), outbox.EventAppointmentScheduled, res.Appointment)
	writeAppointment(w, http.StatusCreated, res.Appointment)
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	newStart, err := time.Parse(time.RFC3339, strings.TrimSpace(req.NewStartTime))
	if err != nil {
		http.Error(w, "invalid new_start_time", http.StatusBadRequest)
		return
	}

	res, err := h.engine.Reschedule(r.Context(), req.AppointmentID, newStart)
	if err != nil {
		h.logger.Error("reschedule failed", "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if !res.OK {
		writeFailure(w, res)
		return
	}

	h.emit(r.Context(), outbox.EventAppointmentRescheduled, res.Appointment)
	writeAppointment(w, http.StatusOK, res.Appointment)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	res, err := h.engine.Cancel(r.Context(), req.AppointmentID, req.Reason)
	if err != nil {
		h.logger.Error("cancel failed", "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if !res.OK {
		writeFailure(w, res)
		return
	}

	h.emit(r.Context(), outbox.EventAppointmentCancelled, res.Appointment)
	writeAppointment(w, http.StatusOK, res.Appointment)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.terminal(w, r, outbox.EventAppointmentCompleted, h.engine.Complete)
}

func (h *BookingHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.terminal(w, r, outbox.EventAppointmentNoShow, h.engine.MarkNoShow)
}

func (h *BookingHandler) terminal(w http.ResponseWriter, r *http.Request, eventType string, op func(context.Context, string) (booking.Result, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	res, err := op(r.Context(), req.AppointmentID)
	if err != nil {
		h.logger.Error("transition failed", "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if !res.OK {
		writeFailure(w, res)
		return
	}

	h.emit(r.Context(), eventType, res.Appointment)
	writeAppointment(w, http.StatusOK, res.Appointment)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	providerID := strings.TrimSpace(r.URL.Query().Get("provider_id"))
	if providerID == "" {
		http.Error(w, "provider_id required", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.lister.ListByProvider(r.Context(), providerID, limit)
	if err != nil {
		h.logger.Error("list appointments failed", "err", err)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toResponse(a))
	}
	writeJSON(w, http.StatusOK, items)
}

// emit records the event for the outbox publisher. Event loss here is logged
// rather than failing the already-committed booking operation.
func (h *BookingHandler) emit(ctx context.Context, eventType string, a model.Appointment) {
	if h.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"appointment_id": a.ID,
		"client_id":      a.ClientID,
		"provider_id":    a.ProviderID,
		"service_id":     a.ServiceID,
		"start_time":     a.StartTime.UTC().Format(time.RFC3339),
		"end_time":       a.EndTime.UTC().Format(time.RFC3339),
		"status":         string(a.Status),
	})
	if err != nil {
		h.logger.Error("failed to build event payload", "err", err)
		return
	}
	if err := h.events.Append(ctx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		h.logger.Error("failed to append outbox event", "err", err, "event_type", eventType)
	}
}

func toResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		AppointmentID: a.ID,
		ClientID:      a.ClientID,
		ProviderID:    a.ProviderID,
		ServiceID:     a.ServiceID,
		StartTime:     a.StartTime.UTC().Format(time.RFC3339),
		EndTime:       a.EndTime.UTC().Format(time.RFC3339),
		Status:        string(a.Status),
	}
}

func writeAppointment(w http.ResponseWriter, status int, a model.Appointment) {
	writeJSON(w, status, toResponse(a))
}

func writeFailure(w http.ResponseWriter, res booking.Result) {
	status := http.StatusInternalServerError
	switch res.ErrorKind {
	case booking.KindValidation:
		status = http.StatusUnprocessableEntity
	case booking.KindNotFound:
		status = http.StatusNotFound
	case booking.KindSlotUnavailable, booking.KindInvalidTransition:
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{ErrorKind: string(res.ErrorKind), Error: res.Message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
