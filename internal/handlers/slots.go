package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"therapy-booking/internal/slots"
	"therapy-booking/internal/storage"
)

// maxSlotWait caps the per-request slot generation deadline a client may ask
// for via max_wait_ms.
const maxSlotWait = 10 * time.Second

type slotItem struct {
	ProviderID      string `json:"provider_id"`
	ProviderName    string `json:"provider_name"`
	ServiceID       string `json:"service_id"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type slotsResponse struct {
	Slots     []slotItem `json:"slots"`
	Truncated bool       `json:"truncated,omitempty"`
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	serviceID := strings.TrimSpace(q.Get("service_id"))
	if serviceID == "" {
		http.Error(w, "service_id required", http.StatusBadRequest)
		return
	}

	from, ok := parseRangeBound(q.Get("from"), false)
	if !ok {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, ok := parseRangeBound(q.Get("to"), true)
	if !ok {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if raw := strings.TrimSpace(q.Get("max_wait_ms")); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			http.Error(w, "invalid max_wait_ms", http.StatusBadRequest)
			return
		}
		wait := time.Duration(ms) * time.Millisecond
		if wait > maxSlotWait {
			wait = maxSlotWait
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	res, err := h.generator.Generate(ctx, slots.Request{
		ServiceID:  serviceID,
		ProviderID: strings.TrimSpace(q.Get("provider_id")),
		From:       from,
		To:         to,
	})
	if err != nil {
		switch {
		case errors.Is(err, slots.ErrInvalidRange):
			http.Error(w, "from must be before to", http.StatusBadRequest)
		case storage.IsNotFound(err):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, slots.ErrServiceInactive), errors.Is(err, slots.ErrProviderMismatch):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{ErrorKind: "validation", Error: err.Error()})
		default:
			h.logger.Error("slot generation failed", "err", err)
			http.Error(w, "failed to generate slots", http.StatusInternalServerError)
		}
		return
	}

	resp := slotsResponse{Slots: make([]slotItem, 0, len(res.Slots)), Truncated: res.Truncated}
	for _, s := range res.Slots {
		resp.Slots = append(resp.Slots, slotItem{
			ProviderID:      s.ProviderID,
			ProviderName:    s.ProviderName,
			ServiceID:       s.ServiceID,
			StartTime:       s.StartTime.UTC().Format(time.RFC3339),
			EndTime:         s.EndTime.UTC().Format(time.RFC3339),
			DurationMinutes: s.DurationMinutes,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type availabilityResponse struct {
	Available  bool   `json:"available"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	BreakStart string `json:"break_start,omitempty"`
	BreakEnd   string `json:"break_end,omitempty"`
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	providerID := strings.TrimSpace(q.Get("provider_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if providerID == "" || dateStr == "" {
		http.Error(w, "provider_id and date required", http.StatusBadRequest)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	win, ok, err := h.resolver.Resolve(r.Context(), providerID, date)
	if err != nil {
		h.logger.Error("availability resolve failed", "err", err)
		http.Error(w, "failed to resolve availability", http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, availabilityResponse{Available: false})
		return
	}

	resp := availabilityResponse{
		Available: true,
		Start:     win.Start.UTC().Format(time.RFC3339),
		End:       win.End.UTC().Format(time.RFC3339),
	}
	if win.HasBreak() {
		resp.BreakStart = win.BreakStart.UTC().Format(time.RFC3339)
		resp.BreakEnd = win.BreakEnd.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseRangeBound accepts RFC3339 timestamps or bare dates. A bare date as
// the upper bound covers the whole day.
func parseRangeBound(raw string, upper bool) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}
