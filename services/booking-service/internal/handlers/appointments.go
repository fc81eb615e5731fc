package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/availability"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/events"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

// Appointments serves the collection: GET lists, POST creates.
func (h *Handler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listAppointments(w, r)
	case http.MethodPost:
		h.createAppointment(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	all := h.store.Appointments()
	out := make([]appointmentDTO, 0, len(all))
	for _, a := range all {
		out = append(out, toAppointmentDTO(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

type createAppointmentRequest struct {
	ClientID      string            `json:"client_id"`
	ServiceID     string            `json:"service_id"`
	StartTime     string            `json:"start_time"`
	EndTime       string            `json:"end_time"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	IntakeData    map[string]string `json:"intake_data"`
	Notes         string            `json:"notes"`
}

type createAppointmentResponse struct {
	Appointment appointmentDTO `json:"appointment"`
	Conflict    bool           `json:"conflict"`
}

// createAppointment books from the admin panel. Defaults to confirmed and
// reports the conflict flag without rejecting: overbooking is the admin's
// call.
func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.ClientID == "" || req.ServiceID == "" || req.StartTime == "" {
		http.Error(w, "client_id, service_id and start_time are required", http.StatusBadRequest)
		return
	}
	if _, ok := h.store.ClientByID(req.ClientID); !ok {
		http.Error(w, "unknown client", http.StatusNotFound)
		return
	}
	svc, ok := h.store.ServiceByID(req.ServiceID)
	if !ok {
		http.Error(w, "unknown service", http.StatusNotFound)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "start_time must be RFC3339", http.StatusBadRequest)
		return
	}
	end := start.Add(svc.Duration())
	if req.EndTime != "" {
		end, err = time.Parse(time.RFC3339, req.EndTime)
		if err != nil || !end.After(start) {
			http.Error(w, "end_time must be RFC3339 after start_time", http.StatusBadRequest)
			return
		}
	}

	status := model.StatusConfirmed
	if req.Status != "" {
		status = model.AppointmentStatus(req.Status)
		if !model.ValidStatus(status) {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
	}
	paymentStatus := model.PaymentUnpaid
	if req.PaymentStatus != "" {
		paymentStatus = model.PaymentStatus(req.PaymentStatus)
	}

	conflict := availability.DetectConflict(start, end, h.store.Appointments())

	appt := model.Appointment{
		ID:            uuid.NewString(),
		ClientID:      req.ClientID,
		ServiceID:     req.ServiceID,
		StartTime:     start,
		EndTime:       end,
		Status:        status,
		PaymentStatus: paymentStatus,
		IntakeData:    req.IntakeData,
		Notes:         req.Notes,
	}
	if !h.store.AddAppointment(r.Context(), appt) {
		http.Error(w, "could not create appointment", http.StatusInternalServerError)
		return
	}

	h.events.Publish(r.Context(), events.AppointmentCreated, appt.ID, toAppointmentDTO(appt))
	if client, ok := h.store.ClientByID(appt.ClientID); ok {
		h.pushCalendar(appt, client, svc)
	}

	stored, _ := h.store.AppointmentByID(appt.ID)
	writeJSON(w, http.StatusCreated, createAppointmentResponse{
		Appointment: toAppointmentDTO(stored),
		Conflict:    conflict,
	})
}

// AppointmentByID handles the /api/v1/appointments/ subtree:
// PUT /{id} replaces, POST /{id}/cancel transitions the status.
func (h *Handler) AppointmentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/appointments/")
	if rest == "" || strings.Contains(strings.TrimSuffix(rest, "/cancel"), "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if strings.HasSuffix(rest, "/cancel") {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.cancelAppointment(w, r, strings.TrimSuffix(rest, "/cancel"))
		return
	}
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.replaceAppointment(w, r, rest)
}

// replaceAppointment swaps the whole record. Reminder history and creation
// time are server-owned and survive the replace.
func (h *Handler) replaceAppointment(w http.ResponseWriter, r *http.Request, id string) {
	existing, ok := h.store.AppointmentByID(id)
	if !ok {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "start_time must be RFC3339", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil || !end.After(start) {
		http.Error(w, "end_time must be RFC3339 after start_time", http.StatusBadRequest)
		return
	}
	status := model.AppointmentStatus(req.Status)
	if !model.ValidStatus(status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	appt := model.Appointment{
		ID:            id,
		ClientID:      strings.TrimSpace(req.ClientID),
		ServiceID:     strings.TrimSpace(req.ServiceID),
		StartTime:     start,
		EndTime:       end,
		Status:        status,
		PaymentStatus: model.PaymentStatus(req.PaymentStatus),
		IntakeData:    req.IntakeData,
		Notes:         req.Notes,
		RemindersSent: existing.RemindersSent,
		CreatedAt:     existing.CreatedAt,
	}
	if appt.ClientID == "" {
		appt.ClientID = existing.ClientID
	}
	if appt.ServiceID == "" {
		appt.ServiceID = existing.ServiceID
	}
	if appt.PaymentStatus == "" {
		appt.PaymentStatus = existing.PaymentStatus
	}

	if !h.store.ReplaceAppointment(r.Context(), appt) {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}

	h.events.Publish(r.Context(), events.AppointmentUpdated, appt.ID, toAppointmentDTO(appt))
	stored, _ := h.store.AppointmentByID(id)
	writeJSON(w, http.StatusOK, map[string]any{"appointment": toAppointmentDTO(stored)})
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request, id string) {
	appt, ok := h.store.AppointmentByID(id)
	if !ok {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}
	if appt.Status == model.StatusCancelled {
		writeJSON(w, http.StatusOK, map[string]any{"appointment": toAppointmentDTO(appt)})
		return
	}

	appt.Status = model.StatusCancelled
	if !h.store.ReplaceAppointment(r.Context(), appt) {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}

	h.events.Publish(r.Context(), events.AppointmentCancelled, appt.ID, toAppointmentDTO(appt))
	h.removeCalendar(appt.ID)
	h.logger.Info("appointment cancelled", "appointment_id", appt.ID)
	writeJSON(w, http.StatusOK, map[string]any{"appointment": toAppointmentDTO(appt)})
}

type checkConflictRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	ExcludeID string `json:"exclude_id"`
}

// CheckConflict answers the admin calendar's drag-and-drop probe.
func (h *Handler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req checkConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "start_time must be RFC3339", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil || !end.After(start) {
		http.Error(w, "end_time must be RFC3339 after start_time", http.StatusBadRequest)
		return
	}

	appointments := h.store.Appointments()
	if req.ExcludeID != "" {
		filtered := appointments[:0]
		for _, a := range appointments {
			if a.ID != req.ExcludeID {
				filtered = append(filtered, a)
			}
		}
		appointments = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conflict": availability.DetectConflict(start, end, appointments),
	})
}
