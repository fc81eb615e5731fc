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

// PublicServices lists the active catalog for the booking wizard.
func (h *Handler) PublicServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := []serviceDTO{}
	for _, svc := range h.store.Services() {
		if svc.Active {
			out = append(out, toServiceDTO(svc))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out})
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// PublicSlots returns the open slots for a service on a given day.
// An unknown service yields an empty list, not an error.
func (h *Handler) PublicSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if serviceID == "" || dateStr == "" {
		http.Error(w, "service_id and date are required", http.StatusBadRequest)
		return
	}
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	items := []slotItem{}
	if svc, ok := h.store.ServiceByID(serviceID); ok && svc.Active {
		slots := availability.AvailableSlots(day, svc.Duration(), h.store.Appointments())
		for _, s := range slots {
			items = append(items, slotItem{
				StartTime: s.Start.Format(time.RFC3339),
				EndTime:   s.End.Format(time.RFC3339),
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": items})
}

type bookRequest struct {
	ServiceID  string            `json:"service_id"`
	StartTime  string            `json:"start_time"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Notes      string            `json:"notes"`
	IntakeData map[string]string `json:"intake_data"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
	Status        string `json:"status"`
}

// PublicBook is the wizard's final step: resolve-or-create the client,
// create the appointment as pending, and fan out the side effects.
func (h *Handler) PublicBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.ServiceID == "" || req.StartTime == "" || req.Name == "" {
		http.Error(w, "service_id, start_time and name are required", http.StatusBadRequest)
		return
	}

	svc, ok := h.store.ServiceByID(req.ServiceID)
	if !ok || !svc.Active {
		http.Error(w, "unknown service", http.StatusNotFound)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "start_time must be RFC3339", http.StatusBadRequest)
		return
	}

	// Returning clients are matched by email; new ones get an id. A lost
	// insert race resolves to the winner's record.
	clientID := ""
	if existing, ok := h.store.ClientByEmail(req.Email); ok {
		clientID = existing.ID
	} else {
		candidate := model.Client{
			ID:    uuid.NewString(),
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
			Notes: req.Notes,
		}
		if h.store.AddClient(r.Context(), candidate) {
			clientID = candidate.ID
		} else if winner, ok := h.store.ClientByEmail(req.Email); ok {
			clientID = winner.ID
		} else {
			http.Error(w, "could not register client", http.StatusInternalServerError)
			return
		}
	}

	appt := model.Appointment{
		ID:            uuid.NewString(),
		ClientID:      clientID,
		ServiceID:     svc.ID,
		StartTime:     start,
		EndTime:       start.Add(svc.Duration()),
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentUnpaid,
		IntakeData:    req.IntakeData,
		Notes:         req.Notes,
	}
	if !h.store.AddAppointment(r.Context(), appt) {
		http.Error(w, "could not create appointment", http.StatusInternalServerError)
		return
	}

	h.events.Publish(r.Context(), events.AppointmentCreated, appt.ID, toAppointmentDTO(appt))
	if client, ok := h.store.ClientByID(clientID); ok {
		h.pushCalendar(appt, client, svc)
	}

	h.logger.Info("public booking created",
		"appointment_id", appt.ID,
		"service_id", svc.ID,
		"client_id", clientID,
	)
	writeJSON(w, http.StatusCreated, bookResponse{
		AppointmentID: appt.ID,
		ClientID:      clientID,
		Status:        string(appt.Status),
	})
}
