package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/calendar"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/events"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/payments"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/store"
)

// Handler serves the public booking wizard, the admin panel API, and the
// payment webhooks against one shared store.
type Handler struct {
	store    *store.Store
	events   *events.Publisher
	calendar calendar.Provider
	payments *payments.Service
	logger   *slog.Logger
}

func New(st *store.Store, pub *events.Publisher, cal calendar.Provider, pay *payments.Service, logger *slog.Logger) *Handler {
	return &Handler{
		store:    st,
		events:   pub,
		calendar: cal,
		payments: pay,
		logger:   logger,
	}
}

// Calendar pushes detach from the request; they need their own deadline.
func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type appointmentDTO struct {
	ID            string            `json:"id"`
	ClientID      string            `json:"client_id"`
	ServiceID     string            `json:"service_id"`
	StartTime     string            `json:"start_time"`
	EndTime       string            `json:"end_time"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	IntakeData    map[string]string `json:"intake_data,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	RemindersSent []string          `json:"reminders_sent"`
	CreatedAt     string            `json:"created_at"`
}

func toAppointmentDTO(a model.Appointment) appointmentDTO {
	reminders := make([]string, 0, len(a.RemindersSent))
	for _, k := range a.RemindersSent {
		reminders = append(reminders, string(k))
	}
	return appointmentDTO{
		ID:            a.ID,
		ClientID:      a.ClientID,
		ServiceID:     a.ServiceID,
		StartTime:     a.StartTime.Format(time.RFC3339),
		EndTime:       a.EndTime.Format(time.RFC3339),
		Status:        string(a.Status),
		PaymentStatus: string(a.PaymentStatus),
		IntakeData:    a.IntakeData,
		Notes:         a.Notes,
		RemindersSent: reminders,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
}

type clientDTO struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Phone string   `json:"phone,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	Notes string   `json:"notes,omitempty"`
}

func toClientDTO(c model.Client) clientDTO {
	return clientDTO{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, Tags: c.Tags, Notes: c.Notes}
}

type serviceDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	PriceCents      int64  `json:"price_cents"`
	DurationMinutes int    `json:"duration_minutes"`
	BufferMinutes   int    `json:"buffer_minutes"`
	Color           string `json:"color,omitempty"`
	Category        string `json:"category,omitempty"`
	Active          bool   `json:"active"`
	Premium         bool   `json:"premium"`
}

func toServiceDTO(s model.Service) serviceDTO {
	return serviceDTO{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		PriceCents:      s.PriceCents,
		DurationMinutes: s.DurationMinutes,
		BufferMinutes:   s.BufferMinutes,
		Color:           s.Color,
		Category:        s.Category,
		Active:          s.Active,
		Premium:         s.Premium,
	}
}

// pushCalendar mirrors an appointment into the external calendar off the
// request path. Failures are logged only; the booking already committed.
func (h *Handler) pushCalendar(appt model.Appointment, client model.Client, svc model.Service) {
	if h.calendar == nil {
		return
	}
	go func() {
		ctx, cancel := contextWithTimeout(5 * time.Second)
		defer cancel()
		err := h.calendar.PushEvent(ctx, calendar.Event{
			AppointmentID: appt.ID,
			Title:         svc.Name,
			ClientName:    client.Name,
			StartUTC:      appt.StartTime.UTC(),
			EndUTC:        appt.EndTime.UTC(),
			Notes:         appt.Notes,
		})
		if err != nil {
			h.logger.Warn("calendar push failed", "appointment_id", appt.ID, "err", err)
		}
	}()
}

func (h *Handler) removeCalendar(appointmentID string) {
	if h.calendar == nil {
		return
	}
	go func() {
		ctx, cancel := contextWithTimeout(5 * time.Second)
		defer cancel()
		if err := h.calendar.RemoveEvent(ctx, appointmentID); err != nil {
			h.logger.Warn("calendar remove failed", "appointment_id", appointmentID, "err", err)
		}
	}()
}
