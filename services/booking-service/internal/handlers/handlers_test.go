package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/payments"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/store"
)

func testHandler(t *testing.T) (*Handler, *store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(nil, logger)
	pay := payments.NewService("", "", "", "", logger)
	return New(st, nil, nil, pay, logger), st
}

func seedCatalog(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	st.AddService(ctx, model.Service{ID: "svc", Name: "Consulta", DurationMinutes: 50, PriceCents: 15000, Active: true})
	st.AddClient(ctx, model.Client{ID: "cli", Name: "João Silva", Email: "joao@example.com", Phone: "11999999999"})
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.Contains(rec.Header().Get("Content-Type"), "json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestPublicSlots_UnknownServiceYieldsEmptyList(t *testing.T) {
	h, _ := testHandler(t)
	rec, body := doJSON(t, h.PublicSlots, http.MethodGet, "/api/v1/public/slots?service_id=nope&date=2026-04-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	slots, ok := body["slots"].([]any)
	if !ok || len(slots) != 0 {
		t.Fatalf("expected empty slots list, got %v", body["slots"])
	}
}

func TestPublicSlots_ExcludesBookedHour(t *testing.T) {
	h, st := testHandler(t)
	seedCatalog(t, st)

	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	st.AddAppointment(context.Background(), model.Appointment{
		ID: "a1", ClientID: "cli", ServiceID: "svc",
		StartTime: start, EndTime: start.Add(50 * time.Minute),
		Status: model.StatusConfirmed,
	})

	rec, body := doJSON(t, h.PublicSlots, http.MethodGet, "/api/v1/public/slots?service_id=svc&date=2026-04-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	slots := body["slots"].([]any)
	if len(slots) != 8 {
		t.Fatalf("expected 8 remaining slots, got %d", len(slots))
	}
	first := slots[0].(map[string]any)
	if !strings.Contains(first["start_time"].(string), "T10:00:00") {
		t.Fatalf("first open slot should be 10:00, got %v", first["start_time"])
	}
}

func TestPublicBook_CreatesPendingAndReusesClientByEmail(t *testing.T) {
	h, st := testHandler(t)
	seedCatalog(t, st)

	payload := `{"service_id":"svc","start_time":"2026-04-01T10:00:00Z","name":"João Silva","email":"JOAO@example.com","phone":"11999999999"}`
	rec, body := doJSON(t, h.PublicBook, http.MethodPost, "/api/v1/public/book", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if body["status"] != string(model.StatusPending) {
		t.Fatalf("public booking should be pending, got %v", body["status"])
	}
	if body["client_id"] != "cli" {
		t.Fatalf("existing client should be reused, got %v", body["client_id"])
	}

	appt, ok := st.AppointmentByID(body["appointment_id"].(string))
	if !ok {
		t.Fatal("appointment not stored")
	}
	if appt.PaymentStatus != model.PaymentUnpaid {
		t.Fatalf("new booking should be unpaid, got %s", appt.PaymentStatus)
	}
	if !appt.EndTime.Equal(appt.StartTime.Add(50 * time.Minute)) {
		t.Fatal("end time should derive from the service duration")
	}
}

func TestPublicBook_NewClientRegistered(t *testing.T) {
	h, st := testHandler(t)
	seedCatalog(t, st)

	payload := `{"service_id":"svc","start_time":"2026-04-01T11:00:00Z","name":"Maria Pereira","email":"maria@example.com"}`
	rec, body := doJSON(t, h.PublicBook, http.MethodPost, "/api/v1/public/book", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	client, ok := st.ClientByEmail("maria@example.com")
	if !ok || client.ID != body["client_id"] {
		t.Fatalf("new client should be registered: %+v", client)
	}
}

func TestCreateAppointment_DefaultsConfirmedWithConflictFlag(t *testing.T) {
	h, st := testHandler(t)
	seedCatalog(t, st)

	payload := `{"client_id":"cli","service_id":"svc","start_time":"2026-04-01T09:00:00Z"}`
	rec, body := doJSON(t, h.Appointments, http.MethodPost, "/api/v1/appointments", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	appt := body["appointment"].(map[string]any)
	if appt["status"] != string(model.StatusConfirmed) {
		t.Fatalf("admin booking should default to confirmed, got %v", appt["status"])
	}
	if body["conflict"] != false {
		t.Fatal("first booking of the day should not conflict")
	}

	// Overlapping second booking: created anyway, flagged.
	rec, body = doJSON(t, h.Appointments, http.MethodPost, "/api/v1/appointments", `{"client_id":"cli","service_id":"svc","start_time":"2026-04-01T09:30:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("overbooking must not be rejected, status = %d", rec.Code)
	}
	if body["conflict"] != true {
		t.Fatal("overlapping booking should carry the conflict flag")
	}
}

func TestCancelAppointment_StatusTransition(t *testing.T) {
	h, st := testHandler(t)
	seedCatalog(t, st)
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	st.AddAppointment(context.Background(), model.Appointment{
		ID: "a1", ClientID: "cli", ServiceID: "svc",
		StartTime: start, EndTime: start.Add(time.Hour), Status: model.StatusConfirmed,
	})

	rec, body := doJSON(t, h.AppointmentByID, http.MethodPost, "/api/v1/appointments/a1/cancel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	appt := body["appointment"].(map[string]any)
	if appt["status"] != string(model.StatusCancelled) {
		t.Fatalf("cancel should transition status, got %v", appt["status"])
	}
	// Record still exists; cancellation is never a delete.
	if _, ok := st.AppointmentByID("a1"); !ok {
		t.Fatal("cancelled appointment must remain in the store")
	}
}

func TestReplaceAppointment_PreservesReminderHistory(t *testing.T) {
	h, st := testHandler(t)
	seedCatalog(t, st)
	ctx := context.Background()
	start := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	st.AddAppointment(ctx, model.Appointment{
		ID: "a1", ClientID: "cli", ServiceID: "svc",
		StartTime: start, EndTime: start.Add(time.Hour), Status: model.StatusConfirmed,
	})
	st.MarkReminderSent(ctx, "a1", model.Reminder24h)

	payload := `{"client_id":"cli","service_id":"svc","start_time":"2026-04-02T14:00:00Z","end_time":"2026-04-02T15:00:00Z","status":"rescheduled","reminders_sent":[]}`
	rec, _ := doJSON(t, h.AppointmentByID, http.MethodPut, "/api/v1/appointments/a1", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	appt, _ := st.AppointmentByID("a1")
	if appt.Status != model.StatusRescheduled {
		t.Fatalf("status not replaced: %s", appt.Status)
	}
	if !appt.ReminderSent(model.Reminder24h) {
		t.Fatal("reminder history must survive a replace")
	}
}

func TestCheckConflict_ExcludesOwnID(t *testing.T) {
	h, st := testHandler(t)
	seedCatalog(t, st)
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	st.AddAppointment(context.Background(), model.Appointment{
		ID: "a1", ClientID: "cli", ServiceID: "svc",
		StartTime: start, EndTime: start.Add(time.Hour), Status: model.StatusConfirmed,
	})

	rec, body := doJSON(t, h.CheckConflict, http.MethodPost, "/api/v1/appointments/check-conflict",
		`{"start_time":"2026-04-01T09:30:00Z","end_time":"2026-04-01T10:30:00Z"}`)
	if rec.Code != http.StatusOK || body["conflict"] != true {
		t.Fatalf("overlap should conflict: %d %v", rec.Code, body)
	}

	rec, body = doJSON(t, h.CheckConflict, http.MethodPost, "/api/v1/appointments/check-conflict",
		`{"start_time":"2026-04-01T09:30:00Z","end_time":"2026-04-01T10:30:00Z","exclude_id":"a1"}`)
	if rec.Code != http.StatusOK || body["conflict"] != false {
		t.Fatalf("excluding the moved appointment should clear the flag: %d %v", rec.Code, body)
	}

	// Abutting interval never conflicts.
	rec, body = doJSON(t, h.CheckConflict, http.MethodPost, "/api/v1/appointments/check-conflict",
		`{"start_time":"2026-04-01T10:00:00Z","end_time":"2026-04-01T11:00:00Z"}`)
	if rec.Code != http.StatusOK || body["conflict"] != false {
		t.Fatalf("abutment should not conflict: %d %v", rec.Code, body)
	}
}

func TestCreateClient_DuplicateEmailConflicts(t *testing.T) {
	h, st := testHandler(t)
	seedCatalog(t, st)

	rec, _ := doJSON(t, h.Clients, http.MethodPost, "/api/v1/clients", `{"name":"Outro João","email":"joao@example.com"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email should 409, got %d", rec.Code)
	}
	if len(st.Clients()) != 1 {
		t.Fatal("duplicate must not be stored")
	}
}

func TestIntegrationAndRuleEndpoints(t *testing.T) {
	h, st := testHandler(t)

	rec, body := doJSON(t, h.IntegrationByProvider, http.MethodPut, "/api/v1/integrations/whatsapp",
		`{"connected":true,"metadata":{"instanceId":"i","token":"t"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	integ := body["integration"].(map[string]any)
	if integ["connected"] != true {
		t.Fatalf("integration should be connected: %v", integ)
	}

	rec, _ = doJSON(t, h.IntegrationByProvider, http.MethodPut, "/api/v1/integrations/carrier_pigeon", `{"connected":true}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown provider should 404, got %d", rec.Code)
	}

	rule, _ := st.RuleByTrigger(model.TriggerReminder24h)
	rec, body = doJSON(t, h.NotificationRuleToggle, http.MethodPost, "/api/v1/notifications/rules/"+rule.ID+"/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["rule"].(map[string]any)["active"] != false {
		t.Fatal("toggle should flip the default-active rule off")
	}
}

func TestPaymentCheckout_UnconfiguredReturns501(t *testing.T) {
	h, _ := testHandler(t)
	rec, _ := doJSON(t, h.PaymentCheckout, http.MethodPost, "/api/v1/payments/checkout", `{"appointment_id":"x"}`)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 without stripe key, got %d", rec.Code)
	}
}
