package store

import (
	"context"
	"testing"
	"time"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

func newTestStore() *Store {
	return New(nil, nil)
}

func TestAddClient_DuplicateEmailDropped(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if !s.AddClient(ctx, model.Client{ID: "c1", Name: "Ana", Email: "ana@example.com"}) {
		t.Fatal("first insert should succeed")
	}
	if s.AddClient(ctx, model.Client{ID: "c2", Name: "Ana B", Email: "ana@example.com"}) {
		t.Fatal("insert with duplicate email should be dropped")
	}
	if _, ok := s.ClientByID("c2"); ok {
		t.Fatal("dropped client must not be stored")
	}
	// Case-insensitive match counts as duplicate.
	if s.AddClient(ctx, model.Client{ID: "c3", Email: "ANA@example.com"}) {
		t.Fatal("case-insensitive duplicate should be dropped")
	}
}

func TestAddClient_EmptyEmailsNeverCollide(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if !s.AddClient(ctx, model.Client{ID: "c1", Name: "Sem Email"}) {
		t.Fatal("first client without email should insert")
	}
	if !s.AddClient(ctx, model.Client{ID: "c2", Name: "Também Sem"}) {
		t.Fatal("second client without email should insert too")
	}
}

func TestReplaceAppointment_WholeRecordByID(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	appt := model.Appointment{
		ID:            "a1",
		ClientID:      "c1",
		ServiceID:     "s1",
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentUnpaid,
	}
	if !s.AddAppointment(ctx, appt) {
		t.Fatal("add should succeed")
	}
	if s.AddAppointment(ctx, appt) {
		t.Fatal("second add with same id should be rejected")
	}

	appt.Status = model.StatusConfirmed
	appt.Notes = "confirmado por telefone"
	if !s.ReplaceAppointment(ctx, appt) {
		t.Fatal("replace should succeed")
	}
	got, ok := s.AppointmentByID("a1")
	if !ok || got.Status != model.StatusConfirmed || got.Notes != "confirmado por telefone" {
		t.Fatalf("replace did not swap the record: %+v", got)
	}

	if s.ReplaceAppointment(ctx, model.Appointment{ID: "missing"}) {
		t.Fatal("replace of unknown id should report false")
	}
}

func TestMarkReminderSent_AtMostOnce(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	s.AddAppointment(ctx, model.Appointment{
		ID:        "a1",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    model.StatusConfirmed,
	})

	if !s.MarkReminderSent(ctx, "a1", model.Reminder24h) {
		t.Fatal("first mark should succeed")
	}
	if s.MarkReminderSent(ctx, "a1", model.Reminder24h) {
		t.Fatal("second mark of same kind must report false")
	}
	if !s.MarkReminderSent(ctx, "a1", model.Reminder1h) {
		t.Fatal("different kind should still mark")
	}

	got, _ := s.AppointmentByID("a1")
	if len(got.RemindersSent) != 2 {
		t.Fatalf("expected exactly two reminder kinds, got %v", got.RemindersSent)
	}
	if s.MarkReminderSent(ctx, "nope", model.Reminder1h) {
		t.Fatal("unknown appointment should not mark")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	s.AddAppointment(ctx, model.Appointment{
		ID: "a1", StartTime: start, EndTime: start.Add(time.Hour),
		Status: model.StatusConfirmed, RemindersSent: []model.ReminderKind{model.Reminder24h},
	})

	snap := s.Appointments()
	snap[0].RemindersSent[0] = "mutated"
	snap[0].Status = model.StatusCancelled

	got, _ := s.AppointmentByID("a1")
	if got.Status != model.StatusConfirmed || got.RemindersSent[0] != model.Reminder24h {
		t.Fatal("mutating a snapshot must not affect the store")
	}
}

func TestAppointments_SortedByStart(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	s.AddAppointment(ctx, model.Appointment{ID: "later", StartTime: base.Add(2 * time.Hour), EndTime: base.Add(3 * time.Hour), Status: model.StatusConfirmed})
	s.AddAppointment(ctx, model.Appointment{ID: "earlier", StartTime: base, EndTime: base.Add(time.Hour), Status: model.StatusConfirmed})

	got := s.Appointments()
	if got[0].ID != "earlier" || got[1].ID != "later" {
		t.Fatalf("appointments not ordered by start time: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestSetIntegration_TogglesAndStampsLastSync(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if !s.SetIntegration(ctx, model.ProviderWhatsApp, true, map[string]string{"instanceId": "inst-1", "token": "tok"}) {
		t.Fatal("connecting a known provider should succeed")
	}
	integ, _ := s.Integration(model.ProviderWhatsApp)
	if !integ.Connected || integ.LastSync == nil || integ.Metadata["instanceId"] != "inst-1" {
		t.Fatalf("unexpected integration state: %+v", integ)
	}

	s.SetIntegration(ctx, model.ProviderWhatsApp, false, nil)
	integ, _ = s.Integration(model.ProviderWhatsApp)
	if integ.Connected || integ.LastSync != nil {
		t.Fatal("disconnect should clear connected flag and last sync")
	}
	if integ.Metadata["instanceId"] != "inst-1" {
		t.Fatal("disconnect without metadata must keep stored metadata")
	}

	if s.SetIntegration(ctx, "smoke_signals", true, nil) {
		t.Fatal("unknown provider should be rejected")
	}
}

func TestToggleRule(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	rule, ok := s.RuleByTrigger(model.TriggerReminder24h)
	if !ok || !rule.Active {
		t.Fatalf("default 24h rule should exist and be active: %+v", rule)
	}
	if !s.ToggleRule(ctx, rule.ID) {
		t.Fatal("toggle should succeed")
	}
	rule, _ = s.RuleByTrigger(model.TriggerReminder24h)
	if rule.Active {
		t.Fatal("rule should be inactive after toggle")
	}
	if s.ToggleRule(ctx, "rule_missing") {
		t.Fatal("unknown rule should not toggle")
	}
}

func TestLogs_NewestFirstAndLimited(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for i, id := range []string{"l1", "l2", "l3"} {
		s.AppendLog(ctx, model.NotificationLog{
			ID:     id,
			SentAt: time.Date(2026, 4, 1, 9, i, 0, 0, time.UTC),
		})
	}
	logs := s.Logs(2)
	if len(logs) != 2 || logs[0].ID != "l3" || logs[1].ID != "l2" {
		t.Fatalf("expected newest-first capped logs, got %+v", logs)
	}
	if len(s.Logs(0)) != 3 {
		t.Fatal("limit 0 should return all entries")
	}
}
