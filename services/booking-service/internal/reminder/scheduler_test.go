package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/notify"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/store"
)

type fakeSender struct {
	fail  bool
	sent  []notify.Message
	calls int
}

func (f *fakeSender) Send(_ context.Context, _ model.Client, msg notify.Message) error {
	f.calls++
	if f.fail {
		return errors.New("gateway down")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) ProviderID() string { return "fake" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture builds a store with a connected WhatsApp integration and one
// confirmed appointment starting at the given offset from now.
func fixture(t *testing.T, now time.Time, until time.Duration) (*store.Store, *fakeSender, *Scheduler) {
	t.Helper()
	ctx := context.Background()
	s := store.New(nil, testLogger())
	s.SetIntegration(ctx, model.ProviderWhatsApp, true, map[string]string{"instanceId": "i", "token": "t"})
	s.AddService(ctx, model.Service{ID: "svc", Name: "Consulta", DurationMinutes: 60, Active: true})
	s.AddClient(ctx, model.Client{ID: "cli", Name: "João", Phone: "11999999999"})
	s.AddAppointment(ctx, model.Appointment{
		ID:        "apt",
		ClientID:  "cli",
		ServiceID: "svc",
		StartTime: now.Add(until),
		EndTime:   now.Add(until + time.Hour),
		Status:    model.StatusConfirmed,
	})

	sender := &fakeSender{}
	sched := NewScheduler(s, map[model.NotificationChannel]notify.Sender{
		model.ChannelWhatsApp: sender,
	}, nil, testLogger(), DefaultInterval)
	return s, sender, sched
}

func TestTick_WindowBounds24h(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		until time.Duration
		want  bool
	}{
		{1440 * time.Minute, true},  // exactly 24h out
		{1431 * time.Minute, true},  // just inside lower bound
		{1430 * time.Minute, false}, // on the lower bound
		{1449 * time.Minute, true},  // just inside upper bound
		{1450 * time.Minute, false}, // on the upper bound
		{1451 * time.Minute, false},
	}
	for _, tc := range cases {
		_, _, sched := fixture(t, now, tc.until)
		got := sched.Tick(context.Background(), now)
		if (len(got) == 1) != tc.want {
			t.Errorf("until=%v: dispatched=%d, want fired=%v", tc.until, len(got), tc.want)
		}
	}
}

func TestTick_WindowBounds1h(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		until time.Duration
		want  bool
	}{
		{60 * time.Minute, true},
		{51 * time.Minute, true},
		{50 * time.Minute, false},
		{69 * time.Minute, true},
		{70 * time.Minute, false},
	}
	for _, tc := range cases {
		_, _, sched := fixture(t, now, tc.until)
		got := sched.Tick(context.Background(), now)
		if (len(got) == 1) != tc.want {
			t.Errorf("until=%v: dispatched=%d, want fired=%v", tc.until, len(got), tc.want)
		}
		if tc.want && len(got) == 1 && got[0].Kind != model.Reminder1h {
			t.Errorf("until=%v: fired kind %s, want 1h", tc.until, got[0].Kind)
		}
	}
}

func TestTick_AtMostOncePerKind(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s, sender, sched := fixture(t, now, 1440*time.Minute)

	if got := sched.Tick(context.Background(), now); len(got) != 1 {
		t.Fatalf("first tick should dispatch once, got %d", len(got))
	}
	// Same tick repeated inside the window: nothing new goes out.
	for i := 0; i < 3; i++ {
		if got := sched.Tick(context.Background(), now.Add(time.Duration(i)*time.Minute)); len(got) != 0 {
			t.Fatalf("repeat tick %d dispatched %d reminders", i, len(got))
		}
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(sender.sent))
	}
	appt, _ := s.AppointmentByID("apt")
	if !appt.ReminderSent(model.Reminder24h) {
		t.Fatal("24h kind should be recorded on the appointment")
	}
}

func TestTick_FailedSendRetriesUntilSuccess(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s, sender, sched := fixture(t, now, 60*time.Minute)

	sender.fail = true
	if got := sched.Tick(context.Background(), now); len(got) != 0 {
		t.Fatal("failed send must not count as a dispatch")
	}
	appt, _ := s.AppointmentByID("apt")
	if appt.ReminderSent(model.Reminder1h) {
		t.Fatal("failed send must not mark the reminder")
	}
	if len(s.Logs(0)) != 0 {
		t.Fatal("failed send must not append a log entry")
	}

	sender.fail = false
	if got := sched.Tick(context.Background(), now.Add(time.Minute)); len(got) != 1 {
		t.Fatal("retry inside the window should dispatch")
	}
	logs := s.Logs(0)
	if len(logs) != 1 || logs[0].Status != "sent" || logs[0].Trigger != model.TriggerReminder1h {
		t.Fatalf("unexpected log entries: %+v", logs)
	}
}

func TestTick_RuleToggleGatesPerTick(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s, _, sched := fixture(t, now, 60*time.Minute)
	ctx := context.Background()

	rule, _ := s.RuleByTrigger(model.TriggerReminder1h)
	s.ToggleRule(ctx, rule.ID)
	if got := sched.Tick(ctx, now); len(got) != 0 {
		t.Fatal("inactive rule must suppress dispatch")
	}

	s.ToggleRule(ctx, rule.ID)
	if got := sched.Tick(ctx, now.Add(time.Minute)); len(got) != 1 {
		t.Fatal("re-activated rule should dispatch on the next tick")
	}
}

func TestTick_DisconnectedIntegrationGates(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s, sender, sched := fixture(t, now, 60*time.Minute)
	ctx := context.Background()

	s.SetIntegration(ctx, model.ProviderWhatsApp, false, nil)
	if got := sched.Tick(ctx, now); len(got) != 0 {
		t.Fatal("disconnected whatsapp must suppress dispatch")
	}
	if sender.calls != 0 {
		t.Fatal("sender must not be invoked while the integration is down")
	}

	s.SetIntegration(ctx, model.ProviderWhatsApp, true, map[string]string{"instanceId": "i", "token": "t"})
	if got := sched.Tick(ctx, now.Add(time.Minute)); len(got) != 1 {
		t.Fatal("reconnect should dispatch on the next tick")
	}
}

func TestTick_SkipsNonConfirmedAndOrphans(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	s := store.New(nil, testLogger())
	s.SetIntegration(ctx, model.ProviderWhatsApp, true, map[string]string{"instanceId": "i", "token": "t"})
	s.AddService(ctx, model.Service{ID: "svc", Name: "Consulta", Active: true})
	s.AddClient(ctx, model.Client{ID: "cli", Name: "Maria"})

	start := now.Add(60 * time.Minute)
	for i, status := range []model.AppointmentStatus{model.StatusPending, model.StatusCancelled, model.StatusCompleted} {
		s.AddAppointment(ctx, model.Appointment{
			ID: string(rune('a' + i)), ClientID: "cli", ServiceID: "svc",
			StartTime: start, EndTime: start.Add(time.Hour), Status: status,
		})
	}
	// Confirmed but pointing at a client that no longer exists.
	s.AddAppointment(ctx, model.Appointment{
		ID: "orphan", ClientID: "ghost", ServiceID: "svc",
		StartTime: start, EndTime: start.Add(time.Hour), Status: model.StatusConfirmed,
	})

	sender := &fakeSender{}
	sched := NewScheduler(s, map[model.NotificationChannel]notify.Sender{
		model.ChannelWhatsApp: sender,
	}, nil, testLogger(), DefaultInterval)

	if got := sched.Tick(ctx, now); len(got) != 0 {
		t.Fatalf("nothing should dispatch, got %d", len(got))
	}
	if sender.calls != 0 {
		t.Fatal("sender must not be called for skipped appointments")
	}
}

func TestTick_MessageBodies(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	_, sender, sched := fixture(t, now, 1440*time.Minute)

	sched.Tick(context.Background(), now)
	if len(sender.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.sent))
	}
	want := "Olá João, seu agendamento de Consulta é amanhã às 10:00."
	if sender.sent[0].Body != want {
		t.Fatalf("24h body = %q, want %q", sender.sent[0].Body, want)
	}

	_, sender1h, sched1h := fixture(t, now, 60*time.Minute)
	sched1h.Tick(context.Background(), now)
	want1h := "Olá João, seu agendamento de Consulta começa em 1 hora!"
	if len(sender1h.sent) != 1 || sender1h.sent[0].Body != want1h {
		t.Fatalf("1h body = %+v, want %q", sender1h.sent, want1h)
	}
}
