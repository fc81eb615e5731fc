package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/events"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/notify"
)

// Registry is the slice of the booking store the scheduler needs.
type Registry interface {
	Appointments() []model.Appointment
	AppointmentByID(id string) (model.Appointment, bool)
	ClientByID(id string) (model.Client, bool)
	ServiceByID(id string) (model.Service, bool)
	Integration(provider model.IntegrationProvider) (model.Integration, bool)
	RuleByTrigger(trigger model.NotificationTrigger) (model.NotificationRule, bool)
	MarkReminderSent(ctx context.Context, appointmentID string, kind model.ReminderKind) bool
	AppendLog(ctx context.Context, entry model.NotificationLog)
}

// Dispatch records one reminder that actually went out during a tick.
type Dispatch struct {
	AppointmentID string
	Kind          model.ReminderKind
	Channel       model.NotificationChannel
}

// window is one reminder lead time. Bounds are exclusive whole minutes
// until the appointment start, centered on the lead with a 10 minute
// half-width, so a sub-10-minute poll interval cannot skip over it.
type window struct {
	kind     model.ReminderKind
	trigger  model.NotificationTrigger
	lowerMin int
	upperMin int
}

var windows = []window{
	{kind: model.Reminder24h, trigger: model.TriggerReminder24h, lowerMin: 1430, upperMin: 1450},
	{kind: model.Reminder1h, trigger: model.TriggerReminder1h, lowerMin: 50, upperMin: 70},
}

const DefaultInterval = 30 * time.Second

// Scheduler polls the store and fires 24h/1h reminders at most once per
// appointment and kind. Sends that fail are retried on later ticks until
// the window closes.
type Scheduler struct {
	store    Registry
	senders  map[model.NotificationChannel]notify.Sender
	events   *events.Publisher
	logger   *slog.Logger
	interval time.Duration
	tracer   trace.Tracer
}

func NewScheduler(store Registry, senders map[model.NotificationChannel]notify.Sender, pub *events.Publisher, logger *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    store,
		senders:  senders,
		events:   pub,
		logger:   logger,
		interval: interval,
		tracer:   otel.Tracer("booking-service/reminder"),
	}
}

// Run polls until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reminder scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx, time.Now())
		}
	}
}

// Tick scans every appointment against every reminder window and returns the
// dispatches made. Rule and integration state is read fresh each tick, so
// toggling a rule or disconnecting WhatsApp takes effect on the next poll.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []Dispatch {
	ctx, span := s.tracer.Start(ctx, "reminder.tick")
	defer span.End()

	var dispatches []Dispatch
	appointments := s.store.Appointments()

	for _, win := range windows {
		rule, ok := s.store.RuleByTrigger(win.trigger)
		if !ok || !rule.Active {
			continue
		}
		sender, meta, ok := s.channelSender(rule.Channel)
		if !ok {
			continue
		}

		for _, appt := range appointments {
			if appt.Status != model.StatusConfirmed {
				continue
			}
			if appt.ReminderSent(win.kind) {
				continue
			}
			if !inWindow(now, appt.StartTime, win) {
				continue
			}
			if s.dispatch(ctx, appt.ID, win, rule, sender, meta) {
				dispatches = append(dispatches, Dispatch{
					AppointmentID: appt.ID,
					Kind:          win.kind,
					Channel:       rule.Channel,
				})
			}
		}
	}

	span.SetAttributes(attribute.Int("reminder.dispatched", len(dispatches)))
	return dispatches
}

// channelSender resolves the sender for a rule's channel, gated on the
// integration being connected for channels that need one.
func (s *Scheduler) channelSender(channel model.NotificationChannel) (notify.Sender, map[string]string, bool) {
	sender, ok := s.senders[channel]
	if !ok || sender == nil {
		return nil, nil, false
	}
	if channel == model.ChannelWhatsApp {
		integ, ok := s.store.Integration(model.ProviderWhatsApp)
		if !ok || !integ.Connected {
			return nil, nil, false
		}
		return sender, integ.Metadata, true
	}
	return sender, nil, true
}

// dispatch re-reads the appointment, sends, and marks on success. Marking is
// the commit point: the log entry and event only follow a successful mark.
func (s *Scheduler) dispatch(ctx context.Context, appointmentID string, win window, rule model.NotificationRule, sender notify.Sender, meta map[string]string) bool {
	appt, ok := s.store.AppointmentByID(appointmentID)
	if !ok || appt.Status != model.StatusConfirmed || appt.ReminderSent(win.kind) {
		return false
	}
	client, ok := s.store.ClientByID(appt.ClientID)
	if !ok {
		return false
	}
	service, ok := s.store.ServiceByID(appt.ServiceID)
	if !ok {
		return false
	}

	msg := notify.Message{
		Body:    renderBody(win.kind, client, service, appt),
		Subject: rule.TemplateSubject,
		Meta:    meta,
	}
	if err := sender.Send(ctx, client, msg); err != nil {
		s.logger.Warn("reminder send failed",
			"appointment_id", appt.ID,
			"kind", string(win.kind),
			"channel", string(rule.Channel),
			"err", err,
		)
		return false
	}
	if !s.store.MarkReminderSent(ctx, appt.ID, win.kind) {
		// Lost the race against a concurrent tick; the other one logged it.
		return false
	}

	entry := model.NotificationLog{
		ID:            uuid.NewString(),
		AppointmentID: appt.ID,
		ClientName:    client.Name,
		Channel:       rule.Channel,
		Trigger:       win.trigger,
		Status:        "sent",
		SentAt:        time.Now(),
	}
	s.store.AppendLog(ctx, entry)
	s.events.Publish(ctx, events.NotificationSent, appt.ID, map[string]string{
		"appointment_id": appt.ID,
		"client_id":      client.ID,
		"channel":        string(rule.Channel),
		"trigger":        string(win.trigger),
	})

	s.logger.Info("reminder sent",
		"appointment_id", appt.ID,
		"kind", string(win.kind),
		"channel", string(rule.Channel),
	)
	return true
}

// inWindow reports whether the appointment start lies strictly inside the
// window, measured in whole minutes from now (truncated toward zero).
func inWindow(now, start time.Time, win window) bool {
	mins := int(start.Sub(now) / time.Minute)
	return mins > win.lowerMin && mins < win.upperMin
}

func renderBody(kind model.ReminderKind, client model.Client, service model.Service, appt model.Appointment) string {
	switch kind {
	case model.Reminder24h:
		return fmt.Sprintf("Olá %s, seu agendamento de %s é amanhã às %s.",
			client.Name, service.Name, appt.StartTime.Format("15:04"))
	case model.Reminder1h:
		return fmt.Sprintf("Olá %s, seu agendamento de %s começa em 1 hora!",
			client.Name, service.Name)
	default:
		return ""
	}
}
