package store

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

// Archiver receives a copy of every committed mutation for durable storage.
// Archive failures never fail the in-memory commit; the session state is
// authoritative.
type Archiver interface {
	SaveAppointment(ctx context.Context, appt model.Appointment) error
	SaveClient(ctx context.Context, client model.Client) error
	DeleteClient(ctx context.Context, id string) error
	SaveService(ctx context.Context, svc model.Service) error
	DeleteService(ctx context.Context, id string) error
	AppendLog(ctx context.Context, entry model.NotificationLog) error
}

// Store owns the booking session's collections and is their only writer.
// Mutation happens through a closed command set; every appointment update is
// a whole-record replace keyed by id. Reads return snapshot copies.
type Store struct {
	mu           sync.RWMutex
	appointments map[string]model.Appointment
	clients      map[string]model.Client
	services     map[string]model.Service
	integrations map[model.IntegrationProvider]model.Integration
	rules        map[string]model.NotificationRule
	logs         []model.NotificationLog // newest first

	archive Archiver
	logger  *slog.Logger
	now     func() time.Time
}

func New(archive Archiver, logger *slog.Logger) *Store {
	s := &Store{
		appointments: map[string]model.Appointment{},
		clients:      map[string]model.Client{},
		services:     map[string]model.Service{},
		integrations: map[model.IntegrationProvider]model.Integration{},
		rules:        map[string]model.NotificationRule{},
		archive:      archive,
		logger:       logger,
		now:          time.Now,
	}
	for _, i := range defaultIntegrations() {
		s.integrations[i.Provider] = i
	}
	for _, r := range defaultRules() {
		s.rules[r.ID] = r
	}
	return s
}

func defaultIntegrations() []model.Integration {
	return []model.Integration{
		{Provider: model.ProviderGoogleCalendar},
		{Provider: model.ProviderOutlookCalendar},
		{Provider: model.ProviderWhatsApp, Metadata: map[string]string{"provider": "Z-API"}},
	}
}

func defaultRules() []model.NotificationRule {
	return []model.NotificationRule{
		{ID: "rule_created", Trigger: model.TriggerCreated, Channel: model.ChannelEmail, Active: true, TemplateSubject: "Agendamento Recebido"},
		{ID: "rule_confirmed", Trigger: model.TriggerConfirmed, Channel: model.ChannelWhatsApp, Active: true},
		{ID: "rule_reminder_24h", Trigger: model.TriggerReminder24h, Channel: model.ChannelWhatsApp, Active: true, TemplateSubject: "Lembrete: Seu horário é amanhã"},
		{ID: "rule_reminder_1h", Trigger: model.TriggerReminder1h, Channel: model.ChannelWhatsApp, Active: true},
	}
}

func (s *Store) archiveAppointment(ctx context.Context, appt model.Appointment) {
	if s.archive == nil {
		return
	}
	if err := s.archive.SaveAppointment(ctx, appt); err != nil && s.logger != nil {
		s.logger.Warn("appointment archive failed", "appointment_id", appt.ID, "err", err)
	}
}

// AddAppointment inserts a new appointment. Returns false when the id is
// already present (adds never overwrite; use ReplaceAppointment).
func (s *Store) AddAppointment(ctx context.Context, appt model.Appointment) bool {
	s.mu.Lock()
	if _, exists := s.appointments[appt.ID]; exists {
		s.mu.Unlock()
		return false
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = s.now()
	}
	s.appointments[appt.ID] = appt.Clone()
	s.mu.Unlock()

	s.archiveAppointment(ctx, appt)
	return true
}

// ReplaceAppointment swaps the whole record for the one with the same id.
// Returns false when no such appointment exists.
func (s *Store) ReplaceAppointment(ctx context.Context, appt model.Appointment) bool {
	s.mu.Lock()
	prev, exists := s.appointments[appt.ID]
	if !exists {
		s.mu.Unlock()
		return false
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = prev.CreatedAt
	}
	s.appointments[appt.ID] = appt.Clone()
	s.mu.Unlock()

	s.archiveAppointment(ctx, appt)
	return true
}

// MarkReminderSent records that a reminder kind went out. It is the commit
// point for the reminder scheduler: the check and the append happen under one
// lock, so concurrent ticks record a kind at most once.
func (s *Store) MarkReminderSent(ctx context.Context, appointmentID string, kind model.ReminderKind) bool {
	s.mu.Lock()
	appt, exists := s.appointments[appointmentID]
	if !exists || appt.ReminderSent(kind) {
		s.mu.Unlock()
		return false
	}
	appt.RemindersSent = append(appt.RemindersSent, kind)
	s.appointments[appointmentID] = appt
	snapshot := appt.Clone()
	s.mu.Unlock()

	s.archiveAppointment(ctx, snapshot)
	return true
}

// AddClient inserts a client unless another client already uses the same
// non-empty email; the duplicate insert is silently dropped, not merged.
func (s *Store) AddClient(ctx context.Context, client model.Client) bool {
	email := strings.TrimSpace(client.Email)
	s.mu.Lock()
	if email != "" {
		for _, c := range s.clients {
			if strings.EqualFold(c.Email, email) {
				s.mu.Unlock()
				return false
			}
		}
	}
	s.clients[client.ID] = client.Clone()
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.SaveClient(ctx, client); err != nil && s.logger != nil {
			s.logger.Warn("client archive failed", "client_id", client.ID, "err", err)
		}
	}
	return true
}

func (s *Store) ReplaceClient(ctx context.Context, client model.Client) bool {
	s.mu.Lock()
	if _, exists := s.clients[client.ID]; !exists {
		s.mu.Unlock()
		return false
	}
	s.clients[client.ID] = client.Clone()
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.SaveClient(ctx, client); err != nil && s.logger != nil {
			s.logger.Warn("client archive failed", "client_id", client.ID, "err", err)
		}
	}
	return true
}

func (s *Store) DeleteClient(ctx context.Context, id string) bool {
	s.mu.Lock()
	if _, exists := s.clients[id]; !exists {
		s.mu.Unlock()
		return false
	}
	delete(s.clients, id)
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.DeleteClient(ctx, id); err != nil && s.logger != nil {
			s.logger.Warn("client delete archive failed", "client_id", id, "err", err)
		}
	}
	return true
}

func (s *Store) AddService(ctx context.Context, svc model.Service) bool {
	s.mu.Lock()
	if _, exists := s.services[svc.ID]; exists {
		s.mu.Unlock()
		return false
	}
	s.services[svc.ID] = svc
	s.mu.Unlock()

	s.archiveService(ctx, svc)
	return true
}

func (s *Store) ReplaceService(ctx context.Context, svc model.Service) bool {
	s.mu.Lock()
	if _, exists := s.services[svc.ID]; !exists {
		s.mu.Unlock()
		return false
	}
	s.services[svc.ID] = svc
	s.mu.Unlock()

	s.archiveService(ctx, svc)
	return true
}

func (s *Store) archiveService(ctx context.Context, svc model.Service) {
	if s.archive == nil {
		return
	}
	if err := s.archive.SaveService(ctx, svc); err != nil && s.logger != nil {
		s.logger.Warn("service archive failed", "service_id", svc.ID, "err", err)
	}
}

func (s *Store) DeleteService(ctx context.Context, id string) bool {
	s.mu.Lock()
	if _, exists := s.services[id]; !exists {
		s.mu.Unlock()
		return false
	}
	delete(s.services, id)
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.DeleteService(ctx, id); err != nil && s.logger != nil {
			s.logger.Warn("service delete archive failed", "service_id", id, "err", err)
		}
	}
	return true
}

// SetIntegration connects or disconnects a provider. Connecting stamps
// LastSync; disconnecting clears it. Metadata, when given, replaces the
// stored metadata wholesale.
func (s *Store) SetIntegration(_ context.Context, provider model.IntegrationProvider, connected bool, metadata map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	integ, exists := s.integrations[provider]
	if !exists {
		return false
	}
	integ.Connected = connected
	if connected {
		ts := s.now()
		integ.LastSync = &ts
	} else {
		integ.LastSync = nil
	}
	if metadata != nil {
		integ.Metadata = metadata
	}
	s.integrations[provider] = integ.Clone()
	return true
}

func (s *Store) ToggleRule(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, exists := s.rules[id]
	if !exists {
		return false
	}
	rule.Active = !rule.Active
	s.rules[id] = rule
	return true
}

// AppendLog prepends an entry to the notification log (newest first).
func (s *Store) AppendLog(ctx context.Context, entry model.NotificationLog) {
	s.mu.Lock()
	s.logs = append([]model.NotificationLog{entry}, s.logs...)
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.AppendLog(ctx, entry); err != nil && s.logger != nil {
			s.logger.Warn("notification log archive failed", "log_id", entry.ID, "err", err)
		}
	}
}

// --- snapshots & lookups ---

// Appointments returns a copy of every appointment, ascending by start time.
func (s *Store) Appointments() []model.Appointment {
	s.mu.RLock()
	out := make([]model.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		out = append(out, a.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (s *Store) AppointmentByID(id string) (model.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, false
	}
	return a.Clone(), true
}

func (s *Store) Clients() []model.Client {
	s.mu.RLock()
	out := make([]model.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) ClientByID(id string) (model.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return model.Client{}, false
	}
	return c.Clone(), true
}

// ClientByEmail finds a client by exact (case-insensitive) email match.
// Empty emails never match.
func (s *Store) ClientByEmail(email string) (model.Client, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.Client{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if strings.EqualFold(c.Email, email) {
			return c.Clone(), true
		}
	}
	return model.Client{}, false
}

func (s *Store) Services() []model.Service {
	s.mu.RLock()
	out := make([]model.Service, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, svc)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) ServiceByID(id string) (model.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	return svc, ok
}

func (s *Store) Integrations() []model.Integration {
	s.mu.RLock()
	out := make([]model.Integration, 0, len(s.integrations))
	for _, i := range s.integrations {
		out = append(out, i.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

func (s *Store) Integration(provider model.IntegrationProvider) (model.Integration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.integrations[provider]
	if !ok {
		return model.Integration{}, false
	}
	return i.Clone(), true
}

func (s *Store) Rules() []model.NotificationRule {
	s.mu.RLock()
	out := make([]model.NotificationRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) RuleByTrigger(trigger model.NotificationTrigger) (model.NotificationRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rules {
		if r.Trigger == trigger {
			return r, true
		}
	}
	return model.NotificationRule{}, false
}

// Logs returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Logs(limit int) []model.NotificationLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.logs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.NotificationLog, n)
	copy(out, s.logs[:n])
	return out
}

// Load rehydrates the collections from archived state without re-archiving.
// Intended for startup only, before any writer runs.
func (s *Store) Load(appointments []model.Appointment, clients []model.Client, services []model.Service, logs []model.NotificationLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range appointments {
		s.appointments[a.ID] = a.Clone()
	}
	for _, c := range clients {
		s.clients[c.ID] = c.Clone()
	}
	for _, svc := range services {
		s.services[svc.ID] = svc
	}
	if len(logs) > 0 {
		s.logs = append(s.logs, logs...)
	}
}
