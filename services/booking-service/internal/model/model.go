package model

import "time"

type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "noshow"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusPending     AppointmentStatus = "pending"
)

func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled,
		StatusNoShow, StatusRescheduled, StatusPending:
		return true
	}
	return false
}

// BlocksTime reports whether an appointment in this status still holds its
// time interval. Cancelled and no-show appointments free the slot.
func (s AppointmentStatus) BlocksTime() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentRefunded PaymentStatus = "refunded"
)

type ReminderKind string

const (
	Reminder24h ReminderKind = "24h"
	Reminder1h  ReminderKind = "1h"
)

type Service struct {
	ID              string
	Name            string
	Description     string
	PriceCents      int64
	DurationMinutes int
	// BufferMinutes is advisory only; conflict checks ignore it.
	BufferMinutes int
	Color         string
	Category      string
	Active        bool
	Premium       bool
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Appointment struct {
	ID            string
	ClientID      string
	ServiceID     string
	StartTime     time.Time
	EndTime       time.Time
	Status        AppointmentStatus
	PaymentStatus PaymentStatus
	IntakeData    map[string]string
	Notes         string
	RemindersSent []ReminderKind
	CreatedAt     time.Time
}

func (a Appointment) ReminderSent(kind ReminderKind) bool {
	for _, k := range a.RemindersSent {
		if k == kind {
			return true
		}
	}
	return false
}

func (a Appointment) Clone() Appointment {
	out := a
	if a.RemindersSent != nil {
		out.RemindersSent = append([]ReminderKind(nil), a.RemindersSent...)
	}
	if a.IntakeData != nil {
		out.IntakeData = make(map[string]string, len(a.IntakeData))
		for k, v := range a.IntakeData {
			out.IntakeData[k] = v
		}
	}
	return out
}

type Client struct {
	ID    string
	Name  string
	Email string
	Phone string
	Notes string
	Tags  []string
}

func (c Client) Clone() Client {
	out := c
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	return out
}

type IntegrationProvider string

const (
	ProviderGoogleCalendar  IntegrationProvider = "google_calendar"
	ProviderOutlookCalendar IntegrationProvider = "outlook_calendar"
	ProviderWhatsApp        IntegrationProvider = "whatsapp"
)

type Integration struct {
	Provider  IntegrationProvider
	Connected bool
	LastSync  *time.Time
	Metadata  map[string]string
}

func (i Integration) Clone() Integration {
	out := i
	if i.LastSync != nil {
		ts := *i.LastSync
		out.LastSync = &ts
	}
	if i.Metadata != nil {
		out.Metadata = make(map[string]string, len(i.Metadata))
		for k, v := range i.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelWhatsApp NotificationChannel = "whatsapp"
)

type NotificationTrigger string

const (
	TriggerCreated     NotificationTrigger = "created"
	TriggerConfirmed   NotificationTrigger = "confirmed"
	TriggerReminder24h NotificationTrigger = "reminder_24h"
	TriggerReminder1h  NotificationTrigger = "reminder_1h"
	TriggerCancelled   NotificationTrigger = "cancelled"
)

type NotificationRule struct {
	ID              string
	Trigger         NotificationTrigger
	Channel         NotificationChannel
	Active          bool
	TemplateSubject string
}

type NotificationLog struct {
	ID            string
	AppointmentID string
	ClientName    string
	Channel       NotificationChannel
	Trigger       NotificationTrigger
	Status        string // sent | failed | pending
	SentAt        time.Time
}
