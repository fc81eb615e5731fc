//go:build !protogen

package calendar

import (
	"context"
	"time"
)

type Event struct {
	AppointmentID string
	Title         string
	ClientName    string
	StartUTC      time.Time
	EndUTC        time.Time
	Notes         string
}

// Provider mirrors appointments into an external calendar (Google or
// Outlook, behind the calendar-sync gateway).
type Provider interface {
	PushEvent(ctx context.Context, ev Event) error
	RemoveEvent(ctx context.Context, appointmentID string) error
}

func NewProvider(_ string) (Provider, error) {
	return nil, nil
}
