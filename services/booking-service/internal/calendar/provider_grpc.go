//go:build protogen

package calendar

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/cronosflow/cronosflow/libs/grpcx"
	calendarv1 "github.com/cronosflow/cronosflow/protos/gen/calendar/v1"
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

type grpcProvider struct {
	client calendarv1.CalendarSyncServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: calendarv1.NewCalendarSyncServiceClient(conn)}, nil
}

func (p *grpcProvider) PushEvent(ctx context.Context, ev Event) error {
	_, err := p.client.PushEvent(ctx, &calendarv1.PushEventRequest{
		AppointmentId: ev.AppointmentID,
		Title:         ev.Title,
		ClientName:    ev.ClientName,
		StartUtc:      timestamppb.New(ev.StartUTC),
		EndUtc:        timestamppb.New(ev.EndUTC),
		Notes:         ev.Notes,
	})
	return err
}

func (p *grpcProvider) RemoveEvent(ctx context.Context, appointmentID string) error {
	_, err := p.client.RemoveEvent(ctx, &calendarv1.RemoveEventRequest{
		AppointmentId: appointmentID,
	})
	return err
}
