package store

import (
	"context"
	"time"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

// SeedDemo loads the demo catalog used for local development.
func (s *Store) SeedDemo(ctx context.Context) {
	now := s.now()

	services := []model.Service{
		{
			ID:              "svc_1",
			Name:            "Consulta Rápida",
			Description:     "50 minutos, avaliação inicial",
			PriceCents:      15000,
			DurationMinutes: 50,
			BufferMinutes:   10,
			Color:           "#4F46E5",
			Category:        "Consultas",
			Active:          true,
		},
		{
			ID:              "svc_2",
			Name:            "Acompanhamento (Mensal)",
			Description:     "Sessão de retorno e ajustes",
			PriceCents:      12000,
			DurationMinutes: 45,
			BufferMinutes:   5,
			Color:           "#0ea5e9",
			Category:        "Consultas",
			Active:          true,
		},
		{
			ID:              "svc_3",
			Name:            "Mentoria Premium",
			Description:     "Sessão exclusiva via videochamada",
			PriceCents:      35000,
			DurationMinutes: 90,
			BufferMinutes:   15,
			Color:           "#8b5cf6",
			Category:        "Mentoria",
			Active:          true,
			Premium:         true,
		},
	}
	for _, svc := range services {
		s.AddService(ctx, svc)
	}

	clients := []model.Client{
		{ID: "cli_1", Name: "João Silva", Email: "joao@example.com", Phone: "(11) 99999-9999", Tags: []string{"VIP", "Recorrente"}, Notes: "Prefere horários pela manhã."},
		{ID: "cli_2", Name: "Maria Pereira", Email: "maria@example.com", Phone: "(21) 98888-8888", Tags: []string{"Novo"}},
		{ID: "cli_3", Name: "Carlos Souza", Email: "carlos@example.com", Phone: "(31) 97777-7777"},
	}
	for _, c := range clients {
		s.AddClient(ctx, c)
	}

	s.AddAppointment(ctx, model.Appointment{
		ID:            "apt_1",
		ClientID:      "cli_1",
		ServiceID:     "svc_1",
		StartTime:     now.Add(2 * time.Hour),
		EndTime:       now.Add(2*time.Hour + 50*time.Minute),
		Status:        model.StatusConfirmed,
		PaymentStatus: model.PaymentPaid,
	})
}
