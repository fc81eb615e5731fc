package storage

import (
	"context"
	"encoding/json"

	"github.com/cronosflow/cronosflow/libs/db"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

// ArchiveRepository persists committed store mutations so a restarted
// process can rehydrate its session. The in-memory store stays authoritative;
// rows here are write-behind copies.
type ArchiveRepository struct {
	pool *db.Pool
}

func NewArchiveRepository(pool *db.Pool) *ArchiveRepository {
	return &ArchiveRepository{pool: pool}
}

// EnsureSchema creates the archive tables when they don't exist yet.
func (r *ArchiveRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS appointments (
			id              text PRIMARY KEY,
			client_id       text NOT NULL,
			service_id      text NOT NULL,
			start_time      timestamptz NOT NULL,
			end_time        timestamptz NOT NULL,
			status          text NOT NULL,
			payment_status  text NOT NULL,
			intake_data     jsonb NOT NULL DEFAULT '{}',
			notes           text NOT NULL DEFAULT '',
			reminders_sent  jsonb NOT NULL DEFAULT '[]',
			created_at      timestamptz NOT NULL,
			updated_at      timestamptz NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS clients (
			id         text PRIMARY KEY,
			name       text NOT NULL,
			email      text NOT NULL DEFAULT '',
			phone      text NOT NULL DEFAULT '',
			tags       jsonb NOT NULL DEFAULT '[]',
			notes      text NOT NULL DEFAULT '',
			updated_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS services (
			id               text PRIMARY KEY,
			name             text NOT NULL,
			description      text NOT NULL DEFAULT '',
			price_cents      bigint NOT NULL,
			duration_minutes int NOT NULL,
			buffer_minutes   int NOT NULL,
			color            text NOT NULL DEFAULT '',
			category         text NOT NULL DEFAULT '',
			active           boolean NOT NULL,
			premium          boolean NOT NULL,
			updated_at       timestamptz NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS notification_logs (
			id             text PRIMARY KEY,
			appointment_id text NOT NULL,
			client_name    text NOT NULL,
			channel        text NOT NULL,
			trigger_kind   text NOT NULL,
			status         text NOT NULL,
			sent_at        timestamptz NOT NULL
		);
	`)
	return err
}

func (r *ArchiveRepository) SaveAppointment(ctx context.Context, appt model.Appointment) error {
	intake, err := json.Marshal(orEmptyMap(appt.IntakeData))
	if err != nil {
		return err
	}
	reminders, err := json.Marshal(orEmptyKinds(appt.RemindersSent))
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO appointments
			(id, client_id, service_id, start_time, end_time, status, payment_status, intake_data, notes, reminders_sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			service_id = EXCLUDED.service_id,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			status = EXCLUDED.status,
			payment_status = EXCLUDED.payment_status,
			intake_data = EXCLUDED.intake_data,
			notes = EXCLUDED.notes,
			reminders_sent = EXCLUDED.reminders_sent,
			updated_at = now()
	`, appt.ID, appt.ClientID, appt.ServiceID, appt.StartTime, appt.EndTime,
		string(appt.Status), string(appt.PaymentStatus), intake, appt.Notes, reminders, appt.CreatedAt)
	return err
}

func (r *ArchiveRepository) SaveClient(ctx context.Context, client model.Client) error {
	tags, err := json.Marshal(orEmptySlice(client.Tags))
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO clients (id, name, email, phone, tags, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			tags = EXCLUDED.tags,
			notes = EXCLUDED.notes,
			updated_at = now()
	`, client.ID, client.Name, client.Email, client.Phone, tags, client.Notes)
	return err
}

func (r *ArchiveRepository) DeleteClient(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	return err
}

func (r *ArchiveRepository) SaveService(ctx context.Context, svc model.Service) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services
			(id, name, description, price_cents, duration_minutes, buffer_minutes, color, category, active, premium)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price_cents = EXCLUDED.price_cents,
			duration_minutes = EXCLUDED.duration_minutes,
			buffer_minutes = EXCLUDED.buffer_minutes,
			color = EXCLUDED.color,
			category = EXCLUDED.category,
			active = EXCLUDED.active,
			premium = EXCLUDED.premium,
			updated_at = now()
	`, svc.ID, svc.Name, svc.Description, svc.PriceCents, svc.DurationMinutes,
		svc.BufferMinutes, svc.Color, svc.Category, svc.Active, svc.Premium)
	return err
}

func (r *ArchiveRepository) DeleteService(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	return err
}

func (r *ArchiveRepository) AppendLog(ctx context.Context, entry model.NotificationLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_logs
			(id, appointment_id, client_name, channel, trigger_kind, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, entry.ID, entry.AppointmentID, entry.ClientName, string(entry.Channel),
		string(entry.Trigger), entry.Status, entry.SentAt)
	return err
}

// LoadState reads everything back for session rehydration at boot.
func (r *ArchiveRepository) LoadState(ctx context.Context) ([]model.Appointment, []model.Client, []model.Service, []model.NotificationLog, error) {
	appointments, err := r.loadAppointments(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	clients, err := r.loadClients(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	services, err := r.loadServices(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logs, err := r.loadLogs(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return appointments, clients, services, logs, nil
}

func (r *ArchiveRepository) loadAppointments(ctx context.Context) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, service_id, start_time, end_time, status, payment_status, intake_data, notes, reminders_sent, created_at
		FROM appointments
		ORDER BY start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		var status, paymentStatus string
		var intake, reminders []byte
		if err := rows.Scan(&a.ID, &a.ClientID, &a.ServiceID, &a.StartTime, &a.EndTime,
			&status, &paymentStatus, &intake, &a.Notes, &reminders, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Status = model.AppointmentStatus(status)
		a.PaymentStatus = model.PaymentStatus(paymentStatus)
		if err := json.Unmarshal(intake, &a.IntakeData); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(reminders, &a.RemindersSent); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ArchiveRepository) loadClients(ctx context.Context) ([]model.Client, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, phone, tags, notes FROM clients ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		var c model.Client
		var tags []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &tags, &c.Notes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(tags, &c.Tags); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ArchiveRepository) loadServices(ctx context.Context) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, price_cents, duration_minutes, buffer_minutes, color, category, active, premium
		FROM services
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.PriceCents, &s.DurationMinutes,
			&s.BufferMinutes, &s.Color, &s.Category, &s.Active, &s.Premium); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ArchiveRepository) loadLogs(ctx context.Context) ([]model.NotificationLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, client_name, channel, trigger_kind, status, sent_at
		FROM notification_logs
		ORDER BY sent_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.NotificationLog
	for rows.Next() {
		var l model.NotificationLog
		var channel, trigger string
		if err := rows.Scan(&l.ID, &l.AppointmentID, &l.ClientName, &channel, &trigger, &l.Status, &l.SentAt); err != nil {
			return nil, err
		}
		l.Channel = model.NotificationChannel(channel)
		l.Trigger = model.NotificationTrigger(trigger)
		out = append(out, l)
	}
	return out, rows.Err()
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyKinds(s []model.ReminderKind) []model.ReminderKind {
	if s == nil {
		return []model.ReminderKind{}
	}
	return s
}
