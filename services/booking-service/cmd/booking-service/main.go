package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cronosflow/cronosflow/libs/auth"
	"github.com/cronosflow/cronosflow/libs/config"
	"github.com/cronosflow/cronosflow/libs/db"
	"github.com/cronosflow/cronosflow/libs/httpx"
	"github.com/cronosflow/cronosflow/libs/kafkax"
	otelx "github.com/cronosflow/cronosflow/libs/otel"
	"github.com/cronosflow/cronosflow/libs/runtime"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/calendar"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/events"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/handlers"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/notify"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/payments"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/reminder"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/storage"
	"github.com/cronosflow/cronosflow/services/booking-service/internal/store"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	// Postgres is the optional durability layer; the in-memory store stays
	// authoritative either way.
	var pool *db.Pool
	var archiveRepo *storage.ArchiveRepository
	var archive store.Archiver
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err = db.Open(ctx, dbURL)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		archiveRepo = storage.NewArchiveRepository(pool)
		if err := archiveRepo.EnsureSchema(ctx); err != nil {
			logger.Error("archive schema setup failed", "err", err)
			panic(err)
		}
		archive = archiveRepo
	}

	st := store.New(archive, logger)
	if archiveRepo != nil {
		appointments, clients, services, logs, err := archiveRepo.LoadState(ctx)
		if err != nil {
			logger.Error("archive rehydration failed", "err", err)
			panic(err)
		}
		st.Load(appointments, clients, services, logs)
		logger.Info("session rehydrated from archive",
			"appointments", len(appointments),
			"clients", len(clients),
			"services", len(services),
		)
	}
	if config.Bool("SEED_DEMO_DATA", false) && len(st.Services()) == 0 {
		st.SeedDemo(ctx)
		logger.Info("demo data seeded")
	}

	brokers := config.String("KAFKA_BROKERS", "")
	pub := events.NewPublisher(brokers, logger)
	defer func() { _ = pub.Close() }()

	senders := map[model.NotificationChannel]notify.Sender{}
	if waURL := config.String("WHATSAPP_GATEWAY_URL", ""); waURL != "" {
		senders[model.ChannelWhatsApp] = notify.NewWhatsAppSender(waURL)
	} else {
		logger.Warn("WHATSAPP_GATEWAY_URL not set; whatsapp reminders are no-ops")
		senders[model.ChannelWhatsApp] = notify.NewNoopSender()
	}
	if smtpHost := config.String("SMTP_HOST", ""); smtpHost != "" {
		senders[model.ChannelEmail] = notify.NewEmailSender(
			smtpHost,
			config.String("SMTP_PORT", "1025"),
			config.String("SMTP_FROM", ""),
		)
	}

	calendarAddr := config.String("CALENDAR_GRPC_ADDR", "")
	cal, err := calendar.NewProvider(calendarAddr)
	if err != nil {
		logger.Error("calendar provider init failed; sync disabled", "err", err)
		cal = nil
	}

	pay := payments.NewService(
		config.String("STRIPE_SECRET_KEY", ""),
		config.String("STRIPE_WEBHOOK_SECRET", ""),
		config.String("CHECKOUT_SUCCESS_URL", ""),
		config.String("CHECKOUT_CANCEL_URL", ""),
		logger,
	)

	pollInterval := time.Duration(config.Int("REMINDER_POLL_SECONDS", 30)) * time.Second
	sched := reminder.NewScheduler(st, senders, pub, logger, pollInterval)
	go sched.Run(ctx)

	h := handlers.New(st, pub, cal, pay, logger)

	var checks []runtime.ReadyCheck
	if pool != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	if calendarAddr != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "calendar", Check: calendar.GatewayReadyCheck(calendarAddr)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)

	// Public surface: rate limited, unauthenticated.
	limit := config.Int("PUBLIC_RATE_LIMIT", 60)
	window := time.Duration(config.Int("PUBLIC_RATE_WINDOW_SECONDS", 60)) * time.Second
	var rateLimit httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		rateLimit = httpx.NewRedisRateLimiter(rdb, limit, window, "rl:public").Middleware(logger, true)
	} else {
		rateLimit = httpx.NewRateLimiter(limit, window).Middleware()
	}
	public := func(fn http.HandlerFunc) http.Handler {
		return rateLimit(fn)
	}
	mux.Handle("/api/v1/public/services", public(h.PublicServices))
	mux.Handle("/api/v1/public/slots", public(h.PublicSlots))
	mux.Handle("/api/v1/public/book", public(h.PublicBook))

	// Admin surface: bearer token, bcrypt-verified. With nothing configured
	// the middleware rejects everything.
	adminToken := auth.NewAdminToken(
		config.String("ADMIN_TOKEN_BCRYPT", ""),
		config.String("ADMIN_TOKEN", ""),
	)
	if !adminToken.Configured() {
		logger.Warn("no admin token configured; admin API will reject all requests")
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return adminToken.Middleware(fn)
	}
	mux.Handle("/api/v1/appointments", admin(h.Appointments))
	mux.Handle("/api/v1/appointments/check-conflict", admin(h.CheckConflict))
	mux.Handle("/api/v1/appointments/", admin(h.AppointmentByID))
	mux.Handle("/api/v1/clients", admin(h.Clients))
	mux.Handle("/api/v1/clients/", admin(h.ClientByID))
	mux.Handle("/api/v1/services", admin(h.Services))
	mux.Handle("/api/v1/services/", admin(h.ServiceByID))
	mux.Handle("/api/v1/integrations", admin(h.Integrations))
	mux.Handle("/api/v1/integrations/", admin(h.IntegrationByProvider))
	mux.Handle("/api/v1/notifications/rules", admin(h.NotificationRules))
	mux.Handle("/api/v1/notifications/rules/", admin(h.NotificationRuleToggle))
	mux.Handle("/api/v1/notifications/logs", admin(h.NotificationLogs))
	mux.Handle("/api/v1/payments/checkout", admin(h.PaymentCheckout))

	// Signature-verified, no bearer auth.
	mux.HandleFunc("/webhooks/stripe", h.StripeWebhook)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(15 * time.Second),
	}
	if origins := config.String("ALLOWED_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}))
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
