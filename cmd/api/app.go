package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicbook/clinic-booking/cmd/mainconfig"
	"github.com/clinicbook/clinic-booking/internal/api/router"
	"github.com/clinicbook/clinic-booking/internal/app/bootstrap"
	"github.com/clinicbook/clinic-booking/internal/appointments"
	"github.com/clinicbook/clinic-booking/internal/archive"
	"github.com/clinicbook/clinic-booking/internal/availability"
	"github.com/clinicbook/clinic-booking/internal/blockedslots"
	"github.com/clinicbook/clinic-booking/internal/compliance"
	"github.com/clinicbook/clinic-booking/internal/events"
	appconfig "github.com/clinicbook/clinic-booking/internal/config"
	"github.com/clinicbook/clinic-booking/internal/export"
	"github.com/clinicbook/clinic-booking/internal/http/handlers"
	httpmiddleware "github.com/clinicbook/clinic-booking/internal/http/middleware"
	"github.com/clinicbook/clinic-booking/internal/notify"
	"github.com/clinicbook/clinic-booking/internal/observability/metrics"
	"github.com/clinicbook/clinic-booking/internal/settings"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

type application struct {
	handler http.Handler
	limiter *httpmiddleware.RateLimiter
	closers []func()
}

// Close releases connections in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

// buildApp wires every dependency. Without DATABASE_URL or REDIS_ADDR it runs
// on in-memory stores, which is how local development and tests start.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	app := &application{}
	metricsHandler, bookingMetrics := setupMetrics()

	dbs, err := bootstrap.BuildDatabases(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if dbs != nil {
		app.closers = append(app.closers, dbs.Close)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory repositories")
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	}

	settingsCache := settings.NewCache(bootstrap.BuildSettingsStore(redisClient, logger))
	if _, err := settingsCache.Load(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var (
		apptRepo    appointments.Repository
		blockedRepo blockedslots.Repository
	)
	if dbs != nil {
		apptRepo = appointments.NewPostgresRepository(dbs.Pool)
		blockedRepo = blockedslots.NewPostgresRepository(dbs.Pool)
	} else {
		apptRepo = appointments.NewInMemoryRepository()
		blockedRepo = blockedslots.NewInMemoryRepository()
	}

	var (
		s3API  archive.S3API
		sesAPI notify.SESAPI
		feed   appointments.Notifier
	)
	if mainconfig.AWSEnabled(cfg) {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		if cfg.ExportBucket != "" {
			s3API = mainconfig.NewS3Client(awsCfg, cfg)
		}
		sesAPI = mainconfig.NewSESClient(awsCfg, cfg)
		if cfg.EventsQueueURL != "" {
			feed = events.NewSQSPublisher(mainconfig.NewSQSClient(awsCfg, cfg), cfg.EventsQueueURL, logger.WithComponent("events"))
		}
	}

	emailSender, provider := bootstrap.BuildEmailSender(cfg, sesAPI, logger)
	logger.Info("email provider selected", "provider", provider)
	notifier := notify.NewAppointmentNotifier(emailSender, cfg.ClinicName, logger.WithComponent("notify"))

	engine := availability.NewEngine(apptRepo, blockedRepo, settingsCache, availability.Options{
		LeadTime: cfg.BookingLead,
		Location: cfg.Location(),
		Metrics:  bookingMetrics,
	})

	apptLogger := logger.WithComponent("appointments")
	apptService := appointments.NewService(apptRepo, engine, appointments.Options{
		Notifier:      notifier,
		Feed:          feed,
		Metrics:       bookingMetrics,
		NotifyTimeout: cfg.NotifyTimeout,
	}, apptLogger)

	var audit *compliance.AuditService
	if dbs != nil {
		audit = compliance.NewAuditService(dbs.SQL, logger.WithComponent("audit"))
	}
	archiveStore := archive.NewStore(s3API, cfg.ExportBucket, logger.WithComponent("archive"))

	checks := map[string]handlers.Pinger{}
	if dbs != nil {
		checks["postgres"] = handlers.PingFunc(dbs.Pool.Ping)
	}
	if redisClient != nil {
		checks["redis"] = redisPinger(redisClient)
	}

	app.limiter = httpmiddleware.NewRateLimiter(cfg.BookingRateLimitRPS, cfg.BookingRateLimitBurst)
	app.handler = router.New(&router.Config{
		Logger:             logger,
		Health:             handlers.NewHealthHandler(checks, logger),
		AdminLogin:         handlers.NewAdminLoginHandler(cfg.AdminPassword, cfg.AdminJWTSecret, cfg.AdminTokenTTL, logger),
		PublicAppointments: appointments.NewPublicHandler(apptService, engine, apptLogger),
		AdminAppointments:  appointments.NewAdminHandler(apptService, audit, apptLogger),
		BlockedSlots:       blockedslots.NewHandler(blockedslots.NewService(blockedRepo, logger), audit, logger),
		Settings:           settings.NewHandler(settingsCache, audit, logger),
		Export:             export.NewHandler(apptService, archiveStore, logger.WithComponent("export")),
		Audit:              compliance.NewHandler(audit, logger.WithComponent("audit")),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminAuth: httpmiddleware.AdminAuthConfig{
			Password:  cfg.AdminPassword,
			JWTSecret: cfg.AdminJWTSecret,
		},
		BookingLimiter: app.limiter,
	})

	if cfg.AdminPassword == "" && cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_PASSWORD not set; admin endpoints will reject every request")
	}
	return app, nil
}

func redisPinger(client *redis.Client) handlers.PingFunc {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}
