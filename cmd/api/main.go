package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/abaflow/practice-api/internal/config"
	"github.com/abaflow/practice-api/internal/email"
	"github.com/abaflow/practice-api/internal/handler"
	appointmentHandler "github.com/abaflow/practice-api/internal/handler/appointment"
	reconciliationHandler "github.com/abaflow/practice-api/internal/handler/reconciliation"
	registryHandler "github.com/abaflow/practice-api/internal/handler/registry"
	sessionHandler "github.com/abaflow/practice-api/internal/handler/session"
	templateHandler "github.com/abaflow/practice-api/internal/handler/template"
	"github.com/abaflow/practice-api/internal/middleware"
	"github.com/abaflow/practice-api/internal/repository/postgres"
	"github.com/abaflow/practice-api/internal/router"
	appointmentService "github.com/abaflow/practice-api/internal/service/appointment"
	eventService "github.com/abaflow/practice-api/internal/service/event"
	reconciliationService "github.com/abaflow/practice-api/internal/service/reconciliation"
	registryService "github.com/abaflow/practice-api/internal/service/registry"
	seriesService "github.com/abaflow/practice-api/internal/service/series"
	sessionService "github.com/abaflow/practice-api/internal/service/session"
	"github.com/abaflow/practice-api/pkg/auth"
	"github.com/abaflow/practice-api/pkg/clock"
	"github.com/abaflow/practice-api/pkg/logger"
	"github.com/abaflow/practice-api/pkg/messaging/redis"
	"github.com/abaflow/practice-api/pkg/metrics"
	"github.com/abaflow/practice-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(&logger.Config{Level: logger.InfoLevel, Output: os.Stdout})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	clinicRepo := postgres.NewClinicRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	therapistRepo := postgres.NewTherapistRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Shared infrastructure
	clk := clock.New()
	m := metrics.New("practice_api")
	eventSvc := eventService.NewService(outboxRepo, appLogger)

	var notifier email.Service
	if cfg.Email.Enabled {
		notifier = email.NewSMTPService(email.Config{
			Host: cfg.Email.Host,
			Port: cfg.Email.Port,
			User: cfg.Email.Username,
			Pass: cfg.Email.Password,
			From: cfg.Email.From,
		})
	} else {
		notifier = email.NewNoop()
	}

	// Services
	registrySvc := registryService.NewService(clinicRepo, patientRepo, therapistRepo, clk, appLogger)
	appointmentSvc := appointmentService.NewService(appointmentRepo, therapistRepo, eventSvc, notifier, clk, appLogger, m)
	seriesSvc := seriesService.NewService(templateRepo, appointmentRepo, eventSvc, clk, appLogger, m)
	sessionSvc := sessionService.NewService(sessionRepo, appointmentRepo, appointmentSvc, clk, appLogger)
	reconciliationSvc := reconciliationService.NewService(
		sessionRepo,
		appointmentRepo,
		eventSvc,
		clk,
		appLogger,
		m,
		reconciliationService.MatchPolicy{DateToleranceDays: cfg.Scheduling.DateToleranceDays},
	)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(auth.NewVerifier(cfg.JWT.Secret))
	planGate := middleware.NewPlanGate(clinicRepo)

	// Handlers
	h := handler.NewHandler(db)
	r := router.NewRouter(
		authMiddleware,
		planGate,
		registryHandler.NewHandler(registrySvc),
		templateHandler.NewHandler(seriesSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		sessionHandler.NewHandler(sessionSvc),
		reconciliationHandler.NewHandler(reconciliationSvc),
		h,
		router.RouterConfig{
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateBurst:      cfg.Server.RateBurst,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "practice_api_http",
			RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Outbox drain runs in-process too; the dedicated worker handles the
	// sweep schedule and scales out the drain.
	broker, err := redis.NewBroker(redis.Config{URL: cfg.Redis.URL}, &appLogger.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     100,
		PollInterval:  5 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}, appLogger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go outboxProcessor.Start(ctx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	appLogger.Info("server started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
