package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/abaflow/practice-api/internal/config"
	"github.com/abaflow/practice-api/internal/email"
	"github.com/abaflow/practice-api/internal/repository/postgres"
	appointmentService "github.com/abaflow/practice-api/internal/service/appointment"
	eventService "github.com/abaflow/practice-api/internal/service/event"
	"github.com/abaflow/practice-api/pkg/clock"
	"github.com/abaflow/practice-api/pkg/logger"
	"github.com/abaflow/practice-api/pkg/messaging/redis"
	"github.com/abaflow/practice-api/pkg/metrics"
	"github.com/abaflow/practice-api/pkg/worker"
)

// WorkerConfig holds the worker-only tunables, read from the
// environment so deployments can adjust the schedule without touching
// the shared config file.
type WorkerConfig struct {
	HealthPort       int           `envconfig:"WORKER_HEALTH_PORT" default:"8081"`
	SweepInterval    time.Duration `envconfig:"WORKER_SWEEP_INTERVAL" default:"15m"`
	OutboxBatchSize  int           `envconfig:"WORKER_OUTBOX_BATCH_SIZE" default:"100"`
	OutboxPollEvery  time.Duration `envconfig:"WORKER_OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxRetries    int           `envconfig:"WORKER_OUTBOX_RETRIES" default:"3"`
	OutboxRetryDelay time.Duration `envconfig:"WORKER_OUTBOX_RETRY_DELAY" default:"1s"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var wcfg WorkerConfig
	if err := envconfig.Process("", &wcfg); err != nil {
		log.Fatal().Err(err).Msg("failed to process worker environment")
	}

	appLogger := logger.New(&logger.Config{Level: logger.InfoLevel, Output: os.Stdout})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)
	therapistRepo := postgres.NewTherapistRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.New("practice_worker")
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

	appointmentSvc := appointmentService.NewService(appointmentRepo, therapistRepo, eventSvc, notifier, clock.New(), appLogger, m)

	broker, err := redis.NewBroker(redis.Config{URL: cfg.Redis.URL}, &appLogger.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     wcfg.OutboxBatchSize,
		PollInterval:  wcfg.OutboxPollEvery,
		RetryAttempts: wcfg.OutboxRetries,
		RetryDelay:    wcfg.OutboxRetryDelay,
	}, appLogger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Start(ctx)
	go runSweeper(ctx, appointmentSvc, cfg.Scheduling.SweepGraceHours, wcfg.SweepInterval, appLogger)
	startHealthServer(wcfg.HealthPort, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down worker")
	cancel()
}

// runSweeper periodically marks overdue scheduled appointments as
// missed. The sweep is idempotent so overlap with another worker run
// is harmless.
func runSweeper(ctx context.Context, svc *appointmentService.Service, graceHours float64, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("starting missed-appointment sweeper", "grace_hours", graceHours, "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping missed-appointment sweeper")
			return
		case <-ticker.C:
			count, err := svc.MarkMissed(ctx, graceHours)
			if err != nil {
				log.Error(err, "missed sweep failed")
				continue
			}
			if count > 0 {
				log.Info("missed sweep complete", "transitioned", count)
			}
		}
	}
}

func startHealthServer(port int, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error(err, "health server failed")
			os.Exit(1)
		}
	}()
}
