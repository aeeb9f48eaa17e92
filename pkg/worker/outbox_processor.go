package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/internal/repository"
	"github.com/abaflow/practice-api/pkg/logger"
	"github.com/abaflow/practice-api/pkg/messaging"
	"github.com/abaflow/practice-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("BatchSize must be positive, got %d", c.BatchSize)
	case c.PollInterval <= 0:
		return fmt.Errorf("PollInterval must be positive, got %s", c.PollInterval)
	case c.RetryAttempts <= 0:
		return fmt.Errorf("RetryAttempts must be positive, got %d", c.RetryAttempts)
	case c.RetryDelay <= 0:
		return fmt.Errorf("RetryDelay must be positive, got %s", c.RetryDelay)
	}
	return nil
}

// OutboxProcessor drains pending outbox rows and publishes them to the
// broker. Rows are locked with SKIP LOCKED so multiple workers can run
// side by side.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if err := config.validate(); err != nil {
		panic("outbox processor: " + err.Error())
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// Start polls until the context is cancelled. Individual event failures
// are recorded on the row and do not stop the loop.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "batch_size", p.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "Outbox drain failed")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	batch, err := p.repo.GetPendingWithLock(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
		return fmt.Errorf("failed to claim pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

	for _, evt := range batch {
		if err := p.dispatch(ctx, evt); err != nil {
			p.logger.Error(err, "Outbox event not delivered",
				"event_id", evt.ID.String(),
				"event_type", evt.EventType)
		}
	}

	return nil
}

// dispatch publishes one event with bounded retries, then settles the
// row as processed or failed.
func (p *OutboxProcessor) dispatch(ctx context.Context, evt *model.OutboxEvent) error {
	var pubErr error
	for attempt := 0; attempt < p.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.RetryDelay):
			}
		}
		if pubErr = p.broker.Publish(ctx, evt.EventType, evt.Payload); pubErr == nil {
			break
		}
	}

	if pubErr != nil {
		p.metrics.EventsFailed.WithLabelValues(evt.EventType).Inc()
		if markErr := p.repo.MarkFailed(ctx, evt.ID, pubErr.Error()); markErr != nil {
			p.logger.Error(markErr, "Failed to mark event failed", "event_id", evt.ID.String())
		}
		return pubErr
	}

	p.metrics.EventsPublished.WithLabelValues(evt.EventType).Inc()
	if err := p.repo.MarkProcessed(ctx, evt.ID); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
