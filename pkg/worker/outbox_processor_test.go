package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/internal/repository/memory"
	"github.com/abaflow/practice-api/pkg/logger"
	"github.com/abaflow/practice-api/pkg/metrics"
)

type fakeBroker struct {
	published map[string]int
	fail      bool
}

func (b *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	if b.fail {
		return fmt.Errorf("broker unavailable")
	}
	if b.published == nil {
		b.published = make(map[string]int)
	}
	b.published[channel]++
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }
func (b *fakeBroker) Close() error                                            { return nil }

func pendingEvent(repo *memory.OutboxRepo, eventType string) *model.OutboxEvent {
	e := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   json.RawMessage(`{}`),
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	_ = repo.Create(context.Background(), e)
	return e
}

func newProcessor(repo *memory.OutboxRepo, broker *fakeBroker) *OutboxProcessor {
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, log, metrics.NewWithRegistry("worker_test", prometheus.NewRegistry()))
}

func TestProcessEventsPublishesAndMarksProcessed(t *testing.T) {
	repo := memory.NewOutboxRepo()
	broker := &fakeBroker{}
	p := newProcessor(repo, broker)

	pendingEvent(repo, model.EventAppointmentCreated)
	pendingEvent(repo, model.EventAppointmentMissed)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, 1, broker.published[model.EventAppointmentCreated])
	assert.Equal(t, 1, broker.published[model.EventAppointmentMissed])
	for _, e := range repo.Events {
		assert.Equal(t, model.OutboxStatusProcessed, e.Status)
	}
}

func TestProcessEventsMarksFailed(t *testing.T) {
	repo := memory.NewOutboxRepo()
	broker := &fakeBroker{fail: true}
	p := newProcessor(repo, broker)

	pendingEvent(repo, model.EventAppointmentCreated)

	require.NoError(t, p.processEvents(context.Background()))

	require.Len(t, repo.Events, 1)
	assert.Equal(t, model.OutboxStatusFailed, repo.Events[0].Status)
	require.NotNil(t, repo.Events[0].ErrorMessage)
	assert.Contains(t, *repo.Events[0].ErrorMessage, "broker unavailable")
}

func TestConfigValidation(t *testing.T) {
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	assert.Panics(t, func() {
		NewOutboxProcessor(memory.NewOutboxRepo(), &fakeBroker{}, OutboxProcessorConfig{}, log, nil)
	})
}
