package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/internal/repository"
	"github.com/abaflow/practice-api/pkg/logger"
)

// Service records scheduling transitions as outbox rows. The worker
// drains them to the broker; recording failures are logged, never
// surfaced, so event plumbing cannot abort a booking.
type Service struct {
	outbox repository.OutboxRepository
	logger *logger.Logger
}

func NewService(outbox repository.OutboxRepository, logger *logger.Logger) *Service {
	return &Service{outbox: outbox, logger: logger}
}

func (s *Service) Record(ctx context.Context, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(err, "failed to marshal event payload", "event_type", eventType)
		return
	}

	evt := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   body,
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.outbox.Create(ctx, evt); err != nil {
		s.logger.Error(err, "failed to record outbox event", "event_type", eventType)
	}
}
