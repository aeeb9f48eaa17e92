package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Event types emitted on scheduling transitions.
const (
	EventAppointmentCreated    = "appointment.created"
	EventAppointmentCompleted  = "appointment.completed"
	EventAppointmentMissed     = "appointment.missed"
	EventAppointmentCancelled  = "appointment.cancelled"
	EventAppointmentJustified  = "appointment.justified"
	EventSeriesCreated         = "series.created"
	EventSeriesPaused          = "series.paused"
	EventSeriesResumed         = "series.resumed"
	EventSeriesDeactivated     = "series.deactivated"
	EventReconciliationResolve = "reconciliation.resolved"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}
