package model

import (
	"time"

	"github.com/google/uuid"
)

// Actor is the resolved identity accompanying every request. The API
// never authenticates; an upstream collaborator does, and the auth
// middleware hands the result to the services for audit attribution.
type Actor struct {
	UserID   uuid.UUID `json:"user_id"`
	ClinicID uuid.UUID `json:"clinic_id"`
	Role     string    `json:"role"`
	IsAdmin  bool      `json:"is_admin"`
}

// BatchItemError names one failed item of a batch operation.
type BatchItemError struct {
	ItemID uuid.UUID  `json:"item_id"`
	Date   *time.Time `json:"date,omitempty"`
	Reason string     `json:"reason"`
}

// BatchResult is the standard shape of every multi-item operation: one
// outcome per item, never an all-or-nothing rollback.
type BatchResult struct {
	Succeeded int              `json:"succeeded"`
	Total     int              `json:"total"`
	Errors    []BatchItemError `json:"errors,omitempty"`
}
