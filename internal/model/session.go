package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TherapySession is the record of clinical work performed. Sessions are
// produced by the therapy-tracking side of the product; the scheduling
// core reads them to reconcile against the appointment calendar. A
// session with no appointment referencing it is an orphan.
type TherapySession struct {
	Base
	ClinicID    uuid.UUID       `db:"clinic_id" json:"clinic_id"`
	PatientID   uuid.UUID       `db:"patient_id" json:"patient_id"`
	TherapistID uuid.UUID       `db:"therapist_id" json:"therapist_id"`
	SessionDate time.Time       `db:"session_date" json:"session_date"`
	SessionTime *ClockTime      `db:"session_time" json:"session_time,omitempty"`
	ProgramIDs  json.RawMessage `db:"program_ids" json:"program_ids,omitempty"`
	Detail      json.RawMessage `db:"detail" json:"detail,omitempty"`
	Notes       string          `db:"notes" json:"notes,omitempty"`
}

type CreateSessionRequest struct {
	PatientID   uuid.UUID       `json:"patient_id" binding:"required"`
	TherapistID uuid.UUID       `json:"therapist_id" binding:"required"`
	SessionDate time.Time       `json:"session_date" binding:"required"`
	SessionTime *ClockTime      `json:"session_time"`
	ProgramIDs  json.RawMessage `json:"program_ids"`
	Detail      json.RawMessage `json:"detail"`
	Notes       string          `json:"notes" binding:"max=4000"`
}

type SessionFilters struct {
	ClinicID    uuid.UUID
	PatientID   uuid.UUID
	TherapistID uuid.UUID
	From        time.Time
	To          time.Time
}
