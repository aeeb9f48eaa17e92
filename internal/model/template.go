package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/pkg/errors"
)

type RecurrenceType string

const (
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceBiweekly RecurrenceType = "biweekly"
	// Monthly steps a fixed 28 days, deliberately not calendar-month
	// arithmetic. Downstream reports depend on the fixed stride.
	RecurrenceMonthly RecurrenceType = "monthly"
)

// StepDays returns the recurrence stride in days.
func (r RecurrenceType) StepDays() int {
	switch r {
	case RecurrenceWeekly:
		return 7
	case RecurrenceBiweekly:
		return 14
	case RecurrenceMonthly:
		return 28
	}
	return 0
}

func (r RecurrenceType) Valid() bool {
	return r.StepDays() != 0
}

type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "active"
	TemplateStatusPaused   TemplateStatus = "paused"
	TemplateStatusExpired  TemplateStatus = "expired"
	TemplateStatusInactive TemplateStatus = "inactive"
)

// AppointmentTemplate is a recurrence definition from which concrete
// appointments are generated. Only the inactive flag is stored; the
// active/paused/expired states are derived at read time so they cannot
// drift from their inputs.
type AppointmentTemplate struct {
	Base
	ClinicID        uuid.UUID      `db:"clinic_id" json:"clinic_id"`
	PatientID       uuid.UUID      `db:"patient_id" json:"patient_id"`
	TherapistID     uuid.UUID      `db:"therapist_id" json:"therapist_id"`
	DisciplineID    *uuid.UUID     `db:"discipline_id" json:"discipline_id,omitempty"`
	RecurrenceType  RecurrenceType `db:"recurrence_type" json:"recurrence_type"`
	DayOfWeek       int            `db:"day_of_week" json:"day_of_week"`
	ScheduledTime   ClockTime      `db:"scheduled_time" json:"scheduled_time"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	StartDate       time.Time      `db:"start_date" json:"start_date"`
	EndDate         *time.Time     `db:"end_date" json:"end_date,omitempty"`

	PausedAt    *time.Time `db:"paused_at" json:"paused_at,omitempty"`
	PauseReason *string    `db:"pause_reason" json:"pause_reason,omitempty"`
	PausedUntil *time.Time `db:"paused_until" json:"paused_until,omitempty"`

	DeactivatedAt      *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
	DeactivationReason *string    `db:"deactivation_reason" json:"deactivation_reason,omitempty"`
}

// Status derives the lifecycle state at the given instant. Inactive is
// terminal and wins over everything; a pause persists until explicitly
// resumed even when paused_until has lapsed.
func (t *AppointmentTemplate) Status(now time.Time) TemplateStatus {
	if t.DeactivatedAt != nil {
		return TemplateStatusInactive
	}
	if t.PausedAt != nil {
		return TemplateStatusPaused
	}
	if t.EndDate != nil && t.EndDate.Before(now) {
		return TemplateStatusExpired
	}
	return TemplateStatusActive
}

// CanGenerate reports whether the template may produce new instances now.
func (t *AppointmentTemplate) CanGenerate(now time.Time) bool {
	return t.Status(now) == TemplateStatusActive
}

// Validate checks the recurrence definition.
func (t *AppointmentTemplate) Validate() error {
	if t.ClinicID == uuid.Nil {
		return errors.NewValidation("clinic_id is required")
	}
	if t.PatientID == uuid.Nil {
		return errors.NewValidation("patient_id is required")
	}
	if t.TherapistID == uuid.Nil {
		return errors.NewValidation("therapist_id is required")
	}
	if !t.RecurrenceType.Valid() {
		return errors.NewValidationf("invalid recurrence_type %q", t.RecurrenceType)
	}
	if t.DayOfWeek < 0 || t.DayOfWeek > 6 {
		return errors.NewValidation("day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	}
	if !t.ScheduledTime.Valid() {
		return errors.NewValidation("scheduled_time must be in HH:MM format")
	}
	if t.DurationMinutes < MinDurationMinutes || t.DurationMinutes > MaxDurationMinutes {
		return errors.NewValidationf("duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes)
	}
	if t.StartDate.IsZero() {
		return errors.NewValidation("start_date is required")
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return errors.NewValidation("end_date cannot be before start_date")
	}
	return nil
}

type CreateTemplateRequest struct {
	PatientID          uuid.UUID      `json:"patient_id" binding:"required"`
	TherapistID        uuid.UUID      `json:"therapist_id" binding:"required"`
	DisciplineID       *uuid.UUID     `json:"discipline_id"`
	RecurrenceType     RecurrenceType `json:"recurrence_type" binding:"required,oneof=weekly biweekly monthly"`
	DayOfWeek          int            `json:"day_of_week" binding:"min=0,max=6"`
	ScheduledTime      ClockTime      `json:"scheduled_time" binding:"required"`
	DurationMinutes    int            `json:"duration_minutes" binding:"required,min=15,max=240"`
	StartDate          time.Time      `json:"start_date" binding:"required"`
	EndDate            *time.Time     `json:"end_date"`
	GenerateWeeksAhead int            `json:"generate_weeks_ahead" binding:"min=0,max=16"`
}

type EditSeriesRequest struct {
	DayOfWeek       *int            `json:"day_of_week"`
	ScheduledTime   *ClockTime      `json:"scheduled_time"`
	DurationMinutes *int            `json:"duration_minutes"`
	RecurrenceType  *RecurrenceType `json:"recurrence_type"`
	EndDate         *time.Time      `json:"end_date"`
	DisciplineID    *uuid.UUID      `json:"discipline_id"`
}

type PauseTemplateRequest struct {
	Reason      string     `json:"reason" binding:"required"`
	PausedUntil *time.Time `json:"paused_until"`
}

type DeactivateTemplateRequest struct {
	Reason string `json:"reason" binding:"required"`
}
