package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/pkg/errors"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusMissed    AppointmentStatus = "missed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// MissedBy records which party was responsible for a missed session.
type MissedBy string

const (
	MissedByPatient   MissedBy = "patient"
	MissedByTherapist MissedBy = "therapist"
	MissedByBoth      MissedBy = "both"
	MissedByOther     MissedBy = "other"
)

// Reason category vocabulary carried over from the clinical product;
// "outro" is the catch-all bucket.
const (
	ReasonPatientIllness   = "patient_illness"
	ReasonTherapistAbsence = "therapist_absence"
	ReasonTravel           = "travel"
	ReasonSchedulingError  = "scheduling_error"
	ReasonOther            = "outro"
)

const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 240

	// Cancellation and justification descriptions must carry enough
	// text to be useful in an audit review.
	MinReasonDescriptionLen = 10
)

// Appointment is a single bookable instance. Status-specific fields are
// pointers and are only populated by the transition methods below; the
// methods are the sole mutation path for status.
type Appointment struct {
	Base
	ClinicID        uuid.UUID         `db:"clinic_id" json:"clinic_id"`
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	TherapistID     uuid.UUID         `db:"therapist_id" json:"therapist_id"`
	DisciplineID    *uuid.UUID        `db:"discipline_id" json:"discipline_id,omitempty"`
	ScheduledDate   time.Time         `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime   ClockTime         `db:"scheduled_time" json:"scheduled_time"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
	Status          AppointmentStatus `db:"status" json:"status"`

	RecurringTemplateID *uuid.UUID `db:"recurring_template_id" json:"recurring_template_id,omitempty"`
	LinkedSessionID     *uuid.UUID `db:"linked_session_id" json:"linked_session_id,omitempty"`

	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	MissedAt    *time.Time `db:"missed_at" json:"missed_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy *uuid.UUID `db:"cancelled_by" json:"cancelled_by,omitempty"`

	MissedReasonType        *string   `db:"missed_reason_type" json:"missed_reason_type,omitempty"`
	MissedReasonDescription *string   `db:"missed_reason_description" json:"missed_reason_description,omitempty"`
	MissedBy                *MissedBy `db:"missed_by" json:"missed_by,omitempty"`
	JustifiedAt             *time.Time `db:"justified_at" json:"justified_at,omitempty"`
	JustifiedBy             *uuid.UUID `db:"justified_by" json:"justified_by,omitempty"`

	CancellationReasonType        *string `db:"cancellation_reason_type" json:"cancellation_reason_type,omitempty"`
	CancellationReasonDescription *string `db:"cancellation_reason_description" json:"cancellation_reason_description,omitempty"`
}

// StartsAt returns the appointment start as a point in time.
func (a *Appointment) StartsAt() (time.Time, error) {
	return a.ScheduledTime.On(a.ScheduledDate)
}

// EndsAt returns the exclusive end of the appointment interval.
func (a *Appointment) EndsAt() (time.Time, error) {
	start, err := a.StartsAt()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(a.DurationMinutes) * time.Minute), nil
}

// Complete transitions scheduled -> completed, optionally linking the
// therapy session that fulfilled it.
func (a *Appointment) Complete(now time.Time, sessionID *uuid.UUID) error {
	if a.Status != AppointmentStatusScheduled {
		return errors.NewInvalidState("only scheduled appointments can be completed")
	}
	a.Status = AppointmentStatusCompleted
	a.CompletedAt = &now
	if sessionID != nil {
		a.LinkedSessionID = sessionID
	}
	a.UpdatedAt = now
	return nil
}

// MarkMissed transitions scheduled -> missed. Only the sweeper calls this.
func (a *Appointment) MarkMissed(now time.Time) error {
	if a.Status != AppointmentStatusScheduled {
		return errors.NewInvalidState("only scheduled appointments can be marked missed")
	}
	a.Status = AppointmentStatusMissed
	a.MissedAt = &now
	a.UpdatedAt = now
	return nil
}

// JustifyInput carries the audit fields for justifying a missed session.
type JustifyInput struct {
	ReasonType        string   `json:"reason_type" binding:"required"`
	ReasonDescription string   `json:"reason_description" binding:"required,min=10"`
	MissedBy          MissedBy `json:"missed_by" binding:"required,oneof=patient therapist both other"`
}

// Justify records a justification on a missed appointment. The status
// stays missed; a second justification is rejected so the first audit
// record is immutable.
func (a *Appointment) Justify(now time.Time, actingUserID uuid.UUID, in JustifyInput) error {
	if a.Status != AppointmentStatusMissed {
		return errors.NewInvalidState("only missed appointments can be justified")
	}
	if a.JustifiedAt != nil {
		return errors.NewAlreadyJustified()
	}
	if in.ReasonType == "" || len(in.ReasonDescription) < MinReasonDescriptionLen {
		return errors.NewValidation("justification requires a reason type and a description of at least 10 characters")
	}
	switch in.MissedBy {
	case MissedByPatient, MissedByTherapist, MissedByBoth, MissedByOther:
	default:
		return errors.NewValidationf("invalid missed_by value %q", in.MissedBy)
	}
	a.JustifiedAt = &now
	a.JustifiedBy = &actingUserID
	a.MissedReasonType = &in.ReasonType
	a.MissedReasonDescription = &in.ReasonDescription
	mb := in.MissedBy
	a.MissedBy = &mb
	a.UpdatedAt = now
	return nil
}

// SelfJustified reports whether the justification was recorded by the
// assigned therapist rather than an administrative override.
func (a *Appointment) SelfJustified() bool {
	return a.JustifiedBy != nil && *a.JustifiedBy == a.TherapistID
}

// Cancel transitions scheduled -> cancelled. Irreversible.
func (a *Appointment) Cancel(now time.Time, actingUserID uuid.UUID, reasonType, reasonDescription string) error {
	switch a.Status {
	case AppointmentStatusScheduled:
	case AppointmentStatusCancelled:
		return errors.NewInvalidState("appointment is already cancelled")
	default:
		return errors.NewInvalidState("only scheduled appointments can be cancelled")
	}
	if reasonType == "" {
		return errors.NewValidation("cancellation requires a reason type")
	}
	if len(reasonDescription) < MinReasonDescriptionLen {
		return errors.NewValidationf("cancellation description must be at least %d characters", MinReasonDescriptionLen)
	}
	a.Status = AppointmentStatusCancelled
	a.CancelledAt = &now
	a.CancelledBy = &actingUserID
	a.CancellationReasonType = &reasonType
	a.CancellationReasonDescription = &reasonDescription
	a.UpdatedAt = now
	return nil
}

// Deletable reports whether the appointment may be hard-deleted. Once an
// appointment carries a real-world outcome it is permanent.
func (a *Appointment) Deletable() bool {
	return a.Status == AppointmentStatusScheduled
}

// Validate checks the structural invariants of the record.
func (a *Appointment) Validate() error {
	if a.ClinicID == uuid.Nil {
		return errors.NewValidation("clinic_id is required")
	}
	if a.PatientID == uuid.Nil {
		return errors.NewValidation("patient_id is required")
	}
	if a.TherapistID == uuid.Nil {
		return errors.NewValidation("therapist_id is required")
	}
	if a.DurationMinutes < MinDurationMinutes || a.DurationMinutes > MaxDurationMinutes {
		return errors.NewValidationf("duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes)
	}
	if !a.ScheduledTime.Valid() {
		return errors.NewValidation("scheduled_time must be in HH:MM format")
	}
	if a.ScheduledDate.IsZero() {
		return errors.NewValidation("scheduled_date is required")
	}
	return nil
}

type CreateAppointmentRequest struct {
	PatientID       uuid.UUID  `json:"patient_id" binding:"required"`
	TherapistID     uuid.UUID  `json:"therapist_id" binding:"required"`
	DisciplineID    *uuid.UUID `json:"discipline_id"`
	ScheduledDate   time.Time  `json:"scheduled_date" binding:"required"`
	ScheduledTime   ClockTime  `json:"scheduled_time" binding:"required"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=15,max=240"`
	Notes           string     `json:"notes" binding:"max=1000"`
}

type UpdateAppointmentRequest struct {
	ScheduledDate   *time.Time `json:"scheduled_date"`
	ScheduledTime   *ClockTime `json:"scheduled_time"`
	DurationMinutes *int       `json:"duration_minutes"`
	DisciplineID    *uuid.UUID `json:"discipline_id"`
	Notes           *string    `json:"notes"`
}

type CancelAppointmentRequest struct {
	ReasonType        string `json:"reason_type" binding:"required"`
	ReasonDescription string `json:"reason_description" binding:"required,min=10"`
}

type AppointmentFilters struct {
	ClinicID    uuid.UUID
	PatientID   uuid.UUID
	TherapistID uuid.UUID
	TemplateID  uuid.UUID
	Status      AppointmentStatus
	From        time.Time
	To          time.Time
}
