package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
)

// All repository interfaces in one file
type (
	TemplateRepository interface {
		Create(ctx context.Context, t *model.AppointmentTemplate) error
		Get(ctx context.Context, id uuid.UUID) (*model.AppointmentTemplate, error)
		Update(ctx context.Context, t *model.AppointmentTemplate) error
		List(ctx context.Context, clinicID uuid.UUID) ([]*model.AppointmentTemplate, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, apt *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, apt *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)

		// ListForConflictCheck returns the non-cancelled appointments on
		// one date that involve either party, pre-scoped to the clinic.
		ListForConflictCheck(ctx context.Context, clinicID uuid.UUID, date time.Time, patientID, therapistID uuid.UUID) ([]*model.Appointment, error)

		// ListByTemplate returns a series' instances ordered by date.
		ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*model.Appointment, error)

		// LatestGeneratedDate returns the most recent scheduled_date of
		// any instance under the template, nil when none exist.
		LatestGeneratedDate(ctx context.Context, templateID uuid.UUID) (*time.Time, error)

		// ListOverdueScheduled returns still-scheduled appointments whose
		// start time plus grace lies before the cutoff, date-ascending.
		ListOverdueScheduled(ctx context.Context, cutoff time.Time) ([]*model.Appointment, error)

		// GetByLinkedSession returns the appointment referencing the
		// session, or a not-found error.
		GetByLinkedSession(ctx context.Context, sessionID uuid.UUID) (*model.Appointment, error)
	}

	SessionRepository interface {
		Create(ctx context.Context, s *model.TherapySession) error
		Get(ctx context.Context, id uuid.UUID) (*model.TherapySession, error)
		List(ctx context.Context, filters *model.SessionFilters) ([]*model.TherapySession, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, p *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, p *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, clinicID uuid.UUID) ([]*model.Patient, error)
	}

	TherapistRepository interface {
		Create(ctx context.Context, t *model.Therapist) error
		Get(ctx context.Context, id uuid.UUID) (*model.Therapist, error)
		Update(ctx context.Context, t *model.Therapist) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, clinicID uuid.UUID) ([]*model.Therapist, error)
	}

	ClinicRepository interface {
		Create(ctx context.Context, c *model.Clinic) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		Update(ctx context.Context, c *model.Clinic) error
		List(ctx context.Context) ([]*model.Clinic, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	}
)
