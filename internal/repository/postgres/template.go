package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/pkg/errors"
)

const templateColumns = `
	id, clinic_id, patient_id, therapist_id, discipline_id,
	recurrence_type, day_of_week, scheduled_time, duration_minutes,
	start_date, end_date,
	paused_at, pause_reason, paused_until,
	deactivated_at, deactivation_reason,
	created_at, updated_at`

func (r *templateRepository) Create(ctx context.Context, t *model.AppointmentTemplate) error {
	query := `
		INSERT INTO appointment_templates (` + templateColumns + `)
		VALUES (
			:id, :clinic_id, :patient_id, :therapist_id, :discipline_id,
			:recurrence_type, :day_of_week, :scheduled_time, :duration_minutes,
			:start_date, :end_date,
			:paused_at, :pause_reason, :paused_until,
			:deactivated_at, :deactivation_reason,
			:created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *templateRepository) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM appointment_templates WHERE id = $1`

	var t model.AppointmentTemplate
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("template")
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

func (r *templateRepository) Update(ctx context.Context, t *model.AppointmentTemplate) error {
	query := `
		UPDATE appointment_templates SET
			discipline_id = :discipline_id,
			recurrence_type = :recurrence_type,
			day_of_week = :day_of_week,
			scheduled_time = :scheduled_time,
			duration_minutes = :duration_minutes,
			start_date = :start_date,
			end_date = :end_date,
			paused_at = :paused_at,
			pause_reason = :pause_reason,
			paused_until = :paused_until,
			deactivated_at = :deactivated_at,
			deactivation_reason = :deactivation_reason,
			updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NewNotFound("template")
	}
	return nil
}

func (r *templateRepository) List(ctx context.Context, clinicID uuid.UUID) ([]*model.AppointmentTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM appointment_templates
		WHERE clinic_id = $1
		ORDER BY created_at DESC
	`
	var templates []*model.AppointmentTemplate
	if err := r.db.SelectContext(ctx, &templates, query, clinicID); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}
