package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/pkg/errors"
)

const appointmentColumns = `
	id, clinic_id, patient_id, therapist_id, discipline_id,
	scheduled_date, scheduled_time, duration_minutes, notes, status,
	recurring_template_id, linked_session_id,
	completed_at, missed_at, cancelled_at, cancelled_by,
	missed_reason_type, missed_reason_description, missed_by,
	justified_at, justified_by,
	cancellation_reason_type, cancellation_reason_description,
	created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES (
			:id, :clinic_id, :patient_id, :therapist_id, :discipline_id,
			:scheduled_date, :scheduled_time, :duration_minutes, :notes, :status,
			:recurring_template_id, :linked_session_id,
			:completed_at, :missed_at, :cancelled_at, :cancelled_by,
			:missed_reason_type, :missed_reason_description, :missed_by,
			:justified_at, :justified_by,
			:cancellation_reason_type, :cancellation_reason_description,
			:created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, apt); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, apt *model.Appointment) error {
	query := `
		UPDATE appointments SET
			discipline_id = :discipline_id,
			scheduled_date = :scheduled_date,
			scheduled_time = :scheduled_time,
			duration_minutes = :duration_minutes,
			notes = :notes,
			status = :status,
			recurring_template_id = :recurring_template_id,
			linked_session_id = :linked_session_id,
			completed_at = :completed_at,
			missed_at = :missed_at,
			cancelled_at = :cancelled_at,
			cancelled_by = :cancelled_by,
			missed_reason_type = :missed_reason_type,
			missed_reason_description = :missed_reason_description,
			missed_by = :missed_by,
			justified_at = :justified_at,
			justified_by = :justified_by,
			cancellation_reason_type = :cancellation_reason_type,
			cancellation_reason_description = :cancellation_reason_description,
			updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, apt)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NewNotFound("appointment")
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NewNotFound("appointment")
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE clinic_id = $1`
	args := []interface{}{filters.ClinicID}
	argCount := 2

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.TherapistID != uuid.Nil {
		query += fmt.Sprintf(" AND therapist_id = $%d", argCount)
		args = append(args, filters.TherapistID)
		argCount++
	}
	if filters.TemplateID != uuid.Nil {
		query += fmt.Sprintf(" AND recurring_template_id = $%d", argCount)
		args = append(args, filters.TemplateID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if !filters.From.IsZero() {
		query += fmt.Sprintf(" AND scheduled_date >= $%d", argCount)
		args = append(args, filters.From)
		argCount++
	}
	if !filters.To.IsZero() {
		query += fmt.Sprintf(" AND scheduled_date <= $%d", argCount)
		args = append(args, filters.To)
		argCount++
	}

	query += " ORDER BY scheduled_date ASC, scheduled_time ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForConflictCheck(ctx context.Context, clinicID uuid.UUID, date time.Time, patientID, therapistID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE clinic_id = $1
		AND scheduled_date = $2
		AND status != 'cancelled'
		AND (patient_id = $3 OR therapist_id = $4)
		ORDER BY scheduled_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, clinicID, date, patientID, therapistID); err != nil {
		return nil, fmt.Errorf("failed to list appointments for conflict check: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE recurring_template_id = $1
		ORDER BY scheduled_date ASC, scheduled_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, templateID); err != nil {
		return nil, fmt.Errorf("failed to list series appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) LatestGeneratedDate(ctx context.Context, templateID uuid.UUID) (*time.Time, error) {
	query := `SELECT MAX(scheduled_date) FROM appointments WHERE recurring_template_id = $1`

	var latest sql.NullTime
	if err := r.db.GetContext(ctx, &latest, query, templateID); err != nil {
		return nil, fmt.Errorf("failed to get latest generated date: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func (r *appointmentRepository) ListOverdueScheduled(ctx context.Context, cutoff time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'scheduled'
		AND scheduled_date + scheduled_time::time < $1
		ORDER BY scheduled_date ASC, scheduled_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list overdue appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) GetByLinkedSession(ctx context.Context, sessionID uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE linked_session_id = $1`

	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, sessionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment by session: %w", err)
	}
	return &apt, nil
}
