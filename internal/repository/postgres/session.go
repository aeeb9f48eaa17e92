package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/pkg/errors"
)

const sessionColumns = `
	id, clinic_id, patient_id, therapist_id,
	session_date, session_time, program_ids, detail, notes,
	created_at, updated_at`

func (r *sessionRepository) Create(ctx context.Context, s *model.TherapySession) error {
	query := `
		INSERT INTO therapy_sessions (` + sessionColumns + `)
		VALUES (
			:id, :clinic_id, :patient_id, :therapist_id,
			:session_date, :session_time, :program_ids, :detail, :notes,
			:created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.TherapySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM therapy_sessions WHERE id = $1`

	var s model.TherapySession
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("session")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func (r *sessionRepository) List(ctx context.Context, filters *model.SessionFilters) ([]*model.TherapySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM therapy_sessions WHERE clinic_id = $1`
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
	if !filters.From.IsZero() {
		query += fmt.Sprintf(" AND session_date >= $%d", argCount)
		args = append(args, filters.From)
		argCount++
	}
	if !filters.To.IsZero() {
		query += fmt.Sprintf(" AND session_date <= $%d", argCount)
		args = append(args, filters.To)
		argCount++
	}

	query += " ORDER BY session_date ASC"

	var sessions []*model.TherapySession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}
