package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/pkg/errors"
)

func (r *therapistRepository) Create(ctx context.Context, t *model.Therapist) error {
	query := `
		INSERT INTO therapists (id, clinic_id, name, email, status, created_at, updated_at)
		VALUES (:id, :clinic_id, :name, :email, :status, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("failed to create therapist: %w", err)
	}
	return nil
}

func (r *therapistRepository) Get(ctx context.Context, id uuid.UUID) (*model.Therapist, error) {
	query := `SELECT id, clinic_id, name, email, status, created_at, updated_at FROM therapists WHERE id = $1`

	var t model.Therapist
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("therapist")
		}
		return nil, fmt.Errorf("failed to get therapist: %w", err)
	}
	return &t, nil
}

func (r *therapistRepository) Update(ctx context.Context, t *model.Therapist) error {
	query := `
		UPDATE therapists
		SET name = :name, email = :email, status = :status, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return fmt.Errorf("failed to update therapist: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NewNotFound("therapist")
	}
	return nil
}

func (r *therapistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM therapists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete therapist: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NewNotFound("therapist")
	}
	return nil
}

func (r *therapistRepository) List(ctx context.Context, clinicID uuid.UUID) ([]*model.Therapist, error) {
	query := `SELECT id, clinic_id, name, email, status, created_at, updated_at FROM therapists WHERE clinic_id = $1 ORDER BY name ASC`

	var therapists []*model.Therapist
	if err := r.db.SelectContext(ctx, &therapists, query, clinicID); err != nil {
		return nil, fmt.Errorf("failed to list therapists: %w", err)
	}
	return therapists, nil
}
