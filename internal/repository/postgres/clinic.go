package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/pkg/errors"
)

func (r *clinicRepository) Create(ctx context.Context, c *model.Clinic) error {
	query := `
		INSERT INTO clinics (id, name, timezone, has_pro_access, created_at, updated_at)
		VALUES (:id, :name, :timezone, :has_pro_access, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("failed to create clinic: %w", err)
	}
	return nil
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	query := `SELECT id, name, timezone, has_pro_access, created_at, updated_at FROM clinics WHERE id = $1`

	var c model.Clinic
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("clinic")
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return &c, nil
}

func (r *clinicRepository) Update(ctx context.Context, c *model.Clinic) error {
	query := `
		UPDATE clinics
		SET name = :name, timezone = :timezone, has_pro_access = :has_pro_access, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to update clinic: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NewNotFound("clinic")
	}
	return nil
}

func (r *clinicRepository) List(ctx context.Context) ([]*model.Clinic, error) {
	query := `SELECT id, name, timezone, has_pro_access, created_at, updated_at FROM clinics ORDER BY name ASC`

	var clinics []*model.Clinic
	if err := r.db.SelectContext(ctx, &clinics, query); err != nil {
		return nil, fmt.Errorf("failed to list clinics: %w", err)
	}
	return clinics, nil
}
