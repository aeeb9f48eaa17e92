// Package registry manages the directory entities that scheduling
// hangs off: clinics, patients and therapists.
package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/internal/repository"
	"github.com/abaflow/practice-api/pkg/clock"
	apperrors "github.com/abaflow/practice-api/pkg/errors"
	"github.com/abaflow/practice-api/pkg/logger"
)

type Service struct {
	clinics    repository.ClinicRepository
	patients   repository.PatientRepository
	therapists repository.TherapistRepository
	clock      clock.Clock
	logger     *logger.Logger
}

func NewService(clinics repository.ClinicRepository, patients repository.PatientRepository, therapists repository.TherapistRepository, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		clinics:    clinics,
		patients:   patients,
		therapists: therapists,
		clock:      clk,
		logger:     log,
	}
}

func (s *Service) CreateClinic(ctx context.Context, req *model.CreateClinicRequest) (*model.Clinic, error) {
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil, apperrors.NewValidationf("invalid timezone: %s", req.Timezone)
	}

	now := s.clock.Now()
	clinic := &model.Clinic{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:     req.Name,
		Timezone: req.Timezone,
	}
	if err := s.clinics.Create(ctx, clinic); err != nil {
		return nil, err
	}
	return clinic, nil
}

func (s *Service) GetClinic(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Clinic, error) {
	if !actor.IsAdmin && actor.ClinicID != id {
		return nil, apperrors.NewNotFound("clinic")
	}
	return s.clinics.Get(ctx, id)
}

func (s *Service) CreatePatient(ctx context.Context, actor model.Actor, req *model.CreatePatientRequest) (*model.Patient, error) {
	now := s.clock.Now()
	patient := &model.Patient{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ClinicID: actor.ClinicID,
		Name:     req.Name,
		Guardian: req.Guardian,
		Status:   "active",
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patient.ClinicID != actor.ClinicID {
		return nil, apperrors.NewNotFound("patient")
	}
	return patient, nil
}

func (s *Service) ListPatients(ctx context.Context, actor model.Actor) ([]*model.Patient, error) {
	return s.patients.List(ctx, actor.ClinicID)
}

func (s *Service) CreateTherapist(ctx context.Context, actor model.Actor, req *model.CreateTherapistRequest) (*model.Therapist, error) {
	now := s.clock.Now()
	therapist := &model.Therapist{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ClinicID: actor.ClinicID,
		Name:     req.Name,
		Email:    req.Email,
		Status:   "active",
	}
	if err := s.therapists.Create(ctx, therapist); err != nil {
		return nil, err
	}
	return therapist, nil
}

func (s *Service) GetTherapist(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Therapist, error) {
	therapist, err := s.therapists.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if therapist.ClinicID != actor.ClinicID {
		return nil, apperrors.NewNotFound("therapist")
	}
	return therapist, nil
}

func (s *Service) ListTherapists(ctx context.Context, actor model.Actor) ([]*model.Therapist, error) {
	return s.therapists.List(ctx, actor.ClinicID)
}
