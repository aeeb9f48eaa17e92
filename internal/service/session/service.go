// Package session records therapy sessions. The scheduling core only
// reads these to reconcile the calendar, but the write path lives here
// so that a session created against a scheduled appointment completes
// it immediately instead of waiting for a reconciliation sweep.
package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/internal/repository"
	appointmentService "github.com/abaflow/practice-api/internal/service/appointment"
	"github.com/abaflow/practice-api/pkg/clock"
	apperrors "github.com/abaflow/practice-api/pkg/errors"
	"github.com/abaflow/practice-api/pkg/logger"
)

type Service struct {
	sessions     repository.SessionRepository
	appointments repository.AppointmentRepository
	lifecycle    *appointmentService.Service
	clock        clock.Clock
	logger       *logger.Logger
}

func NewService(sessions repository.SessionRepository, appointments repository.AppointmentRepository, lifecycle *appointmentService.Service, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		sessions:     sessions,
		appointments: appointments,
		lifecycle:    lifecycle,
		clock:        clk,
		logger:       log,
	}
}

// Create persists the session, then tries to claim a scheduled
// appointment for the same patient and therapist on that date. Failing to claim
// is not an error: the session simply stays an orphan until a
// reconciliation run picks it up.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateSessionRequest) (*model.TherapySession, error) {
	now := s.clock.Now()
	session := &model.TherapySession{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ClinicID:    actor.ClinicID,
		PatientID:   req.PatientID,
		TherapistID: req.TherapistID,
		SessionDate: req.SessionDate,
		SessionTime: req.SessionTime,
		ProgramIDs:  req.ProgramIDs,
		Detail:      req.Detail,
		Notes:       req.Notes,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.claimAppointment(ctx, actor, session)
	return session, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.TherapySession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.ClinicID != actor.ClinicID {
		return nil, apperrors.NewNotFound("session")
	}
	return session, nil
}

func (s *Service) List(ctx context.Context, actor model.Actor, filters *model.SessionFilters) ([]*model.TherapySession, error) {
	filters.ClinicID = actor.ClinicID
	return s.sessions.List(ctx, filters)
}

func (s *Service) claimAppointment(ctx context.Context, actor model.Actor, session *model.TherapySession) {
	candidates, err := s.appointments.List(ctx, &model.AppointmentFilters{
		ClinicID:    session.ClinicID,
		PatientID:   session.PatientID,
		TherapistID: session.TherapistID,
		Status:      model.AppointmentStatusScheduled,
		From:        session.SessionDate,
		To:          session.SessionDate,
	})
	if err != nil {
		s.logger.Error(err, "failed to look up appointments for new session", "session_id", session.ID)
		return
	}
	if len(candidates) == 0 {
		return
	}

	if _, err := s.lifecycle.Complete(ctx, actor, candidates[0].ID, &session.ID); err != nil {
		s.logger.Warn("could not complete appointment for new session",
			"error", err.Error(),
			"session_id", session.ID,
			"appointment_id", candidates[0].ID,
		)
	}
}
