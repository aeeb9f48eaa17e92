package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abaflow/practice-api/internal/email"
	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/internal/repository"
	"github.com/abaflow/practice-api/internal/scheduling"
	"github.com/abaflow/practice-api/internal/service/event"
	"github.com/abaflow/practice-api/pkg/clock"
	"github.com/abaflow/practice-api/pkg/errors"
	"github.com/abaflow/practice-api/pkg/logger"
	"github.com/abaflow/practice-api/pkg/metrics"
)

const (
	// MinGraceHours / MaxGraceHours bound the sweep grace window.
	MinGraceHours = 0.5
	MaxGraceHours = 24
)

// Service owns the appointment state machine: scheduled is the only
// mutable state; completed, missed and cancelled are terminal.
type Service struct {
	repo       repository.AppointmentRepository
	therapists repository.TherapistRepository
	events     *event.Service
	notifier   email.Service
	clock      clock.Clock
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	therapists repository.TherapistRepository,
	events *event.Service,
	notifier email.Service,
	clk clock.Clock,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if notifier == nil {
		notifier = email.NewNoop()
	}
	return &Service{
		repo:       repo,
		therapists: therapists,
		events:     events,
		notifier:   notifier,
		clock:      clk,
		logger:     logger,
		metrics:    m,
	}
}

// Create books a standalone appointment. A conflict is a hard error
// here; only batch generation skips around conflicts.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	now := s.clock.Now()
	apt := &model.Appointment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ClinicID:        actor.ClinicID,
		PatientID:       req.PatientID,
		TherapistID:     req.TherapistID,
		DisciplineID:    req.DisciplineID,
		ScheduledDate:   req.ScheduledDate,
		ScheduledTime:   req.ScheduledTime,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		Status:          model.AppointmentStatusScheduled,
	}
	if err := apt.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkConflict(ctx, apt, nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.events.Record(ctx, model.EventAppointmentCreated, apt)
	return apt, nil
}

// CreateInstance persists an appointment already constructed by the
// series manager or the reconciliation engine. The caller has run
// validation and conflict checks appropriate to its batch context.
func (s *Service) CreateInstance(ctx context.Context, apt *model.Appointment) error {
	if err := apt.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, apt); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	s.events.Record(ctx, model.EventAppointmentCreated, apt)
	return nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.ClinicID != actor.ClinicID {
		return nil, errors.NewNotFound("appointment")
	}
	return apt, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.repo.List(ctx, filters)
}

// Update reschedules or annotates a single occurrence. Only scheduled
// appointments are mutable; the instance stays linked to its template
// even when its fields diverge from it.
func (s *Service) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if apt.Status != model.AppointmentStatusScheduled {
		return nil, errors.NewInvalidState("only scheduled appointments can be edited")
	}

	if req.ScheduledDate != nil {
		apt.ScheduledDate = *req.ScheduledDate
	}
	if req.ScheduledTime != nil {
		apt.ScheduledTime = *req.ScheduledTime
	}
	if req.DurationMinutes != nil {
		apt.DurationMinutes = *req.DurationMinutes
	}
	if req.DisciplineID != nil {
		apt.DisciplineID = req.DisciplineID
	}
	if req.Notes != nil {
		apt.Notes = *req.Notes
	}
	if err := apt.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkConflict(ctx, apt, &apt.ID); err != nil {
		return nil, err
	}

	apt.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}
	return apt, nil
}

// Complete marks a scheduled appointment as attended, optionally linking
// the therapy session that fulfilled it.
func (s *Service) Complete(ctx context.Context, actor model.Actor, id uuid.UUID, sessionID *uuid.UUID) (*model.Appointment, error) {
	apt, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := apt.Complete(s.clock.Now(), sessionID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}
	s.events.Record(ctx, model.EventAppointmentCompleted, apt)
	return apt, nil
}

// Cancel is irreversible and keeps the row forever for audit.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.CancelAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := apt.Cancel(s.clock.Now(), actor.UserID, req.ReasonType, req.ReasonDescription); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}

	s.events.Record(ctx, model.EventAppointmentCancelled, apt)
	s.notifyCancelled(ctx, apt, req.ReasonDescription)
	return apt, nil
}

// Delete hard-removes an appointment. Permitted only while scheduled;
// anything with a real-world outcome is permanent.
func (s *Service) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	apt, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !apt.Deletable() {
		return errors.NewInvalidState(fmt.Sprintf("cannot delete a %s appointment", apt.Status))
	}
	return s.repo.Delete(ctx, id)
}

// Justify records the reason a missed session was missed. The assigned
// therapist may justify their own session; anyone else needs admin
// rights, distinguished for audit by justified_by != therapist_id.
func (s *Service) Justify(ctx context.Context, actor model.Actor, id uuid.UUID, in model.JustifyInput) (*model.Appointment, error) {
	apt, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && actor.UserID != apt.TherapistID {
		return nil, errors.NewForbidden("only the assigned therapist or an admin can justify an absence")
	}
	if err := apt.Justify(s.clock.Now(), actor.UserID, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}
	s.events.Record(ctx, model.EventAppointmentJustified, apt)
	return apt, nil
}

// MarkMissed sweeps every scheduled appointment whose start lies more
// than graceHours in the past into the missed state. Idempotent: rows
// already missed no longer match the selection.
func (s *Service) MarkMissed(ctx context.Context, graceHours float64) (int, error) {
	if graceHours < MinGraceHours || graceHours > MaxGraceHours {
		return 0, errors.NewValidationf("grace hours must be between %v and %v", MinGraceHours, MaxGraceHours)
	}

	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.SweepDuration)
		defer timer.ObserveDuration()
	}

	now := s.clock.Now()
	cutoff := now.Add(-time.Duration(graceHours * float64(time.Hour)))

	overdue, err := s.repo.ListOverdueScheduled(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue appointments: %w", err)
	}

	count := 0
	for _, apt := range overdue {
		if err := apt.MarkMissed(now); err != nil {
			// Raced with a concurrent transition; skip.
			continue
		}
		if err := s.repo.Update(ctx, apt); err != nil {
			s.logger.Error(err, "failed to mark appointment missed", "appointment_id", apt.ID.String())
			continue
		}
		s.events.Record(ctx, model.EventAppointmentMissed, apt)
		s.notifyMissed(ctx, apt)
		count++
	}
	if s.metrics != nil && count > 0 {
		s.metrics.SweepTransitioned.Add(float64(count))
	}
	return count, nil
}

func (s *Service) checkConflict(ctx context.Context, apt *model.Appointment, excludeID *uuid.UUID) error {
	existing, err := s.repo.ListForConflictCheck(ctx, apt.ClinicID, apt.ScheduledDate, apt.PatientID, apt.TherapistID)
	if err != nil {
		return fmt.Errorf("failed to check conflicts: %w", err)
	}
	cand := scheduling.Candidate{
		PatientID:       apt.PatientID,
		TherapistID:     apt.TherapistID,
		Date:            apt.ScheduledDate,
		Time:            apt.ScheduledTime,
		DurationMinutes: apt.DurationMinutes,
	}
	if scheduling.HasConflict(existing, cand, excludeID) {
		return errors.NewConflict("the requested slot overlaps an existing appointment")
	}
	return nil
}

func (s *Service) notifyCancelled(ctx context.Context, apt *model.Appointment, reason string) {
	therapist, err := s.therapists.Get(ctx, apt.TherapistID)
	if err != nil {
		return
	}
	if err := s.notifier.SendAppointmentCancelled(ctx, therapist.Email, apt, reason); err != nil {
		s.logger.Warn("cancellation notification failed", "appointment_id", apt.ID.String())
	}
}

func (s *Service) notifyMissed(ctx context.Context, apt *model.Appointment) {
	therapist, err := s.therapists.Get(ctx, apt.TherapistID)
	if err != nil {
		return
	}
	if err := s.notifier.SendAppointmentMissed(ctx, therapist.Email, apt); err != nil {
		s.logger.Warn("missed notification failed", "appointment_id", apt.ID.String())
	}
}
