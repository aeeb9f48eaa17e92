package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/internal/repository"
	"github.com/abaflow/practice-api/internal/service/event"
	"github.com/abaflow/practice-api/pkg/clock"
	"github.com/abaflow/practice-api/pkg/errors"
	"github.com/abaflow/practice-api/pkg/logger"
	"github.com/abaflow/practice-api/pkg/metrics"
)

// MatchPolicy is the session-to-appointment matching heuristic. The
// exact tolerance is a policy input, not a fixed rule; patient and
// therapist must always agree.
type MatchPolicy struct {
	// DateToleranceDays is the maximum |session_date - scheduled_date|
	// for a match. Zero means same-day only.
	DateToleranceDays int
}

// DefaultMatchPolicy matches same patient, same therapist, same day.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{DateToleranceDays: 0}
}

// MatchedPair is a session that fulfils a scheduled appointment.
type MatchedPair struct {
	Session     *model.TherapySession `json:"session"`
	Appointment *model.Appointment    `json:"appointment"`
}

// Report is the outcome of a detection run: pairs to auto-complete,
// sessions with no appointment, and scheduled appointments whose time
// has passed with no session.
type Report struct {
	Matched        []MatchedPair           `json:"matched"`
	OrphanSessions []*model.TherapySession `json:"orphan_sessions"`
	StaleScheduled []*model.Appointment    `json:"stale_scheduled"`
}

// RetroactiveRequest carries the fields for backfilling one orphan.
type RetroactiveRequest struct {
	DisciplineID    *uuid.UUID       `json:"discipline_id"`
	ScheduledTime   *model.ClockTime `json:"scheduled_time"`
	DurationMinutes *int             `json:"duration_minutes"`
	Notes           string           `json:"notes"`
}

// BatchRetroactiveResult extends the standard batch shape with the
// appointments actually created.
type BatchRetroactiveResult struct {
	model.BatchResult
	Created []*model.Appointment `json:"created_appointments,omitempty"`
}

const defaultRetroactiveDuration = 60

// Service cross-references therapy sessions against the appointment
// calendar and backfills history for work performed without a booking.
type Service struct {
	sessions repository.SessionRepository
	appts    repository.AppointmentRepository
	events   *event.Service
	clock    clock.Clock
	logger   *logger.Logger
	metrics  *metrics.Metrics
	policy   MatchPolicy
}

func NewService(
	sessions repository.SessionRepository,
	appts repository.AppointmentRepository,
	events *event.Service,
	clk clock.Clock,
	logger *logger.Logger,
	m *metrics.Metrics,
	policy MatchPolicy,
) *Service {
	return &Service{
		sessions: sessions,
		appts:    appts,
		events:   events,
		clock:    clk,
		logger:   logger,
		metrics:  m,
		policy:   policy,
	}
}

// Detect scans a date range and classifies every session and scheduled
// appointment. It mutates nothing; AutoResolve acts on the result.
func (s *Service) Detect(ctx context.Context, actor model.Actor, rng model.DateRange) (*Report, error) {
	if rng.To.Before(rng.From) {
		return nil, errors.NewValidation("date range end cannot be before its start")
	}

	sessions, err := s.sessions.List(ctx, &model.SessionFilters{
		ClinicID: actor.ClinicID,
		From:     rng.From,
		To:       rng.To,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	// Widen the appointment window by the tolerance so edge matches
	// near the range boundary are not missed.
	tol := s.policy.DateToleranceDays
	appts, err := s.appts.List(ctx, &model.AppointmentFilters{
		ClinicID: actor.ClinicID,
		From:     rng.From.AddDate(0, 0, -tol),
		To:       rng.To.AddDate(0, 0, tol),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	linked := make(map[uuid.UUID]bool)
	for _, apt := range appts {
		if apt.LinkedSessionID != nil {
			linked[*apt.LinkedSessionID] = true
		}
	}

	report := &Report{
		Matched:        []MatchedPair{},
		OrphanSessions: []*model.TherapySession{},
		StaleScheduled: []*model.Appointment{},
	}
	claimed := make(map[uuid.UUID]bool)

	for _, session := range sessions {
		if linked[session.ID] {
			continue
		}
		apt := s.findMatch(appts, claimed, session)
		if apt != nil {
			claimed[apt.ID] = true
			report.Matched = append(report.Matched, MatchedPair{Session: session, Appointment: apt})
			continue
		}
		report.OrphanSessions = append(report.OrphanSessions, session)
	}

	// The appointment list is tolerance-widened for matching only; the
	// stale scan stays inside the requested range.
	today := dateOnly(s.clock.Now())
	for _, apt := range appts {
		if apt.Status != model.AppointmentStatusScheduled || claimed[apt.ID] {
			continue
		}
		if apt.ScheduledDate.Before(rng.From) || apt.ScheduledDate.After(rng.To) {
			continue
		}
		if apt.ScheduledDate.Before(today) {
			report.StaleScheduled = append(report.StaleScheduled, apt)
		}
	}

	if s.metrics != nil {
		s.metrics.ReconciliationOrphans.Set(float64(len(report.OrphanSessions)))
	}
	return report, nil
}

// AutoResolve completes every matched pair from a detection run,
// linking the session. Per-pair failures are collected, not fatal.
func (s *Service) AutoResolve(ctx context.Context, actor model.Actor, rng model.DateRange) (*model.BatchResult, error) {
	report, err := s.Detect(ctx, actor, rng)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result := &model.BatchResult{Total: len(report.Matched)}
	for _, pair := range report.Matched {
		sessionID := pair.Session.ID
		if err := pair.Appointment.Complete(now, &sessionID); err != nil {
			result.Errors = append(result.Errors, model.BatchItemError{
				ItemID: pair.Appointment.ID,
				Reason: err.Error(),
			})
			continue
		}
		if err := s.appts.Update(ctx, pair.Appointment); err != nil {
			result.Errors = append(result.Errors, model.BatchItemError{
				ItemID: pair.Appointment.ID,
				Reason: err.Error(),
			})
			continue
		}
		s.events.Record(ctx, model.EventReconciliationResolve, pair.Appointment)
		if s.metrics != nil {
			s.metrics.ReconciliationMatched.Inc()
		}
		result.Succeeded++
	}
	return result, nil
}

// CreateRetroactive backfills one orphan session with an appointment
// created directly in the completed state, dated at the session's date.
func (s *Service) CreateRetroactive(ctx context.Context, actor model.Actor, sessionID uuid.UUID, req RetroactiveRequest) (*model.Appointment, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ClinicID != actor.ClinicID {
		return nil, errors.NewNotFound("session")
	}

	if existing, err := s.appts.GetByLinkedSession(ctx, sessionID); err == nil && existing != nil {
		return nil, errors.NewValidation("session is already linked to an appointment")
	} else if err != nil && !errors.IsKind(err, errors.KindNotFound) {
		return nil, err
	}

	scheduledTime := model.ClockTime("08:00")
	if session.SessionTime != nil {
		scheduledTime = *session.SessionTime
	}
	if req.ScheduledTime != nil {
		scheduledTime = *req.ScheduledTime
	}
	duration := defaultRetroactiveDuration
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}

	now := s.clock.Now()
	sid := session.ID
	apt := &model.Appointment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ClinicID:        session.ClinicID,
		PatientID:       session.PatientID,
		TherapistID:     session.TherapistID,
		DisciplineID:    req.DisciplineID,
		ScheduledDate:   session.SessionDate,
		ScheduledTime:   scheduledTime,
		DurationMinutes: duration,
		Notes:           req.Notes,
		Status:          model.AppointmentStatusCompleted,
		LinkedSessionID: &sid,
		CompletedAt:     &now,
	}
	if err := apt.Validate(); err != nil {
		return nil, err
	}

	if err := s.appts.Create(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to create retroactive appointment: %w", err)
	}

	s.events.Record(ctx, model.EventReconciliationResolve, apt)
	return apt, nil
}

// CreateRetroactiveBatch backfills a set of orphans with shared
// defaults. Each session is attempted independently; the result always
// reports created and total counts so partial success is unambiguous.
func (s *Service) CreateRetroactiveBatch(ctx context.Context, actor model.Actor, sessionIDs []uuid.UUID, shared RetroactiveRequest) (*BatchRetroactiveResult, error) {
	if len(sessionIDs) == 0 {
		return nil, errors.NewValidation("at least one session is required")
	}

	result := &BatchRetroactiveResult{
		BatchResult: model.BatchResult{Total: len(sessionIDs)},
	}
	for _, sessionID := range sessionIDs {
		apt, err := s.CreateRetroactive(ctx, actor, sessionID, shared)
		if err != nil {
			result.Errors = append(result.Errors, model.BatchItemError{
				ItemID: sessionID,
				Reason: err.Error(),
			})
			continue
		}
		result.Created = append(result.Created, apt)
		result.Succeeded++
	}
	return result, nil
}

// findMatch locates the still-scheduled appointment fulfilled by the
// session under the configured policy, preferring the closest date.
func (s *Service) findMatch(appts []*model.Appointment, claimed map[uuid.UUID]bool, session *model.TherapySession) *model.Appointment {
	var best *model.Appointment
	bestDiff := s.policy.DateToleranceDays + 1

	for _, apt := range appts {
		if apt.Status != model.AppointmentStatusScheduled || claimed[apt.ID] || apt.LinkedSessionID != nil {
			continue
		}
		if apt.PatientID != session.PatientID || apt.TherapistID != session.TherapistID {
			continue
		}
		diff := daysBetween(apt.ScheduledDate, session.SessionDate)
		if diff > s.policy.DateToleranceDays {
			continue
		}
		if diff < bestDiff {
			best = apt
			bestDiff = diff
		}
	}
	return best
}

func daysBetween(a, b time.Time) int {
	d := int(dateOnly(a).Sub(dateOnly(b)).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
