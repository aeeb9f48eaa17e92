package series

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/internal/repository"
	"github.com/abaflow/practice-api/internal/scheduling"
	"github.com/abaflow/practice-api/internal/service/event"
	"github.com/abaflow/practice-api/pkg/clock"
	"github.com/abaflow/practice-api/pkg/errors"
	"github.com/abaflow/practice-api/pkg/logger"
	"github.com/abaflow/practice-api/pkg/metrics"
)

// SkippedConflict reports one candidate slot that was not booked.
// Conflicts are collected and returned, never silently dropped.
type SkippedConflict struct {
	Date   time.Time       `json:"date"`
	Time   model.ClockTime `json:"time"`
	Reason string          `json:"reason"`
}

// GenerationResult is the outcome of any operation that expands a
// template into instances.
type GenerationResult struct {
	Generated []*model.Appointment `json:"generated"`
	Conflicts []SkippedConflict    `json:"conflicts,omitempty"`
}

// CreateResult pairs a new template with its initial generation.
type CreateResult struct {
	Template *model.AppointmentTemplate `json:"template"`
	GenerationResult
}

// Service manages recurring series: template lifecycle plus batch
// generation of instances with per-instance conflict skip.
type Service struct {
	templates repository.TemplateRepository
	appts     repository.AppointmentRepository
	events    *event.Service
	clock     clock.Clock
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	templates repository.TemplateRepository,
	appts repository.AppointmentRepository,
	events *event.Service,
	clk clock.Clock,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		templates: templates,
		appts:     appts,
		events:    events,
		clock:     clk,
		logger:    logger,
		metrics:   m,
	}
}

// Create validates and persists a template, then generates the first
// window of instances.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateTemplateRequest) (*CreateResult, error) {
	now := s.clock.Now()
	tpl := &model.AppointmentTemplate{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ClinicID:        actor.ClinicID,
		PatientID:       req.PatientID,
		TherapistID:     req.TherapistID,
		DisciplineID:    req.DisciplineID,
		RecurrenceType:  req.RecurrenceType,
		DayOfWeek:       req.DayOfWeek,
		ScheduledTime:   req.ScheduledTime,
		DurationMinutes: req.DurationMinutes,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	gen, err := s.generate(ctx, tpl, tpl.StartDate, req.GenerateWeeksAhead)
	if err != nil {
		return nil, err
	}

	s.events.Record(ctx, model.EventSeriesCreated, tpl)
	return &CreateResult{Template: tpl, GenerationResult: *gen}, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.AppointmentTemplate, error) {
	tpl, err := s.templates.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl.ClinicID != actor.ClinicID {
		return nil, errors.NewNotFound("template")
	}
	return tpl, nil
}

func (s *Service) List(ctx context.Context, actor model.Actor) ([]*model.AppointmentTemplate, error) {
	return s.templates.List(ctx, actor.ClinicID)
}

// GenerateMore extends the series past its latest generated date so
// re-generation never duplicates an existing slot.
func (s *Service) GenerateMore(ctx context.Context, actor model.Actor, id uuid.UUID, weeksAhead int) (*GenerationResult, error) {
	tpl, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !tpl.CanGenerate(now) {
		return nil, errors.NewInvalidState(fmt.Sprintf("cannot generate instances for a %s template", tpl.Status(now)))
	}

	windowStart, err := s.nextWindowStart(ctx, tpl, now)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, tpl, windowStart, weeksAhead)
}

// Pause stops future generation. Already-booked future instances stay
// scheduled; pausing is a generation valve, not retroactive cancellation.
func (s *Service) Pause(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.PauseTemplateRequest) (*model.AppointmentTemplate, error) {
	tpl, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	switch tpl.Status(now) {
	case model.TemplateStatusInactive:
		return nil, errors.NewInvalidState("cannot pause a deactivated template")
	case model.TemplateStatusPaused:
		return nil, errors.NewInvalidState("template is already paused")
	}

	tpl.PausedAt = &now
	tpl.PauseReason = &req.Reason
	tpl.PausedUntil = req.PausedUntil
	tpl.UpdatedAt = now
	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, err
	}

	s.events.Record(ctx, model.EventSeriesPaused, tpl)
	return tpl, nil
}

// ResumeResult reports the bounded catch-up generation performed when a
// paused series is reactivated.
type ResumeResult struct {
	Template *model.AppointmentTemplate `json:"template"`
	GenerationResult
}

// Resume reactivates a paused template and backfills instances for the
// period that was paused, within the default horizon.
func (s *Service) Resume(ctx context.Context, actor model.Actor, id uuid.UUID) (*ResumeResult, error) {
	tpl, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if tpl.Status(now) != model.TemplateStatusPaused {
		return nil, errors.NewInvalidState("only paused templates can be resumed")
	}

	tpl.PausedAt = nil
	tpl.PauseReason = nil
	tpl.PausedUntil = nil
	tpl.UpdatedAt = now
	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, err
	}

	windowStart, err := s.nextWindowStart(ctx, tpl, now)
	if err != nil {
		return nil, err
	}
	gen, err := s.generate(ctx, tpl, windowStart, scheduling.DefaultHorizonWeeks)
	if err != nil {
		return nil, err
	}

	s.events.Record(ctx, model.EventSeriesResumed, tpl)
	return &ResumeResult{Template: tpl, GenerationResult: *gen}, nil
}

// Deactivate permanently retires a template. Existing instances are
// untouched; the template row is kept so instance history stays linked.
func (s *Service) Deactivate(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.AppointmentTemplate, error) {
	tpl, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, errors.NewValidation("deactivation requires a reason")
	}
	now := s.clock.Now()
	if tpl.Status(now) == model.TemplateStatusInactive {
		return nil, errors.NewInvalidState("template is already deactivated")
	}

	tpl.DeactivatedAt = &now
	tpl.DeactivationReason = &reason
	tpl.PausedAt = nil
	tpl.PauseReason = nil
	tpl.PausedUntil = nil
	tpl.UpdatedAt = now
	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, err
	}

	s.events.Record(ctx, model.EventSeriesDeactivated, tpl)
	return tpl, nil
}

// EditResult reports series-wide propagation of new parameters.
type EditResult struct {
	Template *model.AppointmentTemplate `json:"template"`
	Updated  int                        `json:"updated"`
	Errors   []model.BatchItemError     `json:"errors,omitempty"`
}

// Edit mutates the template and propagates the new parameters to future
// still-scheduled instances only. Completed, missed and cancelled rows
// are never retroactively altered. Each instance is attempted on its
// own; one failure never aborts the rest.
func (s *Service) Edit(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.EditSeriesRequest) (*EditResult, error) {
	tpl, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if tpl.Status(now) == model.TemplateStatusInactive {
		return nil, errors.NewInvalidState("cannot edit a deactivated template's series")
	}

	oldDayOfWeek := tpl.DayOfWeek
	if req.DayOfWeek != nil {
		tpl.DayOfWeek = *req.DayOfWeek
	}
	if req.ScheduledTime != nil {
		tpl.ScheduledTime = *req.ScheduledTime
	}
	if req.DurationMinutes != nil {
		tpl.DurationMinutes = *req.DurationMinutes
	}
	if req.RecurrenceType != nil {
		tpl.RecurrenceType = *req.RecurrenceType
	}
	if req.EndDate != nil {
		tpl.EndDate = req.EndDate
	}
	if req.DisciplineID != nil {
		tpl.DisciplineID = req.DisciplineID
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	tpl.UpdatedAt = now
	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, err
	}

	instances, err := s.appts.ListByTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	dayShift := 0
	if req.DayOfWeek != nil {
		dayShift = (tpl.DayOfWeek - oldDayOfWeek + 7) % 7
	}

	result := &EditResult{Template: tpl}
	today := dateOnly(now)
	for _, apt := range instances {
		if apt.Status != model.AppointmentStatusScheduled || apt.ScheduledDate.Before(today) {
			continue
		}
		apt.ScheduledTime = tpl.ScheduledTime
		apt.DurationMinutes = tpl.DurationMinutes
		if req.DisciplineID != nil {
			apt.DisciplineID = tpl.DisciplineID
		}
		if dayShift != 0 {
			apt.ScheduledDate = apt.ScheduledDate.AddDate(0, 0, dayShift)
		}
		apt.UpdatedAt = now

		if err := s.propagate(ctx, apt); err != nil {
			d := apt.ScheduledDate
			result.Errors = append(result.Errors, model.BatchItemError{
				ItemID: apt.ID,
				Date:   &d,
				Reason: err.Error(),
			})
			continue
		}
		result.Updated++
	}
	return result, nil
}

// Delete removes every future scheduled instance and deactivates the
// template. Instances with an outcome are reported as errors, not
// deleted; partial failures never abort the batch.
func (s *Service) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.BatchResult, error) {
	tpl, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	instances, err := s.appts.ListByTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	today := dateOnly(now)
	result := &model.BatchResult{}
	for _, apt := range instances {
		if apt.ScheduledDate.Before(today) {
			continue
		}
		result.Total++
		if !apt.Deletable() {
			d := apt.ScheduledDate
			result.Errors = append(result.Errors, model.BatchItemError{
				ItemID: apt.ID,
				Date:   &d,
				Reason: fmt.Sprintf("cannot delete a %s appointment", apt.Status),
			})
			continue
		}
		if err := s.appts.Delete(ctx, apt.ID); err != nil {
			d := apt.ScheduledDate
			result.Errors = append(result.Errors, model.BatchItemError{
				ItemID: apt.ID,
				Date:   &d,
				Reason: err.Error(),
			})
			continue
		}
		result.Succeeded++
	}

	if tpl.Status(now) != model.TemplateStatusInactive {
		reason := "series deleted"
		tpl.DeactivatedAt = &now
		tpl.DeactivationReason = &reason
		tpl.UpdatedAt = now
		if err := s.templates.Update(ctx, tpl); err != nil {
			return result, err
		}
		s.events.Record(ctx, model.EventSeriesDeactivated, tpl)
	}
	return result, nil
}

// generate expands the template from windowStart and books every
// non-conflicting slot, in chronological order. Conflicting or failing
// slots are reported back, never silently dropped.
func (s *Service) generate(ctx context.Context, tpl *model.AppointmentTemplate, windowStart time.Time, weeksAhead int) (*GenerationResult, error) {
	occurrences, err := scheduling.Expand(tpl, windowStart, weeksAhead)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result := &GenerationResult{}
	for _, occ := range occurrences {
		existing, err := s.appts.ListForConflictCheck(ctx, tpl.ClinicID, occ.Date, tpl.PatientID, tpl.TherapistID)
		if err != nil {
			return result, fmt.Errorf("failed to check conflicts: %w", err)
		}
		cand := scheduling.Candidate{
			PatientID:       tpl.PatientID,
			TherapistID:     tpl.TherapistID,
			Date:            occ.Date,
			Time:            occ.Time,
			DurationMinutes: tpl.DurationMinutes,
		}
		if scheduling.HasConflict(existing, cand, nil) {
			result.Conflicts = append(result.Conflicts, SkippedConflict{
				Date:   occ.Date,
				Time:   occ.Time,
				Reason: "slot overlaps an existing appointment",
			})
			if s.metrics != nil {
				s.metrics.SeriesConflictsSkipped.Inc()
			}
			continue
		}

		tplID := tpl.ID
		apt := &model.Appointment{
			Base: model.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			ClinicID:            tpl.ClinicID,
			PatientID:           tpl.PatientID,
			TherapistID:         tpl.TherapistID,
			DisciplineID:        tpl.DisciplineID,
			ScheduledDate:       occ.Date,
			ScheduledTime:       occ.Time,
			DurationMinutes:     tpl.DurationMinutes,
			Status:              model.AppointmentStatusScheduled,
			RecurringTemplateID: &tplID,
		}
		if err := s.appts.Create(ctx, apt); err != nil {
			s.logger.Error(err, "failed to persist generated instance",
				"template_id", tpl.ID.String(), "date", occ.Date.Format("2006-01-02"))
			result.Conflicts = append(result.Conflicts, SkippedConflict{
				Date:   occ.Date,
				Time:   occ.Time,
				Reason: "storage failure: " + err.Error(),
			})
			continue
		}
		result.Generated = append(result.Generated, apt)
		if s.metrics != nil {
			s.metrics.SeriesGenerated.Inc()
		}
	}
	return result, nil
}

// propagate reschedules one instance during a series edit, re-checking
// conflicts against the rest of the calendar.
func (s *Service) propagate(ctx context.Context, apt *model.Appointment) error {
	existing, err := s.appts.ListForConflictCheck(ctx, apt.ClinicID, apt.ScheduledDate, apt.PatientID, apt.TherapistID)
	if err != nil {
		return err
	}
	cand := scheduling.Candidate{
		PatientID:       apt.PatientID,
		TherapistID:     apt.TherapistID,
		Date:            apt.ScheduledDate,
		Time:            apt.ScheduledTime,
		DurationMinutes: apt.DurationMinutes,
	}
	if scheduling.HasConflict(existing, cand, &apt.ID) {
		return errors.NewConflict("new slot overlaps an existing appointment")
	}
	return s.appts.Update(ctx, apt)
}

// nextWindowStart picks where extension generation begins: the day after
// the latest generated instance, or now for a series with none.
func (s *Service) nextWindowStart(ctx context.Context, tpl *model.AppointmentTemplate, now time.Time) (time.Time, error) {
	latest, err := s.appts.LatestGeneratedDate(ctx, tpl.ID)
	if err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		start := dateOnly(now)
		if tpl.StartDate.After(start) {
			start = dateOnly(tpl.StartDate)
		}
		return start, nil
	}
	next := scheduling.NextAfter(*latest)
	if today := dateOnly(now); today.After(next) {
		next = today
	}
	return next, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
