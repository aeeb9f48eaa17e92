// Package memory provides map-backed implementations of the repository
// interfaces for tests. Not safe for concurrent writers.
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/pkg/errors"
)

type AppointmentRepo struct {
	Items map[uuid.UUID]*model.Appointment

	// FailOnDates makes Create fail for the given dates, to exercise
	// partial-failure paths in batch generation.
	FailOnDates map[string]error
}

func NewAppointmentRepo() *AppointmentRepo {
	return &AppointmentRepo{Items: make(map[uuid.UUID]*model.Appointment)}
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func (r *AppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	if err, ok := r.FailOnDates[dateKey(apt.ScheduledDate)]; ok {
		return err
	}
	cp := *apt
	r.Items[apt.ID] = &cp
	return nil
}

func (r *AppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := r.Items[id]
	if !ok {
		return nil, errors.NewNotFound("appointment")
	}
	cp := *apt
	return &cp, nil
}

func (r *AppointmentRepo) Update(_ context.Context, apt *model.Appointment) error {
	if _, ok := r.Items[apt.ID]; !ok {
		return errors.NewNotFound("appointment")
	}
	cp := *apt
	r.Items[apt.ID] = &cp
	return nil
}

func (r *AppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.Items[id]; !ok {
		return errors.NewNotFound("appointment")
	}
	delete(r.Items, id)
	return nil
}

func (r *AppointmentRepo) List(_ context.Context, f *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.Items {
		if f.ClinicID != uuid.Nil && apt.ClinicID != f.ClinicID {
			continue
		}
		if f.PatientID != uuid.Nil && apt.PatientID != f.PatientID {
			continue
		}
		if f.TherapistID != uuid.Nil && apt.TherapistID != f.TherapistID {
			continue
		}
		if f.TemplateID != uuid.Nil && (apt.RecurringTemplateID == nil || *apt.RecurringTemplateID != f.TemplateID) {
			continue
		}
		if f.Status != "" && apt.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && apt.ScheduledDate.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && apt.ScheduledDate.After(f.To) {
			continue
		}
		cp := *apt
		out = append(out, &cp)
	}
	sortByDate(out)
	return out, nil
}

func (r *AppointmentRepo) ListForConflictCheck(_ context.Context, clinicID uuid.UUID, date time.Time, patientID, therapistID uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.Items {
		if apt.ClinicID != clinicID {
			continue
		}
		if dateKey(apt.ScheduledDate) != dateKey(date) {
			continue
		}
		if apt.PatientID != patientID && apt.TherapistID != therapistID {
			continue
		}
		cp := *apt
		out = append(out, &cp)
	}
	return out, nil
}

func (r *AppointmentRepo) ListByTemplate(_ context.Context, templateID uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.Items {
		if apt.RecurringTemplateID != nil && *apt.RecurringTemplateID == templateID {
			cp := *apt
			out = append(out, &cp)
		}
	}
	sortByDate(out)
	return out, nil
}

func (r *AppointmentRepo) LatestGeneratedDate(_ context.Context, templateID uuid.UUID) (*time.Time, error) {
	var latest *time.Time
	for _, apt := range r.Items {
		if apt.RecurringTemplateID == nil || *apt.RecurringTemplateID != templateID {
			continue
		}
		d := apt.ScheduledDate
		if latest == nil || d.After(*latest) {
			latest = &d
		}
	}
	return latest, nil
}

func (r *AppointmentRepo) ListOverdueScheduled(_ context.Context, cutoff time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.Items {
		if apt.Status != model.AppointmentStatusScheduled {
			continue
		}
		start, err := apt.StartsAt()
		if err != nil {
			continue
		}
		if start.Before(cutoff) {
			cp := *apt
			out = append(out, &cp)
		}
	}
	sortByDate(out)
	return out, nil
}

func (r *AppointmentRepo) GetByLinkedSession(_ context.Context, sessionID uuid.UUID) (*model.Appointment, error) {
	for _, apt := range r.Items {
		if apt.LinkedSessionID != nil && *apt.LinkedSessionID == sessionID {
			cp := *apt
			return &cp, nil
		}
	}
	return nil, errors.NewNotFound("appointment")
}

func sortByDate(appts []*model.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if !appts[i].ScheduledDate.Equal(appts[j].ScheduledDate) {
			return appts[i].ScheduledDate.Before(appts[j].ScheduledDate)
		}
		return appts[i].ScheduledTime < appts[j].ScheduledTime
	})
}

type TemplateRepo struct {
	Items map[uuid.UUID]*model.AppointmentTemplate
}

func NewTemplateRepo() *TemplateRepo {
	return &TemplateRepo{Items: make(map[uuid.UUID]*model.AppointmentTemplate)}
}

func (r *TemplateRepo) Create(_ context.Context, t *model.AppointmentTemplate) error {
	cp := *t
	r.Items[t.ID] = &cp
	return nil
}

func (r *TemplateRepo) Get(_ context.Context, id uuid.UUID) (*model.AppointmentTemplate, error) {
	t, ok := r.Items[id]
	if !ok {
		return nil, errors.NewNotFound("template")
	}
	cp := *t
	return &cp, nil
}

func (r *TemplateRepo) Update(_ context.Context, t *model.AppointmentTemplate) error {
	if _, ok := r.Items[t.ID]; !ok {
		return errors.NewNotFound("template")
	}
	cp := *t
	r.Items[t.ID] = &cp
	return nil
}

func (r *TemplateRepo) List(_ context.Context, clinicID uuid.UUID) ([]*model.AppointmentTemplate, error) {
	var out []*model.AppointmentTemplate
	for _, t := range r.Items {
		if t.ClinicID == clinicID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type SessionRepo struct {
	Items map[uuid.UUID]*model.TherapySession
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{Items: make(map[uuid.UUID]*model.TherapySession)}
}

func (r *SessionRepo) Create(_ context.Context, s *model.TherapySession) error {
	cp := *s
	r.Items[s.ID] = &cp
	return nil
}

func (r *SessionRepo) Get(_ context.Context, id uuid.UUID) (*model.TherapySession, error) {
	s, ok := r.Items[id]
	if !ok {
		return nil, errors.NewNotFound("session")
	}
	cp := *s
	return &cp, nil
}

func (r *SessionRepo) List(_ context.Context, f *model.SessionFilters) ([]*model.TherapySession, error) {
	var out []*model.TherapySession
	for _, s := range r.Items {
		if f.ClinicID != uuid.Nil && s.ClinicID != f.ClinicID {
			continue
		}
		if f.PatientID != uuid.Nil && s.PatientID != f.PatientID {
			continue
		}
		if f.TherapistID != uuid.Nil && s.TherapistID != f.TherapistID {
			continue
		}
		if !f.From.IsZero() && s.SessionDate.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && s.SessionDate.After(f.To) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionDate.Before(out[j].SessionDate) })
	return out, nil
}

type TherapistRepo struct {
	Items map[uuid.UUID]*model.Therapist
}

func NewTherapistRepo() *TherapistRepo {
	return &TherapistRepo{Items: make(map[uuid.UUID]*model.Therapist)}
}

func (r *TherapistRepo) Create(_ context.Context, t *model.Therapist) error {
	cp := *t
	r.Items[t.ID] = &cp
	return nil
}

func (r *TherapistRepo) Get(_ context.Context, id uuid.UUID) (*model.Therapist, error) {
	t, ok := r.Items[id]
	if !ok {
		return nil, errors.NewNotFound("therapist")
	}
	cp := *t
	return &cp, nil
}

func (r *TherapistRepo) Update(_ context.Context, t *model.Therapist) error {
	if _, ok := r.Items[t.ID]; !ok {
		return errors.NewNotFound("therapist")
	}
	cp := *t
	r.Items[t.ID] = &cp
	return nil
}

func (r *TherapistRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.Items, id)
	return nil
}

func (r *TherapistRepo) List(_ context.Context, clinicID uuid.UUID) ([]*model.Therapist, error) {
	var out []*model.Therapist
	for _, t := range r.Items {
		if t.ClinicID == clinicID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type OutboxRepo struct {
	Events []*model.OutboxEvent
}

func NewOutboxRepo() *OutboxRepo {
	return &OutboxRepo{}
}

func (r *OutboxRepo) Create(_ context.Context, e *model.OutboxEvent) error {
	cp := *e
	r.Events = append(r.Events, &cp)
	return nil
}

func (r *OutboxRepo) GetPendingWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	var out []*model.OutboxEvent
	for _, e := range r.Events {
		if e.Status == model.OutboxStatusPending {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *OutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	for _, e := range r.Events {
		if e.ID == id {
			e.Status = model.OutboxStatusProcessed
			return nil
		}
	}
	return errors.NewNotFound("outbox event")
}

func (r *OutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, msg string) error {
	for _, e := range r.Events {
		if e.ID == id {
			e.Status = model.OutboxStatusFailed
			e.ErrorMessage = &msg
			e.RetryCount++
			return nil
		}
	}
	return errors.NewNotFound("outbox event")
}

// TypesRecorded returns the event types captured, in insertion order.
func (r *OutboxRepo) TypesRecorded() []string {
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.EventType)
	}
	return out
}
