package reconciliation

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/internal/repository/memory"
	"github.com/abaflow/practice-api/internal/service/event"
	"github.com/abaflow/practice-api/pkg/clock"
	apperrors "github.com/abaflow/practice-api/pkg/errors"
	"github.com/abaflow/practice-api/pkg/logger"
)

type fixture struct {
	svc      *Service
	sessions *memory.SessionRepo
	appts    *memory.AppointmentRepo
	clock    *clock.Fixed
	actor    model.Actor

	patient   uuid.UUID
	therapist uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPolicy(t, DefaultMatchPolicy())
}

func newFixtureWithPolicy(t *testing.T, policy MatchPolicy) *fixture {
	t.Helper()

	sessions := memory.NewSessionRepo()
	appts := memory.NewAppointmentRepo()
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	clk := clock.NewFixed(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

	return &fixture{
		svc:       NewService(sessions, appts, event.NewService(memory.NewOutboxRepo(), log), clk, log, nil, policy),
		sessions:  sessions,
		appts:     appts,
		clock:     clk,
		actor:     model.Actor{UserID: uuid.New(), ClinicID: uuid.New()},
		patient:   uuid.New(),
		therapist: uuid.New(),
	}
}

func (f *fixture) addSession(t *testing.T, day time.Time) *model.TherapySession {
	t.Helper()
	s := &model.TherapySession{
		Base:        model.Base{ID: uuid.New()},
		ClinicID:    f.actor.ClinicID,
		PatientID:   f.patient,
		TherapistID: f.therapist,
		SessionDate: day,
	}
	require.NoError(t, f.sessions.Create(context.Background(), s))
	return s
}

func (f *fixture) addScheduled(t *testing.T, day time.Time) *model.Appointment {
	t.Helper()
	apt := &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		ClinicID:        f.actor.ClinicID,
		PatientID:       f.patient,
		TherapistID:     f.therapist,
		ScheduledDate:   day,
		ScheduledTime:   "14:00",
		DurationMinutes: 60,
		Status:          model.AppointmentStatusScheduled,
	}
	require.NoError(t, f.appts.Create(context.Background(), apt))
	return apt
}

func week() model.DateRange {
	return model.DateRange{
		From: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC),
	}
}

func TestDetectClassifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

	// A matched pair.
	f.addSession(t, day)
	matched := f.addScheduled(t, day)

	// An orphan session on a day with no appointment.
	orphan := f.addSession(t, day.AddDate(0, 0, 1))

	// A stale scheduled appointment: in the past, no session, different patient.
	stale := &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		ClinicID:        f.actor.ClinicID,
		PatientID:       uuid.New(),
		TherapistID:     f.therapist,
		ScheduledDate:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		ScheduledTime:   "09:00",
		DurationMinutes: 60,
		Status:          model.AppointmentStatusScheduled,
	}
	require.NoError(t, f.appts.Create(ctx, stale))

	report, err := f.svc.Detect(ctx, f.actor, week())
	require.NoError(t, err)

	require.Len(t, report.Matched, 1)
	assert.Equal(t, matched.ID, report.Matched[0].Appointment.ID)

	require.Len(t, report.OrphanSessions, 1)
	assert.Equal(t, orphan.ID, report.OrphanSessions[0].ID)

	require.Len(t, report.StaleScheduled, 1)
	assert.Equal(t, stale.ID, report.StaleScheduled[0].ID)
}

func TestDetectIgnoresAlreadyLinkedSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	session := f.addSession(t, day)

	apt := f.addScheduled(t, day)
	got, err := f.appts.Get(ctx, apt.ID)
	require.NoError(t, err)
	require.NoError(t, got.Complete(f.clock.Now(), &session.ID))
	require.NoError(t, f.appts.Update(ctx, got))

	report, err := f.svc.Detect(ctx, f.actor, week())
	require.NoError(t, err)
	assert.Empty(t, report.Matched)
	assert.Empty(t, report.OrphanSessions)
	assert.Empty(t, report.StaleScheduled)
}

func TestDetectRejectsInvertedRange(t *testing.T) {
	f := newFixture(t)

	rng := week()
	rng.From, rng.To = rng.To, rng.From
	_, err := f.svc.Detect(context.Background(), f.actor, rng)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestDateToleranceMatchesAdjacentDay(t *testing.T) {
	f := newFixtureWithPolicy(t, MatchPolicy{DateToleranceDays: 1})
	ctx := context.Background()

	f.addSession(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))
	f.addScheduled(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))

	report, err := f.svc.Detect(ctx, f.actor, week())
	require.NoError(t, err)
	assert.Len(t, report.Matched, 1)
	assert.Empty(t, report.OrphanSessions)
}

func TestStaleScanStaysInsideRequestedRange(t *testing.T) {
	f := newFixtureWithPolicy(t, MatchPolicy{DateToleranceDays: 1})
	ctx := context.Background()

	// One day before the requested range. The tolerance-widened
	// appointment lookup sees it; the stale report must not.
	outside := f.addScheduled(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	inside := f.addScheduled(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))

	report, err := f.svc.Detect(ctx, f.actor, week())
	require.NoError(t, err)

	require.Len(t, report.StaleScheduled, 1)
	assert.Equal(t, inside.ID, report.StaleScheduled[0].ID)
	assert.NotEqual(t, outside.ID, report.StaleScheduled[0].ID)
}

func TestZeroToleranceRejectsAdjacentDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addSession(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))
	f.addScheduled(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))

	report, err := f.svc.Detect(ctx, f.actor, week())
	require.NoError(t, err)
	assert.Empty(t, report.Matched)
	assert.Len(t, report.OrphanSessions, 1)
}

func TestAutoResolveCompletesAndLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	session := f.addSession(t, day)
	apt := f.addScheduled(t, day)

	result, err := f.svc.AutoResolve(ctx, f.actor, week())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Total)
	assert.Empty(t, result.Errors)

	resolved, err := f.appts.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, resolved.Status)
	require.NotNil(t, resolved.LinkedSessionID)
	assert.Equal(t, session.ID, *resolved.LinkedSessionID)

	// A second run finds nothing left to resolve.
	again, err := f.svc.AutoResolve(ctx, f.actor, week())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Total)
}

func TestCreateRetroactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	at := model.ClockTime("10:30")
	session := f.addSession(t, day)
	session.SessionTime = &at
	require.NoError(t, f.sessions.Create(ctx, session))

	apt, err := f.svc.CreateRetroactive(ctx, f.actor, session.ID, RetroactiveRequest{})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusCompleted, apt.Status)
	assert.Equal(t, day, apt.ScheduledDate)
	assert.Equal(t, at, apt.ScheduledTime)
	assert.Equal(t, 60, apt.DurationMinutes)
	require.NotNil(t, apt.LinkedSessionID)
	assert.Equal(t, session.ID, *apt.LinkedSessionID)
	assert.NotNil(t, apt.CompletedAt)
}

func TestCreateRetroactiveRejectsLinkedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session := f.addSession(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.CreateRetroactive(ctx, f.actor, session.ID, RetroactiveRequest{})
	require.NoError(t, err)

	_, err = f.svc.CreateRetroactive(ctx, f.actor, session.ID, RetroactiveRequest{})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestCreateRetroactiveTenancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session := f.addSession(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))

	outsider := model.Actor{UserID: uuid.New(), ClinicID: uuid.New()}
	_, err := f.svc.CreateRetroactive(ctx, outsider, session.ID, RetroactiveRequest{})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestCreateRetroactiveBatchPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		s := f.addSession(t, time.Date(2024, 3, 11+i, 0, 0, 0, 0, time.UTC))
		ids = append(ids, s.ID)
	}
	// A fifth ID that does not exist.
	ids = append(ids, uuid.New())

	result, err := f.svc.CreateRetroactiveBatch(ctx, f.actor, ids, RetroactiveRequest{})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 4, result.Succeeded)
	assert.Len(t, result.Created, 4)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ids[4], result.Errors[0].ItemID)
}

func TestCreateRetroactiveBatchEmpty(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRetroactiveBatch(context.Background(), f.actor, nil, RetroactiveRequest{})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}
