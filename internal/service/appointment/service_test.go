package appointment

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/internal/repository/memory"
	"github.com/abaflow/practice-api/internal/service/event"
	"github.com/abaflow/practice-api/pkg/clock"
	"github.com/abaflow/practice-api/pkg/errors"
	"github.com/abaflow/practice-api/pkg/logger"
	"github.com/abaflow/practice-api/pkg/metrics"
)

type fixture struct {
	svc    *Service
	repo   *memory.AppointmentRepo
	outbox *memory.OutboxRepo
	clock  *clock.Fixed
	actor  model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := memory.NewAppointmentRepo()
	outbox := memory.NewOutboxRepo()
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	clk := clock.NewFixed(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC))

	actor := model.Actor{UserID: uuid.New(), ClinicID: uuid.New()}

	return &fixture{
		svc:    NewService(repo, memory.NewTherapistRepo(), event.NewService(outbox, log), nil, clk, log, nil),
		repo:   repo,
		outbox: outbox,
		clock:  clk,
		actor:  actor,
	}
}

func createRequest() *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		PatientID:       uuid.New(),
		TherapistID:     uuid.New(),
		ScheduledDate:   time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		ScheduledTime:   "14:00",
		DurationMinutes: 60,
	}
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Create(ctx, f.actor, createRequest())
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)
	assert.Equal(t, f.actor.ClinicID, apt.ClinicID)
	assert.Equal(t, []string{model.EventAppointmentCreated}, f.outbox.TypesRecorded())
}

func TestCreateRejectsConflictingSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := createRequest()
	_, err := f.svc.Create(ctx, f.actor, req)
	require.NoError(t, err)

	overlap := createRequest()
	overlap.PatientID = req.PatientID
	overlap.ScheduledTime = "14:30"
	_, err = f.svc.Create(ctx, f.actor, overlap)
	require.Error(t, err)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
}

func TestCreateAllowsBackToBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := createRequest()
	_, err := f.svc.Create(ctx, f.actor, req)
	require.NoError(t, err)

	next := createRequest()
	next.PatientID = req.PatientID
	next.ScheduledTime = "15:00"
	_, err = f.svc.Create(ctx, f.actor, next)
	assert.NoError(t, err)
}

func TestGetEnforcesTenancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Create(ctx, f.actor, createRequest())
	require.NoError(t, err)

	outsider := model.Actor{UserID: uuid.New(), ClinicID: uuid.New()}
	_, err = f.svc.Get(ctx, outsider, apt.ID)
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestUpdateOnlyWhileScheduled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Create(ctx, f.actor, createRequest())
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.actor, apt.ID, nil)
	require.NoError(t, err)

	notes := "rebooked"
	_, err = f.svc.Update(ctx, f.actor, apt.ID, &model.UpdateAppointmentRequest{Notes: &notes})
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))
}

func TestDeleteOnlyWhileScheduled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Create(ctx, f.actor, createRequest())
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.actor, apt.ID))

	apt2, err := f.svc.Create(ctx, f.actor, createRequest())
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.actor, apt2.ID, nil)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, f.actor, apt2.ID)
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))
}

func TestJustifyRequiresAssignedTherapistOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := createRequest()
	req.ScheduledDate = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	apt, err := f.svc.Create(ctx, f.actor, req)
	require.NoError(t, err)

	count, err := f.svc.MarkMissed(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	in := model.JustifyInput{
		ReasonType:        model.ReasonPatientIllness,
		ReasonDescription: "patient had the flu that week",
		MissedBy:          model.MissedByPatient,
	}

	// A random clinic user may not justify.
	_, err = f.svc.Justify(ctx, f.actor, apt.ID, in)
	require.Error(t, err)
	assert.Equal(t, errors.KindForbidden, errors.KindOf(err))

	// The assigned therapist may.
	therapistActor := model.Actor{UserID: req.TherapistID, ClinicID: f.actor.ClinicID}
	justified, err := f.svc.Justify(ctx, therapistActor, apt.ID, in)
	require.NoError(t, err)
	assert.True(t, justified.SelfJustified())

	// Second justification is rejected even for an admin.
	admin := model.Actor{UserID: uuid.New(), ClinicID: f.actor.ClinicID, IsAdmin: true}
	_, err = f.svc.Justify(ctx, admin, apt.ID, in)
	assert.Equal(t, errors.KindAlreadyJustified, errors.KindOf(err))
}

func TestMarkMissedGraceBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.MarkMissed(ctx, 0.25)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	_, err = f.svc.MarkMissed(ctx, 25)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestMarkMissedSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Yesterday 14:00, well past any grace window.
	req := createRequest()
	req.ScheduledDate = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.Create(ctx, f.actor, req)
	require.NoError(t, err)

	// Today 14:00: still inside the grace window at 12:00 + 2h.
	_, err = f.svc.Create(ctx, f.actor, createRequest())
	require.NoError(t, err)

	count, err := f.svc.MarkMissed(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = f.svc.MarkMissed(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMarkMissedRecordsSweepMetrics(t *testing.T) {
	ctx := context.Background()

	repo := memory.NewAppointmentRepo()
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	clk := clock.NewFixed(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC))
	m := metrics.NewWithRegistry("appointment_test", prometheus.NewRegistry())
	svc := NewService(repo, memory.NewTherapistRepo(), event.NewService(memory.NewOutboxRepo(), log), nil, clk, log, m)

	actor := model.Actor{UserID: uuid.New(), ClinicID: uuid.New()}
	req := createRequest()
	req.ScheduledDate = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(ctx, actor, req)
	require.NoError(t, err)

	count, err := svc.MarkMissed(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SweepTransitioned))

	// A no-op sweep leaves the counter where it was.
	_, err = svc.MarkMissed(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SweepTransitioned))
}

func TestMarkMissedRespectsGraceWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Today 10:00; at 12:00 it is 2h overdue.
	req := createRequest()
	req.ScheduledDate = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	req.ScheduledTime = "10:00"
	_, err := f.svc.Create(ctx, f.actor, req)
	require.NoError(t, err)

	count, err := f.svc.MarkMissed(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	f.clock.Advance(2 * time.Hour)
	count, err = f.svc.MarkMissed(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
