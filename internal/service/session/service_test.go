package session

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
	appointmentService "github.com/abaflow/practice-api/internal/service/appointment"
	"github.com/abaflow/practice-api/internal/service/event"
	"github.com/abaflow/practice-api/pkg/clock"
	apperrors "github.com/abaflow/practice-api/pkg/errors"
	"github.com/abaflow/practice-api/pkg/logger"
)

type fixture struct {
	svc   *Service
	appts *memory.AppointmentRepo
	actor model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sessions := memory.NewSessionRepo()
	appts := memory.NewAppointmentRepo()
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	clk := clock.NewFixed(time.Date(2024, 3, 12, 18, 0, 0, 0, time.UTC))
	events := event.NewService(memory.NewOutboxRepo(), log)

	lifecycle := appointmentService.NewService(appts, memory.NewTherapistRepo(), events, nil, clk, log, nil)

	return &fixture{
		svc:   NewService(sessions, appts, lifecycle, clk, log),
		appts: appts,
		actor: model.Actor{UserID: uuid.New(), ClinicID: uuid.New()},
	}
}

func TestCreateClaimsScheduledAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	apt := &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		ClinicID:        f.actor.ClinicID,
		PatientID:       uuid.New(),
		TherapistID:     uuid.New(),
		ScheduledDate:   day,
		ScheduledTime:   "14:00",
		DurationMinutes: 60,
		Status:          model.AppointmentStatusScheduled,
	}
	require.NoError(t, f.appts.Create(ctx, apt))

	session, err := f.svc.Create(ctx, f.actor, &model.CreateSessionRequest{
		PatientID:   apt.PatientID,
		TherapistID: apt.TherapistID,
		SessionDate: day,
	})
	require.NoError(t, err)

	claimed, err := f.appts.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, claimed.Status)
	require.NotNil(t, claimed.LinkedSessionID)
	assert.Equal(t, session.ID, *claimed.LinkedSessionID)
}

func TestCreateDoesNotClaimOtherTherapistsAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	patientID := uuid.New()
	apt := &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		ClinicID:        f.actor.ClinicID,
		PatientID:       patientID,
		TherapistID:     uuid.New(),
		ScheduledDate:   day,
		ScheduledTime:   "14:00",
		DurationMinutes: 60,
		Status:          model.AppointmentStatusScheduled,
	}
	require.NoError(t, f.appts.Create(ctx, apt))

	// Same patient, same day, different therapist.
	_, err := f.svc.Create(ctx, f.actor, &model.CreateSessionRequest{
		PatientID:   patientID,
		TherapistID: uuid.New(),
		SessionDate: day,
	})
	require.NoError(t, err)

	untouched, err := f.appts.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, untouched.Status)
	assert.Nil(t, untouched.LinkedSessionID)
}

func TestCreateWithoutAppointmentStaysOrphan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.actor, &model.CreateSessionRequest{
		PatientID:   uuid.New(),
		TherapistID: uuid.New(),
		SessionDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, f.appts.Items)
}

func TestGetEnforcesTenancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.svc.Create(ctx, f.actor, &model.CreateSessionRequest{
		PatientID:   uuid.New(),
		TherapistID: uuid.New(),
		SessionDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	outsider := model.Actor{UserID: uuid.New(), ClinicID: uuid.New()}
	_, err = f.svc.Get(ctx, outsider, session.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
