package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abaflow/practice-api/pkg/errors"
)

func scheduled() *Appointment {
	return &Appointment{
		Base:            Base{ID: uuid.New()},
		ClinicID:        uuid.New(),
		PatientID:       uuid.New(),
		TherapistID:     uuid.New(),
		ScheduledDate:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		ScheduledTime:   "14:00",
		DurationMinutes: 60,
		Status:          AppointmentStatusScheduled,
	}
}

func TestCompleteFromScheduled(t *testing.T) {
	apt := scheduled()
	now := time.Now().UTC()
	sessionID := uuid.New()

	require.NoError(t, apt.Complete(now, &sessionID))
	assert.Equal(t, AppointmentStatusCompleted, apt.Status)
	assert.Equal(t, &now, apt.CompletedAt)
	assert.Equal(t, &sessionID, apt.LinkedSessionID)
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	now := time.Now().UTC()

	for _, status := range []AppointmentStatus{
		AppointmentStatusCompleted,
		AppointmentStatusMissed,
		AppointmentStatusCancelled,
	} {
		apt := scheduled()
		apt.Status = status

		assert.Error(t, apt.Complete(now, nil), string(status))
		assert.Error(t, apt.MarkMissed(now), string(status))
		if status != AppointmentStatusMissed {
			err := apt.Justify(now, uuid.New(), JustifyInput{
				ReasonType:        ReasonPatientIllness,
				ReasonDescription: "patient was home sick",
				MissedBy:          MissedByPatient,
			})
			assert.Error(t, err, string(status))
		}
	}
}

func TestCancelRequiresMeaningfulDescription(t *testing.T) {
	apt := scheduled()
	now := time.Now().UTC()

	err := apt.Cancel(now, uuid.New(), ReasonOther, "too short")
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
	assert.Equal(t, AppointmentStatusScheduled, apt.Status)

	require.NoError(t, apt.Cancel(now, uuid.New(), ReasonOther, "family emergency travel"))
	assert.Equal(t, AppointmentStatusCancelled, apt.Status)
}

func TestCancelTwiceIsRejected(t *testing.T) {
	apt := scheduled()
	now := time.Now().UTC()

	require.NoError(t, apt.Cancel(now, uuid.New(), ReasonTravel, "family emergency travel"))
	err := apt.Cancel(now, uuid.New(), ReasonTravel, "family emergency travel")
	assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))
}

func TestJustifyOnce(t *testing.T) {
	apt := scheduled()
	now := time.Now().UTC()
	therapist := apt.TherapistID

	require.NoError(t, apt.MarkMissed(now))

	in := JustifyInput{
		ReasonType:        ReasonPatientIllness,
		ReasonDescription: "patient had a fever that morning",
		MissedBy:          MissedByPatient,
	}
	require.NoError(t, apt.Justify(now, therapist, in))
	assert.Equal(t, AppointmentStatusMissed, apt.Status)
	assert.True(t, apt.SelfJustified())

	err := apt.Justify(now, uuid.New(), in)
	require.Error(t, err)
	assert.Equal(t, errors.KindAlreadyJustified, errors.KindOf(err))
	// First audit record is untouched.
	assert.Equal(t, therapist, *apt.JustifiedBy)
}

func TestJustifyValidatesInput(t *testing.T) {
	now := time.Now().UTC()

	apt := scheduled()
	require.NoError(t, apt.MarkMissed(now))
	err := apt.Justify(now, uuid.New(), JustifyInput{
		ReasonType:        ReasonOther,
		ReasonDescription: "short",
		MissedBy:          MissedByPatient,
	})
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	apt = scheduled()
	require.NoError(t, apt.MarkMissed(now))
	err = apt.Justify(now, uuid.New(), JustifyInput{
		ReasonType:        ReasonOther,
		ReasonDescription: "a perfectly valid description",
		MissedBy:          "someone",
	})
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestDeletable(t *testing.T) {
	apt := scheduled()
	assert.True(t, apt.Deletable())

	require.NoError(t, apt.Complete(time.Now().UTC(), nil))
	assert.False(t, apt.Deletable())
}

func TestAppointmentInterval(t *testing.T) {
	apt := scheduled()

	start, err := apt.StartsAt()
	require.NoError(t, err)
	end, err := apt.EndsAt()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Hour, end.Sub(start))
}
