package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/abaflow/practice-api/internal/model"
)

func booked(patientID, therapistID uuid.UUID, day time.Time, at model.ClockTime, minutes int) *model.Appointment {
	return &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		PatientID:       patientID,
		TherapistID:     therapistID,
		ScheduledDate:   day,
		ScheduledTime:   at,
		DurationMinutes: minutes,
		Status:          model.AppointmentStatusScheduled,
	}
}

func TestConflictsSharedPatient(t *testing.T) {
	patient := uuid.New()
	day := date(2024, 1, 2)
	existing := []*model.Appointment{
		booked(patient, uuid.New(), day, "10:00", 60),
	}

	cand := Candidate{
		PatientID:       patient,
		TherapistID:     uuid.New(),
		Date:            day,
		Time:            "10:30",
		DurationMinutes: 60,
	}
	assert.True(t, HasConflict(existing, cand, nil))
}

func TestConflictsSharedTherapist(t *testing.T) {
	therapist := uuid.New()
	day := date(2024, 1, 2)
	existing := []*model.Appointment{
		booked(uuid.New(), therapist, day, "10:00", 60),
	}

	cand := Candidate{
		PatientID:       uuid.New(),
		TherapistID:     therapist,
		Date:            day,
		Time:            "10:30",
		DurationMinutes: 60,
	}
	assert.True(t, HasConflict(existing, cand, nil))
}

func TestNoConflictDisjointParties(t *testing.T) {
	day := date(2024, 1, 2)
	existing := []*model.Appointment{
		booked(uuid.New(), uuid.New(), day, "10:00", 60),
	}

	cand := Candidate{
		PatientID:       uuid.New(),
		TherapistID:     uuid.New(),
		Date:            day,
		Time:            "10:00",
		DurationMinutes: 60,
	}
	assert.False(t, HasConflict(existing, cand, nil))
}

func TestBackToBackIsNotAConflict(t *testing.T) {
	// [10:00, 11:00) then [11:00, 12:00): boundary touch, no overlap.
	patient := uuid.New()
	day := date(2024, 1, 2)
	existing := []*model.Appointment{
		booked(patient, uuid.New(), day, "10:00", 60),
	}

	cand := Candidate{
		PatientID:       patient,
		TherapistID:     uuid.New(),
		Date:            day,
		Time:            "11:00",
		DurationMinutes: 60,
	}
	assert.False(t, HasConflict(existing, cand, nil))
}

func TestCancelledAppointmentsDoNotBlock(t *testing.T) {
	patient := uuid.New()
	day := date(2024, 1, 2)
	apt := booked(patient, uuid.New(), day, "10:00", 60)
	apt.Status = model.AppointmentStatusCancelled

	cand := Candidate{
		PatientID:       patient,
		TherapistID:     uuid.New(),
		Date:            day,
		Time:            "10:00",
		DurationMinutes: 60,
	}
	assert.False(t, HasConflict([]*model.Appointment{apt}, cand, nil))
}

func TestCompletedAppointmentsStillBlock(t *testing.T) {
	patient := uuid.New()
	day := date(2024, 1, 2)
	apt := booked(patient, uuid.New(), day, "10:00", 60)
	apt.Status = model.AppointmentStatusCompleted

	cand := Candidate{
		PatientID:       patient,
		TherapistID:     uuid.New(),
		Date:            day,
		Time:            "10:30",
		DurationMinutes: 60,
	}
	assert.True(t, HasConflict([]*model.Appointment{apt}, cand, nil))
}

func TestExcludeIDSkipsSelf(t *testing.T) {
	patient := uuid.New()
	day := date(2024, 1, 2)
	apt := booked(patient, uuid.New(), day, "10:00", 60)

	cand := Candidate{
		PatientID:       patient,
		TherapistID:     uuid.New(),
		Date:            day,
		Time:            "10:00",
		DurationMinutes: 60,
	}
	assert.True(t, HasConflict([]*model.Appointment{apt}, cand, nil))
	assert.False(t, HasConflict([]*model.Appointment{apt}, cand, &apt.ID))
}

func TestConflictOverlapIsSymmetric(t *testing.T) {
	patient := uuid.New()
	day := date(2024, 1, 2)

	a := booked(patient, uuid.New(), day, "09:00", 90)
	b := booked(patient, uuid.New(), day, "10:00", 30)

	candA := Candidate{PatientID: patient, TherapistID: a.TherapistID, Date: day, Time: a.ScheduledTime, DurationMinutes: a.DurationMinutes}
	candB := Candidate{PatientID: patient, TherapistID: b.TherapistID, Date: day, Time: b.ScheduledTime, DurationMinutes: b.DurationMinutes}

	assert.True(t, HasConflict([]*model.Appointment{b}, candA, nil))
	assert.True(t, HasConflict([]*model.Appointment{a}, candB, nil))
}

func TestConflictsReturnsAllOverlapping(t *testing.T) {
	patient := uuid.New()
	day := date(2024, 1, 2)
	existing := []*model.Appointment{
		booked(patient, uuid.New(), day, "09:00", 120),
		booked(patient, uuid.New(), day, "10:30", 60),
		booked(patient, uuid.New(), day, "15:00", 60),
	}

	cand := Candidate{
		PatientID:       patient,
		TherapistID:     uuid.New(),
		Date:            day,
		Time:            "10:00",
		DurationMinutes: 60,
	}
	assert.Len(t, Conflicts(existing, cand, nil), 2)
}
