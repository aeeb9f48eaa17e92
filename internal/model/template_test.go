package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func validTemplate() *AppointmentTemplate {
	return &AppointmentTemplate{
		Base:            Base{ID: uuid.New()},
		ClinicID:        uuid.New(),
		PatientID:       uuid.New(),
		TherapistID:     uuid.New(),
		RecurrenceType:  RecurrenceWeekly,
		DayOfWeek:       2,
		ScheduledTime:   "14:00",
		DurationMinutes: 60,
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecurrenceStepDays(t *testing.T) {
	assert.Equal(t, 7, RecurrenceWeekly.StepDays())
	assert.Equal(t, 14, RecurrenceBiweekly.StepDays())
	assert.Equal(t, 28, RecurrenceMonthly.StepDays())
	assert.Equal(t, 0, RecurrenceType("daily").StepDays())
}

func TestTemplateStatusDerivation(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tpl := validTemplate()
	assert.Equal(t, TemplateStatusActive, tpl.Status(now))
	assert.True(t, tpl.CanGenerate(now))

	paused := now.Add(-time.Hour)
	tpl.PausedAt = &paused
	assert.Equal(t, TemplateStatusPaused, tpl.Status(now))
	assert.False(t, tpl.CanGenerate(now))

	// Inactive beats paused.
	tpl.DeactivatedAt = &paused
	assert.Equal(t, TemplateStatusInactive, tpl.Status(now))
}

func TestPausePersistsPastPausedUntil(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tpl := validTemplate()
	pausedAt := now.AddDate(0, 0, -30)
	until := now.AddDate(0, 0, -10)
	tpl.PausedAt = &pausedAt
	tpl.PausedUntil = &until

	// paused_until is informational; only an explicit resume clears it.
	assert.Equal(t, TemplateStatusPaused, tpl.Status(now))
}

func TestTemplateExpires(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tpl := validTemplate()
	end := now.AddDate(0, 0, -1)
	tpl.EndDate = &end
	assert.Equal(t, TemplateStatusExpired, tpl.Status(now))
	assert.False(t, tpl.CanGenerate(now))
}

func TestTemplateValidate(t *testing.T) {
	tpl := validTemplate()
	assert.NoError(t, tpl.Validate())

	bad := validTemplate()
	bad.RecurrenceType = "daily"
	assert.Error(t, bad.Validate())

	bad = validTemplate()
	bad.DayOfWeek = 7
	assert.Error(t, bad.Validate())

	bad = validTemplate()
	bad.ScheduledTime = "25:00"
	assert.Error(t, bad.Validate())

	bad = validTemplate()
	bad.DurationMinutes = 10
	assert.Error(t, bad.Validate())

	bad = validTemplate()
	end := bad.StartDate.AddDate(0, 0, -1)
	bad.EndDate = &end
	assert.Error(t, bad.Validate())
}

func TestClockTime(t *testing.T) {
	mins, err := ClockTime("14:30").Minutes()
	assert.NoError(t, err)
	assert.Equal(t, 870, mins)

	_, err = ClockTime("2pm").Minutes()
	assert.Error(t, err)

	at, err := ClockTime("09:15").On(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 9, 15, 0, 0, time.UTC), at)
}
