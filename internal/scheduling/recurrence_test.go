package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abaflow/practice-api/internal/model"
)

func newTemplate(rt model.RecurrenceType, dayOfWeek int, start time.Time) *model.AppointmentTemplate {
	return &model.AppointmentTemplate{
		Base:            model.Base{ID: uuid.New()},
		ClinicID:        uuid.New(),
		PatientID:       uuid.New(),
		TherapistID:     uuid.New(),
		RecurrenceType:  rt,
		DayOfWeek:       dayOfWeek,
		ScheduledTime:   model.ClockTime("14:00"),
		DurationMinutes: 60,
		StartDate:       start,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpandWeeklyAlignsToWeekday(t *testing.T) {
	// 2024-01-01 is a Monday; the template wants Tuesdays.
	tpl := newTemplate(model.RecurrenceWeekly, 2, date(2024, 1, 1))

	occ, err := Expand(tpl, tpl.StartDate, 4)
	require.NoError(t, err)
	require.Len(t, occ, 4)

	assert.Equal(t, date(2024, 1, 2), occ[0].Date)
	assert.Equal(t, date(2024, 1, 9), occ[1].Date)
	assert.Equal(t, date(2024, 1, 16), occ[2].Date)
	assert.Equal(t, date(2024, 1, 23), occ[3].Date)
	for _, o := range occ {
		assert.Equal(t, time.Tuesday, o.Date.Weekday())
		assert.Equal(t, model.ClockTime("14:00"), o.Time)
	}
}

func TestExpandStartDateOnWantedWeekday(t *testing.T) {
	// 2024-01-02 is already a Tuesday; the first occurrence is that day.
	tpl := newTemplate(model.RecurrenceWeekly, 2, date(2024, 1, 2))

	occ, err := Expand(tpl, tpl.StartDate, 1)
	require.NoError(t, err)
	require.NotEmpty(t, occ)
	assert.Equal(t, date(2024, 1, 2), occ[0].Date)
}

func TestExpandBiweeklyStride(t *testing.T) {
	tpl := newTemplate(model.RecurrenceBiweekly, 2, date(2024, 1, 1))

	occ, err := Expand(tpl, tpl.StartDate, 8)
	require.NoError(t, err)
	require.Len(t, occ, 4)
	for i := 1; i < len(occ); i++ {
		assert.Equal(t, 14*24*time.Hour, occ[i].Date.Sub(occ[i-1].Date))
	}
}

func TestExpandMonthlyIsTwentyEightDays(t *testing.T) {
	tpl := newTemplate(model.RecurrenceMonthly, 2, date(2024, 1, 1))

	occ, err := Expand(tpl, tpl.StartDate, 16)
	require.NoError(t, err)
	require.Len(t, occ, 4)
	for i := 1; i < len(occ); i++ {
		assert.Equal(t, 28*24*time.Hour, occ[i].Date.Sub(occ[i-1].Date))
		assert.Equal(t, time.Tuesday, occ[i].Date.Weekday())
	}
}

func TestExpandPreservesPhaseAcrossWindows(t *testing.T) {
	// Regenerating a biweekly series from the day after its last
	// occurrence must continue the 14-day phase, not restart it.
	tpl := newTemplate(model.RecurrenceBiweekly, 2, date(2024, 1, 1))

	first, err := Expand(tpl, tpl.StartDate, 4)
	require.NoError(t, err)
	require.Len(t, first, 2)
	last := first[len(first)-1].Date

	next, err := Expand(tpl, NextAfter(last), 4)
	require.NoError(t, err)
	require.NotEmpty(t, next)
	assert.Equal(t, last.AddDate(0, 0, 14), next[0].Date)
}

func TestExpandRespectsInclusiveEndDate(t *testing.T) {
	tpl := newTemplate(model.RecurrenceWeekly, 2, date(2024, 1, 1))
	end := date(2024, 1, 9)
	tpl.EndDate = &end

	occ, err := Expand(tpl, tpl.StartDate, 8)
	require.NoError(t, err)
	require.Len(t, occ, 2)
	assert.Equal(t, end, occ[1].Date)
}

func TestExpandEndDateBeforeFirstOccurrence(t *testing.T) {
	tpl := newTemplate(model.RecurrenceWeekly, 2, date(2024, 1, 1))
	end := date(2024, 1, 1)
	tpl.EndDate = &end

	occ, err := Expand(tpl, tpl.StartDate, 4)
	require.NoError(t, err)
	assert.Empty(t, occ)
}

func TestExpandInvalidTemplate(t *testing.T) {
	tpl := newTemplate("daily", 2, date(2024, 1, 1))

	_, err := Expand(tpl, tpl.StartDate, 4)
	assert.Error(t, err)
}

func TestClampHorizon(t *testing.T) {
	assert.Equal(t, DefaultHorizonWeeks, ClampHorizon(0))
	assert.Equal(t, DefaultHorizonWeeks, ClampHorizon(-3))
	assert.Equal(t, 10, ClampHorizon(10))
	assert.Equal(t, MaxHorizonWeeks, ClampHorizon(52))
}

func TestNextAfter(t *testing.T) {
	latest := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2024, 3, 6), NextAfter(latest))
}

func TestValidateWindow(t *testing.T) {
	start := date(2024, 1, 10)
	bad := date(2024, 1, 5)
	ok := date(2024, 1, 20)

	assert.NoError(t, ValidateWindow(start, nil))
	assert.NoError(t, ValidateWindow(start, &ok))
	assert.Error(t, ValidateWindow(start, &bad))
}
