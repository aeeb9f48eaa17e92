package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// DateRange is a closed [From, To] date interval.
type DateRange struct {
	From time.Time `json:"from" form:"from" time_format:"2006-01-02"`
	To   time.Time `json:"to" form:"to" time_format:"2006-01-02"`
}

// ClockTime is a time-of-day in "HH:MM" form, the representation used
// for scheduled_time columns.
type ClockTime string

// Minutes returns the time of day as minutes after midnight.
func (c ClockTime) Minutes() (int, error) {
	t, err := time.Parse("15:04", string(c))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", c, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// On combines the clock time with a calendar date in the date's location.
func (c ClockTime) On(date time.Time) (time.Time, error) {
	mins, err := c.Minutes()
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, mins/60, mins%60, 0, 0, date.Location()), nil
}

func (c ClockTime) Valid() bool {
	_, err := c.Minutes()
	return err == nil
}
