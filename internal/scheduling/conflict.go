package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/model"
)

// Candidate is a prospective booking checked for double-booking against
// the existing calendar.
type Candidate struct {
	PatientID       uuid.UUID
	TherapistID     uuid.UUID
	Date            time.Time
	Time            model.ClockTime
	DurationMinutes int
}

// Conflicts returns the non-cancelled appointments on the candidate's
// date that share a party (patient or therapist) and whose [start, end)
// interval overlaps the candidate's. Boundary-touching intervals do not
// overlap. excludeID skips self-comparison during edit flows.
//
// The caller supplies the existing set, pre-scoped to clinic and date;
// this function is a pure predicate over it.
func Conflicts(existing []*model.Appointment, c Candidate, excludeID *uuid.UUID) []*model.Appointment {
	candStart, err := c.Time.Minutes()
	if err != nil {
		return nil
	}
	candEnd := candStart + c.DurationMinutes

	var out []*model.Appointment
	for _, apt := range existing {
		if excludeID != nil && apt.ID == *excludeID {
			continue
		}
		if apt.Status == model.AppointmentStatusCancelled {
			continue
		}
		if !sameDate(apt.ScheduledDate, c.Date) {
			continue
		}
		if apt.PatientID != c.PatientID && apt.TherapistID != c.TherapistID {
			continue
		}
		exStart, err := apt.ScheduledTime.Minutes()
		if err != nil {
			continue
		}
		exEnd := exStart + apt.DurationMinutes
		if candStart < exEnd && candEnd > exStart {
			out = append(out, apt)
		}
	}
	return out
}

// HasConflict is the boolean form of Conflicts.
func HasConflict(existing []*model.Appointment, c Candidate, excludeID *uuid.UUID) bool {
	return len(Conflicts(existing, c, excludeID)) > 0
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
