package availability

import (
	"time"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

// Working hours for the booking wizard: candidate slots start on the hour
// from opening up to (not including) closing.
const (
	OpeningHour = 9
	ClosingHour = 18
)

type Slot struct {
	Start time.Time
	End   time.Time
}

// Slots returns the candidate slots for a service on the given calendar day,
// in ascending start order. The time-of-day of day is ignored. A slot whose
// end would pass closing time is discarded; ending exactly at closing is fine.
func Slots(day time.Time, duration time.Duration) []Slot {
	if duration <= 0 {
		return nil
	}
	year, month, d := day.Date()
	loc := day.Location()
	closing := time.Date(year, month, d, ClosingHour, 0, 0, 0, loc)

	var slots []Slot
	for h := OpeningHour; h < ClosingHour; h++ {
		start := time.Date(year, month, d, h, 0, 0, 0, loc)
		end := start.Add(duration)
		if end.After(closing) {
			continue
		}
		slots = append(slots, Slot{Start: start, End: end})
	}
	return slots
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Abutting intervals do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// DetectConflict reports whether the prospective interval [start,end) overlaps
// any appointment still holding its time. The result is advisory: callers may
// proceed anyway (explicit overbooking).
func DetectConflict(start, end time.Time, appointments []model.Appointment) bool {
	for _, a := range appointments {
		if !a.Status.BlocksTime() {
			continue
		}
		if Overlaps(start, end, a.StartTime, a.EndTime) {
			return true
		}
	}
	return false
}

// SlotAvailable reports whether no blocking appointment overlaps the slot.
func SlotAvailable(slot Slot, appointments []model.Appointment) bool {
	return !DetectConflict(slot.Start, slot.End, appointments)
}

// AvailableSlots filters the day's candidates down to bookable ones.
func AvailableSlots(day time.Time, duration time.Duration, appointments []model.Appointment) []Slot {
	var out []Slot
	for _, slot := range Slots(day, duration) {
		if SlotAvailable(slot, appointments) {
			out = append(out, slot)
		}
	}
	return out
}
