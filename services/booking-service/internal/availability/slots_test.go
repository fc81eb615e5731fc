package availability

import (
	"testing"
	"time"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

func day(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
}

func at(d time.Time, hour, min int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, d.Location())
}

func TestSlots_HourlyWithinWorkingHours(t *testing.T) {
	d := day(t)
	slots := Slots(d, 60*time.Minute)
	if len(slots) != 9 {
		t.Fatalf("expected 9 slots for 60m service, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(d, 9, 0)) {
		t.Fatalf("first slot should start 09:00, got %s", slots[0].Start)
	}
	last := slots[len(slots)-1]
	if !last.Start.Equal(at(d, 17, 0)) || !last.End.Equal(at(d, 18, 0)) {
		t.Fatalf("last 60m slot should be 17:00-18:00, got %s-%s", last.Start, last.End)
	}
}

func TestSlots_EndingExactlyAtClosingIsKept(t *testing.T) {
	d := day(t)
	slots := Slots(d, 50*time.Minute)
	if len(slots) != 9 {
		t.Fatalf("expected 9 slots for 50m service, got %d", len(slots))
	}
	last := slots[len(slots)-1]
	if !last.Start.Equal(at(d, 17, 0)) || !last.End.Equal(at(d, 17, 50)) {
		t.Fatalf("last 50m slot should be 17:00-17:50, got %s-%s", last.Start, last.End)
	}
}

func TestSlots_DurationPastClosingDropsTail(t *testing.T) {
	d := day(t)
	slots := Slots(d, 90*time.Minute)
	last := slots[len(slots)-1]
	// 17:00 + 90m would end 18:30; last valid start is 16:00.
	if !last.Start.Equal(at(d, 16, 0)) {
		t.Fatalf("last 90m slot should start 16:00, got %s", last.Start)
	}
}

func TestSlots_InvalidDuration(t *testing.T) {
	if got := Slots(day(t), 0); got != nil {
		t.Fatalf("expected nil slots for zero duration, got %v", got)
	}
}

func TestDetectConflict_OverlapAndAbutment(t *testing.T) {
	d := day(t)
	existing := []model.Appointment{{
		ID:        "apt_1",
		StartTime: at(d, 10, 0),
		EndTime:   at(d, 11, 0),
		Status:    model.StatusConfirmed,
	}}

	if !DetectConflict(at(d, 10, 30), at(d, 11, 30), existing) {
		t.Fatal("interval starting inside an existing appointment should conflict")
	}
	if DetectConflict(at(d, 9, 0), at(d, 10, 0), existing) {
		t.Fatal("abutting interval should not conflict")
	}
	if DetectConflict(at(d, 11, 0), at(d, 12, 0), existing) {
		t.Fatal("interval starting at existing end should not conflict")
	}
	if !DetectConflict(at(d, 9, 30), at(d, 11, 30), existing) {
		t.Fatal("interval containing the existing one should conflict")
	}
}

func TestDetectConflict_IgnoresCancelledAndNoShow(t *testing.T) {
	d := day(t)
	for _, status := range []model.AppointmentStatus{model.StatusCancelled, model.StatusNoShow} {
		existing := []model.Appointment{{
			StartTime: at(d, 10, 0),
			EndTime:   at(d, 11, 0),
			Status:    status,
		}}
		if DetectConflict(at(d, 10, 0), at(d, 11, 0), existing) {
			t.Fatalf("%s appointment should not block time", status)
		}
	}
}

func TestAvailableSlots_EndToEnd(t *testing.T) {
	d := day(t)
	duration := 50 * time.Minute

	slots := AvailableSlots(d, duration, nil)
	if len(slots) != 9 {
		t.Fatalf("empty day should expose 9 slots, got %d", len(slots))
	}

	// Book 09:00 and re-check.
	booked := []model.Appointment{{
		ID:        "apt_1",
		StartTime: at(d, 9, 0),
		EndTime:   at(d, 9, 50),
		Status:    model.StatusPending,
	}}
	if SlotAvailable(Slot{Start: at(d, 9, 0), End: at(d, 9, 50)}, booked) {
		t.Fatal("09:00 slot should be taken after booking")
	}
	slots = AvailableSlots(d, duration, booked)
	if len(slots) != 8 {
		t.Fatalf("expected 8 remaining slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(d, 10, 0)) {
		t.Fatalf("first remaining slot should be 10:00, got %s", slots[0].Start)
	}
}
