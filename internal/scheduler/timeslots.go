// Package scheduler builds clash-free weekly timetables for a department using
// deterministic depth-first search with chronological backtracking.
package scheduler

const (
	// DaysPerWeek is the number of teaching days, Monday through Friday.
	DaysPerWeek = 5
	// SlotsPerDay counts every period including the lunch break.
	SlotsPerDay = 7
	// LunchSlot is the index of the reserved 12:00-13:00 period.
	LunchSlot = 3
	// TeachingSlotsPerWeek is the number of assignable (day, slot) pairs per week.
	TeachingSlotsPerWeek = DaysPerWeek * (SlotsPerDay - 1)
	// LabBlockLength is the number of contiguous periods a lab session occupies.
	LabBlockLength = 2
)

var days = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

var timeslots = [SlotsPerDay]string{
	"09:00-10:00",
	"10:00-11:00",
	"11:00-12:00",
	"12:00-13:00",
	"13:00-14:00",
	"14:00-15:00",
	"15:00-16:00",
}

// Days returns the weekday names in order.
func Days() []string {
	out := make([]string, DaysPerWeek)
	copy(out, days[:])
	return out
}

// Timeslots returns the period labels in order, lunch included.
func Timeslots() []string {
	out := make([]string, SlotsPerDay)
	copy(out, timeslots[:])
	return out
}

// DayName returns the weekday label for day, or "" when out of range.
func DayName(day int) string {
	if day < 0 || day >= DaysPerWeek {
		return ""
	}
	return days[day]
}

// SlotLabel returns the period label for slot, or "" when out of range.
func SlotLabel(slot int) string {
	if slot < 0 || slot >= SlotsPerDay {
		return ""
	}
	return timeslots[slot]
}

// DayIndex resolves a weekday name.
func DayIndex(name string) (int, bool) {
	for i, d := range days {
		if d == name {
			return i, true
		}
	}
	return -1, false
}

// SlotIndex resolves a period label.
func SlotIndex(label string) (int, bool) {
	for i, s := range timeslots {
		if s == label {
			return i, true
		}
	}
	return -1, false
}

// IsLunch reports whether slot is the reserved lunch period.
func IsLunch(slot int) bool {
	return slot == LunchSlot
}

func validCell(day, slot int) bool {
	return day >= 0 && day < DaysPerWeek && slot >= 0 && slot < SlotsPerDay
}

// startSlots lists the periods where a session of the given length may begin
// without touching lunch or running past the end of the day.
func startSlots(length int) []int {
	starts := make([]int, 0, SlotsPerDay)
	for s := 0; s+length <= SlotsPerDay; s++ {
		ok := true
		for k := 0; k < length; k++ {
			if IsLunch(s + k) {
				ok = false
				break
			}
		}
		if ok {
			starts = append(starts, s)
		}
	}
	return starts
}
