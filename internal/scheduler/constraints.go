package scheduler

import (
	"fmt"
	"sort"
)

// ConstraintKind names a hard constraint an entry can violate.
type ConstraintKind string

const (
	RoomTypeMismatch         ConstraintKind = "RoomTypeMismatch"
	RoomCapacityExceeded     ConstraintKind = "RoomCapacityExceeded"
	RoomDoubleBooked         ConstraintKind = "RoomDoubleBooked"
	FacultyDoubleBooked      ConstraintKind = "FacultyDoubleBooked"
	FacultyNotExpert         ConstraintKind = "FacultyNotExpert"
	BatchDoubleBooked        ConstraintKind = "BatchDoubleBooked"
	LunchSlotReserved        ConstraintKind = "LunchSlotReserved"
	FacultyDailyLoadExceeded ConstraintKind = "FacultyDailyLoadExceeded"
	InvalidReference         ConstraintKind = "InvalidReference"
	SlotOutOfRange           ConstraintKind = "SlotOutOfRange"
)

// Entry is one scheduled period: a batch taking a subject from a faculty
// member in a room.
type Entry struct {
	Day       int
	Slot      int
	BatchID   string
	SubjectID string
	FacultyID string
	RoomID    string
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s batch=%s subject=%s faculty=%s room=%s",
		DayName(e.Day), SlotLabel(e.Slot), e.BatchID, e.SubjectID, e.FacultyID, e.RoomID)
}

type cellKey struct {
	day  int
	slot int
	id   string
}

type dayKey struct {
	id  string
	day int
}

// Schedule is the mutable exclusivity index used during search.
type Schedule struct {
	entries    map[Entry]struct{}
	rooms      map[cellKey]struct{}
	faculty    map[cellKey]struct{}
	batches    map[cellKey]struct{}
	facultyDay map[dayKey]int
}

// NewSchedule returns an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{
		entries:    make(map[Entry]struct{}),
		rooms:      make(map[cellKey]struct{}),
		faculty:    make(map[cellKey]struct{}),
		batches:    make(map[cellKey]struct{}),
		facultyDay: make(map[dayKey]int),
	}
}

// Len returns the number of placed entries.
func (s *Schedule) Len() int { return len(s.entries) }

// RoomBusy reports whether room is taken at (day, slot).
func (s *Schedule) RoomBusy(day, slot int, roomID string) bool {
	_, ok := s.rooms[cellKey{day, slot, roomID}]
	return ok
}

// FacultyBusy reports whether faculty is taken at (day, slot).
func (s *Schedule) FacultyBusy(day, slot int, facultyID string) bool {
	_, ok := s.faculty[cellKey{day, slot, facultyID}]
	return ok
}

// BatchBusy reports whether batch is taken at (day, slot).
func (s *Schedule) BatchBusy(day, slot int, batchID string) bool {
	_, ok := s.batches[cellKey{day, slot, batchID}]
	return ok
}

// FacultyLoad returns how many periods faculty teaches on day.
func (s *Schedule) FacultyLoad(facultyID string, day int) int {
	return s.facultyDay[dayKey{facultyID, day}]
}

// Place indexes e. Placing onto an occupied cell means the caller skipped
// the checker and corrupts the index, so it panics.
func (s *Schedule) Place(e Entry) {
	if _, dup := s.entries[e]; dup {
		panic(fmt.Sprintf("scheduler: entry placed twice: %s", e))
	}
	if s.RoomBusy(e.Day, e.Slot, e.RoomID) || s.FacultyBusy(e.Day, e.Slot, e.FacultyID) || s.BatchBusy(e.Day, e.Slot, e.BatchID) {
		panic(fmt.Sprintf("scheduler: placing onto occupied cell: %s", e))
	}
	s.entries[e] = struct{}{}
	s.rooms[cellKey{e.Day, e.Slot, e.RoomID}] = struct{}{}
	s.faculty[cellKey{e.Day, e.Slot, e.FacultyID}] = struct{}{}
	s.batches[cellKey{e.Day, e.Slot, e.BatchID}] = struct{}{}
	s.facultyDay[dayKey{e.FacultyID, e.Day}]++
}

// Remove undoes Place. Removing an entry that is not indexed panics.
func (s *Schedule) Remove(e Entry) {
	if _, ok := s.entries[e]; !ok {
		panic(fmt.Sprintf("scheduler: removing entry that is not placed: %s", e))
	}
	delete(s.entries, e)
	delete(s.rooms, cellKey{e.Day, e.Slot, e.RoomID})
	delete(s.faculty, cellKey{e.Day, e.Slot, e.FacultyID})
	delete(s.batches, cellKey{e.Day, e.Slot, e.BatchID})
	key := dayKey{e.FacultyID, e.Day}
	if s.facultyDay[key] <= 1 {
		delete(s.facultyDay, key)
	} else {
		s.facultyDay[key]--
	}
}

// Entries returns the placed entries ordered by (day, slot, batch, room).
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for e := range s.entries {
		out = append(out, e)
	}
	SortEntries(out)
	return out
}

// SortEntries orders entries by (day, slot, batch id, room id).
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		if a.BatchID != b.BatchID {
			return a.BatchID < b.BatchID
		}
		return a.RoomID < b.RoomID
	})
}

// Checker evaluates hard constraints against a schedule. It holds no state of
// its own beyond the domain and limits.
type Checker struct {
	domain   *Domain
	maxDaily int
}

// NewChecker builds a checker. maxDailyLoad <= 0 disables the per-day faculty cap.
func NewChecker(domain *Domain, maxDailyLoad int) *Checker {
	if maxDailyLoad < 0 {
		maxDailyLoad = 0
	}
	return &Checker{domain: domain, maxDaily: maxDailyLoad}
}

// CanPlace reports whether e violates no constraint.
func (c *Checker) CanPlace(e Entry, s *Schedule) bool {
	return len(c.check(e, s, false)) == 0
}

// Violations lists every constraint e would break.
func (c *Checker) Violations(e Entry, s *Schedule) []ConstraintKind {
	return c.check(e, s, true)
}

func (c *Checker) check(e Entry, s *Schedule, all bool) []ConstraintKind {
	if !validCell(e.Day, e.Slot) {
		return []ConstraintKind{SlotOutOfRange}
	}
	subject, okS := c.domain.Subject(e.SubjectID)
	faculty, okF := c.domain.Faculty(e.FacultyID)
	room, okR := c.domain.Room(e.RoomID)
	batch, okB := c.domain.Batch(e.BatchID)
	if !okS || !okF || !okR || !okB {
		return []ConstraintKind{InvalidReference}
	}

	var out []ConstraintKind
	add := func(kind ConstraintKind) bool {
		out = append(out, kind)
		return !all
	}

	if IsLunch(e.Slot) && add(LunchSlotReserved) {
		return out
	}
	if room.Type != subject.Type && add(RoomTypeMismatch) {
		return out
	}
	if room.Capacity < batch.Strength && add(RoomCapacityExceeded) {
		return out
	}
	if !faculty.Teaches(subject.ID) && add(FacultyNotExpert) {
		return out
	}
	if s.RoomBusy(e.Day, e.Slot, e.RoomID) && add(RoomDoubleBooked) {
		return out
	}
	if s.FacultyBusy(e.Day, e.Slot, e.FacultyID) && add(FacultyDoubleBooked) {
		return out
	}
	if s.BatchBusy(e.Day, e.Slot, e.BatchID) && add(BatchDoubleBooked) {
		return out
	}
	if c.maxDaily > 0 && s.FacultyLoad(e.FacultyID, e.Day) >= c.maxDaily && add(FacultyDailyLoadExceeded) {
		return out
	}
	return out
}
