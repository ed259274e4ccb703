package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireInfeasible(t *testing.T, err error, reason InfeasibleReason) *InfeasibleError {
	t.Helper()
	require.Error(t, err)
	var inf *InfeasibleError
	require.ErrorAs(t, err, &inf)
	assert.Equal(t, reason, inf.Reason)
	return inf
}

func assertValidTimetable(t *testing.T, d *Domain, res *Result, labBlocks int) {
	t.Helper()

	type cell struct {
		day, slot int
		id        string
	}
	rooms := map[cell]bool{}
	faculty := map[cell]bool{}
	batches := map[cell]bool{}
	counts := map[[2]string]int{}

	for _, e := range res.Entries {
		assert.False(t, IsLunch(e.Slot), "lunch used: %s", e)
		assert.False(t, rooms[cell{e.Day, e.Slot, e.RoomID}], "room overlap: %s", e)
		assert.False(t, faculty[cell{e.Day, e.Slot, e.FacultyID}], "faculty overlap: %s", e)
		assert.False(t, batches[cell{e.Day, e.Slot, e.BatchID}], "batch overlap: %s", e)
		rooms[cell{e.Day, e.Slot, e.RoomID}] = true
		faculty[cell{e.Day, e.Slot, e.FacultyID}] = true
		batches[cell{e.Day, e.Slot, e.BatchID}] = true

		subject, _ := d.Subject(e.SubjectID)
		room, _ := d.Room(e.RoomID)
		batch, _ := d.Batch(e.BatchID)
		fac, _ := d.Faculty(e.FacultyID)
		assert.GreaterOrEqual(t, room.Capacity, batch.Strength, "capacity: %s", e)
		assert.Equal(t, subject.Type, room.Type, "room type: %s", e)
		assert.True(t, fac.Teaches(subject.ID), "expertise: %s", e)

		counts[[2]string{e.BatchID, e.SubjectID}]++
	}

	for _, b := range d.Batches() {
		for _, sid := range b.SubjectIDs {
			s, _ := d.Subject(sid)
			n, length := RequiredSessions(s, labBlocks)
			want := n
			if s.Type == Lab {
				want = n * length
			}
			assert.Equal(t, want, counts[[2]string{b.ID, sid}], "sessions for %s/%s", b.ID, sid)
		}
	}
}

func TestAllocateSingleSubjectScenario(t *testing.T) {
	d := mustLoad(t, singleSubjectInput(40))

	res, err := Allocate(d, Options{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)

	seen := map[[2]int]bool{}
	for _, e := range res.Entries {
		key := [2]int{e.Day, e.Slot}
		assert.False(t, seen[key])
		seen[key] = true
		assert.Equal(t, "b1", e.BatchID)
		assert.Equal(t, "ds", e.SubjectID)
		assert.Equal(t, "f1", e.FacultyID)
		assert.Equal(t, "r101", e.RoomID)
	}

	// earliest-first tie-breaks put the three sessions at the start of Monday
	assert.Equal(t, []int{0, 1, 2}, []int{res.Entries[0].Slot, res.Entries[1].Slot, res.Entries[2].Slot})
	assert.Equal(t, 3, res.Tasks)
	assert.Len(t, res.Placements, 3)
	assert.Equal(t, 3, res.Iterations)
}

func TestAllocateCapacityScenarioIsInfeasible(t *testing.T) {
	d := mustLoad(t, singleSubjectInput(20))

	res, err := Allocate(d, Options{})
	assert.Nil(t, res)
	inf := requireInfeasible(t, err, NoSolution)
	assert.Contains(t, inf.Detail, "strength 30")
}

func TestAllocateDepartmentInvariants(t *testing.T) {
	d := mustLoad(t, departmentInput())

	res, err := Allocate(d, Options{})
	require.NoError(t, err)
	assertValidTimetable(t, d, res, DefaultLabBlocksPerWeek)
	assert.Equal(t, len(res.Placements), res.Tasks)
}

func TestAllocateIsDeterministic(t *testing.T) {
	first, err := Allocate(mustLoad(t, departmentInput()), Options{})
	require.NoError(t, err)
	second, err := Allocate(mustLoad(t, departmentInput()), Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.Placements, second.Placements)
	assert.Equal(t, first.Iterations, second.Iterations)
}

func TestAllocateEntriesAreSorted(t *testing.T) {
	res, err := Allocate(mustLoad(t, departmentInput()), Options{})
	require.NoError(t, err)

	sorted := append([]Entry(nil), res.Entries...)
	SortEntries(sorted)
	assert.Equal(t, sorted, res.Entries)
}

func TestAllocateLabBlocksAreContiguous(t *testing.T) {
	d := mustLoad(t, departmentInput())

	res, err := Allocate(d, Options{LabBlocksPerWeek: 2})
	require.NoError(t, err)
	assertValidTimetable(t, d, res, 2)

	for _, p := range res.Placements {
		s, _ := d.Subject(p.SubjectID)
		if s.Type != Lab {
			assert.Equal(t, 1, p.Length)
			continue
		}
		assert.Equal(t, LabBlockLength, p.Length)
		assert.False(t, IsLunch(p.Slot))
		assert.False(t, IsLunch(p.Slot+1))
		assert.Less(t, p.Slot+1, SlotsPerDay)

		var block []Entry
		for _, e := range res.Entries {
			if e.BatchID == p.BatchID && e.SubjectID == p.SubjectID && e.Day == p.Day && (e.Slot == p.Slot || e.Slot == p.Slot+1) {
				block = append(block, e)
			}
		}
		require.Len(t, block, 2)
		assert.Equal(t, block[0].RoomID, block[1].RoomID)
		assert.Equal(t, block[0].FacultyID, block[1].FacultyID)
	}
}

func TestAllocateSiblingSessionsIncrease(t *testing.T) {
	res, err := Allocate(mustLoad(t, departmentInput()), Options{})
	require.NoError(t, err)

	last := map[[2]string]int{}
	for _, p := range res.Placements {
		key := [2]string{p.BatchID, p.SubjectID}
		pos := p.Day*SlotsPerDay + p.Slot
		if prev, ok := last[key]; ok {
			assert.Greater(t, pos, prev)
		}
		last[key] = pos
	}
}

func TestAllocateDepartmentOverCapacity(t *testing.T) {
	in := singleSubjectInput(40)
	in.Subjects = []Subject{
		{ID: "a", DepartmentID: "cse", Name: "A", Credits: 16, Type: "Theory"},
		{ID: "b", DepartmentID: "cse", Name: "B", Credits: 16, Type: "Theory"},
	}
	in.Faculty = []Faculty{
		{ID: "f1", DepartmentID: "cse", Expertise: []string{"a"}},
		{ID: "f2", DepartmentID: "cse", Expertise: []string{"b"}},
	}
	in.Batches = []Batch{
		{ID: "b1", DepartmentID: "cse", Strength: 30, SubjectIDs: []string{"a"}},
		{ID: "b2", DepartmentID: "cse", Strength: 30, SubjectIDs: []string{"b"}},
	}

	_, err := Allocate(mustLoad(t, in), Options{})
	inf := requireInfeasible(t, err, NoSolution)
	assert.Contains(t, inf.Detail, "rooms offer 30")
}

func TestAllocateBatchOverWeek(t *testing.T) {
	in := singleSubjectInput(40)
	in.Subjects[0].Credits = 31

	_, err := Allocate(mustLoad(t, in), Options{})
	inf := requireInfeasible(t, err, NoSolution)
	assert.Contains(t, inf.Detail, "needs 31 periods")
}

func TestAllocateMissingExpertise(t *testing.T) {
	in := singleSubjectInput(40)
	in.Faculty[0].Expertise = nil

	_, err := Allocate(mustLoad(t, in), Options{})
	requireInfeasible(t, err, NoSolution)
}

func dailyLoadBottleneck() Input {
	return Input{
		DepartmentID: "cse",
		Subjects: []Subject{
			{ID: "s", DepartmentID: "cse", Name: "S", Credits: 5, Type: "Theory"},
			{ID: "t", DepartmentID: "cse", Name: "T", Credits: 1, Type: "Theory"},
		},
		Faculty: []Faculty{{ID: "f", DepartmentID: "cse", Name: "F", Expertise: []string{"s", "t"}}},
		Rooms:   []Room{{ID: "r", DepartmentID: "cse", Name: "R", Capacity: 40, Type: "Theory"}},
		Batches: []Batch{
			{ID: "b1", DepartmentID: "cse", Strength: 30, SubjectIDs: []string{"s"}},
			{ID: "b2", DepartmentID: "cse", Strength: 30, SubjectIDs: []string{"t"}},
		},
	}
}

func TestAllocateExhaustsSearchSpace(t *testing.T) {
	d := mustLoad(t, dailyLoadBottleneck())

	res, err := Allocate(d, Options{MaxFacultyDailyLoad: 1, MaxIterations: 10_000_000, Timeout: time.Minute})
	assert.Nil(t, res)
	inf := requireInfeasible(t, err, NoSolution)
	assert.Greater(t, inf.Iterations, 0)
	assert.Greater(t, inf.Backtracks, 0)

	// without the cap the same data fits
	_, err = Allocate(d, Options{})
	assert.NoError(t, err)
}

func TestAllocateIterationBudget(t *testing.T) {
	d := mustLoad(t, dailyLoadBottleneck())

	_, err := Allocate(d, Options{MaxFacultyDailyLoad: 1, MaxIterations: 500})
	inf := requireInfeasible(t, err, BudgetExceeded)
	assert.Equal(t, 500, inf.Iterations)
}

func TestAllocateTimeBudget(t *testing.T) {
	d := mustLoad(t, singleSubjectInput(40))
	clock := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	_, err := Allocate(d, Options{
		Timeout: time.Second,
		now: func() time.Time {
			clock = clock.Add(time.Hour)
			return clock
		},
	})
	requireInfeasible(t, err, BudgetExceeded)
}

func TestAllocateEmptyDepartment(t *testing.T) {
	d := mustLoad(t, Input{DepartmentID: "cse"})

	res, err := Allocate(d, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Zero(t, res.Tasks)
}
