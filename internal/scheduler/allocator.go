package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// InfeasibleReason explains why no timetable was produced.
type InfeasibleReason string

const (
	NoSolution     InfeasibleReason = "NoSolution"
	BudgetExceeded InfeasibleReason = "BudgetExceeded"
)

// InfeasibleError is returned when the search finds no complete timetable.
type InfeasibleError struct {
	Reason     InfeasibleReason
	Detail     string
	Iterations int
	Backtracks int
}

func (e *InfeasibleError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("timetable infeasible (%s)", e.Reason)
	}
	return fmt.Sprintf("timetable infeasible (%s): %s", e.Reason, e.Detail)
}

const (
	DefaultMaxIterations    = 2_000_000
	DefaultTimeout          = 20 * time.Second
	DefaultLabBlocksPerWeek = 1

	deadlineCheckEvery = 1024
)

// Options bound and tune a generation run.
type Options struct {
	// MaxIterations caps candidate evaluations.
	MaxIterations int
	// Timeout caps wall-clock search time.
	Timeout time.Duration
	// LabBlocksPerWeek is the number of two-period lab blocks per lab subject.
	LabBlocksPerWeek int
	// MaxFacultyDailyLoad caps periods per faculty per day; zero disables it.
	MaxFacultyDailyLoad int

	now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.LabBlocksPerWeek <= 0 {
		o.LabBlocksPerWeek = DefaultLabBlocksPerWeek
	}
	if o.MaxFacultyDailyLoad < 0 {
		o.MaxFacultyDailyLoad = 0
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// RequiredSessions returns how many tasks a subject produces per batch and
// the number of periods each task occupies.
func RequiredSessions(s *SubjectInfo, labBlocksPerWeek int) (count, length int) {
	if s.Type == Lab {
		if labBlocksPerWeek <= 0 {
			labBlocksPerWeek = DefaultLabBlocksPerWeek
		}
		return labBlocksPerWeek, LabBlockLength
	}
	return s.Credits, 1
}

// TaskPlacement records where one task landed.
type TaskPlacement struct {
	BatchID    string
	SubjectID  string
	Session    int
	Day        int
	Slot       int
	Length     int
	RoomID     string
	FacultyID  string
	DomainSize int
}

// Result is a complete timetable plus search diagnostics.
type Result struct {
	Entries    []Entry
	Placements []TaskPlacement
	Tasks      int
	Iterations int
	Backtracks int
	Elapsed    time.Duration
}

type task struct {
	batch   *BatchInfo
	subject *SubjectInfo
	session int
	length  int
	starts  []int
	faculty []*FacultyInfo
	rooms   []*RoomInfo
}

func (t *task) positions() int { return DaysPerWeek * len(t.starts) }

func (t *task) domainSize() int { return t.positions() * len(t.rooms) * len(t.faculty) }

func (t *task) siblingOf(o *task) bool {
	return o != nil && t.batch.ID == o.batch.ID && t.subject.ID == o.subject.ID
}

type frame struct {
	cursor int
	pos    int
	placed []Entry
}

// Allocate searches for a complete timetable. The search is deterministic:
// identical domains and options always yield identical results.
func Allocate(d *Domain, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	started := opts.now()

	tasks, err := buildTasks(d, opts)
	if err != nil {
		return nil, err
	}

	a := &allocator{
		tasks:    tasks,
		checker:  NewChecker(d, opts.MaxFacultyDailyLoad),
		schedule: NewSchedule(),
		maxIter:  opts.MaxIterations,
		deadline: started.Add(opts.Timeout),
		now:      opts.now,
	}

	frames, err := a.run()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Entries:    a.schedule.Entries(),
		Placements: make([]TaskPlacement, len(tasks)),
		Tasks:      len(tasks),
		Iterations: a.iterations,
		Backtracks: a.backtracks,
		Elapsed:    opts.now().Sub(started),
	}
	for i, t := range tasks {
		first := frames[i].placed[0]
		res.Placements[i] = TaskPlacement{
			BatchID:    t.batch.ID,
			SubjectID:  t.subject.ID,
			Session:    t.session,
			Day:        first.Day,
			Slot:       first.Slot,
			Length:     t.length,
			RoomID:     first.RoomID,
			FacultyID:  first.FacultyID,
			DomainSize: t.domainSize(),
		}
	}
	return res, nil
}

func buildTasks(d *Domain, opts Options) ([]*task, error) {
	theoryStarts := startSlots(1)
	labStarts := startSlots(LabBlockLength)

	var tasks []*task
	demandByBatch := make(map[string]int)
	totalDemand := 0

	for _, b := range d.Batches() {
		for _, sid := range b.SubjectIDs {
			s, _ := d.Subject(sid)
			count, length := RequiredSessions(s, opts.LabBlocksPerWeek)

			starts := theoryStarts
			if length > 1 {
				starts = labStarts
			}
			var faculty []*FacultyInfo
			if opts.MaxFacultyDailyLoad == 0 || length <= opts.MaxFacultyDailyLoad {
				for _, f := range d.FacultyByID() {
					if f.Teaches(sid) {
						faculty = append(faculty, f)
					}
				}
			}
			var rooms []*RoomInfo
			for _, r := range d.RoomsByID() {
				if r.Type == s.Type && r.Capacity >= b.Strength {
					rooms = append(rooms, r)
				}
			}

			if len(faculty) == 0 {
				return nil, &InfeasibleError{Reason: NoSolution, Detail: fmt.Sprintf("no faculty can teach subject %q to batch %q", sid, b.ID)}
			}
			if len(rooms) == 0 {
				return nil, &InfeasibleError{Reason: NoSolution, Detail: fmt.Sprintf("no %s room holds batch %q (strength %d) for subject %q", s.Type, b.ID, b.Strength, sid)}
			}

			for i := 0; i < count; i++ {
				tasks = append(tasks, &task{batch: b, subject: s, session: i, length: length, starts: starts, faculty: faculty, rooms: rooms})
			}
			demandByBatch[b.ID] += count * length
			totalDemand += count * length
		}
	}

	for _, b := range d.Batches() {
		if demandByBatch[b.ID] > TeachingSlotsPerWeek {
			return nil, &InfeasibleError{Reason: NoSolution, Detail: fmt.Sprintf("batch %q needs %d periods but a week has %d", b.ID, demandByBatch[b.ID], TeachingSlotsPerWeek)}
		}
	}
	if capacity := TeachingSlotsPerWeek * len(d.RoomsByID()); totalDemand > capacity {
		return nil, &InfeasibleError{Reason: NoSolution, Detail: fmt.Sprintf("department needs %d periods but rooms offer %d", totalDemand, capacity)}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if da, db := a.domainSize(), b.domainSize(); da != db {
			return da < db
		}
		if a.batch.Position != b.batch.Position {
			return a.batch.Position < b.batch.Position
		}
		if pa, pb := subjectPosition(a), subjectPosition(b); pa != pb {
			return pa < pb
		}
		return a.session < b.session
	})
	return tasks, nil
}

func subjectPosition(t *task) int {
	for i, sid := range t.batch.SubjectIDs {
		if sid == t.subject.ID {
			return i
		}
	}
	return len(t.batch.SubjectIDs)
}

type allocator struct {
	tasks    []*task
	checker  *Checker
	schedule *Schedule

	maxIter  int
	deadline time.Time
	now      func() time.Time

	iterations int
	backtracks int
}

// run performs the depth-first search over an explicit frame stack; frame i
// always belongs to task i.
func (a *allocator) run() ([]frame, error) {
	if len(a.tasks) == 0 {
		return nil, nil
	}

	stack := make([]frame, 1, len(a.tasks))
	stack[0] = frame{cursor: a.firstCursor(0, stack)}

	for len(stack) > 0 {
		i := len(stack) - 1
		t := a.tasks[i]
		f := &stack[i]

		if f.placed != nil {
			a.undo(f.placed)
			f.placed = nil
			f.cursor++
		}

		found := false
		for f.cursor < t.domainSize() {
			if err := a.tick(); err != nil {
				return nil, err
			}
			entries, pos := a.candidate(t, f.cursor)
			if a.tryPlace(entries) {
				f.placed = entries
				f.pos = pos
				found = true
				break
			}
			f.cursor++
		}

		if !found {
			stack = stack[:i]
			a.backtracks++
			continue
		}
		if i+1 == len(a.tasks) {
			return stack, nil
		}
		stack = append(stack, frame{})
		stack[i+1].cursor = a.firstCursor(i+1, stack)
	}

	return nil, &InfeasibleError{
		Reason:     NoSolution,
		Detail:     "search space exhausted",
		Iterations: a.iterations,
		Backtracks: a.backtracks,
	}
}

func (a *allocator) tick() error {
	if a.iterations >= a.maxIter {
		return &InfeasibleError{Reason: BudgetExceeded, Detail: fmt.Sprintf("iteration limit %d reached", a.maxIter), Iterations: a.iterations, Backtracks: a.backtracks}
	}
	if a.iterations%deadlineCheckEvery == 0 && a.now().After(a.deadline) {
		return &InfeasibleError{Reason: BudgetExceeded, Detail: "time limit reached", Iterations: a.iterations, Backtracks: a.backtracks}
	}
	a.iterations++
	return nil
}

// firstCursor skips positions at or before the previous sibling's so that
// interchangeable sessions are only tried in increasing (day, slot) order.
func (a *allocator) firstCursor(i int, stack []frame) int {
	if i == 0 || !a.tasks[i].siblingOf(a.tasks[i-1]) {
		return 0
	}
	t := a.tasks[i]
	return (stack[i-1].pos + 1) * len(t.rooms) * len(t.faculty)
}

// candidate decodes cursor in (day, start, room, faculty) order.
func (a *allocator) candidate(t *task, cursor int) ([]Entry, int) {
	nFac := len(t.faculty)
	nRooms := len(t.rooms)
	fi := cursor % nFac
	cursor /= nFac
	ri := cursor % nRooms
	pos := cursor / nRooms
	day := pos / len(t.starts)
	start := t.starts[pos%len(t.starts)]

	entries := make([]Entry, t.length)
	for k := range entries {
		entries[k] = Entry{
			Day:       day,
			Slot:      start + k,
			BatchID:   t.batch.ID,
			SubjectID: t.subject.ID,
			FacultyID: t.faculty[fi].ID,
			RoomID:    t.rooms[ri].ID,
		}
	}
	return entries, pos
}

func (a *allocator) tryPlace(entries []Entry) bool {
	for k, e := range entries {
		if !a.checker.CanPlace(e, a.schedule) {
			a.undo(entries[:k])
			return false
		}
		a.schedule.Place(e)
	}
	return true
}

func (a *allocator) undo(entries []Entry) {
	for k := len(entries) - 1; k >= 0; k-- {
		a.schedule.Remove(entries[k])
	}
}
