package scheduler

import (
	"fmt"
	"sort"
	"strings"
)

// SessionType distinguishes lecture subjects and rooms from lab ones.
type SessionType string

const (
	Theory SessionType = "Theory"
	Lab    SessionType = "Lab"
)

// ParseSessionType accepts "Theory" or "Lab" in any casing.
func ParseSessionType(raw string) (SessionType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "theory":
		return Theory, true
	case "lab":
		return Lab, true
	default:
		return "", false
	}
}

// Subject is a course taught to batches.
type Subject struct {
	ID           string
	DepartmentID string
	Name         string
	Credits      int
	Type         string
}

// Faculty is a teacher and the subjects they may teach.
type Faculty struct {
	ID           string
	DepartmentID string
	Name         string
	Expertise    []string
}

// Room is a teaching space.
type Room struct {
	ID           string
	DepartmentID string
	Name         string
	Capacity     int
	Type         string
}

// Batch is a student cohort and its ordered subject list.
type Batch struct {
	ID           string
	DepartmentID string
	Name         string
	Strength     int
	SubjectIDs   []string
}

// Input carries the raw records of one department.
type Input struct {
	DepartmentID string
	Subjects     []Subject
	Faculty      []Faculty
	Rooms        []Room
	Batches      []Batch
}

// ValidationError lists every problem found in an Input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid scheduling input: " + strings.Join(e.Problems, "; ")
}

// SubjectInfo is a normalised subject.
type SubjectInfo struct {
	ID       string
	Name     string
	Credits  int
	Type     SessionType
	Position int
}

// FacultyInfo is a normalised faculty member.
type FacultyInfo struct {
	ID        string
	Name      string
	Expertise map[string]struct{}
}

// Teaches reports whether subjectID is in the faculty's expertise.
func (f *FacultyInfo) Teaches(subjectID string) bool {
	_, ok := f.Expertise[subjectID]
	return ok
}

// RoomInfo is a normalised room.
type RoomInfo struct {
	ID       string
	Name     string
	Capacity int
	Type     SessionType
}

// BatchInfo is a normalised batch; Position preserves input order.
type BatchInfo struct {
	ID         string
	Name       string
	Strength   int
	SubjectIDs []string
	Position   int
}

// Domain is the indexed, validated working set for one generation run.
type Domain struct {
	DepartmentID string

	subjects map[string]*SubjectInfo
	faculty  map[string]*FacultyInfo
	rooms    map[string]*RoomInfo
	batches  map[string]*BatchInfo

	batchOrder   []*BatchInfo
	facultyOrder []*FacultyInfo
	roomOrder    []*RoomInfo
}

// Subject looks up a subject by id.
func (d *Domain) Subject(id string) (*SubjectInfo, bool) {
	s, ok := d.subjects[id]
	return s, ok
}

// Faculty looks up a faculty member by id.
func (d *Domain) Faculty(id string) (*FacultyInfo, bool) {
	f, ok := d.faculty[id]
	return f, ok
}

// Room looks up a room by id.
func (d *Domain) Room(id string) (*RoomInfo, bool) {
	r, ok := d.rooms[id]
	return r, ok
}

// Batch looks up a batch by id.
func (d *Domain) Batch(id string) (*BatchInfo, bool) {
	b, ok := d.batches[id]
	return b, ok
}

// Batches returns batches in input order.
func (d *Domain) Batches() []*BatchInfo { return d.batchOrder }

// FacultyByID returns faculty sorted by id.
func (d *Domain) FacultyByID() []*FacultyInfo { return d.facultyOrder }

// RoomsByID returns rooms sorted by id.
func (d *Domain) RoomsByID() []*RoomInfo { return d.roomOrder }

type problems struct {
	list []string
}

func (p *problems) addf(format string, args ...interface{}) {
	p.list = append(p.list, fmt.Sprintf(format, args...))
}

// Load validates raw records and builds a Domain. It never drops a record
// silently: every inconsistency is reported in the returned ValidationError.
func Load(in Input) (*Domain, error) {
	p := &problems{}
	d := &Domain{
		DepartmentID: in.DepartmentID,
		subjects:     make(map[string]*SubjectInfo, len(in.Subjects)),
		faculty:      make(map[string]*FacultyInfo, len(in.Faculty)),
		rooms:        make(map[string]*RoomInfo, len(in.Rooms)),
		batches:      make(map[string]*BatchInfo, len(in.Batches)),
	}

	checkDept := func(kind, id, dept string) {
		if in.DepartmentID != "" && dept != in.DepartmentID {
			p.addf("%s %q belongs to department %q, expected %q", kind, id, dept, in.DepartmentID)
		}
	}

	for i, s := range in.Subjects {
		if s.ID == "" {
			p.addf("subject #%d has an empty id", i)
			continue
		}
		if _, dup := d.subjects[s.ID]; dup {
			p.addf("subject %q is duplicated", s.ID)
			continue
		}
		checkDept("subject", s.ID, s.DepartmentID)
		if s.Credits <= 0 {
			p.addf("subject %q has non-positive credits %d", s.ID, s.Credits)
		}
		typ, ok := ParseSessionType(s.Type)
		if !ok {
			p.addf("subject %q has unknown type %q", s.ID, s.Type)
		}
		d.subjects[s.ID] = &SubjectInfo{ID: s.ID, Name: s.Name, Credits: s.Credits, Type: typ, Position: i}
	}

	for i, f := range in.Faculty {
		if f.ID == "" {
			p.addf("faculty #%d has an empty id", i)
			continue
		}
		if _, dup := d.faculty[f.ID]; dup {
			p.addf("faculty %q is duplicated", f.ID)
			continue
		}
		checkDept("faculty", f.ID, f.DepartmentID)
		info := &FacultyInfo{ID: f.ID, Name: f.Name, Expertise: make(map[string]struct{}, len(f.Expertise))}
		for _, sid := range f.Expertise {
			if _, ok := d.subjects[sid]; !ok {
				p.addf("faculty %q references unknown subject %q", f.ID, sid)
				continue
			}
			info.Expertise[sid] = struct{}{}
		}
		d.faculty[f.ID] = info
		d.facultyOrder = append(d.facultyOrder, info)
	}

	for i, r := range in.Rooms {
		if r.ID == "" {
			p.addf("room #%d has an empty id", i)
			continue
		}
		if _, dup := d.rooms[r.ID]; dup {
			p.addf("room %q is duplicated", r.ID)
			continue
		}
		checkDept("room", r.ID, r.DepartmentID)
		if r.Capacity <= 0 {
			p.addf("room %q has non-positive capacity %d", r.ID, r.Capacity)
		}
		typ, ok := ParseSessionType(r.Type)
		if !ok {
			p.addf("room %q has unknown type %q", r.ID, r.Type)
		}
		info := &RoomInfo{ID: r.ID, Name: r.Name, Capacity: r.Capacity, Type: typ}
		d.rooms[r.ID] = info
		d.roomOrder = append(d.roomOrder, info)
	}

	for i, b := range in.Batches {
		if b.ID == "" {
			p.addf("batch #%d has an empty id", i)
			continue
		}
		if _, dup := d.batches[b.ID]; dup {
			p.addf("batch %q is duplicated", b.ID)
			continue
		}
		checkDept("batch", b.ID, b.DepartmentID)
		if b.Strength <= 0 {
			p.addf("batch %q has non-positive strength %d", b.ID, b.Strength)
		}
		seen := make(map[string]struct{}, len(b.SubjectIDs))
		subjects := make([]string, 0, len(b.SubjectIDs))
		for _, sid := range b.SubjectIDs {
			if _, ok := d.subjects[sid]; !ok {
				p.addf("batch %q references unknown subject %q", b.ID, sid)
				continue
			}
			if _, dup := seen[sid]; dup {
				p.addf("batch %q lists subject %q more than once", b.ID, sid)
				continue
			}
			seen[sid] = struct{}{}
			subjects = append(subjects, sid)
		}
		info := &BatchInfo{ID: b.ID, Name: b.Name, Strength: b.Strength, SubjectIDs: subjects, Position: len(d.batchOrder)}
		d.batches[b.ID] = info
		d.batchOrder = append(d.batchOrder, info)
	}

	if len(p.list) > 0 {
		return nil, &ValidationError{Problems: p.list}
	}

	sort.Slice(d.facultyOrder, func(i, j int) bool { return d.facultyOrder[i].ID < d.facultyOrder[j].ID })
	sort.Slice(d.roomOrder, func(i, j int) bool { return d.roomOrder[i].ID < d.roomOrder[j].ID })

	return d, nil
}
