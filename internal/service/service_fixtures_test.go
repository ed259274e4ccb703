package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/require"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
	"github.com/Omgp9308/timetable-scheduler/internal/repository"
	"github.com/Omgp9308/timetable-scheduler/internal/workflow"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type fakeCatalog struct {
	subjects []models.Subject
	faculty  []models.Faculty
	rooms    []models.Room
	batches  []models.Batch

	created []interface{}
	deleted []string
	counts  map[string]int
	refs    map[string][]string
}

// cseCatalog is a one-batch department that fits into three Monday morning slots.
func cseCatalog(roomCapacity int) *fakeCatalog {
	return &fakeCatalog{
		subjects: []models.Subject{{ID: "ds", DepartmentID: "cse", Name: "Data Structures", Credits: 3, Type: models.SessionTheory}},
		faculty:  []models.Faculty{{ID: "f1", DepartmentID: "cse", Name: "Dr. Rao", Expertise: []string{"ds"}}},
		rooms:    []models.Room{{ID: "r101", DepartmentID: "cse", Name: "R101", Capacity: roomCapacity, Type: models.SessionTheory}},
		batches:  []models.Batch{{ID: "b1", DepartmentID: "cse", Name: "CSE-A", Strength: 30, SubjectIDs: []string{"ds"}}},
	}
}

func (f *fakeCatalog) ListSubjects(ctx context.Context, departmentID string) ([]models.Subject, error) {
	var out []models.Subject
	for _, item := range f.subjects {
		if item.DepartmentID == departmentID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListFaculty(ctx context.Context, departmentID string) ([]models.Faculty, error) {
	var out []models.Faculty
	for _, item := range f.faculty {
		if item.DepartmentID == departmentID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListRooms(ctx context.Context, departmentID string) ([]models.Room, error) {
	var out []models.Room
	for _, item := range f.rooms {
		if item.DepartmentID == departmentID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListBatches(ctx context.Context, departmentID string) ([]models.Batch, error) {
	var out []models.Batch
	for _, item := range f.batches {
		if item.DepartmentID == departmentID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeCatalog) CreateSubject(ctx context.Context, subject *models.Subject) error {
	subject.ID = fmt.Sprintf("subject-%d", len(f.subjects)+1)
	f.subjects = append(f.subjects, *subject)
	f.created = append(f.created, subject)
	return nil
}

func (f *fakeCatalog) CreateFaculty(ctx context.Context, faculty *models.Faculty) error {
	faculty.ID = fmt.Sprintf("faculty-%d", len(f.faculty)+1)
	f.faculty = append(f.faculty, *faculty)
	f.created = append(f.created, faculty)
	return nil
}

func (f *fakeCatalog) CreateRoom(ctx context.Context, room *models.Room) error {
	room.ID = fmt.Sprintf("room-%d", len(f.rooms)+1)
	f.rooms = append(f.rooms, *room)
	f.created = append(f.created, room)
	return nil
}

func (f *fakeCatalog) CreateBatch(ctx context.Context, batch *models.Batch) error {
	batch.ID = fmt.Sprintf("batch-%d", len(f.batches)+1)
	f.batches = append(f.batches, *batch)
	f.created = append(f.created, batch)
	return nil
}

func (f *fakeCatalog) Delete(ctx context.Context, table, departmentID, id string) error {
	found := false
	switch table {
	case CatalogSubjects:
		for _, item := range f.subjects {
			found = found || (item.ID == id && item.DepartmentID == departmentID)
		}
	case CatalogFaculty:
		for _, item := range f.faculty {
			found = found || (item.ID == id && item.DepartmentID == departmentID)
		}
	case CatalogRooms:
		for _, item := range f.rooms {
			found = found || (item.ID == id && item.DepartmentID == departmentID)
		}
	case CatalogBatches:
		for _, item := range f.batches {
			found = found || (item.ID == id && item.DepartmentID == departmentID)
		}
	}
	if !found {
		return sql.ErrNoRows
	}
	f.deleted = append(f.deleted, table+"/"+id)
	return nil
}

func (f *fakeCatalog) Count(ctx context.Context, table, departmentID string) (int, error) {
	return f.counts[table], nil
}

func (f *fakeCatalog) BatchesReferencingSubject(ctx context.Context, subjectID string) ([]string, error) {
	var names []string
	for _, b := range f.batches {
		for _, sid := range b.SubjectIDs {
			if sid == subjectID {
				names = append(names, b.Name)
			}
		}
	}
	return names, nil
}

type fakeDraftRepo struct {
	mu      sync.Mutex
	seq     int
	drafts  map[string]*models.TimetableDraft
	entries map[string][]models.ScheduleEntry
	// staleUpdate makes UpdateStatus behave as if another writer moved the row first.
	staleUpdate bool
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{drafts: map[string]*models.TimetableDraft{}, entries: map[string][]models.ScheduleEntry{}}
}

func (f *fakeDraftRepo) Create(ctx context.Context, exec sqlx.ExtContext, draft *models.TimetableDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if draft.ID == "" {
		draft.ID = fmt.Sprintf("draft-%d", f.seq)
	}
	if draft.Status == "" {
		draft.Status = workflow.StatusDraft
	}
	now := time.Date(2026, 1, 5, 9, 0, f.seq, 0, time.UTC)
	draft.CreatedAt, draft.UpdatedAt = now, now
	stored := *draft
	stored.Entries = nil
	f.drafts[draft.ID] = &stored
	return nil
}

func (f *fakeDraftRepo) InsertEntries(ctx context.Context, exec sqlx.ExtContext, draftID string, entries []models.ScheduleEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]models.ScheduleEntry, len(entries))
	for i, e := range entries {
		e.DraftID = draftID
		e.Position = i
		stored[i] = e
	}
	f.entries[draftID] = stored
	return nil
}

func (f *fakeDraftRepo) FindByID(ctx context.Context, id string) (*models.TimetableDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *d
	return &out, nil
}

func (f *fakeDraftRepo) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimetableDraft, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeDraftRepo) ListByDepartment(ctx context.Context, departmentID string, statuses ...workflow.Status) ([]models.TimetableDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TimetableDraft
	for _, d := range f.drafts {
		if d.DepartmentID != departmentID {
			continue
		}
		for _, st := range statuses {
			if d.Status == st {
				out = append(out, *d)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeDraftRepo) CountByStatus(ctx context.Context, departmentID string, status workflow.Status) (int, error) {
	items, _ := f.ListByDepartment(ctx, departmentID, status)
	return len(items), nil
}

func (f *fakeDraftRepo) ListEntries(ctx context.Context, draftID string) ([]models.ScheduleEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ScheduleEntry(nil), f.entries[draftID]...), nil
}

func (f *fakeDraftRepo) ListEntriesByDrafts(ctx context.Context, draftIDs []string) (map[string][]models.ScheduleEntry, error) {
	out := make(map[string][]models.ScheduleEntry, len(draftIDs))
	for _, id := range draftIDs {
		out[id], _ = f.ListEntries(ctx, id)
	}
	return out, nil
}

func (f *fakeDraftRepo) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to workflow.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[id]
	if !ok || d.Status != from || f.staleUpdate {
		return sql.ErrNoRows
	}
	d.Status = to
	return nil
}

func (f *fakeDraftRepo) status(id string) workflow.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drafts[id].Status
}

type fakePublishedRepo struct {
	mu       sync.Mutex
	pointers map[string]models.PublishedTimetable
	// conflict forces Swap to report a lost race.
	conflict bool
	swaps    int
}

func newFakePublishedRepo() *fakePublishedRepo {
	return &fakePublishedRepo{pointers: map[string]models.PublishedTimetable{}}
}

func (f *fakePublishedRepo) Get(ctx context.Context, exec sqlx.ExtContext, departmentID string) (*models.PublishedTimetable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pointers[departmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (f *fakePublishedRepo) Swap(ctx context.Context, exec sqlx.ExtContext, departmentID, draftID, publishedBy string, expectedVersion int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := f.pointers[departmentID]
	if f.conflict || current.Version != expectedVersion {
		return 0, repository.ErrVersionConflict
	}
	f.swaps++
	next := models.PublishedTimetable{
		DepartmentID: departmentID,
		DraftID:      draftID,
		Version:      expectedVersion + 1,
		PublishedAt:  time.Date(2026, 1, 5, 10, 0, f.swaps, 0, time.UTC),
		PublishedBy:  publishedBy,
	}
	f.pointers[departmentID] = next
	return next.Version, nil
}

func newMemoryCacheService() *CacheService {
	store := gocache.New(time.Minute, time.Minute)
	return NewCacheService(repository.NewMemoryCacheRepository(store), nil, time.Minute, nil, true)
}

var (
	adminActor = Actor{UserID: "u-admin", Username: "admin", Role: models.RoleAdmin}
	hodActor   = Actor{UserID: "u-hod", Username: "hod_cse", Role: models.RoleHOD, DepartmentID: "cse"}
	teachActor = Actor{UserID: "u-teacher", Username: "teacher_cse", Role: models.RoleTeacher, DepartmentID: "cse"}
	otherHOD   = Actor{UserID: "u-hod-ece", Username: "hod_ece", Role: models.RoleHOD, DepartmentID: "ece"}
)
