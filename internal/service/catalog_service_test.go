package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Omgp9308/timetable-scheduler/internal/dto"
	"github.com/Omgp9308/timetable-scheduler/internal/models"
	"github.com/Omgp9308/timetable-scheduler/internal/workflow"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
)

type fakeDepartments struct {
	items []models.Department
}

func (f *fakeDepartments) List(ctx context.Context) ([]models.Department, error) {
	return f.items, nil
}

func (f *fakeDepartments) Exists(ctx context.Context, id string) (bool, error) {
	for _, d := range f.items {
		if d.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDepartments) Create(ctx context.Context, department *models.Department) error {
	f.items = append(f.items, *department)
	return nil
}

func newTestCatalogService(catalog *fakeCatalog) (*CatalogService, *fakeDraftRepo, *fakePublishedRepo) {
	drafts := newFakeDraftRepo()
	published := newFakePublishedRepo()
	departments := &fakeDepartments{items: []models.Department{{ID: "cse", Name: "Computer Science"}, {ID: "ece", Name: "Electronics"}}}
	return NewCatalogService(catalog, departments, drafts, published, nil, zap.NewNop()), drafts, published
}

func TestCatalogServiceSnapshotScopesDepartment(t *testing.T) {
	catalog := cseCatalog(40)
	catalog.rooms = append(catalog.rooms, models.Room{ID: "e1", DepartmentID: "ece", Name: "E1", Capacity: 60, Type: models.SessionLab})
	svc, _, _ := newTestCatalogService(catalog)

	snap, err := svc.Snapshot(context.Background(), hodActor, "")
	require.NoError(t, err)
	assert.Len(t, snap.Subjects, 1)
	require.Len(t, snap.Rooms, 1)
	assert.Equal(t, "R101", snap.Rooms[0].Name)

	snap, err = svc.Snapshot(context.Background(), adminActor, "ece")
	require.NoError(t, err)
	assert.Len(t, snap.Rooms, 1)
	assert.NotNil(t, snap.Subjects)
	assert.Empty(t, snap.Subjects)

	_, err = svc.Snapshot(context.Background(), hodActor, "ece")
	requireAppCode(t, err, appErrors.ErrForbidden.Code)
}

func TestCatalogServiceCreateRecords(t *testing.T) {
	catalog := cseCatalog(40)
	svc, _, _ := newTestCatalogService(catalog)
	ctx := context.Background()

	subject, err := svc.CreateSubject(ctx, hodActor, dto.CreateSubjectRequest{Name: " Compilers ", Credits: 3, Type: "Theory"})
	require.NoError(t, err)
	assert.Equal(t, "Compilers", subject.Name)
	assert.Equal(t, "cse", subject.DepartmentID)

	faculty, err := svc.CreateFaculty(ctx, hodActor, dto.CreateFacultyRequest{Name: "Dr. Iyer", Username: "iyer", Expertise: []string{subject.ID, "ds"}})
	require.NoError(t, err)
	require.NotNil(t, faculty.Username)
	assert.Equal(t, "iyer", *faculty.Username)

	room, err := svc.CreateRoom(ctx, adminActor, dto.CreateRoomRequest{DepartmentID: "cse", Name: "Lab 2", Capacity: 35, Type: "Lab"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionLab, room.Type)

	batch, err := svc.CreateBatch(ctx, teachActor, dto.CreateBatchRequest{Name: "CSE-B", Strength: 32, Subjects: []string{"ds", subject.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ds", subject.ID}, []string(batch.SubjectIDs))
	assert.Len(t, catalog.created, 4)
}

func TestCatalogServiceCreateRejectsInvalidInput(t *testing.T) {
	catalog := cseCatalog(40)
	catalog.subjects = append(catalog.subjects, models.Subject{ID: "e-sub", DepartmentID: "ece", Name: "Signals", Credits: 3, Type: models.SessionTheory})
	svc, _, _ := newTestCatalogService(catalog)
	ctx := context.Background()

	_, err := svc.CreateSubject(ctx, hodActor, dto.CreateSubjectRequest{Name: "X", Credits: 0, Type: "Theory"})
	requireAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.CreateRoom(ctx, hodActor, dto.CreateRoomRequest{Name: "X", Capacity: 10, Type: "Seminar"})
	requireAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.CreateBatch(ctx, hodActor, dto.CreateBatchRequest{Name: "X", Strength: 10, Subjects: []string{"e-sub"}})
	requireAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.CreateFaculty(ctx, hodActor, dto.CreateFacultyRequest{Name: "X", Expertise: []string{"ds", "ds"}})
	requireAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.CreateSubject(ctx, adminActor, dto.CreateSubjectRequest{DepartmentID: "mech", Name: "X", Credits: 1, Type: "Lab"})
	requireAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.CreateSubject(ctx, otherHOD, dto.CreateSubjectRequest{DepartmentID: "cse", Name: "X", Credits: 1, Type: "Lab"})
	requireAppCode(t, err, appErrors.ErrForbidden.Code)

	assert.Empty(t, catalog.created)
}

func TestCatalogServiceDelete(t *testing.T) {
	catalog := cseCatalog(40)
	svc, _, _ := newTestCatalogService(catalog)
	ctx := context.Background()

	err := svc.Delete(ctx, hodActor, CatalogSubjects, "", "ds")
	requireAppCode(t, err, appErrors.ErrConflict.Code)

	require.NoError(t, svc.Delete(ctx, hodActor, CatalogRooms, "", "r101"))
	assert.Equal(t, []string{"rooms/r101"}, catalog.deleted)

	err = svc.Delete(ctx, hodActor, CatalogBatches, "", "missing")
	requireAppCode(t, err, appErrors.ErrNotFound.Code)

	err = svc.Delete(ctx, otherHOD, CatalogBatches, "", "b1")
	requireAppCode(t, err, appErrors.ErrNotFound.Code)

	err = svc.Delete(ctx, hodActor, "users", "", "b1")
	requireAppCode(t, err, appErrors.ErrValidation.Code)
}

func TestCatalogServiceStats(t *testing.T) {
	catalog := cseCatalog(40)
	catalog.counts = map[string]int{CatalogSubjects: 4, CatalogFaculty: 3, CatalogRooms: 2, CatalogBatches: 1}
	svc, drafts, published := newTestCatalogService(catalog)
	ctx := context.Background()

	require.NoError(t, drafts.Create(ctx, nil, &models.TimetableDraft{DepartmentID: "cse", Name: "a"}))
	require.NoError(t, drafts.Create(ctx, nil, &models.TimetableDraft{DepartmentID: "cse", Name: "b", Status: workflow.StatusPendingApproval}))

	stats, err := svc.Stats(ctx, hodActor, "")
	require.NoError(t, err)
	assert.Equal(t, dto.CatalogStats{Subjects: 4, Faculty: 3, Rooms: 2, Batches: 1, Drafts: 1, PendingApprovals: 1}, *stats)

	_, err = published.Swap(ctx, nil, "cse", "draft-2", "hod_cse", 0)
	require.NoError(t, err)
	stats, err = svc.Stats(ctx, hodActor, "")
	require.NoError(t, err)
	assert.Equal(t, "draft-2", stats.PublishedDraftID)
}

func TestCatalogServiceDepartments(t *testing.T) {
	svc, _, _ := newTestCatalogService(cseCatalog(40))
	ctx := context.Background()

	dept, err := svc.CreateDepartment(ctx, dto.CreateDepartmentRequest{Name: "Mechanical Engineering"})
	require.NoError(t, err)
	assert.Equal(t, "mechanical-engineering", dept.ID)

	_, err = svc.CreateDepartment(ctx, dto.CreateDepartmentRequest{ID: "cse", Name: "Duplicate"})
	requireAppCode(t, err, appErrors.ErrConflict.Code)

	items, err := svc.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}
