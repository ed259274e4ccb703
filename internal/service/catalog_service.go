package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Omgp9308/timetable-scheduler/internal/dto"
	"github.com/Omgp9308/timetable-scheduler/internal/models"
	"github.com/Omgp9308/timetable-scheduler/internal/workflow"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
)

// Catalog kinds double as table names.
const (
	CatalogSubjects = "subjects"
	CatalogFaculty  = "faculty"
	CatalogRooms    = "rooms"
	CatalogBatches  = "batches"
)

type catalogRepository interface {
	timetableCatalogReader
	CreateSubject(ctx context.Context, subject *models.Subject) error
	CreateFaculty(ctx context.Context, faculty *models.Faculty) error
	CreateRoom(ctx context.Context, room *models.Room) error
	CreateBatch(ctx context.Context, batch *models.Batch) error
	Delete(ctx context.Context, table, departmentID, id string) error
	Count(ctx context.Context, table, departmentID string) (int, error)
	BatchesReferencingSubject(ctx context.Context, subjectID string) ([]string, error)
}

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, department *models.Department) error
}

type draftCounter interface {
	CountByStatus(ctx context.Context, departmentID string, status workflow.Status) (int, error)
}

// CatalogService manages subjects, faculty, rooms, batches and departments.
type CatalogService struct {
	catalog     catalogRepository
	departments departmentRepository
	drafts      draftCounter
	published   publishedPointerRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(catalog catalogRepository, departments departmentRepository, drafts draftCounter, published publishedPointerRepository, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		catalog:     catalog,
		departments: departments,
		drafts:      drafts,
		published:   published,
		validator:   validate,
		logger:      logger,
	}
}

// Snapshot returns every catalog record of a department.
func (s *CatalogService) Snapshot(ctx context.Context, actor Actor, departmentID string) (*dto.CatalogSnapshot, error) {
	dept, err := resolveDepartment(actor, departmentID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.catalog.ListSubjects(ctx, dept)
	if err != nil {
		return nil, catalogReadError(err)
	}
	faculty, err := s.catalog.ListFaculty(ctx, dept)
	if err != nil {
		return nil, catalogReadError(err)
	}
	rooms, err := s.catalog.ListRooms(ctx, dept)
	if err != nil {
		return nil, catalogReadError(err)
	}
	batches, err := s.catalog.ListBatches(ctx, dept)
	if err != nil {
		return nil, catalogReadError(err)
	}
	return &dto.CatalogSnapshot{
		Subjects: nonNil(subjects),
		Faculty:  nonNil(faculty),
		Rooms:    nonNil(rooms),
		Batches:  nonNil(batches),
	}, nil
}

// Stats returns dashboard counters for a department.
func (s *CatalogService) Stats(ctx context.Context, actor Actor, departmentID string) (*dto.CatalogStats, error) {
	dept, err := resolveDepartment(actor, departmentID)
	if err != nil {
		return nil, err
	}
	var stats dto.CatalogStats
	counters := []struct {
		table string
		dst   *int
	}{
		{CatalogSubjects, &stats.Subjects},
		{CatalogFaculty, &stats.Faculty},
		{CatalogRooms, &stats.Rooms},
		{CatalogBatches, &stats.Batches},
	}
	for _, c := range counters {
		if *c.dst, err = s.catalog.Count(ctx, c.table, dept); err != nil {
			return nil, catalogReadError(err)
		}
	}
	if stats.Drafts, err = s.drafts.CountByStatus(ctx, dept, workflow.StatusDraft); err != nil {
		return nil, catalogReadError(err)
	}
	if stats.PendingApprovals, err = s.drafts.CountByStatus(ctx, dept, workflow.StatusPendingApproval); err != nil {
		return nil, catalogReadError(err)
	}
	pointer, err := s.published.Get(ctx, nil, dept)
	switch {
	case err == nil:
		stats.PublishedDraftID = pointer.DraftID
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, catalogReadError(err)
	}
	return &stats, nil
}

// CreateSubject adds a subject.
func (s *CatalogService) CreateSubject(ctx context.Context, actor Actor, req dto.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	dept, err := s.writableDepartment(ctx, actor, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	subject := &models.Subject{DepartmentID: dept, Name: strings.TrimSpace(req.Name), Credits: req.Credits, Type: models.SessionType(req.Type)}
	if err := s.catalog.CreateSubject(ctx, subject); err != nil {
		return nil, catalogWriteError(err, "subject")
	}
	s.logCreated(actor, CatalogSubjects, subject.ID, dept)
	return subject, nil
}

// CreateFaculty adds a faculty member. Expertise must name subjects of the same department.
func (s *CatalogService) CreateFaculty(ctx context.Context, actor Actor, req dto.CreateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	dept, err := s.writableDepartment(ctx, actor, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireSubjects(ctx, dept, "expertise", req.Expertise); err != nil {
		return nil, err
	}
	faculty := &models.Faculty{DepartmentID: dept, Name: strings.TrimSpace(req.Name), Expertise: pq.StringArray(req.Expertise)}
	if username := strings.TrimSpace(req.Username); username != "" {
		faculty.Username = &username
	}
	if err := s.catalog.CreateFaculty(ctx, faculty); err != nil {
		return nil, catalogWriteError(err, "faculty")
	}
	s.logCreated(actor, CatalogFaculty, faculty.ID, dept)
	return faculty, nil
}

// CreateRoom adds a room.
func (s *CatalogService) CreateRoom(ctx context.Context, actor Actor, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	dept, err := s.writableDepartment(ctx, actor, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	room := &models.Room{DepartmentID: dept, Name: strings.TrimSpace(req.Name), Capacity: req.Capacity, Type: models.SessionType(req.Type)}
	if err := s.catalog.CreateRoom(ctx, room); err != nil {
		return nil, catalogWriteError(err, "room")
	}
	s.logCreated(actor, CatalogRooms, room.ID, dept)
	return room, nil
}

// CreateBatch adds a batch. Subjects must belong to the same department.
func (s *CatalogService) CreateBatch(ctx context.Context, actor Actor, req dto.CreateBatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	dept, err := s.writableDepartment(ctx, actor, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireSubjects(ctx, dept, "subjects", req.Subjects); err != nil {
		return nil, err
	}
	batch := &models.Batch{DepartmentID: dept, Name: strings.TrimSpace(req.Name), Strength: req.Strength, SubjectIDs: pq.StringArray(req.Subjects)}
	if err := s.catalog.CreateBatch(ctx, batch); err != nil {
		return nil, catalogWriteError(err, "batch")
	}
	s.logCreated(actor, CatalogBatches, batch.ID, dept)
	return batch, nil
}

// Delete removes a catalog record. A subject still listed by a batch cannot be removed.
func (s *CatalogService) Delete(ctx context.Context, actor Actor, kind, departmentID, id string) error {
	switch kind {
	case CatalogSubjects, CatalogFaculty, CatalogRooms, CatalogBatches:
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown catalog kind %q", kind))
	}
	dept, err := resolveDepartment(actor, departmentID)
	if err != nil {
		return err
	}
	if kind == CatalogSubjects {
		batches, err := s.catalog.BatchesReferencingSubject(ctx, id)
		if err != nil {
			return catalogReadError(err)
		}
		if len(batches) > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "subject is still assigned to batches").
				WithDetails(map[string]interface{}{"batches": batches})
		}
	}
	if err := s.catalog.Delete(ctx, kind, dept, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete record")
	}
	s.logger.Info("catalog record deleted",
		zap.String("kind", kind),
		zap.String("id", id),
		zap.String("department_id", dept),
		zap.String("actor", actor.Name()),
	)
	return nil
}

// ListDepartments returns every department.
func (s *CatalogService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	items, err := s.departments.List(ctx)
	if err != nil {
		return nil, catalogReadError(err)
	}
	return nonNil(items), nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// CreateDepartment adds a department, deriving the id from the name when absent.
func (s *CatalogService) CreateDepartment(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(req.Name), "-"), "-")
	}
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department id cannot be derived from name")
	}
	exists, err := s.departments.Exists(ctx, id)
	if err != nil {
		return nil, catalogReadError(err)
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department already exists")
	}
	department := &models.Department{ID: id, Name: strings.TrimSpace(req.Name)}
	if err := s.departments.Create(ctx, department); err != nil {
		return nil, catalogWriteError(err, "department")
	}
	s.logger.Info("department created", zap.String("department_id", id))
	return department, nil
}

func (s *CatalogService) writableDepartment(ctx context.Context, actor Actor, requested string) (string, error) {
	dept, err := resolveDepartment(actor, requested)
	if err != nil {
		return "", err
	}
	exists, err := s.departments.Exists(ctx, dept)
	if err != nil {
		return "", catalogReadError(err)
	}
	if !exists {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown department %q", dept))
	}
	return dept, nil
}

// requireSubjects rejects references to subjects outside the department.
func (s *CatalogService) requireSubjects(ctx context.Context, dept, field string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	subjects, err := s.catalog.ListSubjects(ctx, dept)
	if err != nil {
		return catalogReadError(err)
	}
	known := make(map[string]bool, len(subjects))
	for _, subj := range subjects {
		known[subj.ID] = true
	}
	seen := make(map[string]bool, len(ids))
	var problems []string
	for _, id := range ids {
		switch {
		case seen[id]:
			problems = append(problems, fmt.Sprintf("%s lists subject %q twice", field, id))
		case !known[id]:
			problems = append(problems, fmt.Sprintf("%s references unknown subject %q", field, id))
		}
		seen[id] = true
	}
	if len(problems) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "invalid subject references").WithDetails(problems)
	}
	return nil
}

func (s *CatalogService) logCreated(actor Actor, kind, id, dept string) {
	s.logger.Info("catalog record created",
		zap.String("kind", kind),
		zap.String("id", id),
		zap.String("department_id", dept),
		zap.String("actor", actor.Name()),
	)
}

func catalogReadError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
}

func catalogWriteError(err error, what string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return appErrors.Clone(appErrors.ErrConflict, what+" already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save "+what)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
