package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/Omgp9308/timetable-scheduler/internal/dto"
	"github.com/Omgp9308/timetable-scheduler/internal/models"
	"github.com/Omgp9308/timetable-scheduler/internal/repository"
	"github.com/Omgp9308/timetable-scheduler/internal/scheduler"
	"github.com/Omgp9308/timetable-scheduler/internal/workflow"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
)

// InfeasibleMessage is returned to callers when no timetable could be built.
const InfeasibleMessage = "Could not generate a valid timetable with the given constraints."

type timetableCatalogReader interface {
	ListSubjects(ctx context.Context, departmentID string) ([]models.Subject, error)
	ListFaculty(ctx context.Context, departmentID string) ([]models.Faculty, error)
	ListRooms(ctx context.Context, departmentID string) ([]models.Room, error)
	ListBatches(ctx context.Context, departmentID string) ([]models.Batch, error)
}

type timetableDraftRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, draft *models.TimetableDraft) error
	InsertEntries(ctx context.Context, exec sqlx.ExtContext, draftID string, entries []models.ScheduleEntry) error
	FindByID(ctx context.Context, id string) (*models.TimetableDraft, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimetableDraft, error)
	ListByDepartment(ctx context.Context, departmentID string, statuses ...workflow.Status) ([]models.TimetableDraft, error)
	ListEntries(ctx context.Context, draftID string) ([]models.ScheduleEntry, error)
	ListEntriesByDrafts(ctx context.Context, draftIDs []string) (map[string][]models.ScheduleEntry, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to workflow.Status) error
}

type publishedPointerRepository interface {
	Get(ctx context.Context, exec sqlx.ExtContext, departmentID string) (*models.PublishedTimetable, error)
	Swap(ctx context.Context, exec sqlx.ExtContext, departmentID, draftID, publishedBy string, expectedVersion int64) (int64, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type generationRunner interface {
	Run(ctx context.Context, domain *scheduler.Domain, opts scheduler.Options) (*scheduler.Result, error)
}

// InlineRunner runs the allocator on the calling goroutine.
type InlineRunner struct{}

// Run implements generationRunner.
func (InlineRunner) Run(_ context.Context, domain *scheduler.Domain, opts scheduler.Options) (*scheduler.Result, error) {
	return scheduler.Allocate(domain, opts)
}

// TimetableConfig tunes generation and caching.
type TimetableConfig struct {
	MaxIterations       int
	Timeout             time.Duration
	LabBlocksPerWeek    int
	MaxFacultyDailyLoad int
	CacheTTL            time.Duration
}

// TimetableService generates timetables and moves drafts through approval.
type TimetableService struct {
	catalog   timetableCatalogReader
	drafts    timetableDraftRepository
	published publishedPointerRepository
	tx        txProvider
	runner    generationRunner
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableConfig
}

// NewTimetableService wires the timetable use cases.
func NewTimetableService(
	catalog timetableCatalogReader,
	drafts timetableDraftRepository,
	published publishedPointerRepository,
	tx txProvider,
	runner generationRunner,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = InlineRunner{}
	}
	return &TimetableService{
		catalog:   catalog,
		drafts:    drafts,
		published: published,
		tx:        tx,
		runner:    runner,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

type generation struct {
	departmentID string
	entries      []models.ScheduleEntry
	result       *scheduler.Result
	opts         scheduler.Options
}

// Generate runs the allocator for a department without persisting anything.
// An infeasible department is reported through the failure response, not an error.
func (s *TimetableService) Generate(ctx context.Context, actor Actor, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	gen, err := s.generate(ctx, actor, req.DepartmentID)
	if err != nil {
		var infeasible *scheduler.InfeasibleError
		if errors.As(err, &infeasible) {
			return &dto.GenerateResponse{
				Status:  dto.GenerateStatusFailure,
				Message: InfeasibleMessage,
				Reason:  string(infeasible.Reason),
				Stats:   &dto.GenerateStats{Iterations: infeasible.Iterations, Backtracks: infeasible.Backtracks},
			}, nil
		}
		return nil, err
	}
	return &dto.GenerateResponse{
		Status:    dto.GenerateStatusSuccess,
		Timetable: gen.entries,
		Stats:     generateStats(gen.result),
	}, nil
}

// GenerateAndSave generates a timetable and stores it as a new DRAFT.
func (s *TimetableService) GenerateAndSave(ctx context.Context, actor Actor, req dto.GenerateAndSaveRequest) (*dto.GenerateAndSaveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	gen, err := s.generate(ctx, actor, req.DepartmentID)
	if err != nil {
		var infeasible *scheduler.InfeasibleError
		if errors.As(err, &infeasible) {
			return nil, appErrors.Wrap(infeasible, appErrors.ErrInfeasible.Code, appErrors.ErrInfeasible.Status, InfeasibleMessage).
				WithDetails(map[string]interface{}{"reason": infeasible.Reason, "detail": infeasible.Detail})
		}
		return nil, err
	}

	meta, err := json.Marshal(models.GenerationMeta{
		Tasks:               gen.result.Tasks,
		Entries:             len(gen.entries),
		Iterations:          gen.result.Iterations,
		Backtracks:          gen.result.Backtracks,
		ElapsedMS:           gen.result.Elapsed.Milliseconds(),
		LabBlocksPerWeek:    gen.opts.LabBlocksPerWeek,
		MaxFacultyDailyLoad: gen.opts.MaxFacultyDailyLoad,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode generation metadata")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("%s timetable %s", strings.ToUpper(gen.departmentID), time.Now().UTC().Format("2006-01-02 15:04"))
	}
	draft := &models.TimetableDraft{
		DepartmentID: gen.departmentID,
		Name:         name,
		Owner:        actor.Name(),
		Status:       workflow.StatusDraft,
		Meta:         types.JSONText(meta),
	}

	if err := s.saveDraft(ctx, draft, gen.entries); err != nil {
		return nil, err
	}
	draft.Entries = gen.entries

	s.logger.Info("timetable draft saved",
		zap.String("draft_id", draft.ID),
		zap.String("department_id", draft.DepartmentID),
		zap.Int("entries", len(draft.Entries)),
	)
	return &dto.GenerateAndSaveResponse{Message: "Timetable generated and saved as a draft.", Draft: draft}, nil
}

func (s *TimetableService) saveDraft(ctx context.Context, draft *models.TimetableDraft, entries []models.ScheduleEntry) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err := s.drafts.Create(ctx, tx, draft); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable draft")
	}
	if err := s.drafts.InsertEntries(ctx, tx, draft.ID, entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable entries")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable draft")
	}
	return nil
}

func (s *TimetableService) generate(ctx context.Context, actor Actor, requested string) (*generation, error) {
	departmentID, err := resolveDepartment(actor, requested)
	if err != nil {
		return nil, err
	}

	input, err := s.loadInput(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	domain, err := scheduler.Load(input)
	if err != nil {
		var invalid *scheduler.ValidationError
		if errors.As(err, &invalid) {
			s.metrics.ObserveGeneration(GenerationInvalid, 0, 0)
			return nil, appErrors.Wrap(invalid, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheduling input").
				WithDetails(invalid.Problems)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare scheduling input")
	}

	opts := scheduler.Options{
		MaxIterations:       s.cfg.MaxIterations,
		Timeout:             s.cfg.Timeout,
		LabBlocksPerWeek:    s.cfg.LabBlocksPerWeek,
		MaxFacultyDailyLoad: s.cfg.MaxFacultyDailyLoad,
	}
	if opts.LabBlocksPerWeek <= 0 {
		opts.LabBlocksPerWeek = scheduler.DefaultLabBlocksPerWeek
	}

	started := time.Now()
	result, err := s.runner.Run(ctx, domain, opts)
	elapsed := time.Since(started)
	if err != nil {
		var infeasible *scheduler.InfeasibleError
		switch {
		case errors.As(err, &infeasible):
			outcome := GenerationInfeasible
			if infeasible.Reason == scheduler.BudgetExceeded {
				outcome = GenerationBudget
			}
			s.metrics.ObserveGeneration(outcome, elapsed, infeasible.Iterations)
			s.logger.Info("timetable generation infeasible",
				zap.String("department_id", departmentID),
				zap.String("reason", string(infeasible.Reason)),
				zap.String("detail", infeasible.Detail),
				zap.Int("iterations", infeasible.Iterations),
				zap.Int("backtracks", infeasible.Backtracks),
				zap.Duration("elapsed", elapsed),
			)
			return nil, infeasible
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.metrics.ObserveGeneration(GenerationFailed, elapsed, 0)
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "timetable generation was cancelled")
		default:
			s.metrics.ObserveGeneration(GenerationFailed, elapsed, 0)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable generation failed")
		}
	}

	s.metrics.ObserveGeneration(GenerationSucceeded, elapsed, result.Iterations)
	s.logger.Info("timetable generated",
		zap.String("department_id", departmentID),
		zap.Int("tasks", result.Tasks),
		zap.Int("entries", len(result.Entries)),
		zap.Int("iterations", result.Iterations),
		zap.Int("backtracks", result.Backtracks),
		zap.Duration("elapsed", result.Elapsed),
	)

	return &generation{
		departmentID: departmentID,
		entries:      toScheduleEntries(domain, result.Entries),
		result:       result,
		opts:         opts,
	}, nil
}

func (s *TimetableService) loadInput(ctx context.Context, departmentID string) (scheduler.Input, error) {
	input := scheduler.Input{DepartmentID: departmentID}

	subjects, err := s.catalog.ListSubjects(ctx, departmentID)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	faculty, err := s.catalog.ListFaculty(ctx, departmentID)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	rooms, err := s.catalog.ListRooms(ctx, departmentID)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	batches, err := s.catalog.ListBatches(ctx, departmentID)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batches")
	}

	for _, item := range subjects {
		input.Subjects = append(input.Subjects, scheduler.Subject{
			ID: item.ID, DepartmentID: item.DepartmentID, Name: item.Name, Credits: item.Credits, Type: string(item.Type),
		})
	}
	for _, item := range faculty {
		input.Faculty = append(input.Faculty, scheduler.Faculty{
			ID: item.ID, DepartmentID: item.DepartmentID, Name: item.Name, Expertise: item.Expertise,
		})
	}
	for _, item := range rooms {
		input.Rooms = append(input.Rooms, scheduler.Room{
			ID: item.ID, DepartmentID: item.DepartmentID, Name: item.Name, Capacity: item.Capacity, Type: string(item.Type),
		})
	}
	for _, item := range batches {
		input.Batches = append(input.Batches, scheduler.Batch{
			ID: item.ID, DepartmentID: item.DepartmentID, Name: item.Name, Strength: item.Strength, SubjectIDs: item.SubjectIDs,
		})
	}
	return input, nil
}

func toScheduleEntries(domain *scheduler.Domain, entries []scheduler.Entry) []models.ScheduleEntry {
	out := make([]models.ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		item := models.ScheduleEntry{
			Day:       scheduler.DayName(e.Day),
			Timeslot:  scheduler.SlotLabel(e.Slot),
			BatchID:   e.BatchID,
			SubjectID: e.SubjectID,
			FacultyID: e.FacultyID,
			RoomID:    e.RoomID,
		}
		if b, ok := domain.Batch(e.BatchID); ok {
			item.Batch = b.Name
		}
		if sub, ok := domain.Subject(e.SubjectID); ok {
			item.Subject = sub.Name
		}
		if f, ok := domain.Faculty(e.FacultyID); ok {
			item.Faculty = f.Name
		}
		if r, ok := domain.Room(e.RoomID); ok {
			item.Room = r.Name
		}
		out = append(out, item)
	}
	return out
}

func generateStats(result *scheduler.Result) *dto.GenerateStats {
	if result == nil {
		return nil
	}
	return &dto.GenerateStats{
		Tasks:      result.Tasks,
		Iterations: result.Iterations,
		Backtracks: result.Backtracks,
		ElapsedMS:  result.Elapsed.Milliseconds(),
	}
}

// ListDrafts returns the department's drafts still in DRAFT status.
func (s *TimetableService) ListDrafts(ctx context.Context, actor Actor, departmentID string) ([]models.TimetableDraft, error) {
	return s.listByStatus(ctx, actor, departmentID, workflow.StatusDraft)
}

// ListPending returns the department's drafts awaiting approval.
func (s *TimetableService) ListPending(ctx context.Context, actor Actor, departmentID string) ([]models.TimetableDraft, error) {
	return s.listByStatus(ctx, actor, departmentID, workflow.StatusPendingApproval)
}

func (s *TimetableService) listByStatus(ctx context.Context, actor Actor, requested string, status workflow.Status) ([]models.TimetableDraft, error) {
	departmentID, err := resolveDepartment(actor, requested)
	if err != nil {
		return nil, err
	}
	drafts, err := s.drafts.ListByDepartment(ctx, departmentID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	if len(drafts) == 0 {
		return []models.TimetableDraft{}, nil
	}

	ids := make([]string, len(drafts))
	for i := range drafts {
		ids[i] = drafts[i].ID
	}
	grouped, err := s.drafts.ListEntriesByDrafts(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
	}
	for i := range drafts {
		drafts[i].Entries = orEmpty(grouped[drafts[i].ID])
	}
	return drafts, nil
}

// GetDraft loads a draft and its entries.
func (s *TimetableService) GetDraft(ctx context.Context, actor Actor, id string) (*models.TimetableDraft, error) {
	draft, err := s.drafts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if err := authorizeDepartment(actor, draft.DepartmentID); err != nil {
		return nil, err
	}
	entries, err := s.drafts.ListEntries(ctx, draft.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
	}
	draft.Entries = orEmpty(entries)
	return draft, nil
}

// Submit moves a DRAFT to PENDING_APPROVAL.
func (s *TimetableService) Submit(ctx context.Context, actor Actor, id string) (*models.TimetableDraft, error) {
	return s.transition(ctx, actor, id, workflow.ActionSubmit)
}

// Approve approves a pending draft and makes it the department's published
// timetable in the same transaction.
func (s *TimetableService) Approve(ctx context.Context, actor Actor, id string) (*models.TimetableDraft, error) {
	return s.transition(ctx, actor, id, workflow.ActionApprove)
}

// Reject rejects a pending draft.
func (s *TimetableService) Reject(ctx context.Context, actor Actor, id string) (*models.TimetableDraft, error) {
	return s.transition(ctx, actor, id, workflow.ActionReject)
}

func (s *TimetableService) transition(ctx context.Context, actor Actor, id string, action workflow.Action) (draft *models.TimetableDraft, err error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			s.metrics.RecordTransition(string(action), false)
		}
	}()

	draft, err = s.drafts.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if err := authorizeDepartment(actor, draft.DepartmentID); err != nil {
		return nil, err
	}

	next, err := workflow.Apply(draft.Status, action)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidState.Code, appErrors.ErrInvalidState.Status, err.Error())
	}
	if err := s.drafts.UpdateStatus(ctx, tx, draft.ID, draft.Status, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrConcurrencyConflict.Code, appErrors.ErrConcurrencyConflict.Status, "timetable status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable status")
	}

	var version int64
	if workflow.Publishes(action) {
		if version, err = s.publish(ctx, tx, actor, draft); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transition")
	}

	previous := draft.Status
	draft.Status = next
	draft.UpdatedAt = time.Now().UTC()
	s.metrics.RecordTransition(string(action), true)

	fields := []zap.Field{
		zap.String("draft_id", draft.ID),
		zap.String("department_id", draft.DepartmentID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
		zap.String("actor", actor.Name()),
	}
	if workflow.Publishes(action) {
		fields = append(fields, zap.Int64("published_version", version))
		_ = s.cache.Invalidate(ctx, publishedCachePrefix(draft.DepartmentID))
	}
	s.logger.Info("timetable transitioned", fields...)

	entries, listErr := s.drafts.ListEntries(ctx, draft.ID)
	if listErr != nil {
		s.logger.Warn("failed to load entries after transition", zap.String("draft_id", draft.ID), zap.Error(listErr))
		draft.Entries = []models.ScheduleEntry{}
		return draft, nil
	}
	draft.Entries = orEmpty(entries)
	return draft, nil
}

func (s *TimetableService) publish(ctx context.Context, tx sqlx.ExtContext, actor Actor, draft *models.TimetableDraft) (int64, error) {
	var expected int64
	current, err := s.published.Get(ctx, tx, draft.DepartmentID)
	switch {
	case err == nil:
		expected = current.Version
	case errors.Is(err, sql.ErrNoRows):
	default:
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read published timetable")
	}

	version, err := s.published.Swap(ctx, tx, draft.DepartmentID, draft.ID, actor.Name(), expected)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return 0, appErrors.Wrap(err, appErrors.ErrConcurrencyConflict.Code, appErrors.ErrConcurrencyConflict.Status, "another timetable was published concurrently, retry the approval")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
	}
	return version, nil
}

func publishedCachePrefix(departmentID string) string {
	return "timetable:published:" + departmentID + ":"
}

// publishedCacheKey is bound to the pointer version, so a view loaded for a
// superseded version is never served once the pointer has moved.
func publishedCacheKey(departmentID string, version int64) string {
	return fmt.Sprintf("%sv%d", publishedCachePrefix(departmentID), version)
}

// GetPublished returns the department's live timetable, optionally filtered
// to one batch, faculty member or room.
func (s *TimetableService) GetPublished(ctx context.Context, query dto.PublishedQuery) (*dto.PublishedTimetable, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}
	view, err := s.publishedView(ctx, query.DepartmentID)
	if err != nil {
		return nil, err
	}
	if query.Type != "" {
		view.Entries = filterEntries(view.Entries, query.Type, query.Value)
	}
	return view, nil
}

func (s *TimetableService) publishedView(ctx context.Context, departmentID string) (*dto.PublishedTimetable, error) {
	pointer, err := s.published.Get(ctx, nil, departmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable has been published for this department")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read published timetable")
	}

	key := publishedCacheKey(departmentID, pointer.Version)
	var cached dto.PublishedTimetable
	if hit, _ := s.cache.Get(ctx, key, &cached); hit && cached.DraftID == pointer.DraftID {
		return &cached, nil
	}

	draft, err := s.drafts.FindByID(ctx, pointer.DraftID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published timetable")
	}
	entries, err := s.drafts.ListEntries(ctx, pointer.DraftID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published entries")
	}

	view := &dto.PublishedTimetable{
		DepartmentID: departmentID,
		DraftID:      pointer.DraftID,
		Name:         draft.Name,
		Version:      pointer.Version,
		PublishedAt:  pointer.PublishedAt,
		Entries:      orEmpty(entries),
	}
	_ = s.cache.Set(ctx, key, view, s.cfg.CacheTTL)
	return view, nil
}

func orEmpty(entries []models.ScheduleEntry) []models.ScheduleEntry {
	if entries == nil {
		return []models.ScheduleEntry{}
	}
	return entries
}

func filterEntries(entries []models.ScheduleEntry, kind, value string) []models.ScheduleEntry {
	value = strings.TrimSpace(value)
	matches := func(id, name string) bool {
		return id == value || strings.EqualFold(name, value)
	}
	out := make([]models.ScheduleEntry, 0)
	for _, e := range entries {
		var ok bool
		switch kind {
		case dto.FilterBatch:
			ok = matches(e.BatchID, e.Batch)
		case dto.FilterFaculty:
			ok = matches(e.FacultyID, e.Faculty)
		case dto.FilterRoom:
			ok = matches(e.RoomID, e.Room)
		}
		if ok {
			out = append(out, e)
		}
	}
	return out
}

// Filters lists the sorted batch, faculty and room names of a department for
// the public viewer's dropdowns.
func (s *TimetableService) Filters(ctx context.Context, departmentID string) (*dto.FilterOptions, error) {
	departmentID = strings.TrimSpace(departmentID)
	if departmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department_id is required")
	}
	input, err := s.loadInput(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	opts := &dto.FilterOptions{Batches: []string{}, Faculty: []string{}, Rooms: []string{}}
	for _, b := range input.Batches {
		opts.Batches = append(opts.Batches, b.Name)
	}
	for _, f := range input.Faculty {
		opts.Faculty = append(opts.Faculty, f.Name)
	}
	for _, r := range input.Rooms {
		opts.Rooms = append(opts.Rooms, r.Name)
	}
	sort.Strings(opts.Batches)
	sort.Strings(opts.Faculty)
	sort.Strings(opts.Rooms)
	return opts, nil
}
