package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Omgp9308/timetable-scheduler/internal/dto"
	"github.com/Omgp9308/timetable-scheduler/internal/scheduler"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
	"github.com/Omgp9308/timetable-scheduler/pkg/export"
	"github.com/Omgp9308/timetable-scheduler/pkg/storage"
)

type publishedTimetableReader interface {
	GetPublished(ctx context.Context, query dto.PublishedQuery) (*dto.PublishedTimetable, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	// Retention is how long rendered files stay on disk.
	Retention time.Duration
	// CalendarWeeks bounds the weekly recurrence of iCalendar events.
	CalendarWeeks int
	Location      *time.Location
}

// ExportFile is a rendered export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders published timetables and serves them through signed links.
type ExportService struct {
	timetables publishedTimetableReader
	storage    fileStorage
	signer     *storage.SignedURLSigner
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	xlsx       *export.XLSXExporter
	ics        *export.ICSExporter
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ExportConfig
	now        func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(timetables publishedTimetableReader, files fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.CalendarWeeks <= 0 {
		cfg.CalendarWeeks = 16
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &ExportService{
		timetables: timetables,
		storage:    files,
		signer:     signer,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		xlsx:       export.NewXLSXExporter(),
		ics:        export.NewICSExporter(),
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Export renders the (filtered) published timetable and returns a signed download link.
func (s *ExportService) Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	view, err := s.timetables.GetPublished(ctx, dto.PublishedQuery{DepartmentID: req.DepartmentID, Type: req.Type, Value: req.Value})
	if err != nil {
		return nil, err
	}

	title := exportTitle(view, req.Type, req.Value)
	var (
		payload []byte
		ext     string
	)
	switch req.Format {
	case dto.ExportCSV:
		payload, err = s.csv.Render(buildDataset(view, title))
		ext = s.csv.Extension()
	case dto.ExportPDF:
		payload, err = s.pdf.Render(buildDataset(view, title), buildGrid(view))
		ext = s.pdf.Extension()
	case dto.ExportXLSX:
		payload, err = s.xlsx.Render(buildDataset(view, title), buildGrid(view))
		ext = s.xlsx.Extension()
	case dto.ExportICS:
		var cal export.Calendar
		cal, err = s.buildCalendar(view, title)
		if err == nil {
			payload, err = s.ics.Render(cal)
		}
		ext = s.ics.Extension()
	default:
		err = fmt.Errorf("unsupported format %s", req.Format)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	filename := fmt.Sprintf("%s_%s.%s", sanitizeFilename(title), s.now().UTC().Format("20060102_150405"), ext)
	relPath, err := s.storage.Save(path.Join(sanitizeFilename(view.DepartmentID), id, filename), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.metrics.RecordExport(req.Format)
	s.logger.Info("timetable exported",
		zap.String("department_id", view.DepartmentID),
		zap.String("format", req.Format),
		zap.String("path", relPath),
		zap.Int("bytes", len(payload)),
	)

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &dto.ExportResponse{
		URL:       fmt.Sprintf("%s/public/exports/%s", prefix, token.Token),
		Filename:  filename,
		Format:    req.Format,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// Download resolves a signed token to the stored file.
func (s *ExportService) Download(_ context.Context, token string) (*ExportFile, error) {
	parsed, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "download link has expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "download link is invalid")
	}
	data, err := s.storage.Read(parsed.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export")
	}
	name := path.Base(parsed.Path)
	return &ExportFile{Filename: name, ContentType: contentTypeFor(path.Ext(name)), Data: data}, nil
}

// Cleanup removes rendered files older than the retention window.
func (s *ExportService) Cleanup() ([]string, error) {
	removed, err := s.storage.CleanupOlderThan(s.cfg.Retention)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

// StartCleanup purges expired exports every interval until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Cleanup(); err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
				}
			}
		}
	}()
}

func contentTypeFor(ext string) string {
	switch strings.TrimPrefix(ext, ".") {
	case "csv":
		return export.NewCSVExporter().ContentType()
	case "pdf":
		return export.NewPDFExporter().ContentType()
	case "xlsx":
		return export.NewXLSXExporter().ContentType()
	case "ics":
		return export.NewICSExporter().ContentType()
	default:
		return "application/octet-stream"
	}
}

var exportHeaders = []string{"Day", "Timeslot", "Batch", "Subject", "Faculty", "Room"}

func exportTitle(view *dto.PublishedTimetable, kind, value string) string {
	title := fmt.Sprintf("Timetable %s", strings.ToUpper(view.DepartmentID))
	if kind != "" {
		title = fmt.Sprintf("%s %s %s", title, kind, value)
	}
	return title
}

func buildDataset(view *dto.PublishedTimetable, title string) export.Dataset {
	rows := make([]map[string]string, 0, len(view.Entries))
	for _, e := range view.Entries {
		rows = append(rows, map[string]string{
			"Day":      e.Day,
			"Timeslot": e.Timeslot,
			"Batch":    e.Batch,
			"Subject":  e.Subject,
			"Faculty":  e.Faculty,
			"Room":     e.Room,
		})
	}
	return export.Dataset{Title: title, Headers: exportHeaders, Rows: rows}
}

func buildGrid(view *dto.PublishedTimetable) export.Grid {
	grid := export.Grid{
		RowLabels:    scheduler.Days(),
		ColumnLabels: scheduler.Timeslots(),
		Cells:        make([][]string, scheduler.DaysPerWeek),
	}
	for d := range grid.Cells {
		grid.Cells[d] = make([]string, scheduler.SlotsPerDay)
		grid.Cells[d][scheduler.LunchSlot] = "Lunch"
	}
	for _, e := range view.Entries {
		day, ok := scheduler.DayIndex(e.Day)
		if !ok {
			continue
		}
		slot, ok := scheduler.SlotIndex(e.Timeslot)
		if !ok {
			continue
		}
		text := fmt.Sprintf("%s (%s, %s, %s)", e.Subject, e.Batch, e.Room, e.Faculty)
		if grid.Cells[day][slot] != "" {
			text = grid.Cells[day][slot] + "\n" + text
		}
		grid.Cells[day][slot] = text
	}
	return grid
}

func (s *ExportService) buildCalendar(view *dto.PublishedTimetable, title string) (export.Calendar, error) {
	weekStart := nextMonday(s.now().In(s.cfg.Location))
	cal := export.Calendar{Name: title, Weeks: s.cfg.CalendarWeeks}
	for i, e := range view.Entries {
		day, ok := scheduler.DayIndex(e.Day)
		if !ok {
			return cal, fmt.Errorf("entry %d has unknown day %q", i, e.Day)
		}
		start, end, err := slotBounds(weekStart.AddDate(0, 0, day), e.Timeslot)
		if err != nil {
			return cal, fmt.Errorf("entry %d: %w", i, err)
		}
		cal.Events = append(cal.Events, export.CalendarEvent{
			UID:         fmt.Sprintf("%s-%d@timetable-scheduler", view.DraftID, i),
			Summary:     fmt.Sprintf("%s (%s)", e.Subject, e.Batch),
			Location:    e.Room,
			Description: fmt.Sprintf("Faculty: %s", e.Faculty),
			Start:       start,
			End:         end,
		})
	}
	return cal, nil
}

// nextMonday returns midnight of the Monday on or after t.
func nextMonday(t time.Time) time.Time {
	offset := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	d := t.AddDate(0, 0, offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// slotBounds turns a "09:00-10:00" label into concrete times on day.
func slotBounds(day time.Time, label string) (time.Time, time.Time, error) {
	parts := strings.SplitN(label, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("malformed timeslot %q", label)
	}
	at := func(raw string) (time.Time, error) {
		clock, err := time.Parse("15:04", strings.TrimSpace(raw))
		if err != nil {
			return time.Time{}, fmt.Errorf("malformed timeslot %q: %w", label, err)
		}
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
	}
	start, err := at(parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := at(parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
