package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Omgp9308/timetable-scheduler/internal/dto"
	"github.com/Omgp9308/timetable-scheduler/internal/models"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
	"github.com/Omgp9308/timetable-scheduler/pkg/storage"
)

type stubPublishedReader struct {
	view  *dto.PublishedTimetable
	err   error
	calls []dto.PublishedQuery
}

func (s *stubPublishedReader) GetPublished(ctx context.Context, query dto.PublishedQuery) (*dto.PublishedTimetable, error) {
	s.calls = append(s.calls, query)
	if s.err != nil {
		return nil, s.err
	}
	view := *s.view
	return &view, nil
}

func publishedFixture() *dto.PublishedTimetable {
	entry := func(day, slot, subject string) models.ScheduleEntry {
		return models.ScheduleEntry{
			Day: day, Timeslot: slot,
			BatchID: "b1", Batch: "CSE-A",
			SubjectID: "ds", Subject: subject,
			FacultyID: "f1", Faculty: "Dr. Rao",
			RoomID: "r101", Room: "R101",
		}
	}
	return &dto.PublishedTimetable{
		DepartmentID: "cse",
		DraftID:      "draft-1",
		Name:         "Odd semester",
		Version:      1,
		PublishedAt:  time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		Entries: []models.ScheduleEntry{
			entry("Monday", "09:00-10:00", "Data Structures"),
			entry("Monday", "10:00-11:00", "Data Structures"),
			entry("Wednesday", "13:00-14:00", "Data Structures"),
		},
	}
}

func newTestExportService(t *testing.T, reader publishedTimetableReader) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(reader, files, storage.NewSignedURLSigner("secret", time.Hour), NewMetricsService(), nil, zap.NewNop(), ExportConfig{
		APIPrefix: "/api/",
		Retention: time.Hour,
		Location:  time.UTC,
	})
	// a Wednesday
	svc.now = func() time.Time { return time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC) }
	return svc, files
}

func TestExportServiceRoundTripsEveryFormat(t *testing.T) {
	reader := &stubPublishedReader{view: publishedFixture()}
	svc, _ := newTestExportService(t, reader)

	formats := map[string]struct {
		contentType string
		magic       []byte
	}{
		dto.ExportCSV:  {"text/csv", []byte("Day,Timeslot,Batch,Subject,Faculty,Room")},
		dto.ExportPDF:  {"application/pdf", []byte("%PDF")},
		dto.ExportXLSX: {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte("PK")},
		dto.ExportICS:  {"text/calendar", []byte("BEGIN:VCALENDAR")},
	}
	for format, want := range formats {
		t.Run(format, func(t *testing.T) {
			res, err := svc.Export(context.Background(), dto.ExportRequest{DepartmentID: "cse", Format: format})
			require.NoError(t, err)
			assert.Equal(t, format, res.Format)
			assert.True(t, strings.HasPrefix(res.URL, "/api/public/exports/"), res.URL)
			assert.True(t, strings.HasSuffix(res.Filename, "."+format), res.Filename)

			token := strings.TrimPrefix(res.URL, "/api/public/exports/")
			file, err := svc.Download(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, res.Filename, file.Filename)
			assert.Equal(t, want.contentType, file.ContentType)
			assert.True(t, bytes.HasPrefix(file.Data, want.magic), "unexpected %s header", format)
		})
	}
}

func TestExportServicePassesFilterThrough(t *testing.T) {
	reader := &stubPublishedReader{view: publishedFixture()}
	svc, _ := newTestExportService(t, reader)

	res, err := svc.Export(context.Background(), dto.ExportRequest{DepartmentID: "cse", Type: dto.FilterBatch, Value: "CSE-A", Format: dto.ExportCSV})
	require.NoError(t, err)
	require.Len(t, reader.calls, 1)
	assert.Equal(t, dto.PublishedQuery{DepartmentID: "cse", Type: dto.FilterBatch, Value: "CSE-A"}, reader.calls[0])
	assert.Contains(t, res.Filename, "batch_CSE-A")
}

func TestExportServiceCalendarStartsNextMonday(t *testing.T) {
	svc, _ := newTestExportService(t, &stubPublishedReader{view: publishedFixture()})

	cal, err := svc.buildCalendar(publishedFixture(), "Timetable CSE")
	require.NoError(t, err)
	require.Len(t, cal.Events, 3)
	assert.Equal(t, time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC), cal.Events[0].Start)
	assert.Equal(t, time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC), cal.Events[0].End)
	assert.Equal(t, time.Date(2026, 1, 14, 13, 0, 0, 0, time.UTC), cal.Events[2].Start)
	assert.Equal(t, "draft-1-0@timetable-scheduler", cal.Events[0].UID)
	assert.Equal(t, "R101", cal.Events[0].Location)
}

func TestExportServiceGridMarksLunchAndStacksEntries(t *testing.T) {
	view := publishedFixture()
	clash := view.Entries[0]
	clash.Batch = "CSE-B"
	view.Entries = append(view.Entries, clash)

	grid := buildGrid(view)
	require.Len(t, grid.Cells, 5)
	for _, row := range grid.Cells {
		assert.Equal(t, "Lunch", row[3])
	}
	assert.Equal(t, "Data Structures (CSE-A, R101, Dr. Rao)\nData Structures (CSE-B, R101, Dr. Rao)", grid.Cells[0][0])
	assert.Equal(t, "Data Structures (CSE-A, R101, Dr. Rao)", grid.Cells[2][4])
}

func TestExportServiceErrors(t *testing.T) {
	svc, _ := newTestExportService(t, &stubPublishedReader{err: appErrors.Clone(appErrors.ErrNotFound, "no timetable")})

	_, err := svc.Export(context.Background(), dto.ExportRequest{DepartmentID: "cse", Format: "docx"})
	requireAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Export(context.Background(), dto.ExportRequest{DepartmentID: "cse", Format: dto.ExportCSV})
	requireAppCode(t, err, appErrors.ErrNotFound.Code)

	_, err = svc.Download(context.Background(), "not-a-token")
	requireAppCode(t, err, appErrors.ErrNotFound.Code)
}

func TestExportServiceDownloadAfterCleanup(t *testing.T) {
	svc, _ := newTestExportService(t, &stubPublishedReader{view: publishedFixture()})
	res, err := svc.Export(context.Background(), dto.ExportRequest{DepartmentID: "cse", Format: dto.ExportCSV})
	require.NoError(t, err)

	svc.cfg.Retention = -time.Hour
	removed, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Len(t, removed, 1)

	_, err = svc.Download(context.Background(), strings.TrimPrefix(res.URL, "/api/public/exports/"))
	requireAppCode(t, err, appErrors.ErrNotFound.Code)
}
