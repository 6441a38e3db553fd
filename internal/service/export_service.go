package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roomboard/internal/dto"
	"github.com/noah-isme/roomboard/internal/models"
	appErrors "github.com/noah-isme/roomboard/pkg/errors"
	"github.com/noah-isme/roomboard/pkg/export"
)

// Export kinds and formats accepted by ExportService.
const (
	ExportKindPlacements = "placements"
	ExportKindConflicts  = "conflicts"

	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
	ExportFormatICS = "ics"
)

var placementHeaders = []string{"Course ID", "Duration Days", "First Day", "Last Day", "Event ID", "Room Number", "Start Day", "Draft"}

var conflictHeaders = []string{"Event ID", "Course ID", "Instructor", "Scheduled Days", "Conflict Days"}

type boardReader interface {
	ExportPlacements(ctx context.Context, eventID string) []models.PlacementRow
	ConflictReport(ctx context.Context) []models.ConflictRow
	Events(ctx context.Context) []dto.EventView
	Courses(ctx context.Context) []dto.CourseView
}

// FileStorage archives rendered exports.
type FileStorage interface {
	Save(filename string, data []byte) (string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type icsRenderer interface {
	Render(entries []export.CalendarEntry, name string) ([]byte, error)
}

// ExportResult is a rendered export ready to be sent or written.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	StoredPath  string
}

// ExportService renders board schedules and conflict reports as CSV, PDF or iCalendar.
type ExportService struct {
	board     boardReader
	storage   FileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	ics       icsRenderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Storage is optional; when set every
// rendered file is also archived there.
func NewExportService(board boardReader, storage FileStorage, validate *validator.Validate, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, ics icsRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if ics == nil {
		ics = export.NewICSExporter("")
	}
	return &ExportService{
		board:     board,
		storage:   storage,
		csv:       csv,
		pdf:       pdf,
		ics:       ics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Export renders the requested report.
func (s *ExportService) Export(ctx context.Context, query dto.ExportQuery) (*ExportResult, error) {
	if query.Kind == "" {
		query.Kind = ExportKindPlacements
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	if query.Kind == ExportKindConflicts && query.Format == ExportFormatICS {
		return nil, appErrors.Clone(appErrors.ErrValidation, "conflict reports cannot be exported as ics")
	}

	var (
		body        []byte
		contentType string
		err         error
	)
	switch query.Format {
	case ExportFormatICS:
		body, err = s.ics.Render(s.calendarEntries(ctx, query.EventID), s.title(query))
		contentType = "text/calendar; charset=utf-8"
	case ExportFormatPDF:
		body, err = s.pdf.Render(s.dataset(ctx, query), s.title(query))
		contentType = "application/pdf"
	default:
		body, err = s.csv.Render(s.dataset(ctx, query))
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	result := &ExportResult{
		Filename:    s.buildFilename(query),
		ContentType: contentType,
		Body:        body,
	}
	if s.storage != nil {
		path, err := s.storage.Save(result.Filename, body)
		if err != nil {
			s.logger.Warn("export archive failed", zap.String("file", result.Filename), zap.Error(err))
		} else {
			result.StoredPath = path
		}
	}
	s.logger.Info("export rendered",
		zap.String("kind", query.Kind),
		zap.String("format", query.Format),
		zap.String("event_id", query.EventID),
		zap.Int("bytes", len(body)),
	)
	return result, nil
}

func (s *ExportService) dataset(ctx context.Context, query dto.ExportQuery) export.Dataset {
	if query.Kind == ExportKindConflicts {
		rows := s.board.ConflictReport(ctx)
		data := export.Dataset{Headers: conflictHeaders, Rows: make([]map[string]string, 0, len(rows))}
		for _, row := range rows {
			if query.EventID != "" && row.EventID != query.EventID {
				continue
			}
			data.Rows = append(data.Rows, map[string]string{
				"Event ID":       row.EventID,
				"Course ID":      row.CourseID,
				"Instructor":     row.Instructor,
				"Scheduled Days": fmt.Sprintf("%d-%d", row.ScheduledDays[0], row.ScheduledDays[1]),
				"Conflict Days":  joinDays(row.ConflictDays),
			})
		}
		return data
	}

	rows := s.board.ExportPlacements(ctx, query.EventID)
	data := export.Dataset{Headers: placementHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		record := map[string]string{
			"Course ID":     row.CourseID,
			"Duration Days": strconv.FormatFloat(row.DurationDays, 'f', -1, 64),
			"First Day":     formatDate(row.FirstDay),
			"Last Day":      formatDate(row.LastDay),
			"Event ID":      row.EventID,
			"Draft":         strconv.FormatBool(row.Draft),
		}
		if row.RoomNumber != nil {
			record["Room Number"] = strconv.Itoa(*row.RoomNumber)
		}
		if row.StartDay > 0 {
			record["Start Day"] = strconv.Itoa(row.StartDay)
		}
		data.Rows = append(data.Rows, record)
	}
	return data
}

// calendarEntries lists committed, dated placements as all-day entries.
func (s *ExportService) calendarEntries(ctx context.Context, eventID string) []export.CalendarEntry {
	events := make(map[string]models.Event)
	for _, view := range s.board.Events(ctx) {
		events[view.ID] = view.Event
	}
	courses := make(map[string]models.Course)
	for _, view := range s.board.Courses(ctx) {
		courses[view.ID] = view.Course
	}

	var entries []export.CalendarEntry
	for _, row := range s.board.ExportPlacements(ctx, eventID) {
		if row.Draft || row.FirstDay == nil || row.LastDay == nil {
			continue
		}
		course := courses[row.CourseID]
		event := events[row.EventID]
		summary := row.CourseID
		if course.Name != "" {
			summary = fmt.Sprintf("%s %s", row.CourseID, course.Name)
		}
		location := event.Location
		if row.RoomNumber != nil {
			location = strings.TrimSpace(fmt.Sprintf("%s Room %d", location, *row.RoomNumber))
		}
		entries = append(entries, export.CalendarEntry{
			UID:         fmt.Sprintf("%s@%s.roomboard", row.CourseID, row.EventID),
			Summary:     summary,
			Description: fmt.Sprintf("Instructor: %s\nEvent: %s", course.Instructor, event.Name),
			Location:    location,
			Start:       *row.FirstDay,
			End:         row.LastDay.AddDate(0, 0, 1),
		})
	}
	return entries
}

func (s *ExportService) title(query dto.ExportQuery) string {
	scope := "All Events"
	if query.EventID != "" {
		scope = query.EventID
	}
	if query.Kind == ExportKindConflicts {
		return fmt.Sprintf("Instructor Conflicts %s", scope)
	}
	return fmt.Sprintf("Room Schedule %s", scope)
}

func (s *ExportService) buildFilename(query dto.ExportQuery) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := sanitizeFilename(query.EventID)
	return fmt.Sprintf("%s_%s_%s.%s", query.Kind, scope, timestamp, query.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func joinDays(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}
