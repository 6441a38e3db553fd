package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/roomboard/internal/dto"
	"github.com/noah-isme/roomboard/internal/models"
	"github.com/noah-isme/roomboard/internal/scheduling"
	appErrors "github.com/noah-isme/roomboard/pkg/errors"
	"github.com/noah-isme/roomboard/pkg/jobs"
)

const saveJobType = "board.save"

// BoardStore persists whole-board snapshots.
type BoardStore interface {
	SaveSnapshot(ctx context.Context, snapshot models.Snapshot) error
	LoadSnapshot(ctx context.Context) (models.Snapshot, error)
}

// BoardServiceConfig tunes persistence, caching and input parsing.
type BoardServiceConfig struct {
	Persistence bool
	Debounce    time.Duration
	CacheTTL    time.Duration
	DateLayouts []string
}

// BoardService serialises access to the scheduling board and carries its side
// effects: request validation, logging, metrics, read caching and debounced saves.
type BoardService struct {
	mu      sync.Mutex
	board   *scheduling.Board
	version uint64

	repo      BoardStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       BoardServiceConfig

	queue     *jobs.Queue
	debouncer *jobs.Debouncer
	dirty     atomic.Bool

	statusMu      sync.Mutex
	lastSavedAt   *time.Time
	lastSaveErr   string
	lastSaveErrAt *time.Time
}

// NewBoardService constructs a BoardService around an empty board.
func NewBoardService(repo BoardStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg BoardServiceConfig) *BoardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if len(cfg.DateLayouts) == 0 {
		cfg.DateLayouts = scheduling.DefaultDateLayouts
	}
	svc := &BoardService{
		board:     scheduling.NewBoard(),
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
	if cfg.Persistence && repo != nil {
		svc.queue = jobs.NewQueue("board-persist", svc.handleSave, jobs.QueueConfig{
			Workers:    1,
			BufferSize: 1,
			Coalesce:   true,
			Logger:     logger,
		})
		svc.debouncer = jobs.NewDebouncer(svc.queue, saveJobType, cfg.Debounce, logger)
	}
	return svc
}

// Start seeds the board from storage and starts the persistence worker.
func (s *BoardService) Start(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	snapshot, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load board")
	}
	s.mu.Lock()
	report := s.board.Restore(snapshot)
	s.publishLocked()
	s.mu.Unlock()
	s.logger.Info("board restored", zap.String("summary", report.Summary()), zap.Int("row_errors", len(report.Errors)))

	s.queue.Start(context.WithoutCancel(ctx))
	return nil
}

// Stop writes any pending change synchronously and stops the worker.
func (s *BoardService) Stop(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	s.debouncer.Stop()
	s.queue.Stop()
	if s.dirty.Load() {
		return s.saveNow(ctx)
	}
	return nil
}

// LoadEvents replaces every event. A load that would unplace courses by lowering
// room counts is refused with CONFIRMATION_REQUIRED unless the request confirms it.
func (s *BoardService) LoadEvents(ctx context.Context, req dto.LoadEventsRequest) (models.ImportReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ImportReport{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid events payload")
	}
	events := make([]models.Event, 0, len(req.Events))
	var index []int
	var parseErrors []models.RowError
	for i, in := range req.Events {
		first, err := s.parseOptionalDate(in.FirstDay)
		if err == nil {
			var last *time.Time
			if last, err = s.parseOptionalDate(in.LastDay); err == nil {
				events = append(events, models.Event{
					ID: in.ID, Name: in.Name, TotalDays: in.TotalDays, RoomCount: in.RoomCount,
					FirstDay: first, LastDay: last, Location: in.Location, Notes: in.Notes,
				})
				index = append(index, i+1)
				continue
			}
		}
		parseErrors = append(parseErrors, models.RowError{Row: i + 1, ID: in.ID, Message: err.Error()})
	}

	s.mu.Lock()
	if displaced := s.board.PlanEvents(events); len(displaced) > 0 && !req.Confirm {
		s.mu.Unlock()
		appErr := appErrors.Clone(appErrors.ErrConfirmationRequired, fmt.Sprintf("event load lowers room counts and unplaces %d course(s)", len(displaced)))
		return models.ImportReport{}, appErrors.WithMeta(appErr, "displaced", displaced)
	}
	report := s.board.LoadEvents(events)
	s.publishLocked()
	s.mu.Unlock()

	report = remapRows(report, index, parseErrors)
	s.changed(ctx, "events loaded", report)
	return report, nil
}

// LoadCourses replaces every course.
func (s *BoardService) LoadCourses(ctx context.Context, req dto.LoadCoursesRequest) (models.ImportReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ImportReport{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid courses payload")
	}
	courses := make([]models.Course, len(req.Courses))
	for i, in := range req.Courses {
		courses[i] = models.Course{ID: in.ID, Instructor: in.Instructor, Name: in.Name, DurationDays: in.DurationDays, Topic: in.Topic}
	}

	s.mu.Lock()
	report := s.board.LoadCourses(courses)
	s.publishLocked()
	s.mu.Unlock()

	s.changed(ctx, "courses loaded", report)
	return report, nil
}

// LoadUnavailability replaces every instructor unavailability entry.
func (s *BoardService) LoadUnavailability(ctx context.Context, req dto.LoadUnavailabilityRequest) (models.ImportReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ImportReport{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unavailability payload")
	}
	entries := make([]models.UnavailabilityEntry, 0, len(req.Entries))
	var index []int
	var parseErrors []models.RowError
	for i, in := range req.Entries {
		start, err := s.parseRequiredDate(in.Start, "start")
		if err == nil {
			var end time.Time
			if end, err = s.parseRequiredDate(in.End, "end"); err == nil {
				entries = append(entries, models.UnavailabilityEntry{Instructor: in.Instructor, Start: start, End: end})
				index = append(index, i+1)
				continue
			}
		}
		parseErrors = append(parseErrors, models.RowError{Row: i + 1, ID: in.Instructor, Message: err.Error()})
	}

	s.mu.Lock()
	report := s.board.LoadUnavailability(entries)
	s.publishLocked()
	s.mu.Unlock()

	report = remapRows(report, index, parseErrors)
	s.changed(ctx, "unavailability loaded", report)
	return report, nil
}

// ImportPlacements replaces every placement with the given rows.
func (s *BoardService) ImportPlacements(ctx context.Context, req dto.ImportPlacementsRequest) (models.ImportReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ImportReport{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placements payload")
	}
	rows := make([]models.PlacementRow, 0, len(req.Rows))
	var index []int
	var parseErrors []models.RowError
	for i, in := range req.Rows {
		first, err := s.parseOptionalDate(in.FirstDay)
		if err == nil {
			var last *time.Time
			if last, err = s.parseOptionalDate(in.LastDay); err == nil {
				rows = append(rows, models.PlacementRow{
					CourseID: in.CourseID, DurationDays: in.DurationDays, FirstDay: first, LastDay: last,
					EventID: in.EventID, RoomNumber: in.RoomNumber, StartDay: in.StartDay, Draft: in.Draft,
				})
				index = append(index, i+1)
				continue
			}
		}
		parseErrors = append(parseErrors, models.RowError{Row: i + 1, ID: in.CourseID, Message: err.Error()})
	}

	s.mu.Lock()
	report := s.board.ImportPlacements(rows)
	s.publishLocked()
	s.mu.Unlock()

	report = remapRows(report, index, parseErrors)
	s.changed(ctx, "placements imported", report)
	return report, nil
}

// ExportPlacements returns placement rows, optionally for a single event.
func (s *BoardService) ExportPlacements(ctx context.Context, eventID string) []models.PlacementRow {
	s.mu.Lock()
	rows := s.board.ExportPlacements()
	s.mu.Unlock()
	if eventID == "" {
		return rows
	}
	filtered := rows[:0]
	for _, row := range rows {
		if row.EventID == eventID {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// Events lists events with their expanded calendars.
func (s *BoardService) Events(ctx context.Context) []dto.EventView {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.board.Events()
	views := make([]dto.EventView, 0, len(events))
	for _, event := range events {
		days := s.board.Days(event.ID)
		view := dto.EventView{Event: event, Days: make([]dto.DayView, len(days))}
		for i, d := range days {
			view.Days[i] = dto.DayView{Number: d.Number, Label: d.Label()}
			if !d.Date.IsZero() {
				view.Days[i].Date = d.Date.Format("2006-01-02")
			}
		}
		views = append(views, view)
	}
	return views
}

// Courses lists courses with their assignment state.
func (s *BoardService) Courses(ctx context.Context) []dto.CourseView {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses := s.board.Courses()
	views := make([]dto.CourseView, len(courses))
	for i, c := range courses {
		views[i] = dto.CourseView{
			Course:       c,
			OccupiedDays: c.OccupiedDays(),
			Assigned:     s.board.IsAssigned(c.ID),
			Events:       s.board.AssignedEvents(c.ID),
		}
	}
	return views
}

// Placements lists placements of an event, or all when eventID is empty.
func (s *BoardService) Placements(ctx context.Context, eventID string) []dto.PlacementView {
	s.mu.Lock()
	defer s.mu.Unlock()
	placements := s.board.Placements(eventID)
	views := make([]dto.PlacementView, len(placements))
	for i, p := range placements {
		course, _ := s.board.Course(p.CourseID)
		views[i] = dto.PlacementView{Placement: p, Instructor: course.Instructor, CourseName: course.Name}
	}
	return views
}

// BlockedDays returns the instructor's blocked day numbers at an event.
func (s *BoardService) BlockedDays(ctx context.Context, instructor, eventID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.board.Event(eventID); !ok {
		return nil, mapEngineError(fmt.Errorf("%w: %s", scheduling.ErrUnknownEvent, eventID))
	}
	return s.board.BlockedDays(instructor, eventID), nil
}

// ChangeRoomCount resizes an event. A reduction that would strip placements is
// refused with CONFIRMATION_REQUIRED unless the request confirms it.
func (s *BoardService) ChangeRoomCount(ctx context.Context, eventID string, req dto.RoomCountRequest) (*dto.RoomCountResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room count payload")
	}

	s.mu.Lock()
	displaced, err := s.board.PlanRoomCount(eventID, req.Rooms)
	if err != nil {
		s.mu.Unlock()
		return nil, mapEngineError(err)
	}
	if len(displaced) > 0 && !req.Confirm {
		s.mu.Unlock()
		appErr := appErrors.Clone(appErrors.ErrConfirmationRequired, fmt.Sprintf("reducing %s to %d room(s) unplaces %d course(s)", eventID, req.Rooms, len(displaced)))
		return nil, appErrors.WithMeta(appErr, "displaced", displaced)
	}
	displaced, err = s.board.ApplyRoomCount(eventID, req.Rooms)
	s.publishLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, mapEngineError(err)
	}

	s.logger.Info("room count changed", zap.String("event_id", eventID), zap.Int("rooms", req.Rooms), zap.Int("displaced", len(displaced)))
	s.changed(ctx, "", models.ImportReport{})
	if displaced == nil {
		displaced = []models.Displacement{}
	}
	return &dto.RoomCountResponse{EventID: eventID, Rooms: req.Rooms, Displaced: displaced}, nil
}

// Check validates a proposal without committing it.
func (s *BoardService) Check(ctx context.Context, req dto.PlacementRequest) (models.Outcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Outcome{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Validate(proposalFrom(req)), nil
}

// Place validates and commits a placement. Rejections surface as PLACEMENT_REJECTED
// with the structured rejection in the error metadata.
func (s *BoardService) Place(ctx context.Context, req dto.PlacementRequest) (models.Outcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Outcome{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}

	s.mu.Lock()
	outcome := s.board.Place(proposalFrom(req))
	if outcome.Accepted {
		s.publishLocked()
	}
	s.mu.Unlock()

	s.metrics.RecordPlacement(outcome)
	if !outcome.Accepted {
		return outcome, s.rejected(req.EventID, req.CourseID, outcome.Rejection)
	}
	s.logger.Info("placement accepted",
		zap.String("event_id", req.EventID),
		zap.String("course_id", req.CourseID),
		zap.Ints("days", outcome.Days),
		zap.Bool("draft", req.Draft),
		zap.Bool("clamped", outcome.Clamped),
	)
	s.changed(ctx, "", models.ImportReport{})
	return outcome, nil
}

// Assign offers a course at an event without placing it.
func (s *BoardService) Assign(ctx context.Context, req dto.AssignRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	s.mu.Lock()
	err := s.board.Assign(req.EventID, req.CourseID)
	if err == nil {
		s.publishLocked()
	}
	s.mu.Unlock()
	if err != nil {
		return mapEngineError(err)
	}
	s.changed(ctx, "", models.ImportReport{})
	return nil
}

// Unplace strips room and days from a placement, keeping the assignment.
func (s *BoardService) Unplace(ctx context.Context, eventID, courseID string) error {
	s.mu.Lock()
	ok := s.board.Unplace(eventID, courseID)
	if ok {
		s.publishLocked()
	}
	s.mu.Unlock()
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s is not assigned to %s", courseID, eventID))
	}
	s.changed(ctx, "", models.ImportReport{})
	return nil
}

// Remove deletes a placement together with its assignment.
func (s *BoardService) Remove(ctx context.Context, eventID, courseID string) error {
	s.mu.Lock()
	ok := s.board.Remove(eventID, courseID)
	if ok {
		s.publishLocked()
	}
	s.mu.Unlock()
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s is not assigned to %s", courseID, eventID))
	}
	s.changed(ctx, "", models.ImportReport{})
	return nil
}

// Finalize promotes a draft placement to a committed one.
func (s *BoardService) Finalize(ctx context.Context, eventID, courseID string) (models.Outcome, error) {
	s.mu.Lock()
	outcome, err := s.board.Finalize(eventID, courseID)
	if err == nil && outcome.Accepted {
		s.publishLocked()
	}
	s.mu.Unlock()
	if err != nil {
		return models.Outcome{}, mapEngineError(err)
	}
	s.metrics.RecordPlacement(outcome)
	if !outcome.Accepted {
		return outcome, s.rejected(eventID, courseID, outcome.Rejection)
	}
	s.changed(ctx, "", models.ImportReport{})
	return outcome, nil
}

// RemoveCourse deletes a course and all of its placements.
func (s *BoardService) RemoveCourse(ctx context.Context, courseID string) ([]models.PlacementKey, error) {
	s.mu.Lock()
	removed, err := s.board.RemoveCourse(courseID)
	if err == nil {
		s.publishLocked()
	}
	s.mu.Unlock()
	if err != nil {
		return nil, mapEngineError(err)
	}
	s.logger.Info("course removed", zap.String("course_id", courseID), zap.Int("placements", len(removed)))
	s.changed(ctx, "", models.ImportReport{})
	return removed, nil
}

// Duplicates lists course ids with more than one record.
func (s *BoardService) Duplicates(ctx context.Context) []models.DuplicateCourse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.DuplicateCourses()
}

// ResolveDuplicate keeps one record of a duplicated course id.
func (s *BoardService) ResolveDuplicate(ctx context.Context, courseID string, req dto.ResolveDuplicateRequest) (models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Course{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid duplicate resolution payload")
	}
	s.mu.Lock()
	course, err := s.board.ResolveDuplicate(courseID, req.Keep)
	if err == nil {
		s.publishLocked()
	}
	s.mu.Unlock()
	if err != nil {
		return models.Course{}, mapEngineError(err)
	}
	s.changed(ctx, "", models.ImportReport{})
	return course, nil
}

// Gaps lists free ranges in a room with the courses that could fill each.
func (s *BoardService) Gaps(ctx context.Context, eventID string, room int) ([]dto.GapView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gaps, err := s.board.Gaps(eventID, room)
	if err != nil {
		return nil, mapEngineError(err)
	}
	views := make([]dto.GapView, len(gaps))
	for i, gap := range gaps {
		candidates := s.board.GapCandidates(gap)
		if candidates == nil {
			candidates = []models.Course{}
		}
		views[i] = dto.GapView{Gap: gap, Candidates: candidates}
	}
	return views, nil
}

// OpenSlot starts a draft negotiation over a free range.
func (s *BoardService) OpenSlot(ctx context.Context, req dto.OpenSlotRequest) (models.DraftSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.DraftSlot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	gap := models.Gap{EventID: req.EventID, Room: req.Room, StartDay: req.StartDay, Length: req.Length}
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.board.OpenSlot(newSlotID(), gap)
	if err != nil {
		return models.DraftSlot{}, mapEngineError(err)
	}
	return slot, nil
}

// Slots lists open draft slots, optionally for one event.
func (s *BoardService) Slots(ctx context.Context, eventID string) []models.DraftSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := s.board.Slots(eventID)
	if slots == nil {
		slots = []models.DraftSlot{}
	}
	return slots
}

// AddCandidate puts a course on a slot's pending list.
func (s *BoardService) AddCandidate(ctx context.Context, slotID string, req dto.CandidateRequest) (models.DraftSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.DraftSlot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid candidate payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.board.AddCandidate(slotID, req.CourseID)
	if err != nil {
		return models.DraftSlot{}, mapEngineError(err)
	}
	return slot, nil
}

// Promote commits a pending candidate after re-validating it.
func (s *BoardService) Promote(ctx context.Context, slotID string, index int) (models.Outcome, error) {
	s.mu.Lock()
	slot, _ := s.board.Slot(slotID)
	outcome, err := s.board.Promote(slotID, index)
	if err == nil && outcome.Accepted {
		s.publishLocked()
	}
	s.mu.Unlock()
	if err != nil {
		return models.Outcome{}, mapEngineError(err)
	}
	s.metrics.RecordPlacement(outcome)
	courseID := slot.Candidates[index].CourseID
	if !outcome.Accepted {
		return outcome, s.rejected(slot.Gap.EventID, courseID, outcome.Rejection)
	}
	s.logger.Info("draft candidate promoted", zap.String("slot_id", slotID), zap.String("course_id", courseID))
	s.changed(ctx, "", models.ImportReport{})
	return outcome, nil
}

// Discard drops a pending candidate.
func (s *BoardService) Discard(ctx context.Context, slotID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mapEngineError(s.board.Discard(slotID, index))
}

// CloseSlot drops a draft slot.
func (s *BoardService) CloseSlot(ctx context.Context, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.board.CloseSlot(slotID) {
		return mapEngineError(fmt.Errorf("%w: %s", scheduling.ErrUnknownSlot, slotID))
	}
	return nil
}

// ConflictReport lists committed placements colliding with instructor unavailability.
func (s *BoardService) ConflictReport(ctx context.Context) []models.ConflictRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.board.ConflictReport()
	if rows == nil {
		rows = []models.ConflictRow{}
	}
	return rows
}

// Occupancy reports room-day usage for an event. The boolean reports a cache hit.
func (s *BoardService) Occupancy(ctx context.Context, eventID string) (*models.OccupancyReport, bool, error) {
	s.mu.Lock()
	key := BoardKey("occupancy", eventID, strconv.FormatUint(s.version, 10))
	s.mu.Unlock()

	var cached models.OccupancyReport
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	s.mu.Lock()
	report, err := s.board.Occupancy(eventID)
	s.mu.Unlock()
	if err != nil {
		return nil, false, mapEngineError(err)
	}
	_ = s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	return &report, false, nil
}

// Rebuild regenerates every derived index from the source records.
func (s *BoardService) Rebuild(ctx context.Context) models.BoardStatus {
	s.mu.Lock()
	s.board.Rebuild()
	s.publishLocked()
	s.mu.Unlock()
	s.logger.Warn("board indices rebuilt")
	s.changed(ctx, "", models.ImportReport{})
	return s.Status(ctx)
}

// Status reports board size, consistency and persistence health.
func (s *BoardService) Status(ctx context.Context) models.BoardStatus {
	s.mu.Lock()
	status := models.BoardStatus{
		Events:      len(s.board.Events()),
		Courses:     len(s.board.Courses()),
		Placements:  len(s.board.Placements("")),
		Slots:       len(s.board.Slots("")),
		Duplicates:  len(s.board.DuplicateCourses()),
		Consistent:  s.board.Consistent(),
		Persistence: s.queue != nil,
	}
	s.mu.Unlock()

	status.PendingSave = s.dirty.Load()
	s.statusMu.Lock()
	status.LastSavedAt = s.lastSavedAt
	status.LastSaveError = s.lastSaveErr
	status.LastSaveErrorAt = s.lastSaveErrAt
	s.statusMu.Unlock()
	return status
}

// Snapshot captures the whole board.
func (s *BoardService) Snapshot(ctx context.Context) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Snapshot()
}

func (s *BoardService) handleSave(ctx context.Context, job jobs.Job) error {
	return s.saveNow(ctx)
}

// saveNow writes the current snapshot. Failures are recorded for the status
// endpoint; the in-memory board is never rolled back.
func (s *BoardService) saveNow(ctx context.Context) error {
	s.dirty.Store(false)
	snapshot := s.Snapshot(ctx)
	start := time.Now()
	err := s.repo.SaveSnapshot(ctx, snapshot)
	s.metrics.RecordSave(err, time.Since(start))

	now := time.Now().UTC()
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if err != nil {
		s.dirty.Store(true)
		s.lastSaveErr = err.Error()
		s.lastSaveErrAt = &now
		s.logger.Error("board save failed", zap.Error(err))
		return err
	}
	s.lastSavedAt = &now
	s.lastSaveErr = ""
	s.lastSaveErrAt = nil
	s.logger.Debug("board saved", zap.Int("placements", len(snapshot.Placements)))
	return nil
}

// publishLocked bumps the read-model version and refreshes gauges. Callers hold s.mu.
func (s *BoardService) publishLocked() {
	s.version++
	if s.metrics == nil {
		return
	}
	s.metrics.ResetFillRates()
	for _, event := range s.board.Events() {
		if report, err := s.board.Occupancy(event.ID); err == nil {
			s.metrics.SetFillRate(event.ID, report.FillRate)
		}
	}
}

// changed schedules persistence and drops cached read models after a mutation.
func (s *BoardService) changed(ctx context.Context, what string, report models.ImportReport) {
	if what != "" {
		s.logger.Info(what, zap.String("summary", report.Summary()), zap.Int("row_errors", len(report.Errors)))
	}
	if s.debouncer != nil {
		s.dirty.Store(true)
		s.debouncer.Trigger()
	}
	_ = s.cache.Invalidate(ctx, BoardKey("*"))
}

func (s *BoardService) rejected(eventID, courseID string, rejection *models.Rejection) error {
	s.logger.Info("placement rejected",
		zap.String("event_id", eventID),
		zap.String("course_id", courseID),
		zap.String("reason", string(rejection.Reason)),
		zap.String("message", rejection.Message),
	)
	return appErrors.WithMeta(appErrors.Clone(appErrors.ErrPlacementRejected, rejection.Message), "rejection", rejection)
}

func (s *BoardService) parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	date, err := scheduling.ParseDate(raw, s.cfg.DateLayouts...)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func (s *BoardService) parseRequiredDate(raw, field string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s date is required", field)
	}
	return scheduling.ParseDate(raw, s.cfg.DateLayouts...)
}

func proposalFrom(req dto.PlacementRequest) scheduling.Proposal {
	return scheduling.Proposal{
		EventID:  req.EventID,
		CourseID: req.CourseID,
		Room:     req.Room,
		StartDay: req.StartDay,
		Draft:    req.Draft,
	}
}

// remapRows translates engine row numbers back to request rows and merges parse errors.
func remapRows(report models.ImportReport, index []int, parseErrors []models.RowError) models.ImportReport {
	for i := range report.Errors {
		if n := report.Errors[i].Row; n >= 1 && n <= len(index) {
			report.Errors[i].Row = index[n-1]
		}
	}
	report.Errors = append(report.Errors, parseErrors...)
	sort.SliceStable(report.Errors, func(i, j int) bool { return report.Errors[i].Row < report.Errors[j].Row })
	return report
}

func mapEngineError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scheduling.ErrUnknownEvent),
		errors.Is(err, scheduling.ErrUnknownCourse),
		errors.Is(err, scheduling.ErrUnknownSlot),
		errors.Is(err, scheduling.ErrNoDuplicates):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, err.Error())
	case errors.Is(err, scheduling.ErrSlotExists),
		errors.Is(err, scheduling.ErrAlreadyPending):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, err.Error())
	case errors.Is(err, scheduling.ErrInvalidRoomCount),
		errors.Is(err, scheduling.ErrInvalidRoom),
		errors.Is(err, scheduling.ErrCandidateIndex),
		errors.Is(err, scheduling.ErrDuplicateIndex),
		errors.Is(err, scheduling.ErrInvalidDateRange):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.FromError(err)
	}
}

func newSlotID() string {
	return uuid.NewString()
}
