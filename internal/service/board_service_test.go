package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/roomboard/internal/dto"
	"github.com/noah-isme/roomboard/internal/models"
	appErrors "github.com/noah-isme/roomboard/pkg/errors"
)

type fakeBoardStore struct {
	mu       sync.Mutex
	snapshot models.Snapshot
	saves    []models.Snapshot
	saveErr  error
	loadErr  error
}

func (f *fakeBoardStore) SaveSnapshot(_ context.Context, snapshot models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, snapshot)
	return nil
}

func (f *fakeBoardStore) LoadSnapshot(context.Context) (models.Snapshot, error) {
	return f.snapshot, f.loadErr
}

func (f *fakeBoardStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }

func appErrorOf(t *testing.T, err error) *appErrors.Error {
	t.Helper()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	return appErr
}

func seedBoardService(t *testing.T, svc *BoardService) {
	t.Helper()
	ctx := context.Background()
	report, err := svc.LoadEvents(ctx, dto.LoadEventsRequest{Events: []dto.EventInput{
		{ID: "ATL", Name: "Atlanta", RoomCount: 3, FirstDay: "2026-03-01", LastDay: "2026-03-05"},
	}})
	require.NoError(t, err)
	require.False(t, report.Failed(), report.Errors)

	report, err = svc.LoadCourses(ctx, dto.LoadCoursesRequest{Courses: []dto.CourseInput{
		{ID: "C001", Instructor: "Beatrice", Name: "Foundations", DurationDays: 3},
		{ID: "C002", Instructor: "Carl", Name: "Workshop", DurationDays: 1},
		{ID: "C004", Instructor: "Alfred", Name: "Seminar", DurationDays: 2},
	}})
	require.NoError(t, err)
	require.False(t, report.Failed(), report.Errors)

	report, err = svc.LoadUnavailability(ctx, dto.LoadUnavailabilityRequest{Entries: []dto.UnavailabilityInput{
		{Instructor: "Alfred", Start: "3/2/2026", End: "3/3/2026"},
	}})
	require.NoError(t, err)
	require.False(t, report.Failed(), report.Errors)
}

func newTestBoardService(t *testing.T, store BoardStore, cache *CacheService, cfg BoardServiceConfig) *BoardService {
	t.Helper()
	svc := NewBoardService(store, cache, nil, nil, zap.NewNop(), cfg)
	seedBoardService(t, svc)
	return svc
}

func TestBoardServicePlaceAndReject(t *testing.T) {
	svc := newTestBoardService(t, nil, nil, BoardServiceConfig{})
	ctx := context.Background()

	outcome, err := svc.Place(ctx, dto.PlacementRequest{EventID: "ATL", CourseID: "C001", Room: intPtr(1), StartDay: 1})
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.Equal(t, []int{1, 2, 3}, outcome.Days)

	outcome, err = svc.Place(ctx, dto.PlacementRequest{EventID: "ATL", CourseID: "C002", Room: intPtr(1), StartDay: 2})
	require.Error(t, err)
	assert.False(t, outcome.Accepted)
	appErr := appErrorOf(t, err)
	assert.Equal(t, appErrors.ErrPlacementRejected.Code, appErr.Code)
	rejection, ok := appErr.Meta["rejection"].(*models.Rejection)
	require.True(t, ok)
	assert.Equal(t, models.ReasonRoomConflict, rejection.Reason)
	assert.Equal(t, []string{"C001"}, rejection.CourseIDs)

	outcome, err = svc.Place(ctx, dto.PlacementRequest{EventID: "ATL", CourseID: "C004", Room: intPtr(2), StartDay: 2})
	require.Error(t, err)
	assert.Equal(t, models.ReasonInstructorUnavailable, outcome.Rejection.Reason)

	placements := svc.Placements(ctx, "ATL")
	require.Len(t, placements, 1)
	assert.Equal(t, "Beatrice", placements[0].Instructor)
}

func TestBoardServicePlaceValidatesPayload(t *testing.T) {
	svc := newTestBoardService(t, nil, nil, BoardServiceConfig{})

	_, err := svc.Place(context.Background(), dto.PlacementRequest{CourseID: "C001"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrorOf(t, err).Code)
}

func TestBoardServiceCheckDoesNotCommit(t *testing.T) {
	svc := newTestBoardService(t, nil, nil, BoardServiceConfig{})
	ctx := context.Background()

	outcome, err := svc.Check(ctx, dto.PlacementRequest{EventID: "ATL", CourseID: "C001", Room: intPtr(1), StartDay: 5})
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.True(t, outcome.Clamped)
	assert.Empty(t, svc.Placements(ctx, ""))
}

func TestBoardServiceLoadEventsRemapsRowErrors(t *testing.T) {
	svc := NewBoardService(nil, nil, nil, nil, nil, BoardServiceConfig{})

	report, err := svc.LoadEvents(context.Background(), dto.LoadEventsRequest{Events: []dto.EventInput{
		{ID: "ATL", FirstDay: "2026-03-01", LastDay: "2026-03-05"},
		{ID: "BOS", FirstDay: "March first"},
		{ID: ""},
		{ID: "SEA", TotalDays: 4},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, 2, report.Errors[0].Row)
	assert.Equal(t, "BOS", report.Errors[0].ID)
	assert.Contains(t, report.Errors[0].Message, "unparseable date")
	assert.Equal(t, 3, report.Errors[1].Row)
	assert.Equal(t, "event id is required", report.Errors[1].Message)
}

func TestBoardServiceChangeRoomCountRequiresConfirmation(t *testing.T) {
	svc := newTestBoardService(t, nil, nil, BoardServiceConfig{})
	ctx := context.Background()

	_, err := svc.Place(ctx, dto.PlacementRequest{EventID: "ATL", CourseID: "C001", Room: intPtr(3), StartDay: 1})
	require.NoError(t, err)

	_, err = svc.ChangeRoomCount(ctx, "ATL", dto.RoomCountRequest{Rooms: 2})
	require.Error(t, err)
	appErr := appErrorOf(t, err)
	assert.Equal(t, appErrors.ErrConfirmationRequired.Code, appErr.Code)
	displaced, ok := appErr.Meta["displaced"].([]models.Displacement)
	require.True(t, ok)
	assert.Equal(t, []models.Displacement{{EventID: "ATL", CourseID: "C001", Room: 3}}, displaced)

	placements := svc.Placements(ctx, "ATL")
	require.Len(t, placements, 1)
	assert.True(t, placements[0].IsPlaced())

	resp, err := svc.ChangeRoomCount(ctx, "ATL", dto.RoomCountRequest{Rooms: 2, Confirm: true})
	require.NoError(t, err)
	assert.Len(t, resp.Displaced, 1)

	placements = svc.Placements(ctx, "ATL")
	require.Len(t, placements, 1)
	assert.False(t, placements[0].IsPlaced())

	_, err = svc.ChangeRoomCount(ctx, "NOPE", dto.RoomCountRequest{Rooms: 2})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrorOf(t, err).Code)
}

func TestBoardServiceLoadEventsRequiresConfirmationToShrinkRooms(t *testing.T) {
	svc := newTestBoardService(t, nil, nil, BoardServiceConfig{})
	ctx := context.Background()

	_, err := svc.Place(ctx, dto.PlacementRequest{EventID: "ATL", CourseID: "C001", Room: intPtr(3), StartDay: 1})
	require.NoError(t, err)

	shrunk := []dto.EventInput{{ID: "ATL", Name: "Atlanta", RoomCount: 2, FirstDay: "2026-03-01", LastDay: "2026-03-05"}}
	_, err = svc.LoadEvents(ctx, dto.LoadEventsRequest{Events: shrunk})
	require.Error(t, err)
	appErr := appErrorOf(t, err)
	assert.Equal(t, appErrors.ErrConfirmationRequired.Code, appErr.Code)
	assert.Equal(t, []models.Displacement{{EventID: "ATL", CourseID: "C001", Room: 3}}, appErr.Meta["displaced"])

	placements := svc.Placements(ctx, "ATL")
	require.Len(t, placements, 1)
	assert.True(t, placements[0].IsPlaced())
	events := svc.Events(ctx)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].RoomCount)

	report, err := svc.LoadEvents(ctx, dto.LoadEventsRequest{Events: shrunk, Confirm: true})
	require.NoError(t, err)
	assert.Len(t, report.Warnings, 1)

	placements = svc.Placements(ctx, "ATL")
	require.Len(t, placements, 1)
	assert.False(t, placements[0].IsPlaced())
}

func TestBoardServiceDraftNegotiation(t *testing.T) {
	svc := newTestBoardService(t, nil, nil, BoardServiceConfig{})
	ctx := context.Background()

	gaps, err := svc.Gaps(ctx, "ATL", 2)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, 5, gaps[0].Length)
	assert.NotEmpty(t, gaps[0].Candidates)

	slot, err := svc.OpenSlot(ctx, dto.OpenSlotRequest{EventID: "ATL", Room: 2, StartDay: 1, Length: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, slot.ID)

	_, err = svc.AddCandidate(ctx, slot.ID, dto.CandidateRequest{CourseID: "C002"})
	require.NoError(t, err)
	_, err = svc.AddCandidate(ctx, slot.ID, dto.CandidateRequest{CourseID: "C002"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrorOf(t, err).Code)

	outcome, err := svc.Promote(ctx, slot.ID, 0)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.Len(t, svc.Placements(ctx, "ATL"), 1)

	_, err = svc.Promote(ctx, "missing", 0)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrorOf(t, err).Code)

	require.NoError(t, svc.CloseSlot(ctx, slot.ID))
	assert.Empty(t, svc.Slots(ctx, "ATL"))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrorOf(t, svc.CloseSlot(ctx, slot.ID)).Code)
}

func TestBoardServiceOccupancyUsesCache(t *testing.T) {
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, zap.NewNop(), true)
	svc := newTestBoardService(t, nil, cache, BoardServiceConfig{})
	ctx := context.Background()

	report, hit, err := svc.Occupancy(ctx, "ATL")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0.0, report.FillRate)

	_, hit, err = svc.Occupancy(ctx, "ATL")
	require.NoError(t, err)
	assert.True(t, hit)

	_, err = svc.Place(ctx, dto.PlacementRequest{EventID: "ATL", CourseID: "C002", Room: intPtr(1), StartDay: 1})
	require.NoError(t, err)

	report, hit, err = svc.Occupancy(ctx, "ATL")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, report.FilledDays)

	_, _, err = svc.Occupancy(ctx, "NOPE")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrorOf(t, err).Code)
}

func TestBoardServiceDebouncedPersistence(t *testing.T) {
	store := &fakeBoardStore{}
	svc := NewBoardService(store, nil, nil, nil, zap.NewNop(), BoardServiceConfig{Persistence: true, Debounce: 20 * time.Millisecond})
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	seedBoardService(t, svc)
	_, err := svc.Place(ctx, dto.PlacementRequest{EventID: "ATL", CourseID: "C001", Room: intPtr(1), StartDay: 1})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		n := len(store.saves)
		return n > 0 && len(store.saves[n-1].Placements) == 1
	}, time.Second, 10*time.Millisecond)
	status := svc.Status(ctx)
	assert.True(t, status.Persistence)
	assert.False(t, status.PendingSave)
	assert.NotNil(t, status.LastSavedAt)

	saves := store.saveCount()
	require.NoError(t, svc.Stop(ctx))
	assert.Equal(t, saves, store.saveCount())
}

func TestBoardServiceStopFlushesPendingChanges(t *testing.T) {
	store := &fakeBoardStore{}
	svc := NewBoardService(store, nil, nil, nil, zap.NewNop(), BoardServiceConfig{Persistence: true, Debounce: time.Hour})
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	seedBoardService(t, svc)
	assert.True(t, svc.Status(ctx).PendingSave)
	assert.Zero(t, store.saveCount())

	require.NoError(t, svc.Stop(ctx))
	assert.Equal(t, 1, store.saveCount())
}

func TestBoardServiceSaveFailureIsReported(t *testing.T) {
	store := &fakeBoardStore{saveErr: errors.New("db down")}
	svc := NewBoardService(store, nil, nil, nil, zap.NewNop(), BoardServiceConfig{Persistence: true, Debounce: time.Hour})
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	seedBoardService(t, svc)

	err := svc.Stop(ctx)
	require.Error(t, err)

	status := svc.Status(ctx)
	assert.Equal(t, "db down", status.LastSaveError)
	assert.NotNil(t, status.LastSaveErrorAt)
	assert.True(t, status.PendingSave)
	assert.Len(t, svc.Placements(ctx, ""), 0)
	assert.Equal(t, 3, status.Courses)
}

func TestBoardServiceStartRestoresSnapshot(t *testing.T) {
	first := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	store := &fakeBoardStore{snapshot: models.Snapshot{
		Events:     []models.Event{{ID: "ATL", RoomCount: 2, FirstDay: &first, LastDay: &last}},
		Courses:    []models.Course{{ID: "C001", Instructor: "Beatrice", DurationDays: 2}},
		Placements: []models.PlacementRow{{CourseID: "C001", EventID: "ATL", FirstDay: &start, RoomNumber: intPtr(2), DurationDays: 2}},
	}}
	svc := NewBoardService(store, nil, nil, nil, zap.NewNop(), BoardServiceConfig{Persistence: true, Debounce: time.Hour})
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	defer func() { _ = svc.Stop(ctx) }()

	placements := svc.Placements(ctx, "ATL")
	require.Len(t, placements, 1)
	assert.Equal(t, []int{2, 3}, placements[0].Days)
	assert.Equal(t, 2, *placements[0].Room)
	assert.True(t, svc.Status(ctx).Consistent)
	assert.False(t, svc.Status(ctx).PendingSave)
}

func TestBoardServiceStartFailsWhenLoadFails(t *testing.T) {
	store := &fakeBoardStore{loadErr: errors.New("timeout")}
	svc := NewBoardService(store, nil, nil, nil, zap.NewNop(), BoardServiceConfig{Persistence: true})

	err := svc.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrorOf(t, err).Code)
}

func TestBoardServiceRemoveCourseAndDuplicates(t *testing.T) {
	svc := NewBoardService(nil, nil, nil, nil, nil, BoardServiceConfig{})
	ctx := context.Background()
	_, err := svc.LoadEvents(ctx, dto.LoadEventsRequest{Events: []dto.EventInput{{ID: "SEA", TotalDays: 4, RoomCount: 1}}})
	require.NoError(t, err)
	_, err = svc.LoadCourses(ctx, dto.LoadCoursesRequest{Courses: []dto.CourseInput{
		{ID: "C010", Instructor: "Fay", DurationDays: 1},
		{ID: "C010", Instructor: "Gil", DurationDays: 2},
	}})
	require.NoError(t, err)

	dups := svc.Duplicates(ctx)
	require.Len(t, dups, 1)
	assert.Equal(t, "C010", dups[0].ID)

	course, err := svc.ResolveDuplicate(ctx, "C010", dto.ResolveDuplicateRequest{Keep: 1})
	require.NoError(t, err)
	assert.Equal(t, "Gil", course.Instructor)
	assert.Empty(t, svc.Duplicates(ctx))

	_, err = svc.ResolveDuplicate(ctx, "C010", dto.ResolveDuplicateRequest{Keep: 0})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrorOf(t, err).Code)

	_, err = svc.Place(ctx, dto.PlacementRequest{EventID: "SEA", CourseID: "C010", Room: intPtr(1), StartDay: 1})
	require.NoError(t, err)

	removed, err := svc.RemoveCourse(ctx, "C010")
	require.NoError(t, err)
	assert.Equal(t, []models.PlacementKey{{EventID: "SEA", CourseID: "C010"}}, removed)
	assert.Empty(t, svc.Courses(ctx))

	_, err = svc.RemoveCourse(ctx, "C010")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrorOf(t, err).Code)
}
