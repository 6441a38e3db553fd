package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/roomboard/internal/dto"
	appErrors "github.com/noah-isme/roomboard/pkg/errors"
	"github.com/noah-isme/roomboard/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *BoardService, string) {
	t.Helper()
	board := newTestBoardService(t, nil, nil, BoardServiceConfig{})
	ctx := context.Background()
	_, err := board.Place(ctx, dto.PlacementRequest{EventID: "ATL", CourseID: "C001", Room: intPtr(1), StartDay: 3})
	require.NoError(t, err)
	_, err = board.Place(ctx, dto.PlacementRequest{EventID: "ATL", CourseID: "C002", Room: intPtr(2), StartDay: 1})
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewExportService(board, store, nil, zap.NewNop(), nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC) }
	return svc, board, dir
}

func TestExportServicePlacementsCSV(t *testing.T) {
	svc, _, dir := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), dto.ExportQuery{Format: "csv", EventID: "ATL"})
	require.NoError(t, err)
	assert.Equal(t, "placements_ATL_20260310_083000.csv", result.Filename)
	assert.Equal(t, filepath.Join(dir, result.Filename), result.StoredPath)

	records, err := csv.NewReader(bytes.NewReader(result.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, placementHeaders, records[0])
	assert.Equal(t, []string{"C002", "1", "2026-03-01", "2026-03-01", "ATL", "2", "1", "false"}, records[1])
	assert.Equal(t, []string{"C001", "3", "2026-03-03", "2026-03-05", "ATL", "1", "3", "false"}, records[2])

	stored, err := os.ReadFile(result.StoredPath)
	require.NoError(t, err)
	assert.Equal(t, result.Body, stored)
}

func TestExportServiceConflictsPDF(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), dto.ExportQuery{Kind: "conflicts", Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Body, []byte("%PDF")))
	assert.True(t, strings.HasPrefix(result.Filename, "conflicts_all_"))
}

func TestExportServiceICS(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), dto.ExportQuery{Format: "ics"})
	require.NoError(t, err)
	body := string(result.Body)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "C001@ATL.roomboard")
	assert.Contains(t, body, "20260306")
}

func TestExportServiceRejectsBadQuery(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)
	ctx := context.Background()

	_, err := svc.Export(ctx, dto.ExportQuery{Format: "xlsx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrorOf(t, err).Code)

	_, err = svc.Export(ctx, dto.ExportQuery{Kind: "conflicts", Format: "ics"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrorOf(t, err).Code)
}
