package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zaalplanner/internal/database"
	"zaalplanner/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupExporter(t *testing.T) (*Exporter, *database.DB, string) {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir := t.TempDir()
	rooms := []string{"TMS ruimte", "CO2 ruimte"}
	return NewExporter(db, rooms, dir, &logger), db, dir
}

func TestExportWeekCreatesFile(t *testing.T) {
	exporter, db, dir := setupExporter(t)
	ctx := context.Background()

	booking := &models.Booking{
		Room:    "TMS ruimte",
		Title:   "TMS sessie",
		Account: "mumc",
		Who:     "Jansen",
		Start:   time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 1, 3, 11, 30, 0, 0, time.UTC),
	}
	require.NoError(t, db.CreateBooking(ctx, booking))

	path, err := exporter.ExportWeek(ctx, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "week_2024-01-01.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Room label in column A, booking in Wednesday's column (D) on its row
	roomCell, err := f.GetCellValue(sheetName, "A3")
	require.NoError(t, err)
	assert.Equal(t, "TMS ruimte", roomCell)

	cell, err := f.GetCellValue(sheetName, "D3")
	require.NoError(t, err)
	assert.Contains(t, cell, "10:00-11:30 TMS sessie (mumc)")
	assert.Contains(t, cell, "Jansen")
}

func TestExportWeekEmptyGrid(t *testing.T) {
	exporter, _, _ := setupExporter(t)

	path, err := exporter.ExportWeek(context.Background(), time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	cell, err := f.GetCellValue(sheetName, "B3")
	require.NoError(t, err)
	assert.Empty(t, cell)
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	assert.Equal(t, 10*time.Second, policy.NextDelay(10))
	assert.Equal(t, time.Second, policy.NextDelay(0))
}
