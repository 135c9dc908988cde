package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"zaalplanner/internal/grid"
	"zaalplanner/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Weekrooster"

// Store is the slice of the database the exporter reads from.
type Store interface {
	GetBookingsOverlapping(ctx context.Context, start, end time.Time) ([]models.Booking, error)
}

// Exporter renders the weekly room grid into an XLSX file on disk.
type Exporter struct {
	store  Store
	rooms  []string
	path   string
	logger *zerolog.Logger
}

func NewExporter(store Store, rooms []string, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		store:  store,
		rooms:  rooms,
		path:   path,
		logger: logger,
	}
}

// ExportWeek writes the grid for the week containing the given date and
// returns the path of the created file.
func (e *Exporter) ExportWeek(ctx context.Context, date time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	weekStart := grid.WeekStart(date)
	weekEnd := weekStart.AddDate(0, 0, 7)

	bookings, err := e.store.GetBookingsOverlapping(ctx, weekStart, weekEnd)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	g := grid.Build(weekStart, e.rooms, bookings)
	days := grid.Days(weekStart)

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Week: %s - %s",
		weekStart.Format("02.01.2006"), days[6].Format("02.01.2006")))

	e.writeDayHeaders(f, days)
	e.writeRoomHeaders(f)
	e.writeCells(f, g, days)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'H'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 28)
	}

	lastCell, _ := excelize.CoordinatesToCellName(len(days)+1, 1)
	_ = f.MergeCell(sheetName, "A1", lastCell)

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("week_%s.xlsx", weekStart.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) writeDayHeaders(f *excelize.File, days [7]time.Time) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, day := range days {
		cell, _ := excelize.CoordinatesToCellName(i+2, 2)
		_ = f.SetCellValue(sheetName, cell, day.Format("Mon 02.01"))
		_ = f.SetCellStyle(sheetName, cell, cell, style)
	}
}

func (e *Exporter) writeRoomHeaders(f *excelize.File) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	for i, room := range e.rooms {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		_ = f.SetCellValue(sheetName, cell, room)
		_ = f.SetCellStyle(sheetName, cell, cell, style)
	}
}

func (e *Exporter) writeCells(f *excelize.File, g grid.Grid, days [7]time.Time) {
	occupied, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFEB9C"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})

	for roomIdx, room := range e.rooms {
		buckets := g[room]
		for dayIdx, day := range days {
			bookings := buckets[day.Format(models.DateFormat)]
			if len(bookings) == 0 {
				continue
			}

			cell, _ := excelize.CoordinatesToCellName(dayIdx+2, roomIdx+3)
			_ = f.SetCellValue(sheetName, cell, formatCell(bookings))
			_ = f.SetCellStyle(sheetName, cell, cell, occupied)
		}
	}
}

func formatCell(bookings []models.Booking) string {
	var lines []string
	for _, b := range bookings {
		line := fmt.Sprintf("%s-%s %s (%s)",
			b.Start.Format(models.ClockFormat),
			b.End.Format(models.ClockFormat),
			b.Title,
			b.Account)
		if b.Who != "" {
			line += fmt.Sprintf("\n   %s", b.Who)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
