// Package export renders booking reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"consultbook/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{
	"ID", "Date", "Time", "Status", "Customer", "Service", "Consultant",
	"Check-in code", "Rescheduled", "Feedback", "Created at",
}

// FileName returns the report file name for a date range.
func FileName(from, to string) string {
	return fmt.Sprintf("consultbook_export_%s_to_%s.xlsx", from, to)
}

// Build fills a new workbook with one row per booking.
func Build(from, to string, bookings []*models.BookingView) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s", from, to))
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, b := range bookings {
		row := i + 3
		values := []any{
			b.ID, b.Date, b.Time, string(b.Status), b.CustomerID, b.ServiceName,
			b.ConsultantName, b.CheckinCode, yesNo(b.RescheduleUsed), yesNo(b.FeedbackSubmitted),
			b.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		if style, ok := statusStyle(f, b.Status); ok {
			statusCell, _ := excelize.CoordinatesToCellName(4, row)
			_ = f.SetCellStyle(sheetName, statusCell, statusCell, style)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", lastCol, 16)
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, from, to string, bookings []*models.BookingView) error {
	f, err := Build(from, to, bookings)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save stores the workbook under dir and returns the file path.
func Save(dir, from, to string, bookings []*models.BookingView) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := Build(from, to, bookings)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, FileName(from, to))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func statusStyle(f *excelize.File, status models.Status) (int, bool) {
	var color string
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		color = "#C6EFCE"
	case models.StatusPending:
		color = "#FFEB9C"
	case models.StatusCancelled:
		color = "#FFC7CE"
	default:
		return 0, false
	}
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	return style, err == nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
