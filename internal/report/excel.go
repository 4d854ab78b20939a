// Package report builds staff-facing exports: xlsx downloads and the
// Google Sheets mirror of the reservation ledger.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"rentadesk/internal/models"
)

var reservationColumns = []string{
	"ID", "Public ID", "Unit", "Customer", "Phone", "Email",
	"From", "To", "Status", "Created",
}

// ExcelWriter builds a workbook sheet by sheet.
type ExcelWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{file: excelize.NewFile()}
}

// AddSheet starts a new sheet. The first call renames the default one.
func (w *ExcelWriter) AddSheet(name string) error {
	if len(name) > 31 {
		name = name[:31] // Excel sheet name limit
	}

	if w.currentSheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes a bold header row to the current sheet.
func (w *ExcelWriter) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow appends a data row to the current sheet.
func (w *ExcelWriter) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *ExcelWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases workbook resources.
func (w *ExcelWriter) Close() error {
	return w.file.Close()
}

// WriteReservationsReport renders reservations grouped into one sheet
// per resource category, in the order given.
func WriteReservationsReport(wr io.Writer, reservations []models.Reservation, categoryOf func(resourceID int64) string) error {
	w := NewExcelWriter()
	defer w.Close()

	grouped := make(map[string][]models.Reservation)
	var order []string
	for _, r := range reservations {
		cat := categoryOf(r.ResourceID)
		if cat == "" {
			cat = "other"
		}
		if _, seen := grouped[cat]; !seen {
			order = append(order, cat)
		}
		grouped[cat] = append(grouped[cat], r)
	}
	if len(order) == 0 {
		order = append(order, "reservations")
	}

	for _, cat := range order {
		if err := w.AddSheet(cat); err != nil {
			return err
		}
		if err := w.WriteHeader(reservationColumns); err != nil {
			return err
		}
		for i := range grouped[cat] {
			if err := w.WriteRow(reservationRowValues(&grouped[cat][i])); err != nil {
				return err
			}
		}
	}

	return w.Save(wr)
}

func reservationRowValues(r *models.Reservation) []interface{} {
	return []interface{}{
		r.ID,
		r.PublicID,
		r.ResourceName,
		r.CustomerName,
		r.CustomerPhone,
		r.CustomerEmail,
		r.Interval.Start.Format("2006-01-02 15:04"),
		r.Interval.End.Format("2006-01-02 15:04"),
		r.Status,
		r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
