package export

import (
	"fmt"
	"math"

	"github.com/kass/go-geodsd/pkg/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the query results
const SheetName = "Query Results"

// WriteXLSX writes rows to a workbook with a single results sheet
func WriteXLSX(path string, rows []models.ResultRow) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w: %w", models.ErrIO, err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w: %w", models.ErrIO, err)
	}

	header := make([]interface{}, len(models.ResultColumns))
	for i, col := range models.ResultColumns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w: %w", models.ErrIO, err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%w: %w", models.ErrIO, err)
		}
		row := []interface{}{
			r.FirstName, r.LastName, r.Email,
			cellFloat(r.Latitude), cellFloat(r.Longitude),
			r.Country,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w: %w", i+1, models.ErrIO, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w: %w", models.ErrIO, err)
	}

	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w: %w", models.ErrIO, err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w: %w", path, models.ErrIO, err)
	}
	return nil
}

// cellFloat leaves missing coordinates blank
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
