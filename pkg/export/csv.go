// Package export writes query results to files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/kass/go-geodsd/pkg/models"
)

// WriteCSV writes rows with a header row and no index column
func WriteCSV(path string, rows []models.ResultRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w: %w", path, models.ErrIO, err)
	}

	if err := EncodeCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w: %w", path, models.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w: %w", path, models.ErrIO, err)
	}
	return nil
}

// EncodeCSV writes the CSV form of rows to w
func EncodeCSV(w io.Writer, rows []models.ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.ResultColumns); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.FirstName,
			r.LastName,
			r.Email,
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
			r.Country,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatFloat uses the shortest exact representation; NaN is an empty cell
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadCSV reads a file written by WriteCSV. The header must match the result columns.
func ReadCSV(path string) ([]models.ResultRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w: %w", path, models.ErrParse, err)
	}
	defer f.Close()

	rows, err := DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// DecodeCSV parses the CSV form of a query result
func DecodeCSV(r io.Reader) ([]models.ResultRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(models.ResultColumns)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header: %w", models.ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrParse, err)
	}
	for i, col := range models.ResultColumns {
		if header[i] != col {
			return nil, fmt.Errorf("column %d is %q, want %q: %w", i+1, header[i], col, models.ErrParse)
		}
	}

	var rows []models.ResultRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrParse, err)
		}

		lat, err := parseFloat(rec[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w: %w", len(rows)+1, models.ErrParse, err)
		}
		lon, err := parseFloat(rec[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w: %w", len(rows)+1, models.ErrParse, err)
		}

		rows = append(rows, models.ResultRow{
			FirstName: rec[0],
			LastName:  rec[1],
			Email:     rec[2],
			Latitude:  lat,
			Longitude: lon,
			Country:   rec[5],
		})
	}
	return rows, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
