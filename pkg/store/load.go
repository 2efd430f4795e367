package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kass/go-geodsd/pkg/models"
)

// SQLite column affinities assigned by type inference
const (
	TypeInteger = "INTEGER"
	TypeReal    = "REAL"
	TypeText    = "TEXT"
)

// Column describes one column of a loaded table
type Column struct {
	Name string
	Type string
}

// LoadStats summarizes a table load
type LoadStats struct {
	Table   string
	Rows    int
	Columns []Column
}

// Frame is a parsed delimited file: a header and string cells
type Frame struct {
	Header []string
	Rows   [][]string
}

// ReadFrame parses a comma-delimited file with a header row.
// Every row must have as many fields as the header.
func ReadFrame(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w: %w", path, models.ErrParse, err)
	}
	defer f.Close()

	return parseFrame(f, path)
}

func parseFrame(r io.Reader, name string) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s has no header row: %w", name, models.ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w: %w", name, models.ErrParse, err)
	}

	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			return nil, fmt.Errorf("%s: column %d has an empty name: %w", name, i+1, models.ErrParse)
		}
		// SQLite column names are case-insensitive
		key := strings.ToLower(h)
		if seen[key] {
			return nil, fmt.Errorf("%s: duplicate column %q: %w", name, h, models.ErrParse)
		}
		seen[key] = true
		header[i] = h
	}

	frame := &Frame{Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w: %w", name, models.ErrParse, err)
		}
		frame.Rows = append(frame.Rows, record)
	}

	return frame, nil
}

// InferColumns assigns INTEGER, REAL or TEXT to every column. Empty cells do
// not constrain the type; an all-empty column is TEXT.
func (f *Frame) InferColumns() []Column {
	cols := make([]Column, len(f.Header))
	for i, name := range f.Header {
		cols[i] = Column{Name: name, Type: inferType(f.Rows, i)}
	}
	return cols
}

// Records returns up to limit rows as models.Record values; limit <= 0
// returns all. Unparseable or missing coordinates are NaN.
func (f *Frame) Records(limit int) []models.Record {
	n := len(f.Rows)
	if limit > 0 && limit < n {
		n = limit
	}

	index := make(map[string]int, len(f.Header))
	for i, name := range f.Header {
		index[name] = i
	}
	cell := func(row []string, name string) string {
		if i, ok := index[name]; ok {
			return row[i]
		}
		return ""
	}

	records := make([]models.Record, n)
	for i, row := range f.Rows[:n] {
		rec := models.Record{
			FirstName: cell(row, SourceFirstName),
			LastName:  cell(row, SourceLastName),
			Email:     cell(row, SourceEmail),
			Location: models.Location{
				Lat: parseFloat(cell(row, SourceLat)),
				Lon: parseFloat(cell(row, SourceLon)),
			},
		}
		for j, name := range f.Header {
			switch name {
			case SourceFirstName, SourceLastName, SourceEmail, SourceLat, SourceLon:
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[name] = row[j]
		}
		records[i] = rec
	}
	return records
}

func inferType(rows [][]string, col int) string {
	isInt, isReal, nonEmpty := true, true, false
	for _, row := range rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		nonEmpty = true
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if !isInt {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isReal = false
				break
			}
		}
	}

	switch {
	case !nonEmpty:
		return TypeText
	case isInt:
		return TypeInteger
	case isReal:
		return TypeReal
	default:
		return TypeText
	}
}

// convert turns a cell into the value stored for the column type; empty cells are NULL
func convert(v, typ string) any {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	switch typ {
	case TypeInteger:
		n, _ := strconv.ParseInt(trimmed, 10, 64)
		return n
	case TypeReal:
		x, _ := strconv.ParseFloat(trimmed, 64)
		return x
	default:
		return v
	}
}

// LoadCSV parses inputPath and writes it into table, replacing any previous
// table of that name
func (s *Store) LoadCSV(ctx context.Context, inputPath, table string) (*LoadStats, error) {
	frame, err := ReadFrame(inputPath)
	if err != nil {
		return nil, err
	}
	return s.LoadFrame(ctx, frame, table)
}

// LoadFrame writes an already parsed frame into table with replace semantics
func (s *Store) LoadFrame(ctx context.Context, frame *Frame, table string) (*LoadStats, error) {
	columns := frame.InferColumns()

	defs := make([]string, len(columns))
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = QuoteIdent(c.Name) + " " + c.Type
		names[i] = QuoteIdent(c.Name)
		marks[i] = "?"
	}

	queries := []string{
		`DROP TABLE IF EXISTS ` + QuoteIdent(table),
		`CREATE TABLE ` + QuoteIdent(table) + ` (` + strings.Join(defs, ", ") + `)`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+QuoteIdent(table)+
		` (`+strings.Join(names, ", ")+`) VALUES (`+strings.Join(marks, ", ")+`)`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for i, row := range frame.Rows {
		for j, c := range columns {
			args[j] = convert(row[j], c.Type)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit load: %w", err)
	}

	return &LoadStats{
		Table:   table,
		Rows:    len(frame.Rows),
		Columns: columns,
	}, nil
}
