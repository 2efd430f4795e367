package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kass/go-geodsd/pkg/models"
)

// CountryFunction is the SQL name the country resolver is registered under
const CountryFunction = "findCountry"

// Source column names the result query reads
const (
	SourceFirstName = "first_name"
	SourceLastName  = "last_name"
	SourceEmail     = "email"
	SourceLat       = "lat"
	SourceLon       = "lon"
)

// ResultQuery builds the result SELECT for table. The first name filter is
// the only bind parameter; the table name is a quoted identifier.
func ResultQuery(table string) string {
	col := func(name string) string { return "t." + QuoteIdent(name) }

	return fmt.Sprintf(`SELECT %s AS %s, %s AS %s, %s AS %s, %s AS %s, %s AS %s, %s(%s, %s) AS %s
		FROM %s AS t
		WHERE %s = ?
		ORDER BY t.rowid`,
		col(SourceFirstName), models.ColFirstName,
		col(SourceLastName), models.ColLastName,
		col(SourceEmail), models.ColEmail,
		col(SourceLat), models.ColLatitude,
		col(SourceLon), models.ColLongitude,
		CountryFunction, col(SourceLat), col(SourceLon), models.ColCountry,
		QuoteIdent(table),
		col(SourceFirstName),
	)
}

// QueryByFirstName returns the rows of table whose first_name equals
// firstName exactly, in source order, with the resolved country of each row
func (s *Store) QueryByFirstName(ctx context.Context, table, firstName string) ([]models.ResultRow, error) {
	query := ResultQuery(table)

	rows, err := s.db.QueryContext(ctx, query, firstName)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w: %w", models.ErrQuery, err)
	}
	defer rows.Close()

	var results []models.ResultRow
	for rows.Next() {
		var (
			first, last, email, country sql.NullString
			lat, lon                    any
		)
		if err := rows.Scan(&first, &last, &email, &lat, &lon, &country); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w: %w", models.ErrQuery, err)
		}

		results = append(results, models.ResultRow{
			FirstName: first.String,
			LastName:  last.String,
			Email:     email.String,
			Latitude:  toFloat(lat),
			Longitude: toFloat(lon),
			Country:   country.String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w: %w", models.ErrQuery, err)
	}

	return results, nil
}

// toFloat converts a SQLite value to float64; NULL and non-numeric text become NaN
func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case []byte:
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	default:
		return math.NaN()
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// CountryFunc adapts a float resolver to the findCountry scalar function.
// NULL or non-numeric arguments reach resolve as NaN.
func CountryFunc(resolve func(lat, lon float64) string) ScalarFunc {
	return ScalarFunc{
		Name: CountryFunction,
		Impl: func(lat, lon any) string {
			return resolve(toFloat(lat), toFloat(lon))
		},
	}
}
