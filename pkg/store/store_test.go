package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kass/go-geodsd/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTable = "User Metadata"

const sampleCSV = `first_name,last_name,email,lat,lon,gender
Patrick,Smith,p@x.com,40.7,-74.0,Male
Anna,Lee,a@x.com,51.5,-0.1,Female
patrick,Lower,pl@x.com,48.85,2.35,Male
Patrick,Ocean,po@x.com,0,-30,Male
Patricia,Near,pn@x.com,10,10,Female
Patrick,Blank,pb@x.com,,,Male
`

// fakeCountry stands in for the geocoder: a coarse box around New York
func fakeCountry(lat, lon float64) string {
	if lat > 40 && lat < 41 && lon > -75 && lon < -73 {
		return "United States"
	}
	return "NAN"
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"), CountryFunc(fakeCountry))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLoadCSV(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	input := writeFile(t, "users.csv", sampleCSV)

	stats, err := st.LoadCSV(ctx, input, testTable)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Rows)
	assert.Equal(t, []Column{
		{Name: "first_name", Type: TypeText},
		{Name: "last_name", Type: TypeText},
		{Name: "email", Type: TypeText},
		{Name: "lat", Type: TypeReal},
		{Name: "lon", Type: TypeReal},
		{Name: "gender", Type: TypeText},
	}, stats.Columns)

	exists, err := st.TableExists(ctx, testTable)
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := st.Count(ctx, testTable)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestLoadCSVReplaces(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	input := writeFile(t, "users.csv", sampleCSV)

	_, err := st.LoadCSV(ctx, input, testTable)
	require.NoError(t, err)
	first, err := st.QueryByFirstName(ctx, testTable, "Patrick")
	require.NoError(t, err)

	_, err = st.LoadCSV(ctx, input, testTable)
	require.NoError(t, err)
	second, err := st.QueryByFirstName(ctx, testTable, "Patrick")
	require.NoError(t, err)

	count, err := st.Count(ctx, testTable)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Email, second[i].Email)
	}
}

func TestLoadCSVErrors(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	tests := []struct {
		name  string
		input string
	}{
		{name: "missing file", input: filepath.Join(t.TempDir(), "nope.csv")},
		{name: "empty file", input: writeFile(t, "empty.csv", "")},
		{name: "ragged rows", input: writeFile(t, "ragged.csv", "first_name,last_name\nPatrick\n")},
		{name: "duplicate header", input: writeFile(t, "dup.csv", "lat,lat\n1,2\n")},
		{name: "duplicate header differing in case", input: writeFile(t, "dupcase.csv", "lat,lon,LAT\n1,2,3\n")},
		{name: "empty header name", input: writeFile(t, "blank.csv", "lat,,lon\n1,2,3\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.LoadCSV(ctx, tt.input, testTable)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrParse), "got %v", err)
		})
	}
}

func TestQueryByFirstName(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	_, err := st.LoadCSV(ctx, writeFile(t, "users.csv", sampleCSV), testTable)
	require.NoError(t, err)

	rows, err := st.QueryByFirstName(ctx, testTable, "Patrick")
	require.NoError(t, err)

	// Exact and case-sensitive: "patrick" and "Patricia" are excluded.
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"p@x.com", "po@x.com", "pb@x.com"},
		[]string{rows[0].Email, rows[1].Email, rows[2].Email})

	assert.Equal(t, "Smith", rows[0].LastName)
	assert.InDelta(t, 40.7, rows[0].Latitude, 1e-9)
	assert.InDelta(t, -74.0, rows[0].Longitude, 1e-9)
	assert.Equal(t, "United States", rows[0].Country)

	assert.Equal(t, "NAN", rows[1].Country)

	assert.True(t, math.IsNaN(rows[2].Latitude))
	assert.True(t, math.IsNaN(rows[2].Longitude))
	assert.Equal(t, "NAN", rows[2].Country)
}

func TestQueryScenario(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	input := writeFile(t, "users.csv", "first_name,last_name,email,lat,lon\n"+
		"Patrick,Smith,p@x.com,40.7,-74.0\n"+
		"Anna,Lee,a@x.com,51.5,-0.1\n")
	_, err := st.LoadCSV(ctx, input, testTable)
	require.NoError(t, err)

	rows, err := st.QueryByFirstName(ctx, testTable, "Patrick")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ResultRow{
		FirstName: "Patrick",
		LastName:  "Smith",
		Email:     "p@x.com",
		Latitude:  40.7,
		Longitude: -74.0,
		Country:   "United States",
	}, rows[0])
}

func TestQueryNoMatches(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	_, err := st.LoadCSV(ctx, writeFile(t, "users.csv", sampleCSV), testTable)
	require.NoError(t, err)

	rows, err := st.QueryByFirstName(ctx, testTable, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueryMissingColumn(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	_, err := st.LoadCSV(ctx, writeFile(t, "users.csv", "first_name,email\nPatrick,p@x.com\n"), testTable)
	require.NoError(t, err)

	_, err = st.QueryByFirstName(ctx, testTable, "Patrick")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrQuery))
}

func TestInferColumns(t *testing.T) {
	frame := &Frame{
		Header: []string{"id", "score", "name", "empty"},
		Rows: [][]string{
			{"1", "1.5", "a", ""},
			{"2", "", "b", ""},
			{"", "3", "4", ""},
		},
	}

	assert.Equal(t, []Column{
		{Name: "id", Type: TypeInteger},
		{Name: "score", Type: TypeReal},
		{Name: "name", Type: TypeText},
		{Name: "empty", Type: TypeText},
	}, frame.InferColumns())
}

func TestFrameRecords(t *testing.T) {
	frame, err := ReadFrame(writeFile(t, "users.csv", sampleCSV))
	require.NoError(t, err)

	records := frame.Records(2)
	require.Len(t, records, 2)
	assert.Equal(t, models.Record{
		FirstName: "Patrick",
		LastName:  "Smith",
		Email:     "p@x.com",
		Location:  models.Location{Lat: 40.7, Lon: -74.0},
		Extra:     map[string]string{"gender": "Male"},
	}, records[0])
	assert.Equal(t, "Anna", records[1].FirstName)

	all := frame.Records(0)
	require.Len(t, all, 6)
	assert.False(t, all[5].Location.Valid())
}

func TestIntegerCoordinates(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	_, err := st.LoadCSV(ctx, writeFile(t, "users.csv", "first_name,last_name,email,lat,lon\nPatrick,Int,i@x.com,40,-74\n"), testTable)
	require.NoError(t, err)

	rows, err := st.QueryByFirstName(ctx, testTable, "Patrick")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 40.0, rows[0].Latitude)
	assert.Equal(t, -74.0, rows[0].Longitude)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"User Metadata"`, QuoteIdent("User Metadata"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}

func TestResultQueryQuotesTable(t *testing.T) {
	q := ResultQuery("User Metadata")
	assert.True(t, strings.Contains(q, `FROM "User Metadata" AS t`))
	assert.True(t, strings.Contains(q, `findCountry(t."lat", t."lon") AS COUNTRY`))
	assert.False(t, strings.Contains(q, "Patrick"))
}

func TestCloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "close.db")
	st, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, st.Path())
	assert.NoError(t, st.Close())
	assert.NoError(t, st.Close())
}
