package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kass/go-geodsd/pkg/config"
	"github.com/kass/go-geodsd/pkg/geocode"
	"github.com/kass/go-geodsd/pkg/models"
	"github.com/kass/go-geodsd/pkg/pipeline"
	"github.com/kass/go-geodsd/pkg/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(1, 2)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

func renderSummary(cfg *config.Config, s *pipeline.Summary) string {
	var b strings.Builder
	b.WriteString(successStyle.Render("Run complete") + "\n\n")
	fmt.Fprintf(&b, "Run ID:       %s\n", dimStyle.Render(s.RunID.String()))
	fmt.Fprintf(&b, "Rows loaded:  %s\n", statStyle.Render(strconv.Itoa(s.RowsLoaded)))
	fmt.Fprintf(&b, "Rows matched: %s %s\n",
		statStyle.Render(strconv.Itoa(s.RowsMatched)),
		dimStyle.Render(fmt.Sprintf("(first_name = %q)", cfg.QueryFilterValue)))

	var parts []string
	for _, o := range geocode.Outcomes {
		parts = append(parts, fmt.Sprintf("%s=%d", o, s.Geocode[o]))
	}
	fmt.Fprintf(&b, "Geocoding:    %s\n", strings.Join(parts, " "))
	fmt.Fprintf(&b, "Duration:     %s\n", statStyle.Render(s.Duration.Round(time.Millisecond).String()))

	b.WriteString("\n" + titleStyle.Render("Outputs") + "\n")
	for _, out := range s.Outputs {
		b.WriteString("  " + out + "\n")
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderLoad(cfg *config.Config, stats *store.LoadStats) string {
	var b strings.Builder
	b.WriteString(successStyle.Render("Load complete") + "\n\n")
	fmt.Fprintf(&b, "Store:   %s\n", cfg.StorePath)
	fmt.Fprintf(&b, "Table:   %s\n", statStyle.Render(stats.Table))
	fmt.Fprintf(&b, "Rows:    %s\n", statStyle.Render(strconv.Itoa(stats.Rows)))

	cols := make([]string, len(stats.Columns))
	for i, c := range stats.Columns {
		cols[i] = c.Name + " " + dimStyle.Render(c.Type)
	}
	fmt.Fprintf(&b, "Columns: %s", strings.Join(cols, ", "))
	return boxStyle.Render(b.String())
}

func renderRows(rows []models.ResultRow) string {
	if len(rows) == 0 {
		return dimStyle.Render("no rows")
	}

	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{r.FirstName, r.LastName, r.Email, formatCoord(r.Latitude), formatCoord(r.Longitude), r.Country}
	}
	return newTable(models.ResultColumns, data)
}

func renderRecords(records []models.Record) string {
	data := make([][]string, len(records))
	for i, r := range records {
		data[i] = []string{r.FirstName, r.LastName, r.Email, formatCoord(r.Location.Lat), formatCoord(r.Location.Lon)}
	}
	return newTable([]string{store.SourceFirstName, store.SourceLastName, store.SourceEmail, store.SourceLat, store.SourceLon}, data)
}

func newTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#BD93F9"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func formatCoord(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
