package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	m := NewMetrics("resolved", "no_country")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.AddRowsLoaded(1)
	m.ObserveStage(StageLoad, time.Second)
	m.MarkSuccess(time.Unix(1700000000, 0))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		MetricRowsLoadedTotal,
		MetricRowsMatchedTotal,
		MetricGeocodeLookupsTotal,
		MetricStageDurationSeconds,
		MetricLastRunSuccessSeconds,
	} {
		assert.True(t, names[want], want)
	}
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, NewMetrics().Register(reg))
	assert.Error(t, NewMetrics().Register(reg))
}

func TestCounters(t *testing.T) {
	m := NewMetrics("resolved", "no_country", "invalid", "error")

	m.AddRowsLoaded(4)
	m.AddRowsLoaded(2)
	m.AddRowsMatched(3)
	m.ObserveGeocode("resolved")
	m.ObserveGeocode("resolved")
	m.ObserveGeocode("invalid")

	assert.Equal(t, 6.0, testutil.ToFloat64(m.rowsLoaded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rowsMatched))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.geocodeLookups.WithLabelValues("resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.geocodeLookups.WithLabelValues("invalid")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.geocodeLookups.WithLabelValues("error")))
	assert.Equal(t, 4, testutil.CollectAndCount(m.geocodeLookups))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics("resolved")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	m.AddRowsMatched(3)

	path := filepath.Join(t.TempDir(), "geodsd.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, MetricRowsMatchedTotal+" 3"), text)
	assert.True(t, strings.Contains(text, `geodsd_geocode_lookups_total{outcome="resolved"} 0`), text)
}

func TestWriteTextfileUnwritable(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "geodsd.prom"), prometheus.NewRegistry())
	assert.Error(t, err)
}
