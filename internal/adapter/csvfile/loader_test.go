package csvfile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"github.com/couchcryptid/unemployment-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cmieCSV mirrors the layout of the published export: padded header names,
// day-first dates, extra columns and lower-case coordinate headers.
const cmieCSV = `Region, Date, Frequency, Estimated Unemployment Rate (%), Estimated Employed, Region.1,longitude,latitude
Haryana, 31-01-2020, M,20.34,5209922,North,28.0415,76.0863
Meghalaya, 31-01-2020, M,1.55,1134458,Northeast,25.467,91.3662
Haryana, 29-02-2020, M,25.77,5065000,North,28.0415,76.0863
Meghalaya, 29-02-2020, M,2.09,1165000,Northeast,25.467,91.3662
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unemployment.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRead_CMIELayout(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	defer domain.SetClock(nil)

	ds, err := Read(strings.NewReader(cmieCSV), "test.csv")
	require.NoError(t, err)

	assert.Equal(t, "test.csv", ds.Source)
	assert.Equal(t, fixed, ds.LoadedAt)
	assert.Equal(t, []string{
		domain.ColState, domain.ColDate, "Frequency", domain.ColUnemploymentRate,
		"Estimated Employed", domain.ColLocation, domain.ColLongitude, domain.ColLatitude,
		domain.ColMonth, domain.ColYear, domain.ColMonthName,
	}, ds.Columns)
	require.Equal(t, 4, ds.Len())

	first := ds.Rows[0]
	assert.Equal(t, "Haryana", first.State)
	assert.Equal(t, "North", first.Location)
	assert.Equal(t, time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 20.34, first.UnemploymentRate)
	assert.Equal(t, 76.0863, first.Latitude)
	assert.Equal(t, 28.0415, first.Longitude)
	assert.Equal(t, 1, first.Month)
	assert.Equal(t, 2020, first.Year)
	assert.Equal(t, "January", first.MonthName)
	assert.Equal(t, " M", first.Extra["Frequency"])
	assert.Equal(t, "5209922", first.Extra["Estimated Employed"])

	assert.Equal(t, "February", ds.Rows[2].MonthName)
}

func TestRead_RenameIsBijection(t *testing.T) {
	ds, err := Read(strings.NewReader(cmieCSV), "test.csv")
	require.NoError(t, err)

	assert.NotContains(t, ds.Columns, domain.RawColRegion)
	assert.NotContains(t, ds.Columns, domain.RawColRegion1)
	states := []string{"Haryana", "Meghalaya", "Haryana", "Meghalaya"}
	locations := []string{"North", "Northeast", "North", "Northeast"}
	for i, obs := range ds.Rows {
		assert.Equal(t, states[i], obs.State)
		assert.Equal(t, locations[i], obs.Location)
	}
}

func TestRead_MissingColumns(t *testing.T) {
	content := "Region,Date,Estimated Unemployment Rate (%)\nHaryana,2020-01-31,20.3\n"

	_, err := Read(strings.NewReader(content), "test.csv")

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr), "got %v", err)
	assert.Equal(t, []string{domain.ColLocation, domain.ColLatitude, domain.ColLongitude}, schemaErr.Missing)
}

func TestRead_UnparseableDate(t *testing.T) {
	content := "Region,Region.1,Date,Estimated Unemployment Rate (%),Latitude,Longitude\n" +
		"Haryana,North,2020-01-31,20.3,28.0,76.0\n" +
		"Haryana,North,someday,25.8,28.0,76.0\n"

	_, err := Read(strings.NewReader(content), "test.csv")

	var parseErr *domain.ParseError
	require.True(t, errors.As(err, &parseErr), "got %v", err)
	assert.Equal(t, 2, parseErr.Row)
	assert.Equal(t, domain.ColDate, parseErr.Column)
	assert.Equal(t, "someday", parseErr.Value)
}

func TestRead_BlankCoordinates(t *testing.T) {
	content := "Region,Region.1,Date,Estimated Unemployment Rate (%),Latitude,Longitude\n" +
		"Haryana,North,2020-01-31,20.3,,\n"

	ds, err := Read(strings.NewReader(content), "test.csv")
	require.NoError(t, err)

	require.Equal(t, 1, ds.Len())
	assert.False(t, ds.Rows[0].HasCoordinates)
}

func TestRead_RepeatedRegionHeader(t *testing.T) {
	content := "Region, Date, Estimated Unemployment Rate (%), Region,Latitude,Longitude\n" +
		"Haryana,2020-01-31,20.3,North,28.0,76.0\n"

	ds, err := Read(strings.NewReader(content), "test.csv")
	require.NoError(t, err)

	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "Haryana", ds.Rows[0].State)
	assert.Equal(t, "North", ds.Rows[0].Location)
	assert.Contains(t, ds.Columns, domain.ColLocation)
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{
			name: "trims and renames",
			raw:  []string{" Region", "Region.1 ", "latitude"},
			want: []string{domain.ColState, domain.ColLocation, domain.ColLatitude},
		},
		{
			name: "repeats get numeric suffixes",
			raw:  []string{"Note", "Note", "Note"},
			want: []string{"Note", "Note.1", "Note.2"},
		},
		{
			name: "suffix skips names already present",
			raw:  []string{"Note", "Note.1", "Note"},
			want: []string{"Note", "Note.1", "Note.2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeHeader(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeHeader_CanonicalCollision(t *testing.T) {
	_, err := normalizeHeader([]string{"Latitude", "latitude"})
	assert.ErrorContains(t, err, "both map to")
}

func TestRead_EmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""), "test.csv")
	assert.ErrorIs(t, err, errEmptyInput)
}

func TestRead_HeaderOnly(t *testing.T) {
	content := "Region,Region.1,Date,Estimated Unemployment Rate (%),Latitude,Longitude\n"

	ds, err := Read(strings.NewReader(content), "test.csv")
	require.NoError(t, err)

	assert.Equal(t, 0, ds.Len())
	assert.NotNil(t, ds.Rows)
	assert.Contains(t, ds.Columns, domain.ColState)
	assert.Contains(t, ds.Columns, domain.ColMonthName)
}

func TestRead_HeaderOnlyStillChecksSchema(t *testing.T) {
	_, err := Read(strings.NewReader("Region,Date\n"), "test.csv")

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr), "got %v", err)
	assert.Contains(t, schemaErr.Missing, domain.ColUnemploymentRate)
}

func TestLoader_Load(t *testing.T) {
	path := writeCSV(t, cmieCSV)
	metrics := observability.NewMetricsForTesting()

	ds, err := NewLoader(path, nil, testLogger(), metrics).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, path, ds.Source)
	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.DatasetRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DatasetLoads.WithLabelValues("success")))
}

func TestLoader_WarnsWhenNoPointInMapExtent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	// The published export carries latitudes under "longitude" and vice versa.
	_, err := NewLoader(writeCSV(t, cmieCSV), nil, logger, observability.NewMetricsForTesting()).Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "located_rows=4")

	buf.Reset()
	content := "Region,Region.1,Date,Estimated Unemployment Rate (%),Latitude,Longitude\n" +
		"Haryana,North,2020-01-31,20.3,28.0,76.0\n"
	_, err = NewLoader(writeCSV(t, content), nil, logger, observability.NewMetricsForTesting()).Load(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "level=WARN")
}

func TestLoader_MissingFile(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	path := filepath.Join(t.TempDir(), "absent.csv")

	_, err := NewLoader(path, nil, testLogger(), metrics).Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DatasetLoads.WithLabelValues("error")))
}

type stubGeocoder struct {
	calls int
}

func (s *stubGeocoder) ForwardGeocode(_ context.Context, name, _ string) (domain.GeocodingResult, error) {
	s.calls++
	if name == "Haryana" {
		return domain.GeocodingResult{Lat: 29.06, Lon: 76.09}, nil
	}
	return domain.GeocodingResult{}, nil
}

func TestLoader_BackfillsCoordinates(t *testing.T) {
	content := "Region,Region.1,Date,Estimated Unemployment Rate (%),Latitude,Longitude\n" +
		"Haryana,North,2020-01-31,20.3,,\n" +
		"Goa,West,2020-01-31,5.2,15.3,74.1\n" +
		"Atlantis,Sea,2020-01-31,1.0,,\n"
	geo := &stubGeocoder{}

	ds, err := NewLoader(writeCSV(t, content), geo, testLogger(), observability.NewMetricsForTesting()).Load(context.Background())
	require.NoError(t, err)

	assert.True(t, ds.Rows[0].HasCoordinates)
	assert.Equal(t, 29.06, ds.Rows[0].Latitude)
	assert.Equal(t, 15.3, ds.Rows[1].Latitude)
	assert.False(t, ds.Rows[2].HasCoordinates)
	assert.Equal(t, 2, geo.calls)
}
