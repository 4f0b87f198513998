package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/unemployment-dashboard/internal/adapter/http"
	"github.com/couchcryptid/unemployment-dashboard/internal/dashboard"
	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"github.com/couchcryptid/unemployment-dashboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type stubLoader struct {
	ds  *domain.Dataset
	err error
}

func (s *stubLoader) Load(_ context.Context) (*domain.Dataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ds, nil
}

func obs(state, location string, month time.Month, day int, rate, lat, lon float64) domain.Observation {
	return domain.EnrichObservation(domain.Observation{
		State:            state,
		Location:         location,
		Date:             time.Date(2020, month, day, 0, 0, 0, 0, time.UTC),
		UnemploymentRate: rate,
		Latitude:         lat,
		Longitude:        lon,
		HasCoordinates:   true,
	})
}

func testDataset() *domain.Dataset {
	return &domain.Dataset{
		Source: "unemployment.csv",
		Columns: []string{
			domain.ColState, domain.ColLocation, domain.ColDate, domain.ColUnemploymentRate,
			domain.ColLatitude, domain.ColLongitude, domain.ColMonth, domain.ColYear, domain.ColMonthName,
		},
		Rows: []domain.Observation{
			obs("Haryana", "North", time.January, 31, 20.3, 28.04, 76.09),
			obs("Meghalaya", "Northeast", time.January, 31, 1.6, 25.47, 91.37),
			obs("Haryana", "North", time.February, 29, 25.8, 28.04, 76.09),
			obs("Meghalaya", "Northeast", time.February, 29, 2.1, 25.47, 91.37),
		},
		LoadedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, loader dashboard.Loader, readyErr error, opts httpadapter.Options) *httpadapter.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dash := dashboard.New(dashboard.NewSource(loader), nil, logger, observability.NewMetricsForTesting(), 5)
	return httpadapter.NewServer(":0", dash, &mockReadiness{err: readyErr}, logger, opts)
}

func get(srv http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, fmt.Errorf("dataset has not been loaded yet"), httpadapter.Options{})
	rec := get(srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "dataset has not been loaded yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPage_DefaultSelection(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, domain.Title)
	assert.Contains(t, body, domain.HeadingPreview)
	assert.Contains(t, body, domain.HeadingInsights)
	assert.Contains(t, body, `<option value="All" selected>All</option>`)
	assert.Contains(t, body, `<option value="Haryana">Haryana</option>`)
	assert.Contains(t, body, `<option value="February">February</option>`)
	assert.Contains(t, body, `/charts/trend.svg?month=All&amp;state=All`)
	assert.Contains(t, body, "<strong>Haryana</strong> has the highest unemployment rate.")
	assert.Contains(t, body, "Built with ❤️ using Go")
	assert.Contains(t, body, "4 of 4 rows")
}

func TestPage_FilteredSelection(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/?state=Haryana&month=January")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="Haryana" selected>Haryana</option>`)
	assert.Contains(t, body, `<option value="January" selected>January</option>`)
	assert.Contains(t, body, "1 of 4 rows")
	assert.Contains(t, body, "<td>20.3</td>")
	assert.NotContains(t, body, "<td>Meghalaya</td>")
}

func TestPage_EmptySelectionStillRenders(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/?state=Goa")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "0 of 4 rows")
	assert.Contains(t, body, "No rows match the current filters.")
	assert.Contains(t, body, "<th>"+domain.ColState+"</th>")
}

func TestPage_LoadErrorReturns500(t *testing.T) {
	srv := newTestServer(t, &stubLoader{err: errors.New("open dataset: no such file")}, nil, httpadapter.Options{})
	rec := get(srv, "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "no such file")
}

func TestCharts(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})

	for path, title := range map[string]string{
		"/charts/trend.svg":       domain.TrendChartTitle,
		"/charts/state-means.svg": domain.StateMeanChartTitle,
		"/charts/geo.svg":         domain.GeoChartTitle,
	} {
		t.Run(path, func(t *testing.T) {
			rec := get(srv, path+"?state=Haryana")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), "<svg")
			assert.Contains(t, rec.Body.String(), title)
		})
	}
}

func TestChart_LoadErrorReturns500(t *testing.T) {
	srv := newTestServer(t, &stubLoader{err: errors.New("boom")}, nil, httpadapter.Options{})
	rec := get(srv, "/charts/trend.svg")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPIView(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/api/view?state=Haryana")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var v struct {
		Selection    domain.Selection   `json:"selection"`
		StateMeans   []domain.StateMean `json:"state_means"`
		FilteredRows int                `json:"filtered_rows"`
		TotalRows    int                `json:"total_rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, domain.Selection{State: "Haryana", Month: domain.All}, v.Selection)
	assert.Equal(t, 2, v.FilteredRows)
	assert.Equal(t, 4, v.TotalRows)
	assert.Len(t, v.StateMeans, 2, "state means cover the full table")
}

func TestAPIView_LoadErrorReturnsJSON500(t *testing.T) {
	srv := newTestServer(t, &stubLoader{err: errors.New("boom")}, nil, httpadapter.Options{})
	rec := get(srv, "/api/view")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["text"], "boom")
}

func TestAPIOptions(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/api/options")

	require.Equal(t, http.StatusOK, rec.Code)
	var opts domain.Options
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	assert.Equal(t, []string{domain.All, "Haryana", "Meghalaya"}, opts.States)
	assert.Equal(t, []string{domain.All, "January", "February"}, opts.Months)
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/export.xlsx?state=Meghalaya")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "unemployment.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.NotEmpty(t, sheets)
	rows, err := f.GetRows(sheets[0])
	require.NoError(t, err)
	assert.Len(t, rows, 3, "header plus two Meghalaya rows")
}

func TestDebugDataset(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/debug/dataset")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "unemployment.csv")
	assert.Contains(t, body, "Haryana")
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})

	rec := get(srv, "/healthz")
	assert.NotEmpty(t, rec.Header().Get(httpadapter.HeaderRequestID))

	rec = get(srv, "/healthz", httpadapter.HeaderRequestID, "req-123")
	assert.Equal(t, "req-123", rec.Header().Get(httpadapter.HeaderRequestID))
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	rec := get(srv, "/")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "img-src 'self'")
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{RateLimitRPS: 1})

	first := get(srv, "/healthz")
	assert.Equal(t, http.StatusOK, first.Code)

	second := get(srv, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"code":429,"text":"rate limit exceeded, please try again later"}`, second.Body.String())
}

func TestRateLimit_DisabledByDefault(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})
	for range 5 {
		assert.Equal(t, http.StatusOK, get(srv, "/healthz").Code)
	}
}

func TestCompression(t *testing.T) {
	srv := newTestServer(t, &stubLoader{ds: testDataset()}, nil, httpadapter.Options{})

	rec := get(srv, "/", "Accept-Encoding", "gzip")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	plain := get(srv, "/")
	assert.Empty(t, plain.Header().Get("Content-Encoding"))
	assert.True(t, strings.HasPrefix(plain.Body.String(), "<!DOCTYPE html>"))
}
