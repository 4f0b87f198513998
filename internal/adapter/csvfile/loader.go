// Package csvfile loads the unemployment dataset from a CSV file.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"github.com/couchcryptid/unemployment-dashboard/internal/observability"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Loader reads the dataset from a CSV file on disk.
type Loader struct {
	path     string
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewLoader creates a Loader for path. geocoder may be nil, in which case
// rows without coordinates are left as they are.
func NewLoader(path string, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		path:     path,
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
	}
}

// Load reads, validates and parses the whole file. A missing file yields an
// error matching fs.ErrNotExist; a missing column yields *domain.SchemaError;
// a bad cell yields *domain.ParseError.
func (l *Loader) Load(ctx context.Context) (*domain.Dataset, error) {
	start := time.Now()

	ds, err := l.load(ctx)
	if err != nil {
		l.metrics.DatasetLoads.WithLabelValues("error").Inc()
		l.logger.Error("dataset load failed", "path", l.path, "error", err)
		return nil, err
	}

	l.metrics.DatasetLoads.WithLabelValues("success").Inc()
	l.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	l.metrics.DatasetRows.Set(float64(ds.Len()))
	l.logger.Info("dataset loaded",
		"path", l.path,
		"rows", ds.Len(),
		"columns", len(ds.Columns),
		"duration", time.Since(start),
	)
	if geo := ds.GeoPoints(); len(geo) > 0 && domain.CountInAsia(geo) == 0 {
		l.logger.Warn("no coordinates fall inside the map extent; latitude and longitude may be swapped",
			"path", l.path,
			"located_rows", len(geo),
		)
	}
	return ds, nil
}

func (l *Loader) load(ctx context.Context) (*domain.Dataset, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Read(f, l.path)
	if err != nil {
		return nil, err
	}

	if l.geocoder != nil {
		ds.Rows = domain.BackfillCoordinates(ctx, ds.Rows, l.geocoder, l.logger)
	}
	return ds, nil
}

// Read parses CSV content into a Dataset. source is recorded on the result.
// A header with no data rows yields an empty Dataset once the header passes
// the schema check.
func Read(r io.Reader, source string) (*domain.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	raw, hasRows, err := peekHeader(data)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	names, err := normalizeHeader(raw)
	if err != nil {
		return nil, err
	}
	if missing := missingColumns(names); len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing}
	}

	rows := make([]domain.Observation, 0)
	if hasRows {
		if rows, err = parseRows(data, names); err != nil {
			return nil, err
		}
	}

	columns := append(names, domain.ColMonth, domain.ColYear, domain.ColMonthName)
	return &domain.Dataset{
		Source:   source,
		Columns:  columns,
		Rows:     rows,
		LoadedAt: domain.Now(),
	}, nil
}

func parseRows(data []byte, names []string) ([]domain.Observation, error) {
	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithLazyQuotes(true),
		dataframe.NaNValues(nil),
		dataframe.Names(names...),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}

	cols := make(map[string][]string, len(names))
	for _, name := range names {
		cols[name] = df.Col(name).Records()
	}

	rows := make([]domain.Observation, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		rec := make(domain.RawRecord, len(names))
		for _, name := range names {
			rec[name] = cols[name][i]
		}
		obs, err := domain.ParseObservation(i+1, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, domain.EnrichObservation(obs))
	}
	return rows, nil
}

// peekHeader returns the header record and whether any record follows it.
// The dataframe reader rejects header-only input, so the header is read
// separately with the same tokenizer settings.
func peekHeader(data []byte) ([]string, bool, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, false, errEmptyInput
	}
	if err != nil {
		return nil, false, err
	}
	_, err = cr.Read()
	return header, !errors.Is(err, io.EOF), nil
}

var errEmptyInput = errors.New("empty input")

// normalizeHeader trims header names, suffixes repeats as X.1, X.2, ...
// and renames columns to their canonical names (see domain.CanonicalColumn).
func normalizeHeader(raw []string) ([]string, error) {
	names := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(name)
		unique := name
		for n := 1; used[unique]; n++ {
			unique = name + "." + strconv.Itoa(n)
		}
		used[unique] = true
		names[i] = unique
	}

	seen := make(map[string]string, len(names))
	for i, name := range names {
		canonical := domain.CanonicalColumn(name)
		if prev, ok := seen[canonical]; ok {
			return nil, fmt.Errorf("normalize header: %q and %q both map to %q", prev, name, canonical)
		}
		seen[canonical] = name
		names[i] = canonical
	}
	return names, nil
}

func missingColumns(names []string) []string {
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	var missing []string
	for _, c := range domain.RequiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
