// Package dashboard assembles dashboard views from the memoized dataset.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"github.com/couchcryptid/unemployment-dashboard/internal/observability"
	"github.com/google/uuid"
)

// DatasetSource provides the full, read-only dataset.
type DatasetSource interface {
	Dataset(ctx context.Context) (*domain.Dataset, error)
}

// EventPublisher records rendered views downstream.
type EventPublisher interface {
	PublishView(ctx context.Context, event domain.ViewEvent) error
}

// Dashboard turns selections into views.
type Dashboard struct {
	source      DatasetSource
	publisher   EventPublisher
	logger      *slog.Logger
	metrics     *observability.Metrics
	previewRows int
}

// New creates a Dashboard. publisher may be nil to disable view events.
func New(source DatasetSource, publisher EventPublisher, logger *slog.Logger, metrics *observability.Metrics, previewRows int) *Dashboard {
	return &Dashboard{
		source:      source,
		publisher:   publisher,
		logger:      logger,
		metrics:     metrics,
		previewRows: previewRows,
	}
}

// Dataset returns the full dataset.
func (d *Dashboard) Dataset(ctx context.Context) (*domain.Dataset, error) {
	return d.source.Dataset(ctx)
}

// Options returns the sidebar choices.
func (d *Dashboard) Options(ctx context.Context) (domain.Options, error) {
	ds, err := d.source.Dataset(ctx)
	if err != nil {
		return domain.Options{}, err
	}
	return ds.Options(), nil
}

// Filtered returns the rows matching sel.
func (d *Dashboard) Filtered(ctx context.Context, sel domain.Selection) (*domain.Dataset, error) {
	ds, err := d.source.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Filter(sel), nil
}

// Render builds the view for sel. Preview and Trend use the filtered rows;
// StateMeans and Geo use the full table whatever the selection.
func (d *Dashboard) Render(ctx context.Context, sel domain.Selection) (*domain.View, error) {
	full, err := d.source.Dataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	sel = domain.NewSelection(sel.State, sel.Month)
	filtered := full
	if !sel.IsAll() {
		filtered = full.Filter(sel)
	}

	means, err := MeanByState(full)
	if err != nil {
		return nil, err
	}

	return &domain.View{
		Title:        domain.Title,
		Selection:    sel,
		Options:      full.Options(),
		Palette:      full.States(),
		Preview:      filtered.Head(d.previewRows),
		Trend:        filtered.TrendSeries(),
		StateMeans:   means,
		Geo:          full.GeoPoints(),
		Insights:     domain.Insights,
		FilteredRows: filtered.Len(),
		TotalRows:    full.Len(),
		LoadedAt:     full.LoadedAt,
	}, nil
}

// RenderView is Render plus per-view metrics and a view event. name labels
// the surface that asked for the render (page, trend, api, ...).
func (d *Dashboard) RenderView(ctx context.Context, name string, sel domain.Selection) (*domain.View, error) {
	start := time.Now()

	v, err := d.Render(ctx, sel)
	if err != nil {
		d.metrics.RenderErrors.WithLabelValues(name).Inc()
		d.logger.Error("render failed", "view", name, "error", err)
		return nil, err
	}

	d.metrics.Renders.WithLabelValues(name).Inc()
	d.metrics.RenderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	d.metrics.FilteredRows.Observe(float64(v.FilteredRows))

	d.publish(ctx, name, v)
	return v, nil
}

func (d *Dashboard) publish(ctx context.Context, name string, v *domain.View) {
	if d.publisher == nil {
		return
	}
	event := domain.NewViewEvent(uuid.NewString(), name, v)
	if err := d.publisher.PublishView(ctx, event); err != nil {
		d.logger.Warn("publish view event failed", "view", name, "event_id", event.ID, "error", err)
	}
}
