package dashboard

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// MeanByState returns the mean unemployment rate of every state in ds,
// sorted by state name.
func MeanByState(ds *domain.Dataset) ([]domain.StateMean, error) {
	if ds.Len() == 0 {
		return []domain.StateMean{}, nil
	}

	states := make([]string, ds.Len())
	rates := make([]float64, ds.Len())
	for i, obs := range ds.Rows {
		states[i] = obs.State
		rates[i] = obs.UnemploymentRate
	}

	df := dataframe.New(
		series.New(states, series.String, domain.ColState),
		series.New(rates, series.Float, domain.ColUnemploymentRate),
	)
	agg := df.GroupBy(domain.ColState).Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_MEAN},
		[]string{domain.ColUnemploymentRate},
	)
	if agg.Err != nil {
		return nil, fmt.Errorf("mean by state: %w", agg.Err)
	}

	// The aggregated column name carries a suffix chosen by the library.
	var meanCol string
	for _, name := range agg.Names() {
		if name != domain.ColState {
			meanCol = name
		}
	}
	if meanCol == "" {
		return nil, fmt.Errorf("mean by state: no aggregate column in %v", agg.Names())
	}

	names := agg.Col(domain.ColState).Records()
	means := agg.Col(meanCol).Float()
	out := make([]domain.StateMean, len(names))
	for i := range names {
		out[i] = domain.StateMean{State: names[i], Mean: means[i]}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out, nil
}
