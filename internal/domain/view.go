package domain

import "time"

// Page text shown above each dashboard section.
const (
	Title             = "📊 Unemployment Analysis in India"
	HeadingPreview    = "Dataset Overview"
	HeadingTrend      = "📈 Monthly Unemployment Rate"
	HeadingStateMeans = "📊 Average Unemployment Rate by State"
	HeadingGeo        = "🌍 Geographical Unemployment Distribution"
	HeadingInsights   = "📌 Insights"

	TrendChartTitle     = "Unemployment Trends Over Time"
	StateMeanChartTitle = "Average Unemployment Rate in Each State"
	GeoChartTitle       = "Impact of Lockdown on Employment across Regions"
)

// Insights is the fixed markdown block rendered under the charts. It is
// editorial text and is not computed from the data.
const Insights = `- **Haryana** has the highest unemployment rate.
- **Meghalaya** has the lowest unemployment rate.
- The highest unemployment rates were recorded in **April & May 2020**, during the COVID-19 lockdown.
- The northern regions of India faced the most unemployment.
`

// Point is one (date, rate) sample of a trend line.
type Point struct {
	Date time.Time `json:"date"`
	Rate float64   `json:"rate"`
}

// Series is the trend line of a single state.
type Series struct {
	State  string  `json:"state"`
	Points []Point `json:"points"`
}

// StateMean is the mean unemployment rate of one state.
type StateMean struct {
	State string  `json:"state"`
	Mean  float64 `json:"mean"`
}

// GeoPoint is one bubble of the geographic view.
type GeoPoint struct {
	State     string  `json:"state"`
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Rate      float64 `json:"rate"`
}

// Asia extent of the geographic chart, in degrees.
const (
	AsiaMinLon = 25.0
	AsiaMaxLon = 150.0
	AsiaMinLat = -12.0
	AsiaMaxLat = 60.0
)

// InAsia reports whether the point falls inside the geographic chart extent.
func (g GeoPoint) InAsia() bool {
	return g.Longitude >= AsiaMinLon && g.Longitude <= AsiaMaxLon &&
		g.Latitude >= AsiaMinLat && g.Latitude <= AsiaMaxLat
}

// CountInAsia returns how many points fall inside the geographic chart extent.
func CountInAsia(points []GeoPoint) int {
	n := 0
	for _, g := range points {
		if g.InAsia() {
			n++
		}
	}
	return n
}

// View is everything one dashboard render shows. Preview and Trend come from
// the filtered table; StateMeans and Geo always come from the full table.
type View struct {
	Title        string      `json:"title"`
	Selection    Selection   `json:"selection"`
	Options      Options     `json:"options"`
	Palette      []string    `json:"palette"` // full-table state order, used for stable chart colors
	Preview      *Dataset    `json:"preview"`
	Trend        []Series    `json:"trend"`
	StateMeans   []StateMean `json:"state_means"`
	Geo          []GeoPoint  `json:"geo"`
	Insights     string      `json:"insights"`
	FilteredRows int         `json:"filtered_rows"`
	TotalRows    int         `json:"total_rows"`
	LoadedAt     time.Time   `json:"loaded_at"`
}

// TrendSeries groups the rows into one series per state, in order of the
// state's first appearance. Points keep row order.
func (d *Dataset) TrendSeries() []Series {
	index := make(map[string]int)
	var out []Series
	for _, obs := range d.Rows {
		i, ok := index[obs.State]
		if !ok {
			i = len(out)
			index[obs.State] = i
			out = append(out, Series{State: obs.State})
		}
		out[i].Points = append(out[i].Points, Point{Date: obs.Date, Rate: obs.UnemploymentRate})
	}
	return out
}

// GeoPoints returns one point per row with known coordinates.
func (d *Dataset) GeoPoints() []GeoPoint {
	out := make([]GeoPoint, 0, len(d.Rows))
	for _, obs := range d.Rows {
		if !obs.HasCoordinates {
			continue
		}
		out = append(out, GeoPoint{
			State:     obs.State,
			Location:  obs.Location,
			Latitude:  obs.Latitude,
			Longitude: obs.Longitude,
			Rate:      obs.UnemploymentRate,
		})
	}
	return out
}

// ViewEvent records one dashboard render for downstream analytics.
type ViewEvent struct {
	ID           string    `json:"id"`
	View         string    `json:"view"`
	State        string    `json:"state"`
	Month        string    `json:"month"`
	Filtered     bool      `json:"filtered"` // false when both choices are All
	FilteredRows int       `json:"filtered_rows"`
	TotalRows    int       `json:"total_rows"`
	RenderedAt   time.Time `json:"rendered_at"`
}

// NewViewEvent stamps a render of the named view with the package clock.
func NewViewEvent(id, view string, v *View) ViewEvent {
	return ViewEvent{
		ID:           id,
		View:         view,
		State:        v.Selection.State,
		Month:        v.Selection.Month,
		Filtered:     !v.Selection.IsAll(),
		FilteredRows: v.FilteredRows,
		TotalRows:    v.TotalRows,
		RenderedAt:   Now(),
	}
}
