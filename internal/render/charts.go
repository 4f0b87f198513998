// Package render draws dashboard views as SVG charts, HTML and spreadsheets.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Chart canvas size.
const (
	ChartWidth  = 9 * vg.Inch
	ChartHeight = 5 * vg.Inch
)

// Bubble radius bounds of the geographic chart.
var (
	minBubble = vg.Points(2)
	maxBubble = vg.Points(14)
)

// Palette assigns each state a fixed color by its position in states, so the
// same state has the same color in every chart.
type Palette struct {
	colors map[string]color.Color
}

// NewPalette builds a Palette. Small sets use the plotutil defaults; larger
// sets are spread across the hue wheel.
func NewPalette(states []string) *Palette {
	p := &Palette{colors: make(map[string]color.Color, len(states))}
	if len(states) <= len(plotutil.DefaultColors) {
		for i, s := range states {
			p.colors[s] = plotutil.Color(i)
		}
		return p
	}
	rainbow := palette.Rainbow(len(states), 0, 0.85, 0.75, 0.85, 1).Colors()
	for i, s := range states {
		p.colors[s] = rainbow[i]
	}
	return p
}

// Color returns the color of state, or black for unknown states.
func (p *Palette) Color(state string) color.Color {
	if c, ok := p.colors[state]; ok {
		return c
	}
	return color.Black
}

// TrendChart draws the unemployment rate over time, one line per state of
// the filtered table.
func TrendChart(w io.Writer, v *domain.View) error {
	p := newPlot(domain.TrendChartTitle, "Date", domain.ColUnemploymentRate)
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 2006"}
	p.Legend.Top = true

	colors := NewPalette(v.Palette)
	for _, s := range v.Trend {
		xys := make(plotter.XYs, len(s.Points))
		for i, pt := range s.Points {
			xys[i].X = float64(pt.Date.Unix())
			xys[i].Y = pt.Rate
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("trend line %q: %w", s.State, err)
		}
		line.LineStyle.Color = colors.Color(s.State)
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.State, line)
	}

	return writeSVG(w, p)
}

// StateMeanChart draws one bar per state with its mean rate over the full table.
func StateMeanChart(w io.Writer, v *domain.View) error {
	p := newPlot(domain.StateMeanChartTitle, domain.ColState, domain.ColUnemploymentRate)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	colors := NewPalette(v.Palette)
	names := make([]string, len(v.StateMeans))
	for i, m := range v.StateMeans {
		bars, err := plotter.NewBarChart(plotter.Values{m.Mean}, vg.Points(14))
		if err != nil {
			return fmt.Errorf("bar %q: %w", m.State, err)
		}
		bars.Color = colors.Color(m.State)
		bars.LineStyle.Width = vg.Length(0)
		bars.XMin = float64(i)
		p.Add(bars)
		names[i] = m.State
	}
	if len(names) > 0 {
		p.NominalX(names...)
	}

	return writeSVG(w, p)
}

// GeoChart draws a bubble per located row of the full table over a fixed Asia
// extent. Bubble color follows the state and area grows with the rate.
func GeoChart(w io.Writer, v *domain.View) error {
	p := newPlot(domain.GeoChartTitle, "Longitude", "Latitude")
	p.Legend.Top = true

	maxRate := 0.0
	for _, g := range v.Geo {
		maxRate = math.Max(maxRate, g.Rate)
	}

	byState := make(map[string][]domain.GeoPoint)
	var order []string
	for _, g := range v.Geo {
		if !g.InAsia() {
			continue
		}
		if _, ok := byState[g.State]; !ok {
			order = append(order, g.State)
		}
		byState[g.State] = append(byState[g.State], g)
	}

	colors := NewPalette(v.Palette)
	for _, state := range order {
		points := byState[state]
		xys := make(plotter.XYs, len(points))
		for i, g := range points {
			xys[i].X = g.Longitude
			xys[i].Y = g.Latitude
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("geo points %q: %w", state, err)
		}
		c := colors.Color(state)
		sc.GlyphStyle.Color = c
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = minBubble
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  c,
				Shape:  draw.CircleGlyph{},
				Radius: BubbleRadius(points[i].Rate, maxRate),
			}
		}
		p.Add(sc)
		p.Legend.Add(state, sc)
	}

	p.X.Min, p.X.Max = domain.AsiaMinLon, domain.AsiaMaxLon
	p.Y.Min, p.Y.Max = domain.AsiaMinLat, domain.AsiaMaxLat

	return writeSVG(w, p)
}

// BubbleRadius scales rate into [minBubble, maxBubble] so that bubble area is
// proportional to the rate.
func BubbleRadius(rate, maxRate float64) vg.Length {
	if maxRate <= 0 || rate <= 0 {
		return minBubble
	}
	frac := math.Sqrt(math.Min(rate/maxRate, 1))
	return minBubble + vg.Length(frac)*(maxBubble-minBubble)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func writeSVG(w io.Writer, p *plot.Plot) error {
	c := vgsvg.New(ChartWidth, ChartHeight)
	p.Draw(draw.New(c))
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}
