package domain

import (
	"strconv"
	"strings"
	"time"
)

// Column names after the loader's rename step.
const (
	ColState            = "State"
	ColLocation         = "Location"
	ColDate             = "Date"
	ColUnemploymentRate = "Estimated Unemployment Rate (%)"
	ColLatitude         = "Latitude"
	ColLongitude        = "Longitude"
	ColMonth            = "Month"
	ColYear             = "Year"
	ColMonthName        = "Month_Name"
)

// Raw column names renamed by the loader.
const (
	RawColRegion  = "Region"
	RawColRegion1 = "Region.1"
)

// RequiredColumns lists the columns every input file must provide, after renaming.
var RequiredColumns = []string{
	ColState,
	ColLocation,
	ColDate,
	ColUnemploymentRate,
	ColLatitude,
	ColLongitude,
}

// Renames maps raw header names to their dashboard names.
var Renames = map[string]string{
	RawColRegion:  ColState,
	RawColRegion1: ColLocation,
}

// CanonicalColumn maps a trimmed raw header name to its dashboard name:
// Renames first, then a case-insensitive match against RequiredColumns.
// Other names are returned unchanged.
func CanonicalColumn(name string) string {
	if renamed, ok := Renames[name]; ok {
		return renamed
	}
	for _, c := range RequiredColumns {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return name
}

// DateLayout is the display format for observation dates.
const DateLayout = "2006-01-02"

// Observation is one region/date sample of the unemployment survey.
type Observation struct {
	State            string            `json:"state"`
	Location         string            `json:"location"`
	Date             time.Time         `json:"date"`
	UnemploymentRate float64           `json:"unemployment_rate"`
	Latitude         float64           `json:"latitude,omitempty"`
	Longitude        float64           `json:"longitude,omitempty"`
	HasCoordinates   bool              `json:"has_coordinates"`
	Month            int               `json:"month"`
	Year             int               `json:"year"`
	MonthName        string            `json:"month_name"`
	Extra            map[string]string `json:"extra,omitempty"` // untyped CSV columns by header name
}

// Field returns the display value of the named column, or "" when the
// observation has no such column.
func (o Observation) Field(column string) string {
	switch column {
	case ColState:
		return o.State
	case ColLocation:
		return o.Location
	case ColDate:
		return o.Date.Format(DateLayout)
	case ColUnemploymentRate:
		return strconv.FormatFloat(o.UnemploymentRate, 'f', -1, 64)
	case ColLatitude:
		if !o.HasCoordinates {
			return ""
		}
		return strconv.FormatFloat(o.Latitude, 'f', -1, 64)
	case ColLongitude:
		if !o.HasCoordinates {
			return ""
		}
		return strconv.FormatFloat(o.Longitude, 'f', -1, 64)
	case ColMonth:
		return strconv.Itoa(o.Month)
	case ColYear:
		return strconv.Itoa(o.Year)
	case ColMonthName:
		return o.MonthName
	default:
		return o.Extra[column]
	}
}

// Dataset is the loaded table. It is built once by the loader and never
// modified afterwards; Filter and Head return new Datasets.
type Dataset struct {
	Source   string        `json:"source"`
	Columns  []string      `json:"columns"`
	Rows     []Observation `json:"rows"`
	LoadedAt time.Time     `json:"loaded_at"`
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Head returns a Dataset holding the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	if n < 0 {
		n = 0
	}
	return d.derive(d.Rows[:n:n])
}

// derive copies the dataset metadata around a new row slice.
func (d *Dataset) derive(rows []Observation) *Dataset {
	cols := make([]string, len(d.Columns))
	copy(cols, d.Columns)
	out := make([]Observation, len(rows))
	copy(out, rows)
	return &Dataset{
		Source:   d.Source,
		Columns:  cols,
		Rows:     out,
		LoadedAt: d.LoadedAt,
	}
}
