package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Day-first forms follow the CMIE export.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

var errEmptyValue = errors.New("empty value")

// RawRecord is one CSV row keyed by column name (after renaming).
type RawRecord map[string]string

// ParseObservation converts a raw CSV row into an Observation. Every column
// not in RequiredColumns is copied into Extra. row is the 1-based data row
// number used in error messages.
func ParseObservation(row int, rec RawRecord) (Observation, error) {
	date, err := ParseDate(rec[ColDate])
	if err != nil {
		return Observation{}, &ParseError{Row: row, Column: ColDate, Value: rec[ColDate], Err: err}
	}

	rate, err := parseFloat(rec[ColUnemploymentRate])
	if err != nil {
		return Observation{}, &ParseError{Row: row, Column: ColUnemploymentRate, Value: rec[ColUnemploymentRate], Err: err}
	}

	lat, latOK, err := parseOptionalFloat(rec[ColLatitude])
	if err != nil {
		return Observation{}, &ParseError{Row: row, Column: ColLatitude, Value: rec[ColLatitude], Err: err}
	}
	lon, lonOK, err := parseOptionalFloat(rec[ColLongitude])
	if err != nil {
		return Observation{}, &ParseError{Row: row, Column: ColLongitude, Value: rec[ColLongitude], Err: err}
	}

	obs := Observation{
		State:            rec[ColState],
		Location:         rec[ColLocation],
		Date:             date,
		UnemploymentRate: rate,
		HasCoordinates:   latOK && lonOK,
	}
	if obs.HasCoordinates {
		obs.Latitude = lat
		obs.Longitude = lon
	}

	for col, val := range rec {
		if isRequired(col) {
			continue
		}
		if obs.Extra == nil {
			obs.Extra = make(map[string]string)
		}
		obs.Extra[col] = val
	}

	return obs, nil
}

// EnrichObservation fills the derived Month, Year and MonthName columns.
func EnrichObservation(obs Observation) Observation {
	obs.Month = int(obs.Date.Month())
	obs.Year = obs.Date.Year()
	obs.MonthName = MonthName(obs.Month)
	return obs
}

// ParseDate parses a calendar date in any of the supported layouts and
// returns it at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyValue
	}
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyValue
	}
	return strconv.ParseFloat(s, 64)
}

// parseOptionalFloat treats a blank cell as absent rather than invalid.
func parseOptionalFloat(s string) (float64, bool, error) {
	if strings.TrimSpace(s) == "" {
		return 0, false, nil
	}
	v, err := parseFloat(s)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func isRequired(col string) bool {
	for _, c := range RequiredColumns {
		if c == col {
			return true
		}
	}
	return false
}
