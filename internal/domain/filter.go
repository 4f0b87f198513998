package domain

import "strings"

// All is the selection value that disables a filter.
const All = "All"

// Selection holds the two sidebar choices.
type Selection struct {
	State string `json:"state"`
	Month string `json:"month"`
}

// NewSelection builds a Selection, treating blank values as All.
func NewSelection(state, month string) Selection {
	return Selection{State: normalizeChoice(state), Month: normalizeChoice(month)}
}

// IsAll reports whether neither filter is active.
func (s Selection) IsAll() bool {
	return normalizeChoice(s.State) == All && normalizeChoice(s.Month) == All
}

// Matches is the row predicate: each active choice must equal the row's value.
func (s Selection) Matches(obs Observation) bool {
	if st := normalizeChoice(s.State); st != All && obs.State != st {
		return false
	}
	if m := normalizeChoice(s.Month); m != All && obs.MonthName != m {
		return false
	}
	return true
}

func normalizeChoice(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return All
	}
	return v
}

// Options lists the choices offered by each sidebar control.
type Options struct {
	States []string `json:"states"`
	Months []string `json:"months"`
}

// Options returns All followed by the distinct State and MonthName values in
// order of first appearance.
func (d *Dataset) Options() Options {
	return Options{
		States: append([]string{All}, d.States()...),
		Months: append([]string{All}, d.MonthNames()...),
	}
}

// States returns the distinct State values in order of first appearance.
func (d *Dataset) States() []string {
	return distinct(d.Rows, func(o Observation) string { return o.State })
}

// MonthNames returns the distinct MonthName values in order of first appearance.
func (d *Dataset) MonthNames() []string {
	return distinct(d.Rows, func(o Observation) string { return o.MonthName })
}

// Filter returns a new Dataset with the rows matching sel, in original order.
// An empty result is valid.
func (d *Dataset) Filter(sel Selection) *Dataset {
	rows := make([]Observation, 0, len(d.Rows))
	for _, obs := range d.Rows {
		if sel.Matches(obs) {
			rows = append(rows, obs)
		}
	}
	return d.derive(rows)
}

func distinct(rows []Observation, key func(Observation) string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, obs := range rows {
		k := key(obs)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
