// Package domain models regional unemployment observations and the dashboard
// views built from them.
//
// # Data Source
//
// Observations come from a CSV export of the Centre for Monitoring Indian
// Economy (CMIE) unemployment survey, one row per region and reporting date,
// for example "Unemployment_Rate_upto_11_2020.csv". The loader adapter reads
// the file once per process and hands an immutable [Dataset] to the rest of
// the service.
//
// # Column Conventions
//
// Raw header names are trimmed of surrounding whitespace before matching; the
// published export pads most of them with a leading space.
//
//	"Region"                           →  State      (renamed, value unchanged)
//	"Region.1"                         →  Location   (renamed, value unchanged)
//	"Date"                             →  Date       (calendar date)
//	"Estimated Unemployment Rate (%)"  →  UnemploymentRate
//	"Latitude", "Longitude"            →  Latitude, Longitude (blank = unknown)
//
// Any other column (Frequency, Estimated Employed, ...) is carried verbatim in
// [Observation.Extra] so previews and exports show the full row.
//
// Date format:
//
//	ISO "2020-01-31" is tried first, then the day-first forms used by the
//	CMIE export: "31-01-2020" and "31/01/2020". See [ParseDate].
//
// Derived columns:
//
//	Month       1–12 from Date
//	Year        calendar year from Date
//	Month_Name  English month name from Month; "Invalid Month" outside 1–12
//
// # Filtering
//
// A [Selection] holds the two sidebar choices. "All" disables a predicate.
// Filtering returns a new [Dataset] and never touches the source rows. The
// per-state mean and the geographic view are always computed over the full
// table, independent of the selection.
package domain
