// Command genmock writes a deterministic sample unemployment CSV in the same
// layout as the published CMIE export, for local runs and test fixtures. The
// output is read back through the real loader so it is guaranteed to load.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/unemployment_sample.csv -months 10 -seed 2020
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/unemployment-dashboard/internal/adapter/csvfile"
)

// header mirrors the export, including its padded names and lower-case
// coordinate columns.
var header = []string{
	"Region", " Date", " Frequency", " Estimated Unemployment Rate (%)",
	" Estimated Employed", " Estimated Labour Participation Rate (%)",
	"Region.1", "longitude", "latitude",
}

type region struct {
	state    string
	location string
	lat, lon float64
	baseRate float64 // typical pre-lockdown rate
	employed float64
}

var regions = []region{
	{"Andhra Pradesh", "South", 15.9129, 79.7400, 5.5, 16_600_000},
	{"Assam", "Northeast", 26.2006, 92.9376, 6.0, 12_000_000},
	{"Bihar", "East", 25.0961, 85.3131, 10.5, 26_700_000},
	{"Delhi", "North", 28.7041, 77.1025, 18.0, 4_900_000},
	{"Goa", "West", 15.2993, 74.1240, 6.5, 440_000},
	{"Gujarat", "West", 22.2587, 71.1924, 5.0, 23_000_000},
	{"Haryana", "North", 29.0588, 76.0856, 22.0, 5_200_000},
	{"Kerala", "South", 10.8505, 76.2711, 6.0, 9_400_000},
	{"Maharashtra", "West", 19.7515, 75.7139, 4.5, 43_500_000},
	{"Meghalaya", "Northeast", 25.4670, 91.3662, 2.0, 1_130_000},
	{"Puducherry", "South", 11.9416, 79.8083, 1.5, 440_000},
	{"Tamil Nadu", "South", 11.1271, 78.6569, 2.0, 25_500_000},
	{"Tripura", "Northeast", 23.9408, 91.9882, 29.0, 1_400_000},
	{"Uttar Pradesh", "North", 26.8467, 80.9462, 8.0, 56_000_000},
	{"West Bengal", "East", 22.9868, 87.8550, 6.5, 36_000_000},
}

// lockdownShock adds the April and May 2020 spike on top of the base rate.
var lockdownShock = map[time.Month]float64{
	time.April: 2.6,
	time.May:   1.9,
	time.June:  1.2,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the sample CSV")
	months := flag.Int("months", 10, "number of months starting January 2020 (1-12)")
	seed := flag.Uint64("seed", 2020, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *months < 1 || *months > 12 {
		return fmt.Errorf("-months must be between 1 and 12, got %d", *months)
	}

	var buf bytes.Buffer
	if err := generate(&buf, *months, *seed); err != nil {
		return err
	}

	ds, err := csvfile.Read(bytes.NewReader(buf.Bytes()), *out)
	if err != nil {
		return fmt.Errorf("generated CSV does not load: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0o600); err != nil {
		return err
	}

	log.Printf("wrote %s: %d rows, %d states, %d months", *out, ds.Len(), len(ds.States()), len(ds.MonthNames()))
	return nil
}

// generate writes one row per region per month-end of 2020.
func generate(w io.Writer, months int, seed uint64) error {
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return err
	}
	for m := 1; m <= months; m++ {
		// Day 0 of the next month is the last day of this one.
		date := time.Date(2020, time.Month(m+1), 0, 0, 0, 0, 0, time.UTC)
		for _, r := range regions {
			rate := r.baseRate * (1 + lockdownShock[date.Month()]) * (0.85 + 0.3*rng.Float64())
			rate = math.Min(math.Round(rate*100)/100, 99)
			employed := r.employed * (1 - rate/100) * (0.95 + 0.1*rng.Float64())
			participation := 35 + 15*rng.Float64()

			rec := []string{
				r.state,
				" " + date.Format("02-01-2006"),
				" M",
				strconv.FormatFloat(rate, 'f', 2, 64),
				strconv.FormatFloat(math.Round(employed), 'f', 0, 64),
				strconv.FormatFloat(participation, 'f', 2, 64),
				r.location,
				strconv.FormatFloat(r.lon, 'f', 4, 64),
				strconv.FormatFloat(r.lat, 'f', 4, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
