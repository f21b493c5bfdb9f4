// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

// Package forecast holds the forecast domain model, the JSON mapper and the
// repository that higher layers fetch domain data through.
package forecast

import (
	"fmt"
	"time"
)

// Date is a calendar date without a time component. Equality is defined by
// year, month and day.
type Date struct {
	time.Time
}

// NewDate creates a Date for the given year, month and day
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Equal reports whether both dates fall on the same calendar day
func (d Date) Equal(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month() && d.Day() == other.Day()
}

// String satisfies the fmt.Stringer interface for the Date type
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// UnmarshalJSON parses a JSON string as an ISO-8601 date. Plain dates and full
// timestamps are both accepted, the time component is discarded.
func (d *Date) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid date format: %s", string(b))
	}
	value := string(b[1 : len(b)-1])

	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return fmt.Errorf("failed to parse date: %w", err)
		}
	}
	d.Time = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)

	return nil
}

// MarshalJSON renders the Date as a JSON ISO-8601 date string
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

// Record is a single forecast entry. It is immutable once constructed,
// Summary is empty when the upstream value was null or absent.
type Record struct {
	Date         Date   `json:"date"`
	TemperatureC int    `json:"temperatureC"`
	TemperatureF int    `json:"temperatureF"`
	Summary      string `json:"summary,omitempty"`
}

// Stats holds summary temperature statistics derived once over a batch of records
type Stats struct {
	Min  int
	Max  int
	Mean float64
}

// NewStats computes summary statistics over the given records. An empty batch
// yields the zero Stats.
func NewStats(records []Record) Stats {
	if len(records) == 0 {
		return Stats{}
	}

	stats := Stats{Min: records[0].TemperatureC, Max: records[0].TemperatureC}
	sum := 0
	for _, record := range records {
		if record.TemperatureC < stats.Min {
			stats.Min = record.TemperatureC
		}
		if record.TemperatureC > stats.Max {
			stats.Max = record.TemperatureC
		}
		sum += record.TemperatureC
	}
	stats.Mean = float64(sum) / float64(len(records))

	return stats
}

// FahrenheitFromCelsius derives the Fahrenheit value the way the backend does
func FahrenheitFromCelsius(celsius int) int {
	return 32 + int(float64(celsius)/0.5556)
}
