// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

package forecast

import (
	"encoding/json"

	"github.com/forecastpipe/forecastpipe/internal/apperr"
	"github.com/forecastpipe/forecastpipe/internal/result"
)

// wireRecord mirrors one element of the backend's JSON array. Pointer fields
// distinguish absent values from zero values.
type wireRecord struct {
	Date         *Date   `json:"date"`
	TemperatureC *int    `json:"temperatureC"`
	TemperatureF *int    `json:"temperatureF"`
	Summary      *string `json:"summary"`
}

// Decode maps a JSON array onto forecast records. Decoding is all-or-nothing: a
// single element with a missing date or temperatureC, or an unparseable date,
// fails the whole batch with a parsing failure. On success the output length
// equals the input array length.
func Decode(raw json.RawMessage) result.Result[[]Record] {
	var wire []wireRecord
	if err := json.Unmarshal(raw, &wire); err != nil {
		return result.Fail[[]Record](apperr.Newf(apperr.KindParsing,
			"failed to decode forecast payload: %s", err))
	}

	records := make([]Record, 0, len(wire))
	for i, w := range wire {
		if w.Date == nil {
			return result.Fail[[]Record](apperr.Newf(apperr.KindParsing,
				"forecast element %d is missing the date field", i))
		}
		if w.TemperatureC == nil {
			return result.Fail[[]Record](apperr.Newf(apperr.KindParsing,
				"forecast element %d is missing the temperatureC field", i))
		}

		record := Record{Date: *w.Date, TemperatureC: *w.TemperatureC}
		if w.TemperatureF != nil {
			record.TemperatureF = *w.TemperatureF
		} else {
			record.TemperatureF = FahrenheitFromCelsius(*w.TemperatureC)
		}
		if w.Summary != nil {
			record.Summary = *w.Summary
		}
		records = append(records, record)
	}

	return result.Ok(records)
}
