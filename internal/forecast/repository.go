// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

package forecast

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/forecastpipe/forecastpipe/internal/apperr"
	"github.com/forecastpipe/forecastpipe/internal/result"
)

// forecastPath is the single backend endpoint the repository fetches from
const forecastPath = "/WeatherForecast"

// Fetcher issues a GET request against the backend and returns the raw JSON
// payload. Both the plain transport client and its retrying wrapper satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, path string, query url.Values) result.Result[json.RawMessage]
}

// Repository is the single seam through which higher layers obtain forecast
// data. Expected failures surface as Failure results, never as panics.
type Repository interface {
	GetForecast(ctx context.Context) result.Result[[]Record]
	GetByDate(ctx context.Context, date Date) result.Result[Record]
	Refresh(ctx context.Context) result.Result[[]Record]
}

// apiRepository fetches forecast data from the backend API and maps it onto
// domain records. It is stateless, every call re-fetches.
type apiRepository struct {
	fetcher Fetcher
}

// NewRepository returns a Repository backed by the given Fetcher
func NewRepository(fetcher Fetcher) Repository {
	return &apiRepository{fetcher: fetcher}
}

func (r *apiRepository) GetForecast(ctx context.Context) result.Result[[]Record] {
	raw, err := r.fetcher.Fetch(ctx, forecastPath, nil).Get()
	if err != nil {
		return result.Fail[[]Record](err)
	}
	return Decode(raw)
}

// GetByDate fetches the full forecast and filters client-side for an exact
// calendar-date match. The full fetch per lookup is acceptable because the
// upstream dataset is small and unpaginated.
func (r *apiRepository) GetByDate(ctx context.Context, date Date) result.Result[Record] {
	records, err := r.GetForecast(ctx).Get()
	if err != nil {
		return result.Fail[Record](err)
	}
	for _, record := range records {
		if record.Date.Equal(date) {
			return result.Ok(record)
		}
	}
	return result.Fail[Record](apperr.Newf(apperr.KindNotFound,
		"no forecast available for %s", date))
}

// Refresh re-fetches the forecast. No cache exists, so it is semantically
// identical to GetForecast.
func (r *apiRepository) Refresh(ctx context.Context) result.Result[[]Record] {
	return r.GetForecast(ctx)
}
