// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

package forecast

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/forecastpipe/forecastpipe/internal/apperr"
	"github.com/forecastpipe/forecastpipe/internal/result"
)

// RateLimitedRepository wraps a Repository with a token-bucket rate limit so a
// misbehaving caller cannot hammer the backend.
type RateLimitedRepository struct {
	repository Repository
	limiter    *rate.Limiter
}

// NewRateLimitedRepository creates a new rate limited Repository. rps is the
// maximum requests per second allowed (fractional values are fine), burst is
// the maximum burst size.
func NewRateLimitedRepository(repository Repository, rps float64, burst int) *RateLimitedRepository {
	return &RateLimitedRepository{
		repository: repository,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimitedRepository) GetForecast(ctx context.Context) result.Result[[]Record] {
	if err := r.limiter.Wait(ctx); err != nil {
		return result.Fail[[]Record](apperr.Newf(apperr.KindNetwork,
			"rate limit wait canceled: %s", err))
	}
	return r.repository.GetForecast(ctx)
}

func (r *RateLimitedRepository) GetByDate(ctx context.Context, date Date) result.Result[Record] {
	if err := r.limiter.Wait(ctx); err != nil {
		return result.Fail[Record](apperr.Newf(apperr.KindNetwork,
			"rate limit wait canceled: %s", err))
	}
	return r.repository.GetByDate(ctx, date)
}

func (r *RateLimitedRepository) Refresh(ctx context.Context) result.Result[[]Record] {
	if err := r.limiter.Wait(ctx); err != nil {
		return result.Fail[[]Record](apperr.Newf(apperr.KindNetwork,
			"rate limit wait canceled: %s", err))
	}
	return r.repository.Refresh(ctx)
}

// Verify that the rate limited wrapper keeps satisfying the Repository seam
var _ Repository = (*RateLimitedRepository)(nil)
