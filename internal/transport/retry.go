// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"github.com/forecastpipe/forecastpipe/internal/apperr"
	"github.com/forecastpipe/forecastpipe/internal/result"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Retrier wraps a Client with a bounded, observable retry policy. Only
// idempotent GET fetches pass through it and only network and server failures
// are retried, at most MaxAttempts additional times.
type Retrier struct {
	client      *Client
	maxAttempts uint
}

// NewRetrier returns a Retrier around the given Client. maxAttempts is the
// number of additional attempts after the initial request.
func NewRetrier(client *Client, maxAttempts uint) *Retrier {
	return &Retrier{client: client, maxAttempts: maxAttempts}
}

// Fetch delegates to the wrapped Client and retries failed attempts with a
// doubling backoff. Parsing, client and unauthorized failures are returned
// immediately since a retry cannot change their outcome.
func (r *Retrier) Fetch(ctx context.Context, path string, query url.Values) result.Result[json.RawMessage] {
	res := r.client.Fetch(ctx, path, query)
	backoff := initialBackoff

	for attempt := uint(1); attempt <= r.maxAttempts; attempt++ {
		if res.IsOK() || !retryable(res.Err()) {
			return res
		}
		r.client.logger.Debug("retrying failed api request",
			slog.String("path", path),
			slog.Uint64("attempt", uint64(attempt)),
			slog.String("kind", res.Err().Kind.String()))
		if !sleepOrDone(ctx, backoff) {
			return res
		}
		backoff = nextBackoff(backoff)
		res = r.client.Fetch(ctx, path, query)
	}

	return res
}

// retryable reports whether a failure class is worth another attempt
func retryable(err *apperr.Error) bool {
	return err.Kind == apperr.KindNetwork || err.Kind == apperr.KindServer
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}
