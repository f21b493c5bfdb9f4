// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

// Package transport issues HTTP requests to the forecast backend and maps every
// outcome onto a classified Result.
package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/forecastpipe/forecastpipe/internal/apperr"
	"github.com/forecastpipe/forecastpipe/internal/config"
	"github.com/forecastpipe/forecastpipe/internal/logger"
	"github.com/forecastpipe/forecastpipe/internal/result"
)

const (
	// DefaultTimeout is the default timeout value for the Client
	DefaultTimeout = time.Second * 10

	// maxErrorBodyBytes caps how much of an error response body is kept as raw message
	maxErrorBodyBytes = 512
)

var (
	// version is the version of the application (will be set at build time)
	version = "dev"
	// UserAgent is the User-Agent that the HTTP client sends with API requests
	UserAgent = fmt.Sprintf("Mozilla/5.0 (%s; %s) forecastpipe/%s", runtime.GOOS, runtime.GOARCH, version)
)

// Client is a type wrapper for the Go stdlib http.Client with the backend base
// URL and request logging settings attached.
type Client struct {
	*http.Client
	baseURL     string
	logger      *logger.Logger
	logRequests bool
}

// New returns a new transport Client configured from the given Config
func New(conf *config.Config, log *logger.Logger) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	httpTransport := &http.Transport{TLSClientConfig: tlsConfig}
	timeout := conf.APITimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: httpTransport,
	}
	return &Client{
		Client:      httpClient,
		baseURL:     strings.TrimRight(conf.APIBaseURL, "/"),
		logger:      log,
		logRequests: conf.EnableLogging,
	}
}

// Fetch performs a HTTP GET request for the given relative path and returns the
// raw JSON body as a Result. Transport failures and timeouts map to a network
// failure, non-2xx status codes map via their status code and a non-JSON 2xx
// body maps to a parsing failure. A deliberate caller cancellation is not a
// network fault and maps to an unknown failure instead. Fetch itself never
// retries.
func (c *Client) Fetch(ctx context.Context, path string, query url.Values) result.Result[json.RawMessage] {
	start := time.Now()

	reqURL, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return result.Fail[json.RawMessage](apperr.Newf(apperr.KindUnknown,
			"failed to parse URL: %s", err))
	}
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return result.Fail[json.RawMessage](apperr.Newf(apperr.KindUnknown,
			"failed to create new HTTP request with context: %s", err))
	}
	request.Header.Set("User-Agent", UserAgent)
	request.Header.Set("Accept", "application/json")

	response, err := c.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return result.Fail[json.RawMessage](apperr.Newf(apperr.KindUnknown,
				"request canceled: %s", err))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return result.Fail[json.RawMessage](apperr.Newf(apperr.KindNetwork,
				"request timed out: %s", err))
		}
		return result.Fail[json.RawMessage](apperr.Newf(apperr.KindNetwork,
			"failed to perform HTTP request: %s", err))
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("failed to close HTTP response body", logger.Err(err))
		}
	}(response.Body)

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return result.Fail[json.RawMessage](apperr.Newf(apperr.KindNetwork,
			"failed to read HTTP response body: %s", err))
	}

	c.logRequest(request, response.StatusCode, time.Since(start))

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return result.Fail[json.RawMessage](apperr.FromStatus(response.StatusCode,
			statusMessage(response.StatusCode, body)))
	}

	if !json.Valid(body) {
		return result.Fail[json.RawMessage](apperr.New(apperr.KindParsing,
			"response body is not valid JSON"))
	}

	return result.Ok(json.RawMessage(body))
}

// logRequest emits a structured log line for the request when request logging is
// enabled. Bodies are never logged.
func (c *Client) logRequest(request *http.Request, status int, latency time.Duration) {
	if !c.logRequests {
		return
	}
	c.logger.Debug("api request completed",
		slog.String("method", request.Method),
		slog.String("path", request.URL.Path),
		slog.Int("status", status),
		slog.Duration("latency", latency))
}

// statusMessage derives the raw message for a non-2xx response. A short body is
// preferred over the generic status text.
func statusMessage(code int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(code)
	}
	if len(text) > maxErrorBodyBytes {
		text = text[:maxErrorBodyBytes]
	}
	return text
}
