// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

// Package apperr classifies operation failures into a closed set of kinds with
// stable user-facing messages.
package apperr

import "fmt"

// Kind enumerates the possible failure classes. The set is closed, every
// consumer is expected to handle all of them.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindServer
	KindClient
	KindParsing
	KindUnauthorized
	KindNotFound
)

// String satisfies the fmt.Stringer interface for the Kind type
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	case KindParsing:
		return "parsing"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindUnknown:
		return "unknown"
	}
	return "unknown"
}

// Error is a classified failure. RawMessage holds the internal error text and is
// never shown to the user, StatusCode is only set for HTTP status failures.
type Error struct {
	Kind       Kind
	RawMessage string
	StatusCode int
}

// Error satisfies the error interface. It returns the internal representation,
// user-facing output must use UserMessage instead.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.RawMessage)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.RawMessage)
}

// UserMessage derives the user-facing message from the error's Kind and
// StatusCode. The wording is stable, the same inputs always yield the
// same message.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNetwork:
		return "No network connection. Check your connection."
	case KindServer:
		return "A server error occurred. Try again later."
	case KindClient:
		switch e.StatusCode {
		case 404:
			return "Data was not found."
		case 403:
			return "You do not have access to this resource."
		}
		return e.RawMessage
	case KindParsing:
		return "Could not read data from the server."
	case KindUnauthorized:
		return "You must sign in again."
	case KindNotFound:
		return "Data was not found."
	case KindUnknown:
		return "An unexpected error occurred."
	}
	return "An unexpected error occurred."
}

// New creates a new classified Error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, RawMessage: message}
}

// Newf creates a new classified Error with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, RawMessage: fmt.Sprintf(format, args...)}
}

// FromStatus creates an Error for a non-2xx HTTP response. The Kind is derived
// purely from the status code.
func FromStatus(code int, message string) *Error {
	return &Error{Kind: KindFromStatus(code), RawMessage: message, StatusCode: code}
}

// KindFromStatus maps a HTTP status code to a failure Kind
func KindFromStatus(code int) Kind {
	switch {
	case code >= 500:
		return KindServer
	case code == 401:
		return KindUnauthorized
	case code >= 400:
		return KindClient
	}
	return KindUnknown
}
