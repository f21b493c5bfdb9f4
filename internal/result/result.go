// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

// Package result provides a two-variant wrapper for fetch outcomes. Every
// data-fetching operation returns a Result, forcing callers to handle both the
// success and the failure path explicitly.
package result

import "github.com/forecastpipe/forecastpipe/internal/apperr"

// Result holds either a success value or a classified failure, never both.
type Result[T any] struct {
	value T
	err   *apperr.Error
}

// Ok wraps a success value in a Result
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Fail wraps a classified failure in a Result
func Fail[T any](err *apperr.Error) Result[T] {
	if err == nil {
		err = apperr.New(apperr.KindUnknown, "failure constructed without error")
	}
	return Result[T]{err: err}
}

// IsOK reports whether the Result holds a success value
func (r Result[T]) IsOK() bool {
	return r.err == nil
}

// Value returns the success value. For failure Results it returns the zero value.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the classified failure or nil for success Results
func (r Result[T]) Err() *apperr.Error {
	return r.err
}

// Get returns both variants at once for callers that prefer the
// value-and-error form.
func (r Result[T]) Get() (T, *apperr.Error) {
	return r.value, r.err
}
