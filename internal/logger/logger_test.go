// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("new should successfully create a logger", func(t *testing.T) {
		l := New(slog.LevelInfo)
		if l == nil {
			t.Fatal("expected logger to be non-nil")
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("logger respects the configured level", func(t *testing.T) {
		tests := []struct {
			name      string
			level     slog.Level
			wantLines []string
			skipLines []string
		}{
			{"DEBUG", slog.LevelDebug, []string{"debug", "info", "warn", "error"}, nil},
			{"INFO", slog.LevelInfo, []string{"info", "warn", "error"}, []string{"debug"}},
			{"WARN", slog.LevelWarn, []string{"warn", "error"}, []string{"debug", "info"}},
			{"ERROR", slog.LevelError, []string{"error"}, []string{"debug", "info", "warn"}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				buf := bytes.NewBuffer(nil)
				l := NewLogger(tc.level, buf)
				l.Debug("debug")
				l.Info("info")
				l.Warn("warn")
				l.Error("error")

				for _, want := range tc.wantLines {
					if !strings.Contains(buf.String(), "msg="+want) {
						t.Errorf("expected %q message to be logged", want)
					}
				}
				for _, skip := range tc.skipLines {
					if strings.Contains(buf.String(), "msg="+skip) {
						t.Errorf("did not expect %q message to be logged", skip)
					}
				}
			})
		}
	})
}

func TestErr(t *testing.T) {
	t.Run("error attributes should be logged", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		l := NewLogger(slog.LevelDebug, buf)
		want := "intentionally failing"
		err := errors.New(want)
		l.Error("this is a test", Err(err))

		if !bytes.Contains(buf.Bytes(), []byte(`error="`+want+`"`)) {
			t.Errorf("expected error message to contain %q, got: %q", want, buf.String())
		}
	})
}
