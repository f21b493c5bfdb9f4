// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"testing/synctest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/forecastpipe/forecastpipe/internal/apperr"
	"github.com/forecastpipe/forecastpipe/internal/forecast"
	"github.com/forecastpipe/forecastpipe/internal/logger"
	"github.com/forecastpipe/forecastpipe/internal/result"
)

// scriptRepo returns one scripted result per call, in order. The last result
// repeats once the script is exhausted.
type scriptRepo struct {
	script []result.Result[[]forecast.Record]
	calls  int
}

func (s *scriptRepo) next() result.Result[[]forecast.Record] {
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	return s.script[idx]
}

func (s *scriptRepo) GetForecast(context.Context) result.Result[[]forecast.Record] {
	return s.next()
}

func (s *scriptRepo) Refresh(context.Context) result.Result[[]forecast.Record] {
	return s.next()
}

func (s *scriptRepo) GetByDate(ctx context.Context, date forecast.Date) result.Result[forecast.Record] {
	records, err := s.next().Get()
	if err != nil {
		return result.Fail[forecast.Record](err)
	}
	for _, record := range records {
		if record.Date.Equal(date) {
			return result.Ok(record)
		}
	}
	return result.Fail[forecast.Record](apperr.New(apperr.KindNotFound, "no match"))
}

// panicRepo simulates a programming defect inside the repository
type panicRepo struct{}

func (panicRepo) GetForecast(context.Context) result.Result[[]forecast.Record] {
	panic("intentionally panicking")
}

func (panicRepo) Refresh(context.Context) result.Result[[]forecast.Record] {
	panic("intentionally panicking")
}

func (panicRepo) GetByDate(context.Context, forecast.Date) result.Result[forecast.Record] {
	panic("intentionally panicking")
}

func testRecords() []forecast.Record {
	return []forecast.Record{
		{Date: forecast.NewDate(2024, time.January, 1), TemperatureC: 20, TemperatureF: 68, Summary: "Clear"},
		{Date: forecast.NewDate(2024, time.January, 2), TemperatureC: 10, TemperatureF: 50, Summary: "Mild"},
	}
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(slog.LevelError, io.Discard)
}

func TestNew(t *testing.T) {
	t.Run("new orchestrator starts in the initial phase", func(t *testing.T) {
		orch := New(&scriptRepo{}, quietLogger())
		if orch.Current().Phase != PhaseInitial {
			t.Errorf("expected initial phase, got %s", orch.Current().Phase)
		}
	})
}

func TestOrchestrator_Run(t *testing.T) {
	t.Run("load intent moves the machine to loaded with stats", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			repo := &scriptRepo{script: []result.Result[[]forecast.Record]{result.Ok(testRecords())}}
			orch := New(repo, quietLogger())

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go orch.Run(ctx)

			if !orch.Dispatch(Load()) {
				t.Fatal("expected intent to be accepted")
			}
			synctest.Wait()

			state := orch.Current()
			if state.Phase != PhaseLoaded {
				t.Fatalf("expected loaded phase, got %s", state.Phase)
			}
			if diff := cmp.Diff(testRecords(), state.Records); diff != "" {
				t.Errorf("unexpected records (-want +got):\n%s", diff)
			}
			want := forecast.Stats{Min: 10, Max: 20, Mean: 15}
			if diff := cmp.Diff(want, state.Stats); diff != "" {
				t.Errorf("unexpected stats (-want +got):\n%s", diff)
			}
		})
	})
	t.Run("server failure moves the machine to error with the user message", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			repo := &scriptRepo{script: []result.Result[[]forecast.Record]{
				result.Fail[[]forecast.Record](apperr.FromStatus(500, "boom")),
			}}
			orch := New(repo, quietLogger())

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go orch.Run(ctx)

			orch.Dispatch(Load())
			synctest.Wait()

			state := orch.Current()
			if state.Phase != PhaseError {
				t.Fatalf("expected error phase, got %s", state.Phase)
			}
			if state.Message != "A server error occurred. Try again later." {
				t.Errorf("unexpected error message: %q", state.Message)
			}
			if state.Message == "boom" {
				t.Error("expected the raw message to never surface")
			}
		})
	})
	t.Run("network failure renders the network user message", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			repo := &scriptRepo{script: []result.Result[[]forecast.Record]{
				result.Fail[[]forecast.Record](apperr.New(apperr.KindNetwork, "connection refused")),
			}}
			orch := New(repo, quietLogger())

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go orch.Run(ctx)

			orch.Dispatch(Load())
			synctest.Wait()

			state := orch.Current()
			if state.Phase != PhaseError {
				t.Fatalf("expected error phase, got %s", state.Phase)
			}
			if state.Message != "No network connection. Check your connection." {
				t.Errorf("unexpected error message: %q", state.Message)
			}
		})
	})
	t.Run("refresh after an error re-enters loading and recovers", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			repo := &scriptRepo{script: []result.Result[[]forecast.Record]{
				result.Fail[[]forecast.Record](apperr.New(apperr.KindNetwork, "connection refused")),
				result.Ok(testRecords()),
			}}
			orch := New(repo, quietLogger())

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go orch.Run(ctx)

			orch.Dispatch(Load())
			synctest.Wait()
			if orch.Current().Phase != PhaseError {
				t.Fatalf("expected error phase, got %s", orch.Current().Phase)
			}

			orch.Dispatch(Refresh())
			synctest.Wait()
			if orch.Current().Phase != PhaseLoaded {
				t.Fatalf("expected loaded phase after retry, got %s", orch.Current().Phase)
			}
		})
	})
	t.Run("back-to-back refreshes end in the newest intent's result", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			repo := &scriptRepo{script: []result.Result[[]forecast.Record]{
				result.Fail[[]forecast.Record](apperr.FromStatus(500, "boom")),
				result.Ok(testRecords()),
			}}
			orch := New(repo, quietLogger())
			states, unsub := orch.Subscribe(16)
			defer unsub()

			// both intents are queued before the first one is processed
			orch.Dispatch(Refresh())
			orch.Dispatch(Refresh())

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go orch.Run(ctx)
			synctest.Wait()

			final := orch.Current()
			if final.Phase != PhaseLoaded {
				t.Fatalf("expected the newest intent's result, got %s (%q)", final.Phase, final.Message)
			}
			if final.Seq != 2 {
				t.Errorf("expected final state to carry seq 2, got %d", final.Seq)
			}
			if repo.calls != 2 {
				t.Errorf("expected both intents to be processed, got %d calls", repo.calls)
			}

			// the stale first result must have been discarded, never published
			queued := len(states)
			for range queued {
				state := <-states
				if state.Seq == 1 && (state.Phase == PhaseLoaded || state.Phase == PhaseError) {
					t.Errorf("expected the stale result to be discarded, got phase %s for seq 1", state.Phase)
				}
			}
		})
	})
	t.Run("repository panic is recovered into an unknown error state", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			orch := New(panicRepo{}, quietLogger())

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go orch.Run(ctx)

			orch.Dispatch(Load())
			synctest.Wait()

			state := orch.Current()
			if state.Phase != PhaseError {
				t.Fatalf("expected error phase, got %s", state.Phase)
			}
			if state.Message != "An unexpected error occurred." {
				t.Errorf("unexpected error message: %q", state.Message)
			}
		})
	})
	t.Run("lookup intent loads a single record", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			repo := &scriptRepo{script: []result.Result[[]forecast.Record]{result.Ok(testRecords())}}
			orch := New(repo, quietLogger())

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go orch.Run(ctx)

			orch.Dispatch(Lookup(forecast.NewDate(2024, time.January, 2)))
			synctest.Wait()

			state := orch.Current()
			if state.Phase != PhaseLoaded {
				t.Fatalf("expected loaded phase, got %s", state.Phase)
			}
			if len(state.Records) != 1 {
				t.Fatalf("expected exactly 1 record, got %d", len(state.Records))
			}
			if state.Records[0].Summary != "Mild" {
				t.Errorf("expected the matching record, got %+v", state.Records[0])
			}
		})
	})
	t.Run("lookup for a missing date renders the not-found message", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			repo := &scriptRepo{script: []result.Result[[]forecast.Record]{result.Ok(testRecords())}}
			orch := New(repo, quietLogger())

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go orch.Run(ctx)

			orch.Dispatch(Lookup(forecast.NewDate(2025, time.December, 24)))
			synctest.Wait()

			state := orch.Current()
			if state.Phase != PhaseError {
				t.Fatalf("expected error phase, got %s", state.Phase)
			}
			if state.Message != "Data was not found." {
				t.Errorf("unexpected error message: %q", state.Message)
			}
		})
	})
}

func TestOrchestrator_Dispatch(t *testing.T) {
	t.Run("a full intent queue rejects further intents", func(t *testing.T) {
		orch := New(&scriptRepo{}, quietLogger())
		for range intentQueueSize {
			if !orch.Dispatch(Refresh()) {
				t.Fatal("expected intent to be accepted")
			}
		}
		if orch.Dispatch(Refresh()) {
			t.Error("expected intent to be rejected once the queue is full")
		}
	})
	t.Run("a rejected intent never discards an accepted intent's result", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			repo := &scriptRepo{script: []result.Result[[]forecast.Record]{result.Ok(testRecords())}}
			orch := New(repo, quietLogger())

			// fill the queue before the loop starts, then overflow it once
			for range intentQueueSize {
				if !orch.Dispatch(Refresh()) {
					t.Fatal("expected intent to be accepted")
				}
			}
			if orch.Dispatch(Refresh()) {
				t.Fatal("expected intent to be rejected once the queue is full")
			}

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			go orch.Run(ctx)
			synctest.Wait()

			state := orch.Current()
			if state.Phase != PhaseLoaded {
				t.Fatalf("expected the last accepted intent's result, got %s (%q)",
					state.Phase, state.Message)
			}
			if state.Seq != intentQueueSize {
				t.Errorf("expected final state to carry seq %d, got %d", intentQueueSize, state.Seq)
			}
			if repo.calls != intentQueueSize {
				t.Errorf("expected %d repository calls, got %d", intentQueueSize, repo.calls)
			}
		})
	})
}

func TestOrchestrator_Subscribe(t *testing.T) {
	t.Run("subscribers receive the current state immediately", func(t *testing.T) {
		orch := New(&scriptRepo{}, quietLogger())
		states, unsub := orch.Subscribe(4)
		defer unsub()

		select {
		case state := <-states:
			if state.Phase != PhaseInitial {
				t.Errorf("expected initial phase, got %s", state.Phase)
			}
		default:
			t.Error("expected the current state to be delivered on subscribe")
		}
	})
	t.Run("unsubscribe closes the state channel", func(t *testing.T) {
		orch := New(&scriptRepo{}, quietLogger())
		states, unsub := orch.Subscribe(4)
		unsub()

		// drain the immediately delivered state, then expect a closed channel
		for range states { //nolint:revive
		}
	})
}
