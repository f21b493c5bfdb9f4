// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

// Package orchestrator translates load and refresh intents into a small set of
// UI-facing states. Intents are processed strictly in arrival order, one at a
// time, so two fetches never interleave on the same instance.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/forecastpipe/forecastpipe/internal/apperr"
	"github.com/forecastpipe/forecastpipe/internal/forecast"
	"github.com/forecastpipe/forecastpipe/internal/logger"
	"github.com/forecastpipe/forecastpipe/internal/result"
)

// Phase enumerates the states of the orchestrator state machine
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseError
)

// String satisfies the fmt.Stringer interface for the Phase type
func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// State is the UI-facing output of the orchestrator. Records and Stats are only
// set in the loaded phase, Message carries the classifier's user message in the
// error phase. Seq identifies the intent that produced the state.
type State struct {
	Phase   Phase
	Records []forecast.Record
	Stats   forecast.Stats
	Message string
	Seq     uint64
}

type intentKind int

const (
	intentLoad intentKind = iota
	intentRefresh
	intentLookup
)

// Intent is a request to move the state machine. Use the constructors below.
type Intent struct {
	kind intentKind
	date forecast.Date
	seq  uint64
}

// Load requests the initial forecast fetch
func Load() Intent {
	return Intent{kind: intentLoad}
}

// Refresh requests a re-fetch of the forecast
func Refresh() Intent {
	return Intent{kind: intentRefresh}
}

// Lookup requests the forecast record for a single calendar date
func Lookup(date forecast.Date) Intent {
	return Intent{kind: intentLookup, date: date}
}

const intentQueueSize = 32

// Orchestrator is a single-threaded state machine over the phases initial,
// loading, loaded and error. It calls the Repository exactly once per intent.
type Orchestrator struct {
	repository forecast.Repository
	logger     *logger.Logger
	intents    chan Intent

	// dispatchMu serializes sequence assignment and the enqueue attempt, so
	// seq only ever advances for accepted intents
	dispatchMu sync.Mutex
	seq        atomic.Uint64

	mu          sync.RWMutex
	state       State
	subscribers map[chan State]struct{}
}

// New returns a new Orchestrator in the initial phase. Run must be started for
// dispatched intents to be processed.
func New(repository forecast.Repository, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		repository:  repository,
		logger:      log,
		intents:     make(chan Intent, intentQueueSize),
		state:       State{Phase: PhaseInitial},
		subscribers: make(map[chan State]struct{}),
	}
}

// Dispatch queues an intent for processing. Intents are handled in arrival
// order. It reports whether the intent was accepted; a full queue rejects the
// intent instead of blocking the caller. A rejected intent does not consume a
// sequence number, so the stale check in process only ever compares against
// intents that actually made it into the queue.
func (o *Orchestrator) Dispatch(intent Intent) bool {
	o.dispatchMu.Lock()
	defer o.dispatchMu.Unlock()
	intent.seq = o.seq.Load() + 1
	select {
	case o.intents <- intent:
		o.seq.Store(intent.seq)
		return true
	default:
		o.logger.Warn("intent queue is full, dropping intent")
		return false
	}
}

// Run processes queued intents until the context is cancelled. Each intent runs
// to completion, including the network call, before the next one begins.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case intent := <-o.intents:
			o.process(ctx, intent)
		}
	}
}

// process performs one full intent cycle: loading, repository call, loaded or
// error. A result is discarded when a newer intent has been dispatched in the
// meantime, so the machine always ends in the state of the newest intent.
func (o *Orchestrator) process(ctx context.Context, intent Intent) {
	o.setState(State{Phase: PhaseLoading, Seq: intent.seq})

	res := o.callRepository(ctx, intent)

	if o.seq.Load() != intent.seq {
		o.logger.Debug("discarding stale fetch result", slog.Uint64("seq", intent.seq),
			slog.Uint64("newest", o.seq.Load()))
		return
	}

	records, err := res.Get()
	if err != nil {
		o.logger.Error("forecast fetch failed", logger.Err(err),
			slog.String("kind", err.Kind.String()))
		o.setState(State{Phase: PhaseError, Message: err.UserMessage(), Seq: intent.seq})
		return
	}

	// Summary statistics are computed once on entering the loaded phase
	o.setState(State{
		Phase:   PhaseLoaded,
		Records: records,
		Stats:   forecast.NewStats(records),
		Seq:     intent.seq,
	})
}

// callRepository performs the repository call for the given intent. Panics are
// recovered at this boundary and converted into an unknown failure so a defect
// aborts the operation without crashing the process.
func (o *Orchestrator) callRepository(ctx context.Context, intent Intent) (res result.Result[[]forecast.Record]) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("recovered panic during repository call", slog.Any("panic", p))
			res = result.Fail[[]forecast.Record](apperr.Newf(apperr.KindUnknown,
				"recovered panic: %v", p))
		}
	}()

	switch intent.kind {
	case intentLoad:
		return o.repository.GetForecast(ctx)
	case intentRefresh:
		return o.repository.Refresh(ctx)
	case intentLookup:
		record, err := o.repository.GetByDate(ctx, intent.date).Get()
		if err != nil {
			return result.Fail[[]forecast.Record](err)
		}
		return result.Ok([]forecast.Record{record})
	}
	return result.Fail[[]forecast.Record](apperr.Newf(apperr.KindUnknown,
		"unhandled intent kind: %d", intent.kind))
}

// Current returns a snapshot of the current state
func (o *Orchestrator) Current() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Subscribe adds a subscriber for state updates with the given buffer size,
// returning a state channel and an unsubscribe function. The current state is
// delivered immediately.
func (o *Orchestrator) Subscribe(size int) (<-chan State, func()) {
	if size < 1 {
		size = 1
	}
	stateChan := make(chan State, size)
	o.mu.Lock()
	o.subscribers[stateChan] = struct{}{}
	stateChan <- o.state
	o.mu.Unlock()

	unsub := func() {
		o.mu.Lock()
		delete(o.subscribers, stateChan)
		o.mu.Unlock()
		close(stateChan)
	}

	return stateChan, unsub
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	for ch := range o.subscribers {
		select {
		case ch <- state:
		default:
		}
	}
	o.mu.Unlock()
}
