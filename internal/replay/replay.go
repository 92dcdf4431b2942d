// internal/replay/replay.go

// Package replay drives a navigator capability through a canonical event
// stream with time-faithful pacing.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/user/ghostwalk/internal/types"
)

// State is the lifecycle state of an Engine. A run is single-pass: once
// started it either reaches Completed or stays stuck where it failed.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// ErrAlreadyStarted is returned when Run is invoked on an engine that has
// already consumed its single pass.
var ErrAlreadyStarted = errors.New("replay already started")

// Context is the full dispatch context handed to an event handler. The
// handler owns the navigation decision; the stream is included so handlers
// can look ahead.
type Context struct {
	Index     int
	Event     *types.Event
	Stream    *types.Stream
	Navigator types.Navigator
	PrevPage  *string
	PrevTime  *float64
}

// Handler decides whether and how to navigate for one event. When a custom
// handler is supplied it fully replaces the default navigation policy;
// scroll and click dispatch still happen afterwards either way.
type Handler func(ctx Context) error

// Observer is notified after each successfully dispatched side effect.
type Observer func(index int, kind, target string)

// Engine replays one canonical event stream against one navigator. The
// navigator is a single logical browser session, so execution is strictly
// sequential: suspend, dispatch, side effects, then the next event.
type Engine struct {
	nav      types.Navigator
	timing   TimingPolicy
	handler  Handler
	observer Observer
	suspend  func(ctx context.Context, d time.Duration) error
	state    State
}

// Option configures an Engine.
type Option func(*Engine)

// WithTiming sets the pacing policy. Default is RecordedTiming.
func WithTiming(p TimingPolicy) Option {
	return func(e *Engine) { e.timing = p }
}

// WithHandler replaces the default navigate-on-page-change policy.
func WithHandler(h Handler) Option {
	return func(e *Engine) { e.handler = h }
}

// WithObserver registers a callback for dispatched side effects.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New creates an idle Engine bound to the given navigator.
func New(nav types.Navigator, opts ...Option) *Engine {
	e := &Engine{
		nav:     nav,
		timing:  RecordedTiming(),
		suspend: blockingSuspend,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the engine's lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Run replays the stream to exhaustion. Before each event it suspends for
// the delay computed by the timing policy, then dispatches the event:
// navigation via the handler (default: navigate iff the page changed),
// then scroll and click when the event carries them. Scroll failures are
// logged and swallowed; navigation and click failures abort the run.
// Cancellation is only observed during the inter-event suspend.
func (e *Engine) Run(ctx context.Context, stream *types.Stream) error {
	if e.state != StateIdle {
		return ErrAlreadyStarted
	}
	e.state = StateRunning

	// The previous timestamp seeds from the first event so event 1 gets a
	// zero recorded delay. It stays absent until the stream produces a
	// timestamp, keeping delays at the fallback instead of measuring
	// against epoch zero. The previous page starts absent so event 1
	// always navigates.
	var prevTime *float64
	if first, ok := stream.First(); ok {
		if ts, ok := first.Timestamp(); ok {
			prevTime = &ts
		}
	}
	var prevPage *string

	for i := 1; i <= stream.Len(); i++ {
		event, _ := stream.Get(i)

		if err := e.suspend(ctx, e.timing.Next(prevTime, event)); err != nil {
			return fmt.Errorf("suspend before event %d: %w", i, err)
		}

		dispatch := Context{
			Index:     i,
			Event:     event,
			Stream:    stream,
			Navigator: e.nav,
			PrevPage:  prevPage,
			PrevTime:  prevTime,
		}

		if e.handler != nil {
			if err := e.handler(dispatch); err != nil {
				return fmt.Errorf("handler at event %d: %w", i, err)
			}
		} else if err := e.navigateIfPageChanged(dispatch); err != nil {
			return fmt.Errorf("navigate at event %d: %w", i, err)
		}

		if px, ok := event.ScrollPixels(); ok {
			if err := e.nav.ScrollTo(px); err != nil {
				slog.Warn("scroll dispatch failed",
					"index", i, "pixels", px, "error", err)
			} else {
				e.observe(i, types.ActionScroll, strconv.FormatFloat(px, 'f', -1, 64))
			}
		}

		if x, y, ok := event.ClickPoint(); ok {
			if err := e.nav.ClickAt(x, y); err != nil {
				return fmt.Errorf("click at event %d: %w", i, err)
			}
			e.observe(i, types.ActionClick, fmt.Sprintf("%g,%g", x, y))
		}

		prevPage = event.Page
		if ts, ok := event.Timestamp(); ok {
			prevTime = &ts
		}
	}

	e.state = StateCompleted
	return nil
}

// navigateIfPageChanged is the default handler: navigate to the event's
// page exactly when it differs from the previous page. An absent previous
// page never equals a defined one, so the first event always navigates. An
// event with no page of its own never navigates.
func (e *Engine) navigateIfPageChanged(dispatch Context) error {
	page, ok := dispatch.Event.PageURL()
	if !ok {
		return nil
	}
	if dispatch.PrevPage != nil && *dispatch.PrevPage == page {
		return nil
	}
	if err := e.nav.NavigateTo(page); err != nil {
		return err
	}
	e.observe(dispatch.Index, types.ActionNavigate, page)
	return nil
}

func (e *Engine) observe(index int, kind, target string) {
	if e.observer != nil {
		e.observer(index, kind, target)
	}
}

// blockingSuspend blocks for the full delay, waking early only on
// cancellation.
func blockingSuspend(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
