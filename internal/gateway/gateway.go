package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/ghostwalk/internal/replay"
	"github.com/user/ghostwalk/internal/types"
)

// NavigatorFactory produces a fresh Navigator for each replay run.
type NavigatorFactory func() types.Navigator

// Snapshotter captures a page artifact after a navigation dispatch. Failures
// are the snapshotter's to log; a snapshot must never abort a replay.
type Snapshotter func(ctx context.Context, sessionID types.SessionID, runID types.RunID, page string)

// Gateway orchestrates replay requests into runs. It resolves (or creates)
// sessions, wraps each normalized stream in a Run, and enqueues the run for
// replay on the session's lane.
type Gateway struct {
	sessions   types.SessionStore
	log        types.ReplayLog
	navigators NavigatorFactory
	snapshot   Snapshotter
	Queue      *Queue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Gateway wired to the provided stores with the given
// concurrency limit for simultaneous replays.
func New(sessions types.SessionStore, log types.ReplayLog, navigators NavigatorFactory, maxConcurrent ...int64) *Gateway {
	var concurrency int64 = 2
	if len(maxConcurrent) > 0 && maxConcurrent[0] > 0 {
		concurrency = maxConcurrent[0]
	}
	return &Gateway{
		sessions:   sessions,
		log:        log,
		navigators: navigators,
		Queue:      NewQueue(concurrency),
	}
}

// SetSnapshotter installs the page-snapshot hook fired after each navigate.
func (g *Gateway) SetSnapshotter(fn Snapshotter) {
	g.snapshot = fn
}

// Start initialises the gateway's context and starts the internal queue.
// The queue's processor defaults to the gateway's own replay executor
// unless one was installed beforehand.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	if g.Queue.processor == nil {
		g.Queue.SetProcessor(g.process)
	}
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context, stops the queue, and waits for any
// outstanding work to finish.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
	g.wg.Wait()
}

// RunOption configures optional behavior on a Run.
type RunOption func(*Run)

// WithOnComplete sets a callback invoked when the run finishes or fails.
func WithOnComplete(fn func(string)) RunOption {
	return func(r *Run) { r.OnComplete = fn }
}

// HandleReplay resolves or creates a session for the key, wraps the stream
// in a Run, and enqueues it for replay.
func (g *Gateway) HandleReplay(ctx context.Context, key types.SessionKey, source string, stream *types.Stream, timing replay.TimingPolicy, opts ...RunOption) (*Run, error) {
	sessionID, err := g.sessions.ResolveOrCreate(ctx, key, source)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	run := NewRun(sessionID, stream, timing)
	for _, opt := range opts {
		opt(run)
	}
	if err := g.Queue.Enqueue(run); err != nil {
		return nil, err
	}
	return run, nil
}

// process executes a single run: it drives a replay engine over the stream,
// recording every dispatched action in the replay log and keeping the
// session index current.
func (g *Gateway) process(run *Run) error {
	ctx := run.Ctx
	started := time.Now()
	run.StartedAt = &started
	run.Status = RunStatusRunning
	g.updateSession(ctx, run, "running")

	observer := func(index int, kind, target string) {
		g.record(ctx, run, &types.ReplayAction{
			RunID:  run.ID,
			Index:  index,
			Kind:   kind,
			Target: target,
			At:     time.Now(),
		})
		if kind == types.ActionNavigate && g.snapshot != nil {
			g.snapshot(ctx, run.SessionID, run.ID, target)
		}
	}

	engine := replay.New(g.navigators(),
		replay.WithTiming(run.Timing),
		replay.WithObserver(observer),
	)
	err := engine.Run(ctx, run.Stream)

	ended := time.Now()
	run.EndedAt = &ended
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err
		g.record(ctx, run, &types.ReplayAction{
			RunID:  run.ID,
			Kind:   types.ActionError,
			Target: err.Error(),
			At:     ended,
		})
		g.updateSession(ctx, run, "failed")
		return err
	}

	run.Status = RunStatusComplete
	g.record(ctx, run, &types.ReplayAction{
		RunID: run.ID,
		Kind:  types.ActionComplete,
		At:    ended,
	})
	g.updateSession(ctx, run, "complete")
	if run.OnComplete != nil {
		run.OnComplete(fmt.Sprintf("Replayed %d events for session %s", run.Stream.Len(), run.SessionID))
	}
	return nil
}

func (g *Gateway) record(ctx context.Context, run *Run, action *types.ReplayAction) {
	if err := g.log.Append(ctx, run.SessionID, action); err != nil {
		slog.Warn("failed to record replay action", "run_id", string(run.ID), "kind", action.Kind, "error", err)
	}
}

func (g *Gateway) updateSession(ctx context.Context, run *Run, status string) {
	session, err := g.sessions.Get(ctx, run.SessionID)
	if err != nil {
		slog.Warn("failed to load session", "session_id", string(run.SessionID), "error", err)
		return
	}
	session.Status = status
	session.Events = run.Stream.Len()
	session.LastRunID = run.ID
	if err := g.sessions.Update(ctx, session); err != nil {
		slog.Warn("failed to update session", "session_id", string(run.SessionID), "error", err)
	}
}
