package gateway

import (
	"context"
	"time"

	"github.com/user/ghostwalk/internal/replay"
	"github.com/user/ghostwalk/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run tracks a single replay of an event stream against a session.
type Run struct {
	ID         types.RunID
	SessionID  types.SessionID
	Stream     *types.Stream
	Timing     replay.TimingPolicy
	Status     RunStatus
	CreatedAt  time.Time
	StartedAt  *time.Time
	EndedAt    *time.Time
	Error      error
	OnComplete func(summary string)
	Ctx        context.Context
}

// NewRun creates a Run in the Queued state for the given session and stream.
func NewRun(sessionID types.SessionID, stream *types.Stream, timing replay.TimingPolicy) *Run {
	return &Run{
		ID:        types.NewRunID(),
		SessionID: sessionID,
		Stream:    stream,
		Timing:    timing,
		Status:    RunStatusQueued,
		CreatedAt: time.Now(),
	}
}
