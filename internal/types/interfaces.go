// internal/types/interfaces.go
package types

import (
	"context"
	"encoding/json"
)

// Navigator is the browser-automation capability a replay drives. It is a
// single logical browser session and is inherently serial.
type Navigator interface {
	NavigateTo(url string) error
	ScrollTo(pixels float64) error
	ClickAt(x, y float64) error
}

type SessionStore interface {
	ResolveOrCreate(ctx context.Context, key SessionKey, source string) (SessionID, error)
	Get(ctx context.Context, id SessionID) (*SessionIndex, error)
	List(ctx context.Context) ([]*SessionIndex, error)
	Update(ctx context.Context, session *SessionIndex) error
}

type ReplayLog interface {
	Append(ctx context.Context, sessionID SessionID, action *ReplayAction) error
	Tail(ctx context.Context, sessionID SessionID, limit int) ([]*ReplayAction, error)
	Count(ctx context.Context, sessionID SessionID) (int64, error)
}

type ArtifactStore interface {
	Put(ctx context.Context, sessionID SessionID, runID RunID, kind, page string, data any) (ArtifactID, error)
	Get(ctx context.Context, id ArtifactID) (json.RawMessage, error)
	GetMeta(ctx context.Context, id ArtifactID) (*ArtifactMeta, error)
}
