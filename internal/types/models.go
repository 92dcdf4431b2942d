// internal/types/models.go
package types

import "time"

// SessionIndex tracks a replay session: one logical browser session that
// one or more replay runs have been driven through.
type SessionIndex struct {
	SessionID  SessionID  `json:"session_id"`
	SessionKey SessionKey `json:"session_key"`
	Source     string     `json:"source"`
	Status     string     `json:"status"`
	Events     int        `json:"events"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastRunID  RunID      `json:"last_run_id,omitempty"`
}

// ReplayAction is one dispatched side effect of a replay run, appended to
// the session's action log.
type ReplayAction struct {
	RunID  RunID     `json:"run_id"`
	Seq    int64     `json:"seq"`
	Index  int       `json:"index"`
	Kind   string    `json:"kind"`
	Target string    `json:"target,omitempty"`
	At     time.Time `json:"at"`
}

// Action kinds recorded in the replay log.
const (
	ActionNavigate = "navigate"
	ActionScroll   = "scroll"
	ActionClick    = "click"
	ActionComplete = "complete"
	ActionError    = "error"
)

// ArtifactMeta describes a stored artifact such as a page snapshot.
type ArtifactMeta struct {
	ID        ArtifactID `json:"id"`
	SessionID SessionID  `json:"session_id"`
	RunID     RunID      `json:"run_id"`
	Kind      string     `json:"kind"`
	Page      string     `json:"page,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	MimeType  string     `json:"mime_type,omitempty"`
}
