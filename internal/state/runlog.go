// internal/state/runlog.go
package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/ghostwalk/internal/types"
)

// ReplayLog is a JSONL-backed append-only log of dispatched replay
// actions, stored per-session in sessions/<sessionID>/actions.jsonl.
type ReplayLog struct {
	root  string
	mu    sync.Mutex
	locks map[types.SessionID]*sync.Mutex
}

// NewReplayLog creates a new file-backed ReplayLog rooted at the given directory.
func NewReplayLog(root string) *ReplayLog {
	return &ReplayLog{
		root:  root,
		locks: make(map[types.SessionID]*sync.Mutex),
	}
}

// getLock returns the per-session mutex, creating one if it doesn't exist.
func (l *ReplayLog) getLock(sessionID types.SessionID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lock, ok := l.locks[sessionID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	l.locks[sessionID] = lock
	return lock
}

func (l *ReplayLog) actionsPath(sessionID types.SessionID) string {
	return filepath.Join(l.root, "sessions", string(sessionID), "actions.jsonl")
}

// count reads the action file and counts lines. Caller must hold the session lock.
func (l *ReplayLog) count(sessionID types.SessionID) (int64, error) {
	f, err := os.Open(l.actionsPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open actions file: %w", err)
	}
	defer f.Close()

	var count int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan actions file: %w", err)
	}
	return count, nil
}

// Append adds an action to the session's log with an auto-incremented
// sequence number.
func (l *ReplayLog) Append(_ context.Context, sessionID types.SessionID, action *types.ReplayAction) error {
	lock := l.getLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Dir(l.actionsPath(sessionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	existing, err := l.count(sessionID)
	if err != nil {
		return err
	}
	action.Seq = existing + 1

	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}

	f, err := os.OpenFile(l.actionsPath(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open actions file: %w", err)
	}
	defer f.Close()

	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write action: %w", err)
	}

	return nil
}

// Tail returns the last N actions for the given session.
func (l *ReplayLog) Tail(_ context.Context, sessionID types.SessionID, limit int) ([]*types.ReplayAction, error) {
	lock := l.getLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(l.actionsPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open actions file: %w", err)
	}
	defer f.Close()

	var actions []*types.ReplayAction
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var action types.ReplayAction
		if err := json.Unmarshal(scanner.Bytes(), &action); err != nil {
			return nil, fmt.Errorf("unmarshal action: %w", err)
		}
		actions = append(actions, &action)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan actions file: %w", err)
	}

	if len(actions) > limit {
		actions = actions[len(actions)-limit:]
	}

	return actions, nil
}

// Count returns the number of logged actions for the given session.
func (l *ReplayLog) Count(_ context.Context, sessionID types.SessionID) (int64, error) {
	lock := l.getLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return l.count(sessionID)
}
