// Package snapshot captures markdown snapshots of replayed pages and stores
// them as artifacts alongside the session's replay log.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/ghostwalk/internal/types"
)

const maxSnapshotChars = 50000

// Capturer fetches pages and converts them to markdown artifacts.
type Capturer struct {
	client    *http.Client
	artifacts types.ArtifactStore
}

// New creates a Capturer writing into the given artifact store.
func New(artifacts types.ArtifactStore) *Capturer {
	return &Capturer{
		client:    &http.Client{Timeout: 30 * time.Second},
		artifacts: artifacts,
	}
}

// Capture fetches the page, converts its HTML to markdown, and stores the
// result as a "snapshot" artifact for the run.
func (c *Capturer) Capture(ctx context.Context, sessionID types.SessionID, runID types.RunID, page string) (types.ArtifactID, error) {
	if page == "" {
		return "", fmt.Errorf("page url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Ghostwalk/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	if len(md) > maxSnapshotChars {
		md = md[:maxSnapshotChars] + "\n\n[Content truncated]"
	}

	return c.artifacts.Put(ctx, sessionID, runID, "snapshot", page, map[string]string{
		"markdown": md,
	})
}

// Hook adapts the capturer to the gateway's snapshot callback. Snapshot
// failures are logged and never propagate into the replay.
func (c *Capturer) Hook() func(ctx context.Context, sessionID types.SessionID, runID types.RunID, page string) {
	return func(ctx context.Context, sessionID types.SessionID, runID types.RunID, page string) {
		if _, err := c.Capture(ctx, sessionID, runID, page); err != nil {
			slog.Warn("page snapshot failed", "page", page, "error", err)
		}
	}
}
