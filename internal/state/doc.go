// Package state provides filesystem-backed storage implementations.
package state

import "github.com/user/ghostwalk/internal/types"

// Compile-time interface compliance checks.
var _ types.SessionStore = (*SessionStore)(nil)
var _ types.ReplayLog = (*ReplayLog)(nil)
var _ types.ArtifactStore = (*ArtifactStore)(nil)
