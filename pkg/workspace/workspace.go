package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"opencodeweb/pkg/logger"
)

// AnonymousID is the identity assigned to requests without a user header.
const AnonymousID = "anonymous"

// Manager maps opaque user identifiers to isolated per-user directories under
// a single root. Resolution is idempotent: the directory is created on first
// use and repeat calls (including concurrent ones for the same user) are
// side-effect free.
type Manager struct {
	root string
}

// NewManager creates a workspace manager rooted at root, creating the root
// directory if absent.
func NewManager(root string) (*Manager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Manager{root: abs}, nil
}

// Root returns the absolute workspace root directory.
func (m *Manager) Root() string { return m.root }

// Resolve returns the workspace directory for userID, creating it if needed.
// An empty userID resolves to the anonymous workspace. The identifier is
// sanitized so it can never name a path outside the root.
func (m *Manager) Resolve(userID string) (string, error) {
	id := sanitizeID(userID)
	path := filepath.Join(m.root, id)
	// MkdirAll is a no-op when the directory already exists, which makes
	// concurrent resolution for the same user safe.
	if err := os.MkdirAll(path, 0o755); err != nil {
		logger.Error("workspace_create_failed", "user", id, "path", path, "error", err)
		return "", fmt.Errorf("create workspace for %s: %w", id, err)
	}
	return path, nil
}

// sanitizeID reduces an opaque user identifier to a single safe path segment.
// Anything that is not alphanumeric, dash, underscore or dot is replaced, and
// identifiers that would be hidden or relative ("", ".", "..") fall back to
// the anonymous identifier.
func sanitizeID(userID string) string {
	id := strings.TrimSpace(userID)
	if id == "" {
		return AnonymousID
	}
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	id = strings.TrimLeft(b.String(), ".")
	if id == "" {
		return AnonymousID
	}
	return id
}
