package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cognirag/cognirag/internal/types"
)

// Manager persists the user profile as a single JSON document at a fixed
// path, overwritten wholesale on every update.
type Manager struct {
	mu   sync.Mutex
	path string
}

// NewManager returns a Manager for the given profile file path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads the profile from disk. A missing or unreadable file yields a
// fresh empty profile rather than an error.
func (m *Manager) Load() types.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read profile file, starting fresh", "path", m.path, "error", err.Error())
		}
		return types.NewProfile()
	}

	var p types.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("failed to decode profile file, starting fresh", "path", m.path, "error", err.Error())
		return types.NewProfile()
	}
	if p.BasicInfo == nil {
		p.BasicInfo = make(map[string]string)
	}
	return p
}

// Save writes the profile to disk, creating parent directories as needed.
func (m *Manager) Save(p types.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}
	slog.Info("profile saved", "path", m.path)
	return nil
}
