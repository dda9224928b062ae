// Package state persists build summaries between Transmute runs
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/transmute/transmute/pkg/logger"
	"github.com/transmute/transmute/pkg/types"
)

// staleAfter is how long an untouched state file survives Cleanup.
const staleAfter = 7 * 24 * time.Hour

// Store writes the last build summary per project to a state directory so
// a later `transmute status` invocation can report the previous run.
type Store struct {
	stateDir string
	logger   logger.Logger
	mu       sync.Mutex
}

// NewStore creates a summary store rooted at projectRoot
func NewStore(projectRoot string, log logger.Logger) *Store {
	stateDir := filepath.Join(projectRoot, ".transmute", "state")

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		log.Error("Failed to create state directory", logger.WithField("error", err))
	}

	return &Store{
		stateDir: stateDir,
		logger:   log,
	}
}

// Save persists the summary for a project. The write is atomic: a temp
// file is renamed over the previous state so readers never see a torn file.
func (s *Store) Save(project string, summary *types.BuildSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	path := s.statePath(project)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit state file: %w", err)
	}

	return nil
}

// Load reads the last persisted summary for a project
func (s *Store) Load(project string) (*types.BuildSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.statePath(project))
	if err != nil {
		return nil, fmt.Errorf("no build state for %s: %w", project, err)
	}

	var summary types.BuildSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("corrupt state for %s: %w", project, err)
	}

	return &summary, nil
}

// Cleanup removes stale state files
func (s *Store) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.stateDir)
	if err != nil {
		return fmt.Errorf("failed to read state directory: %w", err)
	}

	cutoff := time.Now().Add(-staleAfter)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".state.json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.stateDir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn("Failed to remove stale state file",
					logger.WithField("path", path),
					logger.WithField("error", err))
			}
		}
	}

	return nil
}

func (s *Store) statePath(project string) string {
	name := strings.ReplaceAll(project, string(filepath.Separator), "_")
	if name == "" {
		name = "default"
	}
	return filepath.Join(s.stateDir, name+".state.json")
}
