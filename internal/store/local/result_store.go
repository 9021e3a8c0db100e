// Package local persists job result artifacts as JSON documents on the
// local filesystem, one per task.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"noteharvest/internal/harvest"
)

// Config captures the parameters for the local result store.
type Config struct {
	// BaseDir is the directory holding one <task_id>.json per task.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// ResultStore writes and reads task artifacts on the local filesystem.
type ResultStore struct {
	baseDir string
}

// New creates a filesystem-backed result store, creating the base directory
// if needed and verifying it is writable.
func New(cfg Config) (*ResultStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("clean up test file: %w", err)
	}

	return &ResultStore{baseDir: cfg.BaseDir}, nil
}

// Save serializes the result to <base>/<taskID>.json and returns a file://
// URI. Writes go through a temp file and rename so readers never see a
// partial document. Saving the same result twice produces byte-identical
// content: field order and indentation are fixed.
func (s *ResultStore) Save(_ context.Context, taskID string, result harvest.JobResult) (string, error) {
	path, err := s.artifactPath(taskID)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename artifact: %w", err)
	}
	return fmt.Sprintf("file://%s", path), nil
}

// Load reads the artifact for a task. A missing file maps to
// harvest.ErrNotFound; a malformed document maps to an input error so the
// caller never serves partial data.
func (s *ResultStore) Load(_ context.Context, taskID string) (harvest.JobResult, error) {
	path, err := s.artifactPath(taskID)
	if err != nil {
		return harvest.JobResult{}, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path is validated against baseDir.
	if err != nil {
		if os.IsNotExist(err) {
			return harvest.JobResult{}, harvest.ErrNotFound
		}
		return harvest.JobResult{}, fmt.Errorf("read artifact: %w", err)
	}
	var result harvest.JobResult
	if err := json.Unmarshal(data, &result); err != nil {
		malformed := harvest.NewInputError(fmt.Sprintf("malformed stored document for task %s", taskID))
		return harvest.JobResult{}, fmt.Errorf("%w: %s", malformed, err)
	}
	return result, nil
}

// artifactPath resolves the document path for a task and rejects IDs that
// would escape the base directory.
func (s *ResultStore) artifactPath(taskID string) (string, error) {
	if strings.TrimSpace(taskID) == "" {
		return "", errors.New("task id is required")
	}
	full := filepath.Join(s.baseDir, taskID+".json")
	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(full), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return full, nil
}
