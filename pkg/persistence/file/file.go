// Package file provides a JSON-file-backed implementation of the persistence
// layer, used for local development and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
)

const (
	workflowsDir = "workflows"
	runsDir      = "runs"
	nodeRunsDir  = "node_runs"

	dirPerm  = 0o755
	filePerm = 0o600
)

// Store persists workflows, runs, and node runs as JSON files under root.
// A single lock serializes access; the scheduler's correctness depends on
// node-run creation being atomic with the duplicate check.
type Store struct {
	root string
	mu   sync.RWMutex
}

// NewStore creates the backing directories under root.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{workflowsDir, runsDir, nodeRunsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), dirPerm); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return &Store{root: root}, nil
}

// Workflows returns every stored workflow definition.
func (s *Store) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var workflows []*models.Workflow

	err := s.eachJSON(filepath.Join(s.root, workflowsDir), func(path string) error {
		workflow := &models.Workflow{}
		if err := readJSON(path, workflow); err != nil {
			return err
		}

		workflows = append(workflows, workflow)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(workflows, func(i, j int) bool { return workflows[i].ID < workflows[j].ID })

	return workflows, nil
}

// SaveWorkflow creates or replaces a workflow definition.
func (s *Store) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeJSON(s.workflowPath(workflow.ID), workflow)
}

// WorkflowByID loads one workflow definition.
func (s *Store) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workflow := &models.Workflow{}

	err := readJSON(s.workflowPath(id), workflow)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	return workflow, nil
}

// DeleteWorkflow removes the workflow and cascades to its runs and their
// node runs.
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.workflowPath(id)); errors.Is(err, fs.ErrNotExist) {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	runs, err := s.runsByWorkflowLocked(id)
	if err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	for _, run := range runs {
		if err := s.deleteRunLocked(run.ID); err != nil {
			return persistence.NewWorkflowError("DeleteWorkflow", id, err)
		}
	}

	if err := os.Remove(s.workflowPath(id)); err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	return nil
}

// HealthCheck verifies the root directory is accessible.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("file store root inaccessible: %w", err)
	}

	return nil
}

// Close is a no-op for the file store.
func (s *Store) Close(ctx context.Context) error {
	return nil
}

func (s *Store) workflowPath(id string) string {
	return filepath.Join(s.root, workflowsDir, id+".json")
}

func (s *Store) runPath(id string) string {
	return filepath.Join(s.root, runsDir, id+".json")
}

func (s *Store) nodeRunDir(runID string) string {
	return filepath.Join(s.root, nodeRunsDir, runID)
}

func (s *Store) nodeRunPath(runID, nodeID string) string {
	return filepath.Join(s.nodeRunDir(runID), nodeID+".json")
}

func (s *Store) eachJSON(dir string, visit func(path string) error) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		if err := visit(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}

func writeJSON(path string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	return os.WriteFile(path, data, filePerm)
}
