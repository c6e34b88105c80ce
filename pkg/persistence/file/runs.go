package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
)

// CreateRun stores a new workflow run.
func (s *Store) CreateRun(ctx context.Context, run *models.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(s.runPath(run.ID), run); err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	return nil
}

// UpdateRun replaces the stored run state.
func (s *Store) UpdateRun(ctx context.Context, run *models.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.runPath(run.ID)); errors.Is(err, fs.ErrNotExist) {
		return persistence.NewRunError("UpdateRun", run.ID, persistence.ErrRunNotFound)
	}

	if err := writeJSON(s.runPath(run.ID), run); err != nil {
		return persistence.NewRunError("UpdateRun", run.ID, err)
	}

	return nil
}

// RunByID loads one run, optionally with its node runs attached.
func (s *Store) RunByID(ctx context.Context, id string, includeNodeRuns bool) (*models.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run := &models.WorkflowRun{}

	err := readJSON(s.runPath(id), run)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewRunError("RunByID", id, persistence.ErrRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewRunError("RunByID", id, err)
	}

	if includeNodeRuns {
		nodeRuns, err := s.nodeRunsByRunLocked(id)
		if err != nil {
			return nil, persistence.NewRunError("RunByID", id, err)
		}

		run.NodeRuns = nodeRuns
	}

	return run, nil
}

// RunsByWorkflow returns every run of the given workflow, newest first.
func (s *Store) RunsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.runsByWorkflowLocked(workflowID)
}

// ActiveRuns returns runs in running or paused status.
func (s *Store) ActiveRuns(ctx context.Context) ([]*models.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*models.WorkflowRun

	err := s.eachJSON(s.root+"/"+runsDir, func(path string) error {
		run := &models.WorkflowRun{}
		if err := readJSON(path, run); err != nil {
			return err
		}

		if !run.Status.IsTerminal() {
			active = append(active, run)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active runs: %w", err)
	}

	sort.Slice(active, func(i, j int) bool { return active[i].StartedAt.Before(active[j].StartedAt) })

	return active, nil
}

// DeleteRun removes the run and cascades to its node runs.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.runPath(id)); errors.Is(err, fs.ErrNotExist) {
		return persistence.NewRunError("DeleteRun", id, persistence.ErrRunNotFound)
	}

	return s.deleteRunLocked(id)
}

// CreateNodeRun stores a node run, enforcing (run, node) uniqueness.
func (s *Store) CreateNodeRun(ctx context.Context, nodeRun *models.NodeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.nodeRunPath(nodeRun.RunID, nodeRun.NodeID)

	if _, err := os.Stat(path); err == nil {
		return persistence.NewNodeRunError("CreateNodeRun", nodeRun.RunID, nodeRun.NodeID, persistence.ErrNodeRunExists)
	}

	if err := os.MkdirAll(s.nodeRunDir(nodeRun.RunID), dirPerm); err != nil {
		return persistence.NewNodeRunError("CreateNodeRun", nodeRun.RunID, nodeRun.NodeID, err)
	}

	if err := writeJSON(path, nodeRun); err != nil {
		return persistence.NewNodeRunError("CreateNodeRun", nodeRun.RunID, nodeRun.NodeID, err)
	}

	return nil
}

// UpdateNodeRun replaces the stored node-run state.
func (s *Store) UpdateNodeRun(ctx context.Context, nodeRun *models.NodeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.nodeRunPath(nodeRun.RunID, nodeRun.NodeID)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return persistence.NewNodeRunError("UpdateNodeRun", nodeRun.RunID, nodeRun.NodeID, persistence.ErrNodeRunNotFound)
	}

	if err := writeJSON(path, nodeRun); err != nil {
		return persistence.NewNodeRunError("UpdateNodeRun", nodeRun.RunID, nodeRun.NodeID, err)
	}

	return nil
}

// NodeRunsByRun returns every node run of the given run in node-id order.
func (s *Store) NodeRunsByRun(ctx context.Context, runID string) ([]*models.NodeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nodeRunsByRunLocked(runID)
}

// NodeRunByRunAndNode returns the node run for (run, node).
func (s *Store) NodeRunByRunAndNode(ctx context.Context, runID, nodeID string) (*models.NodeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodeRun := &models.NodeRun{}

	err := readJSON(s.nodeRunPath(runID, nodeID), nodeRun)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewNodeRunError("NodeRunByRunAndNode", runID, nodeID, persistence.ErrNodeRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewNodeRunError("NodeRunByRunAndNode", runID, nodeID, err)
	}

	return nodeRun, nil
}

func (s *Store) runsByWorkflowLocked(workflowID string) ([]*models.WorkflowRun, error) {
	var runs []*models.WorkflowRun

	err := s.eachJSON(s.root+"/"+runsDir, func(path string) error {
		run := &models.WorkflowRun{}
		if err := readJSON(path, run); err != nil {
			return err
		}

		if run.WorkflowID == workflowID {
			runs = append(runs, run)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })

	return runs, nil
}

func (s *Store) nodeRunsByRunLocked(runID string) ([]*models.NodeRun, error) {
	var nodeRuns []*models.NodeRun

	err := s.eachJSON(s.nodeRunDir(runID), func(path string) error {
		nodeRun := &models.NodeRun{}
		if err := readJSON(path, nodeRun); err != nil {
			return err
		}

		nodeRuns = append(nodeRuns, nodeRun)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(nodeRuns, func(i, j int) bool { return nodeRuns[i].NodeID < nodeRuns[j].NodeID })

	return nodeRuns, nil
}

func (s *Store) deleteRunLocked(id string) error {
	if err := os.RemoveAll(s.nodeRunDir(id)); err != nil {
		return fmt.Errorf("failed to delete node runs for run %s: %w", id, err)
	}

	if err := os.Remove(s.runPath(id)); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}

	return nil
}
