package store

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"tasker/internal/service"
)

// TaskSnapshot is the result of one task fetch for a project.
type TaskSnapshot struct {
	Project string
	All     []service.Task
	Open    []service.Task
	Closed  []service.Task
}

func (s TaskSnapshot) clone() TaskSnapshot {
	return TaskSnapshot{
		Project: s.Project,
		All:     append([]service.Task(nil), s.All...),
		Open:    append([]service.Task(nil), s.Open...),
		Closed:  append([]service.Task(nil), s.Closed...),
	}
}

// TaskStore caches the tasks of the active project.
type TaskStore struct {
	svc          service.Service
	closedStatus int
	logger       *slog.Logger

	mu       sync.RWMutex
	active   string
	snapshot TaskSnapshot
	loaded   bool
}

// Fetch loads every, open and closed task of project (service.AllProjects
// for every project) and makes project the active filter.
func (s *TaskStore) Fetch(ctx context.Context, project string) (TaskSnapshot, error) {
	if project == "" {
		project = service.AllProjects
	}
	snap := TaskSnapshot{Project: project}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tasks, err := s.svc.ListTasks(gctx, service.TaskFilter{Project: project})
		snap.All = tasks
		return err
	})
	g.Go(func() error {
		tasks, err := s.svc.ListTasks(gctx, service.TaskFilter{Project: project, Status: s.closedStatus})
		snap.Closed = tasks
		return err
	})
	g.Go(func() error {
		tasks, err := s.svc.ListTasks(gctx, service.TaskFilter{Project: project, NotStatus: s.closedStatus})
		snap.Open = tasks
		return err
	})
	if err := g.Wait(); err != nil {
		return TaskSnapshot{}, err
	}

	s.mu.Lock()
	s.active = project
	s.snapshot = snap
	s.loaded = true
	s.mu.Unlock()
	return snap.clone(), nil
}

// Snapshot returns the cached tasks of the active project.
func (s *TaskStore) Snapshot() TaskSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.clone()
}

// Loaded reports whether a fetch has succeeded since the last reset.
func (s *TaskStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ActiveProject returns the filter used by reconciling fetches.
func (s *TaskStore) ActiveProject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// reconcile refetches with the filter active now, not the one active when
// the mutation started.
func (s *TaskStore) reconcile(ctx context.Context, op string) error {
	project := s.ActiveProject()
	if _, err := s.Fetch(ctx, project); err != nil {
		s.logger.Debug("reconcile failed", "op", op, "project", project, "error", err)
		return &ReconcileError{Op: op, Err: err}
	}
	return nil
}

// Create creates a task and reconciles.
func (s *TaskStore) Create(ctx context.Context, in service.TaskInput) (service.Task, error) {
	task, err := s.svc.CreateTask(ctx, in)
	if err != nil {
		return service.Task{}, err
	}
	return task, s.reconcile(ctx, "create task")
}

// Update patches the task addressed by ref and reconciles.
func (s *TaskStore) Update(ctx context.Context, ref service.TaskRef, patch service.TaskPatch) (service.Task, error) {
	task, err := s.svc.UpdateTask(ctx, ref, patch)
	if err != nil {
		return service.Task{}, err
	}
	return task, s.reconcile(ctx, "update task")
}

// Complete moves the task to the closed status.
func (s *TaskStore) Complete(ctx context.Context, ref service.TaskRef) (service.Task, error) {
	closed := s.closedStatus
	return s.Update(ctx, ref, service.TaskPatch{Status: &closed})
}

// Delete deletes the task addressed by ref and reconciles.
func (s *TaskStore) Delete(ctx context.Context, ref service.TaskRef) error {
	if err := s.svc.DeleteTask(ctx, ref); err != nil {
		return err
	}
	return s.reconcile(ctx, "delete task")
}

func (s *TaskStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = service.AllProjects
	s.snapshot = TaskSnapshot{}
	s.loaded = false
}
