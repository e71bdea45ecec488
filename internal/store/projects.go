package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"tasker/internal/service"
)

// ProjectStore caches the project list.
type ProjectStore struct {
	svc    service.Service
	logger *slog.Logger
	items  Collection[service.Project]
}

// Fetch loads every project.
func (s *ProjectStore) Fetch(ctx context.Context) ([]service.Project, error) {
	return fetchInto(ctx, &s.items, s.svc.ListProjects)
}

// Items returns the cached projects.
func (s *ProjectStore) Items() []service.Project {
	return s.items.Items()
}

// Loaded reports whether a fetch has succeeded since the last reset.
func (s *ProjectStore) Loaded() bool {
	return s.items.Loaded()
}

// Resolve finds a cached project by id or code (case-insensitive).
func (s *ProjectStore) Resolve(key string) (service.Project, error) {
	key = strings.TrimSpace(key)
	id, idErr := strconv.Atoi(key)
	for _, p := range s.items.Items() {
		if (idErr == nil && p.ID == id) || strings.EqualFold(p.Code, key) {
			return p, nil
		}
	}
	return service.Project{}, fmt.Errorf("project not found: %s", key)
}

func (s *ProjectStore) reconcile(ctx context.Context, op string) error {
	if _, err := s.Fetch(ctx); err != nil {
		s.logger.Debug("reconcile failed", "op", op, "error", err)
		return &ReconcileError{Op: op, Err: err}
	}
	return nil
}

// Create creates a project and reconciles.
func (s *ProjectStore) Create(ctx context.Context, in service.ProjectInput) (service.Project, error) {
	project, err := s.svc.CreateProject(ctx, in)
	if err != nil {
		return service.Project{}, err
	}
	return project, s.reconcile(ctx, "create project")
}

// Update replaces a project and reconciles.
func (s *ProjectStore) Update(ctx context.Context, id int, in service.ProjectInput) (service.Project, error) {
	project, err := s.svc.UpdateProject(ctx, id, in)
	if err != nil {
		return service.Project{}, err
	}
	return project, s.reconcile(ctx, "update project")
}

// Patch changes some fields of a project and reconciles.
func (s *ProjectStore) Patch(ctx context.Context, id int, patch service.ProjectPatch) (service.Project, error) {
	project, err := s.svc.PatchProject(ctx, id, patch)
	if err != nil {
		return service.Project{}, err
	}
	return project, s.reconcile(ctx, "update project")
}

// Delete deletes a project and reconciles.
func (s *ProjectStore) Delete(ctx context.Context, id int) error {
	if err := s.svc.DeleteProject(ctx, id); err != nil {
		return err
	}
	return s.reconcile(ctx, "delete project")
}
