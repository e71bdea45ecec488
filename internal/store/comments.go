package store

import (
	"context"
	"log/slog"
	"sync"

	"tasker/internal/service"
)

// CommentStore caches the comments of the active task.
type CommentStore struct {
	svc    service.Service
	logger *slog.Logger

	mu     sync.RWMutex
	active *service.TaskRef
	items  []service.Comment
}

// Fetch loads the comments of the task addressed by ref and makes it the
// active task.
func (s *CommentStore) Fetch(ctx context.Context, ref service.TaskRef) ([]service.Comment, error) {
	comments, err := s.svc.ListComments(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.active = &ref
	s.items = comments
	s.mu.Unlock()
	return append([]service.Comment(nil), comments...), nil
}

// Items returns the cached comments.
func (s *CommentStore) Items() []service.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]service.Comment(nil), s.items...)
}

// ActiveTask returns the task whose comments are cached.
func (s *CommentStore) ActiveTask() (service.TaskRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return service.TaskRef{}, false
	}
	return *s.active, true
}

func (s *CommentStore) reconcile(ctx context.Context, op string, ref service.TaskRef) error {
	if _, err := s.Fetch(ctx, ref); err != nil {
		s.logger.Debug("reconcile failed", "op", op, "task", ref.Key, "error", err)
		return &ReconcileError{Op: op, Err: err}
	}
	return nil
}

// Create posts a comment and reconciles the comments of its task.
func (s *CommentStore) Create(ctx context.Context, in service.CommentInput) (service.Comment, error) {
	comment, err := s.svc.CreateComment(ctx, in)
	if err != nil {
		return service.Comment{}, err
	}
	return comment, s.reconcile(ctx, "create comment", in.Task)
}

// Delete deletes a comment and reconciles the active task, if any.
func (s *CommentStore) Delete(ctx context.Context, id int) error {
	if err := s.svc.DeleteComment(ctx, id); err != nil {
		return err
	}
	ref, ok := s.ActiveTask()
	if !ok {
		return nil
	}
	return s.reconcile(ctx, "delete comment", ref)
}

// DeleteFrom deletes a comment of the task addressed by ref and reconciles
// that task, which becomes the active one.
func (s *CommentStore) DeleteFrom(ctx context.Context, ref service.TaskRef, id int) error {
	if err := s.svc.DeleteComment(ctx, id); err != nil {
		return err
	}
	return s.reconcile(ctx, "delete comment", ref)
}

func (s *CommentStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
	s.items = nil
}
