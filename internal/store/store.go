// Package store keeps in-memory read replicas of server-owned collections.
//
// Every mutation is sent to the server first. When it succeeds the affected
// collection is refetched with the store's active filter and the snapshot is
// replaced wholesale; the mutation's response body never becomes cache
// state. A failed mutation leaves the snapshot untouched and skips the
// refetch. Concurrent fetches are not ordered: the last one to complete wins.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"tasker/internal/service"
)

// DefaultClosedStatus is the status id treated as "closed" when none is
// configured.
const DefaultClosedStatus = 4

// ReconcileError reports a mutation that the server applied but whose
// reconciling fetch failed. The cached snapshot is stale until the next
// successful fetch.
type ReconcileError struct {
	Op  string
	Err error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("%s succeeded but refreshing the local copy failed: %v", e.Op, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

// Collection is a snapshot of one server collection.
type Collection[T any] struct {
	mu     sync.RWMutex
	items  []T
	loaded bool
}

// Items returns a copy of the snapshot.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Loaded reports whether any fetch has succeeded since the last reset.
func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Collection[T]) replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T(nil), items...)
	c.loaded = true
}

func (c *Collection[T]) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.loaded = false
}

// fetchInto loads a collection and replaces the snapshot on success.
func fetchInto[T any](ctx context.Context, c *Collection[T], load func(context.Context) ([]T, error)) ([]T, error) {
	items, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.replace(items)
	return c.Items(), nil
}

// Options configures New.
type Options struct {
	// ClosedStatus is the status id of closed tasks. Zero means
	// DefaultClosedStatus.
	ClosedStatus int

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Stores groups every collection store of one client.
type Stores struct {
	Tasks     *TaskStore
	Projects  *ProjectStore
	Comments  *CommentStore
	Reference *ReferenceStore
	Users     *UserStore
}

// New creates the stores over svc.
func New(svc service.Service, opts Options) *Stores {
	if opts.ClosedStatus == 0 {
		opts.ClosedStatus = DefaultClosedStatus
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Stores{
		Tasks:     &TaskStore{svc: svc, closedStatus: opts.ClosedStatus, logger: opts.Logger, active: service.AllProjects},
		Projects:  &ProjectStore{svc: svc, logger: opts.Logger},
		Comments:  &CommentStore{svc: svc, logger: opts.Logger},
		Reference: &ReferenceStore{svc: svc},
		Users:     &UserStore{svc: svc},
	}
}

// Init loads statuses, priorities and projects concurrently. It fails if
// any of them fails; snapshots that did load are kept.
func (s *Stores) Init(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.Reference.FetchStatuses(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Reference.FetchPriorities(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Projects.Fetch(ctx)
		return err
	})
	return g.Wait()
}

// Reset drops every snapshot. It is called when the session ends.
func (s *Stores) Reset() {
	s.Tasks.reset()
	s.Projects.items.reset()
	s.Comments.reset()
	s.Reference.statuses.reset()
	s.Reference.priorities.reset()
	s.Users.items.reset()
}
