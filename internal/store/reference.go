package store

import (
	"context"
	"strconv"

	"tasker/internal/service"
)

// ReferenceStore caches the status and priority taxonomies.
type ReferenceStore struct {
	svc        service.Service
	statuses   Collection[service.Status]
	priorities Collection[service.Priority]
}

func (s *ReferenceStore) FetchStatuses(ctx context.Context) ([]service.Status, error) {
	return fetchInto(ctx, &s.statuses, s.svc.ListStatuses)
}

func (s *ReferenceStore) FetchPriorities(ctx context.Context) ([]service.Priority, error) {
	return fetchInto(ctx, &s.priorities, s.svc.ListPriorities)
}

func (s *ReferenceStore) Statuses() []service.Status {
	return s.statuses.Items()
}

func (s *ReferenceStore) Priorities() []service.Priority {
	return s.priorities.Items()
}

// StatusName returns the name of status id, or the id itself when unknown.
func (s *ReferenceStore) StatusName(id int) string {
	for _, st := range s.statuses.Items() {
		if st.ID == id {
			return st.Name
		}
	}
	return strconv.Itoa(id)
}

// PriorityLevel returns the level of priority id, or the id itself when
// unknown.
func (s *ReferenceStore) PriorityLevel(id int) string {
	for _, p := range s.priorities.Items() {
		if p.ID == id {
			return p.Level
		}
	}
	return strconv.Itoa(id)
}

// UserStore caches the user list.
type UserStore struct {
	svc   service.Service
	items Collection[service.User]
}

func (s *UserStore) Fetch(ctx context.Context) ([]service.User, error) {
	return fetchInto(ctx, &s.items, s.svc.ListUsers)
}

func (s *UserStore) Items() []service.User {
	return s.items.Items()
}
