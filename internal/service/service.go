// Package service defines the backend-agnostic interface for tracker operations.
package service

import "context"

// Service defines the interface for tracker backend operations.
// All REST calls go through this interface.
// Commands and stores never build requests directly.
type Service interface {
	// ListTasks returns tasks matching filter in server order.
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)

	// CreateTask creates a task.
	CreateTask(ctx context.Context, in TaskInput) (Task, error)

	// UpdateTask applies patch to the task addressed by ref.
	UpdateTask(ctx context.Context, ref TaskRef, patch TaskPatch) (Task, error)

	// DeleteTask deletes the task addressed by ref.
	DeleteTask(ctx context.Context, ref TaskRef) error

	ListProjects(ctx context.Context) ([]Project, error)
	CreateProject(ctx context.Context, in ProjectInput) (Project, error)

	// UpdateProject replaces every field of the project.
	UpdateProject(ctx context.Context, id int, in ProjectInput) (Project, error)

	// PatchProject changes only the fields set in patch.
	PatchProject(ctx context.Context, id int, patch ProjectPatch) (Project, error)

	DeleteProject(ctx context.Context, id int) error

	// ListComments returns the comments of the task addressed by ref.
	ListComments(ctx context.Context, ref TaskRef) ([]Comment, error)

	// CreateComment posts a comment, with an optional attachment.
	CreateComment(ctx context.Context, in CommentInput) (Comment, error)

	DeleteComment(ctx context.Context, id int) error

	ListStatuses(ctx context.Context) ([]Status, error)
	ListPriorities(ctx context.Context) ([]Priority, error)

	// ListUsers returns every user, for assignee selection.
	ListUsers(ctx context.Context) ([]User, error)

	// UpdateAvatar uploads a new avatar for the current user.
	UpdateAvatar(ctx context.Context, avatar Attachment) (User, error)
}
