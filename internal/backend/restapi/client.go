// Package restapi implements the service.Service interface over the tracker's
// REST API.
package restapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"tasker/internal/rest"
	"tasker/internal/service"
)

// Endpoint paths, relative to the API base URL.
const (
	TasksPath      = "/tasks/tasks/"
	ProjectsPath   = "/tasks/projects/"
	CommentsPath   = "/tasks/comments/"
	StatusesPath   = "/tasks/statuses/"
	PrioritiesPath = "/tasks/priorities/"
	UsersPath      = "/users/"
	MePath         = "/users/me/"
)

// Sender sends a request with the session's credentials. *auth.Pipeline
// implements it.
type Sender interface {
	Send(ctx context.Context, req *rest.Request) (*rest.Response, error)
}

// Client implements service.Service.
type Client struct {
	sender Sender
}

var _ service.Service = (*Client)(nil)

// New creates a client that sends every request through sender.
func New(sender Sender) *Client {
	return &Client{sender: sender}
}

func (c *Client) do(ctx context.Context, req *rest.Request, out any) error {
	res, err := c.sender.Send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return res.Decode(out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, rest.NewRequest(http.MethodGet, path, query), out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := rest.NewJSONRequest(method, path, body)
	if err != nil {
		return err
	}
	req.Query = query
	return c.do(ctx, req, out)
}

func itemPath(collection string, id int) string {
	return collection + strconv.Itoa(id) + "/"
}

// taskPath addresses a task by id or, with by_issue_id=1, by issue id.
func taskPath(ref service.TaskRef) (string, url.Values) {
	path := TasksPath + url.PathEscape(ref.Key) + "/"
	if !ref.ByIssueID {
		return path, nil
	}
	return path, url.Values{"by_issue_id": {"1"}}
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context, filter service.TaskFilter) ([]service.Task, error) {
	query := url.Values{}
	project := filter.Project
	if project == "" {
		project = service.AllProjects
	}
	query.Set("project", project)
	if filter.Status != 0 {
		query.Set("status", strconv.Itoa(filter.Status))
	}
	if filter.NotStatus != 0 {
		query.Set("not_status", strconv.Itoa(filter.NotStatus))
	}

	tasks := []service.Task{}
	if err := c.get(ctx, TasksPath, query, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, in service.TaskInput) (service.Task, error) {
	if err := service.Validate("create task", in); err != nil {
		return service.Task{}, err
	}
	var task service.Task
	err := c.sendJSON(ctx, http.MethodPost, TasksPath, nil, taskCreateBody(in), &task)
	return task, err
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, ref service.TaskRef, patch service.TaskPatch) (service.Task, error) {
	if err := service.Validate("update task", patch); err != nil {
		return service.Task{}, err
	}
	path, query := taskPath(ref)
	var task service.Task
	err := c.sendJSON(ctx, http.MethodPatch, path, query, taskPatchBody(patch), &task)
	return task, err
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, ref service.TaskRef) error {
	path, query := taskPath(ref)
	return c.do(ctx, rest.NewRequest(http.MethodDelete, path, query), nil)
}

// ListProjects implements service.Service.
func (c *Client) ListProjects(ctx context.Context) ([]service.Project, error) {
	projects := []service.Project{}
	if err := c.get(ctx, ProjectsPath, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject implements service.Service.
func (c *Client) CreateProject(ctx context.Context, in service.ProjectInput) (service.Project, error) {
	if err := service.Validate("create project", in); err != nil {
		return service.Project{}, err
	}
	var project service.Project
	err := c.sendJSON(ctx, http.MethodPost, ProjectsPath, nil, projectBody(in), &project)
	return project, err
}

// UpdateProject implements service.Service.
func (c *Client) UpdateProject(ctx context.Context, id int, in service.ProjectInput) (service.Project, error) {
	if err := service.Validate("update project", in); err != nil {
		return service.Project{}, err
	}
	var project service.Project
	err := c.sendJSON(ctx, http.MethodPut, itemPath(ProjectsPath, id), nil, projectBody(in), &project)
	return project, err
}

// PatchProject implements service.Service.
func (c *Client) PatchProject(ctx context.Context, id int, patch service.ProjectPatch) (service.Project, error) {
	if err := service.Validate("update project", patch); err != nil {
		return service.Project{}, err
	}
	var project service.Project
	err := c.sendJSON(ctx, http.MethodPatch, itemPath(ProjectsPath, id), nil, projectPatchBody(patch), &project)
	return project, err
}

// DeleteProject implements service.Service.
func (c *Client) DeleteProject(ctx context.Context, id int) error {
	return c.do(ctx, rest.NewRequest(http.MethodDelete, itemPath(ProjectsPath, id), nil), nil)
}

// ListComments implements service.Service.
func (c *Client) ListComments(ctx context.Context, ref service.TaskRef) ([]service.Comment, error) {
	field, value := commentTaskField(ref)
	comments := []service.Comment{}
	if err := c.get(ctx, CommentsPath, url.Values{field: {value}}, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment implements service.Service.
func (c *Client) CreateComment(ctx context.Context, in service.CommentInput) (service.Comment, error) {
	if err := service.Validate("create comment", in); err != nil {
		return service.Comment{}, err
	}
	field, value := commentTaskField(in.Task)
	fields := [][2]string{{field, value}, {"text", in.Text}}

	var files []rest.File
	if in.Attachment != nil {
		files = append(files, rest.File{Field: "attachment", Name: in.Attachment.Name, Data: in.Attachment.Data})
	}
	req, err := rest.NewMultipartRequest(http.MethodPost, CommentsPath, fields, files...)
	if err != nil {
		return service.Comment{}, err
	}

	var comment service.Comment
	err = c.do(ctx, req, &comment)
	return comment, err
}

// DeleteComment implements service.Service.
func (c *Client) DeleteComment(ctx context.Context, id int) error {
	return c.do(ctx, rest.NewRequest(http.MethodDelete, itemPath(CommentsPath, id), nil), nil)
}

// ListStatuses implements service.Service.
func (c *Client) ListStatuses(ctx context.Context) ([]service.Status, error) {
	statuses := []service.Status{}
	if err := c.get(ctx, StatusesPath, nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// ListPriorities implements service.Service.
func (c *Client) ListPriorities(ctx context.Context) ([]service.Priority, error) {
	priorities := []service.Priority{}
	if err := c.get(ctx, PrioritiesPath, nil, &priorities); err != nil {
		return nil, err
	}
	return priorities, nil
}

// ListUsers implements service.Service.
func (c *Client) ListUsers(ctx context.Context) ([]service.User, error) {
	users := []service.User{}
	if err := c.get(ctx, UsersPath, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateAvatar implements service.Service.
func (c *Client) UpdateAvatar(ctx context.Context, avatar service.Attachment) (service.User, error) {
	if err := service.Validate("update avatar", avatar); err != nil {
		return service.User{}, err
	}
	req, err := rest.NewMultipartRequest(http.MethodPatch, MePath, nil,
		rest.File{Field: "avatar", Name: avatar.Name, Data: avatar.Data})
	if err != nil {
		return service.User{}, err
	}
	var user service.User
	err = c.do(ctx, req, &user)
	return user, err
}
