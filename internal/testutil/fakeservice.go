// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"tasker/internal/apierr"
	"tasker/internal/service"
)

const notFoundBody = `{"detail":"Not found."}`

// FakeService is an in-memory implementation of service.Service for testing.
// Payloads are validated the same way the REST client validates them.
type FakeService struct {
	mu         sync.Mutex
	me         service.User
	users      []service.User
	statuses   []service.Status
	priorities []service.Priority
	projects   []service.Project
	tasks      []service.Task
	comments   []service.Comment
	issueSeq   map[int]int
	nextID     int
	calls      []string

	// Error injection for testing
	ListTasksErr    error
	CreateTaskErr   error
	UpdateTaskErr   error
	DeleteTaskErr   error
	ListProjectsErr error
	ProjectWriteErr error
	ListCommentsErr error
	CommentWriteErr error
	ReferenceErr    error
	UpdateAvatarErr error
}

var _ service.Service = (*FakeService)(nil)

// NewFakeService creates a FakeService seeded with the fake statuses,
// priorities and the FakeEmail account as the current user.
func NewFakeService() *FakeService {
	me := SeedUser()
	return &FakeService{
		me:         me,
		users:      []service.User{me},
		statuses:   SeedStatuses(),
		priorities: SeedPriorities(),
		issueSeq:   make(map[int]int),
		nextID:     100,
	}
}

// AddProject seeds a project.
func (f *FakeService) AddProject(name, code string) service.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addProjectLocked(service.ProjectInput{Name: name, Code: code})
}

// AddTask seeds a task in project with status and the "Medium" priority.
func (f *FakeService) AddTask(project int, title string, status int) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, _ := f.addTaskLocked(service.TaskInput{Title: title, Project: project, Status: status, Priority: 2}, "seed")
	return t
}

// AddUser seeds a user.
func (f *FakeService) AddUser(user service.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, user)
}

// AddComment seeds a comment on task.
func (f *FakeService) AddComment(task int, text string) service.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addCommentLocked(task, text, "")
}

// Tasks returns a copy of the stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Task(nil), f.tasks...)
}

// Projects returns a copy of the stored projects.
func (f *FakeService) Projects() []service.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Project(nil), f.projects...)
}

// Comments returns a copy of the stored comments.
func (f *FakeService) Comments() []service.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Comment(nil), f.comments...)
}

// Me returns the current user.
func (f *FakeService) Me() service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.me
}

// Calls returns the names of the Service methods called so far, in order.
func (f *FakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeService) record(name string) {
	f.calls = append(f.calls, name)
}

func notFound(op string) error {
	return &apierr.Error{Kind: apierr.KindValidation, Op: op, Status: http.StatusNotFound, Body: notFoundBody}
}

func rejected(op, field, msg string) error {
	body := fmt.Sprintf(`{%q:[%q]}`, field, msg)
	return &apierr.Error{Kind: apierr.KindValidation, Op: op, Status: http.StatusBadRequest, Body: body}
}

func (f *FakeService) addProjectLocked(in service.ProjectInput) service.Project {
	f.nextID++
	now := time.Now().UTC()
	p := service.Project{
		ID:          f.nextID,
		Name:        in.Name,
		Code:        strings.ToUpper(in.Code),
		Description: in.Description,
		Members:     append([]int{}, in.Members...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.projects = append(f.projects, p)
	return p
}

func (f *FakeService) projectLocked(id int) *service.Project {
	for i := range f.projects {
		if f.projects[i].ID == id {
			return &f.projects[i]
		}
	}
	return nil
}

func (f *FakeService) addTaskLocked(in service.TaskInput, creator string) (service.Task, error) {
	p := f.projectLocked(in.Project)
	if p == nil {
		return service.Task{}, rejected("create task", "project", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", in.Project))
	}
	f.nextID++
	f.issueSeq[p.ID]++
	now := time.Now().UTC()
	t := service.Task{
		ID:          f.nextID,
		IssueID:     fmt.Sprintf("%s-%d", p.Code, f.issueSeq[p.ID]),
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     in.DueDate,
		Creator:     creator,
		Assignee:    in.Assignee,
		Project:     p.ID,
		Status:      in.Status,
		Priority:    in.Priority,
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *FakeService) taskIndexLocked(ref service.TaskRef) int {
	for i, t := range f.tasks {
		if ref.ByIssueID && strings.EqualFold(t.IssueID, ref.Key) {
			return i
		}
		if !ref.ByIssueID && strconv.Itoa(t.ID) == ref.Key {
			return i
		}
	}
	return -1
}

func (f *FakeService) addCommentLocked(task int, text, attachment string) service.Comment {
	f.nextID++
	now := time.Now().UTC()
	c := service.Comment{
		ID:         f.nextID,
		Task:       task,
		Author:     f.me.Username,
		Text:       text,
		Attachment: attachment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.comments = append(f.comments, c)
	return c
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, filter service.TaskFilter) ([]service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListTasks")
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	out := []service.Task{}
	for _, t := range f.tasks {
		if filter.Project != "" && filter.Project != service.AllProjects && strconv.Itoa(t.Project) != filter.Project {
			continue
		}
		if filter.Status != 0 && t.Status != filter.Status {
			continue
		}
		if filter.NotStatus != 0 && t.Status == filter.NotStatus {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, in service.TaskInput) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateTask")
	if err := service.Validate("create task", in); err != nil {
		return service.Task{}, err
	}
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	return f.addTaskLocked(in, f.me.Username)
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, ref service.TaskRef, patch service.TaskPatch) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateTask")
	if err := service.Validate("update task", patch); err != nil {
		return service.Task{}, err
	}
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	i := f.taskIndexLocked(ref)
	if i < 0 {
		return service.Task{}, notFound("update task")
	}
	if patch.Project != nil && f.projectLocked(*patch.Project) == nil {
		return service.Task{}, rejected("update task", "project", "object does not exist")
	}
	t := &f.tasks[i]
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Project != nil {
		t.Project = *patch.Project
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	switch {
	case patch.Unassign:
		t.Assignee = nil
	case patch.Assignee != nil:
		a := *patch.Assignee
		t.Assignee = &a
	}
	switch {
	case patch.ClearDueDate:
		t.DueDate = nil
	case patch.DueDate != nil:
		d := *patch.DueDate
		t.DueDate = &d
	}
	t.UpdatedAt = time.Now().UTC()
	return *t, nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, ref service.TaskRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteTask")
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	i := f.taskIndexLocked(ref)
	if i < 0 {
		return notFound("delete task")
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

// ListProjects implements service.Service.
func (f *FakeService) ListProjects(ctx context.Context) ([]service.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListProjects")
	if f.ListProjectsErr != nil {
		return nil, f.ListProjectsErr
	}
	return append([]service.Project{}, f.projects...), nil
}

func (f *FakeService) codeTakenLocked(code string, except int) bool {
	for _, p := range f.projects {
		if p.ID != except && strings.EqualFold(p.Code, code) {
			return true
		}
	}
	return false
}

// CreateProject implements service.Service.
func (f *FakeService) CreateProject(ctx context.Context, in service.ProjectInput) (service.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateProject")
	if err := service.Validate("create project", in); err != nil {
		return service.Project{}, err
	}
	if f.ProjectWriteErr != nil {
		return service.Project{}, f.ProjectWriteErr
	}
	if f.codeTakenLocked(in.Code, 0) {
		return service.Project{}, rejected("create project", "code", "project with this code already exists.")
	}
	return f.addProjectLocked(in), nil
}

// UpdateProject implements service.Service.
func (f *FakeService) UpdateProject(ctx context.Context, id int, in service.ProjectInput) (service.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateProject")
	if err := service.Validate("update project", in); err != nil {
		return service.Project{}, err
	}
	if f.ProjectWriteErr != nil {
		return service.Project{}, f.ProjectWriteErr
	}
	p := f.projectLocked(id)
	if p == nil {
		return service.Project{}, notFound("update project")
	}
	if f.codeTakenLocked(in.Code, id) {
		return service.Project{}, rejected("update project", "code", "project with this code already exists.")
	}
	p.Name = in.Name
	p.Code = strings.ToUpper(in.Code)
	p.Description = in.Description
	p.Members = append([]int{}, in.Members...)
	p.UpdatedAt = time.Now().UTC()
	return *p, nil
}

// PatchProject implements service.Service.
func (f *FakeService) PatchProject(ctx context.Context, id int, patch service.ProjectPatch) (service.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PatchProject")
	if err := service.Validate("update project", patch); err != nil {
		return service.Project{}, err
	}
	if f.ProjectWriteErr != nil {
		return service.Project{}, f.ProjectWriteErr
	}
	p := f.projectLocked(id)
	if p == nil {
		return service.Project{}, notFound("update project")
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Code != nil {
		if f.codeTakenLocked(*patch.Code, id) {
			return service.Project{}, rejected("update project", "code", "project with this code already exists.")
		}
		p.Code = strings.ToUpper(*patch.Code)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Members != nil {
		p.Members = append([]int{}, patch.Members...)
	}
	p.UpdatedAt = time.Now().UTC()
	return *p, nil
}

// DeleteProject implements service.Service. Tasks of the project are
// deleted with it.
func (f *FakeService) DeleteProject(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteProject")
	if f.ProjectWriteErr != nil {
		return f.ProjectWriteErr
	}
	idx := -1
	for i, p := range f.projects {
		if p.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return notFound("delete project")
	}
	f.projects = append(f.projects[:idx], f.projects[idx+1:]...)
	kept := f.tasks[:0]
	for _, t := range f.tasks {
		if t.Project != id {
			kept = append(kept, t)
		}
	}
	f.tasks = kept
	return nil
}

// ListComments implements service.Service.
func (f *FakeService) ListComments(ctx context.Context, ref service.TaskRef) ([]service.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListComments")
	if f.ListCommentsErr != nil {
		return nil, f.ListCommentsErr
	}
	i := f.taskIndexLocked(ref)
	if i < 0 {
		return []service.Comment{}, nil
	}
	out := []service.Comment{}
	for _, c := range f.comments {
		if c.Task == f.tasks[i].ID {
			out = append(out, c)
		}
	}
	return out, nil
}

// CreateComment implements service.Service.
func (f *FakeService) CreateComment(ctx context.Context, in service.CommentInput) (service.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateComment")
	if err := service.Validate("create comment", in); err != nil {
		return service.Comment{}, err
	}
	if f.CommentWriteErr != nil {
		return service.Comment{}, f.CommentWriteErr
	}
	i := f.taskIndexLocked(in.Task)
	if i < 0 {
		return service.Comment{}, rejected("create comment", "task", "object does not exist")
	}
	var attachment string
	if in.Attachment != nil {
		attachment = "/media/attachments/" + in.Attachment.Name
	}
	return f.addCommentLocked(f.tasks[i].ID, in.Text, attachment), nil
}

// DeleteComment implements service.Service.
func (f *FakeService) DeleteComment(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteComment")
	if f.CommentWriteErr != nil {
		return f.CommentWriteErr
	}
	for i, c := range f.comments {
		if c.ID == id {
			f.comments = append(f.comments[:i], f.comments[i+1:]...)
			return nil
		}
	}
	return notFound("delete comment")
}

// ListStatuses implements service.Service.
func (f *FakeService) ListStatuses(ctx context.Context) ([]service.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListStatuses")
	if f.ReferenceErr != nil {
		return nil, f.ReferenceErr
	}
	return append([]service.Status(nil), f.statuses...), nil
}

// ListPriorities implements service.Service.
func (f *FakeService) ListPriorities(ctx context.Context) ([]service.Priority, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListPriorities")
	if f.ReferenceErr != nil {
		return nil, f.ReferenceErr
	}
	return append([]service.Priority(nil), f.priorities...), nil
}

// ListUsers implements service.Service.
func (f *FakeService) ListUsers(ctx context.Context) ([]service.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListUsers")
	if f.ReferenceErr != nil {
		return nil, f.ReferenceErr
	}
	return append([]service.User(nil), f.users...), nil
}

// UpdateAvatar implements service.Service.
func (f *FakeService) UpdateAvatar(ctx context.Context, avatar service.Attachment) (service.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateAvatar")
	if err := service.Validate("update avatar", avatar); err != nil {
		return service.User{}, err
	}
	if f.UpdateAvatarErr != nil {
		return service.User{}, f.UpdateAvatarErr
	}
	f.me.AvatarURL = "/media/avatars/" + avatar.Name
	for i := range f.users {
		if f.users[i].ID == f.me.ID {
			f.users[i] = f.me
		}
	}
	return f.me, nil
}
