package restapi

import (
	"time"

	"tasker/internal/service"
)

// Payload mapping from typed inputs to the backend's JSON shapes.

type taskCreateWire struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Project     int     `json:"project"`
	Status      int     `json:"status"`
	Priority    int     `json:"priority"`
	Assignee    *int    `json:"assignee"`
	DueDate     *string `json:"due_date,omitempty"`
}

func formatDue(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func taskCreateBody(in service.TaskInput) taskCreateWire {
	body := taskCreateWire{
		Title:       in.Title,
		Description: in.Description,
		Project:     in.Project,
		Status:      in.Status,
		Priority:    in.Priority,
		Assignee:    in.Assignee,
	}
	if in.DueDate != nil {
		due := formatDue(*in.DueDate)
		body.DueDate = &due
	}
	return body
}

// taskPatchBody includes only the fields the patch sets. Unassign and
// ClearDueDate become explicit nulls.
func taskPatchBody(p service.TaskPatch) map[string]any {
	body := map[string]any{}
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Project != nil {
		body["project"] = *p.Project
	}
	if p.Status != nil {
		body["status"] = *p.Status
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	switch {
	case p.Unassign:
		body["assignee"] = nil
	case p.Assignee != nil:
		body["assignee"] = *p.Assignee
	}
	switch {
	case p.ClearDueDate:
		body["due_date"] = nil
	case p.DueDate != nil:
		body["due_date"] = formatDue(*p.DueDate)
	}
	return body
}

type projectWire struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Members     []int  `json:"members"`
}

func projectBody(in service.ProjectInput) projectWire {
	members := in.Members
	if members == nil {
		members = []int{}
	}
	return projectWire{
		Name:        in.Name,
		Code:        in.Code,
		Description: in.Description,
		Members:     members,
	}
}

func projectPatchBody(p service.ProjectPatch) map[string]any {
	body := map[string]any{}
	if p.Name != nil {
		body["name"] = *p.Name
	}
	if p.Code != nil {
		body["code"] = *p.Code
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Members != nil {
		body["members"] = p.Members
	}
	return body
}

// commentTaskField picks the comment filter/form field for ref.
func commentTaskField(ref service.TaskRef) (field, value string) {
	if ref.ByIssueID {
		return "task_issue_id", ref.Key
	}
	return "task", ref.Key
}
