package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// AllProjects is the project filter value that selects every project.
const AllProjects = "all"

// Task is a tracked work item. It belongs to one project and carries an
// issue id ("WEB-12") usable in place of its numeric id.
type Task struct {
	ID          int        `json:"id"`
	IssueID     string     `json:"issue_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DueDate     *time.Time `json:"due_date"`
	Creator     string     `json:"creator"`
	Assignee    *int       `json:"assignee"`
	Project     int        `json:"project"`
	Status      int        `json:"status"`
	Priority    int        `json:"priority"`
}

// Project groups tasks. Code prefixes the issue ids of its tasks.
type Project struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Members     []int     `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Comment belongs to exactly one task. Attachment is a URL, empty when absent.
type Comment struct {
	ID         int       `json:"id"`
	Task       int       `json:"task"`
	Author     string    `json:"author"`
	Text       string    `json:"text"`
	Attachment string    `json:"attachment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Status struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Priority struct {
	ID    int    `json:"id"`
	Level string `json:"level"`
}

type Position struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// User is an account on the backend. The current user's profile has the
// same shape.
type User struct {
	ID          int       `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Position    *Position `json:"position"`
	AvatarURL   string    `json:"avatar_url"`
	IsSuperuser bool      `json:"is_superuser"`
}

// DisplayName returns "First Last", falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// TaskRef addresses a task either by numeric id or by issue id. The server
// resolves both; the client only forwards which scheme was used.
type TaskRef struct {
	Key       string `validate:"required"`
	ByIssueID bool
}

func (r TaskRef) String() string { return r.Key }

var issueIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+-[0-9]+$`)

// ParseTaskRef parses a command-line task reference. All digits is a numeric
// id; "CODE-N" is an issue id (upper-cased).
func ParseTaskRef(s string) (TaskRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TaskRef{}, fmt.Errorf("empty task reference")
	}
	if isDigits(s) {
		return TaskRef{Key: s}, nil
	}
	if issueIDPattern.MatchString(s) {
		return TaskRef{Key: strings.ToUpper(s), ByIssueID: true}, nil
	}
	return TaskRef{}, fmt.Errorf("invalid task reference: %s (want an id or an issue id like WEB-12)", s)
}

// IDRef addresses a task by numeric id.
func IDRef(id int) TaskRef {
	return TaskRef{Key: fmt.Sprint(id)}
}

// IssueRef addresses a task by issue id.
func IssueRef(issueID string) TaskRef {
	return TaskRef{Key: issueID, ByIssueID: true}
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

// TaskFilter selects tasks. Zero Status or NotStatus means no constraint.
type TaskFilter struct {
	// Project is a project id or AllProjects.
	Project   string
	Status    int
	NotStatus int
}

// Attachment is a file uploaded with a multipart request.
type Attachment struct {
	Name string `validate:"required"`
	Data []byte
}

// TaskInput creates a task.
type TaskInput struct {
	Title       string `validate:"required,max=200"`
	Description string
	Project     int `validate:"required"`
	Status      int `validate:"required"`
	Priority    int `validate:"required"`
	Assignee    *int
	DueDate     *time.Time
}

// TaskPatch changes a task. Nil fields are left untouched. Unassign and
// ClearDueDate send an explicit null.
type TaskPatch struct {
	Title        *string `validate:"omitempty,min=1,max=200"`
	Description  *string
	Project      *int
	Status       *int
	Priority     *int
	Assignee     *int
	Unassign     bool
	DueDate      *time.Time
	ClearDueDate bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Project == nil &&
		p.Status == nil && p.Priority == nil && p.Assignee == nil &&
		!p.Unassign && p.DueDate == nil && !p.ClearDueDate
}

// ProjectInput creates or fully replaces a project.
type ProjectInput struct {
	Name        string `validate:"required,max=150"`
	Code        string `validate:"required,max=16,alphanum"`
	Description string
	Members     []int
}

// ProjectPatch changes a project. Nil fields are left untouched.
type ProjectPatch struct {
	Name        *string `validate:"omitempty,min=1,max=150"`
	Code        *string `validate:"omitempty,min=1,max=16,alphanum"`
	Description *string
	Members     []int
}

// CommentInput creates a comment on a task.
type CommentInput struct {
	Task       TaskRef
	Text       string `validate:"required"`
	Attachment *Attachment
}
