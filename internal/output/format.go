// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"tasker/internal/service"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"

	// DateLayout is the layout of due dates on input and output.
	DateLayout = "2006-01-02"
)

// Labels resolves reference ids to display names.
type Labels interface {
	StatusName(id int) string
	PriorityLevel(id int) string
}

// FormatTask formats a task line.
// Format: "{ISSUE:<8}  {STATUS:<11}  {PRIORITY:<6}  {TITLE}[  due {DATE}]\n"
func FormatTask(w io.Writer, task service.Task, labels Labels) {
	issue := task.IssueID
	if issue == "" {
		issue = fmt.Sprintf("#%d", task.ID)
	}
	line := fmt.Sprintf("%-8s  %-11s  %-6s  %s", issue, labels.StatusName(task.Status), labels.PriorityLevel(task.Priority), normalizeTitle(task.Title))
	if task.DueDate != nil {
		line += "  due " + task.DueDate.UTC().Format(DateLayout)
	}
	fmt.Fprintln(w, line)
}

// FormatTaskDetail prints every field of a task, one per line.
func FormatTaskDetail(w io.Writer, task service.Task, labels Labels, project string) {
	fmt.Fprintf(w, "%s  %s\n", task.IssueID, normalizeTitle(task.Title))
	fmt.Fprintf(w, "  id:        %d\n", task.ID)
	fmt.Fprintf(w, "  project:   %s\n", project)
	fmt.Fprintf(w, "  status:    %s\n", labels.StatusName(task.Status))
	fmt.Fprintf(w, "  priority:  %s\n", labels.PriorityLevel(task.Priority))
	if task.Creator != "" {
		fmt.Fprintf(w, "  creator:   %s\n", task.Creator)
	}
	if task.Assignee != nil {
		fmt.Fprintf(w, "  assignee:  %d\n", *task.Assignee)
	}
	if task.DueDate != nil {
		fmt.Fprintf(w, "  due:       %s\n", task.DueDate.UTC().Format(DateLayout))
	}
	if d := strings.TrimSpace(task.Description); d != "" {
		fmt.Fprintln(w)
		for _, line := range strings.Split(d, "\n") {
			fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\r"))
		}
	}
}

// FormatSectionHeader formats a list section header.
func FormatSectionHeader(w io.Writer, title string) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, normalizeName(title))
	fmt.Fprintln(w, ListSeparator)
}

// ProjectTitle is the section title of a project: "Name (CODE)".
func ProjectTitle(p service.Project) string {
	return fmt.Sprintf("%s (%s)", normalizeName(p.Name), p.Code)
}

// FormatProject formats a project line.
// Format: "{CODE:<8}  {NAME}[  ({N} members)]\n"
func FormatProject(w io.Writer, p service.Project) {
	line := fmt.Sprintf("%-8s  %s", p.Code, normalizeName(p.Name))
	switch n := len(p.Members); n {
	case 0:
	case 1:
		line += "  (1 member)"
	default:
		line += fmt.Sprintf("  (%d members)", n)
	}
	fmt.Fprintln(w, line)
}

// FormatComment formats a comment with its author and optional attachment.
func FormatComment(w io.Writer, c service.Comment) {
	fmt.Fprintf(w, "#%d  %s  %s\n", c.ID, c.Author, c.CreatedAt.UTC().Format(time.DateTime))
	for _, line := range strings.Split(strings.TrimSpace(c.Text), "\n") {
		fmt.Fprintf(w, "    %s\n", strings.TrimRight(line, "\r"))
	}
	if c.Attachment != "" {
		fmt.Fprintf(w, "    attachment: %s\n", c.Attachment)
	}
}

// FormatStatus formats a status line: "{ID:>4}  {NAME}\n".
func FormatStatus(w io.Writer, s service.Status) {
	fmt.Fprintf(w, "%4d  %s\n", s.ID, s.Name)
}

// FormatPriority formats a priority line: "{ID:>4}  {LEVEL}\n".
func FormatPriority(w io.Writer, p service.Priority) {
	fmt.Fprintf(w, "%4d  %s\n", p.ID, p.Level)
}

// FormatUser formats a user line: "{ID:>4}  {USERNAME:<12}  {NAME}\n".
func FormatUser(w io.Writer, u service.User) {
	fmt.Fprintf(w, "%4d  %-12s  %s\n", u.ID, u.Username, u.DisplayName())
}

// FormatProfile prints the current user's profile.
func FormatProfile(w io.Writer, u service.User) {
	fmt.Fprintf(w, "%s <%s>\n", u.DisplayName(), u.Email)
	fmt.Fprintf(w, "  username:  %s\n", u.Username)
	if u.Position != nil && u.Position.Name != "" {
		fmt.Fprintf(w, "  position:  %s\n", u.Position.Name)
	}
	if u.AvatarURL != "" {
		fmt.Fprintf(w, "  avatar:    %s\n", u.AvatarURL)
	}
	if u.IsSuperuser {
		fmt.Fprintln(w, "  superuser: yes")
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// normalizeName normalizes a project name for display.
// Empty or whitespace-only names become "(unnamed)".
func normalizeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(unnamed)"
	}
	return name
}
