package output

import (
	"bytes"
	"testing"
	"time"

	"tasker/internal/service"
)

type labels struct{}

func (labels) StatusName(id int) string {
	return map[int]string{1: "Open", 4: "Closed"}[id]
}

func (labels) PriorityLevel(id int) string {
	return map[int]string{2: "Medium"}[id]
}

func TestFormatTask(t *testing.T) {
	due := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		task service.Task
		want string
	}{
		{
			name: "basic",
			task: service.Task{ID: 101, IssueID: "WEB-1", Title: "Fix login", Status: 1, Priority: 2},
			want: "WEB-1     Open         Medium  Fix login\n",
		},
		{
			name: "due date",
			task: service.Task{ID: 101, IssueID: "WEB-1", Title: "Fix login", Status: 1, Priority: 2, DueDate: &due},
			want: "WEB-1     Open         Medium  Fix login  due 2026-03-01\n",
		},
		{
			name: "no issue id",
			task: service.Task{ID: 7, Title: "x", Status: 4, Priority: 2},
			want: "#7        Closed       Medium  x\n",
		},
		{
			name: "multiline title",
			task: service.Task{IssueID: "OPS-12", Title: "line one\nline two", Status: 1, Priority: 2},
			want: "OPS-12    Open         Medium  line one line two\n",
		},
		{
			name: "empty title",
			task: service.Task{IssueID: "OPS-1", Title: "  ", Status: 1, Priority: 2},
			want: "OPS-1     Open         Medium  (untitled)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			FormatTask(&buf, tt.task, labels{})
			if buf.String() != tt.want {
				t.Errorf("FormatTask() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestFormatTaskDetail(t *testing.T) {
	assignee := 3
	task := service.Task{
		ID: 101, IssueID: "WEB-1", Title: "Fix login", Status: 1, Priority: 2,
		Creator: "ada", Assignee: &assignee, Description: "first\nsecond",
	}
	var buf bytes.Buffer
	FormatTaskDetail(&buf, task, labels{}, "Website (WEB)")

	want := "WEB-1  Fix login\n" +
		"  id:        101\n" +
		"  project:   Website (WEB)\n" +
		"  status:    Open\n" +
		"  priority:  Medium\n" +
		"  creator:   ada\n" +
		"  assignee:  3\n" +
		"\n" +
		"  first\n" +
		"  second\n"
	if buf.String() != want {
		t.Errorf("FormatTaskDetail() = %q, want %q", buf.String(), want)
	}
}

func TestFormatSectionHeader(t *testing.T) {
	var buf bytes.Buffer
	FormatSectionHeader(&buf, ProjectTitle(service.Project{Name: "Website", Code: "WEB"}))
	want := "------------\nWebsite (WEB)\n------------\n"
	if buf.String() != want {
		t.Errorf("FormatSectionHeader() = %q, want %q", buf.String(), want)
	}
}

func TestFormatProject(t *testing.T) {
	tests := []struct {
		project service.Project
		want    string
	}{
		{service.Project{Name: "Website", Code: "WEB"}, "WEB       Website\n"},
		{service.Project{Name: "Website", Code: "WEB", Members: []int{1}}, "WEB       Website  (1 member)\n"},
		{service.Project{Name: "", Code: "OPS", Members: []int{1, 2}}, "OPS       (unnamed)  (2 members)\n"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		FormatProject(&buf, tt.project)
		if buf.String() != tt.want {
			t.Errorf("FormatProject() = %q, want %q", buf.String(), tt.want)
		}
	}
}

func TestFormatComment(t *testing.T) {
	c := service.Comment{
		ID: 7, Author: "ada", Text: "hello\nworld\n",
		Attachment: "/media/attachments/log.txt",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	var buf bytes.Buffer
	FormatComment(&buf, c)
	want := "#7  ada  2026-01-02 03:04:05\n    hello\n    world\n    attachment: /media/attachments/log.txt\n"
	if buf.String() != want {
		t.Errorf("FormatComment() = %q, want %q", buf.String(), want)
	}
}

func TestFormatReference(t *testing.T) {
	var buf bytes.Buffer
	FormatStatus(&buf, service.Status{ID: 4, Name: "Closed"})
	FormatPriority(&buf, service.Priority{ID: 12, Level: "High"})
	FormatUser(&buf, service.User{ID: 1, Username: "ada", FirstName: "Ada", LastName: "Lovelace"})
	want := "   4  Closed\n  12  High\n   1  ada           Ada Lovelace\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestFormatProfile(t *testing.T) {
	u := service.User{
		Username: "ada", Email: "a@b.com", FirstName: "Ada", LastName: "Lovelace",
		Position: &service.Position{Name: "Engineer"}, AvatarURL: "/media/avatars/me.png",
	}
	var buf bytes.Buffer
	FormatProfile(&buf, u)
	want := "Ada Lovelace <a@b.com>\n  username:  ada\n  position:  Engineer\n  avatar:    /media/avatars/me.png\n"
	if buf.String() != want {
		t.Errorf("FormatProfile() = %q, want %q", buf.String(), want)
	}
}
