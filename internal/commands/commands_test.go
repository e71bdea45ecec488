package commands_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasker/internal/apierr"
	"tasker/internal/commands"
	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
	"tasker/internal/store"
	"tasker/internal/testutil"
)

// newEnv returns a logged-in environment over svc.
func newEnv(t *testing.T, svc *testutil.FakeService) *commands.Env {
	t.Helper()
	return &commands.Env{
		Config:  &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()},
		Session: &fakeSession{authenticated: true, user: testutil.SeedUser()},
		Service: svc,
		Stores:  store.New(svc, store.Options{ClosedStatus: testutil.ClosedStatusID}),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// runCommand parses args the way the dispatcher does and runs cmd.
func runCommand(t *testing.T, cmd commands.Command, env *commands.Env, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))

	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), env, fs.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// seedTwoProjects adds Website (WEB) and Operations (OPS) with one open task
// each and one closed WEB task.
func seedTwoProjects(svc *testutil.FakeService) (web, ops service.Project) {
	web = svc.AddProject("Website", "WEB")
	ops = svc.AddProject("Operations", "OPS")
	svc.AddTask(web.ID, "Fix login", 1)
	svc.AddTask(ops.ID, "Rotate keys", 2)
	svc.AddTask(web.ID, "Old", testutil.ClosedStatusID)
	return web, ops
}

func findTask(t *testing.T, svc *testutil.FakeService, issueID string) service.Task {
	t.Helper()
	for _, task := range svc.Tasks() {
		if task.IssueID == issueID {
			return task
		}
	}
	t.Fatalf("task %s not found", issueID)
	return service.Task{}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, &commands.Env{})

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "tasker 0.1.0\n", stdout)
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, &commands.Env{})
	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	testutil.Golden(t, "help", stdout)

	stdout, _, code = runCommand(t, &commands.HelpCmd{}, &commands.Env{}, "add")
	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "Create a task")
	assert.Contains(t, stdout, "tasker add [--project <project>]")

	_, stderr, code = runCommand(t, &commands.HelpCmd{}, &commands.Env{}, "nope")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: unknown command: nope\n", stderr)
}

func TestRegistry_EveryCommandIsRegistered(t *testing.T) {
	for _, name := range []string{
		"list", "ls", "show", "add", "create", "edit", "done", "rm", "delete",
		"projects", "createproject", "addproject", "editproject", "rmproject",
		"comments", "comment", "rmcomment", "statuses", "priorities", "users",
		"login", "logout", "whoami", "avatar", "status", "help", "version",
	} {
		_, ok := commands.DefaultRegistry.Find(name)
		assert.True(t, ok, name)
	}

	r := commands.NewRegistry()
	require.NoError(t, r.Register(&commands.RmCmd{}))
	assert.EqualError(t, r.Register(&commands.RmCmd{}), "command already registered: rm")
}

func TestListCommand_GroupsByProject(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, newEnv(t, svc))

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	expected := "------------\nWebsite (WEB)\n------------\n" +
		"WEB-1     Open         Medium  Fix login\n" +
		"------------\nOperations (OPS)\n------------\n" +
		"OPS-1     In progress  Medium  Rotate keys\n"
	assert.Equal(t, expected, stdout)
}

func TestListCommand_ProjectAndClosed(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)
	env := newEnv(t, svc)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, env, "--project", "web", "--closed")

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "WEB-2     Closed       Medium  Old\n", stdout)

	web, err := env.Stores.Projects.Resolve("WEB")
	require.NoError(t, err)
	assert.Equal(t, itoa(web.ID), env.Stores.Tasks.ActiveProject())
}

func TestListCommand_All(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)

	stdout, _, code := runCommand(t, &commands.ListCmd{}, newEnv(t, svc), "-p", "WEB", "--all")

	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "WEB-1     Open         Medium  Fix login\nWEB-2     Closed       Medium  Old\n", stdout)
}

func TestListCommand_Empty(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.ListCmd{}, newEnv(t, svc))
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "no tasks found\n", stdout)

	env := newEnv(t, svc)
	env.Config.Quiet = true
	stdout, _, _ = runCommand(t, &commands.ListCmd{}, env)
	assert.Empty(t, stdout)
}

func TestListCommand_UsageErrors(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)

	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{"closed and all", []string{"--closed", "--all"}, "error: cannot use both --closed and --all\n"},
		{"unknown project", []string{"--project", "nope"}, "error: project not found: nope\n"},
		{"extra argument", []string{"WEB"}, "error: unexpected argument: WEB\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, code := runCommand(t, &commands.ListCmd{}, newEnv(t, svc), tt.args...)
			assert.Equal(t, exitcode.UserError, code)
			assert.Empty(t, stdout)
			assert.Equal(t, tt.stderr, stderr)
		})
	}
}

func TestListCommand_BackendErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		stderr string
	}{
		{
			name:   "transient",
			err:    apierr.Transient("GET /tasks/tasks/", errors.New("connection refused")),
			code:   exitcode.BackendError,
			stderr: "error: backend error: GET /tasks/tasks/: request failed: connection refused\n",
		},
		{
			name:   "session expired",
			err:    apierr.SessionExpired("GET /tasks/tasks/", errors.New("refresh rejected")),
			code:   exitcode.SessionExpired,
			stderr: "error: session expired (run: tasker login)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.ListTasksErr = tt.err

			stdout, stderr, code := runCommand(t, &commands.ListCmd{}, newEnv(t, svc))
			assert.Equal(t, tt.code, code)
			assert.Empty(t, stdout)
			assert.Equal(t, tt.stderr, stderr)
		})
	}
}

func TestShowCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)

	stdout, stderr, code := runCommand(t, &commands.ShowCmd{}, newEnv(t, svc), "web-1")
	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "WEB-1  Fix login\n")
	assert.Contains(t, stdout, "  project:   Website (WEB)\n")
	assert.Contains(t, stdout, "  status:    Open\n")

	_, stderr, code = runCommand(t, &commands.ShowCmd{}, newEnv(t, svc), "WEB-99")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: task not found: WEB-99\n", stderr)
}

func TestAddCommand_SingleProjectDefaults(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddProject("Website", "WEB")

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, newEnv(t, svc), "Buy", "groceries")

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "created WEB-1\n", stdout)

	task := findTask(t, svc, "WEB-1")
	assert.Equal(t, "Buy groceries", task.Title)
	assert.Equal(t, 1, task.Status, "first status that is not closed")
	assert.Equal(t, 1, task.Priority)
	assert.Equal(t, "ada", task.Creator)
	assert.Nil(t, task.Assignee)
}

func TestAddCommand_AllFields(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, newEnv(t, svc),
		"--project", "ops", "--status", "in progress", "--priority", "HIGH",
		"--assignee", "ada", "--due", "2026-05-01", "-d", "details", "Patch", "servers")

	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "created OPS-2\n", stdout)

	task := findTask(t, svc, "OPS-2")
	assert.Equal(t, "Patch servers", task.Title)
	assert.Equal(t, "details", task.Description)
	assert.Equal(t, 2, task.Status)
	assert.Equal(t, 3, task.Priority)
	require.NotNil(t, task.Assignee)
	assert.Equal(t, 1, *task.Assignee)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2026-05-01", task.DueDate.Format("2006-01-02"))
}

func TestAddCommand_Quiet(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddProject("Website", "WEB")
	env := newEnv(t, svc)
	env.Config.Quiet = true

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, env, "Buy", "milk")

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Empty(t, stdout)
}

func TestAddCommand_Errors(t *testing.T) {
	long := strings.Repeat("x", 201)
	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{"no title", nil, "error: title required\n"},
		{"blank title", []string{"  "}, "error: title required\n"},
		{"ambiguous project", []string{"Title"}, "error: project required (use --project)\n"},
		{"unknown status", []string{"-p", "WEB", "-s", "Blocked", "Title"}, "error: status not found: Blocked\n"},
		{"unknown priority", []string{"-p", "WEB", "--priority", "urgent", "Title"}, "error: priority not found: urgent\n"},
		{"unknown assignee", []string{"-p", "WEB", "-a", "bob", "Title"}, "error: user not found: bob\n"},
		{"bad due date", []string{"-p", "WEB", "--due", "tomorrow", "Title"}, "error: invalid due date: tomorrow (want YYYY-MM-DD)\n"},
		{"title too long", []string{"-p", "WEB", long}, "error: title must be at most 200 characters\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			seedTwoProjects(svc)
			before := len(svc.Tasks())

			stdout, stderr, code := runCommand(t, &commands.AddCmd{}, newEnv(t, svc), tt.args...)
			assert.Equal(t, exitcode.UserError, code)
			assert.Empty(t, stdout)
			assert.Equal(t, tt.stderr, stderr)
			assert.Len(t, svc.Tasks(), before)
		})
	}
}

func TestAddCommand_ServerRejection(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddProject("Website", "WEB")
	svc.CreateTaskErr = &apierr.Error{
		Kind:   apierr.KindValidation,
		Op:     "POST /tasks/tasks/",
		Status: http.StatusBadRequest,
		Body:   `{"title":["Ensure this field is unique."],"priority":["Invalid pk."]}`,
	}

	_, stderr, code := runCommand(t, &commands.AddCmd{}, newEnv(t, svc), "Title")

	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: rejected: priority: Invalid pk.; title: Ensure this field is unique.\n", stderr)
}

func TestEditCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)
	env := newEnv(t, svc)

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, env,
		"--title", "Fix logout", "--status", "Review", "-a", "1", "--due", "2026-02-03", "WEB-1")
	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "ok\n", stdout)

	task := findTask(t, svc, "WEB-1")
	assert.Equal(t, "Fix logout", task.Title)
	assert.Equal(t, 3, task.Status)
	require.NotNil(t, task.Assignee)
	require.NotNil(t, task.DueDate)

	_, stderr, code = runCommand(t, &commands.EditCmd{}, env, "--unassign", "--no-due", "-d", "", itoa(task.ID))
	require.Equal(t, exitcode.Success, code, stderr)

	task = findTask(t, svc, "WEB-1")
	assert.Nil(t, task.Assignee)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, "Fix logout", task.Title, "unset flags leave fields untouched")
}

func TestEditCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		code   int
		stderr string
	}{
		{"no ref", []string{"--title", "x"}, exitcode.UserError, "error: task reference required\n"},
		{"bad ref", []string{"--title", "x", "web"}, exitcode.UserError, "error: invalid task reference: web (want an id or an issue id like WEB-12)\n"},
		{"nothing", []string{"WEB-1"}, exitcode.UserError, "error: nothing to change\n"},
		{"assign and unassign", []string{"-a", "ada", "--unassign", "WEB-1"}, exitcode.UserError, "error: cannot use both --assignee and --unassign\n"},
		{"empty title", []string{"--title", "", "WEB-1"}, exitcode.UserError, "error: title must be at least 1 characters\n"},
		{"missing task", []string{"--title", "x", "WEB-42"}, exitcode.UserError, "error: not found\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			seedTwoProjects(svc)

			_, stderr, code := runCommand(t, &commands.EditCmd{}, newEnv(t, svc), tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.stderr, stderr)
		})
	}
}

func TestDoneCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)
	env := newEnv(t, svc)

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, env, "web-1")

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "ok\n", stdout)
	assert.Equal(t, testutil.ClosedStatusID, findTask(t, svc, "WEB-1").Status)

	snap := env.Stores.Tasks.Snapshot()
	assert.Len(t, snap.Closed, 2, "the store reconciled after the update")
	assert.Len(t, snap.Open, 1)
}

func TestDoneCommand_Errors(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, newEnv(t, svc))
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: task reference required\n", stderr)

	_, stderr, code = runCommand(t, &commands.DoneCmd{}, newEnv(t, svc), "999")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: not found\n", stderr)

	svc.UpdateTaskErr = apierr.Transient("PATCH /tasks/tasks/101/", errors.New("timeout"))
	_, _, code = runCommand(t, &commands.DoneCmd{}, newEnv(t, svc), "WEB-1")
	assert.Equal(t, exitcode.BackendError, code)
}

func TestRmCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)
	target := findTask(t, svc, "OPS-1")

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, newEnv(t, svc), itoa(target.ID))

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "ok\n", stdout)
	assert.Len(t, svc.Tasks(), 2)
}

func TestRmCommand_ReconcileFailureIsAWarning(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)
	svc.ListTasksErr = apierr.Transient("GET /tasks/tasks/", errors.New("connection reset"))

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, newEnv(t, svc), "WEB-1")

	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "ok\n", stdout)
	assert.True(t, strings.HasPrefix(stderr, "warning: delete task succeeded but refreshing the local copy failed: "), stderr)
	assert.Len(t, svc.Tasks(), 2)
}

func TestProjectsCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.ProjectsCmd{}, newEnv(t, svc))
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "no projects found\n", stdout)

	seedTwoProjects(svc)
	stdout, _, code = runCommand(t, &commands.ProjectsCmd{}, newEnv(t, svc))
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "WEB       Website\nOPS       Operations\n", stdout)
}

func TestCreateProjectCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser(service.User{ID: 2, Username: "bob"})
	env := newEnv(t, svc)

	stdout, stderr, code := runCommand(t, &commands.CreateProjectCmd{}, env,
		"--member", "ada,bob", "-d", "Public site", "web", "Web", "site")
	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "created WEB\n", stdout)

	projects := svc.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, "Web site", projects[0].Name)
	assert.Equal(t, "Public site", projects[0].Description)
	assert.Equal(t, []int{1, 2}, projects[0].Members)
	assert.Len(t, env.Stores.Projects.Items(), 1, "the store reconciled after the create")

	_, stderr, code = runCommand(t, &commands.CreateProjectCmd{}, env, "WEB", "Again")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: rejected: code: project with this code already exists.\n", stderr)

	_, stderr, code = runCommand(t, &commands.CreateProjectCmd{}, env, "we-b", "Dashed")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: code must contain only letters and digits\n", stderr)

	_, stderr, code = runCommand(t, &commands.CreateProjectCmd{}, env, "OPS")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: project code and name required\n", stderr)
}

func TestEditProjectCommand_PatchAndReplace(t *testing.T) {
	svc := testutil.NewFakeService()
	web, _ := seedTwoProjects(svc)

	stdout, stderr, code := runCommand(t, &commands.EditProjectCmd{}, newEnv(t, svc), "--name", "Site", "web")
	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "ok\n", stdout)
	assert.Contains(t, svc.Calls(), "PatchProject")
	assert.NotContains(t, svc.Calls(), "UpdateProject")

	_, stderr, code = runCommand(t, &commands.EditProjectCmd{}, newEnv(t, svc), "--replace", "-m", "ada", "--code", "SITE", itoa(web.ID))
	require.Equal(t, exitcode.Success, code, stderr)
	assert.Contains(t, svc.Calls(), "UpdateProject")

	p := svc.Projects()[0]
	assert.Equal(t, "Site", p.Name, "replace keeps fields that were not changed")
	assert.Equal(t, "SITE", p.Code)
	assert.Equal(t, []int{1}, p.Members)

	_, stderr, code = runCommand(t, &commands.EditProjectCmd{}, newEnv(t, svc), "SITE")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: nothing to change\n", stderr)
}

func TestRmProjectCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)

	_, stderr, code := runCommand(t, &commands.RmProjectCmd{}, newEnv(t, svc), "WEB")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: project WEB has 2 tasks (use --force)\n", stderr)
	assert.Len(t, svc.Projects(), 2)

	stdout, stderr, code := runCommand(t, &commands.RmProjectCmd{}, newEnv(t, svc), "--force", "WEB")
	assert.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "ok\n", stdout)
	assert.Len(t, svc.Projects(), 1)
	assert.Len(t, svc.Tasks(), 1)
}

func TestCommentCommands(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)
	task := findTask(t, svc, "WEB-1")
	env := newEnv(t, svc)

	stdout, _, code := runCommand(t, &commands.CommentsCmd{}, env, "WEB-1")
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "no comments\n", stdout)

	path := writeFile(t, "trace.log", "stack")
	stdout, stderr, code := runCommand(t, &commands.CommentCmd{}, env, "--attach", path, "WEB-1", "see", "log")
	require.Equal(t, exitcode.Success, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "created comment #"), stdout)

	comments := svc.Comments()
	require.Len(t, comments, 1)
	assert.Equal(t, task.ID, comments[0].Task)
	assert.Equal(t, "see log", comments[0].Text)
	assert.Equal(t, "/media/attachments/trace.log", comments[0].Attachment)
	assert.Len(t, env.Stores.Comments.Items(), 1, "the store reconciled after the create")

	stdout, _, code = runCommand(t, &commands.CommentsCmd{}, env, itoa(task.ID))
	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "    see log\n")
	assert.Contains(t, stdout, "    attachment: /media/attachments/trace.log\n")

	stdout, stderr, code = runCommand(t, &commands.RmCommentCmd{}, env, "#"+itoa(comments[0].ID))
	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "ok\n", stdout)
	assert.Empty(t, svc.Comments())
	assert.Empty(t, env.Stores.Comments.Items())
}

func TestRmCommentCommand_RefetchesTask(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)
	task := findTask(t, svc, "WEB-1")
	first := svc.AddComment(task.ID, "first")
	svc.AddComment(task.ID, "second")

	// A fresh process has no task loaded; --task names the one to refetch.
	env := newEnv(t, svc)
	stdout, stderr, code := runCommand(t, &commands.RmCommentCmd{}, env, "--task", "web-1", "#"+itoa(first.ID))
	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "ok\n", stdout)

	assert.Contains(t, svc.Calls(), "ListComments")
	active, ok := env.Stores.Comments.ActiveTask()
	require.True(t, ok)
	assert.Equal(t, service.IssueRef("WEB-1"), active)
	items := env.Stores.Comments.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "second", items[0].Text)

	_, stderr, code = runCommand(t, &commands.RmCommentCmd{}, newEnv(t, svc), "-t", "nope", "#"+itoa(first.ID))
	assert.Equal(t, exitcode.UserError, code)
	assert.Contains(t, stderr, "error: invalid task reference: nope")

	_, stderr, code = runCommand(t, &commands.RmCommentCmd{}, newEnv(t, svc), "--task", "WEB-1", "12345")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: not found\n", stderr)
}

func TestCommentCommands_Errors(t *testing.T) {
	svc := testutil.NewFakeService()
	seedTwoProjects(svc)

	_, stderr, code := runCommand(t, &commands.CommentCmd{}, newEnv(t, svc), "WEB-1")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: comment text required\n", stderr)

	_, stderr, code = runCommand(t, &commands.CommentCmd{}, newEnv(t, svc), "--attach", filepath.Join(t.TempDir(), "missing"), "WEB-1", "x")
	assert.Equal(t, exitcode.UserError, code)
	assert.Contains(t, stderr, "error: cannot read ")

	_, stderr, code = runCommand(t, &commands.RmCommentCmd{}, newEnv(t, svc), "abc")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: invalid comment id: abc\n", stderr)

	_, stderr, code = runCommand(t, &commands.RmCommentCmd{}, newEnv(t, svc), "12345")
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: not found\n", stderr)
}

func TestReferenceCommands(t *testing.T) {
	svc := testutil.NewFakeService()
	env := newEnv(t, svc)

	stdout, _, code := runCommand(t, &commands.StatusesCmd{}, env)
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "   1  Open\n   2  In progress\n   3  Review\n   4  Closed\n", stdout)

	stdout, _, code = runCommand(t, &commands.PrioritiesCmd{}, env)
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "   1  Low\n   2  Medium\n   3  High\n", stdout)

	stdout, _, code = runCommand(t, &commands.UsersCmd{}, env)
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "   1  ada           Ada Lovelace\n", stdout)

	svc.ReferenceErr = apierr.Transient("GET /tasks/statuses/", errors.New("refused"))
	_, _, code = runCommand(t, &commands.StatusesCmd{}, newEnv(t, svc))
	assert.Equal(t, exitcode.BackendError, code)
}

func TestAvatarCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	path := writeFile(t, "me.png", "png")

	stdout, stderr, code := runCommand(t, &commands.AvatarCmd{}, newEnv(t, svc), path)
	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "/media/avatars/me.png\n", stdout)
	assert.Equal(t, "/media/avatars/me.png", svc.Me().AvatarURL)

	_, stderr, code = runCommand(t, &commands.AvatarCmd{}, newEnv(t, svc))
	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: image file required\n", stderr)
}
