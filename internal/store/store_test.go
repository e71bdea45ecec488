package store

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasker/internal/apierr"
	"tasker/internal/auth"
	"tasker/internal/backend/restapi"
	"tasker/internal/credstore"
	"tasker/internal/rest"
	"tasker/internal/service"
	"tasker/internal/testutil"
)

func newStores(t *testing.T) (*Stores, *restapi.Client, *testutil.FakeBackend) {
	t.Helper()
	return newStoresOn(t, testutil.NewFakeBackend(t))
}

// newStoresOn logs a new session into fb, as a separate invocation would.
func newStoresOn(t *testing.T, fb *testutil.FakeBackend) (*Stores, *restapi.Client, *testutil.FakeBackend) {
	t.Helper()
	client, err := rest.NewClient(rest.Config{BaseURL: fb.URL(), HTTPClient: fb.Client()})
	require.NoError(t, err)
	session, err := auth.New(context.Background(), auth.Options{Store: credstore.NewMemoryStore(), Doer: client})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, session.Login(ctx, testutil.FakeEmail, testutil.FakePassword))
	_, err = session.Profile(ctx)
	require.NoError(t, err)

	api := restapi.New(session.Pipeline())
	return New(api, Options{ClosedStatus: testutil.ClosedStatusID}), api, fb
}

func TestTaskStore_FetchIsIdempotent(t *testing.T) {
	s, _, fb := newStores(t)
	ctx := context.Background()
	web := fb.AddProject("Website", "WEB")
	fb.AddTask(web.ID, "open", 1)
	fb.AddTask(web.ID, "done", testutil.ClosedStatusID)

	first, err := s.Tasks.Fetch(ctx, service.AllProjects)
	require.NoError(t, err)
	second, err := s.Tasks.Fetch(ctx, service.AllProjects)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Len(t, first.All, 2)
	require.Len(t, first.Open, 1)
	require.Len(t, first.Closed, 1)
	assert.Equal(t, "open", first.Open[0].Title)
	assert.Equal(t, "done", first.Closed[0].Title)
	assert.Equal(t, service.AllProjects, s.Tasks.ActiveProject())
}

func TestTaskStore_FetchScopesToProject(t *testing.T) {
	s, _, fb := newStores(t)
	web := fb.AddProject("Website", "WEB")
	ops := fb.AddProject("Operations", "OPS")
	fb.AddTask(web.ID, "web", 1)
	fb.AddTask(ops.ID, "ops", 1)

	snap, err := s.Tasks.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, snap.All, 2, "empty project means every project")

	snap, err = s.Tasks.Fetch(context.Background(), itoa(ops.ID))
	require.NoError(t, err)
	require.Len(t, snap.All, 1)
	assert.Equal(t, "ops", snap.All[0].Title)
	assert.Equal(t, itoa(ops.ID), s.Tasks.ActiveProject())
}

func TestTaskStore_UpdateReconciles(t *testing.T) {
	s, api, fb := newStores(t)
	ctx := context.Background()
	web := fb.AddProject("Website", "WEB")
	task := fb.AddTask(web.ID, "old", 1)
	fb.AddTask(web.ID, "other", 1)
	_, err := s.Tasks.Fetch(ctx, itoa(web.ID))
	require.NoError(t, err)

	title := "new"
	_, err = s.Tasks.Update(ctx, service.IDRef(task.ID), service.TaskPatch{Title: &title})
	require.NoError(t, err)

	cached := s.Tasks.Snapshot()
	independent := New(api, Options{ClosedStatus: testutil.ClosedStatusID})
	fresh, err := independent.Tasks.Fetch(ctx, itoa(web.ID))
	require.NoError(t, err)
	assert.Equal(t, fresh, cached)
	assert.Equal(t, "new", cached.All[0].Title)
}

func TestTaskStore_CreateAndDeleteReconcile(t *testing.T) {
	s, _, fb := newStores(t)
	ctx := context.Background()
	web := fb.AddProject("Website", "WEB")
	_, err := s.Tasks.Fetch(ctx, service.AllProjects)
	require.NoError(t, err)
	assert.Empty(t, s.Tasks.Snapshot().All)

	created, err := s.Tasks.Create(ctx, service.TaskInput{Title: "new", Project: web.ID, Status: 1, Priority: 1})
	require.NoError(t, err)
	assert.Equal(t, "WEB-1", created.IssueID)
	require.Len(t, s.Tasks.Snapshot().All, 1)
	assert.Len(t, s.Tasks.Snapshot().Open, 1)

	require.NoError(t, s.Tasks.Delete(ctx, service.IssueRef(created.IssueID)))
	assert.Empty(t, s.Tasks.Snapshot().All)
}

func TestTaskStore_Complete(t *testing.T) {
	s, _, fb := newStores(t)
	ctx := context.Background()
	web := fb.AddProject("Website", "WEB")
	task := fb.AddTask(web.ID, "task", 1)

	done, err := s.Tasks.Complete(ctx, service.IssueRef(task.IssueID))
	require.NoError(t, err)
	assert.Equal(t, testutil.ClosedStatusID, done.Status)

	snap := s.Tasks.Snapshot()
	assert.Empty(t, snap.Open)
	require.Len(t, snap.Closed, 1)
	assert.Equal(t, task.ID, snap.Closed[0].ID)
}

func TestTaskStore_AliasEquivalence(t *testing.T) {
	ctx := context.Background()
	run := func(byAlias bool) service.Task {
		s, _, fb := newStores(t)
		web := fb.AddProject("Website", "WEB")
		task := fb.AddTask(web.ID, "task", 1)
		ref := service.IDRef(task.ID)
		if byAlias {
			ref = service.IssueRef(task.IssueID)
		}
		title, priority := "renamed", 3
		_, err := s.Tasks.Update(ctx, ref, service.TaskPatch{Title: &title, Priority: &priority})
		require.NoError(t, err)
		tasks := fb.Tasks()
		require.Len(t, tasks, 1)
		return tasks[0]
	}

	byID, byAlias := run(false), run(true)
	assert.Equal(t, byID.Title, byAlias.Title)
	assert.Equal(t, byID.Priority, byAlias.Priority)
	assert.Equal(t, byID.IssueID, byAlias.IssueID)
	assert.Equal(t, byID.Status, byAlias.Status)
}

func TestTaskStore_FailedMutationSkipsReconcile(t *testing.T) {
	s, _, fb := newStores(t)
	ctx := context.Background()
	web := fb.AddProject("Website", "WEB")
	task := fb.AddTask(web.ID, "task", 1)
	before, err := s.Tasks.Fetch(ctx, service.AllProjects)
	require.NoError(t, err)
	fetches := len(fb.Requests(http.MethodGet, restapi.TasksPath))

	fb.Fail(http.MethodDelete, "/tasks/tasks/"+itoa(task.ID)+"/", http.StatusForbidden)
	err = s.Tasks.Delete(ctx, service.IDRef(task.ID))
	assert.ErrorIs(t, err, apierr.ErrValidation)

	var reconcileErr *ReconcileError
	assert.False(t, errors.As(err, &reconcileErr))
	assert.Len(t, fb.Requests(http.MethodGet, restapi.TasksPath), fetches, "no reconciling fetch")
	assert.Equal(t, before, s.Tasks.Snapshot())
}

func TestTaskStore_ReconcileFailure(t *testing.T) {
	s, _, fb := newStores(t)
	ctx := context.Background()
	web := fb.AddProject("Website", "WEB")
	task := fb.AddTask(web.ID, "task", 1)

	fb.Fail(http.MethodGet, restapi.TasksPath, http.StatusServiceUnavailable)
	err := s.Tasks.Delete(ctx, service.IDRef(task.ID))

	var reconcileErr *ReconcileError
	require.ErrorAs(t, err, &reconcileErr)
	assert.Equal(t, "delete task", reconcileErr.Op)
	assert.ErrorIs(t, err, apierr.ErrTransient)
	assert.Empty(t, fb.Tasks(), "the mutation itself was applied")
}

func TestTaskStore_ConcurrentFetchesKeepConsistentSnapshot(t *testing.T) {
	s, _, fb := newStores(t)
	web := fb.AddProject("Website", "WEB")
	ops := fb.AddProject("Operations", "OPS")
	fb.AddTask(web.ID, "web", 1)
	fb.AddTask(ops.ID, "ops", 1)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		project := itoa(web.ID)
		if i%2 == 1 {
			project = itoa(ops.ID)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Tasks.Fetch(context.Background(), project)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap := s.Tasks.Snapshot()
	assert.Equal(t, snap.Project, s.Tasks.ActiveProject())
	require.Len(t, snap.All, 1)
	assert.Equal(t, snap.Project, itoa(snap.All[0].Project), "snapshot and filter come from the same fetch")
}

func TestProjectStore(t *testing.T) {
	s, _, _ := newStores(t)
	ctx := context.Background()

	created, err := s.Projects.Create(ctx, service.ProjectInput{Name: "Website", Code: "web"})
	require.NoError(t, err)
	require.Len(t, s.Projects.Items(), 1)

	byCode, err := s.Projects.Resolve("WEB")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)
	byID, err := s.Projects.Resolve(itoa(created.ID))
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)
	_, err = s.Projects.Resolve("NOPE")
	assert.EqualError(t, err, "project not found: NOPE")

	_, err = s.Projects.Update(ctx, created.ID, service.ProjectInput{Name: "Site", Code: "SITE"})
	require.NoError(t, err)
	assert.Equal(t, "Site", s.Projects.Items()[0].Name)

	desc := "public site"
	_, err = s.Projects.Patch(ctx, created.ID, service.ProjectPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "public site", s.Projects.Items()[0].Description)

	require.NoError(t, s.Projects.Delete(ctx, created.ID))
	assert.Empty(t, s.Projects.Items())
	assert.True(t, s.Projects.Loaded())
}

func TestProjectStore_ValidationFailureSendsNothing(t *testing.T) {
	s, _, fb := newStores(t)
	before := len(fb.Requests("", ""))

	_, err := s.Projects.Create(context.Background(), service.ProjectInput{Code: "WEB"})
	assert.ErrorIs(t, err, apierr.ErrValidation)
	assert.Len(t, fb.Requests("", ""), before)
	assert.False(t, s.Projects.Loaded())
}

func TestCommentStore(t *testing.T) {
	s, _, fb := newStores(t)
	ctx := context.Background()
	web := fb.AddProject("Website", "WEB")
	task := fb.AddTask(web.ID, "task", 1)
	ref := service.IssueRef(task.IssueID)

	comments, err := s.Comments.Fetch(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, comments)

	created, err := s.Comments.Create(ctx, service.CommentInput{
		Task: ref, Text: "see log",
		Attachment: &service.Attachment{Name: "out.log", Data: []byte("trace")},
	})
	require.NoError(t, err)
	require.Len(t, s.Comments.Items(), 1)
	assert.Equal(t, "/media/attachments/out.log", s.Comments.Items()[0].Attachment)

	active, ok := s.Comments.ActiveTask()
	require.True(t, ok)
	assert.Equal(t, ref, active)

	require.NoError(t, s.Comments.Delete(ctx, created.ID))
	assert.Empty(t, s.Comments.Items())
}

func TestCommentStore_DeleteFromReconcilesTask(t *testing.T) {
	s, _, fb := newStores(t)
	ctx := context.Background()
	web := fb.AddProject("Website", "WEB")
	task := fb.AddTask(web.ID, "task", 1)
	ref := service.IssueRef(task.IssueID)

	created, err := s.Comments.Create(ctx, service.CommentInput{Task: ref, Text: "one"})
	require.NoError(t, err)
	_, err = s.Comments.Create(ctx, service.CommentInput{Task: ref, Text: "two"})
	require.NoError(t, err)

	fresh, _, _ := newStoresOn(t, fb)
	_, ok := fresh.Comments.ActiveTask()
	require.False(t, ok)

	require.NoError(t, fresh.Comments.DeleteFrom(ctx, ref, created.ID))
	active, ok := fresh.Comments.ActiveTask()
	require.True(t, ok)
	assert.Equal(t, ref, active)
	require.Len(t, fresh.Comments.Items(), 1)
	assert.Equal(t, "two", fresh.Comments.Items()[0].Text)
}

func TestStores_InitAndReset(t *testing.T) {
	s, _, fb := newStores(t)
	ctx := context.Background()
	fb.AddProject("Website", "WEB")

	require.NoError(t, s.Init(ctx))
	assert.Len(t, s.Reference.Statuses(), 4)
	assert.Len(t, s.Reference.Priorities(), 3)
	assert.Len(t, s.Projects.Items(), 1)
	assert.Equal(t, "Closed", s.Reference.StatusName(testutil.ClosedStatusID))
	assert.Equal(t, "High", s.Reference.PriorityLevel(3))
	assert.Equal(t, "99", s.Reference.StatusName(99))

	_, err := s.Tasks.Fetch(ctx, service.AllProjects)
	require.NoError(t, err)
	_, err = s.Users.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, s.Users.Items(), 1)

	s.Reset()
	assert.Empty(t, s.Reference.Statuses())
	assert.Empty(t, s.Projects.Items())
	assert.Empty(t, s.Users.Items())
	assert.False(t, s.Tasks.Loaded())
	assert.False(t, s.Projects.Loaded())
	_, ok := s.Comments.ActiveTask()
	assert.False(t, ok)
}

func TestStores_InitFailure(t *testing.T) {
	s, _, fb := newStores(t)
	fb.Fail(http.MethodGet, restapi.PrioritiesPath, http.StatusInternalServerError)

	err := s.Init(context.Background())
	assert.ErrorIs(t, err, apierr.ErrTransient)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
