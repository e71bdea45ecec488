package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"tasker/internal/service"
)

// Default credentials accepted by a new FakeBackend.
const (
	FakeEmail    = "a@b.com"
	FakePassword = "x"
)

// ClosedStatusID is the id of the "Closed" status seeded by FakeBackend.
const ClosedStatusID = 4

var fakeSigningKey = []byte("fake-backend")

// Recorded is one request seen by FakeBackend.
type Recorded struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
	Status        int
}

type fakeAccount struct {
	password string
	user     service.User
}

// FakeBackend is an in-process REST tracker backed by a gin router on an
// httptest.Server. Access tokens are HS256 JWTs; refresh tokens are opaque.
type FakeBackend struct {
	server *httptest.Server

	mu sync.Mutex

	accessTTL    time.Duration
	rotate       bool
	accounts     map[string]*fakeAccount
	access       map[string]int
	refresh      map[string]int
	seq          int
	refreshGate  chan struct{}
	refreshCalls int
	loginCalls   int
	failures     map[string]int
	requests     []Recorded

	statuses   []service.Status
	priorities []service.Priority
	projects   []service.Project
	tasks      []service.Task
	comments   []service.Comment
	issueSeq   map[int]int
	nextID     int
}

// NewFakeBackend starts a backend with one account (FakeEmail/FakePassword),
// four statuses (4 is Closed) and three priorities. It is closed when the
// test ends.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeBackend{
		accessTTL: 5 * time.Minute,
		accounts: map[string]*fakeAccount{
			FakeEmail: {password: FakePassword, user: SeedUser()},
		},
		access:     make(map[string]int),
		refresh:    make(map[string]int),
		failures:   make(map[string]int),
		issueSeq:   make(map[int]int),
		nextID:     100,
		statuses:   SeedStatuses(),
		priorities: SeedPriorities(),
	}

	f.server = httptest.NewServer(f.router())
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the backend.
func (f *FakeBackend) URL() string {
	return f.server.URL
}

// Client returns an HTTP client for the backend.
func (f *FakeBackend) Client() *http.Client {
	return f.server.Client()
}

// SetAccessTTL sets the exp claim of access tokens issued from now on.
// Negative values issue tokens that already look expired; the server still
// accepts them.
func (f *FakeBackend) SetAccessTTL(ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessTTL = ttl
}

// SetRotateRefresh makes every refresh issue a new refresh token and
// invalidate the old one.
func (f *FakeBackend) SetRotateRefresh(rotate bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotate = rotate
}

// ExpireAccessTokens invalidates every issued access token, as if they all
// reached their expiry. Refresh tokens stay valid.
func (f *FakeBackend) ExpireAccessTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = make(map[string]int)
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (f *FakeBackend) RevokeRefreshTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh = make(map[string]int)
}

// HoldRefresh makes refresh calls block until the returned function is
// called.
func (f *FakeBackend) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.refreshGate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Fail makes every request matching method and path answer with status.
func (f *FakeBackend) Fail(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = status
}

// ClearFailures removes every rule installed by Fail.
func (f *FakeBackend) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]int)
}

// RefreshCalls returns how many refresh requests were received.
func (f *FakeBackend) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// LoginCalls returns how many login requests were received.
func (f *FakeBackend) LoginCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

// Requests returns the recorded requests for method and path. An empty
// method or path matches everything.
func (f *FakeBackend) Requests(method, path string) []Recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Recorded
	for _, r := range f.requests {
		if (method == "" || r.Method == method) && (path == "" || r.Path == path) {
			out = append(out, r)
		}
	}
	return out
}

// CountStatus counts recorded requests for path that were answered with status.
func (f *FakeBackend) CountStatus(path string, status int) int {
	n := 0
	for _, r := range f.Requests("", path) {
		if r.Status == status {
			n++
		}
	}
	return n
}

// AddProject seeds a project.
func (f *FakeBackend) AddProject(name, code string) service.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addProjectLocked(name, strings.ToUpper(code), "", nil)
}

// AddTask seeds a task in project with status and priority.
func (f *FakeBackend) AddTask(project int, title string, status int) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, _ := f.addTaskLocked(taskWire{Title: title, Project: project, Status: status, Priority: 2}, "seed")
	return t
}

// AddUser seeds an account.
func (f *FakeBackend) AddUser(email, password string, user service.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.Email = email
	f.accounts[email] = &fakeAccount{password: password, user: user}
}

// Tasks returns a copy of the server-side tasks.
func (f *FakeBackend) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Task(nil), f.tasks...)
}

// Comments returns a copy of the server-side comments.
func (f *FakeBackend) Comments() []service.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Comment(nil), f.comments...)
}

func (f *FakeBackend) router() *gin.Engine {
	r := gin.New()
	r.Use(f.record, f.inject)

	r.POST("/token/", f.login)
	r.POST("/token/refresh/", f.refreshToken)

	api := r.Group("/", f.requireAuth)
	api.GET("/users/me/", f.me)
	api.PATCH("/users/me/", f.updateAvatar)
	api.GET("/users/", f.listUsers)
	api.GET("/tasks/statuses/", f.listStatuses)
	api.GET("/tasks/priorities/", f.listPriorities)
	api.GET("/tasks/projects/", f.listProjects)
	api.POST("/tasks/projects/", f.createProject)
	api.PUT("/tasks/projects/:id/", f.replaceProject)
	api.PATCH("/tasks/projects/:id/", f.patchProject)
	api.DELETE("/tasks/projects/:id/", f.deleteProject)
	api.GET("/tasks/tasks/", f.listTasks)
	api.POST("/tasks/tasks/", f.createTask)
	api.PATCH("/tasks/tasks/:key/", f.patchTask)
	api.DELETE("/tasks/tasks/:key/", f.deleteTask)
	api.GET("/tasks/comments/", f.listComments)
	api.POST("/tasks/comments/", f.createComment)
	api.DELETE("/tasks/comments/:id/", f.deleteComment)
	return r
}

func (f *FakeBackend) record(c *gin.Context) {
	c.Next()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, Recorded{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Query:         c.Request.URL.RawQuery,
		Authorization: c.GetHeader("Authorization"),
		RequestID:     c.GetHeader("X-Request-ID"),
		Status:        c.Writer.Status(),
	})
}

func (f *FakeBackend) inject(c *gin.Context) {
	f.mu.Lock()
	status, ok := f.failures[c.Request.Method+" "+c.Request.URL.Path]
	f.mu.Unlock()
	if ok {
		c.AbortWithStatusJSON(status, gin.H{"detail": "injected failure"})
	}
}

func (f *FakeBackend) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	f.mu.Lock()
	userID, valid := f.access[token]
	f.mu.Unlock()
	if !ok || !valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"detail": "Given token not valid for any token type",
			"code":   "token_not_valid",
		})
		return
	}
	c.Set("user_id", userID)
}

func (f *FakeBackend) issueAccessLocked(userID int) string {
	f.seq++
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		ID:        strconv.Itoa(f.seq),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(f.accessTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(fakeSigningKey)
	if err != nil {
		panic(err)
	}
	f.access[signed] = userID
	return signed
}

func (f *FakeBackend) issueRefreshLocked(userID int) string {
	f.seq++
	token := fmt.Sprintf("refresh-%d", f.seq)
	f.refresh[token] = userID
	return token
}

func (f *FakeBackend) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	account, ok := f.accounts[body.Email]
	if !ok || account.password != body.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access":  f.issueAccessLocked(account.user.ID),
		"refresh": f.issueRefreshLocked(account.user.ID),
	})
}

func (f *FakeBackend) refreshToken(c *gin.Context) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	f.refreshCalls++
	gate := f.refreshGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.refresh[body.Refresh]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	res := gin.H{"access": f.issueAccessLocked(userID)}
	if f.rotate {
		delete(f.refresh, body.Refresh)
		res["refresh"] = f.issueRefreshLocked(userID)
	}
	c.JSON(http.StatusOK, res)
}

func (f *FakeBackend) userLocked(c *gin.Context) *fakeAccount {
	id := c.GetInt("user_id")
	for _, a := range f.accounts {
		if a.user.ID == id {
			return a
		}
	}
	return nil
}

func (f *FakeBackend) me(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := f.userLocked(c)
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	c.JSON(http.StatusOK, account.user)
}

func (f *FakeBackend) updateAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"avatar": []string{"No file was submitted."}})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	account := f.userLocked(c)
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	account.user.AvatarURL = "/media/avatars/" + file.Filename
	c.JSON(http.StatusOK, account.user)
}

func (f *FakeBackend) listUsers(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]service.User, 0, len(f.accounts))
	for _, a := range f.accounts {
		users = append(users, a.user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	c.JSON(http.StatusOK, users)
}

func (f *FakeBackend) listStatuses(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, f.statuses)
}

func (f *FakeBackend) listPriorities(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, f.priorities)
}

type projectWire struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
	Members     []int   `json:"members"`
}

func (f *FakeBackend) addProjectLocked(name, code, description string, members []int) service.Project {
	f.nextID++
	now := time.Now().UTC()
	if members == nil {
		members = []int{}
	}
	p := service.Project{
		ID: f.nextID, Name: name, Code: code, Description: description,
		Members: members, CreatedAt: now, UpdatedAt: now,
	}
	f.projects = append(f.projects, p)
	return p
}

func (f *FakeBackend) projectIndexLocked(c *gin.Context) int {
	id, _ := strconv.Atoi(c.Param("id"))
	for i, p := range f.projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (f *FakeBackend) listProjects(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, append([]service.Project{}, f.projects...))
}

func requiredProjectFields(body projectWire) gin.H {
	errs := gin.H{}
	if body.Name == nil || *body.Name == "" {
		errs["name"] = []string{"This field is required."}
	}
	if body.Code == nil || *body.Code == "" {
		errs["code"] = []string{"This field is required."}
	}
	return errs
}

func (f *FakeBackend) createProject(c *gin.Context) {
	var body projectWire
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if errs := requiredProjectFields(body); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errs)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	desc := ""
	if body.Description != nil {
		desc = *body.Description
	}
	c.JSON(http.StatusCreated, f.addProjectLocked(*body.Name, strings.ToUpper(*body.Code), desc, body.Members))
}

func (f *FakeBackend) replaceProject(c *gin.Context) {
	var body projectWire
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if errs := requiredProjectFields(body); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errs)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.projectIndexLocked(c)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	p := &f.projects[i]
	p.Name = *body.Name
	p.Code = strings.ToUpper(*body.Code)
	p.Description = ""
	if body.Description != nil {
		p.Description = *body.Description
	}
	p.Members = body.Members
	if p.Members == nil {
		p.Members = []int{}
	}
	p.UpdatedAt = time.Now().UTC()
	c.JSON(http.StatusOK, *p)
}

func (f *FakeBackend) patchProject(c *gin.Context) {
	var body projectWire
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.projectIndexLocked(c)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	p := &f.projects[i]
	if body.Name != nil {
		p.Name = *body.Name
	}
	if body.Code != nil {
		p.Code = strings.ToUpper(*body.Code)
	}
	if body.Description != nil {
		p.Description = *body.Description
	}
	if body.Members != nil {
		p.Members = body.Members
	}
	p.UpdatedAt = time.Now().UTC()
	c.JSON(http.StatusOK, *p)
}

func (f *FakeBackend) deleteProject(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.projectIndexLocked(c)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	id := f.projects[i].ID
	f.projects = append(f.projects[:i], f.projects[i+1:]...)
	kept := f.tasks[:0]
	for _, t := range f.tasks {
		if t.Project != id {
			kept = append(kept, t)
		}
	}
	f.tasks = kept
	c.Status(http.StatusNoContent)
}

type taskWire struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Project     int        `json:"project"`
	Status      int        `json:"status"`
	Priority    int        `json:"priority"`
	Assignee    *int       `json:"assignee"`
	DueDate     *time.Time `json:"due_date"`
}

func (f *FakeBackend) addTaskLocked(body taskWire, creator string) (service.Task, gin.H) {
	var project *service.Project
	for i := range f.projects {
		if f.projects[i].ID == body.Project {
			project = &f.projects[i]
		}
	}
	if project == nil {
		return service.Task{}, gin.H{"project": []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", body.Project)}}
	}
	if body.Title == "" {
		return service.Task{}, gin.H{"title": []string{"This field is required."}}
	}

	f.nextID++
	f.issueSeq[project.ID]++
	now := time.Now().UTC()
	t := service.Task{
		ID:          f.nextID,
		IssueID:     fmt.Sprintf("%s-%d", project.Code, f.issueSeq[project.ID]),
		Title:       body.Title,
		Description: body.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     body.DueDate,
		Creator:     creator,
		Assignee:    body.Assignee,
		Project:     project.ID,
		Status:      body.Status,
		Priority:    body.Priority,
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *FakeBackend) taskIndexLocked(c *gin.Context) int {
	key := c.Param("key")
	byIssue := c.Query("by_issue_id") != ""
	for i, t := range f.tasks {
		if byIssue && t.IssueID == key {
			return i
		}
		if !byIssue && strconv.Itoa(t.ID) == key {
			return i
		}
	}
	return -1
}

func (f *FakeBackend) listTasks(c *gin.Context) {
	project := c.Query("project")
	status, _ := strconv.Atoi(c.Query("status"))
	notStatus, _ := strconv.Atoi(c.Query("not_status"))

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []service.Task{}
	for _, t := range f.tasks {
		if project != "" && project != service.AllProjects && strconv.Itoa(t.Project) != project {
			continue
		}
		if status != 0 && t.Status != status {
			continue
		}
		if notStatus != 0 && t.Status == notStatus {
			continue
		}
		out = append(out, t)
	}
	c.JSON(http.StatusOK, out)
}

func (f *FakeBackend) createTask(c *gin.Context) {
	var body taskWire
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	creator := ""
	if account := f.userLocked(c); account != nil {
		creator = account.user.Username
	}
	t, errs := f.addTaskLocked(body, creator)
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (f *FakeBackend) patchTask(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.taskIndexLocked(c)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	t := f.tasks[i]
	for field, raw := range body {
		var target any
		switch field {
		case "title":
			target = &t.Title
		case "description":
			target = &t.Description
		case "project":
			target = &t.Project
		case "status":
			target = &t.Status
		case "priority":
			target = &t.Priority
		case "assignee":
			t.Assignee = nil
			target = &t.Assignee
		case "due_date":
			t.DueDate = nil
			target = &t.DueDate
		default:
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{field: []string{err.Error()}})
			return
		}
	}
	if t.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"title": []string{"This field may not be blank."}})
		return
	}
	t.UpdatedAt = time.Now().UTC()
	f.tasks[i] = t
	c.JSON(http.StatusOK, t)
}

func (f *FakeBackend) deleteTask(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.taskIndexLocked(c)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	id := f.tasks[i].ID
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	kept := f.comments[:0]
	for _, cm := range f.comments {
		if cm.Task != id {
			kept = append(kept, cm)
		}
	}
	f.comments = kept
	c.Status(http.StatusNoContent)
}

// resolveTaskLocked finds a task by "task" (id) or "task_issue_id" (alias).
func (f *FakeBackend) resolveTaskLocked(id, issueID string) (service.Task, bool) {
	for _, t := range f.tasks {
		if id != "" && strconv.Itoa(t.ID) == id {
			return t, true
		}
		if issueID != "" && t.IssueID == issueID {
			return t, true
		}
	}
	return service.Task{}, false
}

func (f *FakeBackend) listComments(c *gin.Context) {
	id, issueID := c.Query("task"), c.Query("task_issue_id")

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []service.Comment{}
	if id == "" && issueID == "" {
		out = append(out, f.comments...)
		c.JSON(http.StatusOK, out)
		return
	}
	task, ok := f.resolveTaskLocked(id, issueID)
	if !ok {
		c.JSON(http.StatusOK, out)
		return
	}
	for _, cm := range f.comments {
		if cm.Task == task.ID {
			out = append(out, cm)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (f *FakeBackend) createComment(c *gin.Context) {
	id, issueID := c.PostForm("task"), c.PostForm("task_issue_id")
	text := c.PostForm("text")
	attachment := ""
	if file, err := c.FormFile("attachment"); err == nil {
		attachment = "/media/attachments/" + file.Filename
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.resolveTaskLocked(id, issueID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"task": []string{"Task not found."}})
		return
	}
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"text": []string{"This field may not be blank."}})
		return
	}
	author := ""
	if account := f.userLocked(c); account != nil {
		author = account.user.Username
	}
	f.nextID++
	now := time.Now().UTC()
	cm := service.Comment{
		ID: f.nextID, Task: task.ID, Author: author, Text: text,
		Attachment: attachment, CreatedAt: now, UpdatedAt: now,
	}
	f.comments = append(f.comments, cm)
	c.JSON(http.StatusCreated, cm)
}

func (f *FakeBackend) deleteComment(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cm := range f.comments {
		if cm.ID == id {
			f.comments = append(f.comments[:i], f.comments[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}
