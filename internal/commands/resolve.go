package commands

import (
	"context"
	"strconv"
	"strings"
	"time"

	"tasker/internal/output"
	"tasker/internal/service"
)

func resolveProject(ctx context.Context, env *Env, key string) (service.Project, error) {
	if !env.Stores.Projects.Loaded() {
		if _, err := env.Stores.Projects.Fetch(ctx); err != nil {
			return service.Project{}, err
		}
	}
	p, err := env.Stores.Projects.Resolve(key)
	if err != nil {
		return service.Project{}, usageError{msg: err.Error()}
	}
	return p, nil
}

// defaultProject picks the only project when --project is omitted.
func defaultProject(ctx context.Context, env *Env) (service.Project, error) {
	projects := env.Stores.Projects.Items()
	if !env.Stores.Projects.Loaded() {
		var err error
		if projects, err = env.Stores.Projects.Fetch(ctx); err != nil {
			return service.Project{}, err
		}
	}
	switch len(projects) {
	case 0:
		return service.Project{}, usagef("no projects (run: tasker createproject <code> <name>)")
	case 1:
		return projects[0], nil
	default:
		return service.Project{}, usagef("project required (use --project)")
	}
}

func loadStatuses(ctx context.Context, env *Env) ([]service.Status, error) {
	if statuses := env.Stores.Reference.Statuses(); len(statuses) > 0 {
		return statuses, nil
	}
	return env.Stores.Reference.FetchStatuses(ctx)
}

func loadPriorities(ctx context.Context, env *Env) ([]service.Priority, error) {
	if priorities := env.Stores.Reference.Priorities(); len(priorities) > 0 {
		return priorities, nil
	}
	return env.Stores.Reference.FetchPriorities(ctx)
}

// resolveStatus finds a status by id or name. An empty key picks the first
// status that is not the closed one.
func resolveStatus(ctx context.Context, env *Env, key string) (int, error) {
	statuses, err := loadStatuses(ctx, env)
	if err != nil {
		return 0, err
	}
	key = strings.TrimSpace(key)
	closed := env.Config.Settings.ClosedStatusID
	for _, s := range statuses {
		if key == "" && s.ID != closed {
			return s.ID, nil
		}
		if key != "" && matches(key, s.ID, s.Name) {
			return s.ID, nil
		}
	}
	if key == "" {
		return 0, usagef("no open status defined on the server")
	}
	return 0, usagef("status not found: %s", key)
}

// resolvePriority finds a priority by id or level. An empty key picks the
// first priority.
func resolvePriority(ctx context.Context, env *Env, key string) (int, error) {
	priorities, err := loadPriorities(ctx, env)
	if err != nil {
		return 0, err
	}
	key = strings.TrimSpace(key)
	for _, p := range priorities {
		if key == "" || matches(key, p.ID, p.Level) {
			return p.ID, nil
		}
	}
	if key == "" {
		return 0, usagef("no priority defined on the server")
	}
	return 0, usagef("priority not found: %s", key)
}

// resolveUser finds a user by id, username or email.
func resolveUser(ctx context.Context, env *Env, key string) (int, error) {
	users := env.Stores.Users.Items()
	if len(users) == 0 {
		var err error
		if users, err = env.Stores.Users.Fetch(ctx); err != nil {
			return 0, err
		}
	}
	key = strings.TrimSpace(key)
	for _, u := range users {
		if matches(key, u.ID, u.Username) || strings.EqualFold(key, u.Email) {
			return u.ID, nil
		}
	}
	return 0, usagef("user not found: %s", key)
}

func resolveUsers(ctx context.Context, env *Env, keys []string) ([]int, error) {
	ids := make([]int, 0, len(keys))
	for _, key := range keys {
		id, err := resolveUser(ctx, env, key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func matches(key string, id int, name string) bool {
	return key == strconv.Itoa(id) || strings.EqualFold(key, name)
}

// parseDue accepts a date (2006-01-02, midnight UTC) or an RFC 3339 time.
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(output.DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, usagef("invalid due date: %s (want YYYY-MM-DD)", s)
}

func parseTaskRef(args []string) (service.TaskRef, error) {
	if len(args) == 0 {
		return service.TaskRef{}, usagef("task reference required")
	}
	if len(args) > 1 {
		return service.TaskRef{}, usagef("unexpected argument: %s", args[1])
	}
	ref, err := service.ParseTaskRef(args[0])
	if err != nil {
		return service.TaskRef{}, usageError{msg: err.Error()}
	}
	return ref, nil
}
