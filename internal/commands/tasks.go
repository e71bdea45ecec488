package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"tasker/internal/exitcode"
	"tasker/internal/output"
	"tasker/internal/service"
)

func init() {
	Register(&ListCmd{})
	Register(&ShowCmd{})
	Register(&AddCmd{})
	Register(&EditCmd{})
	Register(&DoneCmd{})
	Register(&RmCmd{})
}

// ListCmd implements the list command.
// Handles both `tasker` (no args) and `tasker list`.
type ListCmd struct {
	project string
	closed  bool
	all     bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "tasker list [--project <project>] [--closed | --all]" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.project, "project", "p", "", "")
	fs.BoolVar(&c.closed, "closed", false, "")
	fs.BoolVar(&c.all, "all", false, "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usage(errOut, "unexpected argument: %s", args[0])
	}
	if c.closed && c.all {
		return usage(errOut, "cannot use both --closed and --all")
	}

	// Statuses, priorities and projects label the output.
	if err := env.Stores.Init(ctx); err != nil {
		return fail(errOut, err)
	}

	filter := service.AllProjects
	if c.project != "" {
		p, err := resolveProject(ctx, env, c.project)
		if err != nil {
			return fail(errOut, err)
		}
		filter = strconv.Itoa(p.ID)
	}

	snap, err := env.Stores.Tasks.Fetch(ctx, filter)
	if err != nil {
		return fail(errOut, err)
	}
	tasks := snap.Open
	switch {
	case c.closed:
		tasks = snap.Closed
	case c.all:
		tasks = snap.All
	}

	if len(tasks) == 0 {
		if !env.quiet() {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	labels := env.Stores.Reference
	if c.project != "" {
		for _, t := range tasks {
			output.FormatTask(out, t, labels)
		}
		return exitcode.Success
	}

	// One section per project, in project order.
	byProject := make(map[int][]service.Task)
	for _, t := range tasks {
		byProject[t.Project] = append(byProject[t.Project], t)
	}
	for _, p := range env.Stores.Projects.Items() {
		group := byProject[p.ID]
		if len(group) == 0 {
			continue
		}
		output.FormatSectionHeader(out, output.ProjectTitle(p))
		for _, t := range group {
			output.FormatTask(out, t, labels)
		}
		delete(byProject, p.ID)
	}

	// Projects created since the project list was loaded.
	var orphans []service.Task
	for _, t := range tasks {
		if _, ok := byProject[t.Project]; ok {
			orphans = append(orphans, t)
		}
	}
	if len(orphans) > 0 {
		output.FormatSectionHeader(out, "(other projects)")
		for _, t := range orphans {
			output.FormatTask(out, t, labels)
		}
	}
	return exitcode.Success
}

// ShowCmd implements the show command.
type ShowCmd struct{}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Show one task" }
func (c *ShowCmd) Usage() string     { return "tasker show <ref>" }
func (c *ShowCmd) NeedsAuth() bool   { return true }

func (c *ShowCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, err := parseTaskRef(args)
	if err != nil {
		return fail(errOut, err)
	}
	if err := env.Stores.Init(ctx); err != nil {
		return fail(errOut, err)
	}
	snap, err := env.Stores.Tasks.Fetch(ctx, service.AllProjects)
	if err != nil {
		return fail(errOut, err)
	}

	for _, t := range snap.All {
		if (ref.ByIssueID && strings.EqualFold(t.IssueID, ref.Key)) || (!ref.ByIssueID && strconv.Itoa(t.ID) == ref.Key) {
			project := strconv.Itoa(t.Project)
			if p, err := env.Stores.Projects.Resolve(project); err == nil {
				project = output.ProjectTitle(p)
			}
			output.FormatTaskDetail(out, t, env.Stores.Reference, project)
			return exitcode.Success
		}
	}
	return usage(errOut, "task not found: %s", ref)
}

// AddCmd implements the add command.
type AddCmd struct {
	project     string
	status      string
	priority    string
	assignee    string
	due         string
	description string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "tasker add [--project <project>] [--status <status>] [--priority <priority>] [--assignee <user>] [--due <date>] [--description <text>] <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.project, "project", "p", "", "")
	fs.StringVarP(&c.status, "status", "s", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVarP(&c.assignee, "assignee", "a", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVarP(&c.description, "description", "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		return usage(errOut, "title required")
	}

	in, err := c.input(ctx, env, title)
	if err != nil {
		return fail(errOut, err)
	}

	task, err := env.Stores.Tasks.Create(ctx, in)
	if err = settle(errOut, err); err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintf(out, "created %s\n", task.IssueID)
	}
	return exitcode.Success
}

func (c *AddCmd) input(ctx context.Context, env *Env, title string) (service.TaskInput, error) {
	in := service.TaskInput{Title: title, Description: c.description}

	var project service.Project
	var err error
	if c.project != "" {
		project, err = resolveProject(ctx, env, c.project)
	} else {
		project, err = defaultProject(ctx, env)
	}
	if err != nil {
		return in, err
	}
	in.Project = project.ID

	if in.Status, err = resolveStatus(ctx, env, c.status); err != nil {
		return in, err
	}
	if in.Priority, err = resolvePriority(ctx, env, c.priority); err != nil {
		return in, err
	}
	if c.assignee != "" {
		id, err := resolveUser(ctx, env, c.assignee)
		if err != nil {
			return in, err
		}
		in.Assignee = &id
	}
	if c.due != "" {
		due, err := parseDue(c.due)
		if err != nil {
			return in, err
		}
		in.DueDate = &due
	}
	return in, nil
}

// EditCmd implements the edit command.
type EditCmd struct {
	flags       *pflag.FlagSet
	title       string
	description string
	project     string
	status      string
	priority    string
	assignee    string
	unassign    bool
	due         string
	noDue       bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task" }
func (c *EditCmd) Usage() string {
	return "tasker edit [--title <title>] [--description <text>] [--project <project>] [--status <status>] [--priority <priority>] [--assignee <user> | --unassign] [--due <date> | --no-due] <ref>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.flags = fs
	fs.StringVarP(&c.title, "title", "t", "", "")
	fs.StringVarP(&c.description, "description", "d", "", "")
	fs.StringVarP(&c.project, "project", "p", "", "")
	fs.StringVarP(&c.status, "status", "s", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVarP(&c.assignee, "assignee", "a", "", "")
	fs.BoolVar(&c.unassign, "unassign", false, "")
	fs.StringVar(&c.due, "due", "", "")
	fs.BoolVar(&c.noDue, "no-due", false, "")
}

func (c *EditCmd) changed(name string) bool {
	return c.flags != nil && c.flags.Changed(name)
}

func (c *EditCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, err := parseTaskRef(args)
	if err != nil {
		return fail(errOut, err)
	}
	if c.assignee != "" && c.unassign {
		return usage(errOut, "cannot use both --assignee and --unassign")
	}
	if c.due != "" && c.noDue {
		return usage(errOut, "cannot use both --due and --no-due")
	}

	patch, err := c.patch(ctx, env)
	if err != nil {
		return fail(errOut, err)
	}
	if patch.Empty() {
		return usage(errOut, "nothing to change")
	}

	_, err = env.Stores.Tasks.Update(ctx, ref, patch)
	if err = settle(errOut, err); err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

func (c *EditCmd) patch(ctx context.Context, env *Env) (service.TaskPatch, error) {
	patch := service.TaskPatch{Unassign: c.unassign, ClearDueDate: c.noDue}
	if c.changed("title") {
		patch.Title = &c.title
	}
	if c.changed("description") {
		patch.Description = &c.description
	}
	if c.project != "" {
		p, err := resolveProject(ctx, env, c.project)
		if err != nil {
			return patch, err
		}
		patch.Project = &p.ID
	}
	if c.status != "" {
		id, err := resolveStatus(ctx, env, c.status)
		if err != nil {
			return patch, err
		}
		patch.Status = &id
	}
	if c.priority != "" {
		id, err := resolvePriority(ctx, env, c.priority)
		if err != nil {
			return patch, err
		}
		patch.Priority = &id
	}
	if c.assignee != "" {
		id, err := resolveUser(ctx, env, c.assignee)
		if err != nil {
			return patch, err
		}
		patch.Assignee = &id
	}
	if c.due != "" {
		due, err := parseDue(c.due)
		if err != nil {
			return patch, err
		}
		patch.DueDate = &due
	}
	return patch, nil
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark a task closed" }
func (c *DoneCmd) Usage() string     { return "tasker done <ref>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, err := parseTaskRef(args)
	if err != nil {
		return fail(errOut, err)
	}

	_, err = env.Stores.Tasks.Complete(ctx, ref)
	if err = settle(errOut, err); err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "tasker rm <ref>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, err := parseTaskRef(args)
	if err != nil {
		return fail(errOut, err)
	}

	if err := settle(errOut, env.Stores.Tasks.Delete(ctx, ref)); err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
