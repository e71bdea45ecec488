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
	Register(&ProjectsCmd{})
	Register(&CreateProjectCmd{})
	Register(&EditProjectCmd{})
	Register(&RmProjectCmd{})
}

// ProjectsCmd implements the projects command.
type ProjectsCmd struct{}

func (c *ProjectsCmd) Name() string      { return "projects" }
func (c *ProjectsCmd) Aliases() []string { return nil }
func (c *ProjectsCmd) Synopsis() string  { return "List projects" }
func (c *ProjectsCmd) Usage() string     { return "tasker projects" }
func (c *ProjectsCmd) NeedsAuth() bool   { return true }

func (c *ProjectsCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ProjectsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	projects, err := env.Stores.Projects.Fetch(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	if len(projects) == 0 && !env.quiet() {
		fmt.Fprintln(out, "no projects found")
	}
	for _, p := range projects {
		output.FormatProject(out, p)
	}
	return exitcode.Success
}

// CreateProjectCmd implements the createproject command.
type CreateProjectCmd struct {
	description string
	members     []string
}

func (c *CreateProjectCmd) Name() string      { return "createproject" }
func (c *CreateProjectCmd) Aliases() []string { return []string{"addproject"} }
func (c *CreateProjectCmd) Synopsis() string  { return "Create a project" }
func (c *CreateProjectCmd) Usage() string {
	return "tasker createproject [--description <text>] [--member <user>]... <code> <name...>"
}
func (c *CreateProjectCmd) NeedsAuth() bool { return true }

func (c *CreateProjectCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.description, "description", "d", "", "")
	fs.StringSliceVarP(&c.members, "member", "m", nil, "")
}

func (c *CreateProjectCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		return usage(errOut, "project code and name required")
	}
	name := strings.Join(args[1:], " ")
	if strings.TrimSpace(name) == "" {
		return usage(errOut, "project name required")
	}

	members, err := resolveUsers(ctx, env, c.members)
	if err != nil {
		return fail(errOut, err)
	}

	in := service.ProjectInput{Name: name, Code: args[0], Description: c.description, Members: members}
	p, err := env.Stores.Projects.Create(ctx, in)
	if err = settle(errOut, err); err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintf(out, "created %s\n", p.Code)
	}
	return exitcode.Success
}

// EditProjectCmd implements the editproject command. Without --replace
// only the given fields are sent; with --replace the whole project is
// rewritten.
type EditProjectCmd struct {
	flags       *pflag.FlagSet
	name        string
	code        string
	description string
	members     []string
	noMembers   bool
	replace     bool
}

func (c *EditProjectCmd) Name() string      { return "editproject" }
func (c *EditProjectCmd) Aliases() []string { return nil }
func (c *EditProjectCmd) Synopsis() string  { return "Change a project" }
func (c *EditProjectCmd) Usage() string {
	return "tasker editproject [--name <name>] [--code <code>] [--description <text>] [--member <user>... | --no-members] [--replace] <project>"
}
func (c *EditProjectCmd) NeedsAuth() bool { return true }

func (c *EditProjectCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.flags = fs
	fs.StringVarP(&c.name, "name", "n", "", "")
	fs.StringVarP(&c.code, "code", "c", "", "")
	fs.StringVarP(&c.description, "description", "d", "", "")
	fs.StringSliceVarP(&c.members, "member", "m", nil, "")
	fs.BoolVar(&c.noMembers, "no-members", false, "")
	fs.BoolVar(&c.replace, "replace", false, "")
}

func (c *EditProjectCmd) changed(name string) bool {
	return c.flags != nil && c.flags.Changed(name)
}

func (c *EditProjectCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "project required")
	}
	if len(c.members) > 0 && c.noMembers {
		return usage(errOut, "cannot use both --member and --no-members")
	}

	current, err := resolveProject(ctx, env, args[0])
	if err != nil {
		return fail(errOut, err)
	}

	var patch service.ProjectPatch
	changes := 0
	if c.changed("name") {
		patch.Name = &c.name
		changes++
	}
	if c.changed("code") {
		patch.Code = &c.code
		changes++
	}
	if c.changed("description") {
		patch.Description = &c.description
		changes++
	}
	switch {
	case c.noMembers:
		patch.Members = []int{}
		changes++
	case len(c.members) > 0:
		if patch.Members, err = resolveUsers(ctx, env, c.members); err != nil {
			return fail(errOut, err)
		}
		changes++
	}
	if changes == 0 {
		return usage(errOut, "nothing to change")
	}

	if c.replace {
		_, err = env.Stores.Projects.Update(ctx, current.ID, replaced(current, patch))
	} else {
		_, err = env.Stores.Projects.Patch(ctx, current.ID, patch)
	}
	if err = settle(errOut, err); err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// replaced applies patch to p and returns the full replacement.
func replaced(p service.Project, patch service.ProjectPatch) service.ProjectInput {
	in := service.ProjectInput{Name: p.Name, Code: p.Code, Description: p.Description, Members: p.Members}
	if patch.Name != nil {
		in.Name = *patch.Name
	}
	if patch.Code != nil {
		in.Code = *patch.Code
	}
	if patch.Description != nil {
		in.Description = *patch.Description
	}
	if patch.Members != nil {
		in.Members = patch.Members
	}
	return in
}

// RmProjectCmd implements the rmproject command.
type RmProjectCmd struct {
	force bool
}

func (c *RmProjectCmd) Name() string      { return "rmproject" }
func (c *RmProjectCmd) Aliases() []string { return nil }
func (c *RmProjectCmd) Synopsis() string  { return "Delete a project and its tasks" }
func (c *RmProjectCmd) Usage() string     { return "tasker rmproject [--force] <project>" }
func (c *RmProjectCmd) NeedsAuth() bool   { return true }

func (c *RmProjectCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.force, "force", "f", false, "")
}

func (c *RmProjectCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "project required")
	}

	p, err := resolveProject(ctx, env, args[0])
	if err != nil {
		return fail(errOut, err)
	}

	if !c.force {
		snap, err := env.Stores.Tasks.Fetch(ctx, strconv.Itoa(p.ID))
		if err != nil {
			return fail(errOut, err)
		}
		if n := len(snap.All); n > 0 {
			return usage(errOut, "project %s has %d tasks (use --force)", p.Code, n)
		}
	}

	if err := settle(errOut, env.Stores.Projects.Delete(ctx, p.ID)); err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
