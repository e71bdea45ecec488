package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"tasker/internal/exitcode"
	"tasker/internal/output"
)

func init() {
	Register(&StatusesCmd{})
	Register(&PrioritiesCmd{})
	Register(&UsersCmd{})
}

// StatusesCmd implements the statuses command.
type StatusesCmd struct{}

func (c *StatusesCmd) Name() string      { return "statuses" }
func (c *StatusesCmd) Aliases() []string { return nil }
func (c *StatusesCmd) Synopsis() string  { return "List task statuses" }
func (c *StatusesCmd) Usage() string     { return "tasker statuses" }
func (c *StatusesCmd) NeedsAuth() bool   { return true }

func (c *StatusesCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *StatusesCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	statuses, err := env.Stores.Reference.FetchStatuses(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	for _, s := range statuses {
		output.FormatStatus(out, s)
	}
	return exitcode.Success
}

// PrioritiesCmd implements the priorities command.
type PrioritiesCmd struct{}

func (c *PrioritiesCmd) Name() string      { return "priorities" }
func (c *PrioritiesCmd) Aliases() []string { return nil }
func (c *PrioritiesCmd) Synopsis() string  { return "List task priorities" }
func (c *PrioritiesCmd) Usage() string     { return "tasker priorities" }
func (c *PrioritiesCmd) NeedsAuth() bool   { return true }

func (c *PrioritiesCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *PrioritiesCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	priorities, err := env.Stores.Reference.FetchPriorities(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	for _, p := range priorities {
		output.FormatPriority(out, p)
	}
	return exitcode.Success
}

// UsersCmd implements the users command.
type UsersCmd struct{}

func (c *UsersCmd) Name() string      { return "users" }
func (c *UsersCmd) Aliases() []string { return nil }
func (c *UsersCmd) Synopsis() string  { return "List users" }
func (c *UsersCmd) Usage() string     { return "tasker users" }
func (c *UsersCmd) NeedsAuth() bool   { return true }

func (c *UsersCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *UsersCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	users, err := env.Stores.Users.Fetch(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	for _, u := range users {
		output.FormatUser(out, u)
	}
	return exitcode.Success
}
