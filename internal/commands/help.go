package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"tasker/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasker help [<command>]" }
func (c *HelpCmd) NeedsAuth() bool   { return false }
func (c *HelpCmd) Standalone() bool  { return true }

func (c *HelpCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(out, helpText)
		return exitcode.Success
	}

	cmd, ok := DefaultRegistry.Find(args[0])
	if !ok {
		return usage(errOut, "unknown command: %s", args[0])
	}
	fmt.Fprintf(out, "%s\n\nUsage:\n  %s\n", cmd.Synopsis(), cmd.Usage())
	return exitcode.Success
}

const helpText = `Usage:
  tasker                                        List open tasks
  tasker list [--project <project>] [--closed | --all]
  tasker show <ref>
  tasker add [--project <project>] [--status <status>] [--priority <priority>]
             [--assignee <user>] [--due <date>] [--description <text>] <title...>
  tasker edit [--title <title>] [--description <text>] [--project <project>]
              [--status <status>] [--priority <priority>]
              [--assignee <user> | --unassign] [--due <date> | --no-due] <ref>
  tasker done <ref>
  tasker rm <ref>
  tasker projects
  tasker createproject [--description <text>] [--member <user>]... <code> <name...>
  tasker editproject [--name <name>] [--code <code>] [--description <text>]
                     [--member <user>... | --no-members] [--replace] <project>
  tasker rmproject [--force] <project>
  tasker comments <ref>
  tasker comment [--attach <file>] <ref> <text...>
  tasker rmcomment [--task <ref>] <comment-id>
  tasker statuses
  tasker priorities
  tasker users
  tasker login [--password-file <path>] [<email>]
  tasker logout
  tasker whoami
  tasker avatar <image-file>
  tasker status
  tasker help [<command>]
  tasker version

A <ref> is a task id (42) or an issue id (WEB-12).
A <project> is a project id or code.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
