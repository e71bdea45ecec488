package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"tasker/internal/exitcode"
	"tasker/internal/output"
	"tasker/internal/service"
)

func init() {
	Register(&CommentsCmd{})
	Register(&CommentCmd{})
	Register(&RmCommentCmd{})
}

// CommentsCmd implements the comments command.
type CommentsCmd struct{}

func (c *CommentsCmd) Name() string      { return "comments" }
func (c *CommentsCmd) Aliases() []string { return nil }
func (c *CommentsCmd) Synopsis() string  { return "List the comments of a task" }
func (c *CommentsCmd) Usage() string     { return "tasker comments <ref>" }
func (c *CommentsCmd) NeedsAuth() bool   { return true }

func (c *CommentsCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *CommentsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, err := parseTaskRef(args)
	if err != nil {
		return fail(errOut, err)
	}

	comments, err := env.Stores.Comments.Fetch(ctx, ref)
	if err != nil {
		return fail(errOut, err)
	}
	if len(comments) == 0 && !env.quiet() {
		fmt.Fprintln(out, "no comments")
	}
	for _, cm := range comments {
		output.FormatComment(out, cm)
	}
	return exitcode.Success
}

// CommentCmd implements the comment command.
type CommentCmd struct {
	attach string
}

func (c *CommentCmd) Name() string      { return "comment" }
func (c *CommentCmd) Aliases() []string { return nil }
func (c *CommentCmd) Synopsis() string  { return "Comment on a task" }
func (c *CommentCmd) Usage() string     { return "tasker comment [--attach <file>] <ref> <text...>" }
func (c *CommentCmd) NeedsAuth() bool   { return true }

func (c *CommentCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.attach, "attach", "", "")
}

func (c *CommentCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return usage(errOut, "task reference required")
	}
	ref, err := parseTaskRef(args[:1])
	if err != nil {
		return fail(errOut, err)
	}
	text := strings.Join(args[1:], " ")
	if strings.TrimSpace(text) == "" {
		return usage(errOut, "comment text required")
	}

	in := service.CommentInput{Task: ref, Text: text}
	if c.attach != "" {
		att, err := readAttachment(c.attach)
		if err != nil {
			return fail(errOut, err)
		}
		in.Attachment = &att
	}

	cm, err := env.Stores.Comments.Create(ctx, in)
	if err = settle(errOut, err); err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintf(out, "created comment #%d\n", cm.ID)
	}
	return exitcode.Success
}

func readAttachment(path string) (service.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.Attachment{}, usagef("cannot read %s: %v", path, err)
	}
	return service.Attachment{Name: filepath.Base(path), Data: data}, nil
}

// RmCommentCmd implements the rmcomment command.
type RmCommentCmd struct {
	task string
}

func (c *RmCommentCmd) Name() string      { return "rmcomment" }
func (c *RmCommentCmd) Aliases() []string { return nil }
func (c *RmCommentCmd) Synopsis() string  { return "Delete a comment" }
func (c *RmCommentCmd) Usage() string     { return "tasker rmcomment [--task <ref>] <comment-id>" }
func (c *RmCommentCmd) NeedsAuth() bool   { return true }

func (c *RmCommentCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.task, "task", "t", "", "")
}

func (c *RmCommentCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "comment id required")
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil || id < 1 {
		return usage(errOut, "invalid comment id: %s", args[0])
	}

	// With --task the owning task is refetched; otherwise only a task
	// already loaded in this process is.
	if c.task != "" {
		ref, perr := parseTaskRef([]string{c.task})
		if perr != nil {
			return fail(errOut, perr)
		}
		err = env.Stores.Comments.DeleteFrom(ctx, ref, id)
	} else {
		err = env.Stores.Comments.Delete(ctx, id)
	}
	if err = settle(errOut, err); err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
