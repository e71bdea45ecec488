// Package commands provides the command interface and implementations.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"tasker/internal/auth"
	"tasker/internal/config"
	"tasker/internal/service"
	"tasker/internal/store"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a logged-in session.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// Standalone is implemented by commands that run without settings or a
// session. Their Env carries only Config and Logger.
type Standalone interface {
	Standalone() bool
}

// Session is the part of auth.Session the commands use.
type Session interface {
	Login(ctx context.Context, identifier, secret string) error
	Logout(ctx context.Context)
	IsAuthenticated() bool
	State() auth.State
	Profile(ctx context.Context) (*service.User, error)
}

// Env is everything a command runs against.
type Env struct {
	Config  *config.Config
	Session Session
	Service service.Service
	Stores  *store.Stores
	Logger  *slog.Logger

	// Stdin is read for interactive prompts.
	Stdin io.Reader

	// ReadSecret prompts for a secret without echo. When nil, secrets are
	// read as a line from Stdin.
	ReadSecret func(prompt string) (string, error)

	// Cleanup releases resources held by the environment.
	Cleanup func()

	lines *bufio.Reader
}

// Close runs Cleanup once.
func (e *Env) Close() {
	if e.Cleanup != nil {
		e.Cleanup()
		e.Cleanup = nil
	}
}

func (e *Env) quiet() bool {
	return e.Config != nil && e.Config.Quiet
}

// readLine reads one line from Stdin without the line ending. EOF yields
// an empty line.
func (e *Env) readLine() (string, error) {
	if e.lines == nil {
		in := e.Stdin
		if in == nil {
			in = strings.NewReader("")
		}
		e.lines = bufio.NewReader(in)
	}
	line, err := e.lines.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (e *Env) prompt(errOut io.Writer, label string) (string, error) {
	fmt.Fprint(errOut, label)
	return e.readLine()
}

func (e *Env) readSecret(errOut io.Writer, label string) (string, error) {
	if e.ReadSecret != nil {
		return e.ReadSecret(label)
	}
	return e.prompt(errOut, label)
}
