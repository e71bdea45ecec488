// Package cli parses the command line and runs commands against an
// environment built from the configuration.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"tasker/internal/commands"
	"tasker/internal/config"
	"tasker/internal/exitcode"
)

// EnvFactory builds the environment a command runs against.
// NewEnv is the production factory; tests inject fakes.
type EnvFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*commands.Env, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  EnvFactory
}

// NewDispatcher creates a new dispatcher with the given registry and
// environment factory.
func NewDispatcher(registry *commands.Registry, factory EnvFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	// Flags require a command
	if strings.HasPrefix(args[0], "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", args[0])
		return exitcode.UserError
	}
	return d.dispatch(ctx, args[0], args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves
	fs.Usage = func() {}

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVarP(&quiet, "quiet", "q", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(out, "Usage:\n  %s\n", cmd.Usage())
			return exitcode.Success
		}
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	logger := NewLogger(errOut, debug)
	standalone := false
	if s, ok := cmd.(commands.Standalone); ok {
		standalone = s.Standalone()
	}

	var cfg *config.Config
	var err error
	if standalone {
		cfg, err = config.New(configDir)
	} else {
		cfg, err = config.Load(configDir)
	}
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	env := &commands.Env{Config: cfg, Logger: logger}
	if !standalone {
		env, err = d.factory(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			return exitcode.FromError(err)
		}
		defer env.Close()

		if cmd.NeedsAuth() && !env.Session.IsAuthenticated() {
			fmt.Fprintln(errOut, "error: not logged in (run: tasker login)")
			return exitcode.AuthError
		}
	}

	logger.Debug("running command", "command", cmd.Name(), "config", cfg.Dir)
	return cmd.Run(ctx, env, fs.Args(), out, errOut)
}
