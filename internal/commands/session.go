package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"tasker/internal/exitcode"
	"tasker/internal/output"
)

func init() {
	Register(&LoginCmd{})
	Register(&LogoutCmd{})
	Register(&WhoamiCmd{})
	Register(&AvatarCmd{})
	Register(&StatusCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	passwordFile string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Log in to the tracker" }
func (c *LoginCmd) Usage() string     { return "tasker login [--password-file <path>] [<email>]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.passwordFile, "password-file", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		return usage(errOut, "unexpected argument: %s", args[1])
	}
	if env.Session.IsAuthenticated() {
		if !env.quiet() {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	fields := env.Config.Settings.Login
	var identifier string
	if len(args) == 1 {
		identifier = args[0]
	} else {
		var err error
		if identifier, err = env.prompt(errOut, fieldLabel(fields.IdentifierField)); err != nil {
			return fail(errOut, err)
		}
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return usage(errOut, "%s required", fields.IdentifierField)
	}

	secret, err := c.secret(env, errOut, fieldLabel(fields.SecretField))
	if err != nil {
		return fail(errOut, err)
	}
	if secret == "" {
		return usage(errOut, "%s required", fields.SecretField)
	}

	if err := env.Session.Login(ctx, identifier, secret); err != nil {
		return fail(errOut, err)
	}

	// Login loads the profile in the background; wait for it so a rejected
	// profile ends the session here rather than on the next command.
	user, err := env.Session.Profile(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintf(out, "logged in as %s\n", user.DisplayName())
	}
	return exitcode.Success
}

// secret reads the password from --password-file or prompts for it.
func (c *LoginCmd) secret(env *Env, errOut io.Writer, label string) (string, error) {
	if c.passwordFile != "" && c.passwordFile != "-" {
		data, err := os.ReadFile(c.passwordFile)
		if err != nil {
			return "", usagef("cannot read %s: %v", c.passwordFile, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	return env.readSecret(errOut, label)
}

// fieldLabel turns a login field name into a prompt: "email" -> "Email: ".
func fieldLabel(field string) string {
	label := strings.ReplaceAll(field, "_", " ")
	if label == "" {
		return ": "
	}
	return strings.ToUpper(label[:1]) + label[1:] + ": "
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove stored credentials" }
func (c *LogoutCmd) Usage() string     { return "tasker logout" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if !env.Session.IsAuthenticated() {
		if !env.quiet() {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	env.Session.Logout(ctx)

	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Show the logged-in user" }
func (c *WhoamiCmd) Usage() string     { return "tasker whoami" }
func (c *WhoamiCmd) NeedsAuth() bool   { return true }

func (c *WhoamiCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	user, err := env.Session.Profile(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	output.FormatProfile(out, *user)
	return exitcode.Success
}

// AvatarCmd implements the avatar command.
type AvatarCmd struct{}

func (c *AvatarCmd) Name() string      { return "avatar" }
func (c *AvatarCmd) Aliases() []string { return nil }
func (c *AvatarCmd) Synopsis() string  { return "Upload a new avatar" }
func (c *AvatarCmd) Usage() string     { return "tasker avatar <image-file>" }
func (c *AvatarCmd) NeedsAuth() bool   { return true }

func (c *AvatarCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *AvatarCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usage(errOut, "image file required")
	}
	att, err := readAttachment(args[0])
	if err != nil {
		return fail(errOut, err)
	}

	user, err := env.Service.UpdateAvatar(ctx, att)
	if err != nil {
		return fail(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintln(out, user.AvatarURL)
	}
	return exitcode.Success
}

// StatusCmd implements the status command.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return nil }
func (c *StatusCmd) Synopsis() string  { return "Show session and settings" }
func (c *StatusCmd) Usage() string     { return "tasker status" }
func (c *StatusCmd) NeedsAuth() bool   { return false }

func (c *StatusCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	s := env.Config.Settings
	backend := s.Store.Backend
	if backend == "" {
		backend = "file"
	}
	fmt.Fprintf(out, "session:  %s\n", env.Session.State())
	fmt.Fprintf(out, "server:   %s\n", s.BaseURL)
	fmt.Fprintf(out, "store:    %s\n", backend)
	fmt.Fprintf(out, "config:   %s\n", env.Config.Dir)
	return exitcode.Success
}
