package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"tasker/internal/auth"
	"tasker/internal/backend/restapi"
	"tasker/internal/commands"
	"tasker/internal/config"
	"tasker/internal/credstore"
	"tasker/internal/rest"
	"tasker/internal/store"
)

// NewLogger returns the command logger: warnings only, everything with
// debug. Output is text on a terminal and JSON otherwise.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// NewEnv builds the production environment: the configured credential
// store, the HTTP client, the session and its pipeline, the REST service
// and the collection stores. Stores are reset whenever the session ends.
func NewEnv(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*commands.Env, error) {
	s := cfg.Settings

	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	creds, err := credstore.Open(ctx, cfg.CredentialOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	client, err := rest.NewClient(rest.Config{
		BaseURL: s.BaseURL,
		Timeout: s.RequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		creds.Close()
		return nil, err
	}

	session, err := auth.New(ctx, auth.Options{
		Store:            creds,
		Doer:             client,
		IdentifierField:  s.Login.IdentifierField,
		SecretField:      s.Login.SecretField,
		RefreshTimeout:   s.RefreshTimeout,
		ProactiveRefresh: s.ProactiveRefresh,
		Logger:           logger,
	})
	if err != nil {
		creds.Close()
		return nil, err
	}

	api := restapi.New(session.Pipeline())
	stores := store.New(api, store.Options{ClosedStatus: s.ClosedStatusID, Logger: logger})
	session.OnChange(func(ev auth.Event) {
		if ev.State == auth.Anonymous {
			stores.Reset()
		}
		if ev.Expired {
			logger.Debug("session expired, cached collections dropped")
		}
	})

	return &commands.Env{
		Config:     cfg,
		Session:    session,
		Service:    api,
		Stores:     stores,
		Logger:     logger,
		Stdin:      os.Stdin,
		ReadSecret: TerminalSecret(os.Stdin, os.Stderr),
		Cleanup: func() {
			if err := creds.Close(); err != nil {
				logger.Warn("failed to close credential store", "error", err)
			}
		},
	}, nil
}

// TerminalSecret reads secrets from in with echo disabled. It returns nil
// when in is not a terminal, so callers fall back to reading a line.
func TerminalSecret(in *os.File, errOut io.Writer) func(prompt string) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func(prompt string) (string, error) {
		fmt.Fprint(errOut, prompt)
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(errOut)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(secret), nil
	}
}
