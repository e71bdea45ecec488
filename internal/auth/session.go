// Package auth owns the login session and the authenticated request pipeline.
//
// A Session moves between four states:
//
//	Anonymous -> Authenticating -> Authenticated <-> Refreshing
//
// Login and Logout advance the session epoch. Work started under an older
// epoch (a response, a refresh, a profile fetch) never mutates the session
// and is reported as apierr.ErrSessionExpired.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"tasker/internal/apierr"
	"tasker/internal/credstore"
	"tasker/internal/rest"
	"tasker/internal/service"
)

// Endpoints used by the session.
const (
	LoginPath   = "/token/"
	RefreshPath = "/token/refresh/"
	ProfilePath = "/users/me/"
)

// DefaultRefreshTimeout bounds a refresh when Options.RefreshTimeout is zero.
const DefaultRefreshTimeout = 30 * time.Second

// State is the session lifecycle state.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is delivered to OnChange listeners after every transition.
type Event struct {
	State State

	// Expired is set when the session was force-ended by a failed refresh or
	// profile fetch. UI callers use it to send the user back to login.
	Expired bool
}

var (
	errStale       = errors.New("session changed while the request was in flight")
	errNotLoggedIn = errors.New("not logged in")
)

// Doer performs one round trip. *rest.Client implements it.
type Doer interface {
	Do(ctx context.Context, req *rest.Request, token *oauth2.Token) (*rest.Response, error)
}

// Options configures a Session.
type Options struct {
	// Store persists the credential pair. Required.
	Store credstore.Store

	// Doer sends requests. Required.
	Doer Doer

	// IdentifierField and SecretField name the login body fields.
	// Defaults are "email" and "password".
	IdentifierField string
	SecretField     string

	// RefreshTimeout bounds a single refresh call.
	RefreshTimeout time.Duration

	// ProactiveRefresh refreshes before dispatch when the access token's
	// JWT expiry has passed, instead of waiting for a 401.
	ProactiveRefresh bool

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Session is the process-lifetime authentication state. It is safe for
// concurrent use.
type Session struct {
	store           credstore.Store
	doer            Doer
	identifierField string
	secretField     string
	refreshTimeout  time.Duration
	logger          *slog.Logger
	pipeline        *Pipeline

	mu        sync.Mutex
	state     State
	pair      credstore.Pair
	epoch     uint64
	ended     bool
	profile   *service.User
	profiling *profileCall
	listeners []func(Event)

	// refreshMu guards inflight, the single-flight refresh latch.
	refreshMu sync.Mutex
	inflight  *refreshCall
}

type refreshCall struct {
	done chan struct{}
	err  error
}

type profileCall struct {
	done chan struct{}
	user *service.User
	err  error
}

// New initializes a session from the persisted credentials. A complete pair
// resumes the session; a partial pair is cleared.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if opts.Doer == nil {
		return nil, fmt.Errorf("request doer is required")
	}

	s := &Session{
		store:           opts.Store,
		doer:            opts.Doer,
		identifierField: opts.IdentifierField,
		secretField:     opts.SecretField,
		refreshTimeout:  opts.RefreshTimeout,
		logger:          opts.Logger,
	}
	if s.identifierField == "" {
		s.identifierField = "email"
	}
	if s.secretField == "" {
		s.secretField = "password"
	}
	if s.refreshTimeout <= 0 {
		s.refreshTimeout = DefaultRefreshTimeout
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.pipeline = &Pipeline{session: s, doer: opts.Doer, proactive: opts.ProactiveRefresh}

	pair, err := opts.Store.Get(ctx)
	switch {
	case errors.Is(err, credstore.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	case pair.Complete():
		s.pair = pair
		s.state = Authenticated
	default:
		s.logger.Warn("discarding incomplete stored credentials")
		if err := opts.Store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear credentials: %w", err)
		}
	}
	return s, nil
}

// Pipeline returns the request pipeline bound to this session.
func (s *Session) Pipeline() *Pipeline {
	return s.pipeline
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsAuthenticated reports whether an access token is present.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair.Access != ""
}

// Expired reports whether the session was force-ended and no login has
// happened since.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// OnChange registers fn to be called after every state transition. fn runs
// on the goroutine that caused the transition, outside any session lock.
func (s *Session) OnChange(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) notify(ev Event) {
	s.mu.Lock()
	listeners := append([]func(Event){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Token implements oauth2.TokenSource.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, apierr.SessionExpired("token", errNotLoggedIn)
	}
	if s.pair.Access == "" {
		return nil, apierr.New(apierr.KindUnauthorized, "token", errNotLoggedIn)
	}
	return s.tokenLocked(), nil
}

func (s *Session) tokenLocked() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.pair.Access,
		RefreshToken: s.pair.Refresh,
		TokenType:    "Bearer",
		Expiry:       credstore.AccessExpiry(s.pair.Access),
	}
}

// bearer returns the token to attach and the epoch it belongs to. The token
// is nil when no credential is held.
func (s *Session) bearer(op string) (uint64, *oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return 0, nil, apierr.SessionExpired(op, errNotLoggedIn)
	}
	if s.pair.Access == "" {
		return s.epoch, nil, nil
	}
	return s.epoch, s.tokenLocked(), nil
}

func (s *Session) current(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login exchanges identifier and secret for a credential pair. On success
// the pair is stored and the profile is fetched in the background. On
// failure the session is Anonymous with nothing stored.
func (s *Session) Login(ctx context.Context, identifier, secret string) error {
	const op = "login"

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.state = Authenticating
	s.pair = credstore.Pair{}
	s.profile = nil
	s.profiling = nil
	s.mu.Unlock()
	s.notify(Event{State: Authenticating})

	req, err := rest.NewJSONRequest(http.MethodPost, LoginPath, map[string]string{
		s.identifierField: identifier,
		s.secretField:     secret,
	})
	if err != nil {
		s.abortLogin(ctx, epoch)
		return err
	}
	req.Anonymous = true

	var body tokenResponse
	res, err := s.doer.Do(ctx, req, nil)
	if err == nil {
		err = res.Decode(&body)
	}
	if err == nil && !(credstore.Pair{Access: body.Access, Refresh: body.Refresh}).Complete() {
		err = apierr.New(apierr.KindTransient, op, errors.New("token response is missing access or refresh token"))
	}
	if err != nil {
		s.abortLogin(ctx, epoch)
		return loginError(op, err)
	}

	pair := credstore.Pair{Access: body.Access, Refresh: body.Refresh}
	call := &profileCall{done: make(chan struct{})}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return apierr.SessionExpired(op, errStale)
	}
	if err := s.store.Set(ctx, pair); err != nil {
		s.mu.Unlock()
		s.abortLogin(ctx, epoch)
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	s.pair = pair
	s.state = Authenticated
	s.profiling = call
	s.ended = false
	s.mu.Unlock()

	s.logger.Debug("logged in", "identifier", identifier)
	s.notify(Event{State: Authenticated})

	go s.loadProfile(context.WithoutCancel(ctx), epoch, call)
	return nil
}

func (s *Session) abortLogin(ctx context.Context, epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.state = Anonymous
	s.pair = credstore.Pair{}
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to clear credentials", "error", err)
	}
	s.mu.Unlock()
	s.notify(Event{State: Anonymous})
}

// loginError turns a rejected login (400/401) into an authentication failure.
func loginError(op string, err error) error {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) && (apiErr.Kind == apierr.KindUnauthorized || apiErr.Kind == apierr.KindValidation) {
		return &apierr.Error{
			Kind:   apierr.KindAuthentication,
			Op:     op,
			Status: apiErr.Status,
			Body:   apiErr.Body,
			Err:    err,
		}
	}
	return err
}

// Logout clears the credentials and the cached profile. It never fails;
// storage errors are logged.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.endLocked(ctx, false)
	s.mu.Unlock()
	s.notify(Event{State: Anonymous})
}

// expire force-ends the session if it is still at epoch. It reports whether
// this call ended it.
func (s *Session) expire(ctx context.Context, epoch uint64, cause error) bool {
	s.mu.Lock()
	if s.epoch != epoch || s.ended {
		s.mu.Unlock()
		return false
	}
	s.endLocked(ctx, true)
	s.mu.Unlock()

	s.logger.Warn("session ended", "error", cause)
	s.notify(Event{State: Anonymous, Expired: true})
	return true
}

func (s *Session) endLocked(ctx context.Context, expired bool) {
	s.epoch++
	s.state = Anonymous
	s.pair = credstore.Pair{}
	s.profile = nil
	s.profiling = nil
	s.ended = expired
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to clear credentials", "error", err)
	}
}

// Refresh exchanges the refresh token for a new access token. Concurrent
// callers share one backend call. A failed refresh ends the session and
// returns apierr.ErrSessionExpired.
func (s *Session) Refresh(ctx context.Context) error {
	return s.refreshOnce(ctx, "")
}

// refreshOnce joins the in-flight refresh or starts one. stale is the access
// token a request was rejected with; when the session already holds a
// different token, that request raced an earlier refresh and no new one is
// started.
func (s *Session) refreshOnce(ctx context.Context, stale string) error {
	s.refreshMu.Lock()
	call := s.inflight
	if call == nil {
		if stale != "" {
			s.mu.Lock()
			access := s.pair.Access
			s.mu.Unlock()
			if access != "" && access != stale {
				s.refreshMu.Unlock()
				return nil
			}
		}
		call = &refreshCall{done: make(chan struct{})}
		s.inflight = call
		go s.runRefresh(context.WithoutCancel(ctx), call)
	}
	s.refreshMu.Unlock()

	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) runRefresh(ctx context.Context, call *refreshCall) {
	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	call.err = s.refresh(ctx)

	s.refreshMu.Lock()
	s.inflight = nil
	s.refreshMu.Unlock()
	close(call.done)
}

func (s *Session) refresh(ctx context.Context) error {
	const op = "refresh"

	s.mu.Lock()
	if s.state != Authenticated || s.pair.Refresh == "" {
		ended := s.ended
		s.mu.Unlock()
		if ended {
			return apierr.SessionExpired(op, errNotLoggedIn)
		}
		return apierr.New(apierr.KindUnauthorized, op, errNotLoggedIn)
	}
	epoch := s.epoch
	refreshToken := s.pair.Refresh
	s.state = Refreshing
	s.mu.Unlock()
	s.notify(Event{State: Refreshing})

	req, err := rest.NewJSONRequest(http.MethodPost, RefreshPath, map[string]string{"refresh": refreshToken})
	if err != nil {
		return err
	}
	req.Anonymous = true

	var body tokenResponse
	res, err := s.doer.Do(ctx, req, nil)
	if err == nil {
		err = res.Decode(&body)
	}
	if err == nil && body.Access == "" {
		err = errors.New("refresh response has no access token")
	}
	if err != nil {
		s.expire(ctx, epoch, err)
		return apierr.SessionExpired(op, err)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return apierr.SessionExpired(op, errStale)
	}
	pair := credstore.Pair{Access: body.Access, Refresh: s.pair.Refresh}
	if body.Refresh != "" {
		pair.Refresh = body.Refresh
	}
	if err := s.store.Set(ctx, pair); err != nil {
		s.logger.Warn("failed to persist refreshed credentials", "error", err)
	}
	s.pair = pair
	s.state = Authenticated
	s.mu.Unlock()

	s.logger.Debug("access token refreshed", "rotated", body.Refresh != "")
	s.notify(Event{State: Authenticated})
	return nil
}

// FetchProfile loads the current user through the pipeline and caches it.
// Any failure other than ctx ending ends the session.
func (s *Session) FetchProfile(ctx context.Context) (*service.User, error) {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()
	return s.fetchProfile(ctx, epoch)
}

func (s *Session) fetchProfile(ctx context.Context, epoch uint64) (*service.User, error) {
	const op = "fetch profile"

	var user service.User
	res, err := s.pipeline.Send(ctx, rest.NewRequest(http.MethodGet, ProfilePath, nil))
	if err == nil {
		err = res.Decode(&user)
	}
	if err != nil {
		// The caller gave up; that says nothing about the credentials.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.expire(ctx, epoch, err)
		return nil, apierr.SessionExpired(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil, apierr.SessionExpired(op, errStale)
	}
	s.profile = &user
	out := user
	return &out, nil
}

func (s *Session) loadProfile(ctx context.Context, epoch uint64, call *profileCall) {
	call.user, call.err = s.fetchProfile(ctx, epoch)
	close(call.done)
}

// Profile returns the cached profile. If the post-login fetch is still
// running it waits for it; otherwise it fetches.
func (s *Session) Profile(ctx context.Context) (*service.User, error) {
	s.mu.Lock()
	if s.profile != nil {
		out := *s.profile
		s.mu.Unlock()
		return &out, nil
	}
	call := s.profiling
	s.mu.Unlock()

	if call != nil {
		select {
		case <-call.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if call.err != nil {
			return nil, call.err
		}
		out := *call.user
		return &out, nil
	}
	return s.FetchProfile(ctx)
}
