package auth

import (
	"context"

	"golang.org/x/oauth2"

	"tasker/internal/apierr"
	"tasker/internal/rest"
)

// Pipeline sends requests with the session's bearer credential and recovers
// from an expired access token by refreshing once and replaying the request.
type Pipeline struct {
	session   *Session
	doer      Doer
	proactive bool
}

// Send dispatches req. A 401 on an authenticated request triggers at most one
// shared refresh followed by exactly one replay, whose outcome is returned
// as is. If the refresh fails the session has ended and the error matches
// apierr.ErrSessionExpired.
func (p *Pipeline) Send(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	if req.Anonymous {
		return p.doer.Do(ctx, req, nil)
	}

	epoch, token, err := p.session.bearer(req.Op())
	if err != nil {
		return nil, err
	}

	if p.proactive && token != nil && !token.Valid() {
		if err := p.session.refreshOnce(ctx, token.AccessToken); err != nil {
			return nil, err
		}
		if epoch, token, err = p.session.bearer(req.Op()); err != nil {
			return nil, err
		}
	}

	res, err := p.dispatch(ctx, req, epoch, token)
	if err == nil || !apierr.IsUnauthorized(err) {
		return res, err
	}
	if token == nil || token.RefreshToken == "" {
		return nil, err
	}

	if err := p.session.refreshOnce(ctx, token.AccessToken); err != nil {
		return nil, err
	}
	if epoch, token, err = p.session.bearer(req.Op()); err != nil {
		return nil, err
	}
	return p.dispatch(ctx, req, epoch, token)
}

// dispatch sends once and discards the outcome if the session changed
// (logout or re-login) while the request was in flight.
func (p *Pipeline) dispatch(ctx context.Context, req *rest.Request, epoch uint64, token *oauth2.Token) (*rest.Response, error) {
	res, err := p.doer.Do(ctx, req, token)
	if !p.session.current(epoch) {
		return nil, apierr.SessionExpired(req.Op(), errStale)
	}
	return res, err
}
