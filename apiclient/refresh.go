package apiclient

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/bazrganidrwst/warehouse-client/endpoint"
	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
)

type refreshState int

const (
	stateIdle refreshState = iota
	stateRefreshing
)

// refresher makes sure at most one token refresh is in flight. Requests
// that fail authentication while a refresh runs wait for its outcome and
// are then retried or rejected together.
type refresher struct {
	client *Client

	mu         sync.Mutex
	state      refreshState
	waiters    []chan error
	loggingOut bool
}

func (r *refresher) recover(ctx context.Context, req *Request, sentToken string) (*Response, error) {
	sess := r.client.session()

	r.mu.Lock()
	if r.state == stateRefreshing {
		wait := make(chan error, 1)
		r.waiters = append(r.waiters, wait)
		r.mu.Unlock()
		return r.await(ctx, req, wait)
	}

	// The token changed since this request went out: a refresh already
	// finished, so only the retry is needed.
	if current := sess.Token(); current != "" && current != sentToken {
		r.mu.Unlock()
		return r.client.retry(ctx, req)
	}

	refreshToken := sess.RefreshToken()
	if refreshToken == "" {
		r.mu.Unlock()
		return nil, r.client.expireSession(ctx)
	}
	if r.loggingOut {
		r.mu.Unlock()
		return nil, sessionExpiredError()
	}
	r.state = stateRefreshing
	r.mu.Unlock()

	return r.refreshAndRetry(ctx, req, refreshToken)
}

func (r *refresher) refreshAndRetry(ctx context.Context, req *Request, refreshToken string) (*Response, error) {
	settled := false
	defer func() {
		if !settled {
			r.settle(errs.ErrRefreshFailed)
		}
	}()

	tok, err := r.client.refreshTokens(ctx, refreshToken)
	if err == nil {
		err = r.client.session().UpdateTokens(tok.AccessToken, tok.RefreshToken)
	}
	if err != nil {
		log.Warn().Err(err).Msg("token refresh failed")
		r.client.metrics.Refresh("failure")
		r.client.forceLogout(ctx)
		settled = true
		r.settle(err)
		return nil, sessionExpiredError()
	}

	log.Info().Msg("access token refreshed")
	r.client.metrics.Refresh("success")
	settled = true
	r.settle(nil)
	return r.client.retry(ctx, req)
}

func (r *refresher) await(ctx context.Context, req *Request, wait <-chan error) (*Response, error) {
	select {
	case err := <-wait:
		if err != nil {
			return nil, sessionExpiredError()
		}
		return r.client.retry(ctx, req)
	case <-ctx.Done():
		return nil, &Error{Kind: KindNetwork, Message: MsgRequestCancelled, cause: ctx.Err()}
	}
}

// settle returns to idle and hands the outcome to every waiter in arrival
// order.
func (r *refresher) settle(outcome error) {
	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.state = stateIdle
	r.mu.Unlock()

	for _, w := range waiters {
		w <- outcome
	}
}

func (r *refresher) beginLogout() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loggingOut {
		return false
	}
	r.loggingOut = true
	return true
}

func (r *refresher) endLogout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loggingOut = false
}

// refreshTokens exchanges the refresh token for a new pair. It is not
// cancelled with the request that triggered it since other requests may be
// waiting on the result.
func (c *Client) refreshTokens(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	req := &Request{
		Method: http.MethodPost,
		Path:   endpoint.Refresh,
		Body:   map[string]string{"refresh_token": refreshToken},
	}
	resp, err := c.roundTrip(rctx, req, c.currentToken())
	if err != nil {
		return nil, errs.Wrapf(errs.ErrRefreshFailed, "[Client.refreshTokens] %v", err)
	}
	if resp.Status >= http.StatusBadRequest {
		return nil, errs.Wrapf(errs.ErrRefreshFailed, "[Client.refreshTokens] status %d", resp.Status)
	}

	body := gjson.ParseBytes(resp.Body)
	tok := &oauth2.Token{
		AccessToken:  body.Get("data.token").String(),
		RefreshToken: body.Get("data.refresh_token").String(),
		TokenType:    "Bearer",
	}
	if body.Get("status").String() != StatusSuccess || tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, errs.Wrap(errs.ErrRefreshFailed, "[Client.refreshTokens] response without token pair")
	}
	return tok, nil
}
