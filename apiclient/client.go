// Package apiclient is the single HTTP pipeline every backend call goes
// through. It decorates requests with the session token and locale,
// normalizes failures, refreshes expired access tokens and reacts to
// maintenance responses.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/bazrganidrwst/warehouse-client/internal/config"
	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
	"github.com/bazrganidrwst/warehouse-client/internal/obs"
	"github.com/bazrganidrwst/warehouse-client/notify"
	"github.com/bazrganidrwst/warehouse-client/router"
	"github.com/bazrganidrwst/warehouse-client/storage"
	"github.com/bazrganidrwst/warehouse-client/storage/memstore"
)

const maxBodySize = 10 << 20

// Session is the view of the auth store the pipeline needs.
type Session interface {
	Token() string
	RefreshToken() string
	UpdateTokens(token, refreshToken string) error
	Logout(ctx context.Context) error
	IsLoggedOut() bool
}

// Navigator moves the user to another route without running the guard.
type Navigator interface {
	CurrentPath() string
	Replace(path string)
}

type Client struct {
	baseURL             *url.URL
	httpClient          *http.Client
	timeout             time.Duration
	localStore          storage.Store
	sessionStore        storage.Store
	defaultLocale       string
	notifier            notify.Notifier
	navigator           Navigator
	limiter             *rate.Limiter
	metrics             *obs.ClientMetrics
	maintenanceFallback time.Duration

	authLock sync.RWMutex
	auth     Session

	refresher *refresher
}

var _ Doer = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request, including token refreshes.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithStorage sets the persistent store (locale) and the session store
// (maintenance flag).
func WithStorage(local, session storage.Store) Option {
	return func(c *Client) {
		c.localStore = local
		c.sessionStore = session
	}
}

func WithDefaultLocale(locale string) Option {
	return func(c *Client) { c.defaultLocale = locale }
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigator = n }
}

// WithRateLimit caps the request rate. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithMetrics(m *obs.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithMaintenanceFallback(d time.Duration) Option {
	return func(c *Client) { c.maintenanceFallback = d }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "[apiclient.New] parse base url %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("[apiclient.New] base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:             u,
		timeout:             config.DefaultRequestTimeout,
		defaultLocale:       config.DefaultLocale,
		notifier:            notify.Nop,
		maintenanceFallback: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.localStore == nil {
		c.localStore = memstore.New()
	}
	if c.sessionStore == nil {
		c.sessionStore = memstore.New()
	}
	c.refresher = &refresher{client: c}
	return c, nil
}

// NewFromConfig builds a client from the client configuration. opts are
// applied after the configured values.
func NewFromConfig(cfg config.ClientConfig, opts ...Option) (*Client, error) {
	base := []Option{
		WithTimeout(cfg.GetRequestTimeout()),
		WithDefaultLocale(cfg.GetDefaultLocale()),
		WithRateLimit(cfg.GetRateLimit(), cfg.GetRateBurst()),
		WithMaintenanceFallback(cfg.GetMaintenanceFallback()),
	}
	return New(cfg.GetBaseURL(), append(base, opts...)...)
}

// UseSession binds the auth store. It is separate from New because the
// store itself needs a client.
func (c *Client) UseSession(s Session) {
	c.authLock.Lock()
	defer c.authLock.Unlock()
	c.auth = s
}

func (c *Client) session() Session {
	c.authLock.RLock()
	defer c.authLock.RUnlock()
	return c.auth
}

func (c *Client) currentToken() string {
	if s := c.session(); s != nil {
		return s.Token()
	}
	return ""
}

// Locale is the Accept-Language value sent with every request.
func (c *Client) Locale() string {
	if v, ok := c.localStore.Get(storage.KeyLocale); ok && v != "" {
		return v
	}
	return c.defaultLocale
}

func (c *Client) SetLocale(locale string) error {
	return c.localStore.Set(storage.KeyLocale, locale)
}

// Do sends req and returns the response of a successful call. Failures are
// always *Error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	resp, err := c.execute(ctx, req)
	c.metrics.ObserveRequest(methodOf(req), outcomeOf(err), time.Since(start))
	return resp, err
}

func (c *Client) execute(ctx context.Context, req *Request) (*Response, error) {
	token := c.currentToken()
	resp, err := c.roundTrip(ctx, req, token)
	if err != nil {
		if errs.Is(err, errs.ErrInvalidInput) {
			return nil, err
		}
		if apiErr, ok := AsError(err); ok {
			return nil, apiErr
		}
		return nil, c.transportFailure(ctx, req, err)
	}
	if resp.Status < http.StatusBadRequest {
		return resp, nil
	}
	return c.handleFailure(ctx, req, resp, token)
}

func (c *Client) retry(ctx context.Context, req *Request) (*Response, error) {
	again := req.clone()
	again.retried = true
	return c.execute(ctx, again)
}

func (c *Client) roundTrip(ctx context.Context, req *Request, token string) (*Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			// The deadline leaves no room for a token. Nothing was sent.
			return nil, &Error{Kind: KindNetwork, Message: MsgRateLimited, cause: err}
		}
	}

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.roundTrip] read body")
	}
	return &Response{Status: res.StatusCode, Header: res.Header, Body: body}, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request, token string) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		b, err := encodeBody(req.Body)
		if err != nil {
			return nil, errs.Wrapf(errs.ErrInvalidInput, "[Client.newHTTPRequest] encode body: %v", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, methodOf(req), c.resolve(req.Path, req.Query), body)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrInvalidInput, "[Client.newHTTPRequest] %v", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Language", c.Locale())
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}
	if token != "" && httpReq.Header.Get("Authorization") == "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}
	return httpReq, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	ref, err := url.Parse(path)
	if err != nil {
		ref = &url.URL{Path: path}
	}
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")

	q := ref.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}
	return json.Marshal(body)
}

func (c *Client) transportFailure(ctx context.Context, req *Request, err error) error {
	if ctx.Err() != nil {
		return &Error{Kind: KindNetwork, Message: MsgRequestCancelled, cause: ctx.Err()}
	}
	log.Debug().Err(err).Str("method", methodOf(req)).Str("path", req.Path).Msg("request failed without response")
	if !req.Silent {
		notify.Error(c.notifier, MsgNetwork)
	}
	return &Error{Kind: KindNetwork, Message: MsgNetwork}
}

func (c *Client) handleFailure(ctx context.Context, req *Request, resp *Response, sentToken string) (*Response, error) {
	payload := parseErrorPayload(resp.Body)
	log.Debug().Int("status", resp.Status).Str("path", req.Path).Str("message", payload.message).Msg("request failed")

	if !req.SkipRecovery && isAuthFailure(req.Path, resp.Status, payload.message) {
		return c.recoverAuth(ctx, req, sentToken)
	}
	if resp.Status == http.StatusServiceUnavailable {
		return nil, c.enterMaintenance()
	}

	message := payload.message
	if len(payload.fieldOrder) > 0 {
		message = payload.validationMessage()
	}
	if message == "" {
		message = MsgGeneric
	}
	apiErr := &Error{
		Kind:       kindForStatus(resp.Status, len(payload.fieldOrder) > 0),
		Status:     resp.Status,
		Message:    message,
		Fields:     payload.fields,
		FieldOrder: payload.fieldOrder,
	}
	if !req.Silent && (req.SkipRecovery || !suppressNotification(resp.Status, payload.message)) {
		notify.Error(c.notifier, message)
	}
	return nil, apiErr
}

func (c *Client) recoverAuth(ctx context.Context, req *Request, sentToken string) (*Response, error) {
	if strings.Contains(req.Path, "/refresh") || req.retried {
		return nil, c.expireSession(ctx)
	}
	if c.session() == nil {
		return nil, sessionExpiredError()
	}
	return c.refresher.recover(ctx, req, sentToken)
}

// expireSession ends the session and returns the session expired error.
func (c *Client) expireSession(ctx context.Context) error {
	c.forceLogout(ctx)
	return sessionExpiredError()
}

// forceLogout logs out once and sends the user to the login route. Calls
// while another logout runs, or once the session is gone, do nothing.
func (c *Client) forceLogout(ctx context.Context) {
	sess := c.session()
	if sess == nil || sess.IsLoggedOut() || sess.Token() == "" {
		return
	}
	if !c.refresher.beginLogout() {
		return
	}
	defer c.refresher.endLogout()

	log.Warn().Msg("session cannot be recovered, logging out")
	c.metrics.ForcedLogout()

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	if err := sess.Logout(lctx); err != nil {
		log.Err(err).Msg("logout after auth failure")
	}
	if c.navigator != nil && c.navigator.CurrentPath() != router.RouteLogin {
		c.navigator.Replace(router.RouteLogin)
	}
}

func methodOf(req *Request) string {
	if req.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(req.Method)
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	apiErr, ok := AsError(err)
	if !ok {
		return "invalid"
	}
	switch apiErr.Kind {
	case KindSessionExpired, KindUnauthorized, KindForbidden:
		return "auth"
	case KindMaintenance:
		return "maintenance"
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	}
	return "error"
}
