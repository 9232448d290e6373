// Package transport is the REST client the core talks through. It attaches the
// bearer token, classifies non-2xx responses into failure kinds and fires the
// global 401/5xx/no-response side effects.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"helpdesk/internal/failure"
	"helpdesk/internal/notify"
)

const (
	MsgSessionExpired = "session expired, please log in again"
	MsgServerError    = "internal server error, try again later"
	MsgNoConnection   = "no connection to the server"
)

// TokenSource reads the persisted bearer token. The transport never writes it.
type TokenSource interface {
	Load() (string, bool, error)
}

type Client struct {
	rc     *resty.Client
	tokens TokenSource
	notify notify.Sink
	log    zerolog.Logger

	mu            sync.RWMutex
	onAuthFailure func()
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.rc.SetTimeout(d) }
}

func WithNotifier(n notify.Sink) Option {
	return func(c *Client) { c.notify = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithHTTPClient swaps the underlying *http.Client (tests use httptest clients).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		base := c.rc.BaseURL
		timeout := c.rc.GetClient().Timeout
		c.rc = resty.NewWithClient(hc).SetBaseURL(base)
		if timeout > 0 {
			c.rc.SetTimeout(timeout)
		}
	}
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		rc:     resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")),
		tokens: tokens,
		notify: notify.Nop{},
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.rc.SetHeader("Accept", "application/json")
	c.rc.SetRetryCount(0)
	c.rc.OnBeforeRequest(c.attachToken)
	c.rc.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		c.log.Debug().
			Str("method", r.Request.Method).
			Str("url", r.Request.URL).
			Int("status", r.StatusCode()).
			Dur("took", r.Time()).
			Msg("api response")
		return nil
	})
	return c
}

// OnAuthFailure registers the callback fired on any 401. The session store
// installs its logout here.
func (c *Client) OnAuthFailure(fn func()) {
	c.mu.Lock()
	c.onAuthFailure = fn
	c.mu.Unlock()
}

func (c *Client) BaseURL() string { return c.rc.BaseURL }

func (c *Client) attachToken(_ *resty.Client, r *resty.Request) error {
	if c.tokens == nil {
		return nil
	}
	tok, ok, err := c.tokens.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("token load failed")
		return nil
	}
	if ok {
		r.SetAuthToken(tok)
	}
	return nil
}

type callOpts struct {
	skipAuthHook bool
}

type CallOption func(*callOpts)

// SkipAuthHook keeps a 401 on this call from being treated as an expired
// session (used by the login call, where 401 means bad credentials).
func SkipAuthHook() CallOption {
	return func(o *callOpts) { o.skipAuthHook = true }
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) text() string {
	if e == nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// Do sends one request. body is JSON-encoded when non-nil; out receives the
// decoded 2xx body when non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	var co callOpts
	for _, o := range opts {
		o(&co)
	}
	op := method + " " + path

	req := c.rc.R().SetContext(ctx).SetError(&apiError{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if resp != nil && resp.RawResponse != nil {
			if resp.IsError() {
				return c.classify(op, resp, co)
			}
			// got a 2xx we could not decode
			c.log.Error().Err(err).Str("op", op).Msg("undecodable response")
			return &failure.Error{Kind: failure.ServerFailure, Op: op, Message: "malformed server response", Status: resp.StatusCode(), Err: err}
		}
		if ctx.Err() != nil {
			return &failure.Error{Kind: failure.NetworkFailure, Op: op, Message: "request cancelled", Err: err}
		}
		c.log.Warn().Err(err).Str("op", op).Msg("no response")
		c.notify.Error(MsgNoConnection)
		return &failure.Error{Kind: failure.NetworkFailure, Op: op, Message: "no response from server", Err: err}
	}
	if !resp.IsError() {
		return nil
	}
	return c.classify(op, resp, co)
}

func (c *Client) classify(op string, resp *resty.Response, co callOpts) error {
	status := resp.StatusCode()
	var msg string
	if e, ok := resp.Error().(*apiError); ok {
		msg = e.text()
	}
	fe := &failure.Error{
		Op:      op,
		Status:  status,
		Message: msg,
		Err:     fmt.Errorf("http %d: %s", status, strings.TrimSpace(resp.String())),
	}

	switch {
	case status == http.StatusUnauthorized:
		fe.Kind = failure.AuthenticationFailure
		if !co.skipAuthHook {
			fe.Message = MsgSessionExpired
			c.authFailed()
			c.notify.Error(MsgSessionExpired)
		}
	case status == http.StatusForbidden:
		fe.Kind = failure.AuthorizationDenied
	case status == http.StatusNotFound:
		fe.Kind = failure.NotFound
	case status == http.StatusConflict:
		fe.Kind = failure.Conflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		fe.Kind = failure.ValidationFailure
	case status >= 500:
		fe.Kind = failure.ServerFailure
		c.notify.Error(MsgServerError)
	default:
		fe.Kind = failure.Unknown
	}
	c.log.Debug().Str("op", op).Int("status", status).Str("kind", fe.Kind.String()).Msg("api error")
	return fe
}

func (c *Client) authFailed() {
	c.mu.RLock()
	fn := c.onAuthFailure
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, opts...)
}
