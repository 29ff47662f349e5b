// Package api is the HTTP transport for the blog-post REST API.
//
// Transport holds the process-wide bearer credential. The session layer sets
// and clears it; every request issued through the same Transport (auth calls,
// the posts list, post CRUD) carries it. Responses are unwrapped from the
// {"data": ...} envelope and failures are mapped onto the sentinel errors in
// errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/postdesk/internal/common"
	"github.com/dmitrijs2005/postdesk/internal/logging"
	"github.com/google/uuid"
)

// DefaultTimeout bounds every request unless WithTimeout or WithHTTPClient
// says otherwise.
const DefaultTimeout = 10 * time.Second

// Transport issues requests against the API rooted at baseURL.
//
// Contract:
//   - The bearer token is shared by every request issued through the same
//     Transport; SetToken/ClearToken are safe for concurrent use.
//   - Non-2xx responses are returned as *Error, network failures wrap
//     ErrUnavailable and cancellation wraps the context's error.
//   - A 401 on a request that carried a token fires the OnUnauthorized hook
//     before the error is returned.
type Transport struct {
	baseURL    string
	httpClient *http.Client
	log        logging.Logger

	mu             sync.RWMutex
	token          string
	onUnauthorized func(ctx context.Context, token string)
}

// Option configures a Transport in NewTransport.
type Option func(*Transport)

// WithHTTPClient makes the transport send requests through c.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.httpClient = c }
}

// WithTimeout sets the per-request timeout. The configured client is copied
// first, so a client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		c := *t.httpClient
		c.Timeout = d
		t.httpClient = &c
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logging.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// NewTransport builds a transport rooted at baseURL (e.g. http://host/api/v1).
func NewTransport(baseURL string, opts ...Option) *Transport {
	t := &Transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetToken makes every following request carry "Authorization: Bearer token".
func (t *Transport) SetToken(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

// ClearToken removes the authorization header from following requests.
func (t *Transport) ClearToken() {
	t.SetToken("")
}

// Token returns the bearer token currently attached to requests, "" when none.
func (t *Transport) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// Authorization is the header value requests currently carry, "" when none.
func (t *Transport) Authorization() string {
	if tok := t.Token(); tok != "" {
		return "Bearer " + tok
	}
	return ""
}

// OnUnauthorized registers fn to run when a request that carried a token is
// rejected with 401; fn receives the rejected token. Anonymous requests
// (login, register) never trigger it.
func (t *Transport) OnUnauthorized(fn func(ctx context.Context, token string)) {
	t.mu.Lock()
	t.onUnauthorized = fn
	t.mu.Unlock()
}

type requestBody struct {
	reader      io.Reader
	contentType string
}

func jsonBody(payload any) (*requestBody, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &requestBody{reader: bytes.NewReader(data), contentType: "application/json"}, nil
}

func (t *Transport) doJSON(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	body, err := jsonBody(payload)
	if err != nil {
		return err
	}
	return t.do(ctx, method, path, query, body, out)
}

func (t *Transport) do(ctx context.Context, method, path string, query url.Values, body *requestBody, out any) error {
	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		r = body.reader
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}

	requestID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, requestID)

	token := t.Token()
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	started := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return t.mapTransportError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	t.log.Debug(ctx, "api request",
		"request_id", requestID, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(started))

	if resp.StatusCode >= 400 {
		apiErr := decodeError(resp)
		if resp.StatusCode == http.StatusUnauthorized && token != "" {
			t.unauthorized(ctx, token)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("decode %s %s: response has no data", method, path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (t *Transport) unauthorized(ctx context.Context, token string) {
	t.mu.RLock()
	fn := t.onUnauthorized
	t.mu.RUnlock()
	if fn != nil {
		fn(ctx, token)
	}
}

func (t *Transport) mapTransportError(ctx context.Context, method, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s %s: %w", method, path, ctxErr)
	}
	t.log.Warn(ctx, "api unreachable", "method", method, "path", path, "error", err)
	return fmt.Errorf("%s %s: %w", method, path, errors.Join(ErrUnavailable, err))
}

func decodeError(resp *http.Response) *Error {
	var body struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return &Error{Status: resp.StatusCode, Message: body.Message, Fields: body.Errors}
}
