package apiclient

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
	"time"

	"fuelcoach-go/internal/constants"
	apperrors "fuelcoach-go/internal/errors"
	"fuelcoach-go/internal/logging"
	"fuelcoach-go/internal/monitoring"
	"fuelcoach-go/internal/monitoring/tracing"
	"fuelcoach-go/internal/offline"
	"fuelcoach-go/internal/session"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	// Body is sent as is when it is a string, []byte or json.RawMessage and
	// JSON-encoded otherwise.
	Body   any
	Query  url.Values
	Header http.Header
}

// envelope is a Request after body encoding.
type envelope struct {
	method      string
	path        string
	body        []byte
	contentType string
	header      http.Header
	// queueable is false for replays and uploads.
	queueable bool
	// retried is set on the single post-refresh retry; it never refreshes again.
	retried bool
}

// Do issues req and returns the decoded JSON body, or nil for an empty 2xx body.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	env, err := c.envelope(req)
	if err != nil {
		return nil, err
	}
	env.queueable = true
	return c.run(ctx, env)
}

func (c *Client) envelope(req Request) (envelope, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	body, err := encodeBody(req.Body)
	if err != nil {
		return envelope{}, fmt.Errorf("encode %s %s body: %w", method, req.Path, err)
	}
	env := envelope{
		method:      method,
		path:        withQuery(req.Path, req.Query),
		body:        body,
		contentType: constants.ContentTypeJSON,
		header:      req.Header.Clone(),
	}
	if ct := req.Header.Get("Content-Type"); ct != "" {
		env.contentType = ct
	}
	return env, nil
}

func encodeBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(v)
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}

// run wraps one logical call (including a refresh and retry) in a span and
// records its outcome.
func (c *Client) run(ctx context.Context, env envelope) (json.RawMessage, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "apiclient", "Client.Do",
		trace.WithAttributes(
			attribute.String("http.method", env.method),
			attribute.String("api.path", env.path),
		))
	defer span.End()

	data, status, err := c.execute(ctx, env)

	outcome := logging.ErrorKind(status, err != nil)
	if apperrors.IsQueued(err) {
		outcome = "queued"
	}
	dur := time.Since(start)
	monitoring.RecordAPICall(env.method, outcome, dur)

	span.SetAttributes(attribute.Int("http.status_code", status), attribute.String("api.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	entry := logging.WithRequest(env.method, env.path, log.Fields{
		"status":      status,
		"outcome":     outcome,
		"duration_ms": logging.DurationMS(dur),
	})
	if err != nil {
		entry.WithError(err).Debug("api call failed")
	} else {
		entry.Debug("api call")
	}
	return data, err
}

func (c *Client) execute(ctx context.Context, env envelope) (json.RawMessage, int, error) {
	tokens, err := c.store.Tokens(ctx)
	if err != nil {
		log.WithError(err).Warn("credential store unreadable, sending unauthenticated")
	}

	status, body, err := c.send(ctx, env, tokens.AccessToken)
	switch {
	case err == nil:
	case status == 0:
		return nil, 0, c.transportFailure(ctx, env, err)
	case status >= 200 && status <= 299:
		// The server answered, so the write happened; replaying would duplicate it.
		return nil, status, apperrors.Decode(status, err)
	}

	switch {
	case status == http.StatusUnauthorized:
		reason := session.ReasonRetryRejected
		if !env.retried {
			rerr := c.Refresh(ctx)
			if rerr == nil {
				env.retried = true
				return c.execute(ctx, env)
			}
			if apperrors.IsCanceled(rerr) {
				return nil, 0, apperrors.MapNetworkError(rerr)
			}
			reason = session.ReasonRefreshFailed
			if errors.Is(rerr, ErrNoRefreshToken) {
				reason = session.ReasonNoRefreshToken
			}
		}
		c.invalidate(ctx, reason)
		return nil, status, apperrors.Unauthorized(body)
	case status < 200 || status > 299:
		return nil, status, apperrors.MapHTTPError(status, body)
	}

	data, err := decode(status, body)
	return data, status, err
}

// transportFailure queues mutating requests and returns the error to surface.
// Cancellation is the caller giving up, not the network, so it is never queued.
func (c *Client) transportFailure(ctx context.Context, env envelope, err error) error {
	netErr := apperrors.MapNetworkError(err)
	if ctx.Err() != nil || apperrors.IsCanceled(err) {
		return netErr
	}
	if !env.queueable || c.queue == nil || !offline.IsMutating(env.method) {
		return netErr
	}
	if len(env.body) > 0 && !json.Valid(env.body) {
		logging.WithRequest(env.method, env.path, nil).Warn("non-JSON mutation cannot be queued")
		return netErr
	}
	c.queue.Enqueue(ctx, env.path, env.method, env.body)
	return apperrors.Queued(netErr)
}

// send performs one HTTP exchange and reads the whole body. A zero status
// means no response arrived; a body read failure keeps the status and
// whatever was read.
func (c *Client) send(ctx context.Context, env envelope, bearer string) (int, []byte, error) {
	var rd io.Reader
	if env.body != nil {
		rd = bytes.NewReader(env.body)
	}
	req, err := http.NewRequestWithContext(ctx, env.method, c.baseURL+env.path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range env.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.applyDefaultHeaders(req, env.contentType, bearer)
	tracing.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.cli.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, body, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) applyDefaultHeaders(req *http.Request, contentType, bearer string) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", constants.ContentTypeJSON)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", constants.BearerPrefix+bearer)
	}
	req.Header.Set("User-Agent", c.userAgent)
}

// decode treats an empty body as absent and anything else as JSON.
func decode(status int, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		var probe any
		err := json.Unmarshal(trimmed, &probe)
		return nil, apperrors.Decode(status, err)
	}
	return json.RawMessage(append([]byte(nil), trimmed...)), nil
}

// invalidate ends the session: credentials are cleared and the notifier fires.
func (c *Client) invalidate(ctx context.Context, reason session.Reason) {
	if err := c.store.Clear(ctx); err != nil {
		log.WithError(err).Warn("failed to clear credentials")
	}
	monitoring.RecordSessionInvalidated()
	c.notifier.Notify(ctx, reason)
}
