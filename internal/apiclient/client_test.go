package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"testing/iotest"
	"time"

	"fuelcoach-go/internal/credential"
	apperrors "fuelcoach-go/internal/errors"
	"fuelcoach-go/internal/offline"
	"fuelcoach-go/internal/session"
	"fuelcoach-go/internal/storage"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

// fakeAPI counts calls per path and answers through handle.
type fakeAPI struct {
	mu     sync.Mutex
	calls  map[string]int
	seen   []*http.Request
	bodies []string
	handle func(req *http.Request, body string) (*http.Response, error)
}

func (f *fakeAPI) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[req.URL.Path]++
	f.seen = append(f.seen, req)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	return f.handle(req, body)
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

type harness struct {
	client   *Client
	store    *credential.KVStore
	queue    *offline.Queue
	notifier *session.Notifier
	reasons  *[]session.Reason
}

func newHarness(t *testing.T, rt http.RoundTripper, opts ...Option) harness {
	t.Helper()
	store := credential.NewMemoryStore()
	queue := offline.NewQueue(storage.NewMemoryBackend())
	notifier := session.NewNotifier()
	var mu sync.Mutex
	reasons := []session.Reason{}
	notifier.SetOnUnauthorized(func(_ context.Context, r session.Reason) {
		mu.Lock()
		reasons = append(reasons, r)
		mu.Unlock()
	})
	all := append([]Option{
		WithHTTPClient(&http.Client{Transport: rt}),
		WithQueue(queue),
		WithNotifier(notifier),
	}, opts...)
	return harness{
		client:   New("https://api.test/api/v1", store, all...),
		store:    store,
		queue:    queue,
		notifier: notifier,
		reasons:  &reasons,
	}
}

func (h harness) setTokens(t *testing.T, access, refresh string) {
	t.Helper()
	require.NoError(t, h.store.SetTokens(context.Background(), credential.Tokens{AccessToken: access, RefreshToken: refresh}))
}

func (h harness) tokens(t *testing.T) credential.Tokens {
	t.Helper()
	tok, err := h.store.Tokens(context.Background())
	require.NoError(t, err)
	return tok
}

// rotatingAPI accepts only the current access token and rotates on refresh.
func rotatingAPI(access, refresh *string, next func() (string, string)) *fakeAPI {
	var mu sync.Mutex
	return &fakeAPI{handle: func(req *http.Request, body string) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if req.URL.Path == "/api/v1/auth/refresh" {
			var in struct {
				RefreshToken string `json:"refresh_token"`
			}
			_ = json.Unmarshal([]byte(body), &in)
			if in.RefreshToken != *refresh {
				return respond(401, `{"detail":"Invalid or expired refresh token"}`), nil
			}
			*access, *refresh = next()
			out, _ := json.Marshal(map[string]any{
				"access_token": *access, "refresh_token": *refresh, "token_type": "bearer",
				"expires_in": 1800, "user": map[string]any{"id": 1, "email": "a@b.c"},
			})
			return respond(200, string(out)), nil
		}
		if req.Header.Get("Authorization") != "Bearer "+*access {
			return respond(401, `{"detail":"Could not validate credentials"}`), nil
		}
		return respond(200, `{"ok":true}`), nil
	}}
}

func TestDo_RefreshAndRetryScenario(t *testing.T) {
	t.Parallel()
	access, refresh := "A2-not-yet", "R1"
	api := rotatingAPI(&access, &refresh, func() (string, string) { return "A2", "R2" })
	h := newHarness(t, api)
	h.setTokens(t, "A1", "R1")

	data, err := h.client.Do(context.Background(), Request{Path: "/wellness"})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(data))

	require.Equal(t, credential.Tokens{AccessToken: "A2", RefreshToken: "R2"}, h.tokens(t))
	require.Equal(t, 1, api.count("/api/v1/auth/refresh"))
	require.Equal(t, 2, api.count("/api/v1/wellness"))
	require.Equal(t, "Bearer A1", api.seen[0].Header.Get("Authorization"))
	require.Empty(t, api.seen[1].Header.Get("Authorization"))
	require.Equal(t, "Bearer A2", api.seen[2].Header.Get("Authorization"))
	require.Empty(t, *h.reasons)
}

func TestDo_SecondUnauthorizedDoesNotRefreshAgain(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(req *http.Request, _ string) (*http.Response, error) {
		if req.URL.Path == "/api/v1/auth/refresh" {
			return respond(200, `{"access_token":"A2","refresh_token":"R2"}`), nil
		}
		return respond(401, `{"detail":"Could not validate credentials"}`), nil
	}}
	h := newHarness(t, api)
	h.setTokens(t, "A1", "R1")

	_, err := h.client.Do(context.Background(), Request{Path: "/users/me"})
	require.True(t, apperrors.IsUnauthorized(err))
	require.Equal(t, 401, apperrors.StatusOf(err))
	require.Equal(t, "Could not validate credentials", apperrors.UserMessage(err))

	require.Equal(t, 1, api.count("/api/v1/auth/refresh"))
	require.Equal(t, 2, api.count("/api/v1/users/me"))
	require.Equal(t, credential.Tokens{}, h.tokens(t))
	require.Equal(t, []session.Reason{session.ReasonRetryRejected}, *h.reasons)
}

func TestDo_RefreshRejectedInvalidatesOnce(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(req *http.Request, _ string) (*http.Response, error) {
		if req.URL.Path == "/api/v1/auth/refresh" {
			return respond(401, `{"detail":"Invalid or expired refresh token"}`), nil
		}
		return respond(401, `{"detail":"expired"}`), nil
	}}
	h := newHarness(t, api)
	h.setTokens(t, "A1", "R1")

	_, err := h.client.Do(context.Background(), Request{Path: "/analytics/overview"})
	require.True(t, apperrors.IsUnauthorized(err))
	require.Equal(t, 1, api.count("/api/v1/analytics/overview"))
	require.Equal(t, []session.Reason{session.ReasonRefreshFailed}, *h.reasons)
	require.Equal(t, credential.Tokens{}, h.tokens(t))
}

func TestDo_NoRefreshTokenSkipsNetwork(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(*http.Request, string) (*http.Response, error) {
		return respond(401, `{"detail":"Not authenticated"}`), nil
	}}
	h := newHarness(t, api)
	h.setTokens(t, "A1", "")

	_, err := h.client.Do(context.Background(), Request{Path: "/nutrition/day"})
	require.True(t, apperrors.IsUnauthorized(err))
	require.Zero(t, api.count("/api/v1/auth/refresh"))
	require.Equal(t, []session.Reason{session.ReasonNoRefreshToken}, *h.reasons)
}

func TestDo_UnregisteredNotifierDoesNotPanic(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(*http.Request, string) (*http.Response, error) {
		return respond(401, ``), nil
	}}
	h := newHarness(t, api)
	h.notifier.SetOnUnauthorized(nil)
	h.setTokens(t, "A1", "R1")

	require.NotPanics(t, func() {
		_, err := h.client.Do(context.Background(), Request{Path: "/chat/threads"})
		require.True(t, apperrors.IsUnauthorized(err))
	})
	require.Empty(t, *h.reasons)
	require.Equal(t, credential.Tokens{}, h.tokens(t))
}

func TestDo_MutationQueuedOnTransportFailure(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(*http.Request, string) (*http.Response, error) {
		return nil, &url.Error{Op: "Post", URL: "https://api.test", Err: syscall.ECONNREFUSED}
	}}
	h := newHarness(t, api)
	h.setTokens(t, "A1", "R1")
	ctx := context.Background()

	_, err := h.client.Do(ctx, Request{Method: "post", Path: "/nutrition/entries", Body: map[string]any{"name": "oats", "calories": 380}})
	require.True(t, apperrors.IsQueued(err))
	require.Equal(t, apperrors.QueuedMessage, apperrors.UserMessage(err))

	_, err = h.client.Do(ctx, Request{Path: "/nutrition/day", Query: url.Values{"date": {"2026-03-01"}}})
	require.True(t, apperrors.IsTransport(err))
	require.False(t, apperrors.IsQueued(err))

	pending, err := h.queue.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "POST", pending[0].Method)
	require.Equal(t, "/nutrition/entries", pending[0].Path)
	require.JSONEq(t, `{"name":"oats","calories":380}`, string(pending[0].Body))
}

func TestDo_CanceledMutationIsNotQueued(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(req *http.Request, _ string) (*http.Response, error) {
		return nil, req.Context().Err()
	}}
	h := newHarness(t, api)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.client.Do(ctx, Request{Method: http.MethodDelete, Path: "/workouts/7"})
	require.True(t, apperrors.IsTransport(err))
	size, err := h.queue.Len(context.Background())
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestDo_EmptyAndInvalidBodies(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(req *http.Request, _ string) (*http.Response, error) {
		switch req.URL.Path {
		case "/api/v1/empty":
			return respond(204, ""), nil
		case "/api/v1/blank":
			return respond(200, " \n"), nil
		default:
			return respond(200, "<html>"), nil
		}
	}}
	h := newHarness(t, api)
	ctx := context.Background()

	data, err := h.client.Do(ctx, Request{Method: http.MethodDelete, Path: "/empty"})
	require.NoError(t, err)
	require.Nil(t, data)

	data, err = h.client.Do(ctx, Request{Path: "/blank"})
	require.NoError(t, err)
	require.Nil(t, data)

	_, err = h.client.Do(ctx, Request{Path: "/html"})
	require.Equal(t, apperrors.KindDecode, apperrors.KindOf(err))
}

func TestDo_BodyReadFailureAfterStatusIsNotQueued(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(req *http.Request, _ string) (*http.Response, error) {
		status := http.StatusCreated
		if req.URL.Path == "/api/v1/wellness" {
			status = http.StatusServiceUnavailable
		}
		return &http.Response{
			StatusCode: status,
			Header:     make(http.Header),
			Body: io.NopCloser(io.MultiReader(
				strings.NewReader(`{"id":`),
				iotest.ErrReader(errors.New("connection reset by peer")),
			)),
		}, nil
	}}
	h := newHarness(t, api)
	h.setTokens(t, "A1", "R1")
	ctx := context.Background()

	_, err := h.client.Do(ctx, Request{Method: http.MethodPost, Path: "/nutrition/entries", Body: `{"kcal":420}`})
	require.Equal(t, apperrors.KindDecode, apperrors.KindOf(err))
	require.Equal(t, http.StatusCreated, apperrors.StatusOf(err))
	require.False(t, apperrors.IsQueued(err))

	_, err = h.client.Do(ctx, Request{Method: http.MethodPost, Path: "/wellness", Body: `{"sleep_hours":7}`})
	require.Equal(t, apperrors.KindApplication, apperrors.KindOf(err))
	require.Equal(t, http.StatusServiceUnavailable, apperrors.StatusOf(err))

	size, err := h.queue.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, size)

	n, err := h.client.Flush(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, api.count("/api/v1/nutrition/entries"))
}

func TestRefresh_OnlyStatusOKIsSuccess(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(*http.Request, string) (*http.Response, error) {
		return respond(http.StatusCreated, `{"access_token":"A2","refresh_token":"R2"}`), nil
	}}
	h := newHarness(t, api)
	h.setTokens(t, "A1", "R1")

	err := h.client.Refresh(context.Background())
	require.Error(t, err)
	require.Equal(t, http.StatusCreated, apperrors.StatusOf(err))
	require.Equal(t, "A1", h.tokens(t).AccessToken)
	require.Equal(t, "R1", h.tokens(t).RefreshToken)
}

func TestDo_ApplicationErrorCarriesDetail(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(*http.Request, string) (*http.Response, error) {
		return respond(422, `{"detail":[{"loc":["body","date"],"msg":"invalid date"}]}`), nil
	}}
	h := newHarness(t, api)

	_, err := h.client.Do(context.Background(), Request{Method: http.MethodPut, Path: "/wellness/2026-13-01", Body: `{}`})
	require.Equal(t, apperrors.KindApplication, apperrors.KindOf(err))
	require.Equal(t, 422, apperrors.StatusOf(err))
	require.Equal(t, "invalid date", apperrors.UserMessage(err))
	require.Empty(t, *h.reasons)
}

func TestDo_RequestShape(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(*http.Request, string) (*http.Response, error) {
		return respond(200, `{}`), nil
	}}
	h := newHarness(t, api)
	h.setTokens(t, "A1", "R1")
	ctx := context.Background()

	_, err := h.client.Do(ctx, Request{Method: http.MethodPost, Path: "/chat/send", Body: `{"message":"hi"}`})
	require.NoError(t, err)
	_, err = h.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/raw",
		Body:   []byte("a=b"),
		Header: http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
	})
	require.NoError(t, err)
	_, err = h.client.Do(ctx, Request{Path: "/workouts", Query: url.Values{"from_date": {"2026-03-01"}, "to_date": {"2026-03-07"}}})
	require.NoError(t, err)

	require.Len(t, api.seen, 3)
	require.Equal(t, `{"message":"hi"}`, api.bodies[0])
	require.Equal(t, "application/json", api.seen[0].Header.Get("Content-Type"))
	require.Equal(t, "Bearer A1", api.seen[0].Header.Get("Authorization"))
	require.Equal(t, "fuelcoach-go", api.seen[0].Header.Get("User-Agent"))

	require.Equal(t, "a=b", api.bodies[1])
	require.Equal(t, "application/x-www-form-urlencoded", api.seen[1].Header.Get("Content-Type"))

	require.Equal(t, http.MethodGet, api.seen[2].Method)
	require.Equal(t, "from_date=2026-03-01&to_date=2026-03-07", api.seen[2].URL.RawQuery)
	require.Equal(t, "application/json", api.seen[2].Header.Get("Content-Type"))
}

func TestDo_CoalescedRefresh(t *testing.T) {
	t.Parallel()
	var refreshes atomic.Int32
	release := make(chan struct{})
	api := &fakeAPI{handle: func(req *http.Request, _ string) (*http.Response, error) {
		if req.URL.Path == "/api/v1/auth/refresh" {
			refreshes.Add(1)
			<-release
			return respond(200, `{"access_token":"A2","refresh_token":"R2"}`), nil
		}
		if req.Header.Get("Authorization") == "Bearer A2" {
			return respond(200, `{"ok":true}`), nil
		}
		return respond(401, `{"detail":"expired"}`), nil
	}}
	h := newHarness(t, api, WithRefreshCoalescing(nil))
	h.setTokens(t, "A1", "R1")

	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.client.Do(context.Background(), Request{Path: "/analytics/sleep"})
		}(i)
	}
	require.Eventually(t, func() bool {
		return api.count("/api/v1/analytics/sleep") == n && refreshes.Load() == 1
	}, 2*time.Second, time.Millisecond)
	// let the remaining 401s reach the coordinator
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, refreshes.Load())
	require.Equal(t, credential.Tokens{AccessToken: "A2", RefreshToken: "R2"}, h.tokens(t))
	require.Empty(t, *h.reasons)
}

func TestFlush_ReplaysThroughPipeline(t *testing.T) {
	t.Parallel()
	var online atomic.Bool
	api := &fakeAPI{handle: func(req *http.Request, _ string) (*http.Response, error) {
		if !online.Load() {
			return nil, errors.New("dial tcp: network is unreachable")
		}
		if req.URL.Path == "/api/v1/workouts/2" {
			return respond(404, `{"detail":"Workout not found"}`), nil
		}
		return respond(200, `{}`), nil
	}}
	h := newHarness(t, api)
	h.setTokens(t, "A1", "R1")
	ctx := context.Background()

	for _, req := range []Request{
		{Method: http.MethodPost, Path: "/workouts", Body: map[string]string{"name": "run"}},
		{Method: http.MethodDelete, Path: "/workouts/2"},
		{Method: http.MethodPatch, Path: "/athlete-profile", Body: map[string]int{"weight_kg": 70}},
	} {
		_, err := h.client.Do(ctx, req)
		require.True(t, apperrors.IsQueued(err))
	}

	online.Store(true)
	n, err := h.client.Flush(ctx)
	require.Error(t, err)
	require.Equal(t, 1, n)

	pending, err := h.queue.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "/workouts/2", pending[0].Path)
	require.Equal(t, "/athlete-profile", pending[1].Path)
}

func TestFlush_TransportFailureDoesNotRequeue(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{handle: func(*http.Request, string) (*http.Response, error) {
		return nil, errors.New("connection reset by peer")
	}}
	h := newHarness(t, api)
	ctx := context.Background()

	_, err := h.client.Do(ctx, Request{Method: http.MethodPost, Path: "/wellness", Body: `{"sleep_hours":7}`})
	require.True(t, apperrors.IsQueued(err))

	n, err := h.client.Flush(ctx)
	require.True(t, apperrors.IsTransport(err))
	require.Zero(t, n)
	size, err := h.queue.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, size)
}
