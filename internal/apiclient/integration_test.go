package apiclient

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"fuelcoach-go/internal/apitest"
	"fuelcoach-go/internal/credential"
	apperrors "fuelcoach-go/internal/errors"
	"fuelcoach-go/internal/events"
	"fuelcoach-go/internal/offline"
	"fuelcoach-go/internal/session"
	"fuelcoach-go/internal/storage"
	"fuelcoach-go/internal/upload"
	"github.com/stretchr/testify/require"
)

type liveHarness struct {
	srv      *apitest.Server
	client   *Client
	store    *credential.KVStore
	queue    *offline.Queue
	notified *int
}

func newLive(t *testing.T, opts ...Option) liveHarness {
	t.Helper()
	srv := apitest.New(t)
	srv.AddUser("runner@example.com", "s3cret-pass")

	store := credential.NewMemoryStore()
	queue := offline.NewQueue(storage.NewMemoryBackend())
	notifier := session.NewNotifier()
	notified := 0
	notifier.SetOnUnauthorized(func(context.Context, session.Reason) { notified++ })

	all := append([]Option{
		WithHTTPClient(srv.Client()),
		WithQueue(queue),
		WithNotifier(notifier),
	}, opts...)
	return liveHarness{
		srv:      srv,
		client:   New(srv.URL(), store, all...),
		store:    store,
		queue:    queue,
		notified: &notified,
	}
}

func TestLogin_StoresTokensAndRefreshRotates(t *testing.T) {
	t.Parallel()
	h := newLive(t)
	hub := events.NewHub()
	refreshed := 0
	hub.Subscribe(events.TopicTokensRefreshed, func(context.Context, events.Event) { refreshed++ })
	h.client.events = hub
	ctx := context.Background()

	resp, err := h.client.Login(ctx, "Runner@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, "runner@example.com", resp.User.Email)

	first, err := h.store.Tokens(ctx)
	require.NoError(t, err)
	require.Equal(t, resp.AccessToken, first.AccessToken)
	require.Equal(t, resp.RefreshToken, first.RefreshToken)

	h.srv.ExpireAccessTokens()
	me, err := DoJSON[AuthUser](ctx, h.client, Request{Path: "/auth/me"})
	require.NoError(t, err)
	require.Equal(t, "runner@example.com", me.Email)

	second, err := h.store.Tokens(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first.AccessToken, second.AccessToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, 1, h.srv.Calls(http.MethodPost, "/auth/refresh"))
	require.Equal(t, 1, refreshed)
	require.Zero(t, *h.notified)
}

func TestRefresh_RotatedTokenCannotBeReused(t *testing.T) {
	t.Parallel()
	h := newLive(t)
	ctx := context.Background()
	_, err := h.client.Login(ctx, "runner@example.com", "s3cret-pass")
	require.NoError(t, err)
	original, err := h.store.Tokens(ctx)
	require.NoError(t, err)

	require.NoError(t, h.client.Refresh(ctx))
	rotated, err := h.store.Tokens(ctx)
	require.NoError(t, err)
	require.NotEqual(t, original.RefreshToken, rotated.RefreshToken)

	require.NoError(t, h.store.SetTokens(ctx, original))
	err = h.client.Refresh(ctx)
	require.True(t, apperrors.IsUnauthorized(err))
	require.Equal(t, 2, h.srv.Calls(http.MethodPost, "/auth/refresh"))
	require.Zero(t, *h.notified)
}

func TestLogin_WrongPasswordIsNotASessionExpiry(t *testing.T) {
	t.Parallel()
	h := newLive(t)

	_, err := h.client.Login(context.Background(), "runner@example.com", "nope")
	require.True(t, apperrors.IsUnauthorized(err))
	require.Equal(t, "Invalid email or password", apperrors.UserMessage(err))
	require.Zero(t, h.srv.Calls(http.MethodPost, "/auth/refresh"))
	require.Zero(t, *h.notified)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()
	h := newLive(t)
	ctx := context.Background()

	_, err := h.client.Register(ctx, "new@example.com", "pw")
	require.NoError(t, err)
	_, err = h.client.Register(ctx, "new@example.com", "pw")
	require.Equal(t, apperrors.KindApplication, apperrors.KindOf(err))
	require.Equal(t, "Email already registered", apperrors.UserMessage(err))
}

func TestLogout_ClearsWithoutNotifying(t *testing.T) {
	t.Parallel()
	h := newLive(t)
	ctx := context.Background()
	_, err := h.client.Login(ctx, "runner@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, h.store.SetPreferences(ctx, credential.Preferences{Locale: "en"}))

	require.NoError(t, h.client.Logout(ctx))
	tokens, err := h.store.Tokens(ctx)
	require.NoError(t, err)
	require.False(t, tokens.HasAccess())
	prefs, err := h.store.Preferences(ctx)
	require.NoError(t, err)
	require.Equal(t, "en", prefs.Locale)
	require.Zero(t, *h.notified)

	_, err = h.client.Do(ctx, Request{Path: "/auth/me"})
	require.True(t, apperrors.IsUnauthorized(err))
	require.Equal(t, 1, *h.notified)
}

func TestRevokedRefreshTokenEndsSession(t *testing.T) {
	t.Parallel()
	h := newLive(t)
	ctx := context.Background()
	_, err := h.client.Login(ctx, "runner@example.com", "s3cret-pass")
	require.NoError(t, err)

	h.srv.ExpireAccessTokens()
	h.srv.RevokeRefreshTokens()
	_, err = h.client.Do(ctx, Request{Path: "/wellness"})
	require.True(t, apperrors.IsUnauthorized(err))
	require.Equal(t, 1, *h.notified)
	require.Equal(t, 1, h.srv.Calls(http.MethodGet, "/wellness"))

	tokens, err := h.store.Tokens(ctx)
	require.NoError(t, err)
	require.Equal(t, credential.Tokens{}, tokens)
}

func TestOfflineMutationsReplayAfterLogin(t *testing.T) {
	t.Parallel()
	h := newLive(t)
	ctx := context.Background()
	_, err := h.client.Login(ctx, "runner@example.com", "s3cret-pass")
	require.NoError(t, err)

	h.srv.SetOffline(true)
	_, err = h.client.Do(ctx, Request{Method: http.MethodPost, Path: "/nutrition/entries", Body: map[string]any{"name": "eggs"}})
	require.True(t, apperrors.IsQueued(err))
	_, err = h.client.Do(ctx, Request{Method: http.MethodDelete, Path: "/nutrition/entries/3"})
	require.True(t, apperrors.IsQueued(err))
	_, err = h.client.Do(ctx, Request{Path: "/nutrition/day"})
	require.True(t, apperrors.IsTransport(err))

	h.srv.SetOffline(false)
	h.srv.ExpireAccessTokens()
	_, err = h.client.Login(ctx, "runner@example.com", "s3cret-pass")
	require.NoError(t, err)

	size, err := h.queue.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, size)

	received := h.srv.Received()
	require.Len(t, received, 2)
	require.Equal(t, "/nutrition/entries", received[0].Path)
	require.JSONEq(t, `{"name":"eggs"}`, string(received[0].Body))
	require.Equal(t, http.MethodDelete, received[1].Method)
}

func TestFlush_StopsAtServerError(t *testing.T) {
	t.Parallel()
	h := newLive(t)
	ctx := context.Background()
	_, err := h.client.Login(ctx, "runner@example.com", "s3cret-pass")
	require.NoError(t, err)

	h.queue.Enqueue(ctx, "/workouts", http.MethodPost, []byte(`{"name":"A"}`))
	h.queue.Enqueue(ctx, "/workouts/9", http.MethodPatch, []byte(`{"name":"B"}`))
	h.queue.Enqueue(ctx, "/workouts/9", http.MethodDelete, nil)
	h.srv.FailNext("/workouts/9", 1)

	n, err := h.client.Flush(ctx)
	require.Equal(t, 1, n)
	require.Equal(t, 503, apperrors.StatusOf(err))

	n, err = h.client.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestUpload_DuplicateIsConflictAndNeverQueued(t *testing.T) {
	t.Parallel()
	h := newLive(t)
	ctx := context.Background()
	_, err := h.client.Login(ctx, "runner@example.com", "s3cret-pass")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ride.fit")
	require.NoError(t, os.WriteFile(path, []byte{0x0E, 0x10, 0x43, 0x08, 0x00, 0xFF, '.', 'F', 'I', 'T'}, 0o600))
	req := UploadRequest{Path: "/workouts/upload-fit", File: upload.Reference{URI: path}}

	data, err := h.client.Upload(ctx, req)
	require.NoError(t, err)
	out, err := Decode[map[string]any](data)
	require.NoError(t, err)
	require.Equal(t, "ride.fit", (*out)["name"])
	require.EqualValues(t, 10, (*out)["size"])

	_, err = h.client.Upload(ctx, req)
	require.True(t, apperrors.IsConflict(err))
	require.Equal(t, "This FIT file was already imported.", apperrors.UserMessage(err))

	h.srv.SetOffline(true)
	_, err = h.client.Upload(ctx, req)
	require.True(t, apperrors.IsTransport(err))
	size, err := h.queue.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestUpload_UnresolvableReference(t *testing.T) {
	t.Parallel()
	h := newLive(t)
	_, err := h.client.Upload(context.Background(), UploadRequest{
		Path: "/photo/analyze",
		File: upload.Reference{URI: "content://media/external/images/1"},
	})
	require.Equal(t, apperrors.KindUpload, apperrors.KindOf(err))
	require.Zero(t, h.srv.Calls(http.MethodPost, "/photo/analyze"))
}
