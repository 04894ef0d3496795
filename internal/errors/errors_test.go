package errors

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapHTTPErrorExtractsDetail(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		status int
		body   string
		kind   Kind
		detail string
	}{
		{"fastapi string detail", http.StatusBadRequest, `{"detail":"Email already registered"}`, KindApplication, "Email already registered"},
		{"fastapi validation list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","name"],"msg":"field required"}]}`, KindApplication, "field required"},
		{"nested error envelope", http.StatusForbidden, `{"error":{"message":"premium only"}}`, KindApplication, "premium only"},
		{"plain text", http.StatusBadGateway, "upstream down", KindApplication, "upstream down"},
		{"duplicate upload", http.StatusConflict, `{"detail":"This FIT file was already imported."}`, KindConflict, "This FIT file was already imported."},
		{"empty body", http.StatusInternalServerError, "", KindApplication, ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := MapHTTPError(tc.status, []byte(tc.body))
			require.Equal(t, tc.kind, e.Kind)
			require.Equal(t, tc.status, e.HTTPStatus)
			require.Equal(t, tc.detail, e.Detail)
			require.Equal(t, tc.body, string(e.Body))
		})
	}
}

func TestMapHTTPErrorTruncatesLongText(t *testing.T) {
	t.Parallel()
	body := strings.Repeat("x", 500)
	e := MapHTTPError(http.StatusInternalServerError, []byte(body))
	require.True(t, strings.HasSuffix(e.Detail, "..."))
	require.Len(t, e.Detail, 203)
}

func TestUnauthorizedCarriesBody(t *testing.T) {
	t.Parallel()
	e := MapHTTPError(http.StatusUnauthorized, []byte(`{"detail":"Invalid or expired refresh token"}`))
	require.True(t, IsUnauthorized(e))
	require.Equal(t, "Invalid or expired refresh token", e.Detail)
	require.Equal(t, "Invalid or expired refresh token", UserMessage(e))
}

func TestMapNetworkError(t *testing.T) {
	t.Parallel()
	require.Equal(t, "connection_refused", MapNetworkError(fmt.Errorf("dial tcp: connection refused")).Code)
	require.Equal(t, "canceled", MapNetworkError(context.Canceled).Code)
	require.Equal(t, "timeout", MapNetworkError(fmt.Errorf("wrap: %w", context.DeadlineExceeded)).Code)
	require.Equal(t, "dns_error", MapNetworkError(fmt.Errorf("lookup api: no such host")).Code)
	require.True(t, IsTransport(MapNetworkError(fmt.Errorf("boom"))))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	t.Parallel()
	base := fmt.Errorf("dial: connection refused")
	wrapped := fmt.Errorf("create entry: %w", Queued(base))
	require.True(t, IsQueued(wrapped))
	require.ErrorIs(t, wrapped, base)
	require.Equal(t, QueuedMessage, UserMessage(wrapped))
	require.Equal(t, Kind(""), KindOf(base))
	require.Equal(t, 0, StatusOf(base))
}
