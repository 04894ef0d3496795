package session

import (
	"context"
	"sync"
	"testing"

	"fuelcoach-go/internal/events"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NoHandlerIsNoop(t *testing.T) {
	t.Parallel()
	n := NewNotifier()
	require.NotPanics(t, func() { n.Notify(context.Background(), ReasonRefreshFailed) })

	var nilNotifier *Notifier
	require.NotPanics(t, func() { nilNotifier.Notify(context.Background(), ReasonRefreshFailed) })
}

func TestNotifier_LatestHandlerWins(t *testing.T) {
	t.Parallel()
	n := NewNotifier()
	var first, second []Reason
	n.SetOnUnauthorized(func(_ context.Context, r Reason) { first = append(first, r) })
	n.SetOnUnauthorized(func(_ context.Context, r Reason) { second = append(second, r) })

	n.Notify(context.Background(), ReasonRetryRejected)

	require.Empty(t, first)
	require.Equal(t, []Reason{ReasonRetryRejected}, second)

	n.SetOnUnauthorized(nil)
	n.Notify(context.Background(), ReasonRetryRejected)
	require.Len(t, second, 1)
}

func TestNotifier_HandlerMayReRegister(t *testing.T) {
	t.Parallel()
	n := NewNotifier()
	calls := 0
	n.SetOnUnauthorized(func(context.Context, Reason) {
		calls++
		n.SetOnUnauthorized(nil)
	})
	n.Notify(context.Background(), ReasonRefreshFailed)
	n.Notify(context.Background(), ReasonRefreshFailed)
	require.Equal(t, 1, calls)
}

func TestNotifier_PublishesEvent(t *testing.T) {
	t.Parallel()
	hub := events.NewHub()
	var mu sync.Mutex
	var got []events.Event
	hub.Subscribe(events.TopicSessionInvalidated, func(_ context.Context, e events.Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	n := NewNotifier()
	n.SetEventPublisher(hub)
	n.Notify(context.Background(), ReasonNoRefreshToken)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	require.Equal(t, ReasonNoRefreshToken, got[0].Payload)
}
