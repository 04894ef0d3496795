package credential

import (
	"context"

	"fuelcoach-go/internal/constants"
	"golang.org/x/sync/singleflight"
)

// RefreshCoordinator coalesces concurrent refresh operations per key.
type RefreshCoordinator interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// SingleflightCoordinator lets callers that arrive while a refresh is running
// share its result instead of spending the rotated refresh token again.
// The shared call is detached from every caller's cancellation and bounded by
// constants.SharedRefreshTimeout; each caller stops waiting only when its own
// context ends.
type SingleflightCoordinator struct {
	group singleflight.Group
}

func NewSingleflightCoordinator() *SingleflightCoordinator {
	return &SingleflightCoordinator{}
}

func (c *SingleflightCoordinator) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return fn(ctx)
	}
	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.SharedRefreshTimeout)
		defer cancel()
		return nil, fn(shared)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}
