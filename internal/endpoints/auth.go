package endpoints

import (
	"context"
	"net/http"

	"fuelcoach-go/internal/apiclient"
)

func (a *API) Register(ctx context.Context, email, password string) (*apiclient.TokenResponse, error) {
	return a.c.Register(ctx, email, password)
}

func (a *API) Login(ctx context.Context, email, password string) (*apiclient.TokenResponse, error) {
	return a.c.Login(ctx, email, password)
}

func (a *API) Refresh(ctx context.Context) error {
	return a.c.Refresh(ctx)
}

func (a *API) Logout(ctx context.Context) error {
	return a.c.Logout(ctx)
}

// Me returns the signed-in user.
func (a *API) Me(ctx context.Context) (*apiclient.AuthUser, error) {
	return get[apiclient.AuthUser](ctx, a.c, "/auth/me", nil)
}

// Subscription returns billing status for the signed-in user.
func (a *API) Subscription(ctx context.Context) (*Object, error) {
	return get[Object](ctx, a.c, "/billing/subscription", nil)
}

// IntervalsStatus reports whether an Intervals.icu account is linked.
func (a *API) IntervalsStatus(ctx context.Context) (*Object, error) {
	return get[Object](ctx, a.c, "/intervals/status", nil)
}

// StravaStatus reports whether a Strava account is linked.
func (a *API) StravaStatus(ctx context.Context) (*Object, error) {
	return get[Object](ctx, a.c, "/strava/status", nil)
}

// SyncIntervals pulls recent activities and wellness from Intervals.icu.
func (a *API) SyncIntervals(ctx context.Context) (*Object, error) {
	return send[Object](ctx, a.c, http.MethodPost, "/intervals/sync", nil)
}

// SyncStrava pulls recent activities from Strava.
func (a *API) SyncStrava(ctx context.Context) (*Object, error) {
	return send[Object](ctx, a.c, http.MethodPost, "/strava/sync", nil)
}
