package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"fuelcoach-go/internal/constants"
	"fuelcoach-go/internal/credential"
	apperrors "fuelcoach-go/internal/errors"
	"fuelcoach-go/internal/events"
	"fuelcoach-go/internal/monitoring"
	log "github.com/sirupsen/logrus"
)

// ErrNoRefreshToken means a refresh was needed but none is stored.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// TokenResponse is what login, register and refresh return.
type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	User         AuthUser `json:"user"`
}

type AuthUser struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

// Refresh exchanges the stored refresh token for a new pair and stores both.
// It makes no network call when no refresh token is stored.
func (c *Client) Refresh(ctx context.Context) error {
	if c.coordinator != nil {
		return c.coordinator.Do(ctx, refreshKey, c.refresh)
	}
	return c.refresh(ctx)
}

func (c *Client) refresh(ctx context.Context) error {
	tokens, err := c.store.Tokens(ctx)
	if err != nil {
		monitoring.RecordRefresh("error")
		return fmt.Errorf("read refresh token: %w", err)
	}
	if !tokens.HasRefresh() {
		monitoring.RecordRefresh("no_token")
		return ErrNoRefreshToken
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": tokens.RefreshToken})
	if err != nil {
		return err
	}
	resp, err := c.exchange(ctx, c.refreshPath, payload, http.StatusOK)
	if err != nil {
		result := "error"
		if apperrors.KindOf(err) != apperrors.KindTransport {
			result = "rejected"
		}
		monitoring.RecordRefresh(result)
		log.WithError(err).Info("token refresh failed")
		return err
	}

	next := credential.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = tokens.RefreshToken
	}
	if err := c.store.SetTokens(ctx, next); err != nil {
		monitoring.RecordRefresh("error")
		return fmt.Errorf("store refreshed tokens: %w", err)
	}
	monitoring.RecordRefresh("success")
	if c.events != nil {
		c.events.Publish(ctx, events.TopicTokensRefreshed, resp.User, nil)
	}
	log.Debug("access token refreshed")
	return nil
}

// exchange posts credentials outside the 401 pipeline: no bearer, no retry, no
// queueing. want pins the one accepted status; 0 accepts any 2xx.
func (c *Client) exchange(ctx context.Context, path string, payload []byte, want int) (*TokenResponse, error) {
	env := envelope{
		method:      http.MethodPost,
		path:        path,
		body:        payload,
		contentType: constants.ContentTypeJSON,
	}
	status, body, err := c.send(ctx, env, "")
	if err != nil && status == 0 {
		return nil, apperrors.MapNetworkError(err)
	}
	if status < 200 || status > 299 || (want != 0 && status != want) {
		return nil, apperrors.MapHTTPError(status, body)
	}
	if err != nil {
		return nil, apperrors.Decode(status, err)
	}
	var resp TokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Decode(status, err)
	}
	if resp.AccessToken == "" {
		return nil, apperrors.Decode(status, errors.New("token response without access_token"))
	}
	return &resp, nil
}
