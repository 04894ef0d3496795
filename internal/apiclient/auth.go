package apiclient

import (
	"context"
	"encoding/json"
	"fmt"

	"fuelcoach-go/internal/constants"
	"fuelcoach-go/internal/credential"
	log "github.com/sirupsen/logrus"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates, stores the returned pair and replays pending mutations.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	return c.authenticate(ctx, constants.LoginPath, email, password)
}

// Register creates an account and signs in with it.
func (c *Client) Register(ctx context.Context, email, password string) (*TokenResponse, error) {
	return c.authenticate(ctx, constants.RegisterPath, email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*TokenResponse, error) {
	payload, err := json.Marshal(credentialsRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	resp, err := c.exchange(ctx, path, payload, 0)
	if err != nil {
		return nil, err
	}
	if err := c.store.SetTokens(ctx, credential.Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}); err != nil {
		return nil, fmt.Errorf("store tokens: %w", err)
	}
	log.WithField("user_id", resp.User.ID).Info("signed in")

	if n, err := c.Flush(ctx); err != nil {
		log.WithError(err).WithField("replayed", n).Info("offline replay after sign-in stopped early")
	} else if n > 0 {
		log.WithField("replayed", n).Info("offline mutations replayed after sign-in")
	}
	return resp, nil
}

// Logout forgets the stored credentials. The session notifier is not called:
// the user asked for this.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	log.Info("signed out")
	return nil
}
