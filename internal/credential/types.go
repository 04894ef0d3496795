package credential

import "context"

// Tokens is the bearer credential pair. An empty string means the token is absent.
// There is no client-side expiry: the server's 401 is the only expiry signal.
type Tokens struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// HasAccess reports whether an access token is present.
func (t Tokens) HasAccess() bool { return t.AccessToken != "" }

// HasRefresh reports whether a refresh token is present.
func (t Tokens) HasRefresh() bool { return t.RefreshToken != "" }

// Preferences are per-device display settings. They outlive a session.
type Preferences struct {
	Locale string `json:"locale,omitempty"`
	Theme  string `json:"theme,omitempty"`
}

// Store persists the session credentials.
// Login and refresh call SetTokens, logout and session invalidation call Clear.
type Store interface {
	Tokens(ctx context.Context) (Tokens, error)
	// SetTokens replaces both tokens in a single write.
	SetTokens(ctx context.Context, tokens Tokens) error
	// Clear discards the tokens. Preferences are kept.
	Clear(ctx context.Context) error

	Preferences(ctx context.Context) (Preferences, error)
	SetPreferences(ctx context.Context, prefs Preferences) error
}
