package credential

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrNoAccessToken is returned by TokenSource when the store holds no access token.
var ErrNoAccessToken = errors.New("no access token stored")

type storeTokenSource struct {
	ctx   context.Context
	store Store
}

// TokenSource exposes the stored access token as an oauth2.TokenSource for
// collaborators built on x/oauth2. It never refreshes; refresh belongs to the
// request pipeline, which learns about expiry from a 401.
func TokenSource(ctx context.Context, store Store) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: store}
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.store.Tokens(s.ctx)
	if err != nil {
		return nil, err
	}
	if !t.HasAccess() {
		return nil, ErrNoAccessToken
	}
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
	}, nil
}
