package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/likesync/internal/shared"
	"golang.org/x/oauth2"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// RefreshToken exchanges the configured refresh token for a fresh access token.
//
// When the service rotates the refresh token, the new one is carried on the returned token.
func (c *SpotifyClient) RefreshToken(ctx context.Context) (*oauth2.Token, error) {
	if c.refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	req := Request{
		Method: http.MethodPost,
		URL:    c.tokenURL,
		Form: url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {c.refreshToken},
		},
		BasicAuth: &BasicAuth{Username: c.clientID, Password: c.clientSecret},
	}

	var resp tokenResponse
	if err := c.transport.Do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access_token", shared.ErrRefreshFailed)
	}

	token := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		RefreshToken: c.refreshToken,
	}
	if resp.RefreshToken != "" {
		token.RefreshToken = resp.RefreshToken
	}
	if resp.ExpiresIn > 0 {
		token.Expiry = c.transport.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return token, nil
}

// Rotated reports whether token carries a refresh token different from the configured one.
func (c *SpotifyClient) Rotated(token *oauth2.Token) bool {
	return token != nil && token.RefreshToken != "" && token.RefreshToken != c.refreshToken
}
