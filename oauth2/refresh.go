package oauth2

import (
	"context"
	"net/url"

	"github.com/goliatone/go-sdkcore/token"
	"github.com/goliatone/go-sdkcore/transport"
)

// RefreshFlow implements the refresh_token grant. Wrap its Refresh method in
// a token.Manager for single-flight, expiry-aware refreshing.
type RefreshFlow struct {
	Config ClientConfig
	HTTP   *transport.Client
}

// NewRefreshFlow builds a RefreshFlow.
func NewRefreshFlow(cfg ClientConfig, httpClient *transport.Client) *RefreshFlow {
	return &RefreshFlow{Config: cfg, HTTP: httpClient}
}

// Refresh exchanges a refresh token for a new token.Bundle. It matches
// token.RefreshFunc's signature so it can be passed directly to token.NewManager.
func (f *RefreshFlow) Refresh(ctx context.Context, refreshToken string) (token.Bundle, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", f.Config.ClientID)
	if f.Config.ClientSecret != "" {
		form.Set("client_secret", f.Config.ClientSecret)
	}
	bundle, err := exchangeForm(ctx, f.HTTP, f.Config.TokenURL, form)
	if err != nil {
		return token.Bundle{}, err
	}
	if bundle.RefreshToken == "" {
		// Some servers omit refresh_token on renewal, meaning the original stays valid.
		bundle.RefreshToken = refreshToken
	}
	return bundle, nil
}
