package oauth2

import (
	"context"
	"net/url"
	"strings"

	"github.com/goliatone/go-sdkcore/token"
	"github.com/goliatone/go-sdkcore/transport"
)

// ClientCredentialsFlow implements the machine-to-machine client_credentials grant.
type ClientCredentialsFlow struct {
	Config ClientConfig
	HTTP   *transport.Client
}

// NewClientCredentialsFlow builds a ClientCredentialsFlow.
func NewClientCredentialsFlow(cfg ClientConfig, httpClient *transport.Client) *ClientCredentialsFlow {
	return &ClientCredentialsFlow{Config: cfg, HTTP: httpClient}
}

// Token requests a fresh access token for the configured client, optionally
// narrowing the requested scopes.
func (f *ClientCredentialsFlow) Token(ctx context.Context, scopes []string) (token.Bundle, error) {
	if len(scopes) == 0 {
		scopes = f.Config.Scopes
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", f.Config.ClientID)
	form.Set("client_secret", f.Config.ClientSecret)
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	return exchangeForm(ctx, f.HTTP, f.Config.TokenURL, form)
}
