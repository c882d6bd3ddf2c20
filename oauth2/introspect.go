package oauth2

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/transport"
)

// IntrospectionResult is the RFC 7662 §2.2 token introspection response.
type IntrospectionResult struct {
	Active    bool
	Scope     string
	ClientID  string
	Username  string
	TokenType string
	ExpiresAt int64
}

// Introspect calls the configured introspection endpoint (RFC 7662) for a token.
func Introspect(ctx context.Context, cfg ClientConfig, httpClient *transport.Client, tokenValue, tokenTypeHint string) (IntrospectionResult, error) {
	if cfg.IntrospectURL == "" {
		return IntrospectionResult{}, sdkerr.New(sdkerr.KindConfiguration, "introspection endpoint is not configured")
	}
	form := url.Values{}
	form.Set("token", tokenValue)
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}
	form.Set("client_id", cfg.ClientID)
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}

	res, err := httpClient.Send(ctx, transport.Request{
		Method:  "POST",
		URL:     cfg.IntrospectURL,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    []byte(form.Encode()),
	})
	if err != nil {
		return IntrospectionResult{}, err
	}

	var parsed struct {
		Active    bool   `json:"active"`
		Scope     string `json:"scope"`
		ClientID  string `json:"client_id"`
		Username  string `json:"username"`
		TokenType string `json:"token_type"`
		Exp       int64  `json:"exp"`
	}
	if err := json.Unmarshal(res.Body, &parsed); err != nil {
		return IntrospectionResult{}, sdkerr.Wrap(sdkerr.KindSerialization, "decoding introspection response", err)
	}

	return IntrospectionResult{
		Active:    parsed.Active,
		Scope:     parsed.Scope,
		ClientID:  parsed.ClientID,
		Username:  parsed.Username,
		TokenType: parsed.TokenType,
		ExpiresAt: parsed.Exp,
	}, nil
}

// Revoke calls the configured revocation endpoint (RFC 7009) for a token.
// Per RFC 7009 §2.2, the server is expected to return 200 even for a token
// it doesn't recognize, so any status of 400 or above here is treated as a
// real failure.
func Revoke(ctx context.Context, cfg ClientConfig, httpClient *transport.Client, tokenValue, tokenTypeHint string) error {
	if cfg.RevokeURL == "" {
		return sdkerr.New(sdkerr.KindConfiguration, "revocation endpoint is not configured")
	}
	form := url.Values{}
	form.Set("token", tokenValue)
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}
	form.Set("client_id", cfg.ClientID)
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}

	_, err := httpClient.Send(ctx, transport.Request{
		Method:  "POST",
		URL:     cfg.RevokeURL,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    []byte(form.Encode()),
	})
	return err
}
