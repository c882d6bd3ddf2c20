package credential

import (
	"context"

	"github.com/goliatone/go-sdkcore/token"
)

// OAuth2 adapts a token.Manager into a Provider, so an SDK client written
// against Provider never has to know whether its credential came from a
// static key or an oauth2 token exchange.
type OAuth2 struct {
	Manager *token.Manager
	Key     string
}

// NewOAuth2 builds a Provider backed by manager's bundle for key.
func NewOAuth2(manager *token.Manager, key string) *OAuth2 {
	return &OAuth2{Manager: manager, Key: key}
}

func (p *OAuth2) Get(ctx context.Context) (Credential, error) {
	bundle, err := p.Manager.Get(ctx, p.Key)
	if err != nil {
		return Credential{}, err
	}
	return p.fromBundle(bundle), nil
}

// Refresh forces a Get; token.Manager already decides internally whether the
// cached bundle is fresh enough to skip a real refresh call.
func (p *OAuth2) Refresh(ctx context.Context) (Credential, error) {
	return p.Get(ctx)
}

func (p *OAuth2) fromBundle(bundle token.Bundle) Credential {
	return Credential{
		Value:     bundle.AccessToken,
		ExpiresAt: bundle.ExpiresAt,
		Metadata:  map[string]any{"token_type": bundle.TokenType, "scopes": bundle.Scopes},
	}
}
