package credential

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-sdkcore/token"
)

func TestOAuth2Provider_GetReturnsManagerBundle(t *testing.T) {
	store := token.NewMemoryStore()
	_ = store.Save(context.Background(), "acct-1", token.Bundle{
		AccessToken: "managed-token",
		TokenType:   "bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	manager := token.NewManager(store, func(ctx context.Context, refreshToken string) (token.Bundle, error) {
		t.Fatal("refresh should not be called for a fresh bundle")
		return token.Bundle{}, nil
	})

	p := NewOAuth2(manager, "acct-1")
	cred, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.Value != "managed-token" {
		t.Fatalf("got %q", cred.Value)
	}
}
