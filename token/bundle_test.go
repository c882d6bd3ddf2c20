package token

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBundle_IsExpiredAndExpiringSoon(t *testing.T) {
	now := time.Now()
	b := Bundle{ExpiresAt: now.Add(time.Minute)}
	if b.IsExpired(now) {
		t.Fatal("expected not yet expired")
	}
	if !b.ExpiringSoon(now, 2*time.Minute) {
		t.Fatal("expected expiring soon within 2m window")
	}
	if b.ExpiringSoon(now, 10*time.Second) {
		t.Fatal("expected not expiring soon within 10s window")
	}

	expired := Bundle{ExpiresAt: now.Add(-time.Second)}
	if !expired.IsExpired(now) {
		t.Fatal("expected expired bundle")
	}
}

func TestBundle_MarshalJSONRedactsSecrets(t *testing.T) {
	b := Bundle{
		AccessToken:  "secret-access",
		RefreshToken: "secret-refresh",
		TokenType:    "bearer",
		Metadata:     map[string]any{"client_secret": "shh", "scope_hint": "read"},
	}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded["access_token"] != redactedValue {
		t.Fatalf("expected access_token to be redacted, got %v", decoded["access_token"])
	}
	meta := decoded["metadata"].(map[string]any)
	if meta["client_secret"] != redactedValue {
		t.Fatalf("expected client_secret to be redacted, got %v", meta["client_secret"])
	}
	if meta["scope_hint"] != "read" {
		t.Fatalf("expected non-secret metadata to survive, got %v", meta["scope_hint"])
	}
}

func TestBundle_StorageRoundTripPreservesSecrets(t *testing.T) {
	b := Bundle{AccessToken: "abc", RefreshToken: "def", TokenType: "bearer", Scopes: []string{"a", "b"}}
	data, err := b.MarshalStorageJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restored, err := UnmarshalStorageJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored.AccessToken != "abc" || restored.RefreshToken != "def" {
		t.Fatalf("got %+v", restored)
	}
}
