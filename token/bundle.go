// Package token holds the Token Bundle model and the Token Manager that
// keeps it fresh, plus the stores that persist it.
package token

import (
	"encoding/json"
	"strings"
	"time"
)

const redactedValue = "[REDACTED]"

// Bundle is the full set of credentials issued by an oauth2 token exchange.
type Bundle struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scopes       []string
	ExpiresAt    time.Time
	Metadata     map[string]any
}

// IsExpired reports whether the bundle's access token has already expired as of now.
func (b Bundle) IsExpired(now time.Time) bool {
	if b.ExpiresAt.IsZero() {
		return false
	}
	return !b.ExpiresAt.After(now)
}

// ExpiringSoon reports whether the access token will expire within window of now.
func (b Bundle) ExpiringSoon(now time.Time, window time.Duration) bool {
	if b.ExpiresAt.IsZero() {
		return false
	}
	return !b.ExpiresAt.After(now.Add(window))
}

// Clone returns a deep copy so callers can't mutate a stored bundle's slices/maps.
func (b Bundle) Clone() Bundle {
	cloned := b
	cloned.Scopes = append([]string(nil), b.Scopes...)
	if b.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(b.Metadata))
		for k, v := range b.Metadata {
			cloned.Metadata[k] = v
		}
	}
	return cloned
}

// redactedBundle is the JSON-serializable view of Bundle with secrets masked.
type redactedBundle struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	TokenType    string         `json:"token_type,omitempty"`
	Scopes       []string       `json:"scopes,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON redacts AccessToken, RefreshToken, and any metadata key that
// looks secret-bearing, so a Bundle is always safe to log or persist in
// diagnostics - never the raw file store, which uses MarshalStorageJSON instead.
func (b Bundle) MarshalJSON() ([]byte, error) {
	view := redactedBundle{
		AccessToken:  redactIfSet(b.AccessToken),
		RefreshToken: redactIfSet(b.RefreshToken),
		TokenType:    b.TokenType,
		Scopes:       b.Scopes,
		Metadata:     redactSensitiveMap(b.Metadata),
	}
	if !b.ExpiresAt.IsZero() {
		view.ExpiresAt = &b.ExpiresAt
	}
	return json.Marshal(view)
}

// MarshalStorageJSON serializes the Bundle with secrets intact, for use only
// by a trusted Store implementation.
func (b Bundle) MarshalStorageJSON() ([]byte, error) {
	view := redactedBundle{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		TokenType:    b.TokenType,
		Scopes:       b.Scopes,
		Metadata:     b.Metadata,
	}
	if !b.ExpiresAt.IsZero() {
		view.ExpiresAt = &b.ExpiresAt
	}
	return json.Marshal(view)
}

// UnmarshalStorageJSON is the inverse of MarshalStorageJSON.
func UnmarshalStorageJSON(data []byte) (Bundle, error) {
	var view redactedBundle
	if err := json.Unmarshal(data, &view); err != nil {
		return Bundle{}, err
	}
	b := Bundle{
		AccessToken:  view.AccessToken,
		RefreshToken: view.RefreshToken,
		TokenType:    view.TokenType,
		Scopes:       view.Scopes,
		Metadata:     view.Metadata,
	}
	if view.ExpiresAt != nil {
		b.ExpiresAt = *view.ExpiresAt
	}
	return b, nil
}

func redactIfSet(value string) string {
	if value == "" {
		return ""
	}
	return redactedValue
}

func redactSensitiveMap(source map[string]any) map[string]any {
	if len(source) == 0 {
		return nil
	}
	out := make(map[string]any, len(source))
	for k, v := range source {
		if shouldRedactKey(k) {
			out[k] = redactedValue
			continue
		}
		out[k] = v
	}
	return out
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, token := range []string{"password", "secret", "token", "authorization", "api_key", "apikey", "access_key", "refresh", "credential", "signature"} {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}
