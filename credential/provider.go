// Package credential is the general Credential Provider abstraction every
// SDK client authenticates through: a uniform get/refresh/is-expired surface
// over whatever concrete secret backs a given provider (a static API key, an
// environment variable, or an oauth2 token.Manager).
package credential

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-sdkcore/sdkerr"
)

// Credential is a redact-on-serialize wrapper over a bearer secret, modeled
// after the shared taxonomy's convention of never printing secret material.
type Credential struct {
	Value     string
	ExpiresAt time.Time
	Metadata  map[string]any
}

// IsExpired reports whether this credential has already expired as of now.
// A zero ExpiresAt means the credential never expires (a static API key).
func (c Credential) IsExpired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !c.ExpiresAt.After(now)
}

// String never prints the secret value, so a Credential is safe to pass to
// %v/%s formatting, logging, or error metadata without leaking it.
func (c Credential) String() string {
	if c.Value == "" {
		return "credential(empty)"
	}
	return "credential(redacted)"
}

// GoString backs %#v the same way String backs %v/%s.
func (c Credential) GoString() string {
	return c.String()
}

// MarshalJSON encodes the same redacted text String returns, so JSON output
// never carries the secret value.
func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Provider resolves and refreshes the Credential an SDK client authenticates
// with. Implementations must be safe for concurrent use.
type Provider interface {
	Get(ctx context.Context) (Credential, error)
	Refresh(ctx context.Context) (Credential, error)
}

// Static wraps a secret that never changes (a long-lived API key or
// personal access token). Refresh is a no-op that returns the same value.
type Static struct {
	credential Credential
}

// NewStatic builds a Provider over a fixed, non-expiring secret value.
func NewStatic(value string) *Static {
	return &Static{credential: Credential{Value: value}}
}

func (s *Static) Get(_ context.Context) (Credential, error) {
	if s.credential.Value == "" {
		return Credential{}, sdkerr.New(sdkerr.KindConfiguration, "static credential is empty")
	}
	return s.credential, nil
}

func (s *Static) Refresh(ctx context.Context) (Credential, error) {
	return s.Get(ctx)
}

// Env resolves its secret from an environment variable on every Get, so
// rotating the process environment (or a supervisor restart) is enough to
// rotate the credential without redeploying code.
type Env struct {
	VarName string
}

// NewEnv builds a Provider that reads varName from the environment.
func NewEnv(varName string) *Env {
	return &Env{VarName: varName}
}

func (e *Env) Get(_ context.Context) (Credential, error) {
	value := strings.TrimSpace(os.Getenv(e.VarName))
	if value == "" {
		return Credential{}, sdkerr.New(sdkerr.KindConfiguration, "environment variable is not set").
			WithMetadata(map[string]any{"var_name": e.VarName})
	}
	return Credential{Value: value}, nil
}

func (e *Env) Refresh(ctx context.Context) (Credential, error) {
	return e.Get(ctx)
}
