// Package oauth2 implements the authorization-code (+PKCE), client-credentials,
// refresh-token, and device-authorization grants, plus the short-lived state
// store and token introspection/revocation helpers every strategy shares.
package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-sdkcore/sdkerr"
)

const defaultStateTTL = 10 * time.Minute

// StateRecord binds a CSRF state value to the PKCE verifier and redirect
// metadata needed to complete an authorization-code exchange.
type StateRecord struct {
	State        string
	PKCEVerifier string
	RedirectURI  string
	Scopes       []string
	Metadata     map[string]any
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// StateStore issues and one-shot-consumes StateRecords. Consume must remove
// the record atomically with its lookup so a replayed callback never
// succeeds twice.
type StateStore interface {
	Save(ctx context.Context, record StateRecord) error
	Consume(ctx context.Context, state string) (StateRecord, error)
}

// MemoryStateStore is an in-process StateStore backed by an xsync.MapOf
// rather than a mutex-guarded map - every state value is its own
// independent key with no cross-key contention, the shape xsync's
// striped-lock map targets. Suitable for a single-instance client; a
// distributed deployment should back StateStore with shared storage instead.
type MemoryStateStore struct {
	ttl     time.Duration
	now     func() time.Time
	entries *xsync.MapOf[string, StateRecord]
}

// NewMemoryStateStore builds a MemoryStateStore with the given record TTL
// (defaulting to 10 minutes).
func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &MemoryStateStore{
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
		entries: xsync.NewMapOf[string, StateRecord](),
	}
}

func (s *MemoryStateStore) Save(_ context.Context, record StateRecord) error {
	if s == nil {
		return sdkerr.New(sdkerr.KindConfiguration, "oauth2 state store is not configured")
	}
	if record.State == "" {
		return sdkerr.New(sdkerr.KindValidation, "oauth2 state value is required")
	}

	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	s.entries.Store(record.State, cloneStateRecord(record))
	return nil
}

// Consume removes and returns the record for state, failing if it was never
// saved, was already consumed, or has expired.
func (s *MemoryStateStore) Consume(_ context.Context, state string) (StateRecord, error) {
	if s == nil {
		return StateRecord{}, sdkerr.New(sdkerr.KindConfiguration, "oauth2 state store is not configured")
	}
	if state == "" {
		return StateRecord{}, sdkerr.New(sdkerr.KindValidation, "oauth2 state value is required")
	}

	record, ok := s.entries.LoadAndDelete(state)
	if !ok {
		return StateRecord{}, sdkerr.New(sdkerr.KindNotFound, "oauth2 state not found or already consumed")
	}
	if !record.ExpiresAt.IsZero() && s.now().After(record.ExpiresAt) {
		return StateRecord{}, sdkerr.New(sdkerr.KindValidation, "oauth2 state has expired")
	}
	return cloneStateRecord(record), nil
}

func cloneStateRecord(record StateRecord) StateRecord {
	cloned := record
	cloned.Scopes = append([]string(nil), record.Scopes...)
	if record.Metadata == nil {
		cloned.Metadata = map[string]any{}
	} else {
		cloned.Metadata = make(map[string]any, len(record.Metadata))
		for k, v := range record.Metadata {
			cloned.Metadata[k] = v
		}
	}
	return cloned
}

// GenerateState returns a CSRF-grade random state token.
func GenerateState() (string, error) {
	return randomURLSafe(24)
}

func randomURLSafe(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", sdkerr.Wrap(sdkerr.KindConfiguration, "generating random token", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
