package token

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/sdklog"
)

// RefreshFunc performs the actual token-endpoint round trip to mint a fresh
// Bundle from a refresh token.
type RefreshFunc func(ctx context.Context, refreshToken string) (Bundle, error)

// Manager keeps one Bundle per key fresh, collapsing concurrent refreshes
// for the same key into a single in-flight call. The in-flight table is an
// xsync.MapOf rather than a mutex-guarded map: many independent keys (one
// per credential/account) with low per-key contention is exactly the shape
// xsync's striped-lock map is built for.
type Manager struct {
	Store       Store
	Refresh     RefreshFunc
	RenewBefore time.Duration
	Now         func() time.Time

	// Logger receives a Debug line on every completed refresh and a Warn on
	// refresh failure. Nil is a safe no-op.
	Logger sdklog.Logger

	inFlight *xsync.MapOf[string, *refreshCall]
}

type refreshCall struct {
	done   chan struct{}
	bundle Bundle
	err    error
}

// NewManager constructs a Manager; RenewBefore defaults to 5 minutes.
func NewManager(store Store, refresh RefreshFunc) *Manager {
	return &Manager{
		Store:       store,
		Refresh:     refresh,
		RenewBefore: 5 * time.Minute,
		Now:         func() time.Time { return time.Now().UTC() },
		inFlight:    xsync.NewMapOf[string, *refreshCall](),
	}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

// Get returns the Bundle for key, refreshing it first if it is expired or
// within RenewBefore of expiring and it carries a refresh token (and Refresh
// is set); otherwise the stored Bundle is returned as is, even if expired.
// Concurrent Get calls for the same key share a single refresh.
func (m *Manager) Get(ctx context.Context, key string) (Bundle, error) {
	if m == nil || m.Store == nil {
		return Bundle{}, sdkerr.New(sdkerr.KindConfiguration, "token manager requires a store")
	}

	bundle, err := m.Store.Load(ctx, key)
	if err != nil {
		return Bundle{}, err
	}

	if !bundle.ExpiringSoon(m.now(), m.RenewBefore) {
		return bundle, nil
	}
	if bundle.RefreshToken == "" || m.Refresh == nil {
		return bundle, nil
	}

	return m.refreshSingleFlight(ctx, key, bundle.RefreshToken)
}

func (m *Manager) refreshSingleFlight(ctx context.Context, key, refreshToken string) (Bundle, error) {
	call := &refreshCall{done: make(chan struct{})}
	actual, loaded := m.inFlight.LoadOrStore(key, call)
	if loaded {
		<-actual.done
		return actual.bundle, actual.err
	}

	bundle, err := m.Refresh(ctx, refreshToken)
	if err == nil {
		err = m.Store.Save(ctx, key, bundle)
	}

	call.bundle, call.err = bundle, err
	close(call.done)
	m.inFlight.Delete(key)

	if m.Logger != nil {
		if err != nil {
			m.Logger.Warn("token refresh failed", "key", key, "error", err.Error())
		} else {
			m.Logger.Debug("token refreshed", "key", key)
		}
	}

	return bundle, err
}
