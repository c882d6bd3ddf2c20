package token

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_GetReturnsFreshBundleWithoutRefreshing(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Save(context.Background(), "k1", Bundle{AccessToken: "a", ExpiresAt: time.Now().Add(time.Hour)})

	var refreshed int32
	m := NewManager(store, func(ctx context.Context, refreshToken string) (Bundle, error) {
		atomic.AddInt32(&refreshed, 1)
		return Bundle{}, nil
	})

	b, err := m.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.AccessToken != "a" {
		t.Fatalf("got %q", b.AccessToken)
	}
	if refreshed != 0 {
		t.Fatal("expected no refresh for a fresh bundle")
	}
}

func TestManager_GetRefreshesExpiringBundle(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Save(context.Background(), "k1", Bundle{AccessToken: "old", RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Second)})

	m := NewManager(store, func(ctx context.Context, refreshToken string) (Bundle, error) {
		return Bundle{AccessToken: "new", RefreshToken: refreshToken, ExpiresAt: time.Now().Add(time.Hour)}, nil
	})

	b, err := m.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.AccessToken != "new" {
		t.Fatalf("got %q", b.AccessToken)
	}

	stored, _ := store.Load(context.Background(), "k1")
	if stored.AccessToken != "new" {
		t.Fatalf("expected refreshed bundle to be persisted, got %q", stored.AccessToken)
	}
}

func TestManager_SingleFlightCollapsesConcurrentRefreshes(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Save(context.Background(), "k1", Bundle{AccessToken: "old", RefreshToken: "r1", ExpiresAt: time.Now()})

	var calls int32
	release := make(chan struct{})
	m := NewManager(store, func(ctx context.Context, refreshToken string) (Bundle, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return Bundle{AccessToken: "new", RefreshToken: refreshToken, ExpiresAt: time.Now().Add(time.Hour)}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Get(context.Background(), "k1")
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", calls)
	}
}
