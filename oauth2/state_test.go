package oauth2

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStateStore_SaveAndConsume(t *testing.T) {
	s := NewMemoryStateStore(time.Minute)
	record := StateRecord{State: "abc", PKCEVerifier: "verifier", RedirectURI: "https://app/callback"}
	if err := s.Save(context.Background(), record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Consume(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PKCEVerifier != "verifier" {
		t.Fatalf("got %+v", got)
	}
}

func TestMemoryStateStore_ConsumeIsOneShot(t *testing.T) {
	s := NewMemoryStateStore(time.Minute)
	_ = s.Save(context.Background(), StateRecord{State: "abc"})
	if _, err := s.Consume(context.Background(), "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Consume(context.Background(), "abc"); err == nil {
		t.Fatal("expected second consume of the same state to fail")
	}
}

func TestMemoryStateStore_ExpiredStateRejected(t *testing.T) {
	now := time.Now()
	clock := now
	s := NewMemoryStateStore(time.Millisecond)
	s.now = func() time.Time { return clock }

	_ = s.Save(context.Background(), StateRecord{State: "abc"})
	clock = now.Add(time.Hour)

	if _, err := s.Consume(context.Background(), "abc"); err == nil {
		t.Fatal("expected expired state to be rejected")
	}
}

func TestMemoryStateStore_UnknownStateRejected(t *testing.T) {
	s := NewMemoryStateStore(time.Minute)
	if _, err := s.Consume(context.Background(), "never-saved"); err == nil {
		t.Fatal("expected error for unknown state")
	}
}

func TestPKCE_S256ChallengeIsDeterministic(t *testing.T) {
	verifier, err := GenerateVerifier()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c1 := Challenge(verifier, ChallengeS256)
	c2 := Challenge(verifier, ChallengeS256)
	if c1 != c2 {
		t.Fatal("expected S256 challenge to be deterministic for the same verifier")
	}
	if Challenge(verifier, ChallengePlain) != verifier {
		t.Fatal("expected plain challenge to equal the verifier")
	}
}
