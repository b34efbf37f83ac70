package session

import (
	"context"
	"testing"
)

func TestStop_DeferredBehindSharedClaimRunsOnLastRelease(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})

	if err := s.ClaimAgent("a", ClaimShared); err != nil {
		t.Fatalf("ClaimAgent(a) = %v", err)
	}
	if err := s.ClaimAgent("b", ClaimShared); err != nil {
		t.Fatalf("ClaimAgent(b) = %v", err)
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() = %v, want nil (deferred)", err)
	}
	s.mu.Lock()
	pending := s.pendingStop
	s.mu.Unlock()
	if !pending {
		t.Fatal("Stop() while a shared claim is active must record a pending stop")
	}

	if err := s.ReleaseAgent(ctx, "a"); err != nil {
		t.Fatalf("ReleaseAgent(a) = %v", err)
	}
	s.mu.Lock()
	stillPending := s.pendingStop
	s.mu.Unlock()
	if !stillPending {
		t.Fatal("pending stop must survive while another shared claim (b) is still held")
	}

	if err := s.ReleaseAgent(ctx, "b"); err != nil {
		t.Fatalf("ReleaseAgent(b) = %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingStop {
		t.Error("releasing the last shared claim must clear the pending stop")
	}
	if s.state != StateUninitialized {
		t.Errorf("state = %v, want StateUninitialized after the deferred stop ran", s.state)
	}
}

func TestStop_NoDeferralWithoutASharedClaim(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingStop {
		t.Error("Stop() with no active shared claim must not set pendingStop")
	}
}
