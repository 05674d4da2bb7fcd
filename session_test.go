package mcp

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMemorySessionManager(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySessionManager()
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	id, err := m.CreateSession(ctx, "2025-06-18")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if ok, _ := m.ValidateSession(ctx, id); !ok {
		t.Fatal("expected session to be valid")
	}
	if v, err := m.ProtocolVersion(ctx, id); err != nil || v != "2025-06-18" {
		t.Errorf("ProtocolVersion = %q, %v", v, err)
	}
	if _, err := m.ProtocolVersion(ctx, "missing"); err == nil {
		t.Error("expected an error for a missing session")
	}

	other, _ := m.CreateSession(ctx, "2024-11-05")
	now = now.Add(20 * time.Minute)
	m.ValidateSession(ctx, other)
	now = now.Add(20 * time.Minute)

	m.CleanupExpiredSessions(ctx, 30*time.Minute)
	if ok, _ := m.ValidateSession(ctx, id); ok {
		t.Error("expected idle session to be removed")
	}
	if ok, _ := m.ValidateSession(ctx, other); !ok {
		t.Error("expected recently used session to survive")
	}
	if m.Len() != 1 {
		t.Errorf("Expected 1 session, got %d", m.Len())
	}
}

func TestSignedSessionManager(t *testing.T) {
	ctx := context.Background()
	key := []byte(strings.Repeat("k", 32))

	m, err := NewSignedSessionManager(key, time.Hour)
	if err != nil {
		t.Fatalf("NewSignedSessionManager failed: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	id, err := m.CreateSession(ctx, "2025-03-26")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// A second instance with the same key accepts the session.
	peer, _ := NewSignedSessionManager(key, time.Hour)
	peer.now = m.now
	if ok, _ := peer.ValidateSession(ctx, id); !ok {
		t.Fatal("expected peer to accept the session")
	}
	if v, _ := peer.ProtocolVersion(ctx, id); v != "2025-03-26" {
		t.Errorf("Expected protocol %q, got %q", "2025-03-26", v)
	}

	stranger, _ := NewSignedSessionManager([]byte(strings.Repeat("x", 32)), time.Hour)
	if ok, _ := stranger.ValidateSession(ctx, id); ok {
		t.Error("expected a different key to reject the session")
	}

	tampered := "A" + id[1:]
	if tampered == id {
		tampered = "B" + id[1:]
	}
	for _, bad := range []string{"", "no-dot", tampered, id + "x"} {
		if ok, _ := m.ValidateSession(ctx, bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}

	now = now.Add(2 * time.Hour)
	if ok, _ := m.ValidateSession(ctx, id); ok {
		t.Error("expected expired session to be rejected")
	}

	if _, err := NewSignedSessionManager([]byte("short"), time.Hour); err == nil {
		t.Error("expected an error for a short key")
	}
}

func TestServerWithSignedSessions(t *testing.T) {
	m, _ := NewSignedSessionManager([]byte(strings.Repeat("k", 32)), time.Hour)
	a := NewServer("a", "1", WithSessionManager(m))
	b := NewServer("b", "1", WithSessionManager(m))

	resp, _ := doRPC(t, a, initializeRequest(""), nil)
	id := resp.Header.Get(SessionHeader)
	if !strings.Contains(id, ".") {
		t.Fatalf("expected a signed session id, got %q", id)
	}

	resp, rpc := doRPC(t, b, MCPRequest{JSONRPC: "2.0", ID: 2, Method: "ping"}, map[string]string{SessionHeader: id})
	if resp.StatusCode != http.StatusOK || rpc.Error != nil {
		t.Fatalf("expected peer server to accept session: %d %+v", resp.StatusCode, rpc.Error)
	}
}
