package mcp

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// SessionManager stores the sessions opened by initialize. Implement it to
// share sessions between server instances.
type SessionManager interface {
	// CreateSession opens a session and returns its ID.
	CreateSession(ctx context.Context, protocolVersion string) (string, error)
	// ValidateSession reports whether the session exists, refreshing its
	// idle timer.
	ValidateSession(ctx context.Context, sessionID string) (bool, error)
	// ProtocolVersion returns the version negotiated for the session.
	ProtocolVersion(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	// CleanupExpiredSessions drops sessions idle for longer than maxIdle.
	CleanupExpiredSessions(ctx context.Context, maxIdle time.Duration) error
}

type memorySession struct {
	protocolVersion string
	lastUsed        time.Time
}

// MemorySessionManager keeps sessions in process memory. Session IDs are
// UUIDv7, so they sort by creation time.
type MemorySessionManager struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	now      func() time.Time
}

func NewMemorySessionManager() *MemorySessionManager {
	return &MemorySessionManager{
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

func (m *MemorySessionManager) CreateSession(ctx context.Context, protocolVersion string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	m.mu.Lock()
	m.sessions[id.String()] = &memorySession{protocolVersion: protocolVersion, lastUsed: m.now()}
	m.mu.Unlock()
	return id.String(), nil
}

func (m *MemorySessionManager) ValidateSession(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if ok {
		s.lastUsed = m.now()
	}
	return ok, nil
}

func (m *MemorySessionManager) ProtocolVersion(ctx context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return "", fmt.Errorf("session %q not found", sessionID)
	}
	return s.protocolVersion, nil
}

func (m *MemorySessionManager) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionManager) CleanupExpiredSessions(ctx context.Context, maxIdle time.Duration) error {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
	return nil
}

// Len returns the number of open sessions.
func (m *MemorySessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

var _ SessionManager = (*MemorySessionManager)(nil)

// SignedSessionManager issues self-contained session IDs: CBOR claims and a
// keyed BLAKE3 tag, both base64url encoded. Any server holding the key
// accepts the session, so nothing is stored. Sessions cannot be revoked
// before they expire.
type SignedSessionManager struct {
	key [32]byte
	ttl time.Duration
	now func() time.Time
}

type sessionClaims struct {
	ID        []byte `cbor:"1,keyasint"`
	Protocol  string `cbor:"2,keyasint"`
	ExpiresAt int64  `cbor:"3,keyasint"`
}

// NewSignedSessionManager takes a 32-byte key.
func NewSignedSessionManager(key []byte, ttl time.Duration) (*SignedSessionManager, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("session key must be 32 bytes, got %d", len(key))
	}
	m := &SignedSessionManager{ttl: ttl, now: time.Now}
	copy(m.key[:], key)
	return m, nil
}

func (m *SignedSessionManager) CreateSession(ctx context.Context, protocolVersion string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	payload, err := cbor.Marshal(sessionClaims{
		ID:        id[:],
		Protocol:  protocolVersion,
		ExpiresAt: m.now().Add(m.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString(m.tag(payload)), nil
}

func (m *SignedSessionManager) ValidateSession(ctx context.Context, sessionID string) (bool, error) {
	_, ok := m.claims(sessionID)
	return ok, nil
}

func (m *SignedSessionManager) ProtocolVersion(ctx context.Context, sessionID string) (string, error) {
	c, ok := m.claims(sessionID)
	if !ok {
		return "", fmt.Errorf("invalid session")
	}
	return c.Protocol, nil
}

// DeleteSession is a no-op; signed sessions expire on their own.
func (m *SignedSessionManager) DeleteSession(ctx context.Context, sessionID string) error {
	return nil
}

func (m *SignedSessionManager) CleanupExpiredSessions(ctx context.Context, maxIdle time.Duration) error {
	return nil
}

func (m *SignedSessionManager) tag(payload []byte) []byte {
	h, _ := blake3.NewKeyed(m.key[:])
	h.Write(payload)
	return h.Sum(nil)
}

func (m *SignedSessionManager) claims(sessionID string) (sessionClaims, bool) {
	var c sessionClaims
	encoded, sig, ok := strings.Cut(sessionID, ".")
	if !ok {
		return c, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return c, false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || subtle.ConstantTimeCompare(got, m.tag(payload)) != 1 {
		return c, false
	}
	if err := cbor.Unmarshal(payload, &c); err != nil {
		return c, false
	}
	return c, m.now().Unix() <= c.ExpiresAt
}

var _ SessionManager = (*SignedSessionManager)(nil)
