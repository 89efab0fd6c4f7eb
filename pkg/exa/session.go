package exa

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// defaultSessionTTL is how long a provider session is reused before a
// fresh handshake.
const defaultSessionTTL = 4 * time.Minute

// HandshakeFunc performs the provider handshake and returns a session token.
type HandshakeFunc func(ctx context.Context) (string, error)

// SessionManager caches the provider session token with a TTL. The token is
// shared by all concurrent callers; any caller that detects rate limiting
// may Invalidate it for everyone. Concurrent refreshes are tolerated — the
// last handshake wins, duplicate sessions are merely wasteful.
type SessionManager struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	ttl       time.Duration
	handshake HandshakeFunc

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewSessionManager creates a SessionManager. A ttl of 0 uses the default
// of 4 minutes.
func NewSessionManager(ttl time.Duration, handshake HandshakeFunc) *SessionManager {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionManager{
		ttl:       ttl,
		handshake: handshake,
		nowFunc:   time.Now,
	}
}

// Token returns the cached session token, performing a handshake first if
// the cache is empty or expired. The handshake runs outside the lock so a
// slow provider does not serialize unrelated callers.
func (s *SessionManager) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token != "" && s.nowFunc().Before(s.expiresAt) {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	token, err := s.handshake(ctx)
	if err != nil {
		return "", eris.Wrap(err, "exa: session handshake")
	}

	s.mu.Lock()
	s.token = token
	s.expiresAt = s.nowFunc().Add(s.ttl)
	s.mu.Unlock()

	zap.L().Debug("exa: session refreshed", zap.Duration("ttl", s.ttl))
	return token, nil
}

// Invalidate expires the cached token, forcing the next caller to
// re-handshake.
func (s *SessionManager) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}
