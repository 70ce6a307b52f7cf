package auth

import (
	"sync"
	"time"
)

// logoutLead is how long before real token expiry the forced logout fires,
// leaving the operator a moment to re-authenticate instead of failing
// mid-request.
const logoutLead = time.Minute

// Scheduler arranges a single one-shot forced-logout callback ahead of token
// expiry. At most one callback is pending at a time: scheduling a new session
// supersedes the previous handle rather than leaving it dangling.
type Scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	now   func() time.Time
}

// NewScheduler constructs a Scheduler on the given clock. A nil clock means
// time.Now.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now}
}

// Schedule arms the pre-expiry callback for the given claims, replacing any
// pending one. It reports whether a callback was armed: claims without an
// expiry, or whose lead window has already passed, arm nothing.
func (s *Scheduler) Schedule(claims *Claims, onExpire func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if claims == nil || claims.ExpiresAt.IsZero() {
		return false
	}

	delay := claims.ExpiresAt.Sub(s.now()) - logoutLead
	if delay <= 0 {
		return false
	}
	s.timer = time.AfterFunc(delay, onExpire)
	return true
}

// Stop cancels any pending callback.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
