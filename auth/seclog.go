package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bizdash/api"
	"bizdash/store"
)

// Action names an auth-related event recorded in the security log.
type Action string

// Security log actions.
const (
	ActionLoginAttempt       Action = "login_attempt"
	ActionLoginSuccess       Action = "login_success"
	ActionLoginFailed        Action = "login_failed"
	ActionRateLimitExceeded  Action = "rate_limit_exceeded"
	ActionRegisterAttempt    Action = "register_attempt"
	ActionRegisterSuccess    Action = "register_success"
	ActionRegisterFailed     Action = "register_failed"
	ActionOAuthAttempt       Action = "oauth_attempt"
	ActionOAuthSuccess       Action = "oauth_success"
	ActionOAuthFailed        Action = "oauth_failed"
	ActionTokenRefreshed     Action = "token_refreshed"
	ActionTokenRefreshFailed Action = "token_refresh_failed"
	ActionUserLogout         Action = "user_logout"
	ActionAutoLogout         Action = "auto_logout"
	ActionFetchUserFailed    Action = "fetch_user_failed"
	ActionPasswordResetReq   Action = "password_reset_request"
	ActionPasswordReset      Action = "password_reset"
	ActionPasswordChanged    Action = "password_changed"
)

const (
	// securityLogKey is the store key the snapshot persists under.
	securityLogKey = "security_log"

	// maxLogEntries caps the log; the oldest entries are evicted first.
	maxLogEntries = 100

	// throttleWindow and throttleLimit define the login throttle: a login
	// is refused once throttleLimit attempts land inside the trailing
	// window. Advisory only: the log lives in client-local storage and
	// is trivially cleared; real rate limiting belongs to the backend.
	throttleWindow = 5 * time.Minute
	throttleLimit  = 5
)

// Entry is one immutable security-log record.
type Entry struct {
	ID        string            `json:"id"`
	Time      time.Time         `json:"time"`
	Action    Action            `json:"action"`
	UserAgent string            `json:"userAgent"`
	IP        string            `json:"ip"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// SecurityLog is the append-only, capped, client-local record of auth events.
// The full snapshot (newest first) is rewritten to the store on every append.
type SecurityLog struct {
	mu        sync.Mutex
	store     store.Store
	resolver  api.IPResolver
	logger    *slog.Logger
	userAgent string
	now       func() time.Time
	entries   []Entry
}

// NewSecurityLog constructs the log and loads the persisted snapshot, if any.
// A snapshot that fails to decode is discarded rather than wedging startup.
func NewSecurityLog(st store.Store, resolver api.IPResolver, userAgent string, now func() time.Time, logger *slog.Logger) *SecurityLog {
	if now == nil {
		now = time.Now
	}
	l := &SecurityLog{
		store:     st,
		resolver:  resolver,
		logger:    logger,
		userAgent: userAgent,
		now:       now,
	}
	if raw, ok := st.Get(securityLogKey); ok {
		if err := json.Unmarshal([]byte(raw), &l.entries); err != nil {
			logger.Warn("discarding unreadable security log snapshot", "error", err)
			l.entries = nil
		}
	}
	return l
}

// Append records an event with the IP left unresolved. It prepends the entry,
// truncates to the cap, and persists the snapshot before returning.
func (l *SecurityLog) Append(action Action, detail map[string]string) {
	l.append(action, api.UnknownIP, detail)
}

// AppendWithIP records an event after a best-effort public-IP lookup. The
// lookup and append run in the background so callers never wait on it;
// lookup failure records "unknown". The lookup outlives the caller's
// context: a request context is cancelled as soon as its handler returns,
// which must not abort the lookup. Values (trace IDs) are kept.
func (l *SecurityLog) AppendWithIP(ctx context.Context, action Action, detail map[string]string) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ip := api.UnknownIP
		if l.resolver != nil {
			ip = l.resolver.ResolveIP(ctx)
		}
		l.append(action, ip, detail)
	}()
}

func (l *SecurityLog) append(action Action, ip string, detail map[string]string) {
	entry := Entry{
		ID:        uuid.NewString(),
		Time:      l.now().UTC(),
		Action:    action,
		UserAgent: l.userAgent,
		IP:        ip,
		Detail:    detail,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]Entry{entry}, l.entries...)
	if len(l.entries) > maxLogEntries {
		l.entries = l.entries[:maxLogEntries]
	}
	l.persistLocked()
}

func (l *SecurityLog) persistLocked() {
	raw, err := json.Marshal(l.entries)
	if err != nil {
		l.logger.Error("encode security log", "error", err)
		return
	}
	if err := l.store.Set(securityLogKey, string(raw)); err != nil {
		l.logger.Error("persist security log", "error", err)
	}
}

// Entries returns a copy of the log, newest first.
func (l *SecurityLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// RecentAttempts counts login_attempt entries inside the trailing throttle
// window ending at now.
func (l *SecurityLog) RecentAttempts(now time.Time) int {
	cutoff := now.Add(-throttleWindow)

	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, e := range l.entries {
		if e.Action == ActionLoginAttempt && e.Time.After(cutoff) {
			count++
		}
	}
	return count
}

// QueryForUser returns entries belonging to the given user plus every logout
// and token event. Those stay visible regardless of owner: they affect
// session continuity for whoever is looking before a user is known.
func (l *SecurityLog) QueryForUser(userID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, e := range l.entries {
		name := string(e.Action)
		if e.Detail["userId"] == userID ||
			strings.Contains(name, "logout") ||
			strings.Contains(name, "token") {
			out = append(out, e)
		}
	}
	return out
}
