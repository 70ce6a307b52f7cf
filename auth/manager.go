package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bizdash/api"
	"bizdash/store"
)

// Store keys for the persisted token pair.
const (
	bearerTokenKey  = "bearer_token"
	refreshTokenKey = "refresh_token"
)

// State is the session manager's lifecycle state.
type State int

// Session lifecycle states.
const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

// Backend is the slice of the REST API the session manager drives.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, params api.RegisterParams) (*api.AuthResponse, error)
	OAuthLogin(ctx context.Context, provider string, payload map[string]string) (*api.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*api.RefreshResponse, error)
	Me(ctx context.Context, token string) (*api.Identity, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error
}

// Session is the manager's snapshot of the authenticated user. It is owned
// exclusively by the manager and replaced wholesale on login, refresh, and
// logout; a non-empty Token was valid at the time it was stored.
type Session struct {
	User         *api.Identity
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

// Manager orchestrates login, registration, OAuth, refresh, and logout,
// composing the token codec, expiry scheduler, and security log. One
// process-scoped instance is constructed at startup and lives for the
// process lifetime.
type Manager struct {
	backend   Backend
	store     store.Store
	log       *SecurityLog
	scheduler *Scheduler
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	state     State
	session   Session
	listeners []func(State, Session)
}

// NewManager wires the manager from its collaborators. A nil clock means
// time.Now. Call Init once afterwards to resolve the persisted session.
func NewManager(backend Backend, st store.Store, log *SecurityLog, now func() time.Time, logger *slog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		backend:   backend,
		store:     st,
		log:       log,
		scheduler: NewScheduler(now),
		logger:    logger,
		now:       now,
		state:     StateUnauthenticated,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns a copy of the current session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// OnChange registers a listener invoked after every state transition with a
// snapshot of the new state and session.
func (m *Manager) OnChange(fn func(State, Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) publish() {
	m.mu.Lock()
	state, session := m.state, m.session
	fns := make([]func(State, Session), len(m.listeners))
	copy(fns, m.listeners)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(state, session)
	}
}

// Init resolves the initial state from persisted tokens: a valid bearer
// token triggers an identity fetch, a valid refresh token alone triggers a
// refresh, and anything else ends Unauthenticated without a network call.
func (m *Manager) Init(ctx context.Context) {
	defer m.publish()

	m.mu.Lock()

	token, hasToken := m.store.Get(bearerTokenKey)
	if hasToken && TokenValid(token, m.now()) {
		m.state = StateAuthenticating

		user, err := m.backend.Me(ctx, token)
		if err != nil {
			m.logger.Warn("identity fetch failed, discarding stored session", "error", err)
			m.log.Append(ActionFetchUserFailed, map[string]string{"error": err.Error()})
			m.logoutLocked()
			m.mu.Unlock()
			return
		}

		claims, _ := DecodeToken(token)
		refresh, _ := m.store.Get(refreshTokenKey)
		m.installLocked(user, token, refresh, claims)
		m.mu.Unlock()
		return
	}

	refresh, hasRefresh := m.store.Get(refreshTokenKey)
	if hasRefresh && refresh != "" {
		m.mu.Unlock()
		if err := m.Refresh(ctx); err != nil {
			m.logger.Info("startup refresh failed", "error", err)
		}
		return
	}

	m.state = StateUnauthenticated
	m.mu.Unlock()
}

// Login authenticates with email and password. Five login attempts inside
// the trailing five-minute window trip the local throttle and fail without
// a network call.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	defer m.publish()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.log.RecentAttempts(m.now()) >= throttleLimit {
		m.log.Append(ActionRateLimitExceeded, map[string]string{"email": email})
		return Session{}, ErrRateLimited
	}

	m.log.Append(ActionLoginAttempt, map[string]string{"email": email})
	m.state = StateAuthenticating

	resp, err := m.backend.Login(ctx, email, password)
	if err != nil {
		m.log.Append(ActionLoginFailed, map[string]string{"email": email, "error": err.Error()})
		m.state = StateUnauthenticated
		return Session{}, fmt.Errorf("login: %w", err)
	}

	return m.completeAuthLocked(ctx, resp, ActionLoginSuccess, ActionLoginFailed)
}

// Register creates an account and establishes a session on success. No
// throttle applies.
func (m *Manager) Register(ctx context.Context, params api.RegisterParams) (Session, error) {
	defer m.publish()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Append(ActionRegisterAttempt, map[string]string{"email": params.Email})
	m.state = StateAuthenticating

	resp, err := m.backend.Register(ctx, params)
	if err != nil {
		m.log.Append(ActionRegisterFailed, map[string]string{"email": params.Email, "error": err.Error()})
		m.state = StateUnauthenticated
		return Session{}, fmt.Errorf("register: %w", err)
	}

	return m.completeAuthLocked(ctx, resp, ActionRegisterSuccess, ActionRegisterFailed)
}

// LoginWithOAuth exchanges a provider payload for a session. No password or
// throttle is involved.
func (m *Manager) LoginWithOAuth(ctx context.Context, provider string, payload map[string]string) (Session, error) {
	defer m.publish()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Append(ActionOAuthAttempt, map[string]string{"provider": provider})
	m.state = StateAuthenticating

	resp, err := m.backend.OAuthLogin(ctx, provider, payload)
	if err != nil {
		m.log.Append(ActionOAuthFailed, map[string]string{"provider": provider, "error": err.Error()})
		m.state = StateUnauthenticated
		return Session{}, fmt.Errorf("oauth login: %w", err)
	}

	return m.completeAuthLocked(ctx, resp, ActionOAuthSuccess, ActionOAuthFailed)
}

// completeAuthLocked validates and installs the token pair a successful auth
// call returned. A token that fails validation is never persisted; the
// attempt is unwound through logout so no partially-valid session survives.
func (m *Manager) completeAuthLocked(ctx context.Context, resp *api.AuthResponse, success, failure Action) (Session, error) {
	claims, err := DecodeToken(resp.Token)
	if err != nil || !TokenValid(resp.Token, m.now()) {
		m.log.Append(failure, map[string]string{"error": "backend returned an invalid token"})
		m.logoutLocked()
		return Session{}, ErrInvalidToken
	}

	if err := m.store.Set(bearerTokenKey, resp.Token); err != nil {
		m.logoutLocked()
		return Session{}, fmt.Errorf("persist token: %w", err)
	}
	if resp.RefreshToken != "" {
		if err := m.store.Set(refreshTokenKey, resp.RefreshToken); err != nil {
			m.logger.Warn("persist refresh token failed", "error", err)
		}
	}

	user := resp.Identity
	if user.ID == "" {
		user.ID = claims.Subject
	}
	m.installLocked(&user, resp.Token, resp.RefreshToken, claims)

	m.log.AppendWithIP(ctx, success, map[string]string{"userId": user.ID})
	return m.session, nil
}

// installLocked replaces the session object and re-arms the expiry callback,
// superseding any pending one.
func (m *Manager) installLocked(user *api.Identity, token, refresh string, claims *Claims) {
	m.session = Session{User: user, Token: token, RefreshToken: refresh}
	if claims != nil {
		m.session.ExpiresAt = claims.ExpiresAt
	}
	m.state = StateAuthenticated
	m.scheduler.Schedule(claims, m.expire)
}

// Refresh exchanges the stored refresh token for a new bearer token. The
// refresh token is an opaque credential: only the backend can judge it, so
// presence is the only local gate. Any failure, including a missing refresh
// token, forces a logout so no stale session lingers.
func (m *Manager) Refresh(ctx context.Context) error {
	defer m.publish()

	m.mu.Lock()
	defer m.mu.Unlock()

	refresh, ok := m.store.Get(refreshTokenKey)
	if !ok || refresh == "" {
		m.log.Append(ActionTokenRefreshFailed, map[string]string{"reason": "no refresh token"})
		m.logoutLocked()
		return ErrNoRefreshToken
	}

	m.state = StateRefreshing

	resp, err := m.backend.Refresh(ctx, refresh)
	if err != nil {
		m.log.Append(ActionTokenRefreshFailed, map[string]string{"error": err.Error()})
		m.logoutLocked()
		return fmt.Errorf("refresh: %w", err)
	}

	claims, decErr := DecodeToken(resp.Token)
	if decErr != nil || !TokenValid(resp.Token, m.now()) {
		m.log.Append(ActionTokenRefreshFailed, map[string]string{"reason": "invalid token"})
		m.logoutLocked()
		return ErrInvalidToken
	}

	if err := m.store.Set(bearerTokenKey, resp.Token); err != nil {
		m.logoutLocked()
		return fmt.Errorf("persist token: %w", err)
	}
	newRefresh := refresh
	if resp.NewRefreshToken != "" {
		newRefresh = resp.NewRefreshToken
		if err := m.store.Set(refreshTokenKey, newRefresh); err != nil {
			m.logger.Warn("persist rotated refresh token failed", "error", err)
		}
	}

	user := m.session.User
	if user == nil {
		// Refresh during startup: the identity is not known yet.
		fetched, err := m.backend.Me(ctx, resp.Token)
		if err != nil {
			m.log.Append(ActionFetchUserFailed, map[string]string{"error": err.Error()})
			m.logoutLocked()
			return fmt.Errorf("fetch identity: %w", err)
		}
		user = fetched
	}

	m.installLocked(user, resp.Token, newRefresh, claims)
	m.log.Append(ActionTokenRefreshed, map[string]string{"userId": user.ID})
	return nil
}

// Logout clears all stored tokens and returns to Unauthenticated. It is
// idempotent: repeated calls settle in the same state.
func (m *Manager) Logout() {
	defer m.publish()

	m.mu.Lock()
	defer m.mu.Unlock()

	detail := map[string]string{}
	if m.session.User != nil {
		detail["userId"] = m.session.User.ID
	}
	m.log.Append(ActionUserLogout, detail)
	m.logoutLocked()
}

// logoutLocked tears the session down: tokens cleared, pending expiry
// callback cancelled, session object replaced.
func (m *Manager) logoutLocked() {
	if err := m.store.Delete(bearerTokenKey); err != nil {
		m.logger.Warn("clear bearer token failed", "error", err)
	}
	if err := m.store.Delete(refreshTokenKey); err != nil {
		m.logger.Warn("clear refresh token failed", "error", err)
	}
	m.scheduler.Stop()
	m.session = Session{}
	m.state = StateUnauthenticated
}

// expire is the scheduler's pre-expiry callback.
func (m *Manager) expire() {
	defer m.publish()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticated {
		return
	}
	detail := map[string]string{"reason": "token_expiring"}
	if m.session.User != nil {
		detail["userId"] = m.session.User.ID
	}
	m.log.Append(ActionAutoLogout, detail)
	m.logoutLocked()
}

// Revalidate is the visibility signal: the view layer calls it whenever the
// operator comes back to the dashboard. If the stored bearer token has gone
// missing or stale in the meantime the session is force-closed. It reports
// whether the session is still authenticated.
func (m *Manager) Revalidate() bool {
	defer m.publish()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticated {
		return false
	}

	token, ok := m.store.Get(bearerTokenKey)
	if ok && TokenValid(token, m.now()) {
		return true
	}

	detail := map[string]string{"reason": "stale_token"}
	if m.session.User != nil {
		detail["userId"] = m.session.User.ID
	}
	m.log.Append(ActionAutoLogout, detail)
	m.logoutLocked()
	return false
}

// RequestPasswordReset asks the backend to start a reset flow for email.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	m.log.Append(ActionPasswordResetReq, map[string]string{"email": email})
	if err := m.backend.RequestPasswordReset(ctx, email); err != nil {
		return fmt.Errorf("password reset request: %w", err)
	}
	return nil
}

// ResetPassword completes a mailed reset flow.
func (m *Manager) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if err := m.backend.ResetPassword(ctx, resetToken, newPassword); err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	m.log.Append(ActionPasswordReset, nil)
	return nil
}

// ChangePassword changes the authenticated user's password.
func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	m.mu.Lock()
	session := m.session
	state := m.state
	m.mu.Unlock()

	if state != StateAuthenticated {
		return fmt.Errorf("change password: not authenticated")
	}
	if err := m.backend.ChangePassword(ctx, session.Token, currentPassword, newPassword); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	detail := map[string]string{}
	if session.User != nil {
		detail["userId"] = session.User.ID
	}
	m.log.Append(ActionPasswordChanged, detail)
	return nil
}
