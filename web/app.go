package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bizdash/api"
	"bizdash/auth"
	"bizdash/store"
)

// App bundles runtime dependencies for the dashboard.
type App struct {
	Config  Config
	Logger  *slog.Logger
	Store   store.Store
	API     *api.Client
	Log     *auth.SecurityLog
	Manager *auth.Manager
	Flows   map[string]*OAuthFlow

	stateMu     sync.Mutex
	oauthStates map[string]time.Time
}

// NewApp wires together the application state from configuration.
func NewApp(ctx context.Context, cfg Config, logger *slog.Logger) (*App, error) {
	st, err := store.NewFileStore(cfg.Auth.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return newApp(ctx, cfg, st, logger)
}

// NewAppWithStore is NewApp with the store supplied, for dev mode and tests.
func NewAppWithStore(ctx context.Context, cfg Config, st store.Store, logger *slog.Logger) (*App, error) {
	return newApp(ctx, cfg, st, logger)
}

func newApp(ctx context.Context, cfg Config, st store.Store, logger *slog.Logger) (*App, error) {
	client := api.NewClient(cfg.API.BaseURL, cfg.APITimeout(), logger)
	resolver := api.NewIPLookup(cfg.API.IPLookupURL)
	seclog := auth.NewSecurityLog(st, resolver, cfg.Auth.UserAgent, nil, logger)
	manager := auth.NewManager(client, st, seclog, nil, logger)

	manager.OnChange(func(state auth.State, session auth.Session) {
		attrs := []any{"state", state.String()}
		if session.User != nil {
			attrs = append(attrs, "user_id", session.User.ID)
		}
		logger.Info("session_state", attrs...)
	})

	return &App{
		Config:      cfg,
		Logger:      logger,
		Store:       st,
		API:         client,
		Log:         seclog,
		Manager:     manager,
		Flows:       BuildFlows(ctx, cfg, logger),
		oauthStates: make(map[string]time.Time),
	}, nil
}

// newOAuthState mints and records a CSRF state for an OAuth round trip.
func (a *App) newOAuthState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallbackstate"
	}
	state := hex.EncodeToString(buf)

	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	for s, deadline := range a.oauthStates {
		if time.Now().After(deadline) {
			delete(a.oauthStates, s)
		}
	}
	a.oauthStates[state] = time.Now().Add(10 * time.Minute)
	return state
}

// consumeOAuthState validates and invalidates a returned state.
func (a *App) consumeOAuthState(state string) bool {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	deadline, ok := a.oauthStates[state]
	if !ok {
		return false
	}
	delete(a.oauthStates, state)
	return time.Now().Before(deadline)
}
