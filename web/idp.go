package web

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OAuthFlow drives the browser half of an OAuth login: building the
// authorization URL and exchanging the callback code. The exchanged payload
// is forwarded verbatim to the backend's provider endpoint, which owns the
// actual verification and account mapping.
type OAuthFlow struct {
	name        string
	oauthConfig *oauth2.Config
	logger      *slog.Logger
}

// NewOAuthFlow initializes a flow via OIDC discovery on the provider issuer.
func NewOAuthFlow(ctx context.Context, name string, provider OAuthProvider, redirect string, logger *slog.Logger) (*OAuthFlow, error) {
	if provider.Issuer == "" {
		return nil, fmt.Errorf("issuer required for provider %s", name)
	}

	op, err := oidc.NewProvider(ctx, provider.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover provider %s: %w", name, err)
	}

	endpoint := op.Endpoint()
	if provider.ClientSecret == "" {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	return &OAuthFlow{
		name: name,
		oauthConfig: &oauth2.Config{
			ClientID:     provider.ClientID,
			ClientSecret: provider.ClientSecret,
			RedirectURL:  redirect,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		logger: logger,
	}, nil
}

// AuthCodeURL constructs the authorization request for the provider.
func (f *OAuthFlow) AuthCodeURL(state string) string {
	return f.oauthConfig.AuthCodeURL(state)
}

// Exchange completes the code exchange and returns the payload the backend's
// POST /auth/{provider} endpoint expects.
func (f *OAuthFlow) Exchange(ctx context.Context, code string) (map[string]string, error) {
	tok, err := f.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	payload := map[string]string{
		"provider":    f.name,
		"accessToken": tok.AccessToken,
		"redirectUri": f.oauthConfig.RedirectURL,
	}
	if rawIDToken, ok := tok.Extra("id_token").(string); ok && rawIDToken != "" {
		payload["idToken"] = rawIDToken
	}
	return payload, nil
}

// BuildFlows initializes every configured provider. A provider that fails
// discovery is skipped with a warning so one dead issuer does not take the
// dashboard down.
func BuildFlows(ctx context.Context, cfg Config, logger *slog.Logger) map[string]*OAuthFlow {
	flows := make(map[string]*OAuthFlow, len(cfg.OAuth))
	redirectBase := strings.TrimSuffix(cfg.Server.PublicURL, "/")

	for name, provider := range cfg.OAuth {
		flow, err := NewOAuthFlow(ctx, name, provider, redirectBase+"/oauth/"+name+"/callback", logger)
		if err != nil {
			logger.Warn("skipping oauth provider", "provider", name, "error", err)
			continue
		}
		flows[name] = flow
	}
	return flows
}
