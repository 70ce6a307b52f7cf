// Package web is the dashboard's view layer: configuration, routing, and the
// HTML views that consume the session manager and the API client.
package web

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the API client and local state.
const (
	DefaultAPITimeout  = 15 * time.Second
	DefaultStatePath   = ".bizdash/state.json"
	DefaultIPLookupURL = "https://api.ipify.org?format=json"
)

// Config captures the full application configuration loaded from YAML and
// environment variables.
type Config struct {
	Server ServerConfig             `yaml:"server"`
	API    APIConfig                `yaml:"api"`
	Auth   AuthConfig               `yaml:"auth"`
	OAuth  map[string]OAuthProvider `yaml:"oauth_providers"`
}

// ServerConfig controls the listener and HTTP concerns.
type ServerConfig struct {
	ListenAddr      string    `yaml:"listen_addr"`
	HTTPSListenAddr string    `yaml:"https_listen_addr"`
	PublicURL       string    `yaml:"public_url"`
	DevMode         bool      `yaml:"dev_mode"`
	TLS             TLSConfig `yaml:"tls"`
}

// TLSConfig defines autocert behaviour for non-dev deployments.
type TLSConfig struct {
	Domains []string `yaml:"domains"`
	Email   string   `yaml:"email"`
}

// APIConfig locates the REST backend.
type APIConfig struct {
	BaseURL     string `yaml:"base_url"`
	Timeout     string `yaml:"timeout"`
	IPLookupURL string `yaml:"ip_lookup_url"`
}

// AuthConfig controls the client-local session state.
type AuthConfig struct {
	StatePath string `yaml:"state_path"`
	UserAgent string `yaml:"user_agent"`
}

// OAuthProvider holds the issuer and credentials for an OAuth login button.
type OAuthProvider struct {
	Issuer       string `yaml:"issuer"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// LoadConfig reads the YAML config file and merges environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		decoder := yaml.NewDecoder(bytes.NewReader(b))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration template.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      "127.0.0.1:8090",
			HTTPSListenAddr: ":443",
			PublicURL:       "http://127.0.0.1:8090",
			DevMode:         true,
		},
		API: APIConfig{
			BaseURL:     "http://127.0.0.1:4000/api",
			Timeout:     DefaultAPITimeout.String(),
			IPLookupURL: DefaultIPLookupURL,
		},
		Auth: AuthConfig{
			StatePath: DefaultStatePath,
			UserAgent: "bizdash/1.0",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	overrides := map[string]func(string){
		"BIZDASH_SERVER_LISTEN_ADDR":       func(v string) { cfg.Server.ListenAddr = v },
		"BIZDASH_SERVER_HTTPS_LISTEN_ADDR": func(v string) { cfg.Server.HTTPSListenAddr = v },
		"BIZDASH_SERVER_PUBLIC_URL":        func(v string) { cfg.Server.PublicURL = v },
		"BIZDASH_SERVER_DEV_MODE":          func(v string) { cfg.Server.DevMode = parseBool(v, cfg.Server.DevMode) },
		"BIZDASH_SERVER_TLS_DOMAINS":       func(v string) { cfg.Server.TLS.Domains = splitAndTrim(v) },
		"BIZDASH_SERVER_TLS_EMAIL":         func(v string) { cfg.Server.TLS.Email = v },
		"BIZDASH_API_BASE_URL":             func(v string) { cfg.API.BaseURL = v },
		"BIZDASH_API_TIMEOUT":              func(v string) { cfg.API.Timeout = v },
		"BIZDASH_API_IP_LOOKUP_URL":        func(v string) { cfg.API.IPLookupURL = v },
		"BIZDASH_AUTH_STATE_PATH":          func(v string) { cfg.Auth.StatePath = v },
	}

	for key, fn := range overrides {
		if val, ok := os.LookupEnv(key); ok {
			fn(val)
		}
	}
}

// Validate performs minimal sanity checks on the config.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.API.Timeout != "" {
		if _, err := time.ParseDuration(c.API.Timeout); err != nil {
			return fmt.Errorf("api.timeout: %w", err)
		}
	}
	if !c.Server.DevMode && len(c.Server.TLS.Domains) == 0 {
		return fmt.Errorf("server.tls.domains is required outside dev mode")
	}
	for name, p := range c.OAuth {
		if p.Issuer == "" || p.ClientID == "" {
			return fmt.Errorf("oauth provider %s: issuer and client_id are required", name)
		}
	}
	return nil
}

// APITimeout returns the parsed API timeout, falling back to the default.
func (c Config) APITimeout() time.Duration {
	return parseDuration(c.API.Timeout, DefaultAPITimeout)
}

func parseDuration(val string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}

func parseBool(val string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
