package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// UnknownIP is recorded when the lookup fails or is not configured.
const UnknownIP = "unknown"

// IPResolver resolves the caller's public IP, best effort.
type IPResolver interface {
	ResolveIP(ctx context.Context) string
}

// IPLookup hits a JSON IP-echo endpoint ({"ip":"..."}). Lookups are advisory
// context for the security log: any failure yields UnknownIP and no error.
type IPLookup struct {
	URL  string
	HTTP *http.Client
}

// NewIPLookup constructs a lookup with a short dedicated timeout so a slow
// echo service never drags on auth operations.
func NewIPLookup(url string) *IPLookup {
	return &IPLookup{
		URL:  url,
		HTTP: &http.Client{Timeout: 5 * time.Second},
	}
}

// ResolveIP returns the public IP or UnknownIP.
func (l *IPLookup) ResolveIP(ctx context.Context) string {
	if l == nil || l.URL == "" {
		return UnknownIP
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return UnknownIP
	}
	resp, err := l.HTTP.Do(req)
	if err != nil {
		return UnknownIP
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return UnknownIP
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.IP == "" {
		return UnknownIP
	}
	return body.IP
}
