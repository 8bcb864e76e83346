// Package lookup resolves the client's public address used as its
// identifier. Any failure falls back to a fixed identifier.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultURL returns {"ip": "..."}.
	DefaultURL = "https://api.ipify.org?format=json"
	// DefaultFallback is used when the lookup fails.
	DefaultFallback = "localhost"
	// DefaultTimeout bounds the lookup.
	DefaultTimeout = 5 * time.Second
)

// Resolver fetches the client identifier.
type Resolver struct {
	url      string
	fallback string
	timeout  time.Duration
	client   *http.Client
	log      *zap.Logger
}

// New returns a Resolver. Empty/zero values take the defaults.
func New(url, fallback string, timeout time.Duration, log *zap.Logger) *Resolver {
	if url == "" {
		url = DefaultURL
	}
	if fallback == "" {
		fallback = DefaultFallback
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		url:      url,
		fallback: fallback,
		timeout:  timeout,
		client:   &http.Client{},
		log:      log,
	}
}

// Resolve returns the public address, or the fallback on any failure.
func (r *Resolver) Resolve(ctx context.Context) string {
	id, err := r.fetch(ctx)
	if err != nil {
		r.log.Warn("identifier lookup failed, using fallback",
			zap.String("fallback", r.fallback), zap.Error(err))
		return r.fallback
	}
	r.log.Info("identifier resolved", zap.String("client", id))
	return id
}

func (r *Resolver) fetch(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected lookup status: %s", resp.Status)
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode lookup response: %w", err)
	}
	ip := strings.TrimSpace(payload.IP)
	if ip == "" {
		return "", fmt.Errorf("missing ip in lookup response")
	}
	return ip, nil
}
