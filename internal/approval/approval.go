// Package approval manages the upstream websocket approval key.
//
// The upstream feed authenticates subscribe requests with an "approval key"
// issued by an OAuth-style endpoint. The key is assumed valid for 24 hours;
// it is refreshed on demand inside a safety margin of expiry and proactively
// by an hourly timer so on-demand callers rarely block on a round trip.
package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrNoKey is returned when no key is cached and a refresh failed.
var ErrNoKey = errors.New("no approval key available")

// Config holds token endpoint settings.
type Config struct {
	ApprovalURL  string
	AppKey       string
	SecretKey    string
	KeyValidity  time.Duration // Assumed lifetime of an issued key (default 24h)
	SafetyMargin time.Duration // Refresh this long before assumed expiry (default 10m)
	RefreshEvery time.Duration // Proactive refresh period (default 1h)
}

// Service caches a single approval key and refreshes it on expiry.
type Service struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	// At most one refresh in flight at a time.
	flight singleflight.Group

	mu       sync.RWMutex
	key      string
	expireAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) {
		s.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates an approval-key service.
func New(cfg Config, opts ...Option) *Service {
	if cfg.KeyValidity == 0 {
		cfg.KeyValidity = 24 * time.Hour
	}
	if cfg.SafetyMargin == 0 {
		cfg.SafetyMargin = 10 * time.Minute
	}
	if cfg.RefreshEvery == 0 {
		cfg.RefreshEvery = time.Hour
	}

	s := &Service{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the cached approval key, refreshing it when the safety margin
// has been reached. If a refresh fails and a previously issued key is still
// cached, the stale key is returned; the upstream will reject it on use and
// the caller is expected to treat that as a forced-refresh trigger via
// Invalidate.
func (s *Service) Key(ctx context.Context) (string, error) {
	s.mu.RLock()
	key := s.key
	expireAt := s.expireAt
	s.mu.RUnlock()

	if key != "" && time.Now().Before(expireAt.Add(-s.cfg.SafetyMargin)) {
		return key, nil
	}

	fresh, err, _ := s.flight.Do("approval_key", func() (interface{}, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		if key != "" {
			s.logger.Warn("approval key refresh failed, returning stale key", "error", err)
			return key, nil
		}
		return "", fmt.Errorf("%w: %v", ErrNoKey, err)
	}

	return fresh.(string), nil
}

// Invalidate discards the cached key so the next Key call performs a full
// refresh. It is the explicit hook for out-of-band forced refreshes (e.g.
// after the upstream rejects a subscribe request).
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.key = ""
	s.expireAt = time.Time{}
	s.mu.Unlock()
}

// Start begins the proactive refresh loop.
func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.refreshLoop()

	s.logger.Info("approval service started",
		"refresh_every", s.cfg.RefreshEvery,
		"safety_margin", s.cfg.SafetyMargin,
	)
	return nil
}

// Stop shuts down the refresh loop.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refreshLoop periodically re-runs the same path as on-demand callers.
func (s *Service) refreshLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.RefreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Key(s.ctx); err != nil {
				s.logger.Warn("proactive approval refresh failed", "error", err)
			}
		}
	}
}

type approvalRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	SecretKey string `json:"secretkey"`
}

type approvalResponse struct {
	ApprovalKey string `json:"approval_key"`
}

// refresh requests a new key from the token endpoint and caches it.
func (s *Service) refresh(ctx context.Context) (string, error) {
	payload, err := json.Marshal(approvalRequest{
		GrantType: "client_credentials",
		AppKey:    s.cfg.AppKey,
		SecretKey: s.cfg.SecretKey,
	})
	if err != nil {
		return "", fmt.Errorf("marshal approval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ApprovalURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create approval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request approval key: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read approval response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("approval endpoint returned %d", resp.StatusCode)
	}

	var parsed approvalResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal approval response: %w", err)
	}
	if parsed.ApprovalKey == "" {
		return "", errors.New("approval response missing approval_key")
	}

	s.mu.Lock()
	s.key = parsed.ApprovalKey
	s.expireAt = time.Now().Add(s.cfg.KeyValidity)
	s.mu.Unlock()

	s.logger.Info("approval key issued", "valid_for", s.cfg.KeyValidity)
	return parsed.ApprovalKey, nil
}
