// Package crypto: governance token authority health monitor and
// failover state machine. Mirrors the HSM failover protocol this
// codebase's node operators already run, retargeted at the external
// authority that issues governance tokens for RW-C2/RW-C3 gating.
package crypto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// AuthorityState represents the three operating states of the
// governance token authority connection.
type AuthorityState int32

const (
	AuthorityStateNormal   AuthorityState = 0 // authority reachable, tokens can be issued
	AuthorityStateReadOnly AuthorityState = 1 // authority unreachable, issuance disabled, existing tokens still verify
	AuthorityStateFailed   AuthorityState = 2 // timeout exceeded, gated operations must refuse
)

func (s AuthorityState) String() string {
	switch s {
	case AuthorityStateNormal:
		return "NORMAL"
	case AuthorityStateReadOnly:
		return "READ_ONLY"
	case AuthorityStateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// AuthorityConfig holds tunables loaded from env (see
// WEAVER_AUTHORITY_* vars).
type AuthorityConfig struct {
	HealthInterval  time.Duration // WEAVER_AUTHORITY_HEALTH_INTERVAL (default 10s)
	FailThreshold   int           // WEAVER_AUTHORITY_FAIL_THRESHOLD (default 3)
	FailoverTimeout time.Duration // WEAVER_AUTHORITY_FAILOVER_TIMEOUT (default 300s, 0=∞)
	AlertWebhook    string        // WEAVER_AUTHORITY_ALERT_WEBHOOK (optional)
}

// AuthorityConfigFromEnv reads config from environment variables with
// safe defaults.
func AuthorityConfigFromEnv() AuthorityConfig {
	cfg := AuthorityConfig{
		HealthInterval:  10 * time.Second,
		FailThreshold:   3,
		FailoverTimeout: 300 * time.Second,
	}
	if v := os.Getenv("WEAVER_AUTHORITY_HEALTH_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HealthInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("WEAVER_AUTHORITY_FAIL_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FailThreshold = n
		}
	}
	if v := os.Getenv("WEAVER_AUTHORITY_FAILOVER_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FailoverTimeout = time.Duration(n) * time.Second
		}
	}
	cfg.AlertWebhook = os.Getenv("WEAVER_AUTHORITY_ALERT_WEBHOOK")
	return cfg
}

// HealthCheckFn is the function called to verify authority reachability.
// In production: a no-op status call against the token-issuing service.
// In tests: inject a mock.
type HealthCheckFn func() error

// AuthorityMonitor runs the health check loop and drives the state
// machine gating governance token issuance.
type AuthorityMonitor struct {
	cfg           AuthorityConfig
	check         HealthCheckFn
	state         atomic.Int32
	failCount     int
	readOnlySince time.Time
	mu            sync.Mutex
	onFailed      func() // called when entering FAILED
	logger        *slog.Logger
}

// NewAuthorityMonitor creates an AuthorityMonitor. onFailed is called
// once when the authority transitions to FAILED state — use it to
// trigger a graceful refusal of new capture/stream sessions.
func NewAuthorityMonitor(cfg AuthorityConfig, check HealthCheckFn, onFailed func()) *AuthorityMonitor {
	m := &AuthorityMonitor{
		cfg:      cfg,
		check:    check,
		onFailed: onFailed,
		logger:   slog.Default(),
	}
	m.state.Store(int32(AuthorityStateNormal))
	return m
}

// State returns the current authority state (safe for concurrent reads).
func (m *AuthorityMonitor) State() AuthorityState {
	return AuthorityState(m.state.Load())
}

// CanIssueTokens returns true only when the authority is in NORMAL state.
func (m *AuthorityMonitor) CanIssueTokens() bool {
	return m.State() == AuthorityStateNormal
}

// CheckNow runs a single health check synchronously and returns the
// resulting state, without starting the background Run loop. Intended
// for one-shot callers (e.g. a CLI invocation) that want a fresh
// authority read before gating a single operation rather than running
// a long-lived monitor goroutine.
func (m *AuthorityMonitor) CheckNow() AuthorityState {
	m.tick()
	return m.State()
}

// Run starts the health check loop. Blocks until ctx is cancelled.
func (m *AuthorityMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *AuthorityMonitor) tick() {
	err := m.check()
	m.mu.Lock()
	defer m.mu.Unlock()

	current := AuthorityState(m.state.Load())

	if err == nil {
		if current != AuthorityStateNormal {
			m.logger.Info("authority recovered", "from", current.String(), "to", "NORMAL")
			m.logStructured("authority_state_change", current, AuthorityStateNormal, 0, "")
		}
		m.failCount = 0
		m.state.Store(int32(AuthorityStateNormal))
		return
	}

	m.failCount++
	m.logger.Warn("authority health check failed",
		"fail_count", m.failCount,
		"threshold", m.cfg.FailThreshold,
		"error", err.Error(),
	)

	if current == AuthorityStateNormal && m.failCount >= m.cfg.FailThreshold {
		m.readOnlySince = time.Now()
		m.state.Store(int32(AuthorityStateReadOnly))
		m.logger.Warn("token authority unreachable — entering READ_ONLY mode. Issuance disabled.",
			"fail_count", m.failCount,
		)
		m.logStructured("authority_state_change", AuthorityStateNormal, AuthorityStateReadOnly, m.failCount, err.Error())
		m.sendAlert(AuthorityStateReadOnly, m.failCount)
		return
	}

	if current == AuthorityStateReadOnly && m.cfg.FailoverTimeout > 0 {
		if time.Since(m.readOnlySince) >= m.cfg.FailoverTimeout {
			m.state.Store(int32(AuthorityStateFailed))
			m.logger.Error("token authority timeout exceeded — gated operations must refuse.",
				"timeout", m.cfg.FailoverTimeout.String(),
			)
			m.logStructured("authority_state_change", AuthorityStateReadOnly, AuthorityStateFailed, m.failCount, err.Error())
			m.sendAlert(AuthorityStateFailed, m.failCount)
			if m.onFailed != nil {
				go m.onFailed()
			}
		}
	}
}

type authorityEvent struct {
	TS        string `json:"ts"`
	Level     string `json:"level"`
	Event     string `json:"event"`
	From      string `json:"from"`
	To        string `json:"to"`
	FailCount int    `json:"fail_count"`
	Reason    string `json:"reason,omitempty"`
}

func (m *AuthorityMonitor) logStructured(event string, from, to AuthorityState, fc int, reason string) {
	ev := authorityEvent{
		TS:        time.Now().UTC().Format(time.RFC3339),
		Level:     levelFor(to),
		Event:     event,
		From:      from.String(),
		To:        to.String(),
		FailCount: fc,
		Reason:    reason,
	}
	b, _ := json.Marshal(ev)
	fmt.Println(string(b)) // structured log to stdout for log aggregator
}

func levelFor(s AuthorityState) string {
	switch s {
	case AuthorityStateFailed:
		return "ERROR"
	case AuthorityStateReadOnly:
		return "WARN"
	default:
		return "INFO"
	}
}

type alertPayload struct {
	Event     string `json:"event"`
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
	FailCount int    `json:"fail_count"`
}

func (m *AuthorityMonitor) sendAlert(state AuthorityState, fc int) {
	if m.cfg.AlertWebhook == "" {
		return
	}
	payload := alertPayload{
		Event:     "authority_failover",
		State:     state.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		FailCount: fc,
	}
	b, _ := json.Marshal(payload)
	go func() {
		resp, err := http.Post(m.cfg.AlertWebhook, "application/json", bytes.NewReader(b))
		if err != nil {
			m.logger.Warn("authority alert webhook failed", "error", err.Error())
			return
		}
		resp.Body.Close()
	}()
}
