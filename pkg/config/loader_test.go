package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("http port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Hub.Timeout != 30*time.Second {
		t.Errorf("hub timeout = %v, want 30s", cfg.Hub.Timeout)
	}
	if cfg.Sync.DataInterval != 15*time.Minute {
		t.Errorf("data interval = %v, want 15m", cfg.Sync.DataInterval)
	}
	if cfg.Sync.StatusInterval != time.Minute {
		t.Errorf("status interval = %v, want 1m", cfg.Sync.StatusInterval)
	}
	if cfg.NATS.MaxReconnects != -1 {
		t.Errorf("nats max reconnects = %d, want -1", cfg.NATS.MaxReconnects)
	}
	if cfg.NATS.ReconnectWait != 2*time.Second {
		t.Errorf("nats reconnect wait = %v, want 2s", cfg.NATS.ReconnectWait)
	}
	if !cfg.CircuitBreaker.Enabled {
		t.Error("circuit breaker not enabled by default")
	}
	if cfg.CircuitBreaker.Interval != time.Minute {
		t.Errorf("breaker interval = %v, want 1m", cfg.CircuitBreaker.Interval)
	}
	if cfg.CircuitBreaker.Timeout != 30*time.Second {
		t.Errorf("breaker timeout = %v, want 30s", cfg.CircuitBreaker.Timeout)
	}
	if cfg.CircuitBreaker.ConsecutiveFailures != 5 {
		t.Errorf("breaker consecutive failures = %d, want 5", cfg.CircuitBreaker.ConsecutiveFailures)
	}
}
