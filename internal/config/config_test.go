package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8787 {
		t.Errorf("Port = %d, want 8787", cfg.Port)
	}
	if cfg.MaxWait != 10*time.Minute {
		t.Errorf("MaxWait = %s, want 10m", cfg.MaxWait)
	}
	if cfg.Retention != time.Hour {
		t.Errorf("Retention = %s, want 1h", cfg.Retention)
	}
	if cfg.Mode != HookModeLongPoll {
		t.Errorf("Mode = %s, want longpoll", cfg.Mode)
	}
	if cfg.SignalBackend != "file" {
		t.Errorf("SignalBackend = %s, want file", cfg.SignalBackend)
	}
	if cfg.ConfirmTool != "warden_confirm" {
		t.Errorf("ConfirmTool = %s", cfg.ConfirmTool)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WARDEN_PORT", "9999")
	t.Setenv("WARDEN_MAX_WAIT", "30s")
	t.Setenv("WARDEN_HOOK_MODE", "twophase")
	t.Setenv("WARDEN_SIGNAL_BACKEND", "http")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.MaxWait != 30*time.Second {
		t.Errorf("MaxWait = %s", cfg.MaxWait)
	}
	if cfg.Mode != HookModeTwoPhase {
		t.Errorf("Mode = %s", cfg.Mode)
	}
	if cfg.SignalBackend != "http" {
		t.Errorf("SignalBackend = %s", cfg.SignalBackend)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "WARDEN_PORT", "70000"},
		{"bad hook mode", "WARDEN_HOOK_MODE", "push"},
		{"bad signal backend", "WARDEN_SIGNAL_BACKEND", "redis"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestEnvDurationFallback(t *testing.T) {
	t.Setenv("WARDEN_TEST_DUR", "not-a-duration")
	if got := envDuration("WARDEN_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("unparseable duration should fall back, got %s", got)
	}
}
