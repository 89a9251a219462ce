package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// HookMode selects the interception strategy of the hook adapter.
type HookMode string

const (
	// HookModeLongPoll submits the prompt and blocks on the long-poll route.
	// This is the primary contract.
	HookModeLongPoll HookMode = "longpoll"
	// HookModeTwoPhase always denies the first attempt with an instruction to
	// invoke the confirmation tool; kept as a compatibility fallback for host
	// runtimes that cap hook execution time.
	HookModeTwoPhase HookMode = "twophase"
)

type Config struct {
	// Server
	Port        int
	DBPath      string
	SentinelDir string
	APIKey      string
	LogLevel    string
	// Resolution
	MaxWait       time.Duration
	Retention     time.Duration
	SweepInterval time.Duration
	// SignalBackend selects how hook processes observe sentinels: "file"
	// shares the sentinel directory with the gateway, "http" goes through the
	// gateway's signal routes.
	SignalBackend string
	// Hook adapter
	ServerURL     string
	RulesPath     string
	Mode          HookMode
	ConfirmTool   string
	SubmitTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:          envInt("WARDEN_PORT", 8787),
		DBPath:        envStr("WARDEN_DB_PATH", defaultPath("warden.db")),
		SentinelDir:   envStr("WARDEN_SENTINEL_DIR", defaultPath("signals")),
		APIKey:        envStr("WARDEN_API_KEY", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		MaxWait:       envDuration("WARDEN_MAX_WAIT", 10*time.Minute),
		Retention:     envDuration("WARDEN_RETENTION", time.Hour),
		SweepInterval: envDuration("WARDEN_SWEEP_INTERVAL", time.Minute),
		SignalBackend: envStr("WARDEN_SIGNAL_BACKEND", "file"),
		ServerURL:     envStr("WARDEN_SERVER_URL", "http://localhost:8787"),
		RulesPath:     envStr("WARDEN_RULES_PATH", ""),
		Mode:          HookMode(envStr("WARDEN_HOOK_MODE", string(HookModeLongPoll))),
		ConfirmTool:   envStr("WARDEN_CONFIRM_TOOL", "warden_confirm"),
		SubmitTimeout: envDuration("WARDEN_SUBMIT_TIMEOUT", 10*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("WARDEN_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("WARDEN_DB_PATH must not be empty")
	}
	if c.SentinelDir == "" {
		return fmt.Errorf("WARDEN_SENTINEL_DIR must not be empty")
	}
	if c.MaxWait <= 0 {
		return fmt.Errorf("WARDEN_MAX_WAIT must be positive, got %s", c.MaxWait)
	}
	if c.Retention <= 0 {
		return fmt.Errorf("WARDEN_RETENTION must be positive, got %s", c.Retention)
	}
	if c.SignalBackend != "file" && c.SignalBackend != "http" {
		return fmt.Errorf("WARDEN_SIGNAL_BACKEND must be \"file\" or \"http\", got %q", c.SignalBackend)
	}
	if c.Mode != HookModeLongPoll && c.Mode != HookModeTwoPhase {
		return fmt.Errorf("WARDEN_HOOK_MODE must be %q or %q, got %q", HookModeLongPoll, HookModeTwoPhase, c.Mode)
	}
	return nil
}

// defaultPath places data under ~/.warden, falling back to the working
// directory when no home is available.
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".warden", name)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
