package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/hook"
	sig "github.com/wardenhq/warden/internal/signal"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run one interception: tool-call JSON on stdin, decision JSON on stdout",
	Long: `Reads a PreToolUse descriptor from stdin and writes the allow/deny
decision to stdout. Wire it into the agent runtime's hook configuration.
All diagnostics go to stderr; stdout carries only the decision object.`,
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	// stdout belongs to the decision payload; log to stderr only.
	logger := newLogger(os.Getenv("LOG_LEVEL"), os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rules, err := hook.LoadRules(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("load gating rules: %w", err)
	}

	var sentinels sig.Channel
	if cfg.SignalBackend == "http" {
		sentinels = sig.NewHTTPChannel(cfg.ServerURL, cfg.APIKey)
	} else {
		sentinels = sig.NewFileChannel(cfg.SentinelDir)
	}

	runner := &hook.Runner{
		Rules:       rules,
		Gateway:     hook.NewClient(cfg.ServerURL, cfg.APIKey, cfg.SubmitTimeout),
		Signals:     sentinels,
		Mode:        cfg.Mode,
		ConfirmTool: cfg.ConfirmTool,
		Log:         logger,
	}
	return runner.Run(cmd.Context(), os.Stdin, os.Stdout)
}
