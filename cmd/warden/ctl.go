package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/config"
)

// Operator commands against a running gateway. Output is the raw JSON body so
// it pipes cleanly into jq.

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List known sessions and their states",
	RunE: func(cmd *cobra.Command, args []string) error {
		return callGateway(http.MethodGet, "/sessions", nil)
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending <sessionId>",
	Short: "List a session's pending prompts in surfacing order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callGateway(http.MethodGet, "/sessions/"+url.PathEscape(args[0])+"/prompts", nil)
	},
}

var (
	resolveDeny   bool
	resolveReason string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <requestId>",
	Short: "Supply the decision for a pending prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{
			"approved": !resolveDeny,
		}
		if resolveReason != "" {
			body["reason"] = resolveReason
		}
		return callGateway(http.MethodPost, "/plan/resolve/"+url.PathEscape(args[0]), body)
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveDeny, "deny", false, "Deny instead of approve")
	resolveCmd.Flags().StringVar(&resolveReason, "reason", "", "Human-readable reason passed back to the agent")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(resolveCmd)
}

func callGateway(method, path string, body any) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, cfg.ServerURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	fmt.Println()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}
