package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags     (cmd/root.go)
//   2. Config file   (file.go)
//   3. Environment variables  (this file)
//   4. Defaults      (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the BIDMASTER_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Call it before flag parsing so
// that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if envBool("LISTEN") {
		cfg.Listen = true
	}
	if v := env("HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("PORT"); v > 0 {
		cfg.Port = v
	}
	if envBool("NO_DNS") {
		cfg.NoDNS = true
	}

	// Auctioneer
	if v := env("ITEM"); v != "" {
		cfg.Item = v
	}
	if v := env("STATUS_ADDR"); v != "" {
		cfg.StatusAddr = v
	}
	if v := envDuration("FLUSH_TIMEOUT"); v > 0 {
		cfg.FlushTimeout = v
	}
	if v := envInt("BACKLOG"); v > 0 {
		cfg.Backlog = v
	}

	// Bidder
	if v := env("NAME"); v != "" {
		cfg.Name = v
	}
	if v := envDuration("TIMEOUT"); v > 0 {
		cfg.Timeout = v
	}

	// SSH gateway
	if v := env("TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := env("SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := env("KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string { return os.Getenv(EnvPrefix + key) }

func envInt(key string) int {
	v := env(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(env(key))
	return v == "1" || v == "true" || v == "yes"
}

// envDuration accepts a Go duration ("1500ms") or whole seconds ("3").
func envDuration(key string) time.Duration {
	v := env(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 0
}
