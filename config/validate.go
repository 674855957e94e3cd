package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := Params(cfg.Network); err != nil {
		return err
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is empty")
	}

	u, err := url.Parse(cfg.Node.URL)
	if err != nil {
		return fmt.Errorf("node.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("node.url must be an http(s) URL, got %q", cfg.Node.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("node.url has no host")
	}
	if cfg.Node.Timeout <= 0 {
		return fmt.Errorf("node.timeout must be positive")
	}

	if cfg.Lookup.Threads < 1 {
		return fmt.Errorf("lookup.threads must be at least 1")
	}
	if cfg.Purse.KeyPoolSize < 1 {
		return fmt.Errorf("purse.keypool must be at least 1")
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	for i, ip := range cfg.RPC.AllowedIPs {
		ip = strings.TrimSpace(ip)
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("rpc.allowed[%d] %q is not an IP address", i, ip)
		}
		cfg.RPC.AllowedIPs[i] = ip
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}
