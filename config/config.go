// Package config handles purse configuration.
//
// Settings come from three layers, later ones winning: built-in defaults
// per network, the key = value config file, and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// NetworkType identifies the network the purse talks to.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Regtest NetworkType = "regtest"
)

// NetworkParams holds the fixed per-network values.
type NetworkParams struct {
	Name          NetworkType
	AddressPrefix string // Duck32 label
	NodePort      int    // default node JSON-RPC port
	RPCPort       int    // default port of the purse's own RPC server
}

var networks = map[NetworkType]NetworkParams{
	Mainnet: {Name: Mainnet, AddressPrefix: types.MainnetPrefix, NodePort: 8545, RPCPort: 8547},
	Testnet: {Name: Testnet, AddressPrefix: types.TestnetPrefix, NodePort: 8645, RPCPort: 8647},
	Regtest: {Name: Regtest, AddressPrefix: types.RegtestPrefix, NodePort: 8745, RPCPort: 8747},
}

// Params returns the parameters of network.
func Params(network NetworkType) (NetworkParams, error) {
	p, ok := networks[network]
	if !ok {
		return NetworkParams{}, fmt.Errorf("unknown network %q (want mainnet, testnet or regtest)", network)
	}
	return p, nil
}

// Config holds the purse's runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Node the balances are looked up on
	Node NodeConfig

	// Balance lookups
	Lookup LookupConfig

	// Address pool
	Purse PurseConfig

	// Wallet RPC server
	RPC RPCConfig

	// Logging
	Log LogConfig
}

// NodeConfig holds the remote node settings.
type NodeConfig struct {
	URL     string        `conf:"node.url"`
	Timeout time.Duration `conf:"node.timeout"`
}

// LookupConfig holds balance lookup settings.
type LookupConfig struct {
	Threads int `conf:"lookup.threads"` // concurrent lookups, also the per-host connection cap
}

// PurseConfig holds address pool settings.
type PurseConfig struct {
	KeyPoolSize int    `conf:"purse.keypool"`
	WatchOnly   bool   `conf:"purse.watchonly"`
	Password    string `conf:"purse.password"`
}

// RPCConfig holds wallet RPC server settings.
type RPCConfig struct {
	Enabled    bool     `conf:"rpc.enabled"`
	Addr       string   `conf:"rpc.addr"`
	Port       int      `conf:"rpc.port"`
	AllowedIPs []string `conf:"rpc.allowed"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// AddressPrefix returns the Duck32 label of the configured network.
func (c *Config) AddressPrefix() string {
	p, err := Params(c.Network)
	if err != nil {
		return types.MainnetPrefix
	}
	return p.AddressPrefix
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-purse
//	macOS:   ~/Library/Application Support/KlingnetPurse
//	Windows: %APPDATA%\KlingnetPurse
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-purse"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetPurse")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetPurse")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetPurse")
	default:
		return filepath.Join(home, ".klingnet-purse")
	}
}

// PurseDir returns the purse database directory. Networks share one
// database and are kept apart by key prefix.
func (c *Config) PurseDir() string {
	return filepath.Join(c.DataDir, "purse")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "purse.conf")
}
