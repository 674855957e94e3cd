package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ErrHelp is returned by Load when usage or version output was requested
// and printed.
var ErrHelp = errors.New("help requested")

// Version is the purse-cli version string.
const Version = "0.1.0"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Node
	NodeURL     string
	NodeTimeout time.Duration

	// Lookup
	Threads int

	// Purse
	KeyPool   int
	WatchOnly bool
	Password  string

	// RPC
	RPCAddr    string
	RPCPort    int
	RPCAllowed string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Command and its arguments
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetWatchOnly bool
	SetLogJSON   bool
}

// Command returns the command name, or "" when none was given.
func (f *Flags) Command() string {
	if len(f.Args) == 0 {
		return ""
	}
	return f.Args[0]
}

// CommandArgs returns the arguments following the command name.
func (f *Flags) CommandArgs() []string {
	if len(f.Args) < 2 {
		return nil
	}
	return f.Args[1:]
}

// ParseFlags parses command-line flags from args (without the program name).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("purse-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet, testnet or regtest)")
	var testnet, regtest bool
	fs.BoolVar(&testnet, "testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.BoolVar(&regtest, "regtest", false, "Use regtest (shorthand for --network=regtest)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Node
	fs.StringVar(&f.NodeURL, "node", "", "Node JSON-RPC URL")
	fs.DurationVar(&f.NodeTimeout, "node-timeout", 0, "Node request timeout")

	// Lookup
	fs.IntVar(&f.Threads, "threads", 0, "Concurrent balance lookups")

	// Purse
	fs.IntVar(&f.KeyPool, "keypool", 0, "Unused derived addresses kept ready")
	fs.BoolVar(&f.WatchOnly, "watch-only", false, "Open the purse without its seed")
	fs.StringVar(&f.Password, "password", "", "Seed encryption password")

	// RPC
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "Wallet RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "Wallet RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for wallet RPC")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	switch {
	case testnet && regtest:
		return nil, fmt.Errorf("--testnet and --regtest are mutually exclusive")
	case testnet:
		f.Network = string(Testnet)
	case regtest:
		f.Network = string(Regtest)
	}
	f.SetWatchOnly = isFlagSet(fs, "watch-only")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Node
	if f.NodeURL != "" {
		cfg.Node.URL = f.NodeURL
	}
	if f.NodeTimeout != 0 {
		cfg.Node.Timeout = f.NodeTimeout
	}

	// Lookup
	if f.Threads != 0 {
		cfg.Lookup.Threads = f.Threads
	}

	// Purse
	if f.KeyPool != 0 {
		cfg.Purse.KeyPoolSize = f.KeyPool
	}
	if f.SetWatchOnly {
		cfg.Purse.WatchOnly = f.WatchOnly
	}
	if f.Password != "" {
		cfg.Purse.Password = f.Password
	}

	// RPC
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the command-line help to w.
func PrintUsage(w io.Writer) {
	usage := `Klingnet Purse - address pool and balance client for a Klingnet node

Usage:
  purse-cli [options] [command] [args]

Commands:
  (none)                 Top up keys, print total balance, stats and a fresh address
  balance                Per-address balances and the total
  monitor                Print the total balance whenever it changes
  getfresh [mark_used] [generate_now]
                         Print an unused address
  spec <address|index>   Show an address spec
  addspec <json|file>    Add a multisig or watched address spec
  nodestatus             Show the node's chain status
  fee                    Show the node's fee estimate
  submit <file>          Relay a signed transaction (JSON) to the node
  rpcserver              Serve the wallet JSON-RPC API
  export <file>          Export the purse (specs, used set, sealed seed)
  export_watch_only <file>
                         Export without the seed
  import <file>          Merge an export into this purse
  import_seed            Create the purse from an existing seed phrase
  show_seed              Print the seed phrase
  init-config            Write a default config file

Core Options:
  --network       Network type: mainnet (default), testnet or regtest
  --testnet       Shorthand for --network=testnet
  --regtest       Shorthand for --network=regtest
  --datadir       Data directory (default: ~/.klingnet-purse)
  --config, -c    Config file path (default: <datadir>/purse.conf)

Node Options:
  --node          Node JSON-RPC URL (mainnet: http://127.0.0.1:8545)
  --node-timeout  Per-request timeout (default: 10s)
  --threads       Concurrent balance lookups (default: 64)

Purse Options:
  --keypool       Unused derived addresses kept ready (default: 100)
  --watch-only    Open the purse without its seed
  --password      Seed encryption password (prompted when unset)

RPC Options:
  --rpc-addr      Wallet RPC listen address (default: 127.0.0.1)
  --rpc-port      Wallet RPC port (mainnet: 8547, testnet: 8647)
  --rpc-allowed   Allowed IPs for wallet RPC (comma-separated)

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stderr)
  --log-json      Output logs as JSON

Examples:
  # Balance of a testnet purse
  purse-cli --testnet balance

  # Serve the wallet API against a remote node
  purse-cli --node=http://10.0.0.5:8545 rpcserver
`
	fmt.Fprint(w, usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Config file
// 3. Command-line flags
//
// It returns ErrHelp after printing usage or version information.
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}

	// Handle help/version
	if flags.Help {
		PrintUsage(os.Stdout)
		return nil, nil, ErrHelp
	}
	if flags.Version {
		fmt.Println("purse-cli version " + Version)
		return nil, nil, ErrHelp
	}

	// Determine network first (needed for defaults)
	network := Mainnet
	if flags.Network != "" {
		network = NetworkType(strings.ToLower(flags.Network))
	}
	cfg := Default(network)

	// Override datadir if specified
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	// Determine config file path
	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	// Load config file
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}

	// A network chosen in the file resets the per-network defaults.
	if n, ok := fileValues["network"]; ok && flags.Network == "" && NetworkType(strings.ToLower(n)) != cfg.Network {
		dataDir := cfg.DataDir
		cfg = Default(NetworkType(strings.ToLower(n)))
		cfg.DataDir = dataDir
	}

	// Apply file config
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Apply flags (highest precedence)
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure if it does not
// exist. It is idempotent.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.PurseDir(), cfg.LogsDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}
