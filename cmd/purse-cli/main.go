// purse-cli manages a Klingnet purse: a local pool of address specs whose
// balances are looked up on a Klingnet node.
//
// Usage:
//
//	purse-cli [options] [command] [args]
//	purse-cli --help
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/Klingon-tech/klingnet-purse/config"
	"github.com/Klingon-tech/klingnet-purse/internal/balance"
	klog "github.com/Klingon-tech/klingnet-purse/internal/log"
	"github.com/Klingon-tech/klingnet-purse/internal/purse"
	"github.com/Klingon-tech/klingnet-purse/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-purse/internal/storage"
	"golang.org/x/term"
)

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		return
	}
	if err != nil {
		fatal("%v", err)
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	if err := run(cfg, flags); err != nil {
		fatal("%v", err)
	}
}

// run executes the command named in flags.
func run(cfg *config.Config, flags *config.Flags) error {
	cmd := flags.Command()
	args := flags.CommandArgs()

	// Commands that do not open the purse.
	switch cmd {
	case "init-config":
		return cmdInitConfig(cfg, flags)
	case "help":
		config.PrintUsage(os.Stdout)
		return nil
	}
	if !knownCommand(cmd) {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		config.PrintUsage(os.Stderr)
		os.Exit(1)
	}

	a, err := openApp(cfg, cmd == "import_seed")
	if err != nil {
		return err
	}
	defer a.close()

	switch cmd {
	case "":
		return cmdDefault(a)
	case "balance":
		return cmdBalance(a)
	case "monitor":
		return cmdMonitor(a)
	case "getfresh":
		return cmdGetFresh(a, args)
	case "spec":
		return cmdSpec(a, args)
	case "addspec":
		return cmdAddSpec(a, args)
	case "nodestatus":
		return cmdNodeStatus(a)
	case "fee":
		return cmdFee(a)
	case "submit":
		return cmdSubmit(a, args)
	case "rpcserver":
		return cmdRPCServer(a)
	case "export":
		return cmdExport(a, args, false)
	case "export_watch_only":
		return cmdExport(a, args, true)
	case "import":
		return cmdImport(a, args)
	case "import_seed":
		// The seed was imported while opening.
		fmt.Println("Seed imported.")
		return cmdDefault(a)
	case "show_seed":
		return cmdShowSeed(a)
	}
	return nil
}

var commands = []string{
	"", "balance", "monitor", "getfresh", "spec", "addspec", "nodestatus", "fee", "submit", "rpcserver",
	"export", "export_watch_only", "import", "import_seed", "show_seed",
}

func knownCommand(cmd string) bool {
	for _, c := range commands {
		if c == cmd {
			return true
		}
	}
	return false
}

// app bundles everything a command needs.
type app struct {
	cfg    *config.Config
	prefix string
	db     *storage.BadgerDB
	purse  *purse.Purse
	ledger *rpcclient.LedgerClient
	pool   *balance.Pool
	agg    *balance.Aggregator
}

// openApp opens the purse database and wires the node client and the
// balance aggregator around it.
func openApp(cfg *config.Config, importSeed bool) (*app, error) {
	if err := config.EnsureDataDirs(cfg); err != nil {
		return nil, err
	}
	db, err := storage.NewBadger(cfg.PurseDir())
	if err != nil {
		return nil, err
	}
	// One database holds every network's purse.
	pdb := storage.NewPrefixDB(db, []byte(string(cfg.Network)+"/"))

	exists, err := purse.Exists(pdb)
	if err != nil {
		db.Close()
		return nil, err
	}

	opts := purse.Options{
		KeyPoolSize: cfg.Purse.KeyPoolSize,
		WatchOnly:   cfg.Purse.WatchOnly,
		Password:    cfg.Purse.Password,
	}
	if importSeed {
		if exists {
			db.Close()
			return nil, purse.ErrSeedExists
		}
		if opts.ImportSeed, err = readSeed(); err != nil {
			db.Close()
			return nil, err
		}
	}
	hasSeed, err := purse.HasSeed(pdb)
	if err != nil {
		db.Close()
		return nil, err
	}
	// A new purse gets a seed unless it is created watch-only.
	if !opts.WatchOnly && opts.Password == "" && (hasSeed || !exists) {
		if opts.Password, err = promptPassword(!exists); err != nil {
			db.Close()
			return nil, err
		}
	}

	p, err := purse.Open(pdb, opts)
	if err != nil {
		if !exists {
			// Drop whatever a failed creation left behind.
			if derr := pdb.DeleteAll(); derr != nil {
				klog.Purse.Warn().Err(derr).Msg("Failed to clean up new purse")
			}
		}
		db.Close()
		return nil, err
	}
	if !exists && opts.ImportSeed == "" && p.CanDerive() {
		fmt.Fprintln(os.Stderr, "Created a new purse. Back up its seed with: purse-cli show_seed")
	}

	client := rpcclient.NewWithOptions(cfg.Node.URL, rpcclient.Options{
		Timeout:         cfg.Node.Timeout,
		MaxConnsPerHost: cfg.Lookup.Threads,
	})
	prefix := cfg.AddressPrefix()
	lc := rpcclient.NewLedgerClient(client, prefix)
	pool := balance.NewPool(cfg.Lookup.Threads)
	pool.Start()

	l := klog.WithNetwork(string(cfg.Network))
	l.Debug().
		Str("node", cfg.Node.URL).
		Int("threads", cfg.Lookup.Threads).
		Int("addresses", p.Stats().Addresses).
		Msg("Purse opened")

	return &app{
		cfg:    cfg,
		prefix: prefix,
		db:     db,
		purse:  p,
		ledger: lc,
		pool:   pool,
		agg:    balance.New(pool, lc, p, prefix),
	}, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Stop()
	}
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

// ── Prompts ─────────────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// promptPassword asks for the seed password, twice when a new seed is
// about to be sealed with it.
func promptPassword(confirm bool) (string, error) {
	password, err := readPassword("Purse password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if confirm {
		again, err := readPassword("Confirm password: ")
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if string(password) != string(again) {
			return "", fmt.Errorf("passwords do not match")
		}
	}
	return string(password), nil
}

func readSeed() (string, error) {
	seed, err := readPassword("Seed phrase: ")
	if err != nil {
		return "", fmt.Errorf("read seed: %w", err)
	}
	mnemonic := strings.TrimSpace(string(seed))
	if !purse.ValidateMnemonic(mnemonic) {
		return "", purse.ErrBadMnemonic
	}
	return mnemonic, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
