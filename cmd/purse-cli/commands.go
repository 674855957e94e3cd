package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Klingon-tech/klingnet-purse/config"
	"github.com/Klingon-tech/klingnet-purse/internal/ledger"
	klog "github.com/Klingon-tech/klingnet-purse/internal/log"
	"github.com/Klingon-tech/klingnet-purse/internal/purse"
	"github.com/Klingon-tech/klingnet-purse/internal/rpc"
	"github.com/Klingon-tech/klingnet-purse/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-purse/pkg/crypto"
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// monitorInterval is the balance polling period of the monitor command.
const monitorInterval = 10 * time.Second

// ── (default) ───────────────────────────────────────────────────────────

func cmdDefault(a *app) error {
	if _, err := a.purse.MaintainKeys(); err != nil {
		return fmt.Errorf("maintain keys: %w", err)
	}

	total, err := a.agg.WalletBalance()
	if err != nil {
		return err
	}
	fmt.Printf("Total: %s\n", total)

	printStats(a.purse.Stats())

	h, err := a.purse.FreshAddress(false, false)
	if err != nil {
		return err
	}
	fmt.Printf("Fresh address: %s\n", types.EncodeAddress(a.prefix, h))
	return nil
}

func printStats(st purse.Stats) {
	fmt.Printf("Keys:      %d\n", st.Keys)
	fmt.Printf("Addresses: %d (%d used, %d fresh)\n", st.Addresses, st.Used, st.Fresh)
	if st.Multisig > 0 {
		fmt.Printf("Multisig:  %d\n", st.Multisig)
	}
	if st.WatchOnly {
		fmt.Println("Watch-only")
	}
	kinds := make([]string, 0, len(st.Types))
	for k := range st.Types {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("  %s: %d\n", k, st.Types[k])
	}
}

// ── balance ─────────────────────────────────────────────────────────────

func cmdBalance(a *app) error {
	r, err := a.agg.Report()
	if err != nil {
		return err
	}
	for _, line := range r.Lines {
		fmt.Println(line)
	}
	fmt.Printf("Total: %s\n", r.Total)
	return nil
}

// ── monitor ─────────────────────────────────────────────────────────────

// cmdMonitor prints the wallet total whenever it changes until interrupted.
// Failed lookups are logged and retried on the next tick with a fresh
// connection pool.
func cmdMonitor(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	var (
		last    ledger.BalanceInfo
		printed bool
	)
	for {
		total, err := a.agg.WalletBalance()
		switch {
		case err != nil:
			klog.Balance.Warn().Err(err).Bool("transient", rpcclient.IsTransient(err)).Msg("Balance lookup failed")
			a.reconnect()
		case !printed || total != last:
			fmt.Printf("Total: %s\n", total)
			last, printed = total, true
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// reconnect replaces the node client so a node restart does not leave the
// monitor stuck on dead connections.
func (a *app) reconnect() {
	client := rpcclient.NewWithOptions(a.cfg.Node.URL, rpcclient.Options{
		Timeout:         a.cfg.Node.Timeout,
		MaxConnsPerHost: a.cfg.Lookup.Threads,
	})
	a.ledger = rpcclient.NewLedgerClient(client, a.prefix)
	a.agg.Ledger = a.ledger
}

// ── getfresh ────────────────────────────────────────────────────────────

// parseFreshArgs reads the optional "mark_used" and "generate_now" words.
func parseFreshArgs(args []string) (markUsed, generateNow bool, err error) {
	for _, arg := range args {
		switch arg {
		case "mark_used":
			markUsed = true
		case "generate_now":
			generateNow = true
		default:
			return false, false, fmt.Errorf("getfresh: unknown argument %q (want mark_used or generate_now)", arg)
		}
	}
	return markUsed, generateNow, nil
}

func cmdGetFresh(a *app, args []string) error {
	markUsed, generateNow, err := parseFreshArgs(args)
	if err != nil {
		return err
	}
	h, err := a.purse.FreshAddress(markUsed, generateNow)
	if err != nil {
		return err
	}
	spec, _ := a.purse.Spec(h)
	return crypto.DescribeSpec(os.Stdout, a.prefix, spec)
}

// ── spec ────────────────────────────────────────────────────────────────

// resolveSpec finds the managed spec named by arg, either a position in
// the purse or an address.
func resolveSpec(p *purse.Purse, prefix, arg string) (types.AddressSpec, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		spec, _, err := p.SpecAt(i)
		return spec, err
	}
	h, err := types.DecodeAddress(prefix, arg)
	if err != nil {
		return types.AddressSpec{}, err
	}
	spec, ok := p.Spec(h)
	if !ok {
		return types.AddressSpec{}, fmt.Errorf("%s: %w", arg, purse.ErrUnknownAddress)
	}
	return spec, nil
}

func cmdSpec(a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: purse-cli spec <address|index>")
	}
	spec, err := resolveSpec(a.purse, a.prefix, args[0])
	if err != nil {
		return err
	}
	if err := crypto.DescribeSpec(os.Stdout, a.prefix, spec); err != nil {
		return err
	}
	h := crypto.MustHashAddressSpec(spec)
	fmt.Printf("Type:      %s\n", crypto.TypeSummary(spec))
	fmt.Printf("Spec hash: %s\n", h)
	fmt.Printf("Used:      %v\n", a.purse.IsUsed(h))
	return nil
}

// ── addspec ─────────────────────────────────────────────────────────────

// parseSpecArg reads an address spec given inline as JSON or as the path
// of a JSON file.
func parseSpecArg(arg string) (types.AddressSpec, error) {
	data := []byte(arg)
	if !strings.HasPrefix(strings.TrimSpace(arg), "{") {
		var err error
		if data, err = os.ReadFile(arg); err != nil {
			return types.AddressSpec{}, err
		}
	}
	var spec types.AddressSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return types.AddressSpec{}, fmt.Errorf("parse address spec: %w", err)
	}
	return spec, nil
}

func cmdAddSpec(a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: purse-cli addspec <json|file>")
	}
	spec, err := parseSpecArg(args[0])
	if err != nil {
		return err
	}
	if _, err := a.purse.AddSpec(spec); err != nil {
		return err
	}
	return crypto.DescribeSpec(os.Stdout, a.prefix, spec)
}

// ── nodestatus / fee ────────────────────────────────────────────────────

func cmdNodeStatus(a *app) error {
	info, err := a.ledger.NodeStatus()
	if err != nil {
		return fmt.Errorf("node status: %w", err)
	}
	fmt.Printf("Node:    %s\n", a.cfg.Node.URL)
	fmt.Printf("Chain:   %s\n", info.ChainID)
	if info.Symbol != "" {
		fmt.Printf("Symbol:  %s\n", info.Symbol)
	}
	fmt.Printf("Height:  %d\n", info.Height)
	fmt.Printf("Tip:     %s\n", info.TipHash)
	return nil
}

func cmdFee(a *app) error {
	rate, err := a.ledger.FeeEstimate()
	if err != nil {
		return fmt.Errorf("fee estimate: %w", err)
	}
	fmt.Printf("Fee rate: %d units/byte\n", rate)
	return nil
}

func cmdSubmit(a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: purse-cli submit <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("%s: not a JSON transaction", args[0])
	}
	txHash, err := a.ledger.SubmitOrError(json.RawMessage(data))
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Printf("Submitted: %s\n", txHash)
	return nil
}

// ── rpcserver ───────────────────────────────────────────────────────────

func cmdRPCServer(a *app) error {
	if _, err := a.purse.MaintainKeys(); err != nil {
		return fmt.Errorf("maintain keys: %w", err)
	}
	addr := fmt.Sprintf("%s:%d", a.cfg.RPC.Addr, a.cfg.RPC.Port)
	srv := rpc.New(addr, a.prefix, a.agg, a.purse, a.ledger, a.cfg.RPC)
	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Serving wallet RPC on %s\n", srv.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	return srv.Stop()
}

// ── export / import ─────────────────────────────────────────────────────

func cmdExport(a *app, args []string, watchOnly bool) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: purse-cli export <file>")
	}
	data, err := a.purse.Export(watchOnly)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		return err
	}
	fmt.Printf("Exported %d addresses to %s\n", a.purse.Stats().Addresses, args[0])
	return nil
}

func cmdImport(a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: purse-cli import <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	added, err := a.purse.Import(data)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d new addresses\n", added)
	return nil
}

// ── show_seed ───────────────────────────────────────────────────────────

func cmdShowSeed(a *app) error {
	m, err := a.purse.Mnemonic()
	if err != nil {
		return err
	}
	fmt.Println("Seed phrase (keep this secret!):")
	fmt.Printf("  %s\n", m)
	return nil
}

// ── init-config ─────────────────────────────────────────────────────────

func cmdInitConfig(cfg *config.Config, flags *config.Flags) error {
	path := flags.Config
	if path == "" {
		if err := config.EnsureDataDirs(cfg); err != nil {
			return err
		}
		path = cfg.ConfigFile()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.WriteDefaultConfig(path, cfg.Network); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
