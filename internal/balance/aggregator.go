package balance

import (
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-purse/internal/ledger"
	"github.com/Klingon-tech/klingnet-purse/internal/log"
	"github.com/Klingon-tech/klingnet-purse/pkg/crypto"
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// AddressPool is the set of addresses a wallet manages.
type AddressPool interface {
	// ListManaged returns every managed address spec.
	ListManaged() ([]types.AddressSpec, error)
	// MarkUsed records that an address has received funds. It must be
	// idempotent and safe for concurrent callers.
	MarkUsed(hash types.AddressSpecHash) error
	// IsUsed reports whether MarkUsed was ever called for hash.
	IsUsed(hash types.AddressSpecHash) bool
}

// Ledger looks up the outputs paid to one address, with mempool activity
// already merged in.
type Ledger interface {
	Lookup(hash types.AddressSpecHash) ([]ledger.Entry, error)
}

// Aggregator computes per-address and wallet-wide balances.
type Aggregator struct {
	Pool      *Pool
	Ledger    Ledger
	Addresses AddressPool
	// Prefix is the address label used in report lines.
	Prefix string
}

// New returns an Aggregator over the given collaborators.
func New(pool *Pool, l Ledger, addrs AddressPool, prefix string) *Aggregator {
	return &Aggregator{Pool: pool, Ledger: l, Addresses: addrs, Prefix: prefix}
}

// addressResult is the outcome of looking up one address.
type addressResult struct {
	hash    types.AddressSpecHash
	entries []ledger.Entry
	balance ledger.BalanceInfo
}

// lookup fetches and reduces one address, marking it used when it has
// any outputs.
func (a *Aggregator) lookup(hash types.AddressSpecHash) (addressResult, error) {
	entries, err := a.Ledger.Lookup(hash)
	if err != nil {
		return addressResult{}, fmt.Errorf("lookup %s: %w", types.EncodeAddress(a.Prefix, hash), err)
	}
	if len(entries) > 0 {
		if err := a.Addresses.MarkUsed(hash); err != nil {
			return addressResult{}, fmt.Errorf("mark used %s: %w", hash, err)
		}
	}
	return addressResult{hash: hash, entries: entries, balance: ledger.Reduce(entries)}, nil
}

// AddressBalance returns the balance of a single address.
func (a *Aggregator) AddressBalance(hash types.AddressSpecHash) (ledger.BalanceInfo, error) {
	r, err := a.lookup(hash)
	if err != nil {
		return ledger.BalanceInfo{}, err
	}
	return r.balance, nil
}

// managedHashes lists the identifiers of every managed address.
func (a *Aggregator) managedHashes() ([]types.AddressSpecHash, error) {
	specs, err := a.Addresses.ListManaged()
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	hashes := make([]types.AddressSpecHash, len(specs))
	for i, spec := range specs {
		h, err := crypto.HashAddressSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("address %d: %w", i, err)
		}
		hashes[i] = h
	}
	return hashes, nil
}

// lookupAll looks up every managed address on the pool.
func (a *Aggregator) lookupAll() ([]addressResult, error) {
	hashes, err := a.managedHashes()
	if err != nil {
		return nil, err
	}

	defer log.Benchmark("wallet lookup")()
	results, err := Collect(a.Pool, len(hashes), func(i int) (addressResult, error) {
		return a.lookup(hashes[i])
	})
	if err != nil {
		log.Balance.Warn().Err(err).Int("addresses", len(hashes)).Msg("Wallet lookup failed")
		return nil, err
	}
	log.Balance.Debug().Int("addresses", len(hashes)).Msg("Wallet lookup complete")
	return results, nil
}

// WalletBalance returns the sum of every managed address's balance. If any
// lookup fails the whole call fails and no partial total is returned.
func (a *Aggregator) WalletBalance() (ledger.BalanceInfo, error) {
	results, err := a.lookupAll()
	if err != nil {
		return ledger.BalanceInfo{}, err
	}
	var total ledger.BalanceInfo
	for _, r := range results {
		total = total.Add(r.balance)
	}
	return total, nil
}

// Report is a per-address breakdown of the wallet balance.
type Report struct {
	Lines []string           `json:"lines"`
	Total ledger.BalanceInfo `json:"total"`
}

// Report returns one line per used address, sorted, plus the wallet total.
func (a *Aggregator) Report() (Report, error) {
	results, err := a.lookupAll()
	if err != nil {
		return Report{}, err
	}

	var rep Report
	seen := make(map[string]struct{})
	for _, r := range results {
		rep.Total = rep.Total.Add(r.balance)
		if len(r.entries) == 0 && !a.Addresses.IsUsed(r.hash) {
			continue
		}
		line := fmt.Sprintf("Address: %s - %s (%s pending) in %d outputs",
			types.EncodeAddress(a.Prefix, r.hash),
			types.FormatAmount(r.balance.Confirmed),
			types.FormatAmount(r.balance.Unconfirmed),
			len(r.entries))
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		rep.Lines = append(rep.Lines, line)
	}
	sort.Strings(rep.Lines)
	return rep, nil
}

// AddressEntries groups the entries of one address.
type AddressEntries struct {
	Address string         `json:"address"`
	Entries []ledger.Entry `json:"entries"`
}

// AllEntries returns the entries of every managed address that has any,
// in the pool's address order.
func (a *Aggregator) AllEntries() ([]AddressEntries, error) {
	results, err := a.lookupAll()
	if err != nil {
		return nil, err
	}
	var out []AddressEntries
	for _, r := range results {
		if len(r.entries) == 0 {
			continue
		}
		out = append(out, AddressEntries{
			Address: types.EncodeAddress(a.Prefix, r.hash),
			Entries: r.entries,
		})
	}
	return out, nil
}
