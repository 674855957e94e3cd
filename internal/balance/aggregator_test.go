package balance

import (
	"bytes"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-purse/internal/ledger"
	"github.com/Klingon-tech/klingnet-purse/pkg/crypto"
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// ── Fakes ───────────────────────────────────────────────────────────────

type fakeAddresses struct {
	specs []types.AddressSpec

	mu       sync.Mutex
	used     map[types.AddressSpecHash]bool
	markCall map[types.AddressSpecHash]int
	listErr  error
}

func newFakeAddresses(n int) *fakeAddresses {
	f := &fakeAddresses{
		used:     make(map[types.AddressSpecHash]bool),
		markCall: make(map[types.AddressSpecHash]int),
	}
	for i := 0; i < n; i++ {
		pub := bytes.Repeat([]byte{byte(i + 1)}, 33)
		pub[0] = 0x02
		f.specs = append(f.specs, types.SimpleSpec(pub, types.SigSecp256k1))
	}
	return f
}

func (f *fakeAddresses) ListManaged() ([]types.AddressSpec, error) {
	return f.specs, f.listErr
}

func (f *fakeAddresses) MarkUsed(h types.AddressSpecHash) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used[h] = true
	f.markCall[h]++
	return nil
}

func (f *fakeAddresses) IsUsed(h types.AddressSpecHash) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.used[h]
}

func (f *fakeAddresses) hash(i int) types.AddressSpecHash {
	return crypto.MustHashAddressSpec(f.specs[i])
}

type fakeLedger struct {
	entries map[types.AddressSpecHash][]ledger.Entry
	fail    map[types.AddressSpecHash]error
	jitter  bool
}

func (f *fakeLedger) Lookup(h types.AddressSpecHash) ([]ledger.Entry, error) {
	if f.jitter {
		time.Sleep(time.Duration(rand.Intn(500)) * time.Microsecond)
	}
	if err := f.fail[h]; err != nil {
		return nil, err
	}
	return f.entries[h], nil
}

func setup(t *testing.T, n int) (*Aggregator, *fakeAddresses, *fakeLedger) {
	t.Helper()
	addrs := newFakeAddresses(n)
	l := &fakeLedger{
		entries: make(map[types.AddressSpecHash][]ledger.Entry),
		fail:    make(map[types.AddressSpecHash]error),
	}
	pool := NewPool(8)
	t.Cleanup(pool.Stop)
	return New(pool, l, addrs, types.MainnetPrefix), addrs, l
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestAddressBalance(t *testing.T) {
	agg, addrs, l := setup(t, 2)
	h := addrs.hash(0)
	l.entries[h] = []ledger.Entry{{Value: 100}, {Value: 50, Unconfirmed: true}}

	got, err := agg.AddressBalance(h)
	if err != nil {
		t.Fatalf("AddressBalance: %v", err)
	}
	want := ledger.BalanceInfo{Confirmed: 100, Unconfirmed: 50, Spendable: 150}
	if got != want {
		t.Errorf("AddressBalance = %+v, want %+v", got, want)
	}
	if !addrs.IsUsed(h) {
		t.Error("address with outputs should be marked used")
	}

	empty := addrs.hash(1)
	if _, err := agg.AddressBalance(empty); err != nil {
		t.Fatalf("AddressBalance(empty): %v", err)
	}
	if addrs.IsUsed(empty) {
		t.Error("address without outputs should not be marked used")
	}
}

func TestWalletBalance_SumOfAddresses(t *testing.T) {
	const n = 50
	agg, addrs, l := setup(t, n)
	l.jitter = true

	r := rand.New(rand.NewSource(7))
	var want ledger.BalanceInfo
	for i := 0; i < n; i++ {
		h := addrs.hash(i)
		for j := r.Intn(4); j > 0; j-- {
			l.entries[h] = append(l.entries[h], ledger.Entry{
				Outpoint:    types.Outpoint{Index: uint32(j)},
				Value:       uint64(r.Intn(10_000)),
				Unconfirmed: r.Intn(2) == 0,
				Spent:       r.Intn(3) == 0,
			})
		}
		single, err := agg.AddressBalance(h)
		if err != nil {
			t.Fatalf("AddressBalance(%d): %v", i, err)
		}
		want = want.Add(single)
	}

	for round := 0; round < 5; round++ {
		got, err := agg.WalletBalance()
		if err != nil {
			t.Fatalf("WalletBalance: %v", err)
		}
		if got != want {
			t.Fatalf("round %d: WalletBalance = %+v, want %+v", round, got, want)
		}
	}
}

func TestWalletBalance_AnyFailureFails(t *testing.T) {
	agg, addrs, l := setup(t, 10)
	for i := 0; i < 10; i++ {
		l.entries[addrs.hash(i)] = []ledger.Entry{{Value: 10}}
	}
	boom := errors.New("node unreachable")
	l.fail[addrs.hash(7)] = boom

	got, err := agg.WalletBalance()
	if !errors.Is(err, boom) {
		t.Fatalf("WalletBalance err = %v, want %v", err, boom)
	}
	if !got.IsZero() {
		t.Errorf("failed WalletBalance returned partial total %+v", got)
	}

	if _, err := agg.Report(); !errors.Is(err, boom) {
		t.Errorf("Report err = %v, want %v", err, boom)
	}
}

func TestWalletBalance_ListError(t *testing.T) {
	agg, addrs, _ := setup(t, 1)
	addrs.listErr = errors.New("db closed")
	if _, err := agg.WalletBalance(); err == nil {
		t.Error("WalletBalance should fail when the address list fails")
	}
}

func TestWalletBalance_InvalidSpec(t *testing.T) {
	agg, addrs, _ := setup(t, 1)
	addrs.specs = append(addrs.specs, types.AddressSpec{})
	_, err := agg.WalletBalance()
	if !types.IsValidation(err) {
		t.Errorf("WalletBalance err = %v, want a ValidationError", err)
	}
}

func TestWalletBalance_Empty(t *testing.T) {
	agg, _, _ := setup(t, 0)
	got, err := agg.WalletBalance()
	if err != nil {
		t.Fatalf("WalletBalance: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("WalletBalance of empty wallet = %+v", got)
	}
}

func TestMarkUsed_OncePerLookup(t *testing.T) {
	agg, addrs, l := setup(t, 3)
	h := addrs.hash(1)
	l.entries[h] = []ledger.Entry{{Value: 1}}

	if _, err := agg.WalletBalance(); err != nil {
		t.Fatalf("WalletBalance: %v", err)
	}
	if c := addrs.markCall[h]; c != 1 {
		t.Errorf("MarkUsed called %d times, want 1", c)
	}
	if c := addrs.markCall[addrs.hash(0)]; c != 0 {
		t.Errorf("MarkUsed called %d times for an empty address", c)
	}
}

func TestReport(t *testing.T) {
	agg, addrs, l := setup(t, 4)
	l.entries[addrs.hash(0)] = []ledger.Entry{{Value: 2 * types.Coin}}
	l.entries[addrs.hash(2)] = []ledger.Entry{
		{Value: types.Coin, Spent: true},
		{Value: types.Coin / 2, Unconfirmed: true},
	}
	// Previously used, now empty: still listed.
	if err := addrs.MarkUsed(addrs.hash(3)); err != nil {
		t.Fatal(err)
	}

	rep, err := agg.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(rep.Lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(rep.Lines), strings.Join(rep.Lines, "\n"))
	}
	if !sort.StringsAreSorted(rep.Lines) {
		t.Error("report lines are not sorted")
	}

	addr0 := types.EncodeAddress(types.MainnetPrefix, addrs.hash(0))
	want0 := "Address: " + addr0 + " - 2.000000 (0.000000 pending) in 1 outputs"
	addr2 := types.EncodeAddress(types.MainnetPrefix, addrs.hash(2))
	want2 := "Address: " + addr2 + " - 1.000000 (-0.500000 pending) in 2 outputs"
	addr3 := types.EncodeAddress(types.MainnetPrefix, addrs.hash(3))
	want3 := "Address: " + addr3 + " - 0.000000 (0.000000 pending) in 0 outputs"
	for _, want := range []string{want0, want2, want3} {
		found := false
		for _, line := range rep.Lines {
			if line == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing line %q in\n%s", want, strings.Join(rep.Lines, "\n"))
		}
	}

	wantTotal := ledger.BalanceInfo{Confirmed: 3 * types.Coin, Unconfirmed: -types.Coin / 2, Spendable: 2*types.Coin + types.Coin/2}
	if rep.Total != wantTotal {
		t.Errorf("Total = %+v, want %+v", rep.Total, wantTotal)
	}
}

func TestReport_DuplicateSpecs(t *testing.T) {
	agg, addrs, l := setup(t, 1)
	addrs.specs = append(addrs.specs, addrs.specs[0])
	l.entries[addrs.hash(0)] = []ledger.Entry{{Value: 5}}

	rep, err := agg.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(rep.Lines) != 1 {
		t.Errorf("duplicate address produced %d lines, want 1", len(rep.Lines))
	}
}

func TestAllEntries(t *testing.T) {
	agg, addrs, l := setup(t, 3)
	l.entries[addrs.hash(2)] = []ledger.Entry{{Value: 7}, {Value: 8, Spent: true}}

	all, err := agg.AllEntries()
	if err != nil {
		t.Fatalf("AllEntries: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d addresses, want 1", len(all))
	}
	if all[0].Address != types.EncodeAddress(types.MainnetPrefix, addrs.hash(2)) {
		t.Errorf("Address = %s", all[0].Address)
	}
	if len(ledger.Spendable(all[0].Entries)) != 1 {
		t.Errorf("spendable entries = %d, want 1", len(ledger.Spendable(all[0].Entries)))
	}
}
