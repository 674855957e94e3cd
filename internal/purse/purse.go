// Package purse is the wallet's local address pool: the address specs it
// manages, which of them have received funds, and the HD seed their keys
// are derived from. Everything is persisted in a storage.DB.
package purse

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-purse/internal/log"
	"github.com/Klingon-tech/klingnet-purse/internal/storage"
	"github.com/Klingon-tech/klingnet-purse/pkg/crypto"
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
	"golang.org/x/sync/singleflight"
)

var (
	ErrWatchOnly      = errors.New("purse is watch-only")
	ErrNoSeed         = errors.New("purse has no seed")
	ErrSeedExists     = errors.New("purse already has a seed")
	ErrWrongPassword  = errors.New("wrong purse password")
	ErrBadMnemonic    = errors.New("invalid mnemonic")
	ErrUnknownAddress = errors.New("address not managed by this purse")
)

// DefaultKeyPoolSize is the number of unused derived addresses kept ready.
const DefaultKeyPoolSize = 100

// Database layout.
var (
	keySeed    = []byte("m/seed")  // sealed mnemonic
	keyNext    = []byte("m/next")  // next HD index, u32 BE
	keyWatch   = []byte("m/watch") // present when created watch-only
	prefixSpec = []byte("s/")      // s/<u32 BE position> -> spec JSON
	prefixUsed = []byte("u/")      // u/<hash> -> 1
	prefixKey  = []byte("k/")      // k/<hash> -> HD index, u32 BE
)

func specKey(pos uint32) []byte {
	return binary.BigEndian.AppendUint32(append([]byte(nil), prefixSpec...), pos)
}

func hashKey(prefix []byte, h types.AddressSpecHash) []byte {
	return append(append([]byte(nil), prefix...), h[:]...)
}

func u32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// Options configure Open.
type Options struct {
	// KeyPoolSize is the number of unused derived addresses MaintainKeys
	// keeps available. Zero selects DefaultKeyPoolSize.
	KeyPoolSize int
	// WatchOnly opens the purse without touching the seed. A new purse
	// opened watch-only never gets one.
	WatchOnly bool
	// Password seals the seed.
	Password string
	// ImportSeed is the mnemonic a new purse is created from. Empty
	// generates a fresh one.
	ImportSeed string
	// KDF overrides the Argon2id cost used when sealing a new seed.
	KDF *KDFParams
}

// Purse is a persistent pool of address specs. It is safe for concurrent use.
type Purse struct {
	db   storage.DB
	opts Options

	mu       sync.RWMutex
	specs    []types.AddressSpec
	hashes   []types.AddressSpecHash
	index    map[types.AddressSpecHash]int
	used     map[types.AddressSpecHash]struct{}
	keyIndex map[types.AddressSpecHash]uint32
	next     uint32
	sealed   []byte
	watch    bool
	chain    *keyChain // nil when keys cannot be derived

	marks singleflight.Group
}

// Exists reports whether db already holds a purse, with a seed or
// created watch-only.
func Exists(db storage.DB) (bool, error) {
	for _, k := range [][]byte{keySeed, keyWatch} {
		ok, err := db.Has(k)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// HasSeed reports whether db holds a sealed seed.
func HasSeed(db storage.DB) (bool, error) {
	return db.Has(keySeed)
}

// Open loads the purse stored in db, creating it on first use.
func Open(db storage.DB, opts Options) (*Purse, error) {
	if opts.KeyPoolSize <= 0 {
		opts.KeyPoolSize = DefaultKeyPoolSize
	}
	p := &Purse{
		db:       db,
		opts:     opts,
		index:    make(map[types.AddressSpecHash]int),
		used:     make(map[types.AddressSpecHash]struct{}),
		keyIndex: make(map[types.AddressSpecHash]uint32),
	}
	if err := p.load(); err != nil {
		return nil, err
	}

	switch {
	case p.sealed != nil:
		if opts.ImportSeed != "" {
			return nil, ErrSeedExists
		}
		if !opts.WatchOnly {
			if err := p.unlock(); err != nil {
				return nil, err
			}
		}
	case p.watch:
		if opts.ImportSeed != "" {
			return nil, ErrWatchOnly
		}
	case opts.WatchOnly:
		if opts.ImportSeed != "" {
			return nil, ErrWatchOnly
		}
		if err := db.Put(keyWatch, []byte{1}); err != nil {
			return nil, fmt.Errorf("store watch-only flag: %w", err)
		}
		p.watch = true
		log.Purse.Info().Msg("Created watch-only purse")
	default:
		if err := p.createSeed(opts.ImportSeed); err != nil {
			return nil, err
		}
	}

	log.Purse.Debug().
		Int("addresses", len(p.specs)).
		Int("used", len(p.used)).
		Bool("watch_only", p.chain == nil).
		Msg("Opened purse")
	return p, nil
}

func (p *Purse) load() error {
	sealed, err := p.db.Get(keySeed)
	switch {
	case err == nil:
		p.sealed = sealed
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("load seed: %w", err)
	}

	if next, err := p.db.Get(keyNext); err == nil && len(next) == 4 {
		p.next = binary.BigEndian.Uint32(next)
	}
	if p.watch, err = p.db.Has(keyWatch); err != nil {
		return fmt.Errorf("load watch-only flag: %w", err)
	}

	err = p.db.ForEach(prefixSpec, func(key, value []byte) error {
		var spec types.AddressSpec
		if err := json.Unmarshal(value, &spec); err != nil {
			return fmt.Errorf("decode spec %x: %w", key, err)
		}
		h, err := crypto.HashAddressSpec(spec)
		if err != nil {
			return fmt.Errorf("stored spec %x: %w", key, err)
		}
		p.appendLocked(spec, h)
		return nil
	})
	if err != nil {
		return fmt.Errorf("load specs: %w", err)
	}

	err = p.db.ForEach(prefixUsed, func(key, _ []byte) error {
		h, err := types.AddressSpecHashFromBytes(key[len(prefixUsed):])
		if err != nil {
			return err
		}
		p.used[h] = struct{}{}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load used set: %w", err)
	}

	return p.db.ForEach(prefixKey, func(key, value []byte) error {
		h, err := types.AddressSpecHashFromBytes(key[len(prefixKey):])
		if err != nil {
			return err
		}
		if len(value) != 4 {
			return fmt.Errorf("bad key index for %s", h)
		}
		p.keyIndex[h] = binary.BigEndian.Uint32(value)
		return nil
	})
}

func (p *Purse) createSeed(mnemonic string) error {
	if mnemonic == "" {
		var err error
		if mnemonic, err = NewMnemonic(); err != nil {
			return err
		}
	}
	mnemonic = normalizeMnemonic(mnemonic)
	chain, err := newKeyChain(mnemonic)
	if err != nil {
		return err
	}

	kdf := DefaultKDF()
	if p.opts.KDF != nil {
		kdf = *p.opts.KDF
	}
	sealed, err := seal([]byte(mnemonic), []byte(p.opts.Password), kdf)
	if err != nil {
		return fmt.Errorf("seal seed: %w", err)
	}
	if err := p.db.Put(keySeed, sealed); err != nil {
		return fmt.Errorf("store seed: %w", err)
	}
	p.sealed = sealed
	p.chain = chain
	log.Purse.Info().Bool("imported", p.opts.ImportSeed != "").Msg("Created purse seed")
	return nil
}

func (p *Purse) unlock() error {
	mnemonic, err := unseal(p.sealed, []byte(p.opts.Password))
	if err != nil {
		return err
	}
	defer zero(mnemonic)
	chain, err := newKeyChain(string(mnemonic))
	if err != nil {
		return err
	}
	p.chain = chain
	return nil
}

func (p *Purse) appendLocked(spec types.AddressSpec, h types.AddressSpecHash) {
	p.index[h] = len(p.specs)
	p.specs = append(p.specs, spec)
	p.hashes = append(p.hashes, h)
}

// newSpec is a spec about to be persisted.
type newSpec struct {
	spec     types.AddressSpec
	hash     types.AddressSpecHash
	keyIndex *uint32
}

// commitLocked persists specs (skipping ones already managed) and the next
// HD index in one batch, then applies them in memory. Returns how many
// specs were new.
func (p *Purse) commitLocked(add []newSpec, next uint32) (int, error) {
	b := storage.NewBatch(p.db)
	pos := uint32(len(p.specs))
	var fresh []newSpec
	seen := make(map[types.AddressSpecHash]bool)
	for _, n := range add {
		_, managed := p.index[n.hash]
		if n.keyIndex != nil {
			if _, ok := p.keyIndex[n.hash]; !ok {
				if err := b.Put(hashKey(prefixKey, n.hash), u32(*n.keyIndex)); err != nil {
					return 0, err
				}
			}
		}
		if managed || seen[n.hash] {
			continue
		}
		seen[n.hash] = true
		data, err := json.Marshal(n.spec)
		if err != nil {
			return 0, fmt.Errorf("encode spec: %w", err)
		}
		if err := b.Put(specKey(pos), data); err != nil {
			return 0, err
		}
		pos++
		fresh = append(fresh, n)
	}
	if next != p.next {
		if err := b.Put(keyNext, u32(next)); err != nil {
			return 0, err
		}
	}
	if err := b.Commit(); err != nil {
		return 0, fmt.Errorf("store specs: %w", err)
	}

	for _, n := range add {
		if n.keyIndex != nil {
			if _, ok := p.keyIndex[n.hash]; !ok {
				p.keyIndex[n.hash] = *n.keyIndex
			}
		}
	}
	for _, n := range fresh {
		p.appendLocked(n.spec, n.hash)
	}
	p.next = next
	return len(fresh), nil
}

// deriveLocked derives the spec of the key at index.
func (p *Purse) deriveLocked(index uint32) (newSpec, error) {
	key, err := p.chain.key(index)
	if err != nil {
		return newSpec{}, err
	}
	defer key.Zero()
	spec, err := key.Spec(types.SigSecp256k1)
	if err != nil {
		return newSpec{}, err
	}
	idx := index
	return newSpec{spec: spec, hash: crypto.MustHashAddressSpec(spec), keyIndex: &idx}, nil
}

// freshCountLocked counts derived addresses that were never used.
func (p *Purse) freshCountLocked() int {
	n := 0
	for h := range p.keyIndex {
		if _, used := p.used[h]; !used {
			n++
		}
	}
	return n
}

// ── Address pool ────────────────────────────────────────────────────────

// ListManaged returns every managed spec in the order it was added.
func (p *Purse) ListManaged() ([]types.AddressSpec, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]types.AddressSpec(nil), p.specs...), nil
}

// IsUsed reports whether hash has ever received funds.
func (p *Purse) IsUsed(hash types.AddressSpecHash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.used[hash]
	return ok
}

// MarkUsed records that hash has received funds. It is idempotent and safe
// for concurrent callers; concurrent first marks of one address share a
// single write.
func (p *Purse) MarkUsed(hash types.AddressSpecHash) error {
	if p.IsUsed(hash) {
		return nil
	}
	_, err, _ := p.marks.Do(hash.String(), func() (interface{}, error) {
		if p.IsUsed(hash) {
			return nil, nil
		}
		if err := p.db.Put(hashKey(prefixUsed, hash), []byte{1}); err != nil {
			return nil, fmt.Errorf("mark used: %w", err)
		}
		p.mu.Lock()
		p.used[hash] = struct{}{}
		p.mu.Unlock()
		log.Purse.Debug().Str("spec_hash", hash.String()).Msg("Address marked used")
		return nil, nil
	})
	return err
}

// Spec returns the managed spec with identifier hash.
func (p *Purse) Spec(hash types.AddressSpecHash) (types.AddressSpec, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i, ok := p.index[hash]
	if !ok {
		return types.AddressSpec{}, false
	}
	return p.specs[i], true
}

// SpecAt returns the i-th managed spec and its identifier.
func (p *Purse) SpecAt(i int) (types.AddressSpec, types.AddressSpecHash, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.specs) {
		return types.AddressSpec{}, types.AddressSpecHash{}, fmt.Errorf("address index %d out of range [0, %d)", i, len(p.specs))
	}
	return p.specs[i], p.hashes[i], nil
}

// CanDerive reports whether the purse holds an unlocked seed.
func (p *Purse) CanDerive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chain != nil
}

// ── Keys ────────────────────────────────────────────────────────────────

// MaintainKeys derives new keys until at least KeyPoolSize derived
// addresses are unused. It returns the number of addresses added and does
// nothing on a purse that cannot derive.
func (p *Purse) MaintainKeys() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chain == nil {
		return 0, nil
	}

	var add []newSpec
	next := p.next
	for p.freshCountLocked()+len(add) < p.opts.KeyPoolSize {
		n, err := p.deriveLocked(next)
		if err != nil {
			return 0, err
		}
		next++
		add = append(add, n)
	}
	if len(add) == 0 {
		return 0, nil
	}
	added, err := p.commitLocked(add, next)
	if err != nil {
		return 0, err
	}
	log.Purse.Info().Int("added", added).Uint32("next_index", next).Msg("Generated keys")
	return added, nil
}

// FreshAddress returns an address that has not received funds. With
// generateNow a new key is always derived. With markUsed the address is
// marked used so the next call returns a different one.
func (p *Purse) FreshAddress(markUsed, generateNow bool) (types.AddressSpecHash, error) {
	p.mu.Lock()
	var (
		hash  types.AddressSpecHash
		found bool
	)
	if !generateNow {
		for _, h := range p.hashes {
			if _, used := p.used[h]; used {
				continue
			}
			if _, derived := p.keyIndex[h]; derived || p.chain == nil {
				hash, found = h, true
				break
			}
		}
	}
	if !found {
		if p.chain == nil {
			p.mu.Unlock()
			return types.AddressSpecHash{}, ErrWatchOnly
		}
		n, err := p.deriveLocked(p.next)
		if err == nil {
			_, err = p.commitLocked([]newSpec{n}, p.next+1)
		}
		if err != nil {
			p.mu.Unlock()
			return types.AddressSpecHash{}, err
		}
		hash = n.hash
	}
	p.mu.Unlock()

	if markUsed {
		if err := p.MarkUsed(hash); err != nil {
			return types.AddressSpecHash{}, err
		}
	}
	return hash, nil
}

// AddSpec adds an externally built spec (a multisig policy or a watched
// key) to the purse. Adding a managed spec again is a no-op.
func (p *Purse) AddSpec(spec types.AddressSpec) (types.AddressSpecHash, error) {
	if err := crypto.ValidateSpecKeys(spec); err != nil {
		return types.AddressSpecHash{}, err
	}
	spec = spec.Clone()
	h := crypto.MustHashAddressSpec(spec)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.commitLocked([]newSpec{{spec: spec, hash: h}}, p.next); err != nil {
		return types.AddressSpecHash{}, err
	}
	return h, nil
}

// Mnemonic unseals and returns the seed phrase.
func (p *Purse) Mnemonic() (string, error) {
	p.mu.RLock()
	sealed := p.sealed
	p.mu.RUnlock()
	if sealed == nil {
		return "", ErrNoSeed
	}
	m, err := unseal(sealed, []byte(p.opts.Password))
	if err != nil {
		return "", err
	}
	return string(m), nil
}

// ── Stats ───────────────────────────────────────────────────────────────

// Stats summarizes the purse.
type Stats struct {
	Keys      int            `json:"keys"`
	Addresses int            `json:"addresses"`
	Used      int            `json:"used"`
	Fresh     int            `json:"fresh"`
	Multisig  int            `json:"multisig"`
	WatchOnly bool           `json:"watch_only"`
	Types     map[string]int `json:"types"`
}

// Stats counts keys, addresses, used addresses, fresh derived addresses and
// addresses per spec type.
func (p *Purse) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Stats{
		Keys:      len(p.keyIndex),
		Addresses: len(p.specs),
		Fresh:     p.freshCountLocked(),
		WatchOnly: p.chain == nil,
		Types:     make(map[string]int),
	}
	for i, h := range p.hashes {
		if _, ok := p.used[h]; ok {
			s.Used++
		}
		if p.specs[i].IsMultiSig() {
			s.Multisig++
		}
		s.Types[crypto.TypeSummary(p.specs[i])]++
	}
	return s
}
