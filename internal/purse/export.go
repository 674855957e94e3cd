package purse

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-purse/internal/log"
	"github.com/Klingon-tech/klingnet-purse/internal/storage"
	"github.com/Klingon-tech/klingnet-purse/pkg/crypto"
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// exportVersion is the version of the export file format.
const exportVersion = 1

// exportFile is the JSON form of an exported purse.
type exportFile struct {
	Version    int                     `json:"version"`
	WatchOnly  bool                    `json:"watch_only"`
	SealedSeed []byte                  `json:"sealed_seed,omitempty"`
	NextIndex  uint32                  `json:"next_index,omitempty"`
	Specs      []exportSpec            `json:"specs"`
	Used       []types.AddressSpecHash `json:"used"`
}

type exportSpec struct {
	Spec     types.AddressSpec `json:"spec"`
	KeyIndex *uint32           `json:"key_index,omitempty"`
}

// Export serializes the purse. A watch-only export carries the specs and
// the used set but neither the sealed seed nor key indices.
func (p *Purse) Export(watchOnly bool) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	f := exportFile{
		Version:   exportVersion,
		WatchOnly: watchOnly || p.sealed == nil,
		Specs:     make([]exportSpec, len(p.specs)),
		Used:      make([]types.AddressSpecHash, 0, len(p.used)),
	}
	if !f.WatchOnly {
		f.SealedSeed = p.sealed
		f.NextIndex = p.next
	}
	for i, spec := range p.specs {
		f.Specs[i].Spec = spec
		if idx, ok := p.keyIndex[p.hashes[i]]; ok && !f.WatchOnly {
			idx := idx
			f.Specs[i].KeyIndex = &idx
		}
		if _, ok := p.used[p.hashes[i]]; ok {
			f.Used = append(f.Used, p.hashes[i])
		}
	}
	return json.MarshalIndent(f, "", "  ")
}

// Import merges an export into the purse: its specs are added as managed
// addresses and its used set is merged. The exported seed is never
// imported; a seed export is refused outright by a watch-only purse.
// Returns the number of specs added.
func (p *Purse) Import(data []byte) (int, error) {
	var f exportFile
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("decode export: %w", err)
	}
	if f.Version != exportVersion {
		return 0, fmt.Errorf("unsupported export version %d", f.Version)
	}

	add := make([]newSpec, 0, len(f.Specs))
	for i, es := range f.Specs {
		h, err := crypto.HashAddressSpec(es.Spec)
		if err != nil {
			return 0, fmt.Errorf("spec %d: %w", i, err)
		}
		add = append(add, newSpec{spec: es.Spec, hash: h})
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(f.SealedSeed) > 0 {
		if p.watch {
			return 0, fmt.Errorf("import seed: %w", ErrWatchOnly)
		}
		log.Purse.Warn().Msg("Import carries a seed; only its addresses are imported")
	}

	added, err := p.commitLocked(add, p.next)
	if err != nil {
		return 0, err
	}

	b := storage.NewBatch(p.db)
	var marked []types.AddressSpecHash
	for _, h := range f.Used {
		if _, ok := p.used[h]; ok {
			continue
		}
		if err := b.Put(hashKey(prefixUsed, h), []byte{1}); err != nil {
			return added, err
		}
		marked = append(marked, h)
	}
	if err := b.Commit(); err != nil {
		return added, fmt.Errorf("store used set: %w", err)
	}
	for _, h := range marked {
		p.used[h] = struct{}{}
	}

	log.Purse.Info().Int("added", added).Int("used", len(marked)).Msg("Imported purse")
	return added, nil
}
