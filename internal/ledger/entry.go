// Package ledger models the outputs paid to one address and reduces them to
// a three-way balance: confirmed, pending and spendable.
package ledger

import (
	"sort"

	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// Entry is one output paid to an address, as reported by the node.
//
// Unconfirmed is set for outputs created by a transaction still in the
// mempool. Spent is set when any transaction (confirmed or in the mempool)
// consumes the output.
type Entry struct {
	Outpoint    types.Outpoint `json:"outpoint"`
	Value       uint64         `json:"value"`
	Unconfirmed bool           `json:"unconfirmed"`
	Spent       bool           `json:"spent"`
}

// Merge folds mempool activity onto confirmed outputs. Confirmed outputs
// whose outpoint is in spent are marked Spent; created outputs are appended
// as Unconfirmed (and Spent when a later mempool transaction consumes them).
// A created output that is already confirmed is dropped. The result is
// sorted by outpoint.
func Merge(confirmed []Entry, spent []types.Outpoint, created []Entry) []Entry {
	spentSet := make(map[types.Outpoint]struct{}, len(spent))
	for _, op := range spent {
		spentSet[op] = struct{}{}
	}

	seen := make(map[types.Outpoint]struct{}, len(confirmed)+len(created))
	out := make([]Entry, 0, len(confirmed)+len(created))

	add := func(e Entry, unconfirmed bool) {
		if _, dup := seen[e.Outpoint]; dup {
			return
		}
		seen[e.Outpoint] = struct{}{}
		e.Unconfirmed = unconfirmed
		if _, ok := spentSet[e.Outpoint]; ok {
			e.Spent = true
		}
		out = append(out, e)
	}
	for _, e := range confirmed {
		add(e, false)
	}
	for _, e := range created {
		add(e, true)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Outpoint.Compare(out[j].Outpoint) < 0
	})
	return out
}

// Spendable returns the entries that are not spent.
func Spendable(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if !e.Spent {
			out = append(out, e)
		}
	}
	return out
}
