package ledger

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// BalanceInfo is the reduced balance of one address or a whole wallet, in
// base units.
//
// Unconfirmed is a signed net pending change. It goes negative when
// confirmed outputs are being spent by mempool transactions.
type BalanceInfo struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
	Spendable   int64 `json:"spendable"`
}

// Reduce computes the balance of a set of entries. It is order-independent
// and the empty set reduces to the zero balance.
func Reduce(entries []Entry) BalanceInfo {
	var b BalanceInfo
	for _, e := range entries {
		v := int64(e.Value)
		if e.Unconfirmed {
			if !e.Spent {
				b.Unconfirmed += v
			}
		} else {
			b.Confirmed += v
			if e.Spent {
				b.Unconfirmed -= v
			}
		}
		if !e.Spent {
			b.Spendable += v
		}
	}
	return b
}

// Add returns the component-wise sum of b and o.
func (b BalanceInfo) Add(o BalanceInfo) BalanceInfo {
	return BalanceInfo{
		Confirmed:   b.Confirmed + o.Confirmed,
		Unconfirmed: b.Unconfirmed + o.Unconfirmed,
		Spendable:   b.Spendable + o.Spendable,
	}
}

// IsZero reports whether all three components are zero.
func (b BalanceInfo) IsZero() bool {
	return b == BalanceInfo{}
}

// String renders "<confirmed> (<pending> pending) (<spendable> spendable)"
// in coins.
func (b BalanceInfo) String() string {
	return fmt.Sprintf("%s (%s pending) (%s spendable)",
		types.FormatAmount(b.Confirmed),
		types.FormatAmount(b.Unconfirmed),
		types.FormatAmount(b.Spendable))
}
