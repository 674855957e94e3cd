package types

import "fmt"

// Amount units.
const (
	Decimals = 6
	Coin     = 1_000_000 // 10^6 base units per coin
)

// FormatAmount renders base units as a decimal with Decimals fractional
// digits. Negative amounts (pending outflows) keep their sign.
func FormatAmount(units int64) string {
	sign := ""
	u := uint64(units)
	if units < 0 {
		sign = "-"
		u = uint64(-(units + 1)) + 1
	}
	return fmt.Sprintf("%s%d.%06d", sign, u/Coin, u%Coin)
}
