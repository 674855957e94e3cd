package crypto

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// TypeSummary names the kind of spending condition, e.g. "1of1 secp256k1"
// or "2of3 secp256k1,secp256k1,ed25519". Wallet stats group addresses by it.
func TypeSummary(spec types.AddressSpec) string {
	names := make([]string, len(spec.SigSpecs))
	for i, s := range spec.SigSpecs {
		names[i] = AlgorithmName(s.Algorithm)
	}
	return spec.String() + " " + strings.Join(names, ",")
}

// DescribeSpec writes a human-readable description of spec:
//
//	AddressSpec kgx:... 1of1
//	   sigspec:secp256k1 pub:02ab...
func DescribeSpec(w io.Writer, prefix string, spec types.AddressSpec) error {
	addr, err := SpecAddress(prefix, spec)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "AddressSpec %s %s\n", addr, spec); err != nil {
		return err
	}
	for _, s := range spec.SigSpecs {
		if _, err := fmt.Fprintf(w, "   sigspec:%s pub:%s\n",
			AlgorithmName(s.Algorithm), hex.EncodeToString(s.PublicKey)); err != nil {
			return err
		}
	}
	return nil
}
