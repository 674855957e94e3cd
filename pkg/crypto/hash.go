// Package crypto provides the hashing and key primitives of the purse.
package crypto

import (
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
	"github.com/zeebo/blake3"
)

// Derive-key contexts. Each BLAKE3 use in the purse gets its own context so
// that no two kinds of digest can collide.
const (
	addressSpecContext = "klingnet-purse 2025-03-01 address spec hash"
)

// HashAddressSpec derives the identifier of an address spec: BLAKE3 in
// derive-key mode over the canonical encoding, read to 20 bytes.
// The spec is validated first; an invalid spec returns a *types.ValidationError
// and the zero hash.
func HashAddressSpec(spec types.AddressSpec) (types.AddressSpecHash, error) {
	if err := spec.Validate(); err != nil {
		return types.AddressSpecHash{}, err
	}
	return hashCanonical(spec.CanonicalBytes()), nil
}

// MustHashAddressSpec is HashAddressSpec for specs already known to be
// valid, such as those built by the purse itself.
func MustHashAddressSpec(spec types.AddressSpec) types.AddressSpecHash {
	h, err := HashAddressSpec(spec)
	if err != nil {
		panic(err)
	}
	return h
}

func hashCanonical(b []byte) types.AddressSpecHash {
	h := blake3.NewDeriveKey(addressSpecContext)
	h.Write(b)

	var out types.AddressSpecHash
	// XOF read; the first 20 bytes equal a truncated 32-byte sum.
	d := h.Digest()
	d.Read(out[:])
	return out
}

// SpecAddress returns the human-readable address of spec on prefix's network.
func SpecAddress(prefix string, spec types.AddressSpec) (string, error) {
	h, err := HashAddressSpec(spec)
	if err != nil {
		return "", err
	}
	return types.EncodeAddress(prefix, h), nil
}
