// Package types defines the primitive types shared by the purse: hashes,
// address specs, human-readable addresses and amounts.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a transaction hash in bytes.
const HashSize = 32

// AddressSpecHashSize is the length of an address spec identifier in bytes.
const AddressSpecHashSize = 20

// Hash represents a 256-bit hash value (transaction ids).
type Hash [HashSize]byte

// AddressSpecHash identifies an address spec. It is the digest of the
// spec's canonical encoding and is what outputs are paid to.
type AddressSpecHash [AddressSpecHashSize]byte

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash converts a hex string to a Hash.
func HexToHash(s string) (Hash, error) {
	var h Hash
	if err := decodeFixedHex(s, h[:]); err != nil {
		return Hash{}, err
	}
	return h, nil
}

// IsZero returns true if the identifier is all zeros.
func (h AddressSpecHash) IsZero() bool {
	return h == AddressSpecHash{}
}

// String returns the hex-encoded identifier.
func (h AddressSpecHash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the identifier as a byte slice.
func (h AddressSpecHash) Bytes() []byte {
	b := make([]byte, AddressSpecHashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the identifier as a hex string.
func (h AddressSpecHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into an identifier.
func (h *AddressSpecHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := HexToAddressSpecHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToAddressSpecHash converts a 40-character hex string to an AddressSpecHash.
func HexToAddressSpecHash(s string) (AddressSpecHash, error) {
	var h AddressSpecHash
	if err := decodeFixedHex(s, h[:]); err != nil {
		return AddressSpecHash{}, err
	}
	return h, nil
}

// AddressSpecHashFromBytes copies b into an AddressSpecHash.
func AddressSpecHashFromBytes(b []byte) (AddressSpecHash, error) {
	var h AddressSpecHash
	if len(b) != AddressSpecHashSize {
		return h, fmt.Errorf("address spec hash must be %d bytes, got %d", AddressSpecHashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func decodeFixedHex(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("hash must be %d bytes, got %d", len(dst), len(b))
	}
	copy(dst, b)
	return nil
}
