package types

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SigAlgorithm tags the signature scheme of one signer entry. The numeric
// value is part of the canonical encoding and must never be renumbered.
type SigAlgorithm uint32

const (
	SigSecp256k1Uncompressed SigAlgorithm = 1 // 65-byte SEC1 uncompressed key
	SigSecp256k1             SigAlgorithm = 2 // 33-byte SEC1 compressed key
	SigSchnorr               SigAlgorithm = 3 // 32-byte BIP-340 x-only key
	SigEd25519               SigAlgorithm = 4 // 32-byte Ed25519 key
)

// SigSpec is one signer entry of an address spec.
type SigSpec struct {
	Algorithm SigAlgorithm `json:"algorithm"`
	PublicKey []byte       `json:"public_key"`
}

// AddressSpec is a spending policy: RequiredSigners of the listed signers
// must sign. Entry order is significant; it is hashed as-is.
type AddressSpec struct {
	RequiredSigners uint32    `json:"required_signers"`
	SigSpecs        []SigSpec `json:"sig_specs"`
}

// SimpleSpec returns the single-signer spec for one public key.
func SimpleSpec(pubKey []byte, algo SigAlgorithm) AddressSpec {
	key := make([]byte, len(pubKey))
	copy(key, pubKey)
	return AddressSpec{
		RequiredSigners: 1,
		SigSpecs:        []SigSpec{{Algorithm: algo, PublicKey: key}},
	}
}

// Validate checks the structural rules: at least one signer entry and
// 1 <= RequiredSigners <= len(SigSpecs).
func (s AddressSpec) Validate() error {
	if len(s.SigSpecs) == 0 {
		return invalid("address spec", ErrNoSigSpecs, "")
	}
	if s.RequiredSigners < 1 || int(s.RequiredSigners) > len(s.SigSpecs) {
		return invalid("address spec", ErrRequiredSigners, "%d of %d", s.RequiredSigners, len(s.SigSpecs))
	}
	return nil
}

// IsMultiSig reports whether more than one signer entry is listed.
func (s AddressSpec) IsMultiSig() bool {
	return len(s.SigSpecs) > 1
}

// CanonicalBytes returns the byte string that identifies the spec:
//
//	required_signers(u32) | count(u32) | { algorithm(u32) | key_len(u32) | key }...
//
// All integers are big-endian. The encoding is a wire-level contract.
func (s AddressSpec) CanonicalBytes() []byte {
	size := 8
	for _, ss := range s.SigSpecs {
		size += 8 + len(ss.PublicKey)
	}
	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, s.RequiredSigners)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s.SigSpecs)))
	for _, ss := range s.SigSpecs {
		buf = binary.BigEndian.AppendUint32(buf, uint32(ss.Algorithm))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(ss.PublicKey)))
		buf = append(buf, ss.PublicKey...)
	}
	return buf
}

// Clone returns a deep copy of the spec.
func (s AddressSpec) Clone() AddressSpec {
	out := AddressSpec{
		RequiredSigners: s.RequiredSigners,
		SigSpecs:        make([]SigSpec, len(s.SigSpecs)),
	}
	for i, ss := range s.SigSpecs {
		key := make([]byte, len(ss.PublicKey))
		copy(key, ss.PublicKey)
		out.SigSpecs[i] = SigSpec{Algorithm: ss.Algorithm, PublicKey: key}
	}
	return out
}

// String returns "<m>of<n>".
func (s AddressSpec) String() string {
	return fmt.Sprintf("%dof%d", s.RequiredSigners, len(s.SigSpecs))
}

// sigSpecJSON keeps public keys as hex in JSON exports.
type sigSpecJSON struct {
	Algorithm SigAlgorithm `json:"algorithm"`
	PublicKey string       `json:"public_key"`
}

// MarshalJSON encodes the public key as hex.
func (ss SigSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(sigSpecJSON{
		Algorithm: ss.Algorithm,
		PublicKey: hex.EncodeToString(ss.PublicKey),
	})
}

// UnmarshalJSON decodes a hex public key.
func (ss *SigSpec) UnmarshalJSON(data []byte) error {
	var raw sigSpecJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	key, err := hex.DecodeString(raw.PublicKey)
	if err != nil {
		return fmt.Errorf("invalid public key hex: %w", err)
	}
	ss.Algorithm = raw.Algorithm
	ss.PublicKey = key
	return nil
}
