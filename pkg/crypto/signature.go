package crypto

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-purse/pkg/types"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PrivateKey wraps a secp256k1 private key held by the purse.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	return &PrivateKey{key: key}, nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// PublicKeyFor serializes the public key the way algo expects it.
func (pk *PrivateKey) PublicKeyFor(algo types.SigAlgorithm) ([]byte, error) {
	pub := pk.key.PubKey()
	switch algo {
	case types.SigSecp256k1:
		return pub.SerializeCompressed(), nil
	case types.SigSecp256k1Uncompressed:
		return pub.SerializeUncompressed(), nil
	case types.SigSchnorr:
		return schnorr.SerializePubKey(pub), nil
	default:
		return nil, fmt.Errorf("%w: %d is not a secp256k1 algorithm", types.ErrUnknownAlgorithm, algo)
	}
}

// Spec returns the single-signer address spec for this key under algo.
func (pk *PrivateKey) Spec(algo types.SigAlgorithm) (types.AddressSpec, error) {
	pub, err := pk.PublicKeyFor(algo)
	if err != nil {
		return types.AddressSpec{}, err
	}
	return types.SimpleSpec(pub, algo), nil
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}
