package crypto

import (
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-purse/pkg/types"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Algorithm describes a signature algorithm that may appear in an address spec.
type Algorithm struct {
	ID      types.SigAlgorithm
	Name    string
	KeySize int
	// Validate checks that pub is a well-formed public key for the algorithm.
	Validate func(pub []byte) error
}

var algorithms = map[types.SigAlgorithm]Algorithm{}

// RegisterAlgorithm adds algo to the registry, replacing any earlier entry
// with the same ID.
func RegisterAlgorithm(algo Algorithm) {
	algorithms[algo.ID] = algo
}

func init() {
	RegisterAlgorithm(Algorithm{
		ID:       types.SigSecp256k1Uncompressed,
		Name:     "secp256k1-uncompressed",
		KeySize:  65,
		Validate: parseSecp256k1,
	})
	RegisterAlgorithm(Algorithm{
		ID:       types.SigSecp256k1,
		Name:     "secp256k1",
		KeySize:  33,
		Validate: parseSecp256k1,
	})
	RegisterAlgorithm(Algorithm{
		ID:      types.SigSchnorr,
		Name:    "schnorr",
		KeySize: schnorr.PubKeyBytesLen,
		// BIP-340 x-only key.
		Validate: func(pub []byte) error {
			_, err := schnorr.ParsePubKey(pub)
			return err
		},
	})
	RegisterAlgorithm(Algorithm{
		ID:      types.SigEd25519,
		Name:    "ed25519",
		KeySize: 32,
	})
}

func parseSecp256k1(pub []byte) error {
	_, err := secp256k1.ParsePubKey(pub)
	return err
}

// LookupAlgorithm returns the registered algorithm for id.
func LookupAlgorithm(id types.SigAlgorithm) (Algorithm, bool) {
	a, ok := algorithms[id]
	return a, ok
}

// AlgorithmName returns the registered name of id, or "unknown(<id>)".
func AlgorithmName(id types.SigAlgorithm) string {
	if a, ok := algorithms[id]; ok {
		return a.Name
	}
	return fmt.Sprintf("unknown(%d)", id)
}

// Algorithms returns every registered algorithm ordered by ID.
func Algorithms() []Algorithm {
	out := make([]Algorithm, 0, len(algorithms))
	for _, a := range algorithms {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ValidateSpecKeys validates the spec's structure and checks every entry
// against the registry. Address hashing does not require this; it is applied
// to specs entering the purse from outside.
func ValidateSpecKeys(spec types.AddressSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	for i, s := range spec.SigSpecs {
		algo, ok := algorithms[s.Algorithm]
		if !ok {
			return &types.ValidationError{
				Op:  "validate spec keys",
				Err: fmt.Errorf("%w: entry %d has algorithm %d", types.ErrUnknownAlgorithm, i, s.Algorithm),
			}
		}
		if len(s.PublicKey) != algo.KeySize {
			return &types.ValidationError{
				Op: "validate spec keys",
				Err: fmt.Errorf("%w: entry %d: %s key must be %d bytes, got %d",
					types.ErrBadPublicKey, i, algo.Name, algo.KeySize, len(s.PublicKey)),
			}
		}
		if algo.Validate == nil {
			continue
		}
		if err := algo.Validate(s.PublicKey); err != nil {
			return &types.ValidationError{
				Op:  "validate spec keys",
				Err: fmt.Errorf("%w: entry %d: %v", types.ErrBadPublicKey, i, err),
			}
		}
	}
	return nil
}
