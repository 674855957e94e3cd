package purse

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/klingnet-purse/pkg/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// BIP-44 receive path of purse keys: m/44'/8888'/0'/0/index.
const (
	purposeBIP44     = bip32.FirstHardenedChild + 44
	coinTypeKlingnet = bip32.FirstHardenedChild + 8888
	accountZero      = bip32.FirstHardenedChild + 0
	changeExternal   = 0
)

// mnemonicEntropyBits is the entropy size for 24-word mnemonics.
const mnemonicEntropyBits = 256

// NewMnemonic creates a new 24-word BIP-39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks word count, word list and checksum.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(normalizeMnemonic(mnemonic))
}

// normalizeMnemonic collapses whitespace and lower-cases the words so a
// phrase typed at a prompt matches the stored one.
func normalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}

// keyChain derives the purse's receive keys.
type keyChain struct {
	external *bip32.Key // m/44'/8888'/0'/0
}

func newKeyChain(mnemonic string) (*keyChain, error) {
	mnemonic = normalizeMnemonic(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrBadMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}

	k := master
	for _, idx := range []uint32{purposeBIP44, coinTypeKlingnet, accountZero, changeExternal} {
		if k, err = k.NewChildKey(idx); err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
	}
	return &keyChain{external: k}, nil
}

// key derives the private key at index.
func (kc *keyChain) key(index uint32) (*crypto.PrivateKey, error) {
	child, err := kc.external.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive key %d: %w", index, err)
	}
	// bip32 may carry a leading 0x00 on private keys.
	raw := child.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}
