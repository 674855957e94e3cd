package types

import (
	"fmt"
	"strings"
)

// Address prefixes (Duck32 labels) per network.
const (
	MainnetPrefix = "kgx"
	TestnetPrefix = "tkgx"
	RegtestPrefix = "rkgx"
)

// EncodeAddress returns the human-readable address of hash on the network
// identified by prefix.
func EncodeAddress(prefix string, hash AddressSpecHash) string {
	return Duck32Encode(prefix, hash[:])
}

// DecodeAddress parses a human-readable address for the network identified
// by prefix. Wrong prefix, bad checksum or bad characters yield a
// *ValidationError.
func DecodeAddress(prefix, address string) (AddressSpecHash, error) {
	data, err := Duck32Decode(prefix, strings.TrimSpace(address))
	if err != nil {
		return AddressSpecHash{}, err
	}
	if len(data) != AddressSpecHashSize {
		return AddressSpecHash{}, invalid("decode address", ErrBadLength,
			"address must carry %d bytes, got %d", AddressSpecHashSize, len(data))
	}
	var h AddressSpecHash
	copy(h[:], data)
	return h, nil
}

// ValidatePrefix checks that prefix can be used as a Duck32 label.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("address prefix is empty")
	}
	for _, c := range prefix {
		if c < 33 || c > 126 || c == ':' {
			return fmt.Errorf("address prefix has invalid character %q", c)
		}
		if c >= 'A' && c <= 'Z' {
			return fmt.Errorf("address prefix must be lower case")
		}
	}
	return nil
}
