// derive_key.go prints the address specs and addresses of a hex-encoded
// private key file, one per signature algorithm.
// Usage: go run scripts/derive_key.go <keyfile> [prefix]
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/klingnet-purse/pkg/crypto"
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile> [prefix]")
		os.Exit(1)
	}
	prefix := types.MainnetPrefix
	if len(os.Args) > 2 {
		prefix = os.Args[2]
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	keyHex := strings.TrimSpace(string(data))
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer key.Zero()

	for _, algo := range crypto.Algorithms() {
		spec, err := key.Spec(algo.ID)
		if errors.Is(err, types.ErrUnknownAlgorithm) {
			// Not a secp256k1 algorithm.
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := crypto.DescribeSpec(os.Stdout, prefix, spec); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
