package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

func TestLookupAlgorithm(t *testing.T) {
	for _, id := range []types.SigAlgorithm{
		types.SigSecp256k1Uncompressed, types.SigSecp256k1, types.SigSchnorr, types.SigEd25519,
	} {
		a, ok := LookupAlgorithm(id)
		if !ok {
			t.Fatalf("algorithm %d not registered", id)
		}
		if a.ID != id {
			t.Errorf("LookupAlgorithm(%d).ID = %d", id, a.ID)
		}
	}
	if _, ok := LookupAlgorithm(99); ok {
		t.Error("algorithm 99 should not be registered")
	}
	if got := AlgorithmName(99); got != "unknown(99)" {
		t.Errorf("AlgorithmName(99) = %q", got)
	}

	all := Algorithms()
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatal("Algorithms() not ordered by ID")
		}
	}
}

func TestValidateSpecKeys(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	good := types.SigSpec{Algorithm: types.SigSecp256k1, PublicKey: key.PublicKey()}

	notOnCurve := bytes.Repeat([]byte{0xff}, 33)
	notOnCurve[0] = 0x02

	tests := []struct {
		name    string
		spec    types.AddressSpec
		wantErr error
	}{
		{"valid", types.AddressSpec{RequiredSigners: 1, SigSpecs: []types.SigSpec{good}}, nil},
		{"ed25519", types.SimpleSpec(make([]byte, 32), types.SigEd25519), nil},
		{"no entries", types.AddressSpec{RequiredSigners: 1}, types.ErrNoSigSpecs},
		{"unknown algorithm", types.SimpleSpec(make([]byte, 33), 42), types.ErrUnknownAlgorithm},
		{"wrong key size", types.SimpleSpec(make([]byte, 20), types.SigSecp256k1), types.ErrBadPublicKey},
		{"not on curve", types.SimpleSpec(notOnCurve, types.SigSecp256k1), types.ErrBadPublicKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpecKeys(tt.spec)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateSpecKeys() = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateSpecKeys() = %v, want %v", err, tt.wantErr)
			}
			if !types.IsValidation(err) {
				t.Errorf("error %v is not a ValidationError", err)
			}
		})
	}
}

func TestHashIgnoresRegistry(t *testing.T) {
	// Unknown algorithms still hash; only ValidateSpecKeys consults the registry.
	spec := types.SimpleSpec([]byte{1, 2, 3}, 42)
	if _, err := HashAddressSpec(spec); err != nil {
		t.Errorf("HashAddressSpec(unknown algorithm) = %v", err)
	}
}

func TestTypeSummary(t *testing.T) {
	spec := types.AddressSpec{
		RequiredSigners: 2,
		SigSpecs: []types.SigSpec{
			{Algorithm: types.SigSecp256k1, PublicKey: make([]byte, 33)},
			{Algorithm: types.SigSecp256k1, PublicKey: make([]byte, 33)},
			{Algorithm: types.SigEd25519, PublicKey: make([]byte, 32)},
		},
	}
	if got, want := TypeSummary(spec), "2of3 secp256k1,secp256k1,ed25519"; got != want {
		t.Errorf("TypeSummary = %q, want %q", got, want)
	}
}

func TestDescribeSpec(t *testing.T) {
	spec := types.SimpleSpec(bytes.Repeat([]byte{0xab}, 32), types.SigSchnorr)
	var buf bytes.Buffer
	if err := DescribeSpec(&buf, types.MainnetPrefix, spec); err != nil {
		t.Fatalf("DescribeSpec: %v", err)
	}

	addr, _ := SpecAddress(types.MainnetPrefix, spec)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if want := "AddressSpec " + addr + " 1of1"; lines[0] != want {
		t.Errorf("header = %q, want %q", lines[0], want)
	}
	if want := "   sigspec:schnorr pub:" + strings.Repeat("ab", 32); lines[1] != want {
		t.Errorf("sigspec line = %q, want %q", lines[1], want)
	}

	if err := DescribeSpec(&buf, types.MainnetPrefix, types.AddressSpec{}); err == nil {
		t.Error("DescribeSpec(invalid) should fail")
	}
}

func TestAlgorithms_GeneratedKeyRoundtrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	var checked int
	for _, algo := range Algorithms() {
		pub, err := key.PublicKeyFor(algo.ID)
		if errors.Is(err, types.ErrUnknownAlgorithm) {
			continue
		}
		if err != nil {
			t.Fatalf("PublicKeyFor(%s): %v", algo.Name, err)
		}
		checked++

		if len(pub) != algo.KeySize {
			t.Errorf("%s key is %d bytes, registry wants %d", algo.Name, len(pub), algo.KeySize)
		}
		if err := algo.Validate(pub); err != nil {
			t.Errorf("%s: Validate(generated key) = %v", algo.Name, err)
		}
		if err := ValidateSpecKeys(types.SimpleSpec(pub, algo.ID)); err != nil {
			t.Errorf("%s: ValidateSpecKeys = %v", algo.Name, err)
		}
	}
	if checked != 3 {
		t.Errorf("checked %d secp256k1 algorithms, want 3", checked)
	}
}

func TestValidateSpecKeys_Schnorr(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	xonly, err := key.PublicKeyFor(types.SigSchnorr)
	if err != nil {
		t.Fatalf("PublicKeyFor(schnorr): %v", err)
	}
	if !bytes.Equal(xonly, key.PublicKey()[1:]) {
		t.Error("x-only key should be the compressed key without its parity byte")
	}

	// A compressed key is the wrong size for an x-only entry.
	err = ValidateSpecKeys(types.SimpleSpec(key.PublicKey(), types.SigSchnorr))
	if !errors.Is(err, types.ErrBadPublicKey) {
		t.Errorf("33-byte schnorr key: err = %v, want ErrBadPublicKey", err)
	}

	// x >= field prime is not a point.
	err = ValidateSpecKeys(types.SimpleSpec(bytes.Repeat([]byte{0xff}, 32), types.SigSchnorr))
	if !errors.Is(err, types.ErrBadPublicKey) {
		t.Errorf("off-curve schnorr key: err = %v, want ErrBadPublicKey", err)
	}
}
