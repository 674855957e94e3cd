package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	pub := key.PublicKey()
	if len(pub) != 33 {
		t.Errorf("PublicKey() length = %d, want 33", len(pub))
	}

	ser := key.Serialize()
	if len(ser) != 32 {
		t.Errorf("Serialize() length = %d, want 32", len(ser))
	}
}

func TestGenerateKey_Unique(t *testing.T) {
	k1, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	k2, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	if bytes.Equal(k1.Serialize(), k2.Serialize()) {
		t.Error("two generated keys should not be identical")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	original, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	restored, err := PrivateKeyFromBytes(original.Serialize())
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}

	if !bytes.Equal(original.PublicKey(), restored.PublicKey()) {
		t.Error("restored key should have same public key")
	}
}

func TestPrivateKeyFromBytes_InvalidLength(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"too short", make([]byte, 16)},
		{"too long", make([]byte, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PrivateKeyFromBytes(tt.data)
			if err == nil {
				t.Error("expected error for invalid key length")
			}
		})
	}
}

func TestPrivateKey_PublicKeyFor(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	tests := []struct {
		algo types.SigAlgorithm
		size int
	}{
		{types.SigSecp256k1, 33},
		{types.SigSecp256k1Uncompressed, 65},
		{types.SigSchnorr, 32},
	}
	for _, tt := range tests {
		pub, err := key.PublicKeyFor(tt.algo)
		if err != nil {
			t.Fatalf("PublicKeyFor(%d): %v", tt.algo, err)
		}
		if len(pub) != tt.size {
			t.Errorf("PublicKeyFor(%d) length = %d, want %d", tt.algo, len(pub), tt.size)
		}

		spec, err := key.Spec(tt.algo)
		if err != nil {
			t.Fatalf("Spec(%d): %v", tt.algo, err)
		}
		if err := ValidateSpecKeys(spec); err != nil {
			t.Errorf("ValidateSpecKeys(%s spec) = %v", AlgorithmName(tt.algo), err)
		}
	}

	if _, err := key.PublicKeyFor(types.SigEd25519); !errors.Is(err, types.ErrUnknownAlgorithm) {
		t.Errorf("PublicKeyFor(ed25519) err = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestPrivateKey_Zero(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	key.Zero()

	for _, b := range key.Serialize() {
		if b != 0 {
			t.Fatal("Serialize() should return zeros after Zero()")
		}
	}
}
