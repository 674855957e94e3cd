package purse

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealUnseal_Roundtrip(t *testing.T) {
	plaintext := []byte(testMnemonic)
	password := []byte("strong-password-123")

	sealed, err := seal(plaintext, password, *fastKDF())
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	if sealed[0] != sealVersion {
		t.Errorf("version byte = %d, want %d", sealed[0], sealVersion)
	}
	if len(sealed) != sealMinBytes+len(plaintext) {
		t.Errorf("sealed length = %d, want %d", len(sealed), sealMinBytes+len(plaintext))
	}

	got, err := unseal(sealed, password)
	if err != nil {
		t.Fatalf("unseal() error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("unsealed = %q, want %q", got, plaintext)
	}
}

func TestSeal_EmptyPassword(t *testing.T) {
	sealed, err := seal([]byte("data"), nil, *fastKDF())
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	if _, err := unseal(sealed, []byte{}); err != nil {
		t.Errorf("unseal() with empty password: %v", err)
	}
}

func TestSeal_DifferentEachTime(t *testing.T) {
	a, _ := seal([]byte("same"), []byte("pw"), *fastKDF())
	b, _ := seal([]byte("same"), []byte("pw"), *fastKDF())
	if bytes.Equal(a, b) {
		t.Error("two seals of the same data should differ (random salt and nonce)")
	}
}

func TestUnseal_Failures(t *testing.T) {
	sealed, err := seal([]byte("secret"), []byte("pw"), *fastKDF())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := unseal(sealed, []byte("wrong")); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong password = %v, want ErrWrongPassword", err)
	}
	if _, err := unseal(sealed[:10], []byte("pw")); err == nil {
		t.Error("truncated blob should fail")
	}

	tampered := append([]byte(nil), sealed...)
	tampered[1+saltSize] ^= 0x01 // KDF memory field
	if _, err := unseal(tampered, []byte("pw")); err == nil {
		t.Error("tampered header should fail")
	}

	corrupt := append([]byte(nil), sealed...)
	corrupt[len(corrupt)-1] ^= 0xff
	if _, err := unseal(corrupt, []byte("pw")); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("corrupted ciphertext = %v, want ErrWrongPassword", err)
	}

	version := append([]byte(nil), sealed...)
	version[0] = 9
	if _, err := unseal(version, []byte("pw")); err == nil {
		t.Error("unknown version should fail")
	}
}

func TestDefaultKDF(t *testing.T) {
	p := DefaultKDF()
	if p.Memory != 64*1024 || p.Iterations != 3 || p.Parallelism != 4 {
		t.Errorf("DefaultKDF() = %+v", p)
	}
}
