package types

import (
	"errors"
	"strings"
	"testing"
)

func sampleHash() AddressSpecHash {
	var h AddressSpecHash
	for i := range h {
		h[i] = byte(i*7 + 3)
	}
	return h
}

func TestAddress_Roundtrip(t *testing.T) {
	for _, prefix := range []string{MainnetPrefix, TestnetPrefix, RegtestPrefix} {
		t.Run(prefix, func(t *testing.T) {
			h := sampleHash()
			addr := EncodeAddress(prefix, h)

			if !strings.HasPrefix(addr, prefix+":") {
				t.Fatalf("address %q missing %q label", addr, prefix)
			}
			// 25 bytes of payload = 40 base32 characters.
			if body := addr[len(prefix)+1:]; len(body) != 40 {
				t.Errorf("body length = %d, want 40", len(body))
			}

			got, err := DecodeAddress(prefix, addr)
			if err != nil {
				t.Fatalf("DecodeAddress: %v", err)
			}
			if got != h {
				t.Errorf("roundtrip = %s, want %s", got, h)
			}
		})
	}
}

func TestAddress_Deterministic(t *testing.T) {
	h := sampleHash()
	if EncodeAddress(MainnetPrefix, h) != EncodeAddress(MainnetPrefix, h) {
		t.Error("EncodeAddress is not deterministic")
	}
	if EncodeAddress(MainnetPrefix, h) == EncodeAddress(TestnetPrefix, h) {
		t.Error("different networks should produce different addresses")
	}
}

func TestDecodeAddress_BareBody(t *testing.T) {
	h := sampleHash()
	addr := EncodeAddress(MainnetPrefix, h)
	body := strings.TrimPrefix(addr, MainnetPrefix+":")

	got, err := DecodeAddress(MainnetPrefix, body)
	if err != nil {
		t.Fatalf("DecodeAddress(bare): %v", err)
	}
	if got != h {
		t.Errorf("bare body decoded to %s, want %s", got, h)
	}

	// The checksum binds the network label.
	if _, err := DecodeAddress(TestnetPrefix, body); !errors.Is(err, ErrBadChecksum) {
		t.Errorf("bare body on wrong network: err = %v, want ErrBadChecksum", err)
	}
}

func TestDecodeAddress_WrongPrefix(t *testing.T) {
	addr := EncodeAddress(MainnetPrefix, sampleHash())
	_, err := DecodeAddress(TestnetPrefix, addr)
	if !errors.Is(err, ErrWrongPrefix) {
		t.Fatalf("err = %v, want ErrWrongPrefix", err)
	}
	if !IsValidation(err) {
		t.Error("wrong prefix should be a ValidationError")
	}
}

func TestDecodeAddress_Case(t *testing.T) {
	h := sampleHash()
	addr := EncodeAddress(MainnetPrefix, h)

	got, err := DecodeAddress(MainnetPrefix, strings.ToUpper(addr))
	if err != nil {
		t.Fatalf("upper-case address: %v", err)
	}
	if got != h {
		t.Errorf("upper-case decoded to %s, want %s", got, h)
	}

	mixed := strings.ToUpper(addr[:6]) + addr[6:]
	if _, err := DecodeAddress(MainnetPrefix, mixed); !errors.Is(err, ErrMixedCase) {
		t.Errorf("mixed case: err = %v, want ErrMixedCase", err)
	}
}

func TestDecodeAddress_Invalid(t *testing.T) {
	addr := EncodeAddress(MainnetPrefix, sampleHash())
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrBadLength},
		{"invalid char", addr[:10] + "b" + addr[11:], ErrInvalidChar},
		{"truncated", addr[:len(addr)-8], ErrBadChecksum},
		{"extended", addr + "qqqqqqqq", ErrBadChecksum},
		{"label only", MainnetPrefix + ":", ErrBadLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAddress(MainnetPrefix, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DecodeAddress(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
			if !IsValidation(err) {
				t.Errorf("error %v is not a ValidationError", err)
			}
		})
	}
}

func TestDecodeAddress_WrongPayloadSize(t *testing.T) {
	short := Duck32Encode(MainnetPrefix, make([]byte, 10))
	if _, err := DecodeAddress(MainnetPrefix, short); !errors.Is(err, ErrBadLength) {
		t.Errorf("10-byte payload: err = %v, want ErrBadLength", err)
	}
}

func TestDecodeAddress_SingleCharMutation(t *testing.T) {
	addr := EncodeAddress(MainnetPrefix, sampleHash())
	start := len(MainnetPrefix) + 1

	var accepted, total int
	for i := start; i < len(addr); i++ {
		for _, c := range duck32Charset {
			if byte(c) == addr[i] {
				continue
			}
			mutated := addr[:i] + string(c) + addr[i+1:]
			total++
			_, err := DecodeAddress(MainnetPrefix, mutated)
			if err == nil {
				accepted++
				continue
			}
			if !IsValidation(err) {
				t.Fatalf("mutation at %d: error %v is not a ValidationError", i, err)
			}
		}
	}

	if accepted != 0 {
		t.Errorf("%d of %d single-character mutations decoded successfully", accepted, total)
	}
}

func TestValidatePrefix(t *testing.T) {
	for _, p := range []string{MainnetPrefix, TestnetPrefix, RegtestPrefix} {
		if err := ValidatePrefix(p); err != nil {
			t.Errorf("ValidatePrefix(%q) = %v", p, err)
		}
	}
	for _, p := range []string{"", "a:b", "KGX", "k gx"} {
		if err := ValidatePrefix(p); err == nil {
			t.Errorf("ValidatePrefix(%q) should fail", p)
		}
	}
}
