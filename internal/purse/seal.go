package purse

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed seed format:
//
//	version(1) | salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext
const (
	sealVersion  = 1
	saltSize     = 32
	sealHeader   = 1 + saltSize + 4 + 4 + 1
	sealMinBytes = sealHeader + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
)

// KDFParams holds the Argon2id parameters used to seal the seed.
type KDFParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultKDF returns the Argon2id parameters used for new purses.
func DefaultKDF() KDFParams {
	return KDFParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

func (p KDFParams) key(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// seal encrypts data with password using Argon2id + XChaCha20-Poly1305.
func seal(data, password []byte, params KDFParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key := params.key(password, salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, sealMinBytes+len(data))
	out = append(out, sealVersion)
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)
	out = append(out, nonce...)
	// The header is authenticated so the KDF cost cannot be tampered with.
	ad := append([]byte(nil), out[:sealHeader]...)
	return aead.Seal(out, nonce, data, ad), nil
}

// unseal decrypts a blob produced by seal.
func unseal(blob, password []byte) ([]byte, error) {
	if len(blob) < sealMinBytes {
		return nil, fmt.Errorf("sealed seed too short: %d bytes", len(blob))
	}
	if blob[0] != sealVersion {
		return nil, fmt.Errorf("unsupported sealed seed version %d", blob[0])
	}
	salt := blob[1 : 1+saltSize]
	params := KDFParams{
		Memory:      binary.LittleEndian.Uint32(blob[1+saltSize:]),
		Iterations:  binary.LittleEndian.Uint32(blob[1+saltSize+4:]),
		Parallelism: blob[1+saltSize+8],
	}
	nonce := blob[sealHeader : sealHeader+chacha20poly1305.NonceSizeX]
	ciphertext := blob[sealHeader+chacha20poly1305.NonceSizeX:]

	key := params.key(password, salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, blob[:sealHeader])
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}
