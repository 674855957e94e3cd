package types

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// Duck32 is the human-readable address encoding:
//
//	<label>:<base32(data || checksum)>
//
// The alphabet is the bech32 one (BIP-173). The checksum is the first
// Duck32ChecksumSize bytes of a BLAKE3 derive-key hash over the label and
// the data, so a body copied onto another network's label fails to decode.

// Duck32ChecksumSize is the number of checksum bytes appended to the data.
const Duck32ChecksumSize = 5

const duck32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// duck32ChecksumContext domain-separates the checksum from every other
// BLAKE3 use in the purse.
const duck32ChecksumContext = "klingnet-purse 2025-03-01 duck32 address checksum"

// duck32CharsetRev maps characters to their 5-bit values. -1 = invalid.
var duck32CharsetRev [128]int8

func init() {
	for i := range duck32CharsetRev {
		duck32CharsetRev[i] = -1
	}
	for i, c := range duck32Charset {
		duck32CharsetRev[c] = int8(i)
	}
}

// Duck32Encode encodes data under label. The label is written lower-case
// and must not contain ':'; see ValidatePrefix.
func Duck32Encode(label string, data []byte) string {
	label = strings.ToLower(label)
	full := make([]byte, 0, len(data)+Duck32ChecksumSize)
	full = append(full, data...)
	full = append(full, duck32Checksum(label, data)...)

	// 8->5 with padding cannot fail.
	conv, _ := convertBits(full, 8, 5, true)

	var sb strings.Builder
	sb.Grow(len(label) + 1 + len(conv))
	sb.WriteString(label)
	sb.WriteByte(':')
	for _, b := range conv {
		sb.WriteByte(duck32Charset[b])
	}
	return sb.String()
}

// Duck32Decode decodes s, which is either "<label>:<body>" or a bare body,
// and returns the data with the checksum stripped. Every failure is a
// *ValidationError.
func Duck32Decode(label, s string) ([]byte, error) {
	const op = "decode address"
	if s == "" {
		return nil, invalid(op, ErrBadLength, "empty string")
	}

	hasUpper, hasLower := false, false
	for _, c := range s {
		if c >= 'A' && c <= 'Z' {
			hasUpper = true
		}
		if c >= 'a' && c <= 'z' {
			hasLower = true
		}
	}
	if hasUpper && hasLower {
		return nil, invalid(op, ErrMixedCase, "")
	}
	s = strings.ToLower(s)
	label = strings.ToLower(label)

	body := s
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		if s[:idx] != label {
			return nil, invalid(op, ErrWrongPrefix, "got %q, want %q", s[:idx], label)
		}
		body = s[idx+1:]
	}

	data5 := make([]byte, len(body))
	for i, c := range body {
		if c > 127 || duck32CharsetRev[c] < 0 {
			return nil, invalid(op, ErrInvalidChar, "%q at position %d", c, i)
		}
		data5[i] = byte(duck32CharsetRev[c])
	}

	full, err := convertBits(data5, 5, 8, false)
	if err != nil {
		return nil, invalid(op, ErrBadLength, "%v", err)
	}
	if len(full) <= Duck32ChecksumSize {
		return nil, invalid(op, ErrBadLength, "%d bytes", len(full))
	}

	data := full[:len(full)-Duck32ChecksumSize]
	chk := full[len(full)-Duck32ChecksumSize:]
	if subtle.ConstantTimeCompare(chk, duck32Checksum(label, data)) != 1 {
		return nil, invalid(op, ErrBadChecksum, "")
	}
	return data, nil
}

// duck32Checksum hashes label ':' data.
func duck32Checksum(label string, data []byte) []byte {
	h := blake3.NewDeriveKey(duck32ChecksumContext)
	h.Write([]byte(label))
	h.Write([]byte{':'})
	h.Write(data)
	sum := h.Sum(nil)
	return sum[:Duck32ChecksumSize]
}

// convertBits converts between bit groups.
// fromBits/toBits are the source/destination group sizes (e.g. 8 and 5).
// pad controls whether incomplete groups are zero-padded.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	maxv := uint32((1 << toBits) - 1)
	ret := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data byte: %d", b)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			ret = append(ret, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			ret = append(ret, byte((acc<<(toBits-bits))&maxv))
		}
	} else {
		if bits >= fromBits {
			return nil, fmt.Errorf("excess padding")
		}
		if (acc<<(toBits-bits))&maxv != 0 {
			return nil, fmt.Errorf("non-zero padding")
		}
	}

	return ret, nil
}
