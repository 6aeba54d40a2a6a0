// Package bech32 implements the bech32 and bech32m checksummed base32
// encodings used for attestation addresses.
package bech32

import "strings"

// Encoding selects which checksum constant a string was built with.
type Encoding uint32

const (
	Bech32  Encoding = 1
	Bech32M Encoding = 0x2bc830a3
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// maxLength is the overall length cap for an encoded string,
// human-readable part and checksum included.
const maxLength = 90

var charsetRev [128]int8

func init() {
	for i := range charsetRev {
		charsetRev[i] = -1
	}
	for i, c := range charset {
		charsetRev[c] = int8(i)
	}
}

func polymod(values []byte) uint32 {
	gen := [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func createChecksum(hrp string, data []byte, enc Encoding) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ uint32(enc)
	chk := make([]byte, 6)
	for i := range chk {
		chk[i] = byte(mod >> uint(5*(5-i)) & 31)
	}
	return chk
}

func verifyChecksum(hrp string, data []byte) (Encoding, bool) {
	switch Encoding(polymod(append(hrpExpand(hrp), data...))) {
	case Bech32:
		return Bech32, true
	case Bech32M:
		return Bech32M, true
	}
	return 0, false
}

// Encode builds a checksummed string from a human-readable part and
// 5-bit data groups. The data and checksum characters are lowercase.
func Encode(hrp string, data []byte, enc Encoding) (string, error) {
	if len(hrp) == 0 {
		return "", decodeErrf(ErrEmptyHRP, "hrp required")
	}
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", decodeErrf(ErrCharRange, "hrp byte %d", i)
		}
	}
	if len(hrp)+1+len(data)+6 > maxLength {
		return "", decodeErrf(ErrTooLong, "%d > %d", len(hrp)+1+len(data)+6, maxLength)
	}
	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, d := range data {
		if d >= 32 {
			return "", decodeErrf(ErrInvalidChar, "value %d out of 5-bit range", d)
		}
		sb.WriteByte(charset[d])
	}
	// The checksum covers the human-readable part exactly as given; an
	// uppercase part produces a string that will not verify after case
	// folding.
	for _, d := range createChecksum(hrp, data, enc) {
		sb.WriteByte(charset[d])
	}
	return sb.String(), nil
}

// Decode splits and checksum-verifies an encoded string. It returns the
// lowercase human-readable part, the 5-bit data groups with the checksum
// stripped, and which encoding the checksum matched.
func Decode(s string) (string, []byte, Encoding, error) {
	if len(s) > maxLength {
		return "", nil, 0, decodeErrf(ErrTooLong, "%d > %d", len(s), maxLength)
	}
	hasLower, hasUpper := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 33 || c > 126 {
			return "", nil, 0, decodeErrf(ErrCharRange, "byte %d", i)
		}
		if c >= 'a' && c <= 'z' {
			hasLower = true
		}
		if c >= 'A' && c <= 'Z' {
			hasUpper = true
		}
	}
	if hasLower && hasUpper {
		return "", nil, 0, decodeErrf(ErrMixedCase, "%q", s)
	}
	s = strings.ToLower(s)
	pos := strings.LastIndexByte(s, '1')
	if pos < 0 {
		return "", nil, 0, decodeErrf(ErrNoSeparator, "%q", s)
	}
	if pos == 0 {
		return "", nil, 0, decodeErrf(ErrEmptyHRP, "%q", s)
	}
	if pos+7 > len(s) {
		return "", nil, 0, decodeErrf(ErrShortData, "checksum truncated")
	}
	hrp := s[:pos]
	data := make([]byte, 0, len(s)-pos-1)
	for i := pos + 1; i < len(s); i++ {
		v := charsetRev[s[i]]
		if v < 0 {
			return "", nil, 0, decodeErrf(ErrInvalidChar, "%q at %d", s[i], i)
		}
		data = append(data, byte(v))
	}
	enc, ok := verifyChecksum(hrp, data)
	if !ok {
		return "", nil, 0, decodeErrf(ErrBadChecksum, "%q", s)
	}
	return hrp, data[:len(data)-6], enc, nil
}

// ConvertBits regroups data from fromBits-wide groups to toBits-wide
// groups. With pad set, a final partial group is zero-filled; without it,
// leftover bits must be zero and fewer than fromBits.
func ConvertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	if fromBits < 1 || fromBits > 8 || toBits < 1 || toBits > 8 {
		return nil, decodeErrf(ErrBitGroupSize, "%d -> %d", fromBits, toBits)
	}
	var acc, bits uint
	maxv := uint(1)<<toBits - 1
	out := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	for i, v := range data {
		if uint(v)>>fromBits != 0 {
			return nil, decodeErrf(ErrInvalidChar, "value %d at %d exceeds %d bits", v, i, fromBits)
		}
		acc = acc<<fromBits | uint(v)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits&maxv))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits)&maxv))
		}
	} else if bits >= fromBits {
		return nil, decodeErrf(ErrPadding, "%d leftover bits", bits)
	} else if acc<<(toBits-bits)&maxv != 0 {
		return nil, decodeErrf(ErrPadding, "non-zero padding")
	}
	return out, nil
}
