// Package address encodes versioned byte payloads as checksummed,
// human-readable strings. A payload carries a small version number and a
// program of 2 to 40 bytes; version 0 uses the bech32 checksum, later
// versions use bech32m. The rules match the segwit address format, with
// the human-readable part chosen by the caller.
package address

import (
	"errors"
	"fmt"

	"chainci/pkg/bech32"
)

var (
	ErrHRPMismatch   = errors.New("human-readable part does not match")
	ErrVersion       = errors.New("invalid payload version")
	ErrProgramLength = errors.New("invalid program length")
	ErrEncoding      = errors.New("wrong checksum encoding for version")
	ErrEmptyPayload  = errors.New("empty data section")
)

// MaxVersion is the largest encodable payload version.
const MaxVersion = 16

func validate(version byte, program []byte) error {
	if version > MaxVersion {
		return fmt.Errorf("%w: %d", ErrVersion, version)
	}
	if len(program) < 2 || len(program) > 40 {
		return fmt.Errorf("%w: %d bytes", ErrProgramLength, len(program))
	}
	if version == 0 && len(program) != 20 && len(program) != 32 {
		return fmt.Errorf("%w: %d bytes for version 0", ErrProgramLength, len(program))
	}
	return nil
}

// Decode parses addr, requiring its human-readable part to equal hrp,
// and returns the payload version and program bytes.
func Decode(hrp, addr string) (byte, []byte, error) {
	gotHRP, data, enc, err := bech32.Decode(addr)
	if err != nil {
		return 0, nil, err
	}
	if gotHRP != hrp {
		return 0, nil, fmt.Errorf("%w: want %q, got %q", ErrHRPMismatch, hrp, gotHRP)
	}
	if len(data) == 0 {
		return 0, nil, ErrEmptyPayload
	}
	version := data[0]
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return 0, nil, err
	}
	if err := validate(version, program); err != nil {
		return 0, nil, err
	}
	if version == 0 && enc != bech32.Bech32 || version != 0 && enc != bech32.Bech32M {
		return 0, nil, fmt.Errorf("%w: version %d", ErrEncoding, version)
	}
	return version, program, nil
}

// Encode builds the address for a versioned program under hrp. The
// result is decoded again before being returned, so an input that could
// not round-trip is reported as an error.
func Encode(hrp string, version byte, program []byte) (string, error) {
	if err := validate(version, program); err != nil {
		return "", err
	}
	grouped, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	enc := bech32.Bech32
	if version > 0 {
		enc = bech32.Bech32M
	}
	addr, err := bech32.Encode(hrp, append([]byte{version}, grouped...), enc)
	if err != nil {
		return "", err
	}
	if _, _, err := Decode(hrp, addr); err != nil {
		return "", err
	}
	return addr, nil
}
