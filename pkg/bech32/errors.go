package bech32

import (
	"errors"
	"fmt"
)

var (
	ErrMixedCase    = errors.New("mixed case string")
	ErrCharRange    = errors.New("character out of range")
	ErrTooLong      = errors.New("string too long")
	ErrNoSeparator  = errors.New("no separator character")
	ErrEmptyHRP     = errors.New("empty human-readable part")
	ErrShortData    = errors.New("data part too short")
	ErrInvalidChar  = errors.New("invalid data character")
	ErrBadChecksum  = errors.New("invalid checksum")
	ErrPadding      = errors.New("invalid padding")
	ErrBitGroupSize = errors.New("invalid bit group size")
)

// DecodeError wraps a decode failure with positional detail.
type DecodeError struct {
	Kind error
	Msg  string
}

func (e *DecodeError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Kind }

func decodeErrf(kind error, format string, args ...any) error {
	return &DecodeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
