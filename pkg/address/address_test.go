package address

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

// Reference vectors exercise the two human-readable parts "bc" and "tb".
var validAddresses = []struct {
	addr      string
	hexResult string // version byte (0x50+v if v>0), push length, program
}{
	{"BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4", "0014751e76e8199196d454941c45d1b3a323f1433bd6"},
	{"tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3q0sl5k7",
		"00201863143c14c5166804bd19203356da136c985678cd4d27a1b8c6329604903262"},
	{"bc1pw508d6qejxtdg4y5r3zarvary0c5xw7kw508d6qejxtdg4y5r3zarvary0c5xw7kt5nd6y",
		"5128751e76e8199196d454941c45d1b3a323f1433bd6751e76e8199196d454941c45d1b3a323f1433bd6"},
	{"BC1SW50QGDZ25J", "6002751e"},
	{"bc1zw508d6qejxtdg4y5r3zarvaryvaxxpcs", "5210751e76e8199196d454941c45d1b3a323"},
	{"tb1qqqqqp399et2xygdj5xreqhjjvcmzhxw4aywxecjdzew6hylgvsesrxh6hy",
		"0020000000c4a5cad46221b2a187905e5266362b99d5e91c6ce24d165dab93e86433"},
	{"tb1pqqqqp399et2xygdj5xreqhjjvcmzhxw4aywxecjdzew6hylgvsesf3hn0c",
		"5120000000c4a5cad46221b2a187905e5266362b99d5e91c6ce24d165dab93e86433"},
	{"bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqzk5jj0",
		"512079be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"},
}

var invalidAddresses = []string{
	// wrong human-readable part
	"tc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vq5zuyut",
	// bech32 checksum where bech32m is required
	"bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqh2y7hd",
	"tb1z0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqglt7rf",
	"BC1S0XLXVLHEMJA6C4DQV22UAPCTQUPFHLXM9H8Z3K2E72Q4K9HCZ7VQ54WELL",
	// bech32m checksum where bech32 is required
	"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kemeawh",
	"tb1q0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vq24jc47",
	// invalid character in checksum
	"bc1p38j9r5y49hruaue7wxjce0updqjuyyx0kh56v8s25huc6995vvpql3jow4",
	// invalid payload version
	"BC130XLXVLHEMJA6C4DQV22UAPCTQUPFHLXM9H8Z3K2E72Q4K9HCZ7VQ7ZWS8R",
	// program length 1 byte
	"bc1pw5dgrnzv",
	// program length 41 bytes
	"bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7v8n0nx0muaewav253zgeav",
	// program length invalid for version 0
	"BC1QR508D6QEJXTDG4Y5R3ZARVARYV98GJ9P",
	// mixed case
	"tb1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vq47Zagq",
	// more than 4 padding bits
	"bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7v07qwwzcrf",
	// non-zero padding in the 8-to-5 regrouping
	"tb1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vpggkg4j",
	// empty data section
	"bc1gmk9yu",
}

// scriptForm reproduces the byte layout the reference vectors pair each
// address with: version opcode, program length, program.
func scriptForm(version byte, program []byte) []byte {
	op := byte(0)
	if version > 0 {
		op = version + 0x50
	}
	return append([]byte{op, byte(len(program))}, program...)
}

func TestDecodeValidAddresses(t *testing.T) {
	for _, c := range validAddresses {
		hrp := "bc"
		version, program, err := Decode(hrp, c.addr)
		if errors.Is(err, ErrHRPMismatch) {
			hrp = "tb"
			version, program, err = Decode(hrp, c.addr)
		}
		if err != nil {
			t.Errorf("Decode(%q): %v", c.addr, err)
			continue
		}
		want, _ := hex.DecodeString(c.hexResult)
		if got := scriptForm(version, program); string(got) != string(want) {
			t.Errorf("Decode(%q): payload %x, want %s", c.addr, got, c.hexResult)
		}

		reencoded, err := Encode(hrp, version, program)
		if err != nil {
			t.Errorf("Encode(%q, %d, %x): %v", hrp, version, program, err)
			continue
		}
		if reencoded != strings.ToLower(c.addr) {
			t.Errorf("Encode round trip: got %q, want %q", reencoded, strings.ToLower(c.addr))
		}
	}
}

func TestDecodeInvalidAddresses(t *testing.T) {
	for _, addr := range invalidAddresses {
		if _, _, err := Decode("bc", addr); err == nil {
			t.Errorf("Decode(bc, %q): expected error", addr)
		}
		if _, _, err := Decode("tb", addr); err == nil {
			t.Errorf("Decode(tb, %q): expected error", addr)
		}
	}
}

func TestEncodeInvalidInputs(t *testing.T) {
	cases := []struct {
		hrp     string
		version byte
		length  int
	}{
		{"BC", 0, 20}, // uppercase part cannot survive the round trip
		{"bc", 0, 21}, // bad length for version 0
		{"bc", 17, 32},
		{"bc", 1, 1},
		{"bc", 16, 41},
	}
	for _, c := range cases {
		if _, err := Encode(c.hrp, c.version, make([]byte, c.length)); err == nil {
			t.Errorf("Encode(%q, %d, %d bytes): expected error", c.hrp, c.version, c.length)
		}
	}
}

func TestDecodeWrongHRPKind(t *testing.T) {
	addr, err := Encode("ca", 1, make([]byte, 32))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, _, err := Decode("tb", addr); !errors.Is(err, ErrHRPMismatch) {
		t.Fatalf("expected ErrHRPMismatch, got %v", err)
	}
}
