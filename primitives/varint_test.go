package primitives

import (
	"encoding/hex"
	"testing"
)

func TestVarintEncodeDecode(t *testing.T) {
	cases := []struct {
		name string
		val  uint64
		hex  string
	}{
		{"zero", 0, "00"},
		{"one_byte_max", 127, "7f"},
		{"two_byte_min", 128, "8001"},
		{"two_byte", 300, "ac02"},
		{"u32_boundary", 1 << 32, "80808080 10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := tc.hex
			// allow whitespace in expectation table for readability
			cleaned := ""
			for _, r := range want {
				if r != ' ' {
					cleaned += string(r)
				}
			}
			enc := EncodeVarint(tc.val)
			if hex.EncodeToString(enc) != cleaned {
				t.Fatalf("encode mismatch: got %x want %s", enc, cleaned)
			}
			dec, n, err := DecodeVarint(enc, 0)
			if err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if n != len(enc) {
				t.Fatalf("decode consumed %d bytes, want %d", n, len(enc))
			}
			if dec != tc.val {
				t.Fatalf("decode value mismatch: got %d want %d", dec, tc.val)
			}
		})
	}
}

func TestVarintTruncated(t *testing.T) {
	_, _, err := DecodeVarint([]byte{0x80}, 0)
	if err == nil {
		t.Fatal("expected error on truncated varint")
	}
}

func TestVarintTooLarge(t *testing.T) {
	// Nine continuation bytes already carry 63 bits of payload; the tenth
	// byte would push the value past the 63-bit width budget.
	b := make([]byte, 10)
	for i := range b {
		b[i] = 0x80
	}
	b[9] = 0x7f
	_, _, err := DecodeVarint(b, 0)
	if err == nil {
		t.Fatal("expected error on oversized varint")
	}
}
