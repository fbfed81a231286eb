package phraseweave

import (
	"bytes"
	"testing"

	"weaver.dev/core/primitives"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	d := NewDictionary(0)
	d.AddEntry(1, []byte("he"), nil, nil)
	d.AddEntry(2, []byte("hello"), nil, nil)

	cfg := DefaultConfig()
	woven, meta, err := Encode([]byte("hello world"), d, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if meta.OriginalLen != len("hello world") {
		t.Fatalf("got %d", meta.OriginalLen)
	}

	back, err := Decode(woven, d, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, []byte("hello world")) {
		t.Fatalf("roundtrip mismatch: %q", back)
	}
}

func TestEncodeGreedyPrefersLongerStan(t *testing.T) {
	// "hello" should match the longer Stan-2 entry, not Stan-1's "he"
	// followed by literals, matching the longest-match-first tie-break.
	d := NewDictionary(0)
	d.AddEntry(1, []byte("he"), nil, nil)
	d.AddEntry(2, []byte("hello"), nil, nil)

	woven, meta, err := Encode([]byte("hello"), d, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if meta.StanCount != 1 || meta.LiteralCount != 0 {
		t.Fatalf("expected single STAN token, got stan=%d literal=%d", meta.StanCount, meta.LiteralCount)
	}

	expectTail := append([]byte{byte(TokenStan)}, primitives.EncodeVarint(2)...)
	if !bytes.Equal(woven[pwv1HeaderSize:], expectTail) {
		t.Fatalf("expected STAN(2) token, got % x", woven[pwv1HeaderSize:])
	}
}

func TestEncodeEmptyInput(t *testing.T) {
	d := NewDictionary(0)
	woven, meta, err := Encode(nil, d, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if meta.OriginalLen != 0 || meta.WovenLen != pwv1HeaderSize {
		t.Fatalf("expected header-only output, got %+v", meta)
	}
	back, err := Decode(woven, d, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 0 {
		t.Fatalf("expected empty output, got %q", back)
	}
}

func TestDecodeRejectsWrongDictionary(t *testing.T) {
	d1 := NewDictionary(0)
	d1.AddEntry(1, []byte("he"), nil, nil)
	d2 := NewDictionary(0)
	d2.AddEntry(1, []byte("xy"), nil, nil)

	woven, _, err := Encode([]byte("hey"), d1, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(woven, d2, DefaultConfig()); err == nil {
		t.Fatal("expected dictionary ID mismatch error")
	} else if de, ok := err.(*DictionaryError); !ok || de.Code != ErrDictIDMismatch {
		t.Fatalf("expected ErrDictIDMismatch, got %v", err)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	d := NewDictionary(0)
	bad := make([]byte, pwv1HeaderSize)
	copy(bad, "XXXX")
	if _, err := Decode(bad, d, DefaultConfig()); err == nil {
		t.Fatal("expected bad magic error")
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	d := NewDictionary(0)
	if _, err := Decode([]byte("short"), d, DefaultConfig()); err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestDecodeRepeatToken(t *testing.T) {
	d := NewDictionary(0)
	dictID := d.CanonicalID()
	woven := []byte(pwv1Magic)
	woven = append(woven, pwv1Version, pwv1Flags)
	woven = append(woven, dictID[:]...)
	woven = append(woven, byte(TokenLiteral), 'x')
	woven = append(woven, byte(TokenRepeat), 2) // varint(2) = 0x02

	back, err := Decode(woven, d, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if string(back) != "xxx" {
		t.Fatalf("got %q want xxx", back)
	}
}

func TestDecodeRepeatWithoutPriorExpansionFails(t *testing.T) {
	d := NewDictionary(0)
	dictID := d.CanonicalID()
	woven := []byte(pwv1Magic)
	woven = append(woven, pwv1Version, pwv1Flags)
	woven = append(woven, dictID[:]...)
	woven = append(woven, byte(TokenRepeat), 1)

	if _, err := Decode(woven, d, DefaultConfig()); err == nil {
		t.Fatal("expected no-prior-expansion error")
	}
}
