package phraseweave

import (
	"bytes"
	"testing"
)

func TestDictionaryRoundtrip(t *testing.T) {
	d := NewDictionary(1)
	w := float32(0.5)
	d.AddEntry(1, []byte("he"), &w, nil)
	d.AddEntry(2, []byte("hello"), nil, nil)
	d.AddPhrase(10, []uint64{1, 2})

	data := d.ToBytes()
	back, err := DictionaryFromBytes(data)
	if err != nil {
		t.Fatal(err)
	}

	if back.Domain != 1 {
		t.Fatalf("domain mismatch: %d", back.Domain)
	}
	if len(back.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(back.Entries))
	}
	raw, err := back.GetRawForm(2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, []byte("hello")) {
		t.Fatalf("got %q", raw)
	}
	if len(back.Phrases) != 1 || back.Phrases[10].StanIDs[1] != 2 {
		t.Fatalf("phrase roundtrip mismatch: %+v", back.Phrases)
	}
}

func TestDictionaryCanonicalIDIgnoresMetadata(t *testing.T) {
	w := float32(0.9)
	f := float32(0.1)

	d1 := NewDictionary(0)
	d1.AddEntry(1, []byte("he"), nil, nil)

	d2 := NewDictionary(5)
	d2.AddEntry(1, []byte("he"), &w, &f)

	if d1.CanonicalID() != d2.CanonicalID() {
		t.Fatal("expected canonical ID to ignore domain, weight, and frequency")
	}
}

func TestDictionaryFromBytesRejectsIDMismatch(t *testing.T) {
	d := NewDictionary(0)
	d.AddEntry(1, []byte("he"), nil, nil)
	data := d.ToBytes()

	// Corrupt a byte inside the stored canonical ID.
	corrupted := append([]byte(nil), data...)
	corrupted[12] ^= 0xFF

	if _, err := DictionaryFromBytes(corrupted); err == nil {
		t.Fatal("expected ID mismatch error")
	} else if de, ok := err.(*DictionaryError); !ok || de.Code != ErrIDMismatch {
		t.Fatalf("expected ErrIDMismatch, got %v", err)
	}
}

func TestDictionaryFromBytesRejectsBadMagic(t *testing.T) {
	// Long enough to pass the 44-byte header length check, so the
	// rejection comes from the magic bytes.
	junk := append([]byte("JUNK"), make([]byte, 40)...)
	if _, err := DictionaryFromBytes(junk); err == nil {
		t.Fatal("expected bad magic error")
	} else if de, ok := err.(*DictionaryError); !ok || de.Code != ErrBadMagic {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestDictionaryGetRawFormUnknown(t *testing.T) {
	d := NewDictionary(0)
	if _, err := d.GetRawForm(99); err == nil {
		t.Fatal("expected error for unknown Stan ID")
	}
}

func TestEmptyDictionaryRoundtrip(t *testing.T) {
	d := NewDictionary(0)
	data := d.ToBytes()
	back, err := DictionaryFromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Entries) != 0 || len(back.Phrases) != 0 {
		t.Fatal("expected empty dictionary to roundtrip empty")
	}
}
