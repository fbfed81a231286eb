package primitives

import (
	"encoding/hex"
	"testing"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2, "c": map[string]any{"z": 1, "y": 2}}
	b := map[string]any{"c": map[string]any{"y": 2, "z": 1}, "a": 2, "b": 1}

	ja, err := CanonicalJSON(a)
	if err != nil {
		t.Fatal(err)
	}
	jb, err := CanonicalJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(ja) != string(jb) {
		t.Fatalf("expected canonical forms to match: %s vs %s", ja, jb)
	}
	want := `{"a":2,"b":1,"c":{"y":2,"z":1}}`
	if string(ja) != want {
		t.Fatalf("got %s want %s", ja, want)
	}
}

func TestCanonicalJSONPrettyHasTrailingNewline(t *testing.T) {
	out, err := CanonicalJSONPretty(map[string]any{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if out[len(out)-1] != '\n' {
		t.Fatal("expected trailing newline")
	}
}

func TestPackHashDeterministic(t *testing.T) {
	files := map[string]FileEntry{
		"b.txt": {SHA256: "bb"},
		"a.txt": {SHA256: "aa"},
	}
	got := ComputePackHash(files)

	h := Sum256Hex([]byte("a.txt:aa\nb.txt:bb\n"))
	if got != h {
		t.Fatalf("got %s want %s", got, h)
	}
	if !VerifyPackHash(files, got) {
		t.Fatal("expected verify to pass")
	}
	if VerifyPackHash(files, "deadbeef") {
		t.Fatal("expected verify to fail on wrong hash")
	}
}

func TestSum256KnownVector(t *testing.T) {
	got := Sum256Hex(nil)
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
	_, err := hex.DecodeString(got)
	if err != nil {
		t.Fatal(err)
	}
}
