package rwv1

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressDecompressRoundtrip(t *testing.T) {
	data := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 50))
	container, err := Compress(data, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decompress(container)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Fatal("roundtrip mismatch")
	}
}

func TestCompressDecompressEmptyInput(t *testing.T) {
	container, err := Compress(nil, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decompress(container)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 0 {
		t.Fatalf("expected empty, got %q", back)
	}
}

func TestCompressWithSHA256Integrity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeSHA256 = true
	data := []byte("integrity checked payload")

	container, err := Compress(data, cfg)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decompress(container)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Fatal("roundtrip mismatch")
	}

	// Corrupt a byte of the stored SHA-256; the blocks still decode, so
	// the whole-payload hash check must catch it.
	corrupted := append([]byte(nil), container...)
	corrupted[headerSize] ^= 0xFF
	if _, err := Decompress(corrupted); err == nil {
		t.Fatal("expected SHA-256 mismatch error")
	} else if ce, ok := err.(*ContainerError); !ok || ce.Code != ErrSHA256Mismatch {
		t.Fatalf("expected ErrSHA256Mismatch, got %v", err)
	}
}

func TestCompressMultiBlock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlockSize = 1024
	data := make([]byte, 1024*5+37)
	for i := range data {
		data[i] = byte(i % 251)
	}
	container, err := Compress(data, cfg)
	if err != nil {
		t.Fatal(err)
	}
	info, err := Info(container)
	if err != nil {
		t.Fatal(err)
	}
	if info.BlockCount != 6 {
		t.Fatalf("expected 6 blocks, got %d", info.BlockCount)
	}
	back, err := Decompress(container)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Fatal("multi-block roundtrip mismatch")
	}
}

func TestCompressWithLZMABranch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowLZMA = true
	data := []byte(strings.Repeat("lzma branch test data ", 100))

	container, err := Compress(data, cfg)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decompress(container)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Fatal("roundtrip mismatch with LZMA enabled")
	}
}

func TestCompressWithLZMABranchLowPreset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowLZMA = true
	cfg.LZMAPreset = 0
	data := []byte(strings.Repeat("lzma low preset test data ", 100))

	container, err := Compress(data, cfg)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decompress(container)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, data) {
		t.Fatal("roundtrip mismatch with low LZMA preset")
	}
}

func TestBZ2BranchUnavailable(t *testing.T) {
	cfg := Config{BlockSize: 1024, AllowBZ2: true, ZlibLevel: 9, BZ2Level: 9, LZMAPreset: 6, MOMaxEntries: 200}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	// bz2 is the only enabled branch and has no encoder in this build, so
	// every block must fail to race-encode.
	if _, err := Compress([]byte("some data"), cfg); err == nil {
		t.Fatal("expected all-branches-failed error with only bz2 enabled")
	}
}

func TestProbeGatePrefersMOZlibForText(t *testing.T) {
	text := []byte(strings.Repeat("hello world hello world ", 20))
	branches := probeGate(text)
	if branches[0] != BranchMOZlib {
		t.Fatalf("expected MO_ZLIB first for text-like data, got %v", branches)
	}
}

func TestProbeGatePrefersZlibForBinary(t *testing.T) {
	binary := make([]byte, 200)
	for i := range binary {
		binary[i] = byte(i * 37 % 256)
	}
	branches := probeGate(binary)
	if branches[0] != BranchZlib {
		t.Fatalf("expected ZLIB first for binary-like data, got %v", branches)
	}
}

func TestDecompressRejectsBadMagic(t *testing.T) {
	bad := make([]byte, headerSize)
	copy(bad, "XXXX")
	if _, err := Decompress(bad); err == nil {
		t.Fatal("expected bad magic error")
	}
}

func TestDecompressRejectsTooShort(t *testing.T) {
	if _, err := Decompress([]byte("short")); err == nil {
		t.Fatal("expected too-short error")
	}
}

func TestValidateRejectsNoBranchesEnabled(t *testing.T) {
	cfg := Config{BlockSize: 1024, ZlibLevel: 9, MOMaxEntries: 200}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when no branch is enabled")
	}
}

func TestValidateRejectsOutOfRangeBZ2Level(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BZ2Level = 10
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for out-of-range bz2 level")
	}
	cfg.BZ2Level = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero bz2 level")
	}
}

func TestValidateRejectsOutOfRangeLZMAPreset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LZMAPreset = 10
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for out-of-range lzma preset")
	}
	cfg.LZMAPreset = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for negative lzma preset")
	}
}

func TestLZMAPresetAffectsDictCap(t *testing.T) {
	if lzmaDictCapForPreset(0) >= lzmaDictCapForPreset(8) {
		t.Fatal("expected higher preset to map to a larger dictionary cap")
	}
	if lzmaDictCapForPreset(9) != lzmaDictCapForPreset(8) {
		t.Fatal("expected preset 9 to cap at the same dictionary size as preset 8")
	}
}

func TestInfoReportsBranchUsage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlockSize = 1024
	data := make([]byte, 1024*3)
	container, err := Compress(data, cfg)
	if err != nil {
		t.Fatal(err)
	}
	info, err := Info(container)
	if err != nil {
		t.Fatal(err)
	}
	usage := info.BranchUsage()
	total := 0
	for _, n := range usage {
		total += n
	}
	if total != info.BlockCount {
		t.Fatalf("branch usage total %d != block count %d", total, info.BlockCount)
	}
}
