// Package rwv1 implements the RWV1 race container: a block-structured
// compressed container that, per block, races every enabled codec branch
// and keeps the smallest payload. Branches are zlib (0), MO+zlib (1), bz2
// (2), and lzma (3).
package rwv1

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"weaver.dev/core/mozlib"
	"weaver.dev/core/primitives"
)

const (
	magic   = "RWV1"
	version = byte(1)

	flagRawSHA256Present = byte(0x01)

	headerSize = 14
)

// BranchID identifies the codec used for one block.
type BranchID byte

const (
	BranchZlib   BranchID = 0
	BranchMOZlib BranchID = 1
	BranchBZ2    BranchID = 2
	BranchLZMA   BranchID = 3
)

func (b BranchID) String() string {
	switch b {
	case BranchZlib:
		return "ZLIB"
	case BranchMOZlib:
		return "MO_ZLIB"
	case BranchBZ2:
		return "BZ2"
	case BranchLZMA:
		return "LZMA"
	default:
		return fmt.Sprintf("BRANCH_%d", byte(b))
	}
}

// ErrorCode tags a ContainerError.
type ErrorCode string

const (
	ErrBadMagic        ErrorCode = "RWV1_BAD_MAGIC"
	ErrBadVersion      ErrorCode = "RWV1_BAD_VERSION"
	ErrTooShort        ErrorCode = "RWV1_TOO_SHORT"
	ErrTruncatedBlock  ErrorCode = "RWV1_TRUNCATED_BLOCK"
	ErrUnknownBranch   ErrorCode = "RWV1_UNKNOWN_BRANCH"
	ErrBranchUnavail   ErrorCode = "RWV1_BRANCH_UNAVAILABLE"
	ErrBlockSizeMismatch ErrorCode = "RWV1_BLOCK_SIZE_MISMATCH"
	ErrSHA256Mismatch  ErrorCode = "RWV1_SHA256_MISMATCH"
	ErrAllBranchesFailed ErrorCode = "RWV1_ALL_BRANCHES_FAILED"
	ErrInvalidConfig   ErrorCode = "RWV1_INVALID_CONFIG"
	ErrDecodeFailed    ErrorCode = "RWV1_DECODE_FAILED"
)

// ContainerError is returned by every fallible rwv1 operation.
type ContainerError struct {
	Code ErrorCode
	Msg  string
}

func (e *ContainerError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func containerErr(code ErrorCode, format string, args ...any) error {
	return &ContainerError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Config tunes RWV1 compression.
type Config struct {
	BlockSize int

	AllowZlib   bool
	AllowMOZlib bool
	AllowBZ2    bool
	AllowLZMA   bool

	ZlibLevel   int
	BZ2Level    int
	LZMAPreset  int
	MOMaxEntries int

	Probe         bool
	IncludeSHA256 bool
}

// DefaultConfig returns RWV1's default tuning: 1 MiB blocks, zlib and
// MO+zlib enabled, probe gating off, no integrity hash.
func DefaultConfig() Config {
	return Config{
		BlockSize:    1 << 20,
		AllowZlib:    true,
		AllowMOZlib:  true,
		AllowBZ2:     false,
		AllowLZMA:    false,
		ZlibLevel:    9,
		BZ2Level:     9,
		LZMAPreset:   6,
		MOMaxEntries: 200,
		Probe:        false,
		IncludeSHA256: false,
	}
}

// Validate checks configuration bounds and that at least one branch is on.
func (c Config) Validate() error {
	if c.BlockSize < 1024 {
		return containerErr(ErrInvalidConfig, "block size must be >= 1024")
	}
	if c.BlockSize > 64*1024*1024 {
		return containerErr(ErrInvalidConfig, "block size must be <= 64 MiB")
	}
	if c.ZlibLevel < 1 || c.ZlibLevel > 9 {
		return containerErr(ErrInvalidConfig, "zlib level must be 1-9")
	}
	if c.BZ2Level < 1 || c.BZ2Level > 9 {
		return containerErr(ErrInvalidConfig, "bz2 level must be 1-9")
	}
	if c.LZMAPreset < 0 || c.LZMAPreset > 9 {
		return containerErr(ErrInvalidConfig, "lzma preset must be 0-9")
	}
	if c.MOMaxEntries < 1 {
		return containerErr(ErrInvalidConfig, "mo max entries must be >= 1")
	}
	if !c.AllowZlib && !c.AllowMOZlib && !c.AllowBZ2 && !c.AllowLZMA {
		return containerErr(ErrInvalidConfig, "at least one branch must be enabled")
	}
	return nil
}

func (c Config) enabledBranches() []BranchID {
	var branches []BranchID
	if c.AllowZlib {
		branches = append(branches, BranchZlib)
	}
	if c.AllowMOZlib {
		branches = append(branches, BranchMOZlib)
	}
	if c.AllowBZ2 {
		branches = append(branches, BranchBZ2)
	}
	if c.AllowLZMA {
		branches = append(branches, BranchLZMA)
	}
	return branches
}

// BlockInfo describes one decoded block's header, for container
// introspection without full decompression.
type BlockInfo struct {
	Index      int
	BranchID   BranchID
	RawLen     int
	PayloadLen int
}

// Ratio returns PayloadLen/RawLen, or 0 if RawLen is 0.
func (b BlockInfo) Ratio() float64 {
	if b.RawLen == 0 {
		return 0
	}
	return float64(b.PayloadLen) / float64(b.RawLen)
}

// ContainerInfo summarizes an RWV1 container's header and block table.
type ContainerInfo struct {
	Version          byte
	Flags            byte
	BlockSize        int
	BlockCount       int
	RawSHA256        []byte
	Blocks           []BlockInfo
	TotalRawSize     int
	TotalPayloadSize int
}

// HasSHA256 reports whether the container carries a whole-payload hash.
func (c ContainerInfo) HasSHA256() bool {
	return c.Flags&flagRawSHA256Present != 0
}

// OverallRatio returns TotalPayloadSize/TotalRawSize, or 0 if empty.
func (c ContainerInfo) OverallRatio() float64 {
	if c.TotalRawSize == 0 {
		return 0
	}
	return float64(c.TotalPayloadSize) / float64(c.TotalRawSize)
}

// BranchUsage counts blocks per branch name.
func (c ContainerInfo) BranchUsage() map[string]int {
	usage := make(map[string]int)
	for _, b := range c.Blocks {
		usage[b.BranchID.String()]++
	}
	return usage
}

func encodeBlock(data []byte, branch BranchID, cfg Config) ([]byte, error) {
	switch branch {
	case BranchZlib:
		var buf bytes.Buffer
		w, err := zlib.NewWriterLevel(&buf, cfg.ZlibLevel)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case BranchMOZlib:
		return mozlib.Encode(data, mozlib.Options{MaxEntries: cfg.MOMaxEntries, ZlibLevel: cfg.ZlibLevel})

	case BranchBZ2:
		return nil, containerErr(ErrBranchUnavail, "no bzip2 encoder in this build")

	case BranchLZMA:
		var buf bytes.Buffer
		wcfg := lzma.WriterConfig{DictCap: lzmaDictCapForPreset(cfg.LZMAPreset)}
		w, err := wcfg.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	default:
		return nil, containerErr(ErrUnknownBranch, "%d", branch)
	}
}

// lzmaDictCapForPreset maps an xz-style preset level (0-9) to a
// dictionary capacity, mirroring the doubling dictionary-size ladder the
// xz command line tool uses per preset (256 KiB at preset 0 up to 64 MiB
// at preset 9). The raw LZMA stream header records the chosen DictCap,
// so decodeBlock needs no matching preset to read it back.
func lzmaDictCapForPreset(preset int) int {
	if preset < 0 {
		preset = 0
	}
	if preset > 8 {
		preset = 8
	}
	return 1 << uint(18+preset) // 256 KiB (preset 0) .. 64 MiB (preset 8-9)
}

func decodeBlock(payload []byte, branch BranchID, expectedLen int) ([]byte, error) {
	var data []byte

	switch branch {
	case BranchZlib:
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		d, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		data = d

	case BranchMOZlib:
		d, err := mozlib.Decode(payload)
		if err != nil {
			return nil, err
		}
		data = d

	case BranchBZ2:
		return nil, containerErr(ErrBranchUnavail, "no bzip2 encoder in this build")

	case BranchLZMA:
		r, err := lzma.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		d, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		data = d

	default:
		return nil, containerErr(ErrUnknownBranch, "%d", branch)
	}

	if len(data) != expectedLen {
		return nil, containerErr(ErrBlockSizeMismatch, "expected %d, got %d", expectedLen, len(data))
	}
	return data, nil
}

// raceEncodeBlock tries every branch in branches sequentially and keeps
// the smallest payload. Sequential by design (see ledger): the Python
// source races by trying branches one after another and comparing sizes,
// not by running encoders concurrently.
func raceEncodeBlock(data []byte, branches []BranchID, cfg Config) (BranchID, []byte, error) {
	var bestBranch BranchID
	var bestPayload []byte
	haveBest := false

	for _, branch := range branches {
		payload, err := encodeBlock(data, branch, cfg)
		if err != nil {
			continue
		}
		if !haveBest || len(payload) < len(bestPayload) {
			bestBranch = branch
			bestPayload = payload
			haveBest = true
		}
	}

	if !haveBest {
		return 0, nil, containerErr(ErrAllBranchesFailed, "")
	}
	return bestBranch, bestPayload, nil
}

// probeGate heuristically narrows the branch set for a block by
// estimating whether it looks like text (favoring MO+zlib) or binary
// (favoring plain zlib).
func probeGate(data []byte) []BranchID {
	if len(data) == 0 {
		return []BranchID{BranchZlib}
	}
	printable := 0
	for _, b := range data {
		if b >= 32 && b <= 126 {
			printable++
		}
	}
	ratio := float64(printable) / float64(len(data))
	if ratio > 0.7 {
		return []BranchID{BranchMOZlib, BranchZlib}
	}
	return []BranchID{BranchZlib, BranchMOZlib}
}

func filterEnabled(candidates, enabled []BranchID) []BranchID {
	enabledSet := make(map[BranchID]bool, len(enabled))
	for _, b := range enabled {
		enabledSet[b] = true
	}
	var out []BranchID
	for _, b := range candidates {
		if enabledSet[b] {
			out = append(out, b)
		}
	}
	return out
}

// Compress compresses data into an RWV1 container per cfg.
func Compress(data []byte, cfg Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var rawSHA256 [32]byte
	if cfg.IncludeSHA256 {
		rawSHA256 = primitives.Sum256(data)
	}

	var blocksData [][]byte
	for i := 0; i < len(data); i += cfg.BlockSize {
		end := i + cfg.BlockSize
		if end > len(data) {
			end = len(data)
		}
		blocksData = append(blocksData, data[i:end])
	}
	if len(blocksData) == 0 {
		blocksData = [][]byte{{}}
	}

	enabled := cfg.enabledBranches()

	type encodedBlock struct {
		branch  BranchID
		rawLen  int
		payload []byte
	}
	encoded := make([]encodedBlock, 0, len(blocksData))

	for _, block := range blocksData {
		branches := enabled
		if cfg.Probe && len(enabled) > 1 {
			probed := filterEnabled(probeGate(block), enabled)
			if len(probed) > 0 {
				branches = probed
			}
		}
		branch, payload, err := raceEncodeBlock(block, branches, cfg)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, encodedBlock{branch: branch, rawLen: len(block), payload: payload})
	}

	out := make([]byte, 0, headerSize+len(data))
	out = append(out, magic...)
	out = append(out, version)

	var flags byte
	if cfg.IncludeSHA256 {
		flags |= flagRawSHA256Present
	}
	out = append(out, flags)

	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(cfg.BlockSize))
	out = append(out, u32[:]...)
	binary.BigEndian.PutUint32(u32[:], uint32(len(encoded)))
	out = append(out, u32[:]...)

	if cfg.IncludeSHA256 {
		out = append(out, rawSHA256[:]...)
	}

	for _, b := range encoded {
		out = append(out, byte(b.branch))
		binary.BigEndian.PutUint32(u32[:], uint32(b.rawLen))
		out = append(out, u32[:]...)
		binary.BigEndian.PutUint32(u32[:], uint32(len(b.payload)))
		out = append(out, u32[:]...)
		out = append(out, b.payload...)
	}

	return out, nil
}

// Decompress reverses Compress, verifying the embedded SHA-256 if present.
func Decompress(container []byte) ([]byte, error) {
	if len(container) < headerSize {
		return nil, containerErr(ErrTooShort, "%d bytes", len(container))
	}
	if string(container[0:4]) != magic {
		return nil, containerErr(ErrBadMagic, "got %q", container[0:4])
	}
	if container[4] != version {
		return nil, containerErr(ErrBadVersion, "got %d", container[4])
	}

	flags := container[5]
	hasSHA256 := flags&flagRawSHA256Present != 0

	blockCount := binary.BigEndian.Uint32(container[10:14])

	pos := headerSize
	var expectedSHA256 []byte
	if hasSHA256 {
		if pos+32 > len(container) {
			return nil, containerErr(ErrTruncatedBlock, "truncated SHA-256")
		}
		expectedSHA256 = container[pos : pos+32]
		pos += 32
	}

	var result []byte
	for i := uint32(0); i < blockCount; i++ {
		if pos+9 > len(container) {
			return nil, containerErr(ErrTruncatedBlock, "block %d header", i)
		}
		branch := BranchID(container[pos])
		pos++
		rawLen := binary.BigEndian.Uint32(container[pos : pos+4])
		pos += 4
		payloadLen := binary.BigEndian.Uint32(container[pos : pos+4])
		pos += 4

		if pos+int(payloadLen) > len(container) {
			return nil, containerErr(ErrTruncatedBlock, "block %d payload", i)
		}
		payload := container[pos : pos+int(payloadLen)]
		pos += int(payloadLen)

		blockData, err := decodeBlock(payload, branch, int(rawLen))
		if err != nil {
			return nil, containerErr(ErrDecodeFailed, "block %d: %v", i, err)
		}
		result = append(result, blockData...)
	}

	if expectedSHA256 != nil {
		actual := primitives.Sum256(result)
		if !bytes.Equal(actual[:], expectedSHA256) {
			return nil, containerErr(ErrSHA256Mismatch, "")
		}
	}

	return result, nil
}

// Info parses container's header and block table without decompressing
// any block payload.
func Info(container []byte) (ContainerInfo, error) {
	if len(container) < headerSize {
		return ContainerInfo{}, containerErr(ErrTooShort, "%d bytes", len(container))
	}
	if string(container[0:4]) != magic {
		return ContainerInfo{}, containerErr(ErrBadMagic, "got %q", container[0:4])
	}

	version := container[4]
	flags := container[5]
	hasSHA256 := flags&flagRawSHA256Present != 0
	blockSize := binary.BigEndian.Uint32(container[6:10])
	blockCount := binary.BigEndian.Uint32(container[10:14])

	pos := headerSize
	var rawSHA256 []byte
	if hasSHA256 {
		if pos+32 <= len(container) {
			rawSHA256 = container[pos : pos+32]
		}
		pos += 32
	}

	info := ContainerInfo{
		Version:    version,
		Flags:      flags,
		BlockSize:  int(blockSize),
		BlockCount: int(blockCount),
		RawSHA256:  rawSHA256,
	}

	for i := uint32(0); i < blockCount; i++ {
		if pos+9 > len(container) {
			break
		}
		branch := BranchID(container[pos])
		pos++
		rawLen := binary.BigEndian.Uint32(container[pos : pos+4])
		pos += 4
		payloadLen := binary.BigEndian.Uint32(container[pos : pos+4])
		pos += 4

		info.Blocks = append(info.Blocks, BlockInfo{
			Index:      int(i),
			BranchID:   branch,
			RawLen:     int(rawLen),
			PayloadLen: int(payloadLen),
		})
		info.TotalRawSize += int(rawLen)
		info.TotalPayloadSize += int(payloadLen)
		pos += int(payloadLen)
	}

	return info, nil
}
