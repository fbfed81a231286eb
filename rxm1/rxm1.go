// Package rxm1 implements the RXM1 music container: a FourCC-chunked
// container holding a JSON metadata chunk, an RWV1-compressed score chunk,
// an optional RWV1-compressed audio chunk, and an optional tick/frame sync
// map tying the two together.
package rxm1

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"weaver.dev/core/primitives"
	"weaver.dev/core/rwv1"
)

const (
	magic   = "RXM1"
	version = byte(1)

	flagHasSHA256 = byte(0x01)
	flagHasAudio  = byte(0x02)
	flagHasSync   = byte(0x04)

	headerSize = 8
)

// ChunkType is a 4-byte FourCC chunk identifier.
type ChunkType [4]byte

func (c ChunkType) String() string { return string(c[:]) }

var (
	ChunkMeta = ChunkType{'M', 'E', 'T', 'A'}
	ChunkScor = ChunkType{'S', 'C', 'O', 'R'}
	ChunkSync = ChunkType{'S', 'Y', 'N', 'C'}
	ChunkAudi = ChunkType{'A', 'U', 'D', 'I'}
)

// ErrorCode tags a ContainerError.
type ErrorCode string

const (
	ErrBadMagic        ErrorCode = "RXM1_BAD_MAGIC"
	ErrBadVersion      ErrorCode = "RXM1_BAD_VERSION"
	ErrTooShort        ErrorCode = "RXM1_TOO_SHORT"
	ErrTruncatedChunk  ErrorCode = "RXM1_TRUNCATED_CHUNK"
	ErrSHA256Mismatch  ErrorCode = "RXM1_SHA256_MISMATCH"
	ErrMissingChunk    ErrorCode = "RXM1_MISSING_CHUNK"
	ErrInvalidMeta     ErrorCode = "RXM1_INVALID_META"
	ErrInvalidSync     ErrorCode = "RXM1_INVALID_SYNC"
	ErrInvalidInput    ErrorCode = "RXM1_INVALID_INPUT"
	ErrBadFourCC       ErrorCode = "RXM1_BAD_FOURCC"
	ErrNoSyncEntries   ErrorCode = "RXM1_NO_SYNC_ENTRIES"
)

// ContainerError is returned by every fallible rxm1 operation.
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

// Metadata describes a piece of music carried by an RXM1 container.
type Metadata struct {
	Title         string         `json:"title"`
	Composer      string         `json:"composer"`
	TempoBPM      float64        `json:"tempo_bpm"`
	TimeSignature string         `json:"time_signature"`
	KeySignature  string         `json:"key_signature"`
	Description   string         `json:"description"`
	ScoreFormat   string         `json:"score_format"`
	AudioFormat   string         `json:"audio_format,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// DefaultMetadata returns the RXM metadata defaults (120 BPM, common time,
// key of C, MIDI score format).
func DefaultMetadata() Metadata {
	return Metadata{TempoBPM: 120.0, TimeSignature: "4/4", KeySignature: "C", ScoreFormat: "midi"}
}

// SyncEntry anchors one score tick to one audio frame.
type SyncEntry struct {
	ScoreTick  uint32
	AudioFrame uint32
}

// Config tunes RXM1 packing.
type Config struct {
	IncludeSHA256 bool

	RWV1BlockSize  int
	RWV1AllowBZ2   bool
	RWV1AllowLZMA  bool
}

// DefaultConfig returns the RXM1 default tuning.
func DefaultConfig() Config {
	return Config{RWV1BlockSize: 1 << 20}
}

// Validate checks configuration bounds.
func (c Config) Validate() error {
	if c.RWV1BlockSize < 1024 {
		return containerErr(ErrInvalidInput, "rwv1 block size must be >= 1024")
	}
	if c.RWV1BlockSize > 64*1024*1024 {
		return containerErr(ErrInvalidInput, "rwv1 block size must be <= 64 MiB")
	}
	return nil
}

func (c Config) rwv1Config() rwv1.Config {
	cfg := rwv1.DefaultConfig()
	cfg.BlockSize = c.RWV1BlockSize
	cfg.AllowBZ2 = c.RWV1AllowBZ2
	cfg.AllowLZMA = c.RWV1AllowLZMA
	cfg.IncludeSHA256 = false // RXM1 handles its own integrity hash
	return cfg
}

// ExtraChunk is an unrecognized chunk preserved verbatim for forward
// compatibility.
type ExtraChunk struct {
	Type ChunkType
	Data []byte
}

type rawChunk struct {
	fourcc ChunkType
	data   []byte
}

func encodeSync(entries []SyncEntry) []byte {
	out := make([]byte, 4+len(entries)*8)
	binary.BigEndian.PutUint32(out[0:4], uint32(len(entries)))
	for i, e := range entries {
		off := 4 + i*8
		binary.BigEndian.PutUint32(out[off:off+4], e.ScoreTick)
		binary.BigEndian.PutUint32(out[off+4:off+8], e.AudioFrame)
	}
	return out
}

func decodeSync(data []byte) ([]SyncEntry, error) {
	if len(data) < 4 {
		return nil, containerErr(ErrTruncatedChunk, "SYNC chunk too short")
	}
	count := binary.BigEndian.Uint32(data[0:4])
	expected := 4 + int(count)*8
	if len(data) < expected {
		return nil, containerErr(ErrTruncatedChunk, "SYNC chunk truncated: expected %d bytes, got %d", expected, len(data))
	}
	entries := make([]SyncEntry, count)
	pos := 4
	for i := range entries {
		entries[i] = SyncEntry{
			ScoreTick:  binary.BigEndian.Uint32(data[pos : pos+4]),
			AudioFrame: binary.BigEndian.Uint32(data[pos+4 : pos+8]),
		}
		pos += 8
	}
	return entries, nil
}

// ValidateSync checks that entries are strictly monotonically increasing
// in both score tick and audio frame.
func ValidateSync(entries []SyncEntry) error {
	for i := 1; i < len(entries); i++ {
		prev, curr := entries[i-1], entries[i]
		if curr.ScoreTick <= prev.ScoreTick {
			return containerErr(ErrInvalidSync, "score_tick not monotonically increasing at index %d: %d >= %d", i, prev.ScoreTick, curr.ScoreTick)
		}
		if curr.AudioFrame <= prev.AudioFrame {
			return containerErr(ErrInvalidSync, "audio_frame not monotonically increasing at index %d: %d >= %d", i, prev.AudioFrame, curr.AudioFrame)
		}
	}
	return nil
}

// TickToFrame converts a score tick to its nearest audio frame by linear
// interpolation between sync anchors, clamping to the first/last anchor.
func TickToFrame(entries []SyncEntry, tick uint32) (uint32, error) {
	if len(entries) == 0 {
		return 0, containerErr(ErrNoSyncEntries, "")
	}
	if tick <= entries[0].ScoreTick {
		return entries[0].AudioFrame, nil
	}
	if tick >= entries[len(entries)-1].ScoreTick {
		return entries[len(entries)-1].AudioFrame, nil
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].ScoreTick >= tick {
			prev, curr := entries[i-1], entries[i]
			tickRange := int64(curr.ScoreTick) - int64(prev.ScoreTick)
			frameRange := int64(curr.AudioFrame) - int64(prev.AudioFrame)
			tickOffset := int64(tick) - int64(prev.ScoreTick)
			return uint32(int64(prev.AudioFrame) + frameRange*tickOffset/tickRange), nil
		}
	}
	return entries[len(entries)-1].AudioFrame, nil
}

// FrameToTick converts an audio frame to its nearest score tick by linear
// interpolation between sync anchors, clamping to the first/last anchor.
func FrameToTick(entries []SyncEntry, frame uint32) (uint32, error) {
	if len(entries) == 0 {
		return 0, containerErr(ErrNoSyncEntries, "")
	}
	if frame <= entries[0].AudioFrame {
		return entries[0].ScoreTick, nil
	}
	if frame >= entries[len(entries)-1].AudioFrame {
		return entries[len(entries)-1].ScoreTick, nil
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].AudioFrame >= frame {
			prev, curr := entries[i-1], entries[i]
			frameRange := int64(curr.AudioFrame) - int64(prev.AudioFrame)
			tickRange := int64(curr.ScoreTick) - int64(prev.ScoreTick)
			frameOffset := int64(frame) - int64(prev.AudioFrame)
			return uint32(int64(prev.ScoreTick) + tickRange*frameOffset/frameRange), nil
		}
	}
	return entries[len(entries)-1].ScoreTick, nil
}

// Pack packs metadata, score data, optional audio data, and an optional
// sync map into an RXM1 container.
func Pack(metadata Metadata, scoreData, audioData []byte, syncEntries []SyncEntry, cfg Config, extra []ExtraChunk) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(scoreData) == 0 && len(audioData) == 0 {
		return nil, containerErr(ErrInvalidInput, "at least score data must be provided")
	}
	hasAudio := audioData != nil
	if hasAudio && syncEntries == nil {
		return nil, containerErr(ErrInvalidInput, "sync entries required when audio data is provided")
	}
	if hasAudio {
		if err := ValidateSync(syncEntries); err != nil {
			return nil, err
		}
	}
	hasSync := len(syncEntries) > 0

	var flags byte
	if cfg.IncludeSHA256 {
		flags |= flagHasSHA256
	}
	if hasAudio {
		flags |= flagHasAudio
	}
	if hasSync {
		flags |= flagHasSync
	}

	var chunks []rawChunk

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, containerErr(ErrInvalidMeta, "%v", err)
	}
	chunks = append(chunks, rawChunk{fourcc: ChunkMeta, data: metaJSON})

	rwCfg := cfg.rwv1Config()
	compressedScore, err := rwv1.Compress(scoreData, rwCfg)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, rawChunk{fourcc: ChunkScor, data: compressedScore})

	if hasSync {
		chunks = append(chunks, rawChunk{fourcc: ChunkSync, data: encodeSync(syncEntries)})
	}

	if hasAudio {
		compressedAudio, err := rwv1.Compress(audioData, rwCfg)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, rawChunk{fourcc: ChunkAudi, data: compressedAudio})
	}

	for _, e := range extra {
		chunks = append(chunks, rawChunk{fourcc: e.Type, data: e.Data})
	}

	var out []byte
	out = append(out, magic...)
	out = append(out, version, flags)
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], uint16(len(chunks)))
	out = append(out, u16[:]...)

	shaOffset := -1
	if cfg.IncludeSHA256 {
		shaOffset = len(out)
		out = append(out, make([]byte, 32)...)
	}

	var hashInput []byte
	for _, c := range chunks {
		out = append(out, c.fourcc[:]...)
		var u32 [4]byte
		binary.BigEndian.PutUint32(u32[:], uint32(len(c.data)))
		out = append(out, u32[:]...)
		out = append(out, c.data...)
		hashInput = append(hashInput, c.data...)
	}

	if shaOffset >= 0 {
		digest := primitives.Sum256(hashInput)
		copy(out[shaOffset:shaOffset+32], digest[:])
	}

	return out, nil
}

// Unpacked holds the decoded contents of an RXM1 container.
type Unpacked struct {
	Metadata    Metadata
	ScoreData   []byte
	AudioData   []byte
	SyncEntries []SyncEntry
	Extra       []ExtraChunk
}

func readChunkTable(container []byte) (flags byte, chunkCount uint16, chunks []rawChunk, err error) {
	if len(container) < headerSize {
		return 0, 0, nil, containerErr(ErrTooShort, "%d bytes", len(container))
	}
	if string(container[0:4]) != magic {
		return 0, 0, nil, containerErr(ErrBadMagic, "got %q", container[0:4])
	}
	ver := container[4]
	if ver != version {
		return 0, 0, nil, containerErr(ErrBadVersion, "got %d", ver)
	}
	flags = container[5]
	hasSHA256 := flags&flagHasSHA256 != 0
	chunkCount = binary.BigEndian.Uint16(container[6:8])

	pos := headerSize
	var expectedSHA256 []byte
	if hasSHA256 {
		if pos+32 > len(container) {
			return 0, 0, nil, containerErr(ErrTruncatedChunk, "truncated SHA-256")
		}
		expectedSHA256 = container[pos : pos+32]
		pos += 32
	}

	var hashInput []byte
	for i := uint16(0); i < chunkCount; i++ {
		if pos+8 > len(container) {
			return 0, 0, nil, containerErr(ErrTruncatedChunk, "chunk %d header", i)
		}
		var fourcc ChunkType
		copy(fourcc[:], container[pos:pos+4])
		pos += 4
		dataSize := binary.BigEndian.Uint32(container[pos : pos+4])
		pos += 4
		if pos+int(dataSize) > len(container) {
			return 0, 0, nil, containerErr(ErrTruncatedChunk, "chunk %d data", i)
		}
		data := container[pos : pos+int(dataSize)]
		pos += int(dataSize)

		chunks = append(chunks, rawChunk{fourcc: fourcc, data: data})
		hashInput = append(hashInput, data...)
	}

	if expectedSHA256 != nil {
		actual := primitives.Sum256(hashInput)
		if !bytesEqual(actual[:], expectedSHA256) {
			return 0, 0, nil, containerErr(ErrSHA256Mismatch, "")
		}
	}

	return flags, chunkCount, chunks, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Unpack decodes an RXM1 container, decompressing SCOR/AUDI via rwv1 and
// validating the required chunks for the container's declared mode.
func Unpack(container []byte) (Unpacked, error) {
	flags, _, chunks, err := readChunkTable(container)
	if err != nil {
		return Unpacked{}, err
	}
	hasAudio := flags&flagHasAudio != 0
	hasSync := flags&flagHasSync != 0

	var result Unpacked
	var haveMeta, haveScore bool

	for _, c := range chunks {
		switch c.fourcc {
		case ChunkMeta:
			var m Metadata
			if err := json.Unmarshal(c.data, &m); err != nil {
				return Unpacked{}, containerErr(ErrInvalidMeta, "%v", err)
			}
			result.Metadata = m
			haveMeta = true

		case ChunkScor:
			data, err := rwv1.Decompress(c.data)
			if err != nil {
				return Unpacked{}, containerErr(ErrInvalidInput, "SCOR decompression failed: %v", err)
			}
			result.ScoreData = data
			haveScore = true

		case ChunkSync:
			entries, err := decodeSync(c.data)
			if err != nil {
				return Unpacked{}, err
			}
			if err := ValidateSync(entries); err != nil {
				return Unpacked{}, err
			}
			result.SyncEntries = entries

		case ChunkAudi:
			data, err := rwv1.Decompress(c.data)
			if err != nil {
				return Unpacked{}, containerErr(ErrInvalidInput, "AUDI decompression failed: %v", err)
			}
			result.AudioData = data

		default:
			result.Extra = append(result.Extra, ExtraChunk{Type: c.fourcc, Data: append([]byte(nil), c.data...)})
		}
	}

	if !haveMeta {
		return Unpacked{}, containerErr(ErrMissingChunk, "META")
	}
	if !haveScore {
		return Unpacked{}, containerErr(ErrMissingChunk, "SCOR")
	}
	if hasAudio && result.AudioData == nil {
		return Unpacked{}, containerErr(ErrMissingChunk, "audio flag set but AUDI chunk missing")
	}
	if hasSync && result.SyncEntries == nil {
		return Unpacked{}, containerErr(ErrMissingChunk, "sync flag set but SYNC chunk missing")
	}
	if result.AudioData != nil && result.SyncEntries == nil {
		return Unpacked{}, containerErr(ErrMissingChunk, "AUDI chunk present but SYNC chunk missing")
	}

	return result, nil
}

// ChunkInfo describes one chunk's type and size without decoding it.
type ChunkInfo struct {
	Type     ChunkType
	DataSize int
}

// ContainerInfo summarizes an RXM1 container without fully decompressing
// any chunk.
type ContainerInfo struct {
	Version    byte
	Flags      byte
	ChunkCount int
	Chunks     []ChunkInfo
	HasSHA256  bool
	HasAudio   bool
	HasSync    bool
	TotalSize  int
}

// Info parses container's header and chunk table without decoding chunk
// payloads.
func Info(container []byte) (ContainerInfo, error) {
	flags, chunkCount, chunks, err := readChunkTable(container)
	if err != nil {
		return ContainerInfo{}, err
	}
	info := ContainerInfo{
		Version:    container[4],
		Flags:      flags,
		ChunkCount: int(chunkCount),
		HasSHA256:  flags&flagHasSHA256 != 0,
		HasAudio:   flags&flagHasAudio != 0,
		HasSync:    flags&flagHasSync != 0,
		TotalSize:  len(container),
	}
	for _, c := range chunks {
		info.Chunks = append(info.Chunks, ChunkInfo{Type: c.fourcc, DataSize: len(c.data)})
	}
	return info, nil
}
