// Package mozlib implements the MO+zlib branch codec: a per-block
// middle-out phrase dictionary rewrite followed by zlib compression. This
// is RWV1's own internal dictionary branch, distinct from PhraseWeave.
package mozlib

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

const (
	tokenRaw  = byte(0)
	tokenBase = byte(1)
	tokenMax  = byte(255)
)

// ErrorCode tags a CodecError.
type ErrorCode string

const (
	ErrPayloadTooShort  ErrorCode = "MOZLIB_PAYLOAD_TOO_SHORT"
	ErrTruncatedDict    ErrorCode = "MOZLIB_TRUNCATED_DICT"
	ErrTruncatedStream  ErrorCode = "MOZLIB_TRUNCATED_STREAM"
	ErrUnknownToken     ErrorCode = "MOZLIB_UNKNOWN_TOKEN"
	ErrZlibFailure      ErrorCode = "MOZLIB_ZLIB_FAILURE"
)

// CodecError is returned by every fallible mozlib operation.
type CodecError struct {
	Code ErrorCode
	Msg  string
}

func (e *CodecError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func codecErr(code ErrorCode, format string, args ...any) error {
	return &CodecError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Options tunes the MO+zlib encoder.
type Options struct {
	MaxEntries int
	ZlibLevel  int
}

// DefaultOptions returns the MO+zlib default tuning (200 dictionary
// entries, zlib level 9).
func DefaultOptions() Options {
	return Options{MaxEntries: 200, ZlibLevel: 9}
}

type candidate struct {
	phrase []byte
	score  int
}

// findPhrases scores every repeated substring of lengths [3, 64] by
// frequency*(length-1), favoring longer, more frequent phrases. This is
// quadratic in block size by construction (matching the reference scan)
// and is only ever run over one RWV1 block at a time.
func findPhrases(data []byte) []candidate {
	const minLen, maxLen = 3, 64

	counts := make(map[string]int)
	upper := maxLen
	if upper > len(data) {
		upper = len(data)
	}
	for length := minLen; length <= upper; length++ {
		for i := 0; i+length <= len(data); i++ {
			counts[string(data[i:i+length])]++
		}
	}

	candidates := make([]candidate, 0, len(counts))
	for phrase, count := range counts {
		if count < 2 {
			continue
		}
		score := count * (len(phrase) - 1)
		candidates = append(candidates, candidate{phrase: []byte(phrase), score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		// Deterministic tie-break absent from the reference scan, whose
		// ordering otherwise depends on hash-map iteration order.
		if len(candidates[i].phrase) != len(candidates[j].phrase) {
			return len(candidates[i].phrase) > len(candidates[j].phrase)
		}
		return bytes.Compare(candidates[i].phrase, candidates[j].phrase) < 0
	})

	return candidates
}

// buildDictionary selects up to maxEntries top-scoring phrases (capped at
// 255 tokens, TOKEN_BASE..TOKEN_MAX) and assigns them ascending tokens.
func buildDictionary(data []byte, maxEntries int) map[string]byte {
	candidates := findPhrases(data)

	maxTokens := int(tokenMax) - int(tokenBase) + 1
	limit := maxEntries
	if limit > maxTokens {
		limit = maxTokens
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}

	dictionary := make(map[string]byte, limit)
	token := tokenBase
	for i := 0; i < limit; i++ {
		if int(token) > int(tokenMax) {
			break
		}
		dictionary[string(candidates[i].phrase)] = token
		token++
	}
	return dictionary
}

func rewriteToTokens(data []byte, dictionary map[string]byte) []byte {
	if len(dictionary) == 0 {
		out := make([]byte, 0, len(data)*2)
		for _, b := range data {
			out = append(out, tokenRaw, b)
		}
		return out
	}

	patterns := make([]string, 0, len(dictionary))
	for p := range dictionary {
		patterns = append(patterns, p)
	}
	sort.Slice(patterns, func(i, j int) bool { return len(patterns[i]) > len(patterns[j]) })

	var out []byte
	pos := 0
	for pos < len(data) {
		matched := false
		for _, pattern := range patterns {
			n := len(pattern)
			if pos+n <= len(data) && string(data[pos:pos+n]) == pattern {
				out = append(out, dictionary[pattern])
				pos += n
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, tokenRaw, data[pos])
			pos++
		}
	}
	return out
}

func rewriteFromTokens(tokenStream []byte, reverse map[byte][]byte) ([]byte, error) {
	var out []byte
	pos := 0
	for pos < len(tokenStream) {
		token := tokenStream[pos]
		pos++
		if token == tokenRaw {
			if pos >= len(tokenStream) {
				return nil, codecErr(ErrTruncatedStream, "truncated raw token")
			}
			out = append(out, tokenStream[pos])
			pos++
			continue
		}
		phrase, ok := reverse[token]
		if !ok {
			return nil, codecErr(ErrUnknownToken, "%d", token)
		}
		out = append(out, phrase...)
	}
	return out, nil
}

// Encode applies the MO+zlib dictionary rewrite followed by zlib
// compression, producing a self-describing payload.
func Encode(data []byte, opts Options) ([]byte, error) {
	dictionary := buildDictionary(data, opts.MaxEntries)
	tokenStream := rewriteToTokens(data, dictionary)

	var compBuf bytes.Buffer
	w, err := zlib.NewWriterLevel(&compBuf, opts.ZlibLevel)
	if err != nil {
		return nil, codecErr(ErrZlibFailure, "%v", err)
	}
	if _, err := w.Write(tokenStream); err != nil {
		return nil, codecErr(ErrZlibFailure, "%v", err)
	}
	if err := w.Close(); err != nil {
		return nil, codecErr(ErrZlibFailure, "%v", err)
	}
	compressed := compBuf.Bytes()

	reverse := make(map[byte]string, len(dictionary))
	tokens := make([]byte, 0, len(dictionary))
	for p, t := range dictionary {
		reverse[t] = p
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	out := make([]byte, 0, 2+len(dictionary)*8+4+len(compressed))
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], uint16(len(dictionary)))
	out = append(out, u16[:]...)

	for _, t := range tokens {
		phrase := reverse[t]
		out = append(out, t)
		binary.BigEndian.PutUint16(u16[:], uint16(len(phrase)))
		out = append(out, u16[:]...)
		out = append(out, phrase...)
	}

	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(len(compressed)))
	out = append(out, u32[:]...)
	out = append(out, compressed...)

	return out, nil
}

// Decode reverses Encode.
func Decode(payload []byte) ([]byte, error) {
	if len(payload) < 2 {
		return nil, codecErr(ErrPayloadTooShort, "%d bytes", len(payload))
	}

	pos := 0
	dictCount := binary.BigEndian.Uint16(payload[pos : pos+2])
	pos += 2

	reverse := make(map[byte][]byte, dictCount)
	for i := uint16(0); i < dictCount; i++ {
		if pos >= len(payload) {
			return nil, codecErr(ErrTruncatedDict, "entry %d token", i)
		}
		token := payload[pos]
		pos++

		if pos+2 > len(payload) {
			return nil, codecErr(ErrTruncatedDict, "entry %d phrase length", i)
		}
		phraseLen := binary.BigEndian.Uint16(payload[pos : pos+2])
		pos += 2

		if pos+int(phraseLen) > len(payload) {
			return nil, codecErr(ErrTruncatedDict, "entry %d phrase data", i)
		}
		phrase := append([]byte(nil), payload[pos:pos+int(phraseLen)]...)
		pos += int(phraseLen)

		reverse[token] = phrase
	}

	if pos+4 > len(payload) {
		return nil, codecErr(ErrTruncatedStream, "compressed length")
	}
	compLen := binary.BigEndian.Uint32(payload[pos : pos+4])
	pos += 4

	if pos+int(compLen) > len(payload) {
		return nil, codecErr(ErrTruncatedStream, "compressed data")
	}
	compBytes := payload[pos : pos+int(compLen)]

	r, err := zlib.NewReader(bytes.NewReader(compBytes))
	if err != nil {
		return nil, codecErr(ErrZlibFailure, "%v", err)
	}
	defer r.Close()
	tokenStream, err := io.ReadAll(r)
	if err != nil {
		return nil, codecErr(ErrZlibFailure, "%v", err)
	}

	return rewriteFromTokens(tokenStream, reverse)
}
