package phraseweave

import (
	"sort"

	"weaver.dev/core/primitives"
)

const (
	pwv1Magic      = "PWV1"
	pwv1Version    = byte(1)
	pwv1Flags      = byte(0x00)
	pwv1HeaderSize = 38
)

// TokenType tags one entry in a PWV1 token stream.
type TokenType byte

const (
	TokenLiteral TokenType = 0x00
	TokenStan    TokenType = 0x01
	TokenPhrase  TokenType = 0x02
	TokenRepeat  TokenType = 0x03
)

const (
	ErrBadPWV1Magic   ErrorCode = "PWV1_BAD_MAGIC"
	ErrBadPWV1Version ErrorCode = "PWV1_BAD_VERSION"
	ErrBadPWV1Flags   ErrorCode = "PWV1_BAD_FLAGS"
	ErrDictIDMismatch ErrorCode = "PWV1_DICT_ID_MISMATCH"
	ErrUnknownToken   ErrorCode = "PWV1_UNKNOWN_TOKEN"
	ErrUnknownStan    ErrorCode = "PWV1_UNKNOWN_STAN"
	ErrUnknownPhrase  ErrorCode = "PWV1_UNKNOWN_PHRASE"
	ErrNoExpansion    ErrorCode = "PWV1_NO_PRIOR_EXPANSION"
	ErrOutputTooLarge ErrorCode = "PWV1_OUTPUT_TOO_LARGE"
)

// Config tunes PWV1 encoding/decoding.
type Config struct {
	MinPhraseLen  int
	MaxPhraseLen  int
	Greedy        bool
	MaxOutputSize int // 0 = unlimited
}

// DefaultConfig returns the PWV1 default tuning.
func DefaultConfig() Config {
	return Config{MinPhraseLen: 2, MaxPhraseLen: 64, Greedy: true, MaxOutputSize: 0}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.MinPhraseLen < 1 {
		return dictErr(ErrInvalidEntry, "min phrase len must be >= 1")
	}
	if c.MaxPhraseLen < c.MinPhraseLen {
		return dictErr(ErrInvalidEntry, "max phrase len must be >= min phrase len")
	}
	if c.MaxOutputSize < 0 {
		return dictErr(ErrInvalidEntry, "max output size must be >= 0")
	}
	return nil
}

// Metadata reports counters from an Encode call.
type Metadata struct {
	OriginalLen  int
	StanCount    int
	PhraseCount  int
	LiteralCount int
	WovenLen     int
}

type reverseEntry struct {
	pattern []byte
	stanID  uint64
}

func buildReverseIndex(d *Dictionary, cfg Config) []reverseEntry {
	entries := make([]reverseEntry, 0, len(d.Entries))
	for stanID, e := range d.Entries {
		n := len(e.RawForm)
		if n >= cfg.MinPhraseLen && n <= cfg.MaxPhraseLen {
			entries = append(entries, reverseEntry{pattern: e.RawForm, stanID: stanID})
		}
	}
	// Longest pattern first; stable-ish tie-break on lower Stan-ID so
	// encoding is reproducible when two patterns share a length.
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].pattern) != len(entries[j].pattern) {
			return len(entries[i].pattern) > len(entries[j].pattern)
		}
		return entries[i].stanID < entries[j].stanID
	})
	return entries
}

// Encode converts raw into PWV1 woven format against dictionary, using
// cfg's greedy longest-match tuning (spec ง4.2, invariant I1/I2).
func Encode(raw []byte, dictionary *Dictionary, cfg Config) ([]byte, Metadata, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Metadata{}, err
	}

	meta := Metadata{OriginalLen: len(raw)}

	dictID := dictionary.CanonicalID()
	out := make([]byte, 0, pwv1HeaderSize+len(raw))
	out = append(out, pwv1Magic...)
	out = append(out, pwv1Version, pwv1Flags)
	out = append(out, dictID[:]...)

	reverse := buildReverseIndex(dictionary, cfg)

	pos := 0
	for pos < len(raw) {
		matched := false
		if cfg.Greedy {
			for _, re := range reverse {
				n := len(re.pattern)
				if pos+n <= len(raw) && bytesEqual(raw[pos:pos+n], re.pattern) {
					out = append(out, byte(TokenStan))
					out = append(out, primitives.EncodeVarint(re.stanID)...)
					meta.StanCount++
					pos += n
					matched = true
					break
				}
			}
		}
		if !matched {
			out = append(out, byte(TokenLiteral), raw[pos])
			meta.LiteralCount++
			pos++
		}
	}

	meta.WovenLen = len(out)
	return out, meta, nil
}

// Decode converts PWV1 woven bytes back into raw bytes, verifying the
// embedded dictionary ID matches dictionary exactly (invariant I2).
func Decode(woven []byte, dictionary *Dictionary, cfg Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(woven) < pwv1HeaderSize {
		return nil, dictErr(ErrTruncated, "data too short: %d < %d", len(woven), pwv1HeaderSize)
	}
	if string(woven[0:4]) != pwv1Magic {
		return nil, dictErr(ErrBadPWV1Magic, "got %q", woven[0:4])
	}
	if woven[4] != pwv1Version {
		return nil, dictErr(ErrBadPWV1Version, "got %d", woven[4])
	}
	if woven[5] != pwv1Flags {
		return nil, dictErr(ErrBadPWV1Flags, "got %#x", woven[5])
	}

	storedDictID := woven[6:38]
	computedDictID := dictionary.CanonicalID()
	if !bytesEqual(storedDictID, computedDictID[:]) {
		return nil, dictErr(ErrDictIDMismatch, "")
	}

	var result []byte
	var lastExpansion []byte
	havePrior := false

	pos := pwv1HeaderSize
	for pos < len(woven) {
		tokenType := TokenType(woven[pos])
		pos++

		switch tokenType {
		case TokenLiteral:
			if pos >= len(woven) {
				return nil, dictErr(ErrTruncated, "truncated LITERAL token")
			}
			b := woven[pos]
			pos++
			result = append(result, b)
			lastExpansion = []byte{b}
			havePrior = true

		case TokenStan:
			stanID, n, err := primitives.DecodeVarint(woven, pos)
			if err != nil {
				return nil, dictErr(ErrTruncated, "STAN token: %v", err)
			}
			pos += n
			rawForm, ok := dictionary.Entries[stanID]
			if !ok {
				return nil, dictErr(ErrUnknownStan, "%d", stanID)
			}
			result = append(result, rawForm.RawForm...)
			lastExpansion = rawForm.RawForm
			havePrior = true

		case TokenPhrase:
			phraseID, n, err := primitives.DecodeVarint(woven, pos)
			if err != nil {
				return nil, dictErr(ErrTruncated, "PHRASE token id: %v", err)
			}
			pos += n
			length, n, err := primitives.DecodeVarint(woven, pos)
			if err != nil {
				return nil, dictErr(ErrTruncated, "PHRASE token length: %v", err)
			}
			pos += n

			phrase, ok := dictionary.Phrases[phraseID]
			if !ok {
				return nil, dictErr(ErrUnknownPhrase, "%d", phraseID)
			}
			limit := int(length)
			if limit > len(phrase.StanIDs) {
				limit = len(phrase.StanIDs)
			}
			var expansion []byte
			for _, sid := range phrase.StanIDs[:limit] {
				e, ok := dictionary.Entries[sid]
				if !ok {
					return nil, dictErr(ErrUnknownStan, "in phrase: %d", sid)
				}
				expansion = append(expansion, e.RawForm...)
			}
			result = append(result, expansion...)
			lastExpansion = expansion
			havePrior = true

		case TokenRepeat:
			count, n, err := primitives.DecodeVarint(woven, pos)
			if err != nil {
				return nil, dictErr(ErrTruncated, "REPEAT token: %v", err)
			}
			pos += n
			if !havePrior {
				return nil, dictErr(ErrNoExpansion, "")
			}
			for i := uint64(0); i < count; i++ {
				result = append(result, lastExpansion...)
			}

		default:
			return nil, dictErr(ErrUnknownToken, "%#x", tokenType)
		}

		if cfg.MaxOutputSize != 0 && len(result) > cfg.MaxOutputSize {
			return nil, dictErr(ErrOutputTooLarge, "%d", len(result))
		}
	}

	return result, nil
}
