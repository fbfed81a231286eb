// Package phraseweave implements the PWV1 woven byte-stream codec and its
// PWDC dictionary container (spec ง4.2–4.3). A Dictionary maps numeric
// Stan-IDs to raw-byte phrases, optionally grouping them into multi-Stan
// Phrase sequences; its canonical ID is the SHA-256 binding used by PWV1
// headers to pin a stream to the exact dictionary it was encoded against.
package phraseweave

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"weaver.dev/core/primitives"
)

const (
	pwdcMagic   = "PWDC"
	pwdcVersion = byte(1)

	pwdcFlagPhrasesIncluded  = byte(1 << 0)
	pwdcFlagWeightsIncluded  = byte(1 << 1)
	pwdcFlagFrequencyIncluded = byte(1 << 2)
)

// ErrorCode tags a DictionaryError.
type ErrorCode string

const (
	ErrBadMagic      ErrorCode = "PWDC_BAD_MAGIC"
	ErrBadVersion    ErrorCode = "PWDC_BAD_VERSION"
	ErrTruncated     ErrorCode = "PWDC_TRUNCATED"
	ErrIDMismatch    ErrorCode = "PWDC_ID_MISMATCH"
	ErrInvalidEntry  ErrorCode = "PWDC_INVALID_ENTRY"
)

// DictionaryError is returned by every fallible Dictionary operation.
type DictionaryError struct {
	Code ErrorCode
	Msg  string
}

func (e *DictionaryError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func dictErr(code ErrorCode, format string, args ...any) error {
	return &DictionaryError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Entry is one Stan-ID -> raw-bytes mapping, with optional weight and
// frequency metadata that does not participate in the canonical ID.
type Entry struct {
	StanID   uint64
	RawForm  []byte
	Weight   *float32
	Frequency *float32
}

// Phrase composes a sequence of Stan-IDs under a numeric phrase-ID.
type Phrase struct {
	PhraseID uint64
	StanIDs  []uint64
}

// Dictionary is a PhraseWeave dictionary: Stan entries plus optional
// phrases, with a domain tag carried for bookkeeping only.
type Dictionary struct {
	Domain  uint16
	Entries map[uint64]Entry
	Phrases map[uint64]Phrase
}

// NewDictionary returns an empty dictionary for the given domain.
func NewDictionary(domain uint16) *Dictionary {
	return &Dictionary{
		Domain:  domain,
		Entries: make(map[uint64]Entry),
		Phrases: make(map[uint64]Phrase),
	}
}

// AddEntry adds or replaces a Stan entry.
func (d *Dictionary) AddEntry(stanID uint64, rawForm []byte, weight, frequency *float32) {
	d.Entries[stanID] = Entry{StanID: stanID, RawForm: rawForm, Weight: weight, Frequency: frequency}
}

// AddPhrase adds or replaces a phrase entry.
func (d *Dictionary) AddPhrase(phraseID uint64, stanIDs []uint64) {
	d.Phrases[phraseID] = Phrase{PhraseID: phraseID, StanIDs: stanIDs}
}

// GetRawForm returns the raw form for a Stan-ID, or an error if unknown.
func (d *Dictionary) GetRawForm(stanID uint64) ([]byte, error) {
	e, ok := d.Entries[stanID]
	if !ok {
		return nil, dictErr(ErrInvalidEntry, "unknown Stan ID: %d", stanID)
	}
	return e.RawForm, nil
}

func (d *Dictionary) sortedStanIDs() []uint64 {
	ids := make([]uint64, 0, len(d.Entries))
	for id := range d.Entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CanonicalID computes the 32-byte canonical dictionary ID (spec ง4.1):
// SHA-256 over, for each Stan-ID in numeric order, a 4-byte big-endian
// Stan-ID, a 4-byte big-endian raw-form length, and the raw form bytes.
// Weights, frequencies, phrases, and domain never participate.
func (d *Dictionary) CanonicalID() [32]byte {
	var buf []byte
	var hdr [8]byte
	for _, id := range d.sortedStanIDs() {
		e := d.Entries[id]
		binary.BigEndian.PutUint32(hdr[0:4], uint32(id))
		binary.BigEndian.PutUint32(hdr[4:8], uint32(len(e.RawForm)))
		buf = append(buf, hdr[:]...)
		buf = append(buf, e.RawForm...)
	}
	return primitives.Sum256(buf)
}

// ToBytes serializes the dictionary to PWDC binary format.
func (d *Dictionary) ToBytes() []byte {
	hasPhrases := len(d.Phrases) > 0
	hasWeights := false
	hasFrequency := false
	for _, e := range d.Entries {
		if e.Weight != nil {
			hasWeights = true
		}
		if e.Frequency != nil {
			hasFrequency = true
		}
	}

	var flags byte
	if hasPhrases {
		flags |= pwdcFlagPhrasesIncluded
	}
	if hasWeights {
		flags |= pwdcFlagWeightsIncluded
	}
	if hasFrequency {
		flags |= pwdcFlagFrequencyIncluded
	}

	canonicalID := d.CanonicalID()

	out := make([]byte, 0, 44+len(d.Entries)*16)
	out = append(out, pwdcMagic...)
	out = append(out, pwdcVersion, flags)

	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], d.Domain)
	out = append(out, u16[:]...)

	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(len(d.Entries)))
	out = append(out, u32[:]...)
	out = append(out, canonicalID[:]...)

	for _, id := range d.sortedStanIDs() {
		e := d.Entries[id]
		out = append(out, primitives.EncodeVarint(id)...)
		out = append(out, primitives.EncodeVarint(uint64(len(e.RawForm)))...)
		out = append(out, e.RawForm...)
		if hasWeights {
			w := float32(0)
			if e.Weight != nil {
				w = *e.Weight
			}
			var fb [4]byte
			binary.BigEndian.PutUint32(fb[:], math.Float32bits(w))
			out = append(out, fb[:]...)
		}
		if hasFrequency {
			f := float32(0)
			if e.Frequency != nil {
				f = *e.Frequency
			}
			var fb [4]byte
			binary.BigEndian.PutUint32(fb[:], math.Float32bits(f))
			out = append(out, fb[:]...)
		}
	}

	if hasPhrases {
		phraseIDs := make([]uint64, 0, len(d.Phrases))
		for id := range d.Phrases {
			phraseIDs = append(phraseIDs, id)
		}
		sort.Slice(phraseIDs, func(i, j int) bool { return phraseIDs[i] < phraseIDs[j] })

		binary.BigEndian.PutUint32(u32[:], uint32(len(d.Phrases)))
		out = append(out, u32[:]...)
		for _, id := range phraseIDs {
			p := d.Phrases[id]
			out = append(out, primitives.EncodeVarint(p.PhraseID)...)
			out = append(out, primitives.EncodeVarint(uint64(len(p.StanIDs)))...)
			for _, sid := range p.StanIDs {
				out = append(out, primitives.EncodeVarint(sid)...)
			}
		}
	}

	return out
}

// DictionaryFromBytes parses a PWDC dictionary, recomputing and
// verifying its canonical ID against the stored value.
func DictionaryFromBytes(data []byte) (*Dictionary, error) {
	if len(data) < 44 {
		return nil, dictErr(ErrTruncated, "data too short for PWDC header: %d bytes", len(data))
	}
	if string(data[0:4]) != pwdcMagic {
		return nil, dictErr(ErrBadMagic, "got %q", data[0:4])
	}
	version := data[4]
	if version != pwdcVersion {
		return nil, dictErr(ErrBadVersion, "got %d", version)
	}
	flags := data[5]
	hasPhrases := flags&pwdcFlagPhrasesIncluded != 0
	hasWeights := flags&pwdcFlagWeightsIncluded != 0
	hasFrequency := flags&pwdcFlagFrequencyIncluded != 0

	domain := binary.BigEndian.Uint16(data[6:8])
	entryCount := binary.BigEndian.Uint32(data[8:12])
	storedID := data[12:44]

	d := NewDictionary(domain)
	off := 44
	for i := uint32(0); i < entryCount; i++ {
		stanID, n, err := primitives.DecodeVarint(data, off)
		if err != nil {
			return nil, dictErr(ErrTruncated, "entry %d stan id: %v", i, err)
		}
		off += n

		rawLen, n, err := primitives.DecodeVarint(data, off)
		if err != nil {
			return nil, dictErr(ErrTruncated, "entry %d raw len: %v", i, err)
		}
		off += n

		if off+int(rawLen) > len(data) {
			return nil, dictErr(ErrTruncated, "entry %d raw form", i)
		}
		rawForm := append([]byte(nil), data[off:off+int(rawLen)]...)
		off += int(rawLen)

		var weight, frequency *float32
		if hasWeights {
			if off+4 > len(data) {
				return nil, dictErr(ErrTruncated, "entry %d weight", i)
			}
			w := math.Float32frombits(binary.BigEndian.Uint32(data[off : off+4]))
			weight = &w
			off += 4
		}
		if hasFrequency {
			if off+4 > len(data) {
				return nil, dictErr(ErrTruncated, "entry %d frequency", i)
			}
			f := math.Float32frombits(binary.BigEndian.Uint32(data[off : off+4]))
			frequency = &f
			off += 4
		}

		d.AddEntry(stanID, rawForm, weight, frequency)
	}

	if hasPhrases {
		if off+4 > len(data) {
			return nil, dictErr(ErrTruncated, "phrase count")
		}
		phraseCount := binary.BigEndian.Uint32(data[off : off+4])
		off += 4
		for i := uint32(0); i < phraseCount; i++ {
			phraseID, n, err := primitives.DecodeVarint(data, off)
			if err != nil {
				return nil, dictErr(ErrTruncated, "phrase %d id: %v", i, err)
			}
			off += n
			stanCount, n, err := primitives.DecodeVarint(data, off)
			if err != nil {
				return nil, dictErr(ErrTruncated, "phrase %d stan count: %v", i, err)
			}
			off += n
			stanIDs := make([]uint64, stanCount)
			for j := uint64(0); j < stanCount; j++ {
				sid, n, err := primitives.DecodeVarint(data, off)
				if err != nil {
					return nil, dictErr(ErrTruncated, "phrase %d stan %d: %v", i, j, err)
				}
				off += n
				stanIDs[j] = sid
			}
			d.AddPhrase(phraseID, stanIDs)
		}
	}

	computed := d.CanonicalID()
	if !bytesEqual(computed[:], storedID) {
		return nil, dictErr(ErrIDMismatch, "stored %x computed %x", storedID, computed)
	}

	return d, nil
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
