// Package berg implements the Berg block codec, a byte-oriented LZ77
// variant with a fixed 4 KiB sliding window and a small lookahead.
//
// The compressed stream is a sequence of control words, each introducing
// up to eight tokens. A control word is one byte; its bits, MSB-first,
// mark each following token as a literal (bit 0, one plain byte) or a
// match (bit 1, a two-byte big-endian back-reference: high 12 bits
// distance, low 4 bits length-3).
//
// Framed variants prepend a 12-byte header {"BERG", originalSize:u64 LE}.
// Raw variants carry no header; the caller must know the original size.
package berg

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Format Constants
// ---------------------------------------------------------------------------

// FrameMagic identifies a framed Berg payload.
var FrameMagic = [4]byte{'B', 'E', 'R', 'G'}

const (
	// WindowSize is the sliding window size in bytes. Distance 0 is
	// reserved on the wire.
	WindowSize = 4096

	// LookaheadSize is the maximum lookahead buffer size.
	LookaheadSize = 256

	// MinMatch is the shortest back-reference the encoder will emit.
	MinMatch = 3

	// MaxMatch is the longest representable back-reference (MinMatch + 15).
	MaxMatch = MinMatch + 15

	// FrameHeaderSize is the size of the framed-variant header:
	// magic (4) + original size (8).
	FrameHeaderSize = 12
)

// tokensPerGroup is the number of tokens described by one control word.
const tokensPerGroup = 8

// maxGroupSize is the largest encoded group: one control word plus eight
// two-byte matches.
const maxGroupSize = 1 + tokensPerGroup*2

// hash-chain parameters for the match finder
const (
	hashBits  = 13
	hashSize  = 1 << hashBits
	maxChain  = 128
	noPos     = -1
)

// Config holds tunable compressor parameters.
type Config struct {
	// Lookahead bounds the match search; values are clamped to
	// [MinMatch, LookaheadSize]. Zero selects LookaheadSize.
	Lookahead int
}

func (c Config) lookahead() int {
	la := c.Lookahead
	if la == 0 {
		la = LookaheadSize
	}
	if la < MinMatch {
		la = MinMatch
	}
	if la > LookaheadSize {
		la = LookaheadSize
	}
	return la
}

// MaxCompressedSize returns the worst-case framed output size for an input
// of n bytes: 12 + n + ceil(n/8). Callers use it to size output buffers.
func MaxCompressedSize(n int) int {
	return FrameHeaderSize + MaxRawSize(n)
}

// MaxRawSize returns the worst-case raw (unframed) output size for an
// input of n bytes: n + ceil(n/8).
func MaxRawSize(n int) int {
	return n + (n+tokensPerGroup-1)/tokensPerGroup
}

// ---------------------------------------------------------------------------
// One-shot compression
// ---------------------------------------------------------------------------

// Compress encodes src as a framed Berg payload. An empty input yields a
// bare frame header declaring size zero.
func Compress(src []byte) []byte {
	out := make([]byte, FrameHeaderSize, MaxCompressedSize(len(src)))
	copy(out, FrameMagic[:])
	binary.LittleEndian.PutUint64(out[4:], uint64(len(src)))

	enc := newEncoder(Config{})
	// Emit into the preallocated buffer; the bound guarantees capacity.
	_ = enc.run(src, func(p []byte) error {
		out = append(out, p...)
		return nil
	})
	return out
}

// CompressRaw encodes src as a raw Berg stream with no frame header.
// Decoding requires the original length out-of-band.
func CompressRaw(src []byte) []byte {
	out := make([]byte, 0, MaxRawSize(len(src)))
	enc := newEncoder(Config{})
	_ = enc.run(src, func(p []byte) error {
		out = append(out, p...)
		return nil
	})
	return out
}

// ---------------------------------------------------------------------------
// One-shot decompression
// ---------------------------------------------------------------------------

// Decompress parses a framed Berg payload and returns the original bytes.
// A declared size of zero returns an empty, non-nil slice.
func Decompress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, ErrInvalidParam
	}
	if len(data) < FrameHeaderSize {
		return nil, fmt.Errorf("%w: frame shorter than header", ErrCorruptData)
	}
	if [4]byte(data[:4]) != FrameMagic {
		return nil, fmt.Errorf("%w: bad frame magic %q", ErrCorruptData, data[:4])
	}
	size := binary.LittleEndian.Uint64(data[4:])
	if size > uint64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: declared size %d", ErrCorruptData, size)
	}
	return DecompressRaw(data[FrameHeaderSize:], int(size))
}

// DecompressRaw decodes a raw Berg stream that expands to exactly
// originalSize bytes.
func DecompressRaw(data []byte, originalSize int) ([]byte, error) {
	if originalSize < 0 {
		return nil, ErrInvalidParam
	}
	// A raw stream of m bytes expands to at most 9m output bytes, so a
	// declared size beyond that is guaranteed to fail with truncation.
	// Capping the initial allocation keeps corrupt headers from forcing
	// huge allocations up front.
	capHint := originalSize
	if max := 9*len(data) + tokensPerGroup; capHint > max {
		capHint = max
	}
	out := make([]byte, 0, capHint)

	pos := 0
	for len(out) < originalSize {
		if pos >= len(data) {
			return nil, fmt.Errorf("%w: stream ends %d bytes early",
				ErrDecompressionFailed, originalSize-len(out))
		}
		ctrl := data[pos]
		pos++

		for bit := 0; bit < tokensPerGroup && len(out) < originalSize; bit++ {
			if ctrl&(0x80>>bit) == 0 {
				// literal
				if pos >= len(data) {
					return nil, fmt.Errorf("%w: truncated literal", ErrDecompressionFailed)
				}
				out = append(out, data[pos])
				pos++
				continue
			}
			// match
			if pos+2 > len(data) {
				return nil, fmt.Errorf("%w: truncated match", ErrDecompressionFailed)
			}
			dist := int(data[pos])<<4 | int(data[pos+1])>>4
			length := int(data[pos+1]&0x0F) + MinMatch
			pos += 2

			if dist == 0 {
				return nil, fmt.Errorf("%w: reserved distance 0", ErrCorruptData)
			}
			if dist > len(out) {
				return nil, fmt.Errorf("%w: distance %d exceeds output %d",
					ErrCorruptData, dist, len(out))
			}
			if len(out)+length > originalSize {
				return nil, fmt.Errorf("%w: decoded size exceeds declared %d",
					ErrCorruptData, originalSize)
			}
			// Byte-wise copy: source and destination may overlap when
			// dist < length.
			from := len(out) - dist
			for i := 0; i < length; i++ {
				out = append(out, out[from+i])
			}
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Encoder core
// ---------------------------------------------------------------------------

// encoder holds the hash-chain match finder state. The same core backs the
// one-shot and streaming entry points so their output is byte-identical.
type encoder struct {
	lookahead int

	head [hashSize]int32
	prev [WindowSize]int32

	// pending control group
	group    [maxGroupSize]byte
	groupLen int
	ctrlBits int
}

func newEncoder(cfg Config) *encoder {
	e := &encoder{lookahead: cfg.lookahead()}
	for i := range e.head {
		e.head[i] = noPos
	}
	return e
}

func hash3(a, b, c byte) uint32 {
	h := uint32(a)<<16 | uint32(b)<<8 | uint32(c)
	return (h * 2654435761) >> (32 - hashBits)
}

// insert records position i in the hash chain.
func (e *encoder) insert(src []byte, i int) {
	if i+MinMatch > len(src) {
		return
	}
	h := hash3(src[i], src[i+1], src[i+2])
	e.prev[i&(WindowSize-1)] = e.head[h]
	e.head[h] = int32(i)
}

// findMatch returns the longest match for position i, preferring the
// shortest distance on equal length. A zero length means no usable match.
func (e *encoder) findMatch(src []byte, i int) (dist, length int) {
	maxLen := len(src) - i
	if maxLen > MaxMatch {
		maxLen = MaxMatch
	}
	if maxLen > e.lookahead {
		maxLen = e.lookahead
	}
	if maxLen < MinMatch || i+MinMatch > len(src) {
		return 0, 0
	}

	// The wire format stores the distance in 12 bits with 0 reserved, so
	// the encoder never reaches back further than WindowSize-1 bytes.
	limit := i - (WindowSize - 1)
	h := hash3(src[i], src[i+1], src[i+2])

	// Chains are walked most-recent first, so the first candidate at any
	// given length has the shortest distance. Only a strictly longer match
	// replaces the current best.
	best := 0
	bestDist := 0
	cand := e.head[h]
	for chain := 0; chain < maxChain && cand != noPos && int(cand) >= limit; chain++ {
		j := int(cand)
		if j >= i {
			cand = e.prev[j&(WindowSize-1)]
			continue
		}
		k := 0
		for k < maxLen && src[j+k] == src[i+k] {
			k++
		}
		if k > best {
			best = k
			bestDist = i - j
			if best == maxLen {
				break
			}
		}
		cand = e.prev[j&(WindowSize-1)]
	}
	if best < MinMatch {
		return 0, 0
	}
	return bestDist, best
}

// pushLiteral adds a literal token to the pending group.
func (e *encoder) pushLiteral(b byte, emit func([]byte) error) error {
	e.group[e.groupLen] = b
	e.groupLen++
	e.ctrlBits++
	if e.ctrlBits == tokensPerGroup {
		return e.flushGroup(emit)
	}
	return nil
}

// pushMatch adds a match token to the pending group.
func (e *encoder) pushMatch(dist, length int, emit func([]byte) error) error {
	if dist <= 0 || dist >= WindowSize || length < MinMatch || length > MaxMatch {
		return fmt.Errorf("%w: match dist=%d len=%d", ErrCompressionFailed, dist, length)
	}
	e.group[0] |= 0x80 >> e.ctrlBits
	enc := uint16(dist)<<4 | uint16(length-MinMatch)
	binary.BigEndian.PutUint16(e.group[e.groupLen:], enc)
	e.groupLen += 2
	e.ctrlBits++
	if e.ctrlBits == tokensPerGroup {
		return e.flushGroup(emit)
	}
	return nil
}

// flushGroup emits the pending control word and its tokens.
func (e *encoder) flushGroup(emit func([]byte) error) error {
	if e.ctrlBits == 0 {
		return nil
	}
	if err := emit(e.group[:e.groupLen]); err != nil {
		return err
	}
	e.group[0] = 0
	e.groupLen = 1
	e.ctrlBits = 0
	return nil
}

// run compresses src, passing encoded groups to emit in stream order.
func (e *encoder) run(src []byte, emit func([]byte) error) error {
	e.group[0] = 0
	e.groupLen = 1
	e.ctrlBits = 0

	i := 0
	for i < len(src) {
		dist, length := e.findMatch(src, i)
		if length >= MinMatch {
			if err := e.pushMatch(dist, length, emit); err != nil {
				return err
			}
			for k := 0; k < length; k++ {
				e.insert(src, i+k)
			}
			i += length
		} else {
			if err := e.pushLiteral(src[i], emit); err != nil {
				return err
			}
			e.insert(src, i)
			i++
		}
	}
	return e.flushGroup(emit)
}
