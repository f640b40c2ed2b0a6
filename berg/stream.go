package berg

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Streaming API
// ---------------------------------------------------------------------------

// MinStreamBuffer is the smallest accepted scratch buffer for the
// streaming entry points.
const MinStreamBuffer = 16

// EmitFunc receives a filled portion of the scratch buffer. The slice is
// only valid for the duration of the call. Returning a non-nil error
// aborts the operation with ErrCallbackFailed.
type EmitFunc func(p []byte) error

// sink accumulates encoder output in a caller-owned scratch buffer and
// invokes the callback whenever the buffer fills.
type sink struct {
	buf  []byte
	n    int
	emit EmitFunc
}

func (s *sink) write(p []byte) error {
	for len(p) > 0 {
		c := copy(s.buf[s.n:], p)
		s.n += c
		p = p[c:]
		if s.n == len(s.buf) {
			if err := s.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *sink) writeByte(b byte) error {
	s.buf[s.n] = b
	s.n++
	if s.n == len(s.buf) {
		return s.flush()
	}
	return nil
}

func (s *sink) flush() error {
	if s.n == 0 {
		return nil
	}
	if err := s.emit(s.buf[:s.n]); err != nil {
		return fmt.Errorf("%w: %v", ErrCallbackFailed, err)
	}
	s.n = 0
	return nil
}

// CompressRawStream compresses src through a caller-owned scratch buffer,
// invoking emit whenever the buffer fills and once more for the tail.
// The concatenation of all emitted slices equals CompressRaw(src).
func CompressRawStream(src []byte, emit EmitFunc, buf []byte, cfg Config) error {
	if emit == nil || (src == nil && len(src) != 0) {
		return ErrInvalidParam
	}
	if len(buf) < MinStreamBuffer {
		return fmt.Errorf("%w: scratch buffer %d < %d", ErrBufferTooSmall, len(buf), MinStreamBuffer)
	}
	s := &sink{buf: buf, emit: emit}
	enc := newEncoder(cfg)
	if err := enc.run(src, s.write); err != nil {
		return err
	}
	return s.flush()
}

// CompressStream is the framed variant of CompressRawStream: the frame
// header is emitted through the same scratch buffer before the raw stream.
func CompressStream(src []byte, emit EmitFunc, buf []byte, cfg Config) error {
	if emit == nil {
		return ErrInvalidParam
	}
	if len(buf) < MinStreamBuffer {
		return fmt.Errorf("%w: scratch buffer %d < %d", ErrBufferTooSmall, len(buf), MinStreamBuffer)
	}
	s := &sink{buf: buf, emit: emit}

	var hdr [FrameHeaderSize]byte
	copy(hdr[:], FrameMagic[:])
	binary.LittleEndian.PutUint64(hdr[4:], uint64(len(src)))
	if err := s.write(hdr[:]); err != nil {
		return err
	}

	enc := newEncoder(cfg)
	if err := enc.run(src, s.write); err != nil {
		return err
	}
	return s.flush()
}

// DecompressStream decodes a framed Berg stream, emitting decompressed
// bytes through a caller-owned scratch buffer.
func DecompressStream(data []byte, emit EmitFunc, buf []byte) error {
	if data == nil {
		return ErrInvalidParam
	}
	if len(data) < FrameHeaderSize {
		return fmt.Errorf("%w: frame shorter than header", ErrCorruptData)
	}
	if [4]byte(data[:4]) != FrameMagic {
		return fmt.Errorf("%w: bad frame magic %q", ErrCorruptData, data[:4])
	}
	size := binary.LittleEndian.Uint64(data[4:])
	if size > uint64(int(^uint(0)>>1)) {
		return fmt.Errorf("%w: declared size %d", ErrCorruptData, size)
	}
	return DecompressRawStream(data[FrameHeaderSize:], int(size), emit, buf)
}

// DecompressRawStream decodes a raw Berg stream of known original size,
// emitting decompressed bytes through a caller-owned scratch buffer.
//
// The decoder keeps its own copy of the trailing window so that match
// copies remain valid across emit calls.
func DecompressRawStream(data []byte, originalSize int, emit EmitFunc, buf []byte) error {
	if emit == nil || originalSize < 0 {
		return ErrInvalidParam
	}
	if len(buf) < MinStreamBuffer {
		return fmt.Errorf("%w: scratch buffer %d < %d", ErrBufferTooSmall, len(buf), MinStreamBuffer)
	}

	var window [WindowSize]byte
	produced := 0
	s := &sink{buf: buf, emit: emit}

	put := func(b byte) error {
		window[produced&(WindowSize-1)] = b
		produced++
		return s.writeByte(b)
	}

	pos := 0
	for produced < originalSize {
		if pos >= len(data) {
			return fmt.Errorf("%w: stream ends %d bytes early",
				ErrDecompressionFailed, originalSize-produced)
		}
		ctrl := data[pos]
		pos++

		for bit := 0; bit < tokensPerGroup && produced < originalSize; bit++ {
			if ctrl&(0x80>>bit) == 0 {
				if pos >= len(data) {
					return fmt.Errorf("%w: truncated literal", ErrDecompressionFailed)
				}
				if err := put(data[pos]); err != nil {
					return err
				}
				pos++
				continue
			}
			if pos+2 > len(data) {
				return fmt.Errorf("%w: truncated match", ErrDecompressionFailed)
			}
			dist := int(data[pos])<<4 | int(data[pos+1])>>4
			length := int(data[pos+1]&0x0F) + MinMatch
			pos += 2

			if dist == 0 {
				return fmt.Errorf("%w: reserved distance 0", ErrCorruptData)
			}
			if dist > produced {
				return fmt.Errorf("%w: distance %d exceeds output %d",
					ErrCorruptData, dist, produced)
			}
			if produced+length > originalSize {
				return fmt.Errorf("%w: decoded size exceeds declared %d",
					ErrCorruptData, originalSize)
			}
			for i := 0; i < length; i++ {
				b := window[(produced-dist)&(WindowSize-1)]
				if err := put(b); err != nil {
					return err
				}
			}
		}
	}
	return s.flush()
}
