package berg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"
)

// ---------------------------------------------------------------------------
// Round-trip tests
// ---------------------------------------------------------------------------

func roundTripInputs() map[string][]byte {
	rng := rand.New(rand.NewSource(42))
	random := make([]byte, 10000)
	rng.Read(random)

	zeros := make([]byte, 4096)

	text := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)

	longRun := make([]byte, 3*WindowSize)
	for i := range longRun {
		longRun[i] = byte(i / 7)
	}

	return map[string][]byte{
		"empty":    {},
		"one":      {0x42},
		"two":      {0x42, 0x43},
		"abab":     []byte("ABABABAB"),
		"zeros":    zeros,
		"text":     text,
		"random":   random,
		"long-run": longRun,
	}
}

func TestFramedRoundTrip(t *testing.T) {
	for name, in := range roundTripInputs() {
		t.Run(name, func(t *testing.T) {
			comp := Compress(in)
			out, err := Decompress(comp)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(out, in) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", len(out), len(in))
			}
		})
	}
}

func TestRawRoundTrip(t *testing.T) {
	for name, in := range roundTripInputs() {
		t.Run(name, func(t *testing.T) {
			comp := CompressRaw(in)
			out, err := DecompressRaw(comp, len(in))
			if err != nil {
				t.Fatalf("DecompressRaw failed: %v", err)
			}
			if !bytes.Equal(out, in) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", len(out), len(in))
			}
		})
	}
}

func TestSizeBound(t *testing.T) {
	for name, in := range roundTripInputs() {
		comp := Compress(in)
		if len(comp) > MaxCompressedSize(len(in)) {
			t.Errorf("%s: compressed %d bytes exceeds bound %d",
				name, len(comp), MaxCompressedSize(len(in)))
		}
	}
}

func TestMaxCompressedSize(t *testing.T) {
	cases := []struct{ n, want int }{
		{0, 12},
		{1, 14},
		{8, 21},
		{9, 23},
		{4096, 4620},
	}
	for _, c := range cases {
		if got := MaxCompressedSize(c.n); got != c.want {
			t.Errorf("MaxCompressedSize(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Scenario tests
// ---------------------------------------------------------------------------

func TestEmptyInputFrame(t *testing.T) {
	comp := Compress(nil)
	if len(comp) != FrameHeaderSize {
		t.Fatalf("empty input compressed to %d bytes, want %d", len(comp), FrameHeaderSize)
	}
	if !bytes.Equal(comp[:4], FrameMagic[:]) {
		t.Errorf("frame magic = %q, want %q", comp[:4], FrameMagic[:])
	}
	if size := binary.LittleEndian.Uint64(comp[4:]); size != 0 {
		t.Errorf("declared size = %d, want 0", size)
	}

	out, err := Decompress(comp)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("decompressed %d bytes, want 0", len(out))
	}
}

func TestShortRepeatedInput(t *testing.T) {
	in := []byte("ABABABAB")
	comp := CompressRaw(in)
	if len(comp) > 13 {
		t.Errorf("compressed %q to %d bytes, want <= 13", in, len(comp))
	}
	out, err := DecompressRaw(comp, len(in))
	if err != nil {
		t.Fatalf("DecompressRaw failed: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Errorf("round trip mismatch: %q", out)
	}
}

func TestAllZeroWindow(t *testing.T) {
	in := make([]byte, 4096)
	comp := Compress(in)
	if len(comp) > 530 {
		t.Errorf("compressed 4096 zero bytes to %d, want <= 530", len(comp))
	}
	out, err := Decompress(comp)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Error("round trip mismatch")
	}
}

// ---------------------------------------------------------------------------
// Error taxonomy tests
// ---------------------------------------------------------------------------

func TestDecompressBadMagic(t *testing.T) {
	comp := Compress([]byte("hello"))
	comp[0] = 'X'
	if _, err := Decompress(comp); !errors.Is(err, ErrCorruptData) {
		t.Errorf("bad magic: got %v, want ErrCorruptData", err)
	}
}

func TestDecompressShortHeader(t *testing.T) {
	if _, err := Decompress([]byte("BERG")); !errors.Is(err, ErrCorruptData) {
		t.Errorf("short header: got %v, want ErrCorruptData", err)
	}
}

func TestDecompressNil(t *testing.T) {
	if _, err := Decompress(nil); !errors.Is(err, ErrInvalidParam) {
		t.Error("nil input should return ErrInvalidParam")
	}
}

func TestDecodeReservedDistance(t *testing.T) {
	// One control word with a single match token of distance 0.
	stream := []byte{0x80, 0x00, 0x00}
	if _, err := DecompressRaw(stream, 3); !errors.Is(err, ErrCorruptData) {
		t.Errorf("distance 0: got %v, want ErrCorruptData", err)
	}
}

func TestDecodeDistanceBeforeStart(t *testing.T) {
	// Match of distance 5 at output position 0.
	stream := []byte{0x80, 0x00, 0x50}
	if _, err := DecompressRaw(stream, 3); !errors.Is(err, ErrCorruptData) {
		t.Errorf("out-of-range distance: got %v, want ErrCorruptData", err)
	}
}

func TestDecodeTruncatedStream(t *testing.T) {
	comp := CompressRaw(bytes.Repeat([]byte("abcdef"), 100))
	if _, err := DecompressRaw(comp[:len(comp)/2], 600); !errors.Is(err, ErrDecompressionFailed) {
		t.Errorf("truncated stream: got %v, want ErrDecompressionFailed", err)
	}
}

func TestDecodeOvershootingMatch(t *testing.T) {
	// Three literals then a max-length match that would exceed the
	// declared size of 4.
	stream := []byte{0x10, 'a', 'b', 'c', 0x00, 0x3F}
	if _, err := DecompressRaw(stream, 4); !errors.Is(err, ErrCorruptData) {
		t.Errorf("overshooting match: got %v, want ErrCorruptData", err)
	}
}

// ---------------------------------------------------------------------------
// Determinism
// ---------------------------------------------------------------------------

func TestCompressDeterministic(t *testing.T) {
	in := bytes.Repeat([]byte("deterministic output please"), 300)
	a := Compress(in)
	b := Compress(in)
	if !bytes.Equal(a, b) {
		t.Error("Compress is not deterministic")
	}
}

func BenchmarkCompress(b *testing.B) {
	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 500)
	b.SetBytes(int64(len(in)))
	for i := 0; i < b.N; i++ {
		Compress(in)
	}
}

func BenchmarkDecompress(b *testing.B) {
	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 500)
	comp := Compress(in)
	b.SetBytes(int64(len(in)))
	for i := 0; i < b.N; i++ {
		if _, err := Decompress(comp); err != nil {
			b.Fatal(err)
		}
	}
}
