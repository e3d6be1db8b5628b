package audiofile

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fredericksilva/splat/curve"
	"github.com/fredericksilva/splat/frag"
	"github.com/fredericksilva/splat/sources"
)

func renderTone(t *testing.T, channels int, duration float64) *frag.Fragment {
	t.Helper()
	f, err := frag.New(channels, 48000, frag.WithDuration(duration))
	if err != nil {
		t.Fatalf("frag.New() error = %v", err)
	}
	sources.Sine(f, curve.Constant(440), curve.Constant(-3))
	return f
}

func TestSAFRoundTrip(t *testing.T) {
	orig := renderTone(t, 2, 0.25)
	path := filepath.Join(t.TempDir(), "tone.saf")

	if err := Save(orig, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if got.Channels() != orig.Channels() || got.Rate() != orig.Rate() || got.Len() != orig.Len() {
		t.Fatalf("reopened shape = (%d ch, %d Hz, %d samples), want (%d, %d, %d)",
			got.Channels(), got.Rate(), got.Len(),
			orig.Channels(), orig.Rate(), orig.Len())
	}

	// Native float64 payload makes the round trip bit-exact.
	for c := 0; c < orig.Channels(); c++ {
		oc, gc := orig.Channel(c), got.Channel(c)
		for i := range oc {
			if oc[i] != gc[i] {
				t.Fatalf("channel %d sample %d: %v != %v", c, i, gc[i], oc[i])
			}
		}
	}

	a, err := orig.MD5()
	if err != nil {
		t.Fatalf("MD5() error = %v", err)
	}
	b, err := got.MD5()
	if err != nil {
		t.Fatalf("MD5() error = %v", err)
	}
	if a != b {
		t.Fatalf("content hash changed across the round trip: %s != %s", b, a)
	}
}

func TestSAFRange(t *testing.T) {
	orig := renderTone(t, 1, 0.5)
	path := filepath.Join(t.TempDir(), "slice.saf")

	if err := Save(orig, path, WithRange(0.1, 0.3)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	want := orig.S2N(0.3) - orig.S2N(0.1)
	if got.Len() != want {
		t.Fatalf("reopened length = %d, want %d", got.Len(), want)
	}
	off := orig.S2N(0.1)
	for i, v := range got.Channel(0) {
		if v != orig.Channel(0)[off+i] {
			t.Fatalf("sample %d: %v != %v", i, v, orig.Channel(0)[off+i])
		}
	}
}

func TestSAFTamperRejected(t *testing.T) {
	orig := renderTone(t, 1, 0.1)
	path := filepath.Join(t.TempDir(), "tone.saf")
	if err := Save(orig, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	// Flip the sign bit of a payload sample near the end of the file.
	raw[len(raw)-1] ^= 0x80
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err = Open(path)
	if !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("Open() error = %v, want ErrHashMismatch", err)
	}
}

func writeSAF(t *testing.T, dir, header string, payload []byte) string {
	t.Helper()
	path := filepath.Join(dir, "crafted.saf")
	var buf bytes.Buffer
	buf.WriteString(safMagic + "\n")
	buf.WriteString(header + "\n")
	buf.Write(payload)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestSAFNewerFormatRejected(t *testing.T) {
	header := fmt.Sprintf("rate=48000 channels=1 length=0 precision=64 format=%d version=%s build=%d md5=%s",
		safFormat+1, Version, Build, "00000000000000000000000000000000")
	path := writeSAF(t, t.TempDir(), header, nil)

	_, err := Open(path)
	if !errors.Is(err, ErrFormatVersion) {
		t.Fatalf("Open() error = %v, want ErrFormatVersion", err)
	}
}

func TestSAFPrecisionMismatchRejected(t *testing.T) {
	header := fmt.Sprintf("rate=48000 channels=1 length=0 precision=32 format=%d version=%s build=%d md5=%s",
		safFormat, Version, Build, "00000000000000000000000000000000")
	path := writeSAF(t, t.TempDir(), header, nil)

	_, err := Open(path)
	if !errors.Is(err, ErrPrecisionMismatch) {
		t.Fatalf("Open() error = %v, want ErrPrecisionMismatch", err)
	}
}

func TestSAFWrongHashRejected(t *testing.T) {
	payload := nativeSample(0.5)
	header := fmt.Sprintf("rate=48000 channels=1 length=1 precision=64 format=%d version=%s build=%d md5=%s",
		safFormat, Version, Build, "deadbeefdeadbeefdeadbeefdeadbeef")
	path := writeSAF(t, t.TempDir(), header, payload)

	_, err := Open(path)
	if !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("Open() error = %v, want ErrHashMismatch", err)
	}
}

func TestSAFTruncatedPayload(t *testing.T) {
	header := fmt.Sprintf("rate=48000 channels=1 length=4 precision=64 format=%d version=%s build=%d md5=%s",
		safFormat, Version, Build, "00000000000000000000000000000000")
	path := writeSAF(t, t.TempDir(), header, make([]byte, 8))

	if _, err := Open(path); err == nil {
		t.Fatal("Open() with a truncated payload did not fail")
	}
}

func TestSAFHeaderIsStable(t *testing.T) {
	orig := renderTone(t, 1, 0.05)
	path := filepath.Join(t.TempDir(), "tone.saf")
	if err := Save(orig, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := bytes.SplitN(raw, []byte("\n"), 3)
	if string(lines[0]) != safMagic {
		t.Fatalf("magic line = %q, want %q", lines[0], safMagic)
	}

	quant, err := orig.AsBytes(2)
	if err != nil {
		t.Fatalf("AsBytes() error = %v", err)
	}
	sum := md5.Sum(quant)
	want := fmt.Sprintf("rate=48000 channels=1 length=%d precision=64 format=%d version=%s build=%d md5=%s",
		orig.Len(), safFormat, Version, Build, hex.EncodeToString(sum[:]))
	if string(lines[1]) != want {
		t.Fatalf("header line = %q, want %q", lines[1], want)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	orig := renderTone(t, 2, 0.1)
	path := filepath.Join(t.TempDir(), "tone.wav")

	if err := Save(orig, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if got.Channels() != orig.Channels() || got.Rate() != orig.Rate() || got.Len() != orig.Len() {
		t.Fatalf("reopened shape = (%d ch, %d Hz, %d samples), want (%d, %d, %d)",
			got.Channels(), got.Rate(), got.Len(),
			orig.Channels(), orig.Rate(), orig.Len())
	}

	// Round-to-nearest 16-bit quantization bounds the round-trip error
	// at half a step.
	const tol = 0.5 / 32768
	for c := 0; c < orig.Channels(); c++ {
		oc, gc := orig.Channel(c), got.Channel(c)
		for i := range oc {
			if math.Abs(oc[i]-gc[i]) > tol {
				t.Fatalf("channel %d sample %d: %v differs from %v by more than %v",
					c, i, gc[i], oc[i], tol)
			}
		}
	}
}

func TestWAVQuantizationExactSteps(t *testing.T) {
	// Samples sitting exactly on quantization steps survive a WAV round
	// trip unchanged; the saver and the opener must agree on the scale.
	f, err := frag.New(1, 48000, frag.WithLength(6))
	if err != nil {
		t.Fatalf("frag.New() error = %v", err)
	}
	steps := []float64{0, 0.25, -0.25, 16383.0 / 32768, -1, 32767.0 / 32768}
	copy(f.Channel(0), steps)

	path := filepath.Join(t.TempDir(), "steps.wav")
	if err := Save(f, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	for i, want := range steps {
		if v := got.Channel(0)[i]; v != want {
			t.Fatalf("sample %d = %v, want %v exactly", i, v, want)
		}
	}
}

func TestExplicitFormatIgnoresExtension(t *testing.T) {
	orig := renderTone(t, 1, 0.05)
	path := filepath.Join(t.TempDir(), "tone.dat")

	if err := Save(orig, path, WithFormat("saf")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Open(path, WithFormat("saf"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got.Len() != orig.Len() {
		t.Fatalf("reopened length = %d, want %d", got.Len(), orig.Len())
	}

	// Forcing the wrong reader is a hard failure, not a fallthrough.
	if _, err := Open(path, WithFormat("wav")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Open() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestOpenSniffsContent(t *testing.T) {
	orig := renderTone(t, 1, 0.05)

	// A WAV payload behind a .saf extension is still recognized.
	path := filepath.Join(t.TempDir(), "mislabeled.saf")
	if err := Save(orig, path, WithFormat("wav")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got.Len() != orig.Len() {
		t.Fatalf("reopened length = %d, want %d", got.Len(), orig.Len())
	}
}

func TestOpenUnrecognizedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.bin")
	if err := os.WriteFile(path, []byte("not an audio file at all"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Open(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Open() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSaveUnknownExtension(t *testing.T) {
	orig := renderTone(t, 1, 0.05)
	err := Save(orig, filepath.Join(t.TempDir(), "tone.xyz"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Save() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestOptionValidation(t *testing.T) {
	orig := renderTone(t, 1, 0.05)
	dir := t.TempDir()

	if err := Save(orig, filepath.Join(dir, "a.wav"), WithSampleWidth(0)); err == nil {
		t.Fatal("Save() with sample width 0 did not fail")
	}
	if err := Save(orig, filepath.Join(dir, "b.wav"), WithRange(0.4, 0.2)); err == nil {
		t.Fatal("Save() with an inverted range did not fail")
	}
	if err := Save(orig, filepath.Join(dir, "c.wav"), WithRange(0, 10)); err == nil {
		t.Fatal("Save() with a range past the end did not fail")
	}
	if _, err := Open(filepath.Join(dir, "d.wav"), WithFormat("ogg")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Open() error = %v, want ErrUnsupportedFormat", err)
	}
}

func nativeSample(v float64) []byte {
	bits := math.Float64bits(v)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(bits >> (8 * i))
	}
	return out
}
