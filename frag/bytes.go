package frag

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// AsBytes returns the full fragment as interleaved frames quantized to the
// given sample width in bytes. Only 16-bit integer samples (width 2) are
// supported; values outside [-1, 1] are clamped.
func (f *Fragment) AsBytes(sampleWidth int) ([]byte, error) {
	return f.AsBytesRange(sampleWidth, 0, f.Len())
}

// AsBytesRange is like AsBytes restricted to the sample range [start, end).
func (f *Fragment) AsBytesRange(sampleWidth, start, end int) ([]byte, error) {
	if sampleWidth != 2 {
		return nil, fmt.Errorf("fragment sample width must be 2: %d", sampleWidth)
	}
	if start < 0 || end > f.Len() || start > end {
		return nil, fmt.Errorf("fragment byte range must be within [0, %d]: [%d, %d)", f.Len(), start, end)
	}

	out := make([]byte, (end-start)*f.Channels()*sampleWidth)
	pos := 0
	for i := start; i < end; i++ {
		for c := range f.data {
			s := int16(Clamp(f.data[c][i], -1, 1) * 32767)
			binary.LittleEndian.PutUint16(out[pos:], uint16(s))
			pos += 2
		}
	}
	return out, nil
}

// NativeBytes returns the sample range [start, end) as interleaved
// little-endian float64 frames, the engine's native precision.
func (f *Fragment) NativeBytes(start, end int) ([]byte, error) {
	if start < 0 || end > f.Len() || start > end {
		return nil, fmt.Errorf("fragment byte range must be within [0, %d]: [%d, %d)", f.Len(), start, end)
	}

	out := make([]byte, (end-start)*f.Channels()*8)
	pos := 0
	for i := start; i < end; i++ {
		for c := range f.data {
			binary.LittleEndian.PutUint64(out[pos:], math.Float64bits(f.data[c][i]))
			pos += 8
		}
	}
	return out, nil
}

// ImportNative places interleaved little-endian float64 frames into the
// fragment starting at sample index at, growing it as needed.
func (f *Fragment) ImportNative(raw []byte, at int) error {
	frameSize := f.Channels() * 8
	if len(raw)%frameSize != 0 {
		return fmt.Errorf("native payload length must be a multiple of the frame size %d: %d", frameSize, len(raw))
	}
	if at < 0 {
		return fmt.Errorf("import index must be >= 0: %d", at)
	}

	frames := len(raw) / frameSize
	f.Resize(at + frames)

	pos := 0
	for i := at; i < at+frames; i++ {
		for c := range f.data {
			f.data[c][i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[pos:]))
			pos += 8
		}
	}
	return nil
}

// ImportInts places interleaved integer frames into the fragment starting
// at sample index at, converting to float64 with full-scale 1<<(bitDepth-1).
// The frame layout must match the fragment's channel count and rate.
func (f *Fragment) ImportInts(samples []int, at, bitDepth, rate, channels int) error {
	if channels != f.Channels() {
		return fmt.Errorf("%w: %d != %d", ErrChannelsMismatch, channels, f.Channels())
	}
	if rate != f.rate {
		return fmt.Errorf("%w: %d != %d", ErrRateMismatch, rate, f.rate)
	}
	if bitDepth < 8 || bitDepth > 32 || bitDepth%8 != 0 {
		return fmt.Errorf("import bit depth must be 8, 16, 24 or 32: %d", bitDepth)
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("import sample count must be a multiple of %d channels: %d", channels, len(samples))
	}
	if at < 0 {
		return fmt.Errorf("import index must be >= 0: %d", at)
	}

	fullScale := float64(int(1) << (bitDepth - 1))
	frames := len(samples) / channels
	f.Resize(at + frames)

	pos := 0
	for i := at; i < at+frames; i++ {
		for c := range f.data {
			f.data[c][i] = float64(samples[pos]) / fullScale
			pos++
		}
	}
	return nil
}

// MD5 returns the hex MD5 digest of the fragment's 16-bit quantized byte
// image. It is the engine's content hash: two fragments with the same
// quantized samples share a digest.
func (f *Fragment) MD5() (string, error) {
	raw, err := f.AsBytes(2)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:]), nil
}
