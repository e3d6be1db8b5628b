package frag

import (
	"errors"
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

const (
	// MaxChannels bounds the number of channels a Fragment may hold.
	MaxChannels = 16

	// SamplePrecision is the engine sample precision in bits. All channel
	// data is stored as float64; interchange formats carrying native
	// samples must declare this precision.
	SamplePrecision = 64
)

var (
	// ErrChannelsMismatch is returned when two fragments or a fragment and
	// a per-channel parameter list disagree on channel count.
	ErrChannelsMismatch = errors.New("channels mismatch")

	// ErrRateMismatch is returned when two fragments disagree on sample rate.
	ErrRateMismatch = errors.New("sample rate mismatch")
)

// Fragment is a fixed-rate, multi-channel buffer of float64 samples.
// All channels share the same length. New samples are silence (0.0).
type Fragment struct {
	data [][]float64
	rate int
}

type fragConfig struct {
	duration float64
	length   int
}

// Option configures Fragment construction.
type Option func(*fragConfig) error

// WithDuration sets the initial fragment duration in seconds. The sample
// count is truncated to duration*rate.
func WithDuration(seconds float64) Option {
	return func(cfg *fragConfig) error {
		if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return fmt.Errorf("fragment duration must be >= 0 and finite: %f", seconds)
		}
		cfg.duration = seconds
		return nil
	}
}

// WithLength sets the initial fragment length in samples per channel.
func WithLength(samples int) Option {
	return func(cfg *fragConfig) error {
		if samples < 0 {
			return fmt.Errorf("fragment length must be >= 0: %d", samples)
		}
		cfg.length = samples
		return nil
	}
}

// New creates a silent fragment with the given channel count and sample
// rate in Hz. Without options the fragment is empty; WithDuration or
// WithLength sets the initial size.
func New(channels, rate int, opts ...Option) (*Fragment, error) {
	if channels < 1 || channels > MaxChannels {
		return nil, fmt.Errorf("fragment channels must be in [1, %d]: %d", MaxChannels, channels)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("fragment sample rate must be > 0: %d", rate)
	}

	cfg := fragConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	length := cfg.length
	if cfg.duration > 0 {
		length = int(cfg.duration * float64(rate))
	}

	f := &Fragment{
		data: make([][]float64, channels),
		rate: rate,
	}
	for c := range f.data {
		f.data[c] = make([]float64, length)
	}
	return f, nil
}

// Channels returns the number of channels.
func (f *Fragment) Channels() int {
	return len(f.data)
}

// Rate returns the sample rate in Hz.
func (f *Fragment) Rate() int {
	return f.rate
}

// Len returns the number of samples per channel.
func (f *Fragment) Len() int {
	if len(f.data) == 0 {
		return 0
	}
	return len(f.data[0])
}

// Duration returns the fragment duration in seconds.
func (f *Fragment) Duration() float64 {
	return float64(f.Len()) / float64(f.rate)
}

// Channel returns the sample slice of channel c. The slice aliases the
// fragment's storage; writes through it are visible to the fragment.
func (f *Fragment) Channel(c int) []float64 {
	return f.data[c]
}

// N2S converts a sample index into a time in seconds.
func (f *Fragment) N2S(n int) float64 {
	return float64(n) / float64(f.rate)
}

// S2N converts a time in seconds into a sample index.
func (f *Fragment) S2N(s float64) int {
	return int(s * float64(f.rate))
}

// Resize grows every channel to at least length samples, zero-filling the
// new tail. Shrinking is a no-op; existing data is never discarded.
func (f *Fragment) Resize(length int) {
	if length <= f.Len() {
		return
	}
	for c := range f.data {
		old := f.data[c]
		if cap(old) >= length {
			grown := old[:length]
			for i := len(old); i < length; i++ {
				grown[i] = 0
			}
			f.data[c] = grown
			continue
		}
		grown := make([]float64, length)
		copy(grown, old)
		f.data[c] = grown
	}
}

// Mix adds the other fragment's samples into this one, offset to the given
// start time in seconds. The fragment grows as needed to cover the mixed
// range. Channel count and sample rate must match.
func (f *Fragment) Mix(other *Fragment, start float64) error {
	if other.Channels() != f.Channels() {
		return fmt.Errorf("%w: %d != %d", ErrChannelsMismatch, other.Channels(), f.Channels())
	}
	if other.rate != f.rate {
		return fmt.Errorf("%w: %d != %d", ErrRateMismatch, other.rate, f.rate)
	}
	if start < 0 || math.IsNaN(start) || math.IsInf(start, 0) {
		return fmt.Errorf("mix start time must be >= 0 and finite: %f", start)
	}

	startSample := int(start * float64(f.rate))
	n := other.Len()
	f.Resize(startSample + n)

	for c := range f.data {
		vecmath.AddBlockInPlace(f.data[c][startSample:startSample+n], other.data[c])
	}
	return nil
}

// Amp amplifies the fragment by the given gains in dB: a single value
// applies to all channels, otherwise one value per channel is required.
func (f *Fragment) Amp(gainsDB ...float64) error {
	if len(gainsDB) != 1 && len(gainsDB) != f.Channels() {
		return fmt.Errorf("%w: %d gains for %d channels", ErrChannelsMismatch, len(gainsDB), f.Channels())
	}

	for c := range f.data {
		db := gainsDB[0]
		if len(gainsDB) > 1 {
			db = gainsDB[c]
		}
		vecmath.ScaleBlockInPlace(f.data[c], DBToLinear(db))
	}
	return nil
}

// Normalize removes each channel's DC offset and scales the whole fragment
// so its largest offset-corrected peak sits at the given level in dB.
func (f *Fragment) Normalize(levelDB float64) {
	length := f.Len()
	if length == 0 {
		return
	}

	average := make([]float64, f.Channels())
	peak := 0.0
	for c := range f.data {
		avg := vecmath.Sum(f.data[c]) / float64(length)
		average[c] = avg

		neg, pos := 1.0, -1.0
		for _, s := range f.data[c] {
			if s > pos {
				pos = s
			}
			if s < neg {
				neg = s
			}
		}
		chanPeak := math.Max(math.Abs(neg-avg), math.Abs(pos-avg))
		if chanPeak > peak {
			peak = chanPeak
		}
	}

	if peak == 0 {
		return
	}
	gain := DBToLinear(levelDB) / peak

	for c := range f.data {
		avg := average[c]
		for i := range f.data[c] {
			f.data[c][i] = (f.data[c][i] - avg) * gain
		}
	}
}

// Dup returns a deep copy of the fragment.
func (f *Fragment) Dup() *Fragment {
	dup := &Fragment{
		data: make([][]float64, len(f.data)),
		rate: f.rate,
	}
	for c := range f.data {
		dup.data[c] = make([]float64, len(f.data[c]))
		copy(dup.data[c], f.data[c])
	}
	return dup
}
