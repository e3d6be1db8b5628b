// Package filters provides in-place fragment transforms and the ordered
// chain that generators run between waveform generation and mixing.
package filters

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fredericksilva/splat/frag"
)

// Filter mutates a fragment in place.
type Filter func(*frag.Fragment) error

// Chain is an ordered sequence of filters. The zero value is an empty
// chain, which is a no-op.
type Chain []Filter

// Run applies every filter in sequence, stopping at the first error.
func (c Chain) Run(f *frag.Fragment) error {
	for _, flt := range c {
		if flt == nil {
			continue
		}
		if err := flt(f); err != nil {
			return err
		}
	}
	return nil
}

// LinearFade returns a filter scaling both ends of the fragment by a
// linear ramp over the given duration in seconds, capped at half the
// fragment length.
func LinearFade(duration float64) (Filter, error) {
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("fade duration must be >= 0 and finite: %f", duration)
	}
	return func(f *frag.Fragment) error {
		Fade(f, int(duration*float64(f.Rate())))
		return nil
	}, nil
}

// DecEnvelope returns a filter applying a decreasing envelope:
// s[i] = s[i] / (1 + i/k)^p.
func DecEnvelope(k, p float64) (Filter, error) {
	if k == 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("envelope k must be non-zero and finite: %f", k)
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return nil, fmt.Errorf("envelope p must be finite: %f", p)
	}
	return func(f *frag.Fragment) error {
		for c := 0; c < f.Channels(); c++ {
			ch := f.Channel(c)
			for i := range ch {
				ch[i] /= math.Pow(1+float64(i)/k, p)
			}
		}
		return nil
	}, nil
}

// Reverse returns a filter reversing the order of all samples.
func Reverse() Filter {
	return func(f *frag.Fragment) error {
		for c := 0; c < f.Channels(); c++ {
			ch := f.Channel(c)
			for i, j := 0, len(ch)-1; i < j; i, j = i+1, j-1 {
				ch[i], ch[j] = ch[j], ch[i]
			}
		}
		return nil
	}
}

// Normalize returns a filter normalizing the fragment to the given peak
// level in dB.
func Normalize(levelDB float64) Filter {
	return func(f *frag.Fragment) error {
		f.Normalize(levelDB)
		return nil
	}
}

// Amp returns a filter amplifying the fragment by the given gains in dB
// (one value for all channels, or one per channel).
func Amp(gainsDB ...float64) Filter {
	return func(f *frag.Fragment) error {
		return f.Amp(gainsDB...)
	}
}

// Fade scales the first and last fade samples of every channel by a
// linear ramp, capped at half the fragment length. The first and last
// samples end up at exactly zero.
func Fade(f *frag.Fragment, fade int) {
	if half := f.Len() / 2; fade > half {
		fade = half
	}
	if fade <= 0 {
		return
	}
	length := f.Len()
	for c := 0; c < f.Channels(); c++ {
		ch := f.Channel(c)
		for i := 0; i < fade; i++ {
			g := float64(i) / float64(fade)
			ch[i] *= g
			ch[length-1-i] *= g
		}
	}
}

// Delay is one reverb tap: a time offset in seconds and a gain in dB.
type Delay struct {
	Time   float64
	GainDB float64
}

// Reverb returns a filter creating a fast basic reverb. Each delay tap
// repeats the whole fragment shifted and attenuated; timeFactor and
// gainFactor add a per-channel random spread around each tap (a tap time
// is stretched by up to 1+timeFactor, a tap gain moved within
// ±gainFactor dB). The seed makes the spread reproducible: every
// application of the filter draws the same sequence.
func Reverb(delays []Delay, timeFactor, gainFactor float64, seed int64) (Filter, error) {
	if len(delays) == 0 {
		return nil, fmt.Errorf("reverb needs at least one delay tap: %d", len(delays))
	}
	for i, d := range delays {
		if d.Time < 0 || math.IsNaN(d.Time) || math.IsInf(d.Time, 0) {
			return nil, fmt.Errorf("reverb delay %d time must be >= 0 and finite: %f", i, d.Time)
		}
	}
	if timeFactor < 0 || math.IsNaN(timeFactor) || math.IsInf(timeFactor, 0) {
		return nil, fmt.Errorf("reverb time factor must be >= 0 and finite: %f", timeFactor)
	}
	if gainFactor < 0 || math.IsNaN(gainFactor) || math.IsInf(gainFactor, 0) {
		return nil, fmt.Errorf("reverb gain factor must be >= 0 and finite: %f", gainFactor)
	}

	return func(f *frag.Fragment) error {
		if f.Len() == 0 {
			return nil
		}
		rng := rand.New(rand.NewSource(seed))

		type tap struct {
			offset int
			gain   float64
		}
		taps := make([][]tap, f.Channels())
		maxDelay := 0
		for _, d := range delays {
			for c := range taps {
				stretched := d.Time * (1 + rng.Float64()*timeFactor)
				offset := int(stretched * float64(f.Rate()))
				if offset > maxDelay {
					maxDelay = offset
				}
				gainDB := d.GainDB - gainFactor + rng.Float64()*gainFactor*2
				taps[c] = append(taps[c], tap{offset: offset, gain: frag.DBToLinear(gainDB)})
			}
		}

		maxIndex := f.Len() - 1
		f.Resize(f.Len() + maxDelay)

		for c := 0; c < f.Channels(); c++ {
			ch := f.Channel(c)
			for i := maxIndex; i >= 0; i-- {
				s := ch[i]
				for _, tp := range taps[c] {
					ch[i+tp.offset] += s * tp.gain
				}
			}
		}
		return nil
	}, nil
}
