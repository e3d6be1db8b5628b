package sources

import (
	"fmt"
	"math"

	"github.com/fredericksilva/splat/curve"
	"github.com/fredericksilva/splat/frag"
)

// Sine fills the fragment with sin(2π·f(n)·n/rate) scaled by the amplitude
// curve's linear gain.
func Sine(f *frag.Fragment, freq, amp curve.Curve) {
	rate := float64(f.Rate())
	channels := channelSlices(f)

	for i := 0; i < f.Len(); i++ {
		s := math.Sin(2*math.Pi*freq.At(i)*float64(i)/rate) * frag.DBToLinear(amp.At(i))
		for _, ch := range channels {
			ch[i] = s
		}
	}
}

// Square fills the fragment with a duty-controlled square wave: +gain while
// the phase position lies within the duty fraction of the period, -gain
// otherwise. The duty curve must stay within [0, 1].
func Square(f *frag.Fragment, freq, amp, duty curve.Curve) error {
	rate := float64(f.Rate())
	channels := channelSlices(f)

	for i := 0; i < f.Len(); i++ {
		d := duty.At(i)
		if d < 0 || d > 1 || math.IsNaN(d) {
			return fmt.Errorf("square duty must be in [0, 1]: %f", d)
		}

		pos := phasePos(freq.At(i), i, rate)
		s := frag.DBToLinear(amp.At(i))
		if pos >= d {
			s = -s
		}
		for _, ch := range channels {
			ch[i] = s
		}
	}
	return nil
}

// Triangle fills the fragment with an asymmetric triangle wave. The ratio
// curve splits each period into a rising segment of length ratio·period
// (from -1 to +1) and a falling segment over the remainder (+1 back to -1);
// it must stay strictly within (0, 1). A ratio of 0.5 is the symmetric
// triangle.
func Triangle(f *frag.Fragment, freq, amp, ratio curve.Curve) error {
	rate := float64(f.Rate())
	channels := channelSlices(f)

	for i := 0; i < f.Len(); i++ {
		r := ratio.At(i)
		if r <= 0 || r >= 1 || math.IsNaN(r) {
			return fmt.Errorf("triangle ratio must be in (0, 1): %f", r)
		}

		pos := phasePos(freq.At(i), i, rate)
		var v float64
		if pos < r {
			v = 2*pos/r - 1
		} else {
			v = 1 - 2*(pos-r)/(1-r)
		}

		s := v * frag.DBToLinear(amp.At(i))
		for _, ch := range channels {
			ch[i] = s
		}
	}
	return nil
}

// OvertoneSeries fills the fragment with a sum of sine harmonics. For each
// (ratio, relative dB) pair a sine at ratio·f(n) is synthesized with the
// amplitude curve offset by the relative level, and the per-harmonic
// linear gains are summed. Harmonics at or above the Nyquist frequency for
// the starting fundamental are silenced.
func OvertoneSeries(f *frag.Fragment, freq, amp curve.Curve, overtones Overtones) error {
	harmonics, err := overtones.harmonics()
	if err != nil {
		return err
	}

	rate := float64(f.Rate())
	channels := channelSlices(f)

	if f.Len() > 0 {
		nyquist := rate / 2
		base := freq.At(0)
		for h := range harmonics {
			if harmonics[h].ratio*base >= nyquist {
				harmonics[h].gain = 0
			}
		}
	}

	for i := 0; i < f.Len(); i++ {
		m := 2 * math.Pi * freq.At(i) * float64(i) / rate
		g := frag.DBToLinear(amp.At(i))

		s := 0.0
		for _, h := range harmonics {
			s += math.Sin(m*h.ratio) * h.gain
		}
		s *= g

		for _, ch := range channels {
			ch[i] = s
		}
	}
	return nil
}

func channelSlices(f *frag.Fragment) [][]float64 {
	channels := make([][]float64, f.Channels())
	for c := range channels {
		channels[c] = f.Channel(c)
	}
	return channels
}

// phasePos returns the position within the current period in [0, 1).
func phasePos(freq float64, n int, rate float64) float64 {
	pos := math.Mod(freq*float64(n)/rate, 1)
	if pos < 0 {
		pos += 1
	}
	return pos
}
