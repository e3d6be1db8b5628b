// Package gen orchestrates sound generation: a Generator binds a master
// fragment, a filter chain, per-channel levels and a time stretch factor,
// renders each requested interval into a transient fragment, and mixes it
// into the master. Concrete generators bind one waveform source each.
package gen

import (
	"fmt"
	"math"

	"github.com/fredericksilva/splat/curve"
	"github.com/fredericksilva/splat/filters"
	"github.com/fredericksilva/splat/frag"
	"github.com/fredericksilva/splat/sources"
)

// Generator holds the state shared by all concrete generators. It must be
// specialized with a waveform source; calling Run on the base itself is a
// programming error.
type Generator struct {
	master      *frag.Fragment
	chain       filters.Chain
	levels      []float64
	timeStretch float64
}

// New creates a generator bound to the master fragment, with an optional
// initial filter chain. Default levels are 0 dB on every channel and the
// time stretch factor is 1.
func New(master *frag.Fragment, chain ...filters.Filter) *Generator {
	return &Generator{
		master:      master,
		chain:       filters.Chain(chain),
		levels:      make([]float64, master.Channels()),
		timeStretch: 1.0,
	}
}

// Frag returns the master fragment the generated sounds are mixed into.
func (g *Generator) Frag() *frag.Fragment {
	return g.master
}

// Channels returns the master fragment's channel count.
func (g *Generator) Channels() int {
	return g.master.Channels()
}

// Rate returns the master fragment's sample rate in Hz.
func (g *Generator) Rate() int {
	return g.master.Rate()
}

// Levels returns a copy of the default per-channel levels in dB.
func (g *Generator) Levels() []float64 {
	out := make([]float64, len(g.levels))
	copy(out, g.levels)
	return out
}

// SetLevels replaces the default per-channel levels in dB. The length must
// match the master fragment's channel count.
func (g *Generator) SetLevels(levelsDB []float64) error {
	if len(levelsDB) != g.master.Channels() {
		return fmt.Errorf("%w: %d levels for %d channels",
			frag.ErrChannelsMismatch, len(levelsDB), g.master.Channels())
	}
	g.levels = make([]float64, len(levelsDB))
	copy(g.levels, levelsDB)
	return nil
}

// Filters returns the current filter chain.
func (g *Generator) Filters() filters.Chain {
	return g.chain
}

// SetFilters replaces the filter chain, affecting subsequent renders only.
func (g *Generator) SetFilters(chain filters.Chain) {
	g.chain = chain
}

// TimeStretch returns the time stretch factor.
func (g *Generator) TimeStretch() float64 {
	return g.timeStretch
}

// SetTimeStretch sets the factor all start and end times are multiplied by
// when rendering.
func (g *Generator) SetTimeStretch(factor float64) error {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return fmt.Errorf("generator time stretch must be > 0 and finite: %f", factor)
	}
	g.timeStretch = factor
	return nil
}

// Run is the abstract entry point. Concrete generators provide their own
// Run bound to a waveform source; reaching this one is a programming error.
func (g *Generator) Run(start, end float64) error {
	panic("gen: Run called on the base Generator; use a concrete generator")
}

// run renders one interval: it stretches the times, fills a transient
// fragment through source, applies levels and the filter chain, shapes the
// mix boundaries, and mixes the result into the master at start.
func (g *Generator) run(source func(*frag.Fragment) error, start, end float64, levelsDB []float64) error {
	if levelsDB == nil {
		levelsDB = g.levels
	}
	if len(levelsDB) != g.master.Channels() {
		return fmt.Errorf("%w: %d levels for %d channels",
			frag.ErrChannelsMismatch, len(levelsDB), g.master.Channels())
	}

	start *= g.timeStretch
	end *= g.timeStretch
	if math.IsNaN(start) || math.IsInf(start, 0) || math.IsNaN(end) || math.IsInf(end, 0) {
		return fmt.Errorf("generator times must be finite: [%f, %f)", start, end)
	}
	if start < 0 {
		return fmt.Errorf("generator start time must be >= 0: %f", start)
	}
	if end < start {
		return fmt.Errorf("generator end time must be >= start time: [%f, %f)", start, end)
	}

	transient, err := frag.New(g.master.Channels(), g.master.Rate(), frag.WithDuration(end-start))
	if err != nil {
		return err
	}

	if err := source(transient); err != nil {
		return err
	}
	if err := transient.Amp(levelsDB...); err != nil {
		return err
	}
	if err := g.chain.Run(transient); err != nil {
		return err
	}

	// Anti-click shaping at the segment boundaries, regardless of source.
	filters.Fade(transient, g.master.Rate()/100)

	return g.master.Mix(transient, start)
}

// SineGenerator renders pure sine waves.
type SineGenerator struct {
	*Generator
}

// NewSine creates a sine generator bound to the master fragment.
func NewSine(master *frag.Fragment, chain ...filters.Filter) *SineGenerator {
	return &SineGenerator{Generator: New(master, chain...)}
}

// Run renders a sine over [start, end) seconds. Optional trailing values
// override the default per-channel levels in dB for this call.
func (g *SineGenerator) Run(start, end float64, freq, amp curve.Curve, levelsDB ...float64) error {
	return g.run(func(f *frag.Fragment) error {
		sources.Sine(f, freq, amp)
		return nil
	}, start, end, callLevels(levelsDB))
}

// SquareGenerator renders duty-controlled square waves.
type SquareGenerator struct {
	*Generator
	duty curve.Curve
}

// NewSquare creates a square generator with the default 0.5 duty.
func NewSquare(master *frag.Fragment, chain ...filters.Filter) *SquareGenerator {
	return &SquareGenerator{
		Generator: New(master, chain...),
		duty:      curve.Constant(0.5),
	}
}

// Duty returns the duty curve.
func (g *SquareGenerator) Duty() curve.Curve {
	return g.duty
}

// SetDuty replaces the duty curve used by subsequent renders. Values are
// validated per sample while rendering.
func (g *SquareGenerator) SetDuty(duty curve.Curve) error {
	if duty == nil {
		return fmt.Errorf("square duty curve must not be nil")
	}
	g.duty = duty
	return nil
}

// Run renders a square wave over [start, end) seconds.
func (g *SquareGenerator) Run(start, end float64, freq, amp curve.Curve, levelsDB ...float64) error {
	return g.run(func(f *frag.Fragment) error {
		return sources.Square(f, freq, amp, g.duty)
	}, start, end, callLevels(levelsDB))
}

// TriangleGenerator renders asymmetric triangle waves.
type TriangleGenerator struct {
	*Generator
	ratio curve.Curve
}

// NewTriangle creates a triangle generator with the given rise ratio,
// which must lie strictly between 0 and 1.
func NewTriangle(master *frag.Fragment, ratio float64, chain ...filters.Filter) (*TriangleGenerator, error) {
	g := &TriangleGenerator{Generator: New(master, chain...)}
	if err := g.SetRatio(ratio); err != nil {
		return nil, err
	}
	return g, nil
}

// Ratio returns the rise ratio curve.
func (g *TriangleGenerator) Ratio() curve.Curve {
	return g.ratio
}

// SetRatio replaces the rise ratio; it must lie strictly between 0 and 1.
func (g *TriangleGenerator) SetRatio(ratio float64) error {
	if ratio <= 0 || ratio >= 1 || math.IsNaN(ratio) {
		return fmt.Errorf("triangle ratio must be in (0, 1): %f", ratio)
	}
	g.ratio = curve.Constant(ratio)
	return nil
}

// Run renders a triangle wave over [start, end) seconds.
func (g *TriangleGenerator) Run(start, end float64, freq, amp curve.Curve, levelsDB ...float64) error {
	return g.run(func(f *frag.Fragment) error {
		return sources.Triangle(f, freq, amp, g.ratio)
	}, start, end, callLevels(levelsDB))
}

// OvertonesGenerator renders harmonic overtone series. Rendering time
// grows with the number of overtones.
type OvertonesGenerator struct {
	*Generator
	overtones sources.Overtones
}

// NewOvertones creates an overtones generator carrying only the
// fundamental at 0 dB.
func NewOvertones(master *frag.Fragment, chain ...filters.Filter) *OvertonesGenerator {
	return &OvertonesGenerator{
		Generator: New(master, chain...),
		overtones: sources.Overtones{1.0: 0.0},
	}
}

// Overtones returns the current overtone mapping.
func (g *OvertonesGenerator) Overtones() sources.Overtones {
	return g.overtones
}

// SetOvertones replaces the overtone mapping.
func (g *OvertonesGenerator) SetOvertones(o sources.Overtones) error {
	if len(o) == 0 {
		return fmt.Errorf("overtone mapping must not be empty")
	}
	g.overtones = o
	return nil
}

// DecExp replaces the overtone mapping with a decaying exponential series
// of n harmonics with decay ratio k (see sources.DecExp).
func (g *OvertonesGenerator) DecExp(k float64, n int) error {
	o, err := sources.DecExp(k, n)
	if err != nil {
		return err
	}
	g.overtones = o
	return nil
}

// Run renders the overtone series over [start, end) seconds.
func (g *OvertonesGenerator) Run(start, end float64, freq, amp curve.Curve, levelsDB ...float64) error {
	return g.run(func(f *frag.Fragment) error {
		return sources.OvertoneSeries(f, freq, amp, g.overtones)
	}, start, end, callLevels(levelsDB))
}

func callLevels(levelsDB []float64) []float64 {
	if len(levelsDB) == 0 {
		return nil
	}
	return levelsDB
}
