// Package curve provides scalar parameters that may vary per sample.
// A Curve is evaluated once per sample index; sources never know whether
// they received a fixed value or a time-varying one.
package curve

// Curve is a scalar parameter evaluated at a sample index.
type Curve interface {
	// At returns the parameter value at sample index n.
	At(n int) float64
}

// Constant is a Curve holding the same value at every sample.
type Constant float64

// At returns the constant value regardless of n.
func (c Constant) At(int) float64 {
	return float64(c)
}

// Sampled adapts a per-sample function to the Curve interface.
type Sampled func(n int) float64

// At evaluates the function at sample index n.
func (s Sampled) At(n int) float64 {
	return s(n)
}

// FromTimeFunc adapts a function of time in seconds to a Curve evaluated
// on the sample grid of the given rate.
func FromTimeFunc(fn func(seconds float64) float64, rate int) Sampled {
	return func(n int) float64 {
		return fn(float64(n) / float64(rate))
	}
}
