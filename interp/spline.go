// Package interp builds smooth interpolants from sparse control points.
//
// A Spline is a piecewise cubic Hermite interpolant: it passes through
// every control point exactly and has a continuous first derivative across
// segments. Slopes may be pinned per point; unpinned slopes are solved
// from neighboring secants. Outside the control-point span the boundary
// segment's polynomial extrapolates.
package interp

import (
	"fmt"
	"math"
	"sort"

	"github.com/fredericksilva/splat/curve"
)

// Point is one spline control point. Slope, when non-nil, pins the first
// derivative at this point; otherwise a smooth derivative is solved.
type Point struct {
	X, Y  float64
	Slope *float64
}

// Slope returns a pointer suitable for Point.Slope literals.
func Slope(v float64) *float64 {
	return &v
}

// Spline is a piecewise cubic Hermite interpolant over control points.
type Spline struct {
	xs []float64
	ys []float64
	ms []float64 // first derivative at each control point
}

// NewSpline constructs a spline from at least two control points with
// strictly increasing x values.
func NewSpline(points []Point) (*Spline, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("spline needs at least 2 control points: %d", len(points))
	}

	s := &Spline{
		xs: make([]float64, len(points)),
		ys: make([]float64, len(points)),
		ms: make([]float64, len(points)),
	}
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return nil, fmt.Errorf("spline control point %d must be finite: (%f, %f)", i, p.X, p.Y)
		}
		if i > 0 && p.X <= points[i-1].X {
			return nil, fmt.Errorf("spline control points must have strictly increasing x: point %d (%f) after %f",
				i, p.X, points[i-1].X)
		}
		s.xs[i] = p.X
		s.ys[i] = p.Y
	}

	// Secant slope of each segment.
	n := len(points)
	secants := make([]float64, n-1)
	for i := range secants {
		secants[i] = (s.ys[i+1] - s.ys[i]) / (s.xs[i+1] - s.xs[i])
	}

	for i, p := range points {
		switch {
		case p.Slope != nil:
			if math.IsNaN(*p.Slope) || math.IsInf(*p.Slope, 0) {
				return nil, fmt.Errorf("spline slope at point %d must be finite: %f", i, *p.Slope)
			}
			s.ms[i] = *p.Slope
		case i == 0:
			s.ms[i] = secants[0]
		case i == n-1:
			s.ms[i] = secants[n-2]
		default:
			s.ms[i] = (secants[i-1] + secants[i]) / 2
		}
	}

	return s, nil
}

// Value evaluates the spline at x. Between control points the segment's
// cubic is evaluated; beyond the span the nearest boundary segment
// extrapolates.
func (s *Spline) Value(x float64) float64 {
	// Segment index such that xs[i] <= x < xs[i+1], clamped to the span.
	i := sort.SearchFloat64s(s.xs, x) - 1
	if i < 0 {
		i = 0
	}
	if i > len(s.xs)-2 {
		i = len(s.xs) - 2
	}

	h := s.xs[i+1] - s.xs[i]
	t := (x - s.xs[i]) / h

	h00 := (2*t-3)*t*t + 1
	h10 := ((t-2)*t + 1) * t
	h01 := (3 - 2*t) * t * t
	h11 := (t - 1) * t * t

	return h00*s.ys[i] + h10*h*s.ms[i] + h01*s.ys[i+1] + h11*h*s.ms[i+1]
}

// Start returns the x coordinate of the first control point.
func (s *Spline) Start() float64 {
	return s.xs[0]
}

// End returns the x coordinate of the last control point.
func (s *Spline) End() float64 {
	return s.xs[len(s.xs)-1]
}

// Curve adapts the spline to a per-sample parameter curve: sample index n
// maps to the spline value at time n/rate seconds.
func (s *Spline) Curve(rate int) curve.Sampled {
	return func(n int) float64 {
		return s.Value(float64(n) / float64(rate))
	}
}
