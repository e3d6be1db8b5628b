package sources

import (
	"fmt"
	"math"
	"sort"

	"github.com/fredericksilva/splat/frag"
)

// Overtones maps a harmonic ratio (1.0 is the fundamental) to its relative
// level in dB. Ratios must be > 0; insertion order is irrelevant.
type Overtones map[float64]float64

// DecExp builds harmonic overtone levels following a decaying exponential:
// harmonic i in 1..n sits at ratio i with amplitude exp(-(i-1)/k). The
// fundamental is therefore always at exactly 0 dB; larger k decays slower
// and keeps more audible high harmonics.
func DecExp(k float64, n int) (Overtones, error) {
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("overtone decay ratio must be > 0 and finite: %f", k)
	}
	if n < 1 {
		return nil, fmt.Errorf("overtone count must be >= 1: %d", n)
	}

	o := make(Overtones, n)
	for i := 1; i <= n; i++ {
		o[float64(i)] = frag.LinearToDB(math.Exp(-float64(i-1) / k))
	}
	return o, nil
}

type harmonic struct {
	ratio float64
	gain  float64
}

// harmonics validates the mapping and flattens it to a deterministic
// (ratio-sorted) list with linear gains, so summation order does not
// depend on map iteration.
func (o Overtones) harmonics() ([]harmonic, error) {
	hs := make([]harmonic, 0, len(o))
	for ratio, db := range o {
		if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			return nil, fmt.Errorf("overtone ratio must be > 0 and finite: %f", ratio)
		}
		hs = append(hs, harmonic{ratio: ratio, gain: frag.DBToLinear(db)})
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].ratio < hs[j].ratio })
	return hs, nil
}
