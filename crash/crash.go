package crash

import "time"

// The crash point is drawn from a tiered distribution: one uniform draw
// picks the tier, a second independent draw places the point inside it.
// ~50% of rounds crash below 1.51x (house-favoring).
type tier struct {
	cum  float64 // upper bound of the tier-selection range
	base float64 // lowest multiplier in the tier
	span float64 // multiplier range covered by the tier
}

var tiers = []tier{
	{cum: 0.50, base: 1.01, span: 0.50},
	{cum: 0.80, base: 1.50, span: 1.50},
	{cum: 0.95, base: 3.00, span: 7.00},
	{cum: 1.00, base: 10.00, span: 40.00},
}

// Generate returns a crash multiplier > 1.00. Called exactly once per
// round at wager placement; stateless.
func Generate(src Source) float64 {
	if src == nil {
		src = DefaultSource()
	}
	u := src.Float64()
	for _, t := range tiers {
		if u < t.cum {
			return t.base + src.Float64()*t.span
		}
	}
	last := tiers[len(tiers)-1]
	return last.base + src.Float64()*last.span
}

// Curve constants for the climb: multiplier(t) = 1 + accel*(t/1s)^2.
const climbAccel = 0.1

// MultiplierAt returns the climb multiplier after the given elapsed time
// since round start. Monotonically increasing, 1.00 at t=0.
func MultiplierAt(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 1.0
	}
	s := elapsed.Seconds()
	return 1.0 + climbAccel*s*s
}
