package game

import "math"

// Geometry helpers for a toroidal arena. All positions live in
// [0, width) x [0, height); distances are measured along the shortest
// wrapped path.

// Wrap maps v onto a wrapping axis of length max, into [0, max).
func Wrap(v, max float64) float64 {
	return math.Mod(math.Mod(v, max)+max, max)
}

// ToroidalDiff returns the signed shortest displacement from a to b
// along a wrapping axis of length max. The result lies in (-max/2, max/2].
func ToroidalDiff(a, b, max float64) float64 {
	d := Wrap(b-a, max)
	if d > max/2 {
		d -= max
	}
	return d
}

// ToroidalDelta returns the shortest displacement vector from (x1,y1)
// to (x2,y2) on a w-by-h torus.
func ToroidalDelta(x1, y1, x2, y2, w, h float64) (dx, dy float64) {
	return ToroidalDiff(x1, x2, w), ToroidalDiff(y1, y2, h)
}

// ToroidalDist returns the shortest distance between two points on a
// w-by-h torus.
func ToroidalDist(x1, y1, x2, y2, w, h float64) float64 {
	dx, dy := ToroidalDelta(x1, y1, x2, y2, w, h)
	return math.Sqrt(dx*dx + dy*dy)
}

// clamp01 clamps v to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// speedOf returns the magnitude of a velocity vector.
func speedOf(vx, vy float64) float64 {
	return math.Sqrt(vx*vx + vy*vy)
}
