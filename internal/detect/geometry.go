// Package detect implements the four behavioral detectors. Each one is a
// pure function of its own landmark view plus whatever per-session state it
// carries; no detector reads another detector's output.
package detect

import (
	"math"

	"interview-backend/internal/vision"
)

func dist(a, b vision.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Hypot(dx, dy)
}

func midpoint(a, b vision.Point) vision.Point {
	return vision.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: (a.Z + b.Z) / 2}
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// verticalAngle returns the absolute deviation, in degrees, of the vector
// from -> to against the image vertical. Image Y grows downward, so "to"
// sitting straight above "from" yields zero.
func verticalAngle(from, to vision.Point) float64 {
	dx := to.X - from.X
	dy := from.Y - to.Y
	if dy <= 0 {
		// Target is level with or below the origin; treat as fully bent.
		return 90
	}
	return math.Abs(degrees(math.Atan2(dx, dy)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
