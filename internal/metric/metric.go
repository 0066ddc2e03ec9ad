// Package metric turns the thumb/index fingertip pair of a hand into the pinch
// percentage used as a control value.
package metric

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ayusman/pinchview/internal/detector"
)

const (
	// axisScale multiplies each coordinate difference before the distance is taken.
	axisScale = 100.0
	// deadZone is the distance at or below which the metric reads 0%.
	deadZone = 2.0
	// fullScale is the distance that maps to 100%.
	fullScale = 4.0
)

// Zero is the displayed value for a closed pinch or an unusable distance.
const Zero = "0%"

// Mode selects how the fingertip distance is computed.
type Mode int

const (
	// ModeEuclidean is the scaled 3-axis Euclidean distance.
	ModeEuclidean Mode = iota
	// ModeLegacyXOR reproduces the browser viewer's XOR-folded distance.
	ModeLegacyXOR
)

// ParseMode accepts "euclidean" and "legacy_xor". The empty string is euclidean.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "euclidean":
		return ModeEuclidean, nil
	case "legacy_xor":
		return ModeLegacyXOR, nil
	default:
		return 0, fmt.Errorf("unknown distance mode %q", s)
	}
}

func (m Mode) String() string {
	if m == ModeLegacyXOR {
		return "legacy_xor"
	}
	return "euclidean"
}

// Distance is sqrt(Σ (100·Δc)²) over x, y and z.
func Distance(p1, p2 detector.Point3D) float64 {
	dx := axisScale * (p1.X - p2.X)
	dy := axisScale * (p1.Y - p2.Y)
	dz := axisScale * (p1.Z - p2.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// LegacyDistance folds the three scaled differences as acc = int32(acc+d) XOR 2,
// starting from zero, and returns sqrt(acc). This is what the browser viewer
// computed; the result is NaN whenever the fold ends negative.
func LegacyDistance(p1, p2 detector.Point3D) float64 {
	diffs := [3]float64{
		axisScale * (p1.X - p2.X),
		axisScale * (p1.Y - p2.Y),
		axisScale * (p1.Z - p2.Z),
	}

	var acc int32
	for _, d := range diffs {
		acc = toInt32(float64(acc)+d) ^ 2
	}
	return math.Sqrt(float64(acc))
}

// toInt32 applies ECMAScript ToInt32: truncate, wrap modulo 2^32, reinterpret as signed.
func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 1<<32)
	if m < 0 {
		m += 1 << 32
	}
	return int32(uint32(m))
}

// ToPercentage maps a distance to the displayed control value.
// NaN and anything at or below 2 read "0%"; above that the value grows by 25
// points per unit and is clamped at 100%.
func ToPercentage(distance float64) string {
	if math.IsNaN(distance) || distance <= deadZone {
		return Zero
	}
	pct := math.Min(math.Floor(100.0/fullScale*distance), 100)
	return strconv.Itoa(int(pct)) + "%"
}

// Calculator measures the pinch of a single hand.
type Calculator struct {
	Mode Mode
}

// Distance computes the distance between two points using the calculator's mode.
func (c Calculator) Distance(p1, p2 detector.Point3D) float64 {
	if c.Mode == ModeLegacyXOR {
		return LegacyDistance(p1, p2)
	}
	return Distance(p1, p2)
}

// Measure returns the pinch distance of hand. ok is false when the thumb tip
// or the index fingertip named by topo is missing.
func (c Calculator) Measure(hand detector.Landmarks, topo detector.Topology) (float64, bool) {
	thumb, ok := hand.At(topo.ThumbTip)
	if !ok {
		return 0, false
	}
	index, ok := hand.At(topo.IndexTip)
	if !ok {
		return 0, false
	}
	return c.Distance(thumb, index), true
}

// ParsePercentage reads a value produced by ToPercentage back into 0..100.
func ParsePercentage(value string) (int, error) {
	s, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0, fmt.Errorf("not a percentage: %q", value)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 100 {
		return 0, fmt.Errorf("not a percentage: %q", value)
	}
	return n, nil
}
