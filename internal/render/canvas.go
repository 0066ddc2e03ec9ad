// Package render draws hand skeleton overlays onto a 2D canvas.
package render

import (
	"image/color"

	"github.com/ayusman/pinchview/internal/detector"
	"gocv.io/x/gocv"
)

// Canvas is the 2D drawing surface. Points are in normalized frame
// coordinates; the canvas scales them to its own size.
type Canvas interface {
	// Save pushes the current drawing state.
	Save()
	// Restore pops the state pushed by the matching Save.
	Restore()
	// Clear erases the surface.
	Clear()
	// DrawImage paints img scaled to fill the surface. A nil or empty image is ignored.
	DrawImage(img *gocv.Mat)
	// DrawConnectors draws a line for every connection between points.
	DrawConnectors(points detector.Landmarks, connections []detector.Connection, style Style)
	// DrawLandmarks draws a dot for every point.
	DrawLandmarks(points detector.Landmarks, style Style)
}

// RadiusFunc sizes a landmark dot.
type RadiusFunc func(p detector.Point3D) float64

// Style carries the per-call drawing parameters.
type Style struct {
	Color     color.RGBA
	FillColor color.RGBA
	LineWidth int
	Radius    RadiusFunc
}

// Default style values used when a Style leaves them unset.
const (
	DefaultLineWidth = 4
	DefaultRadius    = 6
)

func (s Style) lineWidth() int {
	if s.LineWidth <= 0 {
		return DefaultLineWidth
	}
	return s.LineWidth
}

func (s Style) radius(p detector.Point3D) float64 {
	if s.Radius == nil {
		return DefaultRadius
	}
	return s.Radius(p)
}

// Lerp maps x from [inLow, inHigh] to [outLow, outHigh]. The interpolation
// parameter is clamped to [0, 1], so the result never leaves the output range.
func Lerp(x, inLow, inHigh, outLow, outHigh float64) float64 {
	if inHigh == inLow {
		return outLow
	}
	t := (x - inLow) / (inHigh - inLow)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return outLow + (outHigh-outLow)*t
}

// Depth range of a landmark near the camera and the dot radii it maps to.
const (
	nearZ      = -0.15
	farZ       = 0.1
	nearRadius = 10
	farRadius  = 1
)

// DepthRadius makes nearer landmarks render larger.
func DepthRadius(p detector.Point3D) float64 {
	return Lerp(p.Z, nearZ, farZ, nearRadius, farRadius)
}
