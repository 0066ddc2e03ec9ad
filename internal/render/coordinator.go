package render

import (
	"image/color"

	"github.com/ayusman/pinchview/internal/detector"
)

// Handedness colors. The skeleton and the dot fill swap per hand.
var (
	Green = color.RGBA{R: 0x00, G: 0xFF, B: 0x00, A: 0xFF}
	Red   = color.RGBA{R: 0xFF, G: 0x00, B: 0x00, A: 0xFF}
)

// Colors returns the skeleton and fill colors for a hand. Anything that is
// not a right hand is drawn as a left hand.
func Colors(label detector.Handedness) (edge, fill color.RGBA) {
	if label == detector.Right {
		return Green, Red
	}
	return Red, Green
}

// Coordinator draws one hand at a time onto a canvas.
type Coordinator struct {
	canvas   Canvas
	topology detector.Topology
}

// NewCoordinator creates a Coordinator drawing the given topology onto canvas.
func NewCoordinator(canvas Canvas, topology detector.Topology) *Coordinator {
	return &Coordinator{canvas: canvas, topology: topology}
}

// Canvas returns the surface the coordinator draws on.
func (c *Coordinator) Canvas() Canvas {
	return c.canvas
}

// Draw renders hand's skeleton and landmarks. Drawing state is saved before
// and restored after, so nothing leaks into the next hand.
func (c *Coordinator) Draw(hand detector.Landmarks, label detector.Handedness) {
	edge, fill := Colors(label)

	c.canvas.Save()
	defer c.canvas.Restore()

	c.canvas.DrawConnectors(hand, c.topology.Connections, Style{Color: edge})
	c.canvas.DrawLandmarks(hand, Style{
		Color:     edge,
		FillColor: fill,
		Radius:    DepthRadius,
	})
}
