// Package detector defines the hand-tracking inference boundary: landmark types,
// the frame result handed to consumers, and the engines that produce them.
package detector

import (
	"encoding/json"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite reports whether all three coordinates are real numbers.
func (p Point3D) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// Landmarks is one hand's ordered landmark sequence. Engines normally emit
// NumLandmarks points, but a short slice is tolerated by every consumer.
type Landmarks []Point3D

// At returns the landmark at index i and whether it is defined.
func (l Landmarks) At(i int) (Point3D, bool) {
	if i < 0 || i >= len(l) {
		return Point3D{}, false
	}
	p := l[i]
	if !p.Finite() {
		return Point3D{}, false
	}
	return p, true
}

// Handedness classifies a tracked hand. The zero value is not a valid label.
type Handedness uint8

const (
	// Left is a left hand as reported by the engine.
	Left Handedness = iota + 1
	// Right is a right hand as reported by the engine.
	Right
)

// ParseHandedness converts the engine's label into a Handedness.
func ParseHandedness(s string) (Handedness, error) {
	switch s {
	case "Left":
		return Left, nil
	case "Right":
		return Right, nil
	default:
		return 0, fmt.Errorf("unknown handedness %q", s)
	}
}

// String returns "Left", "Right" or "Unknown".
func (h Handedness) String() string {
	switch h {
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return "Unknown"
	}
}

// Valid reports whether h is one of the two variants.
func (h Handedness) Valid() bool {
	return h == Left || h == Right
}

// MarshalText encodes the label as its string form.
func (h Handedness) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes "Left" or "Right".
func (h *Handedness) UnmarshalText(b []byte) error {
	v, err := ParseHandedness(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// Classification is one hand's handedness with the engine's confidence.
type Classification struct {
	Label Handedness `json:"label"`
	Score float64    `json:"score"`
}

// Connection is a skeleton edge between two landmark indices.
type Connection struct {
	From int
	To   int
}

// MarshalJSON encodes the edge as a two element array, the shape the grid
// widget consumes.
func (c Connection) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.From, c.To})
}

// UnmarshalJSON decodes a two element array.
func (c *Connection) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	c.From, c.To = pair[0], pair[1]
	return nil
}

// Topology is the engine-supplied description of one hand: how many landmarks
// it has, which of them are the thumb and index fingertips, and how they are
// connected.
type Topology struct {
	Connections  []Connection
	NumLandmarks int
	ThumbTip     int
	IndexTip     int
}

// HandTopology is MediaPipe's 21-point hand with its 21 skeleton edges.
var HandTopology = Topology{
	Connections: []Connection{
		{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
		{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
		{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
		{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
		{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
	},
	NumLandmarks: NumLandmarks,
	ThumbTip:     ThumbTip,
	IndexTip:     IndexTip,
}
