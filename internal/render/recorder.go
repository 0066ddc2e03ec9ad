package render

import (
	"image/color"
	"sync"

	"github.com/ayusman/pinchview/internal/detector"
	"gocv.io/x/gocv"
)

// Op names a canvas call.
type Op string

// Canvas operations recorded by Recorder.
const (
	OpSave       Op = "save"
	OpRestore    Op = "restore"
	OpClear      Op = "clear"
	OpImage      Op = "image"
	OpConnectors Op = "connectors"
	OpLandmarks  Op = "landmarks"
)

// Command is one recorded canvas call. Radii are resolved at record time so
// commands compare by value.
type Command struct {
	Op          Op
	Points      int
	Connections int
	Color       color.RGBA
	FillColor   color.RGBA
	Radii       []float64
}

// Recorder is a Canvas that records calls instead of drawing.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	depth    int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, c)
}

// Save implements Canvas.
func (r *Recorder) Save() {
	r.mu.Lock()
	r.depth++
	r.mu.Unlock()
	r.record(Command{Op: OpSave})
}

// Restore implements Canvas.
func (r *Recorder) Restore() {
	r.mu.Lock()
	r.depth--
	r.mu.Unlock()
	r.record(Command{Op: OpRestore})
}

// Clear implements Canvas.
func (r *Recorder) Clear() {
	r.record(Command{Op: OpClear})
}

// DrawImage implements Canvas.
func (r *Recorder) DrawImage(img *gocv.Mat) {
	r.record(Command{Op: OpImage})
}

// DrawConnectors implements Canvas.
func (r *Recorder) DrawConnectors(points detector.Landmarks, connections []detector.Connection, style Style) {
	r.record(Command{
		Op:          OpConnectors,
		Points:      len(points),
		Connections: len(connections),
		Color:       style.Color,
	})
}

// DrawLandmarks implements Canvas.
func (r *Recorder) DrawLandmarks(points detector.Landmarks, style Style) {
	radii := make([]float64, len(points))
	for i, p := range points {
		radii[i] = style.radius(p)
	}
	r.record(Command{
		Op:        OpLandmarks,
		Points:    len(points),
		Color:     style.Color,
		FillColor: style.FillColor,
		Radii:     radii,
	})
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Count returns how many commands of the given op were recorded.
func (r *Recorder) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.commands {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Depth returns the current Save nesting. A balanced frame leaves it at zero.
func (r *Recorder) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.depth
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
	r.depth = 0
}
