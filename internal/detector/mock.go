package detector

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// MockEngine is a test implementation of the Engine interface.
// It allows tests to control the results handed to the registered handler.
type MockEngine struct {
	mu       sync.Mutex
	handler  ResultHandler
	result   *FrameResult
	err      error
	topology Topology
	sent     int
	options  []Options
	closed   bool
}

// NewMockEngine creates a MockEngine reporting MediaPipe's topology.
func NewMockEngine() *MockEngine {
	return &MockEngine{topology: HandTopology}
}

// SetResult sets the result delivered for every sent frame. The frame itself
// is attached as the result's Image.
func (m *MockEngine) SetResult(res *FrameResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = res
}

// SetError sets the error returned by Send and SetOptions.
func (m *MockEngine) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetTopology overrides the reported topology.
func (m *MockEngine) SetTopology(t Topology) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topology = t
}

// OnResults registers the result handler.
func (m *MockEngine) OnResults(fn ResultHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
}

// Send delivers the configured result to the handler.
func (m *MockEngine) Send(ctx context.Context, frame *gocv.Mat) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrEngineClosed
	}
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return err
	}
	m.sent++
	handler := m.handler
	res := &FrameResult{}
	if m.result != nil {
		*res = *m.result
	}
	m.mu.Unlock()

	res.Image = frame
	if handler != nil {
		handler(res)
	}
	return nil
}

// SetOptions records the options.
func (m *MockEngine) SetOptions(opts Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.options = append(m.options, opts)
	return nil
}

// Options returns every options value received, in order.
func (m *MockEngine) Options() []Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Options, len(m.options))
	copy(out, m.options)
	return out
}

// Sent returns the number of frames delivered.
func (m *MockEngine) Sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// Topology returns the configured topology.
func (m *MockEngine) Topology() Topology {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.topology
}

// Close marks the engine closed.
func (m *MockEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// OpenPalmLandmarks returns a right hand with all fingers extended, in
// normalized screen coordinates. Thumb and index tips are far apart.
func OpenPalmLandmarks() Landmarks {
	points := make(Landmarks, NumLandmarks)

	points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return points
}

// PinchLandmarks returns an open palm whose index fingertip sits gap units
// (normalized) to the right of the thumb tip, at the same height and depth.
func PinchLandmarks(gap float64) Landmarks {
	points := OpenPalmLandmarks()
	thumb := points[ThumbTip]
	points[IndexTip] = Point3D{X: thumb.X + gap, Y: thumb.Y, Z: thumb.Z}
	return points
}

// WorldLandmarks returns a metric-space hand: the screen fixture recentred on
// the wrist and scaled to roughly ten centimetres.
func WorldLandmarks() Landmarks {
	screen := OpenPalmLandmarks()
	wrist := screen[Wrist]
	points := make(Landmarks, len(screen))
	for i, p := range screen {
		points[i] = Point3D{
			X: (p.X - wrist.X) * 0.2,
			Y: (p.Y - wrist.Y) * 0.2,
			Z: (p.Z - wrist.Z) * 0.2,
		}
	}
	return points
}
