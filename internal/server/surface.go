package server

import (
	"math"
	"sync"
	"time"

	"github.com/ayusman/pinchview/internal/grid"
)

// DefaultFPSInterval is the minimum time between frame rate broadcasts.
const DefaultFPSInterval = time.Second

// Surface is the browser-facing presenter. It keeps the mirror flag, the
// metric text and the frame rate, and pushes changes to live subscribers.
type Surface struct {
	hub         *grid.Hub
	fpsInterval time.Duration
	now         func() time.Time

	mu      sync.RWMutex
	mirror  bool
	metric  string
	fps     float64
	lastFPS time.Time
}

// NewSurface creates a Surface broadcasting on hub. hub may be nil.
func NewSurface(hub *grid.Hub, initialMetric string) *Surface {
	return &Surface{
		hub:         hub,
		fpsInterval: DefaultFPSInterval,
		now:         time.Now,
		metric:      initialMetric,
	}
}

func (s *Surface) broadcast(kind string, data any) {
	if s.hub != nil {
		s.hub.Broadcast(kind, data)
	}
}

// SetMirror sets whether the video surface is flipped horizontally.
func (s *Surface) SetMirror(on bool) {
	s.mu.Lock()
	s.mirror = on
	s.mu.Unlock()
	s.broadcast(grid.TypeMirror, on)
}

// SetMetric sets the displayed metric text. Unchanged text is not rebroadcast.
func (s *Surface) SetMetric(value string) {
	s.mu.Lock()
	changed := s.metric != value
	s.metric = value
	s.mu.Unlock()
	if changed {
		s.broadcast(grid.TypeMetric, value)
	}
}

// SetFPS records the frame rate, broadcasting at most once per interval.
func (s *Surface) SetFPS(fps float64) {
	now := s.now()
	s.mu.Lock()
	s.fps = fps
	due := now.Sub(s.lastFPS) >= s.fpsInterval
	if due {
		s.lastFPS = now
	}
	s.mu.Unlock()
	if due {
		s.broadcast(grid.TypeFPS, math.Round(fps*10)/10)
	}
}

// Mirror returns the mirror flag.
func (s *Surface) Mirror() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror
}

// Metric returns the displayed metric text.
func (s *Surface) Metric() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metric
}

// FPS returns the last reported frame rate.
func (s *Surface) FPS() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fps
}
