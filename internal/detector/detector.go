package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrEngineClosed is returned when a frame or option update reaches a closed engine.
var ErrEngineClosed = errors.New("engine is closed")

// FrameResult is produced by an engine once per processed frame.
// A nil slice means the engine did not report that field for the frame.
type FrameResult struct {
	Image      *gocv.Mat
	Hands      []Landmarks
	Handedness []Classification
	WorldHands []Landmarks
}

// Validate checks that the three per-hand sequences line up and do not exceed
// maxHands. Consumers log the error and keep going.
func (r *FrameResult) Validate(maxHands int) error {
	if r == nil {
		return errors.New("nil frame result")
	}
	n := len(r.Handedness)
	if r.Hands != nil && len(r.Hands) != n {
		return fmt.Errorf("hands/handedness length mismatch: %d != %d", len(r.Hands), n)
	}
	if r.WorldHands != nil && len(r.WorldHands) != n {
		return fmt.Errorf("world hands/handedness length mismatch: %d != %d", len(r.WorldHands), n)
	}
	if maxHands > 0 && n > maxHands {
		return fmt.Errorf("%d hands exceeds max of %d", n, maxHands)
	}
	return nil
}

// ResultHandler receives every FrameResult an engine produces, synchronously.
type ResultHandler func(*FrameResult)

// Engine is the hand-pose inference boundary.
type Engine interface {
	// OnResults registers the handler invoked for every result.
	OnResults(fn ResultHandler)

	// Send pushes a frame for inference. The registered handler runs before
	// Send returns.
	Send(ctx context.Context, frame *gocv.Mat) error

	// SetOptions reconfigures the engine.
	SetOptions(opts Options) error

	// Topology returns the engine's fixed hand description.
	Topology() Topology

	// Close releases any resources held by the engine.
	Close() error
}

// ModelComplexity selects the landmark model variant.
type ModelComplexity int

const (
	// ModelLite is the smaller, faster landmark model.
	ModelLite ModelComplexity = 0
	// ModelFull is the full landmark model.
	ModelFull ModelComplexity = 1
)

// String returns "Lite" or "Full".
func (m ModelComplexity) String() string {
	if m == ModelLite {
		return "Lite"
	}
	return "Full"
}

// UnmarshalJSON accepts either the numeric form (0, 1) or "Lite"/"Full".
func (m *ModelComplexity) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*m = ModelComplexity(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("model complexity: %w", err)
	}
	switch s {
	case "Lite":
		*m = ModelLite
	case "Full":
		*m = ModelFull
	default:
		return fmt.Errorf("unknown model complexity %q", s)
	}
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for config files.
func (m *ModelComplexity) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return m.UnmarshalJSON(b)
}

// Options holds the control-panel settings pushed to the engine.
type Options struct {
	SelfieMode             bool            `json:"selfieMode" yaml:"selfie_mode"`
	MaxNumHands            int             `json:"maxNumHands" yaml:"max_num_hands"`
	ModelComplexity        ModelComplexity `json:"modelComplexity" yaml:"model_complexity"`
	MinDetectionConfidence float64         `json:"minDetectionConfidence" yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64         `json:"minTrackingConfidence" yaml:"min_tracking_confidence"`
}

// DefaultOptions returns the control panel's initial state.
func DefaultOptions() Options {
	return Options{
		SelfieMode:             true,
		MaxNumHands:            2,
		ModelComplexity:        ModelFull,
		MinDetectionConfidence: 0.75,
		MinTrackingConfidence:  0.75,
	}
}

// Validate checks every field against the ranges the control panel offers.
func (o Options) Validate() error {
	if o.MaxNumHands < 1 || o.MaxNumHands > 4 {
		return fmt.Errorf("maxNumHands must be between 1 and 4, got %d", o.MaxNumHands)
	}
	if o.ModelComplexity != ModelLite && o.ModelComplexity != ModelFull {
		return fmt.Errorf("modelComplexity must be Lite (0) or Full (1), got %d", o.ModelComplexity)
	}
	if o.MinDetectionConfidence < 0 || o.MinDetectionConfidence > 1 {
		return fmt.Errorf("minDetectionConfidence must be between 0 and 1, got %f", o.MinDetectionConfidence)
	}
	if o.MinTrackingConfidence < 0 || o.MinTrackingConfidence > 1 {
		return fmt.Errorf("minTrackingConfidence must be between 0 and 1, got %f", o.MinTrackingConfidence)
	}
	return nil
}
