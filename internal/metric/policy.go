package metric

import (
	"encoding/json"
	"math"

	"github.com/ayusman/pinchview/internal/detector"
)

// Reading is the displayed gesture metric and where it came from.
type Reading struct {
	Value    string
	Distance float64
	Hand     int
	Label    detector.Handedness
}

// Initial is the reading shown before any hand has been measured.
func Initial() Reading {
	return Reading{Value: Zero, Hand: -1}
}

// Candidate is one hand's measurement within a frame.
type Candidate struct {
	Hand     int
	Label    detector.Handedness
	Distance float64
	// OK is false when the hand had no usable thumb/index pair.
	OK bool
}

// Policy decides the displayed reading from the per-hand candidates of one frame.
type Policy interface {
	// Resolve returns the next reading and whether any candidate was accepted.
	// Candidates arrive in hand iteration order.
	Resolve(current Reading, candidates []Candidate) (Reading, bool)
}

// LastHandWins keeps a single shared value that every measurable hand
// overwrites in turn, so the last one in iteration order decides the frame.
// Hands without a thumb/index pair leave the value untouched.
type LastHandWins struct{}

// Resolve implements Policy.
func (LastHandWins) Resolve(current Reading, candidates []Candidate) (Reading, bool) {
	next := current
	accepted := false
	for _, c := range candidates {
		if !c.OK {
			continue
		}
		next = Reading{
			Value:    ToPercentage(c.Distance),
			Distance: c.Distance,
			Hand:     c.Hand,
			Label:    c.Label,
		}
		accepted = true
	}
	return next, accepted
}

// MarshalJSON writes a non-finite distance as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	var distance *float64
	if !math.IsNaN(r.Distance) && !math.IsInf(r.Distance, 0) {
		distance = &r.Distance
	}
	return json.Marshal(struct {
		Value    string              `json:"value"`
		Distance *float64            `json:"distance"`
		Hand     int                 `json:"hand"`
		Label    detector.Handedness `json:"label"`
	}{r.Value, distance, r.Hand, r.Label})
}
