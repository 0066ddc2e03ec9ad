// Package aggregate flattens per-hand world landmarks into the single
// landmark/connection/color-group structure the 3D grid draws.
package aggregate

import (
	"fmt"

	"github.com/ayusman/pinchview/internal/detector"
)

// OffsetMode selects how a hand's edges are shifted into the flat landmark list.
type OffsetMode int

const (
	// OffsetByLandmarks shifts hand i's edges by the number of landmarks
	// flattened before it, so every edge points at its own hand's points.
	OffsetByLandmarks OffsetMode = iota
	// OffsetByConnections shifts hand i's edges by i times the edge count, as
	// the browser viewer did. It only lines up when a hand has as many edges
	// as landmarks.
	OffsetByConnections
)

// ParseOffsetMode accepts "landmarks" and "connections". The empty string is landmarks.
func ParseOffsetMode(s string) (OffsetMode, error) {
	switch s {
	case "", "landmarks":
		return OffsetByLandmarks, nil
	case "connections":
		return OffsetByConnections, nil
	default:
		return 0, fmt.Errorf("unknown offset mode %q", s)
	}
}

func (m OffsetMode) String() string {
	if m == OffsetByConnections {
		return "connections"
	}
	return "landmarks"
}

// ColorGroup tags a set of edges, by position in Result.Connections, with the
// handedness used to color them.
type ColorGroup struct {
	List  []int               `json:"list"`
	Label detector.Handedness `json:"color"`
}

// Result is one frame's worth of grid input.
type Result struct {
	Landmarks   []detector.Point3D    `json:"landmarks"`
	Connections []detector.Connection `json:"connections"`
	Groups      []ColorGroup          `json:"colors"`
}

// Empty reports whether the result carries no landmarks.
func (r Result) Empty() bool {
	return len(r.Landmarks) == 0
}

// Aggregate flattens world hands. Only hands with a handedness entry are
// included; a frame whose sequences disagree in length is cut to the shorter.
func Aggregate(world []detector.Landmarks, handedness []detector.Classification, topo detector.Topology, mode OffsetMode) Result {
	n := len(world)
	if len(handedness) < n {
		n = len(handedness)
	}

	edges := len(topo.Connections)
	res := Result{
		Landmarks:   make([]detector.Point3D, 0, n*topo.NumLandmarks),
		Connections: make([]detector.Connection, 0, n*edges),
		Groups:      make([]ColorGroup, 0, n),
	}

	pointBase := 0
	for i := 0; i < n; i++ {
		res.Landmarks = append(res.Landmarks, world[i]...)

		offset := pointBase
		if mode == OffsetByConnections {
			offset = i * edges
		}

		edgeBase := len(res.Connections)
		group := ColorGroup{
			List:  make([]int, edges),
			Label: handedness[i].Label,
		}
		for j, c := range topo.Connections {
			res.Connections = append(res.Connections, detector.Connection{
				From: c.From + offset,
				To:   c.To + offset,
			})
			group.List[j] = edgeBase + j
		}
		res.Groups = append(res.Groups, group)

		pointBase += len(world[i])
	}

	return res
}
