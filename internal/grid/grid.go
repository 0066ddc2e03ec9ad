// Package grid feeds the 3D landmark grid shown in the browser.
package grid

import (
	"github.com/ayusman/pinchview/internal/aggregate"
	"github.com/ayusman/pinchview/internal/detector"
)

// Widget is the 3D visualization boundary.
type Widget interface {
	// UpdateLandmarks replaces the displayed point cloud. Edges in groups
	// index into connections.
	UpdateLandmarks(landmarks []detector.Point3D, connections []detector.Connection, groups []aggregate.ColorGroup)
	// Clear empties the grid.
	Clear()
}

// NamedColor pairs a color group label with an RGB value.
type NamedColor struct {
	Name  string `yaml:"name" json:"name"`
	Value uint32 `yaml:"value" json:"value"`
}

// Config holds the options the browser grid is created with.
type Config struct {
	ConnectionColor uint32       `yaml:"connection_color" json:"connectionColor"`
	DefinedColors   []NamedColor `yaml:"defined_colors" json:"definedColors"`
	Range           float64      `yaml:"range" json:"range"`
	FitToGrid       bool         `yaml:"fit_to_grid" json:"fitToGrid"`
	LabelSuffix     string       `yaml:"label_suffix" json:"labelSuffix"`
	LandmarkSize    float64      `yaml:"landmark_size" json:"landmarkSize"`
	NumCellsPerAxis int          `yaml:"num_cells_per_axis" json:"numCellsPerAxis"`
	ShowHidden      bool         `yaml:"show_hidden" json:"showHidden"`
	Centered        bool         `yaml:"centered" json:"centered"`
}

// DefaultConfig returns the grid options of the stock viewer.
func DefaultConfig() Config {
	return Config{
		ConnectionColor: 0xCCCCCC,
		DefinedColors: []NamedColor{
			{Name: detector.Left.String(), Value: 0xffa500},
			{Name: detector.Right.String(), Value: 0x00ffff},
		},
		Range:           0.2,
		FitToGrid:       false,
		LabelSuffix:     "m",
		LandmarkSize:    2,
		NumCellsPerAxis: 4,
		ShowHidden:      false,
		Centered:        false,
	}
}

// Recorder is a Widget that keeps every call, for tests.
type Recorder struct {
	Updates []aggregate.Result
	Clears  int
}

// UpdateLandmarks implements Widget.
func (r *Recorder) UpdateLandmarks(landmarks []detector.Point3D, connections []detector.Connection, groups []aggregate.ColorGroup) {
	r.Updates = append(r.Updates, aggregate.Result{
		Landmarks:   landmarks,
		Connections: connections,
		Groups:      groups,
	})
}

// Clear implements Widget.
func (r *Recorder) Clear() {
	r.Clears++
}
