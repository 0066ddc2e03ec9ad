// Package plugin discovers and runs the external programs that act on the
// control value.
package plugin

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Well-known actions.
const (
	// ActionSetVolume sets the output volume to VolumeParams.Percent.
	ActionSetVolume = "set-volume"
)

// Manifest describes a plugin, read from its plugin.json.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is written to the plugin's stdin as one JSON document.
type Request struct {
	Action string          `json:"action"`
	Source string          `json:"source,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// VolumeParams are the params of ActionSetVolume.
type VolumeParams struct {
	Percent int `json:"percent"`
}

// NewVolumeRequest builds a set-volume request. percent must be in [0, 100].
func NewVolumeRequest(percent int, source string) (*Request, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("volume percent out of range: %d", percent)
	}
	params, err := json.Marshal(VolumeParams{Percent: percent})
	if err != nil {
		return nil, err
	}
	return &Request{
		Action: ActionSetVolume,
		Source: source,
		Params: params,
	}, nil
}

// Plugin is a discovered plugin and where it lives.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Supports reports whether the manifest lists action.
func (p *Plugin) Supports(action string) bool {
	return slices.Contains(p.Manifest.Actions, action)
}
