// Command system-control is a pinchview plugin that drives the system mixer.
// It reads one request from stdin and writes one response to stdout.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Request is the plugin input.
type Request struct {
	Action string          `json:"action"`
	Source string          `json:"source,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the plugin output.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type volumeParams struct {
	Percent *int `json:"percent"`
}

type actionHandler func(params json.RawMessage) error

var actionHandlers = map[string]actionHandler{
	"set-volume":  setVolume,
	"volume-mute": func(json.RawMessage) error { return toggleMute() },
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeResponse(Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	if err := handler(req.Params); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)})
		return
	}
	writeResponse(Response{Success: true})
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, string(output))
	}
	return nil
}

func setVolume(raw json.RawMessage) error {
	var p volumeParams
	if len(raw) == 0 {
		return errors.New("missing params")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("bad params: %w", err)
	}
	if p.Percent == nil {
		return errors.New("missing percent")
	}
	percent := *p.Percent
	if percent < 0 || percent > 100 {
		return fmt.Errorf("percent out of range: %d", percent)
	}

	switch runtime.GOOS {
	case "darwin":
		return run("osascript", "-e", "set volume output volume "+strconv.Itoa(percent))
	case "linux":
		return run("amixer", "-q", "set", "Master", strconv.Itoa(percent)+"%")
	default:
		return fmt.Errorf("set-volume is not supported on %s", runtime.GOOS)
	}
}

func toggleMute() error {
	switch runtime.GOOS {
	case "darwin":
		return run("osascript", "-e", "set volume output muted (not (output muted of (get volume settings)))")
	case "linux":
		return run("amixer", "-q", "set", "Master", "toggle")
	default:
		return fmt.Errorf("volume-mute is not supported on %s", runtime.GOOS)
	}
}
