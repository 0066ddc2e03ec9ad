package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Message kinds understood by the MediaPipe service.
const (
	kindFrame   byte = 'F'
	kindOptions byte = 'O'
)

// DefaultIdleTimeout is how long the Python process may sit unused before it is stopped.
const DefaultIdleTimeout = 30 * time.Second

// MediaPipeConfig locates the Python service.
type MediaPipeConfig struct {
	// Script is the path to mediapipe_service.py. Empty means search the usual places.
	Script string `yaml:"script"`
	// Python is the interpreter. Empty means a venv interpreter if one exists, else python3.
	Python string `yaml:"python"`
	// IdleTimeout stops the subprocess after this much inactivity.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// MediaPipeEngine implements Engine using a Python MediaPipe subprocess.
//
// Wire format, per request: one kind byte, a 4-byte big-endian length, then
// the payload (JPEG for frames, JSON for options). The service answers every
// request with a single JSON line.
type MediaPipeEngine struct {
	config    MediaPipeConfig
	script    string
	options   Options
	handler   ResultHandler
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	closed    bool
	idleTimer *time.Timer
	idleGen   uint64
}

// NewMediaPipeEngine creates a new MediaPipe engine.
// The Python process is started lazily on the first frame.
func NewMediaPipeEngine(config MediaPipeConfig, opts Options) (*MediaPipeEngine, error) {
	script := config.Script
	if script == "" {
		script = findMediaPipeScript()
	}
	if script == "" {
		return nil, fmt.Errorf("mediapipe_service.py not found")
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}

	return &MediaPipeEngine{
		config:  config,
		script:  script,
		options: opts,
	}, nil
}

// OnResults registers the result handler.
func (e *MediaPipeEngine) OnResults(fn ResultHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = fn
}

// Topology returns MediaPipe's hand topology.
func (e *MediaPipeEngine) Topology() Topology {
	return HandTopology
}

// Send runs inference on frame and hands the result to the registered handler.
func (e *MediaPipeEngine) Send(ctx context.Context, frame *gocv.Mat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if frame == nil || frame.Empty() {
		return fmt.Errorf("send frame: empty frame")
	}

	e.mu.Lock()
	res, err := e.detect(frame)
	handler := e.handler
	e.mu.Unlock()
	if err != nil {
		return err
	}

	res.Image = frame
	if handler != nil {
		handler(res)
	}
	return nil
}

// SetOptions forwards the options to the running service. When the service is
// not running yet they are applied at start.
func (e *MediaPipeEngine) SetOptions(opts Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.options = opts
	if !e.started {
		return nil
	}
	return e.writeOptions()
}

// Close shuts down the Python process.
func (e *MediaPipeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return e.shutdown()
}

func (e *MediaPipeEngine) detect(frame *gocv.Mat) (*FrameResult, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	if err := e.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := e.writeMessage(kindFrame, buf.GetBytes()); err != nil {
		return nil, err
	}

	line, err := e.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response jsonResult
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	e.resetIdleTimer()
	return response.toFrameResult(), nil
}

func (e *MediaPipeEngine) writeOptions() error {
	data, err := json.Marshal(e.options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	if err := e.writeMessage(kindOptions, data); err != nil {
		return err
	}

	line, err := e.stdout.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read options ack: %w", err)
	}
	var ack struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(line, &ack); err != nil {
		return fmt.Errorf("parse options ack: %w", err)
	}
	if !ack.OK {
		return fmt.Errorf("service rejected options: %s", ack.Error)
	}
	return nil
}

func (e *MediaPipeEngine) writeMessage(kind byte, payload []byte) error {
	header := make([]byte, 5)
	header[0] = kind
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))

	if _, err := e.stdin.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := e.stdin.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

func (e *MediaPipeEngine) ensureStarted() error {
	if e.started {
		return nil
	}

	pythonPath := e.config.Python
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	e.cmd = exec.Command(pythonPath, e.script)

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	e.cmd.Stderr = os.Stderr

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	e.stdin = stdin
	e.stdout = bufio.NewReader(stdout)
	e.started = true

	// The service starts with its own defaults; bring it in line with ours.
	if err := e.writeOptions(); err != nil {
		e.shutdown()
		return fmt.Errorf("configure mediapipe service: %w", err)
	}

	return nil
}

func (e *MediaPipeEngine) shutdown() error {
	if !e.started {
		return nil
	}

	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}

	if e.stdin != nil {
		e.stdin.Close()
	}

	err := e.cmd.Wait()
	e.started = false
	e.cmd = nil
	e.stdin = nil
	e.stdout = nil

	return err
}

func (e *MediaPipeEngine) resetIdleTimer() {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.idleGen++
	gen := e.idleGen
	e.idleTimer = time.AfterFunc(e.config.IdleTimeout, func() {
		e.idleExpired(gen)
	})
}

// idleExpired stops the service unless a frame was handled after the timer
// for gen was armed.
func (e *MediaPipeEngine) idleExpired(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.idleGen {
		return
	}
	e.shutdown()
}

func findMediaPipeScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".pinchview/scripts/mediapipe_service.py"),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".pinchview/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonResult is the JSON structure emitted by the Python service for a frame.
type jsonResult struct {
	Hands      [][]Point3D `json:"hands"`
	Handedness []jsonClass `json:"handedness"`
	WorldHands [][]Point3D `json:"world_hands"`
}

type jsonClass struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// toFrameResult converts the wire form, keeping absent fields nil. Labels the
// engine should never send become the zero Handedness.
func (r jsonResult) toFrameResult() *FrameResult {
	res := &FrameResult{}

	if r.Hands != nil {
		res.Hands = make([]Landmarks, len(r.Hands))
		for i, h := range r.Hands {
			res.Hands[i] = Landmarks(h)
		}
	}

	if r.Handedness != nil {
		res.Handedness = make([]Classification, len(r.Handedness))
		for i, c := range r.Handedness {
			label, _ := ParseHandedness(c.Label)
			res.Handedness[i] = Classification{Label: label, Score: c.Score}
		}
	}

	if r.WorldHands != nil {
		res.WorldHands = make([]Landmarks, len(r.WorldHands))
		for i, h := range r.WorldHands {
			res.WorldHands[i] = Landmarks(h)
		}
	}

	return res
}
