package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

const (
	fakeServiceEnv = "PINCHVIEW_FAKE_MEDIAPIPE"
	fakeLogEnv     = "PINCHVIEW_FAKE_MEDIAPIPE_LOG"
)

// TestMain lets the test binary stand in for the Python service when the
// engine under test launches it.
func TestMain(m *testing.M) {
	if os.Getenv(fakeServiceEnv) == "1" {
		os.Exit(runFakeService(os.Stdin, os.Stdout, os.Getenv(fakeLogEnv)))
	}
	os.Exit(m.Run())
}

// runFakeService speaks the service framing. Options asking for more than two
// hands are rejected; every frame yields one right hand and no world landmarks.
func runFakeService(in io.Reader, out io.Writer, logPath string) int {
	r := bufio.NewReader(in)
	for {
		header := make([]byte, 5)
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF {
				return 0
			}
			return 1
		}
		payload := make([]byte, binary.BigEndian.Uint32(header[1:]))
		if _, err := io.ReadFull(r, payload); err != nil {
			return 1
		}

		entry := string(header[0])
		if header[0] == kindOptions {
			entry += " " + string(payload)
		}
		if err := appendLine(logPath, entry); err != nil {
			return 1
		}

		switch header[0] {
		case kindOptions:
			var opts Options
			if err := json.Unmarshal(payload, &opts); err != nil {
				fmt.Fprintf(out, "{\"ok\":false,\"error\":%q}\n", err.Error())
				continue
			}
			if opts.MaxNumHands > 2 {
				fmt.Fprintln(out, `{"ok":false,"error":"too many hands"}`)
				continue
			}
			fmt.Fprintln(out, `{"ok":true}`)
		case kindFrame:
			reply := map[string]any{
				"hands":      []Landmarks{PinchLandmarks(0.032)},
				"handedness": []jsonClass{{Label: "Right", Score: 0.97}},
			}
			if err := json.NewEncoder(out).Encode(reply); err != nil {
				return 1
			}
		default:
			fmt.Fprintln(out, `{"error":"unknown message kind"}`)
		}
	}
}

func appendLine(path, line string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, line)
	return err
}

func readServiceLog(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read service log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func newFakeEngine(t *testing.T, opts Options, idle time.Duration) (*MediaPipeEngine, string) {
	t.Helper()

	logPath := filepath.Join(t.TempDir(), "service.log")
	t.Setenv(fakeServiceEnv, "1")
	t.Setenv(fakeLogEnv, logPath)

	engine, err := NewMediaPipeEngine(MediaPipeConfig{
		Python:      os.Args[0],
		Script:      "fake-mediapipe-service",
		IdleTimeout: idle,
	}, opts)
	if err != nil {
		t.Fatalf("NewMediaPipeEngine() error = %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine, logPath
}

func sendBlankFrame(t *testing.T, engine *MediaPipeEngine) error {
	t.Helper()
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	return engine.Send(context.Background(), &frame)
}

func optionsEntry(t *testing.T, line string) Options {
	t.Helper()
	if !strings.HasPrefix(line, "O ") {
		t.Fatalf("log entry %q is not an options message", line)
	}
	var opts Options
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "O ")), &opts); err != nil {
		t.Fatalf("decode options entry: %v", err)
	}
	return opts
}

func (e *MediaPipeEngine) running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

func TestMediaPipeEngine_Send(t *testing.T) {
	engine, logPath := newFakeEngine(t, DefaultOptions(), time.Hour)

	var got *FrameResult
	engine.OnResults(func(res *FrameResult) { got = res })

	if lines := readServiceLog(t, logPath); len(lines) != 0 {
		t.Fatalf("service started before the first frame: %v", lines)
	}

	if err := sendBlankFrame(t, engine); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	t.Run("options are pushed before the first frame", func(t *testing.T) {
		lines := readServiceLog(t, logPath)
		if len(lines) != 2 {
			t.Fatalf("log = %v, want options then frame", lines)
		}
		if opts := optionsEntry(t, lines[0]); opts != DefaultOptions() {
			t.Errorf("pushed options = %+v, want %+v", opts, DefaultOptions())
		}
		if lines[1] != "F" {
			t.Errorf("second message = %q, want a frame", lines[1])
		}
	})

	t.Run("reply decodes with absent world landmarks", func(t *testing.T) {
		if got == nil {
			t.Fatal("handler was not called")
		}
		if len(got.Hands) != 1 || len(got.Hands[0]) != NumLandmarks {
			t.Fatalf("Hands = %v", got.Hands)
		}
		if len(got.Handedness) != 1 || got.Handedness[0].Label != Right {
			t.Errorf("Handedness = %+v, want one Right hand", got.Handedness)
		}
		if got.WorldHands != nil {
			t.Errorf("WorldHands = %v, want nil", got.WorldHands)
		}
		if got.Image == nil {
			t.Error("Image should be the sent frame")
		}
	})

	t.Run("options reach the running service", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SelfieMode = false
		if err := engine.SetOptions(opts); err != nil {
			t.Fatalf("SetOptions() error = %v", err)
		}
		lines := readServiceLog(t, logPath)
		if got := optionsEntry(t, lines[len(lines)-1]); got.SelfieMode {
			t.Error("service did not receive selfieMode=false")
		}
	})

	t.Run("rejected options are an error", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MaxNumHands = 3
		err := engine.SetOptions(opts)
		if err == nil || !strings.Contains(err.Error(), "too many hands") {
			t.Errorf("SetOptions() error = %v, want rejection", err)
		}
	})
}

func TestMediaPipeEngine_OptionsBeforeStart(t *testing.T) {
	engine, logPath := newFakeEngine(t, DefaultOptions(), time.Hour)

	opts := DefaultOptions()
	opts.MaxNumHands = 1
	opts.ModelComplexity = ModelLite
	if err := engine.SetOptions(opts); err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	if engine.running() {
		t.Fatal("SetOptions should not start the service")
	}

	if err := sendBlankFrame(t, engine); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	lines := readServiceLog(t, logPath)
	if got := optionsEntry(t, lines[0]); got != opts {
		t.Errorf("start-up options = %+v, want %+v", got, opts)
	}
}

func TestMediaPipeEngine_RejectedAtStart(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxNumHands = 4
	engine, _ := newFakeEngine(t, opts, time.Hour)

	err := sendBlankFrame(t, engine)
	if err == nil || !strings.Contains(err.Error(), "configure mediapipe service") {
		t.Fatalf("Send() error = %v, want configure failure", err)
	}
	if engine.running() {
		t.Error("service should be stopped after rejecting its options")
	}
}

func TestMediaPipeEngine_Idle(t *testing.T) {
	t.Run("stops after the idle timeout and restarts on demand", func(t *testing.T) {
		engine, logPath := newFakeEngine(t, DefaultOptions(), 50*time.Millisecond)

		if err := sendBlankFrame(t, engine); err != nil {
			t.Fatalf("Send() error = %v", err)
		}

		deadline := time.Now().Add(2 * time.Second)
		for engine.running() {
			if time.Now().After(deadline) {
				t.Fatal("service still running after idle timeout")
			}
			time.Sleep(10 * time.Millisecond)
		}

		if err := sendBlankFrame(t, engine); err != nil {
			t.Fatalf("Send() after idle error = %v", err)
		}
		lines := readServiceLog(t, logPath)
		if len(lines) != 4 || lines[2][0] != 'O' || lines[3] != "F" {
			t.Errorf("log = %v, want options re-pushed on restart", lines)
		}
	})

	t.Run("stale timer leaves a busy service running", func(t *testing.T) {
		engine, _ := newFakeEngine(t, DefaultOptions(), time.Hour)

		if err := sendBlankFrame(t, engine); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		engine.mu.Lock()
		stale := engine.idleGen
		engine.mu.Unlock()

		if err := sendBlankFrame(t, engine); err != nil {
			t.Fatalf("Send() error = %v", err)
		}

		engine.idleExpired(stale)
		if !engine.running() {
			t.Error("expired timer from an earlier frame stopped the service")
		}
	})
}

func TestMediaPipeEngine_Closed(t *testing.T) {
	engine, _ := newFakeEngine(t, DefaultOptions(), time.Hour)
	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sendBlankFrame(t, engine); err != ErrEngineClosed {
		t.Errorf("Send() after Close error = %v, want ErrEngineClosed", err)
	}
	if err := engine.SetOptions(DefaultOptions()); err != ErrEngineClosed {
		t.Errorf("SetOptions() after Close error = %v, want ErrEngineClosed", err)
	}
}
