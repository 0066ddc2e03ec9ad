package grid

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/pinchview/internal/aggregate"
	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/log"
	"github.com/gorilla/websocket"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ConnectionColor != 0xCCCCCC {
		t.Errorf("ConnectionColor = %#x", cfg.ConnectionColor)
	}
	if len(cfg.DefinedColors) != 2 ||
		cfg.DefinedColors[0] != (NamedColor{Name: "Left", Value: 0xffa500}) ||
		cfg.DefinedColors[1] != (NamedColor{Name: "Right", Value: 0x00ffff}) {
		t.Errorf("DefinedColors = %+v", cfg.DefinedColors)
	}
	if cfg.Range != 0.2 || cfg.LabelSuffix != "m" || cfg.LandmarkSize != 2 || cfg.NumCellsPerAxis != 4 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.FitToGrid || cfg.ShowHidden || cfg.Centered {
		t.Errorf("boolean defaults should be false: %+v", cfg)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"numCellsPerAxis":4`) {
		t.Errorf("json = %s", data)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var w Widget = &r

	w.UpdateLandmarks([]detector.Point3D{{X: 1}}, nil, nil)
	w.Clear()

	if len(r.Updates) != 1 || r.Clears != 1 {
		t.Errorf("Updates = %d, Clears = %d", len(r.Updates), r.Clears)
	}
}

func TestHub_Snapshot(t *testing.T) {
	h := NewHub(log.NewNop())

	if !h.Snapshot().Empty() {
		t.Fatal("new hub should start empty")
	}

	res := aggregate.Aggregate(
		[]detector.Landmarks{detector.WorldLandmarks()},
		[]detector.Classification{{Label: detector.Right, Score: 0.9}},
		detector.HandTopology,
		aggregate.OffsetByLandmarks,
	)

	t.Run("update stores a copy", func(t *testing.T) {
		h.UpdateLandmarks(res.Landmarks, res.Connections, res.Groups)
		res.Landmarks[0].X = 99

		snap := h.Snapshot()
		if len(snap.Landmarks) != detector.NumLandmarks {
			t.Fatalf("len(Landmarks) = %d", len(snap.Landmarks))
		}
		if snap.Landmarks[0].X == 99 {
			t.Error("snapshot aliases the caller's slice")
		}
		if len(snap.Groups) != 1 || snap.Groups[0].Label != detector.Right {
			t.Errorf("Groups = %+v", snap.Groups)
		}
	})

	t.Run("clear empties the snapshot", func(t *testing.T) {
		h.Clear()
		snap := h.Snapshot()
		if !snap.Empty() {
			t.Error("snapshot should be empty after Clear")
		}

		data, err := json.Marshal(snap)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != `{"landmarks":[],"connections":[],"colors":[]}` {
			t.Errorf("json = %s", data)
		}
	})
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return msg
}

func TestHub_ServeHTTP(t *testing.T) {
	h := NewHub(log.NewNop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	first := readMessage(t, conn)
	if first.Type != TypeGrid {
		t.Errorf("first message type = %q, want %q", first.Type, TypeGrid)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if h.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", h.Subscribers())
	}

	h.Broadcast(TypeMetric, "42%")
	msg := readMessage(t, conn)
	if msg.Type != TypeMetric || msg.Data != "42%" {
		t.Errorf("message = %+v", msg)
	}

	h.UpdateLandmarks([]detector.Point3D{{X: 0.1}}, nil, nil)
	msg = readMessage(t, conn)
	if msg.Type != TypeGrid {
		t.Errorf("message type = %q, want %q", msg.Type, TypeGrid)
	}
	data, _ := msg.Data.(map[string]any)
	if points, _ := data["landmarks"].([]any); len(points) != 1 {
		t.Errorf("grid data = %v", msg.Data)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for h.Subscribers() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if h.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after close, want 0", h.Subscribers())
	}
}
