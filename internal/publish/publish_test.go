package publish

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/log"
	"github.com/ayusman/pinchview/internal/metric"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error, complete bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []published
	err          error
	hang         bool
	connected    bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	return newFakeToken(c.err, !c.hang)
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{connected: true}
	p := newMQTTPublisher(client, "pinchview/metric", time.Second, log.NewNop())

	r := metric.Reading{Value: "42%", Distance: 1.7, Hand: 1, Label: detector.Left}
	if err := p.Publish(context.Background(), r); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(client.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(client.messages))
	}
	msg := client.messages[0]
	if msg.topic != "pinchview/metric" || msg.qos != 1 || !msg.retained {
		t.Errorf("message = %+v", msg)
	}

	var payload map[string]any
	if err := json.Unmarshal(msg.payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["value"] != "42%" || payload["hand"] != float64(1) || payload["label"] != "Left" {
		t.Errorf("payload = %v", payload)
	}

	if err := p.Close(); err != nil || !client.disconnected {
		t.Errorf("Close() = %v, disconnected = %v", err, client.disconnected)
	}
}

func TestMQTTPublisher_Errors(t *testing.T) {
	t.Run("broker error", func(t *testing.T) {
		boom := errors.New("not authorized")
		p := newMQTTPublisher(&fakeClient{err: boom}, "t", time.Second, log.NewNop())
		if err := p.Publish(context.Background(), metric.Initial()); !errors.Is(err, boom) {
			t.Errorf("Publish() error = %v, want %v", err, boom)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		p := newMQTTPublisher(&fakeClient{hang: true}, "t", 20*time.Millisecond, log.NewNop())
		if err := p.Publish(context.Background(), metric.Initial()); !errors.Is(err, ErrPublishTimeout) {
			t.Errorf("Publish() error = %v, want ErrPublishTimeout", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := newMQTTPublisher(&fakeClient{hang: true}, "t", time.Second, log.NewNop())
		if err := p.Publish(ctx, metric.Initial()); !errors.Is(err, context.Canceled) {
			t.Errorf("Publish() error = %v, want context.Canceled", err)
		}
	})
}

func TestNewMQTTPublisher_RequiresBrokerAndTopic(t *testing.T) {
	if _, err := NewMQTTPublisher(MQTTConfig{Topic: "t"}, log.NewNop()); err == nil {
		t.Error("expected error without broker")
	}
	if _, err := NewMQTTPublisher(MQTTConfig{Broker: "tcp://localhost:1883"}, log.NewNop()); err == nil {
		t.Error("expected error without topic")
	}
}

func TestDispatcher(t *testing.T) {
	var mu sync.Mutex
	var got []string
	record := Func(func(_ context.Context, r metric.Reading) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, r.Value)
		return nil
	})
	failing := Func(func(context.Context, metric.Reading) error {
		return errors.New("down")
	})

	d := NewDispatcher(log.NewNop(), 4, failing, record)
	for _, v := range []string{"10%", "20%", "30%"} {
		if !d.Offer(metric.Reading{Value: v}) {
			t.Fatalf("Offer(%s) rejected", v)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != "10%" || got[2] != "30%" {
		t.Errorf("delivered = %v, want in-order delivery despite failing publisher", got)
	}
}

func TestDispatcher_WaitAfterStart(t *testing.T) {
	release := make(chan struct{})
	var delivered bool
	slow := Func(func(context.Context, metric.Reading) error {
		<-release
		delivered = true
		return nil
	})

	d := NewDispatcher(log.NewNop(), 1, slow)
	d.Offer(metric.Reading{Value: "50%"})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	waited := make(chan struct{})
	go func() {
		d.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait() returned while delivery was still running")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	close(release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after cancel")
	}
	if !delivered {
		t.Error("Wait() returned before the in-flight reading was delivered")
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(log.NewNop(), 1)

	if !d.Offer(metric.Reading{Value: "1%"}) {
		t.Fatal("first Offer should be accepted")
	}
	if d.Offer(metric.Reading{Value: "2%"}) {
		t.Error("Offer on a full queue should be rejected")
	}
	if d.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", d.Dropped())
	}
}
