package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/pinchview/internal/log"
	"github.com/ayusman/pinchview/internal/metric"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timeout")

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Timeout  time.Duration
}

// mqttClient is the subset of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes readings as retained JSON messages, so a new
// subscriber sees the current value immediately.
type MQTTPublisher struct {
	client  mqttClient
	topic   string
	timeout time.Duration
	logger  log.Logger
}

var _ Publisher = (*MQTTPublisher)(nil)

// NewMQTTPublisher connects to the broker. A missing client id gets a random one.
func NewMQTTPublisher(config MQTTConfig, logger log.Logger) (*MQTTPublisher, error) {
	if config.Broker == "" || config.Topic == "" {
		return nil, errors.New("mqtt broker and topic are required")
	}
	if config.ClientID == "" {
		config.ClientID = "pinchview-" + uuid.New().String()
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions().AddBroker(config.Broker).SetClientID(config.ClientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(config.Timeout)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		logger.Infof("connected to MQTT broker %s as %s", config.Broker, config.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warnf("MQTT connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.Timeout) {
		return nil, fmt.Errorf("connect to %s: timeout", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", config.Broker, err)
	}

	return newMQTTPublisher(client, config.Topic, config.Timeout, logger), nil
}

func newMQTTPublisher(client mqttClient, topic string, timeout time.Duration, logger log.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client:  client,
		topic:   topic,
		timeout: timeout,
		logger:  logger,
	}
}

// Topic returns the topic readings are published to.
func (p *MQTTPublisher) Topic() string {
	return p.topic
}

// Publish implements Publisher.
func (p *MQTTPublisher) Publish(ctx context.Context, r metric.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return ErrPublishTimeout
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}
