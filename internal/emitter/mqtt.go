// Package emitter publishes motion events and health heartbeats to an MQTT
// broker. The emitter is optional: a nil *MQTTEmitter is safe to call and
// does nothing.
package emitter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/AceArd86/kinect-ip-cam/internal/config"
	"github.com/AceArd86/kinect-ip-cam/internal/motion"
)

// MQTTEmitter publishes camera events to an MQTT broker.
type MQTTEmitter struct {
	cfg    config.MQTTConfig
	id     string
	client mqtt.Client

	mu        sync.RWMutex
	published uint64
	errors    uint64
	connected bool
}

// motionPayload is the wire format for motion events.
type motionPayload struct {
	InstanceID    string    `json:"instance_id"`
	Timestamp     time.Time `json:"timestamp"`
	ChangedPixels int       `json:"changed_pixels"`
}

// New creates an emitter for the given broker configuration. Returns nil
// when no broker is configured, which disables emission entirely.
func New(cfg config.MQTTConfig, instanceID string) *MQTTEmitter {
	if cfg.Broker == "" {
		return nil
	}
	return &MQTTEmitter{cfg: cfg, id: instanceID}
}

// Connect establishes the broker connection with automatic reconnection.
func (e *MQTTEmitter) Connect() error {
	if e == nil {
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.id)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.mu.Lock()
		e.connected = true
		e.mu.Unlock()
		slog.Info("mqtt connection established", "broker", e.cfg.Broker, "client_id", e.id)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.mu.Lock()
		e.connected = false
		e.mu.Unlock()
		slog.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", e.cfg.Broker)
	}

	e.client = mqtt.NewClient(opts)

	slog.Info("connecting to mqtt broker", "broker", e.cfg.Broker)
	token := e.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

// PublishMotion publishes one motion event.
func (e *MQTTEmitter) PublishMotion(ev motion.Event) error {
	if e == nil {
		return nil
	}
	payload, err := json.Marshal(motionPayload{
		InstanceID:    e.id,
		Timestamp:     ev.Timestamp,
		ChangedPixels: ev.ChangedPixels,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal motion event: %w", err)
	}
	return e.publish(e.cfg.Topics.Motion, payload)
}

// PublishHealth publishes a health heartbeat payload.
func (e *MQTTEmitter) PublishHealth(payload []byte) error {
	if e == nil {
		return nil
	}
	return e.publish(e.cfg.Topics.Health, payload)
}

func (e *MQTTEmitter) publish(topic string, payload []byte) error {
	if !e.isConnected() {
		e.mu.Lock()
		e.errors++
		e.mu.Unlock()
		return fmt.Errorf("mqtt not connected")
	}

	token := e.client.Publish(topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.mu.Lock()
		e.errors++
		e.mu.Unlock()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		e.mu.Lock()
		e.errors++
		e.mu.Unlock()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published++
	e.mu.Unlock()
	slog.Debug("event published", "topic", topic, "size", len(payload))
	return nil
}

// Disconnect closes the broker connection.
func (e *MQTTEmitter) Disconnect() {
	if e == nil {
		return
	}
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		slog.Info("mqtt disconnected")
	}
	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()
}

// Connected reports broker connectivity. Safe on a nil emitter.
func (e *MQTTEmitter) Connected() bool {
	if e == nil {
		return false
	}
	return e.isConnected()
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// Stats returns emitter statistics. Safe on a nil emitter.
func (e *MQTTEmitter) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{Connected: e.connected, Published: e.published, Errors: e.errors}
}
