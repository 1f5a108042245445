package core

import (
	"encoding/json"
	"time"
)

// HealthStatus represents the health state of the camera service
type HealthStatus struct {
	Status          string    `json:"status"` // "healthy", "degraded"
	UptimeSeconds   int64     `json:"uptime_seconds"`
	Mode            string    `json:"mode"`
	SensorRunning   bool      `json:"sensor_running"`
	MQTTConnected   bool      `json:"mqtt_connected"`
	StreamClients   int       `json:"stream_clients"`
	FramesPublished uint64    `json:"frames_published"`
	FormatSwitches  uint64    `json:"format_switches"`
	MotionEvents    uint64    `json:"motion_events"`
	Snapshots       uint64    `json:"snapshots"`
	Recordings      uint64    `json:"recordings"`
	RecordingNow    bool      `json:"recording_now"`
	LastMotion      time.Time `json:"last_motion"`
}

// HealthCheck returns the current health status of the service.
func (c *Camera) HealthCheck() HealthStatus {
	c.mu.RLock()
	started := c.started
	running := c.isRunning
	c.mu.RUnlock()

	pipeline := c.pipeline.Stats()
	detector := c.detector.Stats()
	captures := c.capture.Stats()
	sensorStats := c.sensor.Stats()

	status := HealthStatus{
		Status:          "healthy",
		UptimeSeconds:   int64(time.Since(started).Seconds()),
		Mode:            c.settings.Mode().String(),
		SensorRunning:   running && sensorStats.IsRunning,
		MQTTConnected:   c.emitter.Connected(),
		StreamClients:   c.web.ClientCount(),
		FramesPublished: pipeline.FramesPublished,
		FormatSwitches:  pipeline.FormatSwitches,
		MotionEvents:    detector.EventsFired,
		Snapshots:       captures.Snapshots,
		Recordings:      captures.Recordings,
		RecordingNow:    captures.RecordingNow,
		LastMotion:      detector.LastMotion,
	}

	if !status.SensorRunning {
		status.Status = "degraded"
	}
	return status
}

// healthJSON renders the health document for the MQTT heartbeat.
func (c *Camera) healthJSON() ([]byte, error) {
	return json.Marshal(c.HealthCheck())
}
