package emitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AceArd86/kinect-ip-cam/internal/config"
	"github.com/AceArd86/kinect-ip-cam/internal/motion"
)

func TestNewWithoutBrokerDisablesEmission(t *testing.T) {
	e := New(config.MQTTConfig{}, "cam-1")
	assert.Nil(t, e)
}

func TestNilEmitterIsSafe(t *testing.T) {
	var e *MQTTEmitter

	assert.NoError(t, e.Connect())
	assert.NoError(t, e.PublishMotion(motion.Event{Timestamp: time.Now(), ChangedPixels: 1500}))
	assert.NoError(t, e.PublishHealth([]byte(`{}`)))
	assert.False(t, e.Connected())
	assert.Equal(t, Stats{}, e.Stats())
	assert.NotPanics(t, func() { e.Disconnect() })
}

func TestPublishWhileDisconnectedFails(t *testing.T) {
	e := New(config.MQTTConfig{Broker: "localhost:1883"}, "cam-1")

	err := e.PublishMotion(motion.Event{Timestamp: time.Now(), ChangedPixels: 1500})
	assert.Error(t, err)
	assert.Equal(t, uint64(1), e.Stats().Errors)
}
