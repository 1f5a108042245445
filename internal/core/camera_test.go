package core

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AceArd86/kinect-ip-cam/internal/config"
	"github.com/AceArd86/kinect-ip-cam/internal/sensor"
)

func testCamera(t *testing.T) (*Camera, *sensor.Mock) {
	t.Helper()
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Camera.Width = 32
	cfg.Camera.Height = 32

	mock := sensor.NewMock(cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS)
	cam, err := New(cfg, mock, afero.NewMemMapFs(), nil)
	require.NoError(t, err)
	return cam, mock
}

func TestHealthDegradedBeforeStart(t *testing.T) {
	cam, _ := testCamera(t)

	h := cam.HealthCheck()
	assert.Equal(t, "degraded", h.Status)
	assert.False(t, h.SensorRunning)
	assert.Equal(t, "rgb", h.Mode)
	assert.False(t, h.MQTTConnected)
}

func TestRunProcessesFramesUntilCancelled(t *testing.T) {
	cam, _ := testCamera(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cam.Run(ctx) }()

	require.Eventually(t, func() bool {
		h := cam.HealthCheck()
		return h.Status == "healthy" && h.FramesPublished > 0
	}, 5*time.Second, 20*time.Millisecond, "the mock sensor should feed the pipeline")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not shut down")
	}

	assert.Equal(t, "degraded", cam.HealthCheck().Status)
}

func TestRunRejectsDoubleStart(t *testing.T) {
	cam, _ := testCamera(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cam.Run(ctx) }()

	require.Eventually(t, func() bool {
		return cam.HealthCheck().Status == "healthy"
	}, 5*time.Second, 20*time.Millisecond)

	assert.Error(t, cam.Run(ctx))

	cancel()
	<-done
}

func TestHealthJSONRoundTrips(t *testing.T) {
	cam, _ := testCamera(t)

	payload, err := cam.healthJSON()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"status":"degraded"`)
	assert.Contains(t, string(payload), `"mode":"rgb"`)
}
