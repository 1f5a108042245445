package web

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AceArd86/kinect-ip-cam/internal/capture"
	"github.com/AceArd86/kinect-ip-cam/internal/device"
	"github.com/AceArd86/kinect-ip-cam/internal/framecell"
	"github.com/AceArd86/kinect-ip-cam/internal/motion"
	"github.com/AceArd86/kinect-ip-cam/internal/sensor"
	"github.com/AceArd86/kinect-ip-cam/internal/settings"
	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

type fixture struct {
	server   *Server
	frames   *framecell.FrameCell
	settings *settings.Settings
	capture  *capture.Manager
	fs       afero.Fs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	var frames framecell.FrameCell
	st := settings.New(settings.Options{
		AutoNight:      true,
		NightThreshold: 36,
		DayThreshold:   41,
		JPEGQuality:    80,
	})
	mock := sensor.NewMock(16, 16, 30)

	mgr, err := capture.NewManager(fs, capture.Config{
		Dir:              "media",
		SnapshotCooldown: 8 * time.Second,
		AudioCooldown:    30 * time.Second,
		RecordSeconds:    1,
	}, &frames, st, mock.OpenAudio)
	require.NoError(t, err)

	srv := NewServer(Config{
		Frames:         &frames,
		Settings:       st,
		Capture:        mgr,
		Tilt:           device.NewTilt(mock, 0),
		Detector:       motion.NewDetector(motion.Config{DeltaMM: 100, ChangedPixels: 1200, Alpha: 0.05, MaxDepthMM: 4000}),
		Health:         func() any { return map[string]string{"status": "healthy"} },
		FS:             fs,
		MediaDir:       "media",
		StreamInterval: 10 * time.Millisecond,
	})

	return &fixture{server: srv, frames: &frames, settings: st, capture: mgr, fs: fs}
}

func (f *fixture) publishFrame() {
	// a textured image so encode quality visibly affects output size
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(x * 4)
			img.Pix[i+1] = uint8(y * 4)
			img.Pix[i+2] = uint8((x ^ y) * 4)
			img.Pix[i+3] = 0xff
		}
	}
	f.frames.Publish(&types.RenderedFrame{
		Seq:       1,
		Timestamp: time.Now(),
		Img:       img,
		Format:    types.FormatColor,
	})
}

func TestStillBeforeFirstFrame(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/still.jpg", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStillServesJPEG(t *testing.T) {
	f := newFixture(t)
	f.publishFrame()

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/still.jpg", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	body := rec.Body.Bytes()
	require.GreaterOrEqual(t, len(body), 2)
	assert.Equal(t, []byte{0xff, 0xd8}, body[:2])
}

func TestStatusReportsAndAppliesCommands(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec,
		httptest.NewRequest("GET", "/api/status?mode=ir&jpeg=55&night=50", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ir", resp.Mode)
	assert.False(t, resp.AutoNight, "manual mode command disables auto")
	assert.Equal(t, 55, resp.JPEGQuality)
	assert.Equal(t, 50, resp.NightThreshold)
	assert.Equal(t, 51, resp.DayThreshold, "day threshold re-clamps above night")
	assert.False(t, resp.Recording)
	assert.Empty(t, resp.LastMotion)
}

func TestStatusIgnoresMalformedValues(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec,
		httptest.NewRequest("GET", "/api/status?jpeg=banana&night=500&mode=thermal", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rgb", resp.Mode)
	assert.Equal(t, 80, resp.JPEGQuality)
	assert.Equal(t, 36, resp.NightThreshold)
}

func TestStatusSnapCommand(t *testing.T) {
	f := newFixture(t)
	f.publishFrame()

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/status?snap=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.LastSnapshot, "the response reflects the snapshot it triggered")
}

func TestStatusTiltCommand(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/status?tiltAbs=50", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 27, resp.TiltAngle, "absolute targets clamp to the device range")
}

func TestLastAudioNotFound(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/audio/last", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLastAudioServesRecording(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.capture.StartRecording(1*time.Second))
	f.capture.Wait()

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/audio/last", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", string(rec.Body.Bytes()[:4]))
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestMediaFilesAreServed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, "media/20260827_120000_000.jpg", []byte{0xff, 0xd8, 0xff}, 0o644))

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/media/20260827_120000_000.jpg", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, rec.Body.Bytes())
}

// readParts pulls n multipart frames off a live stream response.
func readParts(t *testing.T, body io.Reader, n int) {
	t.Helper()
	mr := multipart.NewReader(body, streamBoundary)
	for i := 0; i < n; i++ {
		part, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))

		data, err := io.ReadAll(part)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(data), 2)
		assert.Equal(t, []byte{0xff, 0xd8}, data[:2])
	}
}

func TestStreamDeliversFramesToConcurrentClients(t *testing.T) {
	f := newFixture(t)
	f.publishFrame()

	ts := httptest.NewServer(f.server.Router())
	defer ts.Close()

	respA, err := http.Get(ts.URL + "/stream")
	require.NoError(t, err)
	defer respA.Body.Close()
	require.Equal(t, http.StatusOK, respA.StatusCode)
	assert.Contains(t, respA.Header.Get("Content-Type"), "multipart/x-mixed-replace")

	respB, err := http.Get(ts.URL + "/stream")
	require.NoError(t, err)
	defer respB.Body.Close()

	readParts(t, respA.Body, 2)
	readParts(t, respB.Body, 2)

	assert.Equal(t, 2, f.server.ClientCount())

	// one client leaving must not disturb the other
	respA.Body.Close()
	readParts(t, respB.Body, 2)

	respB.Body.Close()
	assert.Eventually(t, func() bool {
		return f.server.ClientCount() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStreamQualityFollowsSettings(t *testing.T) {
	f := newFixture(t)
	f.publishFrame()

	ts := httptest.NewServer(f.server.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	mr := multipart.NewReader(resp.Body, streamBoundary)
	part, err := mr.NextPart()
	require.NoError(t, err)
	first, err := io.ReadAll(part)
	require.NoError(t, err)

	// drop the quality drastically mid-stream; later parts re-encode at it
	f.settings.SetJPEGQuality(10)
	shrunk := false
	for i := 0; i < 20; i++ {
		part, err := mr.NextPart()
		require.NoError(t, err)
		second, err := io.ReadAll(part)
		require.NoError(t, err)
		if len(second) < len(first) && !bytes.Equal(second, first) {
			shrunk = true
			break
		}
	}
	assert.True(t, shrunk, "stream parts must re-encode at the lowered quality")
}
