// Package capture performs the snapshot and audio-recording side effects,
// enforcing single-flight recording and count-based file retention.
package capture

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/AceArd86/kinect-ip-cam/internal/framecell"
	"github.com/AceArd86/kinect-ip-cam/internal/observability"
	"github.com/AceArd86/kinect-ip-cam/internal/ratelimit"
	"github.com/AceArd86/kinect-ip-cam/internal/settings"
)

const (
	// audioChunkSize bounds each read while streaming PCM to disk
	audioChunkSize = 3200

	MinRecordSeconds = 1
	MaxRecordSeconds = 30

	openFlagsCreate = os.O_RDWR | os.O_CREATE | os.O_TRUNC
)

// AudioOpener starts the sensor microphone and returns its PCM byte stream.
type AudioOpener func() (io.ReadCloser, error)

// Config contains capture tuning.
type Config struct {
	// Dir is the flat output directory for snapshots and recordings
	Dir string
	// SnapshotCooldown gates motion-triggered snapshots
	SnapshotCooldown time.Duration
	// AudioCooldown gates motion-triggered recording starts
	AudioCooldown time.Duration
	// RecordSeconds is the duration of motion-triggered recordings
	RecordSeconds int
}

// Manager orchestrates snapshot and audio captures. All entry points are
// safe for concurrent use; at most one audio recording runs at a time.
type Manager struct {
	fs       afero.Fs
	cfg      Config
	frames   *framecell.FrameCell
	settings *settings.Settings
	audio    AudioOpener

	snapCooldown  *ratelimit.Cooldown
	audioCooldown *ratelimit.Cooldown
	metrics       *observability.Metrics

	// recording is the sole mutual-exclusion mechanism for recordings.
	recording atomic.Bool
	wg        sync.WaitGroup

	mu            sync.RWMutex
	lastSnapshot  string
	lastRecording string
	snapshots     uint64
	recordings    uint64
}

// NewManager creates a capture manager writing through fs into cfg.Dir.
func NewManager(fs afero.Fs, cfg Config, frames *framecell.FrameCell, st *settings.Settings, audio AudioOpener) (*Manager, error) {
	if err := fs.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &Manager{
		fs:            fs,
		cfg:           cfg,
		frames:        frames,
		settings:      st,
		audio:         audio,
		snapCooldown:  ratelimit.New(cfg.SnapshotCooldown),
		audioCooldown: ratelimit.New(cfg.AudioCooldown),
	}, nil
}

// SetMetrics attaches the metrics collectors; a nil receiver stays inert.
func (m *Manager) SetMetrics(metrics *observability.Metrics) {
	m.metrics = metrics
}

// HandleMotion applies the per-trigger cooldowns to a motion event: a
// snapshot if its window elapsed, a recording start if its own independent
// window elapsed. Both effects are logged-and-skipped on failure.
func (m *Manager) HandleMotion(now time.Time) {
	if m.snapCooldown.TryFire(now) {
		if _, err := m.Snapshot(); err != nil {
			slog.Warn("motion snapshot failed", "error", err)
		}
	}
	if m.audioCooldown.TryFire(now) {
		m.StartRecording(time.Duration(m.cfg.RecordSeconds) * time.Second)
	}
}

// Snapshot encodes the current shared frame at the configured quality and
// writes it to a timestamp-named file. It is a no-op returning an error only
// when no frame has been produced yet or the write fails. The frame cell is
// never locked during encoding.
func (m *Manager) Snapshot() (string, error) {
	frame := m.frames.Latest()
	if frame == nil {
		return "", fmt.Errorf("no frame available yet")
	}

	var buf bytes.Buffer
	quality := m.settings.Get().JPEGQuality
	if err := jpeg.Encode(&buf, frame.Img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := filepath.Join(m.cfg.Dir, timestampName(time.Now())+".jpg")
	if err := afero.WriteFile(m.fs, path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	m.mu.Lock()
	m.lastSnapshot = path
	m.snapshots++
	m.mu.Unlock()
	m.metrics.SnapshotWritten()

	slog.Info("snapshot written", "path", path, "bytes", buf.Len(), "quality", quality)
	return path, nil
}

// StartRecording begins an audio capture of the given duration, clamped to
// [1,30] seconds. It returns false without error when a recording is already
// active: concurrent requests are a no-op, never queued. The capture runs on
// its own goroutine so triggers are never blocked.
func (m *Manager) StartRecording(d time.Duration) bool {
	if d < MinRecordSeconds*time.Second {
		d = MinRecordSeconds * time.Second
	}
	if d > MaxRecordSeconds*time.Second {
		d = MaxRecordSeconds * time.Second
	}

	if !m.recording.CompareAndSwap(false, true) {
		slog.Debug("recording already active, request ignored")
		return false
	}

	session := uuid.New().String()
	path := filepath.Join(m.cfg.Dir, timestampName(time.Now())+".wav")
	m.metrics.RecordingStarted()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.recording.Store(false)

		slog.Info("audio recording started", "session", session, "path", path, "duration", d)
		if err := m.record(path, d); err != nil {
			slog.Error("audio recording failed", "session", session, "error", err)
			return
		}

		m.mu.Lock()
		m.lastRecording = path
		m.recordings++
		m.mu.Unlock()
		slog.Info("audio recording finished", "session", session, "path", path)
	}()
	return true
}

// record streams PCM to disk in bounded chunks, then patches the container
// size fields. Duration is measured by bytes read, not wall clock; a source
// that delivers short reads simply ends the recording early, and the header
// always reflects the bytes actually written.
func (m *Manager) record(path string, d time.Duration) error {
	src, err := m.audio()
	if err != nil {
		return fmt.Errorf("failed to open audio source: %w", err)
	}
	defer src.Close()

	f, err := m.fs.OpenFile(path, openFlagsCreate, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	defer f.Close()

	if err := writeWAVHeader(f, 0); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	target := int(d.Seconds()) * wavBytesPerSec
	written := 0
	chunk := make([]byte, audioChunkSize)
	for written < target {
		want := len(chunk)
		if remaining := target - written; remaining < want {
			want = remaining
		}
		n, err := src.Read(chunk[:want])
		if n > 0 {
			if _, werr := f.Write(chunk[:n]); werr != nil {
				return fmt.Errorf("failed to write samples: %w", werr)
			}
			written += n
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("audio read failed: %w", err)
		}
	}

	if err := patchWAVSizes(f, uint32(written)); err != nil {
		return err
	}
	return nil
}

// Recording reports whether an audio capture is currently active.
func (m *Manager) Recording() bool {
	return m.recording.Load()
}

// LastSnapshot returns the path of the most recent snapshot, if any.
func (m *Manager) LastSnapshot() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSnapshot
}

// LastRecording returns the path of the most recent finished recording.
func (m *Manager) LastRecording() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRecording
}

// Wait blocks until any in-flight recording finishes. Used on shutdown;
// recordings are never force-cancelled.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Stats contains capture statistics
type Stats struct {
	Snapshots     uint64
	Recordings    uint64
	RecordingNow  bool
	LastSnapshot  string
	LastRecording string
}

// Stats returns a snapshot of capture statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Snapshots:     m.snapshots,
		Recordings:    m.recordings,
		RecordingNow:  m.recording.Load(),
		LastSnapshot:  m.lastSnapshot,
		LastRecording: m.lastRecording,
	}
}

// timestampName renders the shared capture filename stem, millisecond
// resolution: YYYYMMDD_HHMMSS_mmm.
func timestampName(t time.Time) string {
	return fmt.Sprintf("%s_%03d", t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond))
}
