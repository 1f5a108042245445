// Package core wires the sensor, pipeline, detector, capture and web
// components into the running camera service.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/AceArd86/kinect-ip-cam/internal/capture"
	"github.com/AceArd86/kinect-ip-cam/internal/config"
	"github.com/AceArd86/kinect-ip-cam/internal/device"
	"github.com/AceArd86/kinect-ip-cam/internal/emitter"
	"github.com/AceArd86/kinect-ip-cam/internal/framecell"
	"github.com/AceArd86/kinect-ip-cam/internal/ingest"
	"github.com/AceArd86/kinect-ip-cam/internal/motion"
	"github.com/AceArd86/kinect-ip-cam/internal/observability"
	"github.com/AceArd86/kinect-ip-cam/internal/sensor"
	"github.com/AceArd86/kinect-ip-cam/internal/settings"
	"github.com/AceArd86/kinect-ip-cam/internal/web"
)

const healthInterval = 30 * time.Second

// Camera is the main service orchestrator.
type Camera struct {
	cfg *config.Config

	sensor   sensor.Sensor
	settings *settings.Settings
	frames   framecell.FrameCell
	skels    framecell.SkeletonCell
	pipeline *ingest.Pipeline
	detector *motion.Detector
	capture  *capture.Manager
	tilt     *device.Tilt
	emitter  *emitter.MQTTEmitter
	metrics  *observability.Metrics
	web      *web.Server

	started   time.Time
	mu        sync.RWMutex
	wg        sync.WaitGroup
	isRunning bool
}

// New creates a camera service around the given sensor. The filesystem is
// injected so tests run against an in-memory fs.
func New(cfg *config.Config, s sensor.Sensor, fs afero.Fs, metrics *observability.Metrics) (*Camera, error) {
	c := &Camera{
		cfg:      cfg,
		sensor:   s,
		metrics:  metrics,
		settings: settings.New(settings.Options{
			AutoNight:      cfg.View.AutoNight,
			NightThreshold: cfg.View.NightThreshold,
			DayThreshold:   cfg.View.DayThreshold,
			TintGreen:      cfg.View.TintGreen,
			Smoothing:      cfg.View.Smoothing,
			ShowSkeletons:  cfg.View.ShowSkeletons,
			JPEGQuality:    cfg.View.JPEGQuality,
		}),
	}

	c.detector = motion.NewDetector(motion.Config{
		DeltaMM:       cfg.Motion.DeltaMM,
		ChangedPixels: cfg.Motion.ChangedPixels,
		Alpha:         cfg.Motion.Alpha,
		MaxDepthMM:    cfg.Motion.MaxDepthMM,
	})

	mgr, err := capture.NewManager(fs, capture.Config{
		Dir:              cfg.MediaDir,
		SnapshotCooldown: time.Duration(cfg.Capture.SnapshotCooldownMS) * time.Millisecond,
		AudioCooldown:    time.Duration(cfg.Capture.AudioCooldownMS) * time.Millisecond,
		RecordSeconds:    cfg.Capture.RecordSeconds,
	}, &c.frames, c.settings, s.OpenAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture manager: %w", err)
	}
	mgr.SetMetrics(metrics)
	c.capture = mgr

	c.tilt = device.NewTilt(s, time.Duration(cfg.Tilt.CooldownMS)*time.Millisecond)
	c.pipeline = ingest.New(s, c.settings, &c.frames, &c.skels, c.detector.LastMotion)
	c.emitter = emitter.New(cfg.MQTT, cfg.InstanceID)

	c.web = web.NewServer(web.Config{
		Frames:         &c.frames,
		Settings:       c.settings,
		Capture:        c.capture,
		Tilt:           c.tilt,
		Detector:       c.detector,
		Metrics:        metrics,
		Health:         func() any { return c.HealthCheck() },
		FS:             fs,
		MediaDir:       cfg.MediaDir,
		StreamInterval: time.Duration(cfg.View.StreamIntervalMS) * time.Millisecond,
	})

	return c, nil
}

// Run starts the service and blocks until the context is cancelled.
func (c *Camera) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("service is already running")
	}
	c.isRunning = true
	c.started = time.Now()
	c.mu.Unlock()

	slog.Info("camera service starting", "instance_id", c.cfg.InstanceID, "listen", c.cfg.ListenAddr)

	if err := c.emitter.Connect(); err != nil {
		// the emitter auto-reconnects; start degraded rather than fail
		slog.Warn("mqtt connect failed, continuing without broker", "error", err)
	}

	if err := c.sensor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sensor: %w", err)
	}

	c.wg.Add(3)
	go c.consumeColor(ctx)
	go c.consumeDepth(ctx)
	go c.consumeSkeletons(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.capture.RunRetention(ctx, capture.RetentionConfig{
			MaxSnapshots:  c.cfg.Retention.MaxSnapshots,
			MaxRecordings: c.cfg.Retention.MaxRecordings,
			Interval:      time.Duration(c.cfg.Retention.SweepIntervalS) * time.Second,
		})
	}()

	c.wg.Add(1)
	go c.healthLoop(ctx)

	srv := &http.Server{
		Addr:    c.cfg.ListenAddr,
		Handler: c.web.Router(),
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http server failed: %w", err)
	}

	slog.Info("camera service stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", "error", err)
	}

	if err := c.sensor.Stop(); err != nil {
		slog.Warn("sensor stop failed", "error", err)
	}

	c.wg.Wait()
	// recordings run to completion, never force-cancelled
	c.capture.Wait()
	c.emitter.Disconnect()

	c.mu.Lock()
	c.isRunning = false
	c.mu.Unlock()

	slog.Info("camera service stopped")
	return runErr
}

// consumeColor drives the render pipeline from the color stream.
func (c *Camera) consumeColor(ctx context.Context) {
	defer c.wg.Done()

	slog.Info("color consumer started")

	lastLog := time.Now()
	const logInterval = 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			slog.Info("color consumer stopping")
			return
		case f, ok := <-c.sensor.ColorFrames():
			if !ok {
				slog.Info("color stream closed")
				return
			}
			c.metrics.FrameIngested("color")

			res, err := c.pipeline.Process(f)
			if err != nil {
				slog.Debug("frame processing failed", "seq", f.Seq, "error", err)
			}
			switch res {
			case ingest.ResultSwitched:
				c.metrics.ModeSwitch()
			case ingest.ResultDropped:
				c.metrics.FrameDropped()
			}

			if time.Since(lastLog) >= logInterval {
				stats := c.pipeline.Stats()
				slog.Debug("pipeline stats",
					"frames_published", stats.FramesPublished,
					"format_switches", stats.FormatSwitches,
					"frames_dropped", stats.FramesDropped,
					"last_luma", stats.LastLuma,
				)
				lastLog = time.Now()
			}
		}
	}
}

// consumeDepth drives motion detection and its gated side effects.
func (c *Camera) consumeDepth(ctx context.Context) {
	defer c.wg.Done()

	slog.Info("depth consumer started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("depth consumer stopping")
			return
		case f, ok := <-c.sensor.DepthFrames():
			if !ok {
				slog.Info("depth stream closed")
				return
			}
			c.metrics.FrameIngested("depth")

			ev, fired := c.detector.Process(f)
			if !fired {
				continue
			}
			c.metrics.MotionEvent()
			slog.Info("motion detected", "changed_pixels", ev.ChangedPixels)

			c.capture.HandleMotion(ev.Timestamp)
			if err := c.emitter.PublishMotion(ev); err != nil {
				slog.Debug("motion publish failed", "error", err)
			}
		}
	}
}

// consumeSkeletons keeps the last known skeleton slot fresh.
func (c *Camera) consumeSkeletons(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-c.sensor.SkeletonFrames():
			if !ok {
				return
			}
			c.metrics.FrameIngested("skeleton")
			frame := f
			c.skels.Publish(&frame)
		}
	}
}

// healthLoop publishes periodic health heartbeats over MQTT.
func (c *Camera) healthLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := c.healthJSON()
			if err != nil {
				slog.Debug("health marshal failed", "error", err)
				continue
			}
			if err := c.emitter.PublishHealth(payload); err != nil {
				slog.Debug("health publish failed", "error", err)
			}
		}
	}
}
