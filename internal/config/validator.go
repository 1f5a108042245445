package config

import (
	"fmt"
	"regexp"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks if the configuration is valid, filling derived defaults.
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if cfg.MediaDir == "" {
		return fmt.Errorf("media_dir is required")
	}

	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		return fmt.Errorf("camera resolution must be positive, got %dx%d",
			cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Camera.FPS <= 0 {
		return fmt.Errorf("camera.fps must be > 0")
	}

	if cfg.View.NightThreshold < 0 || cfg.View.NightThreshold > 100 {
		return fmt.Errorf("view.night_threshold must be in [0,100], got %d", cfg.View.NightThreshold)
	}
	if cfg.View.DayThreshold < 0 || cfg.View.DayThreshold > 100 {
		return fmt.Errorf("view.day_threshold must be in [0,100], got %d", cfg.View.DayThreshold)
	}
	if cfg.View.DayThreshold <= cfg.View.NightThreshold {
		return fmt.Errorf("view.day_threshold (%d) must exceed view.night_threshold (%d)",
			cfg.View.DayThreshold, cfg.View.NightThreshold)
	}
	if cfg.View.JPEGQuality < 10 || cfg.View.JPEGQuality > 100 {
		return fmt.Errorf("view.jpeg_quality must be in [10,100], got %d", cfg.View.JPEGQuality)
	}
	if cfg.View.StreamIntervalMS <= 0 {
		cfg.View.StreamIntervalMS = 100
	}

	if cfg.Motion.Alpha <= 0 || cfg.Motion.Alpha >= 1 {
		return fmt.Errorf("motion.alpha must be in (0,1), got %v", cfg.Motion.Alpha)
	}
	if cfg.Motion.DeltaMM <= 0 {
		return fmt.Errorf("motion.delta_mm must be > 0")
	}
	if cfg.Motion.ChangedPixels <= 0 {
		return fmt.Errorf("motion.changed_pixels must be > 0")
	}
	if cfg.Motion.MaxDepthMM <= 0 {
		return fmt.Errorf("motion.max_depth_mm must be > 0")
	}

	if cfg.Capture.RecordSeconds < 1 || cfg.Capture.RecordSeconds > 30 {
		return fmt.Errorf("capture.record_seconds must be in [1,30], got %d", cfg.Capture.RecordSeconds)
	}

	if cfg.Retention.MaxSnapshots <= 0 || cfg.Retention.MaxRecordings <= 0 {
		return fmt.Errorf("retention limits must be > 0")
	}
	if cfg.Retention.SweepIntervalS <= 0 {
		cfg.Retention.SweepIntervalS = 60
	}

	// MQTT is optional; derive topics only when a broker is configured.
	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.Topics.Motion == "" {
			cfg.MQTT.Topics.Motion = fmt.Sprintf("kinectcam/%s/events/motion", cfg.InstanceID)
		}
		if cfg.MQTT.Topics.Health == "" {
			cfg.MQTT.Topics.Health = fmt.Sprintf("kinectcam/%s/health", cfg.InstanceID)
		}
	}

	return nil
}
