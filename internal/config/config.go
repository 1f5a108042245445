package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete camera service configuration
type Config struct {
	InstanceID string          `yaml:"instance_id"`
	ListenAddr string          `yaml:"listen_addr"`
	MediaDir   string          `yaml:"media_dir"`
	Camera     CameraConfig    `yaml:"camera"`
	View       ViewConfig      `yaml:"view"`
	Motion     MotionConfig    `yaml:"motion"`
	Capture    CaptureConfig   `yaml:"capture"`
	Retention  RetentionConfig `yaml:"retention"`
	Tilt       TiltConfig      `yaml:"tilt"`
	MQTT       MQTTConfig      `yaml:"mqtt"`
}

// CameraConfig contains sensor settings
type CameraConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// ViewConfig contains live-view rendering settings
type ViewConfig struct {
	AutoNight      bool `yaml:"auto_night"`
	NightThreshold int  `yaml:"night_threshold"` // luma below which to switch to infrared
	DayThreshold   int  `yaml:"day_threshold"`   // luma above which to switch back to color
	JPEGQuality    int  `yaml:"jpeg_quality"`
	TintGreen      bool `yaml:"tint_green"`
	Smoothing      bool `yaml:"smoothing"`
	ShowSkeletons  bool `yaml:"show_skeletons"`
	// StreamIntervalMS is the delay between multipart stream parts per client
	StreamIntervalMS int `yaml:"stream_interval_ms"`
}

// MotionConfig contains depth motion detection settings
type MotionConfig struct {
	// DeltaMM is the per-pixel depth deviation (millimeters) that flags a pixel
	DeltaMM int `yaml:"delta_mm"`
	// ChangedPixels is the per-frame changed-pixel count that fires an event
	ChangedPixels int `yaml:"changed_pixels"`
	// Alpha is the background model exponential moving average learning rate
	Alpha float64 `yaml:"alpha"`
	// MaxDepthMM discards sensor-unreliable readings beyond this range
	MaxDepthMM int `yaml:"max_depth_mm"`
}

// CaptureConfig contains snapshot and audio capture settings
type CaptureConfig struct {
	SnapshotCooldownMS int `yaml:"snapshot_cooldown_ms"`
	AudioCooldownMS    int `yaml:"audio_cooldown_ms"`
	// RecordSeconds is the duration of motion-triggered audio recordings
	RecordSeconds int `yaml:"record_seconds"`
}

// RetentionConfig bounds how many capture files are kept on disk
type RetentionConfig struct {
	MaxSnapshots    int `yaml:"max_snapshots"`
	MaxRecordings   int `yaml:"max_recordings"`
	SweepIntervalS  int `yaml:"sweep_interval_s"`
}

// TiltConfig contains tilt motor settings
type TiltConfig struct {
	// CooldownMS is the minimum interval between applied tilt commands
	CooldownMS int `yaml:"cooldown_ms"`
}

// MQTTConfig contains broker settings for event emission.
// An empty Broker disables MQTT entirely.
type MQTTConfig struct {
	Broker string     `yaml:"broker"`
	Topics MQTTTopics `yaml:"topics"`
	QoS    byte       `yaml:"qos"`
}

// MQTTTopics contains topic templates
type MQTTTopics struct {
	Motion string `yaml:"motion"`
	Health string `yaml:"health"`
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		InstanceID: "kinect-cam",
		ListenAddr: ":8080",
		MediaDir:   "media",
		Camera: CameraConfig{
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		View: ViewConfig{
			AutoNight:        true,
			NightThreshold:   36,
			DayThreshold:     41,
			JPEGQuality:      80,
			TintGreen:        true,
			Smoothing:        true,
			ShowSkeletons:    true,
			StreamIntervalMS: 100,
		},
		Motion: MotionConfig{
			DeltaMM:       100,
			ChangedPixels: 1200,
			Alpha:         0.05,
			MaxDepthMM:    4000,
		},
		Capture: CaptureConfig{
			SnapshotCooldownMS: 8000,
			AudioCooldownMS:    30000,
			RecordSeconds:      10,
		},
		Retention: RetentionConfig{
			MaxSnapshots:   100,
			MaxRecordings:  20,
			SweepIntervalS: 60,
		},
		Tilt: TiltConfig{
			CooldownMS: 1500,
		},
		MQTT: MQTTConfig{
			Topics: MQTTTopics{
				Motion: "kinectcam/events/motion",
				Health: "kinectcam/health",
			},
		},
	}
}

// Load reads and parses a YAML configuration file. Fields not present in the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
