package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/spf13/afero"

	"github.com/AceArd86/kinect-ip-cam/internal/config"
	"github.com/AceArd86/kinect-ip-cam/internal/core"
	"github.com/AceArd86/kinect-ip-cam/internal/observability"
	"github.com/AceArd86/kinect-ip-cam/internal/sensor"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level})))

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load configuration", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// TODO: swap in the hardware sensor driver once the cgo binding lands.
	s := sensor.NewMock(cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS)

	metrics := observability.NewMetrics()

	cam, err := core.New(cfg, s, afero.NewOsFs(), metrics)
	if err != nil {
		slog.Error("failed to create camera service", "error", err)
		os.Exit(1)
	}

	if err := cam.Run(ctx); err != nil {
		slog.Error("camera service failed", "error", err)
		os.Exit(1)
	}
}
