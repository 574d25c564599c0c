// screengaze maps recorded gaze onto marker-tagged screens.
//
// It detects AprilTag markers in every frame of a scene camera video,
// locates the surfaces described in a layout file and prints one JSON line
// per frame with the gaze samples mapped onto each surface.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-screengaze/internal/config"
	"github.com/teslashibe/go-screengaze/internal/log"
	"github.com/teslashibe/go-screengaze/pkg/screengaze"
	"github.com/teslashibe/go-screengaze/pkg/tracking"
)

func main() {
	envErr := config.LoadDotEnv()

	cfg := parseFlags()
	if cfg.Debug {
		log.Init("debug")
	} else {
		log.InitFromEnv()
	}
	if envErr != nil {
		log.Warn("could not load .env", "error", envErr)
	}

	app, err := screengaze.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		log.Error("initialization failed", "error", err)
		app.Shutdown()
		os.Exit(1)
	}
	defer app.Shutdown()

	if err := app.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		app.Shutdown()
		os.Exit(1)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() screengaze.Config {
	cfg := screengaze.DefaultConfig()

	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	flag.StringVar(&cfg.VideoPath, "video", "", "Scene camera video file")
	flag.StringVar(&cfg.GazePath, "gaze", "", "Gaze CSV (timestamp_ns,x,y[,worn])")
	flag.StringVar(&cfg.SurfacesPath, "surfaces", "", "Surface layouts JSON")
	flag.StringVar(&cfg.CalibrationPath, "calibration", "", "Scene camera intrinsics JSON (skips the cloud lookup)")
	flag.StringVar(&cfg.Serial, "serial", cfg.Serial, "Scene camera serial for the cloud intrinsics lookup")
	flag.StringVar(&cfg.Estimator, "estimator", cfg.Estimator, "Pose estimator: dlt, ransac, opencv")
	flag.StringVar(&cfg.DashboardPort, "dashboard", "", "Serve the live dashboard on this port")
	flag.Float64Var(&cfg.Tracker.MinMarkerConfidence, "min-confidence", cfg.Tracker.MinMarkerConfidence, "Ignore markers below this confidence")
	flag.IntVar(&cfg.Tracker.MaxStaleFrames, "max-stale", cfg.Tracker.MaxStaleFrames, "Frames a lost surface keeps its last pose (0 = no limit)")
	strict := flag.Bool("strict", false, "Reuse a lost surface's pose for one frame only (overrides -max-stale)")
	videoStart := flag.Int64("video-start-ns", 0, "Unix nanoseconds of the first video frame (default: first gaze sample)")

	flag.Parse()

	if *strict {
		cfg.Tracker.MaxStaleFrames = tracking.StrictConfig().MaxStaleFrames
	}
	if *videoStart != 0 {
		cfg.VideoStart = time.Unix(0, *videoStart)
	}
	if cfg.DashboardPort == "" && config.Bool("SCREENGAZE_DASHBOARD", false) {
		cfg.DashboardPort = config.DashboardPort()
	}
	return cfg
}
