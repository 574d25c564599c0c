package screengaze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/teslashibe/go-screengaze/internal/httpc"
	"github.com/teslashibe/go-screengaze/internal/log"
	"github.com/teslashibe/go-screengaze/pkg/camera"
	"github.com/teslashibe/go-screengaze/pkg/gaze"
	"github.com/teslashibe/go-screengaze/pkg/pose"
	"github.com/teslashibe/go-screengaze/pkg/protocol"
	"github.com/teslashibe/go-screengaze/pkg/surface"
	"github.com/teslashibe/go-screengaze/pkg/web"
)

// App runs the pipeline: frames in, one JSON line of mapped gaze out per frame.
type App struct {
	config Config
	logger *slog.Logger

	mapper    *gaze.Mapper
	source    FrameSource
	samples   []gaze.Point
	webServer *web.Server

	out io.Writer
}

// New creates an application with the given configuration.
func New(cfg Config) (*App, error) {
	cfg.LoadEnvConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &App{
		config: cfg,
		logger: log.Component("screengaze"),
		out:    os.Stdout,
	}, nil
}

// SetOutput redirects the JSON lines.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// Init loads the calibration, surfaces and gaze samples and opens the video.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	cal, err := a.loadCalibration(ctx)
	if err != nil {
		return fmt.Errorf("calibration: %w", err)
	}

	est, err := pose.ByName(a.config.Estimator)
	if err != nil {
		return err
	}
	a.mapper, err = gaze.NewMapper(cal,
		gaze.WithEstimator(est),
		gaze.WithTrackerConfig(a.config.Tracker),
		gaze.WithLogger(a.logger.With("component", "gaze")),
	)
	if err != nil {
		return fmt.Errorf("mapper: %w", err)
	}

	layouts, err := surface.LoadLayouts(a.config.SurfacesPath)
	if err != nil {
		return fmt.Errorf("surfaces: %w", err)
	}
	defs, err := a.mapper.AddLayouts(layouts)
	if err != nil {
		return fmt.Errorf("surfaces: %w", err)
	}
	for _, d := range defs {
		a.logger.Info("surface registered", "name", d.Name, "uid", d.UID, "markers", d.MarkerIDs())
	}

	if a.config.GazePath != "" {
		if a.samples, err = gaze.LoadCSV(a.config.GazePath); err != nil {
			return fmt.Errorf("gaze: %w", err)
		}
		sort.SliceStable(a.samples, func(i, j int) bool {
			return a.samples[i].Timestamp.Before(a.samples[j].Timestamp)
		})
		a.logger.Info("gaze loaded", "samples", len(a.samples))
	}

	if a.source, err = OpenVideo(a.config.VideoPath, a.config.Detector); err != nil {
		return err
	}

	if a.config.DashboardPort != "" {
		a.webServer = web.NewServer(a.config.DashboardPort, a.mapper)
		a.webServer.SetEstimator(a.config.Estimator)
		a.webServer.StartAsync()
	}
	return nil
}

// Run processes frames until the video ends or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.webServer != nil {
		a.webServer.SetRunning(true)
		defer a.webServer.SetRunning(false)
	}

	enc := json.NewEncoder(a.out)
	origin := a.config.VideoStart
	if origin.IsZero() && len(a.samples) > 0 {
		origin = a.samples[0].Timestamp
	}

	cursor := 0
	frames := 0
	for {
		frame, err := a.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		// Samples taken up to this frame's timestamp are mapped with its pose.
		at := origin.Add(frame.Offset)
		start := cursor
		for cursor < len(a.samples) && !a.samples[cursor].Timestamp.After(at) {
			cursor++
		}

		result := a.mapper.ProcessDetections(frame.Markers, a.samples[start:cursor]...)
		if err := enc.Encode(protocol.Gaze(result, a.mapper.Surfaces())); err != nil {
			return fmt.Errorf("write frame %d: %w", frame.Index, err)
		}
		if a.webServer != nil {
			if err := a.webServer.Publish(result); err != nil {
				a.logger.Warn("dashboard publish failed", "error", err)
			}
		}
		frames++
	}

	a.logger.Info("video finished", "frames", frames, "gaze_unmapped", len(a.samples)-cursor)
	return nil
}

// Shutdown releases the video and stops the dashboard.
func (a *App) Shutdown() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("close video", "error", err)
		}
	}
	if a.mapper != nil {
		a.mapper.Close()
	}
	if a.webServer != nil {
		a.webServer.Shutdown()
	}
}

func (a *App) loadCalibration(ctx context.Context) (camera.Calibration, error) {
	if a.config.CalibrationPath != "" {
		return camera.LoadCalibration(a.config.CalibrationPath)
	}

	ctx, cancel := context.WithTimeout(ctx, httpc.DefaultTimeout)
	defer cancel()

	cloud := camera.NewCloud(camera.CloudConfig{
		Endpoint: a.config.CloudEndpoint,
		CacheDir: a.config.CacheDir,
	}, httpc.Client)
	start := time.Now()
	cal, err := cloud.Calibration(ctx, a.config.Serial)
	if err != nil {
		return camera.Calibration{}, err
	}
	a.logger.Info("calibration loaded", "serial", a.config.Serial, "took", time.Since(start).Round(time.Millisecond))
	return cal, nil
}
