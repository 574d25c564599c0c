// intrinsics fetches the scene camera calibration for a serial number,
// caches it and prints it as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-screengaze/internal/config"
	"github.com/teslashibe/go-screengaze/internal/httpc"
	"github.com/teslashibe/go-screengaze/internal/log"
	"github.com/teslashibe/go-screengaze/pkg/camera"
)

func main() {
	envErr := config.LoadDotEnv()
	log.InitFromEnv()
	if envErr != nil {
		log.Warn("could not load .env", "error", envErr)
	}

	serial := flag.String("serial", config.SceneCameraSerial(), "Scene camera serial number")
	cacheDir := flag.String("cache", config.CacheDir(), "Cache directory (empty disables caching)")
	endpoint := flag.String("endpoint", config.CloudEndpoint(), "Calibration URL template with one %s for the serial")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cloud := camera.NewCloud(camera.CloudConfig{Endpoint: *endpoint, CacheDir: *cacheDir}, httpc.Client)
	rec, err := cloud.Fetch(ctx, *serial)
	if err != nil {
		log.Error("fetch intrinsics", "serial", *serial, "error", err)
		os.Exit(1)
	}

	// Make sure the record is usable before reporting success.
	if _, err := rec.Calibration(); err != nil {
		log.Error("invalid intrinsics", "serial", *serial, "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		log.Error("write intrinsics", "error", err)
		os.Exit(1)
	}
	log.Info("intrinsics ready", "serial", *serial, "cache", cloud.CachePath(*serial))
}
