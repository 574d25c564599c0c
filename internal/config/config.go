// Package config provides configuration helpers for go-screengaze commands.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default settings.
const (
	DefaultDashboardPort = "8090"
	DefaultCacheDir      = "cache"
	DefaultCloudEndpoint = "https://api.cloud.pupil-labs.com/hardware/%s/calibration.v1?json"
	DefaultSerial        = "default"
)

// LoadDotEnv loads variables from the given .env files (".env" when none
// are given). Missing files are not an error; variables already set in the
// process environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// String returns the env var value or def when unset.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Float returns the env var parsed as float64, or def when unset or invalid.
func Float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Bool returns the env var parsed as bool, or def when unset or invalid.
func Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// DashboardPort returns the dashboard port from SCREENGAZE_PORT.
func DashboardPort() string {
	return String("SCREENGAZE_PORT", DefaultDashboardPort)
}

// CacheDir returns the intrinsics cache directory from SCREENGAZE_CACHE_DIR.
func CacheDir() string {
	return String("SCREENGAZE_CACHE_DIR", DefaultCacheDir)
}

// CloudEndpoint returns the intrinsics endpoint template from
// SCREENGAZE_CLOUD_ENDPOINT. The template takes the scene camera serial.
func CloudEndpoint() string {
	return String("SCREENGAZE_CLOUD_ENDPOINT", DefaultCloudEndpoint)
}

// SceneCameraSerial returns the scene camera serial from SCENE_CAMERA_SERIAL.
func SceneCameraSerial() string {
	return String("SCENE_CAMERA_SERIAL", DefaultSerial)
}
