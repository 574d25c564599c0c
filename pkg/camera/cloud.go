package camera

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-screengaze/internal/httpc"
	"github.com/teslashibe/go-screengaze/internal/log"
)

// maxRecordSize bounds intrinsics responses.
const maxRecordSize = 1 << 20

// CloudConfig configures intrinsics retrieval for a scene camera serial.
type CloudConfig struct {
	Endpoint string // URL template with one %s for the serial
	CacheDir string // Directory for intrinsics.<serial>.json; empty disables caching
}

// Cloud fetches scene camera intrinsics from the hardware calibration service
// and caches them on disk.
type Cloud struct {
	config CloudConfig
	client *http.Client
	logger *slog.Logger
}

// NewCloud creates a calibration fetcher. A nil client uses the shared httpc client.
func NewCloud(cfg CloudConfig, client *http.Client) *Cloud {
	if client == nil {
		client = httpc.Client
	}
	return &Cloud{
		config: cfg,
		client: client,
		logger: log.Component("camera.cloud"),
	}
}

// CachePath returns the cache file used for serial.
func (c *Cloud) CachePath(serial string) string {
	if c.config.CacheDir == "" {
		return ""
	}
	return filepath.Join(c.config.CacheDir, fmt.Sprintf("intrinsics.%s.json", serial))
}

// Fetch returns the intrinsics record for serial, reading the cache first.
// A failed cache write is logged and otherwise ignored.
func (c *Cloud) Fetch(ctx context.Context, serial string) (*Record, error) {
	if serial == "" || strings.ContainsAny(serial, `/\`) {
		return nil, fmt.Errorf("invalid scene camera serial %q", serial)
	}

	if path := c.CachePath(serial); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var rec Record
			if err := json.Unmarshal(data, &rec); err == nil {
				c.logger.Debug("intrinsics cache hit", "serial", serial, "path", path)
				return &rec, nil
			}
			c.logger.Warn("ignoring unreadable intrinsics cache", "path", path)
		}
	}

	url := fmt.Sprintf(c.config.Endpoint, serial)
	body, err := httpc.GetBody(ctx, c.client, url, maxRecordSize)
	if err != nil {
		return nil, fmt.Errorf("fetch intrinsics for %s: %w", serial, err)
	}

	var envelope struct {
		Result *Record `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode intrinsics for %s: %w", serial, err)
	}
	if envelope.Result == nil {
		return nil, fmt.Errorf("%w: response for %s has no result", ErrInvalidCalibration, serial)
	}

	if path := c.CachePath(serial); path != "" {
		if err := writeCache(path, envelope.Result); err != nil {
			c.logger.Warn("unable to cache intrinsics", "path", path, "error", err)
		}
	}
	return envelope.Result, nil
}

// Calibration fetches and converts the intrinsics for serial.
func (c *Cloud) Calibration(ctx context.Context, serial string) (Calibration, error) {
	rec, err := c.Fetch(ctx, serial)
	if err != nil {
		return Calibration{}, err
	}
	return rec.Calibration()
}

func writeCache(path string, rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
