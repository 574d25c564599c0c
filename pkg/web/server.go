// Package web provides the live gaze dashboard API
package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-screengaze/internal/log"
	"github.com/teslashibe/go-screengaze/pkg/gaze"
	"github.com/teslashibe/go-screengaze/pkg/hub"
	"github.com/teslashibe/go-screengaze/pkg/protocol"
)

// Server is the dashboard server
type Server struct {
	app    *fiber.App
	port   string
	mapper *gaze.Mapper
	logger *slog.Logger

	// Hub for websocket broadcast
	gazeHub *hub.Hub

	// Pipeline state
	mu        sync.RWMutex
	started   time.Time
	running   bool
	frames    uint64
	located   int
	estimator string
	lastGaze  *hub.Message // Latest gaze message, sent to new clients
}

// NewServer creates a dashboard for a gaze mapper
func NewServer(port string, mapper *gaze.Mapper) *Server {
	s := &Server{
		port:    port,
		mapper:  mapper,
		logger:  log.Component("web"),
		gazeHub: hub.New("gaze"),
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Screen Gaze Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/surfaces", s.handleListSurfaces)
	api.Post("/surfaces", s.handleAddSurfaces)
	api.Put("/surfaces/:uid", s.handleReplaceSurface)
	api.Delete("/surfaces/:uid", s.handleRemoveSurface)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/gaze", websocket.New(s.handleGazeWS))

	s.app = app
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the hub and blocks serving HTTP
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "url", "http://localhost:"+s.port)

	go s.gazeHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Warn("dashboard stopped", "error", err)
		}
	}()
}

// SetRunning records whether frames are being processed
func (s *Server) SetRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
	s.broadcastStatus()
}

// SetEstimator records the pose estimator name for the status endpoint
func (s *Server) SetEstimator(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimator = name
}

// Publish broadcasts a processed frame to gaze clients
func (s *Server) Publish(result gaze.Result) error {
	msg, err := protocol.NewGazeMessage(result, s.mapper.Surfaces())
	if err != nil {
		return err
	}
	encoded, err := hub.Encode(msg)
	if err != nil {
		return err
	}

	located := 0
	for _, loc := range result.Locations {
		if loc.Resolved() {
			located++
		}
	}

	s.mu.Lock()
	s.frames++
	s.located = located
	s.lastGaze = &encoded
	s.mu.Unlock()

	s.gazeHub.Broadcast(encoded)
	return nil
}

// Status returns the current pipeline status
func (s *Server) Status() protocol.StatusData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return protocol.StatusData{
		Running:   s.running,
		Frames:    s.frames,
		Surfaces:  len(s.mapper.Surfaces()),
		Located:   s.located,
		Clients:   s.gazeHub.ClientCount(),
		Estimator: s.estimator,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}
}

// GetGazeHub returns the gaze hub for external use
func (s *Server) GetGazeHub() *hub.Hub {
	return s.gazeHub
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.gazeHub.Stop()
	return s.app.Shutdown()
}

func (s *Server) broadcastStatus() {
	msg, err := protocol.NewStatusMessage(s.Status())
	if err != nil {
		return
	}
	if err := s.gazeHub.Publish(msg); err != nil {
		s.logger.Warn("status broadcast failed", "error", err)
	}
}

func (s *Server) broadcastSurfaces() {
	msg, err := protocol.NewSurfacesMessage(s.mapper.Surfaces())
	if err != nil {
		return
	}
	if err := s.gazeHub.Publish(msg); err != nil {
		s.logger.Warn("surfaces broadcast failed", "error", err)
	}
}
