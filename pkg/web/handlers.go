package web

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-screengaze/pkg/hub"
	"github.com/teslashibe/go-screengaze/pkg/protocol"
	"github.com/teslashibe/go-screengaze/pkg/surface"
)

// handleStatus returns the pipeline status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleListSurfaces returns the registered surfaces
func (s *Server) handleListSurfaces(c *fiber.Ctx) error {
	return c.JSON(protocol.Surfaces(s.mapper.Surfaces()))
}

// handleAddSurfaces registers surfaces from a layout file body
func (s *Server) handleAddSurfaces(c *fiber.Ctx) error {
	layouts, err := surface.ParseLayouts(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	defs, err := s.mapper.AddLayouts(layouts)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, surface.ErrDuplicateMarkerAssignment) {
			status = fiber.StatusConflict
		}
		// Layouts before the failing one stay registered.
		s.broadcastSurfaces()
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.broadcastSurfaces()
	return c.Status(fiber.StatusCreated).JSON(protocol.Surfaces(defs))
}

// handleReplaceSurface re-registers a surface from a single layout body,
// keeping its uid
func (s *Server) handleReplaceSurface(c *fiber.Ctx) error {
	uid := c.Params("uid")

	layout, err := surface.ParseLayout(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	quads, err := layout.Quads()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	def, err := s.mapper.ReplaceSurface(uid, quads, layout.Size(), layout.Name)
	if err != nil {
		status := fiber.StatusBadRequest
		switch {
		case errors.Is(err, surface.ErrNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, surface.ErrDuplicateMarkerAssignment):
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.broadcastSurfaces()
	return c.JSON(protocol.Surfaces([]*surface.Definition{def}))
}

// handleRemoveSurface unregisters a surface
func (s *Server) handleRemoveSurface(c *fiber.Ctx) error {
	uid := c.Params("uid")

	if err := s.mapper.RemoveSurface(uid); err != nil {
		if errors.Is(err, surface.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.broadcastSurfaces()
	return c.SendStatus(fiber.StatusNoContent)
}

// handleGazeWS streams surfaces and gaze to a client, starting with the
// current surface list and the latest frame. The optional topics query
// parameter (e.g. ?topics=gaze,status) limits the stream.
func (s *Server) handleGazeWS(c *websocket.Conn) {
	topics := parseTopics(c.Query("topics"))
	var initial []hub.Message

	if msg, err := protocol.NewSurfacesMessage(s.mapper.Surfaces()); err == nil {
		if m, err := hub.Encode(msg); err == nil {
			initial = append(initial, m)
		}
	}

	s.mu.RLock()
	if s.lastGaze != nil {
		initial = append(initial, *s.lastGaze)
	}
	s.mu.RUnlock()

	hub.NewClient(s.gazeHub, c, topics, initial...).Run()
}

// parseTopics reads a comma separated topic list. Unknown names are ignored.
func parseTopics(raw string) hub.Topics {
	var types []protocol.MessageType
	for _, name := range strings.Split(raw, ",") {
		switch t := protocol.MessageType(strings.TrimSpace(name)); t {
		case protocol.TypeGaze, protocol.TypeSurfaces, protocol.TypeStatus:
			types = append(types, t)
		}
	}
	return hub.NewTopics(types...)
}
