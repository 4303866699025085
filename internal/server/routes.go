package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"streamvault/internal/recorder"
	"streamvault/internal/users"
)

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Get("/", s.HelloHandler)
	s.App.Get("/health", s.healthHandler)

	// User routes (public)
	userHandler := users.NewUserHandler(s.userService, s.jwtService)
	s.App.Post("/user/register", userHandler.CreateUser)
	s.App.Post("/user/login", userHandler.LoginUser)

	recorderHandler := recorder.NewHandler(s.supervisor, s.clipper, s.library, s.registry, s.tools)

	// Artifact downloads (public - no auth required for playback)
	s.App.Get("/downloads/:filename", recorderHandler.Download)

	// Protected routes
	api := s.App.Group("/api", users.AuthMiddleware(s.jwtService))

	api.Get("/user/me", userHandler.GetUser)

	api.Post("/recorder/start", recorderHandler.StartRecording)
	api.Post("/recorder/stop", recorderHandler.StopRecording)
	api.Get("/recorder/status", recorderHandler.Status)
	api.Post("/recorder/trim", recorderHandler.Trim)
	api.Delete("/recorder/recordings/:filename", recorderHandler.DeleteRecording)
	api.Get("/recorder/tools", recorderHandler.Tools)

	// WebSocket route broadcasting session lifecycle events
	s.App.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.App.Get("/ws", websocket.New(s.events.ServeWS))
}

func (s *FiberServer) HelloHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "streamvault live recorder",
	})
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	return c.JSON(s.db.Health())
}
