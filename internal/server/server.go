package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"streamvault/internal/config"
	"streamvault/internal/database"
	"streamvault/internal/metadata"
	"streamvault/internal/recorder"
	"streamvault/internal/users"
)

type FiberServer struct {
	*fiber.App

	cfg *config.Config
	db  database.Service

	userService *users.UserService
	jwtService  *users.JWTService

	registry   *recorder.Registry
	supervisor *recorder.Supervisor
	clipper    *recorder.ClipEngine
	library    *recorder.Library
	tools      *recorder.CaptureTools
	events     *recorder.EventHub
}

func New(cfg *config.Config) (*FiberServer, error) {
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		ServerHeader: "streamvault",
		AppName:      "streamvault",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})

	tools := recorder.NewCaptureTools(cfg.Recorder)
	store := metadata.NewStore(db.GetDatabase(), tools)
	registry := recorder.NewRegistry()
	events := recorder.NewEventHub()
	go events.Run()

	supervisor, err := recorder.NewSupervisor(cfg.Recorder, registry, tools, events)
	if err != nil {
		return nil, err
	}

	server := &FiberServer{
		App:         app,
		cfg:         cfg,
		db:          db,
		userService: users.NewUserService(db.GetDatabase()),
		jwtService:  users.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.Expiration),
		registry:    registry,
		supervisor:  supervisor,
		clipper:     recorder.NewClipEngine(cfg.Recorder, store),
		library:     recorder.NewLibrary(cfg.Recorder.DownloadDir, store),
		tools:       tools,
		events:      events,
	}
	server.applyMiddleware()

	return server, nil
}

func (s *FiberServer) applyMiddleware() {
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(s.cfg.Security.CORSOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.App.Use(limiter.New(limiter.Config{
		Max:        s.cfg.Security.RateLimit,
		Expiration: s.cfg.Security.RateWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // limit by IP address
		},
	}))
}

// Close releases the database connection.
func (s *FiberServer) Close() error {
	return s.db.Close()
}
