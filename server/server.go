// Package server exposes the pipeline over HTTP: blocking and streaming query
// endpoints plus session management, backed by Fiber.
package server

import (
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/knowbot-ai/knowbot/graph/store"
	"github.com/knowbot-ai/knowbot/pipeline"
)

// Server wires the pipeline to HTTP handlers.
type Server struct {
	app      *fiber.App
	pipeline *pipeline.Pipeline
	log      *zap.Logger
}

// New builds the HTTP server. registry may be nil to skip the /metrics
// endpoint.
func New(p *pipeline.Pipeline, log *zap.Logger, registry *prometheus.Registry) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "knowbot",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	s := &Server{app: app, pipeline: p, log: log}

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)
	app.Post("/api/query", s.handleQuery)
	app.Post("/api/stream", s.handleStream)
	app.Get("/api/sessions", s.handleListSessions)
	app.Get("/api/sessions/:id", s.handleGetSession)
	app.Delete("/api/sessions/:id", s.handleForgetSession)
	app.Delete("/api/sessions", s.handleClearSessions)
	if registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	return s
}

// Listen serves requests on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// queryRequest is the body of /api/query and /api/stream.
type queryRequest struct {
	Query                string `json:"query"`
	SessionID            string `json:"session_id"`
	GlobalTargetLanguage string `json:"global_target_language,omitempty"`
}

func (r *queryRequest) validate() error {
	if r.Query == "" {
		return errors.New("query is required")
	}
	if r.SessionID == "" {
		return errors.New("session_id is required")
	}
	return nil
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name": "knowbot",
		"endpoints": []string{
			"GET /health",
			"POST /api/query",
			"POST /api/stream",
			"GET /api/sessions",
			"GET /api/sessions/:id",
			"DELETE /api/sessions/:id",
			"DELETE /api/sessions",
		},
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := s.pipeline.Run(c.Context(), req.SessionID, req.Query, pipeline.RunOptions{
		GlobalTargetLanguage: req.GlobalTargetLanguage,
	})
	if err != nil {
		s.log.Error("query run failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions, err := s.pipeline.Sessions(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	state, err := s.pipeline.SessionState(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"session_id":   c.Params("id"),
		"chat_history": state.ChatHistory,
		"summary":      state.Summary,
	})
}

func (s *Server) handleForgetSession(c *fiber.Ctx) error {
	existed, err := s.pipeline.Forget(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"deleted": existed})
}

func (s *Server) handleClearSessions(c *fiber.Ctx) error {
	existed, err := s.pipeline.ClearAll(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"cleared": existed})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
