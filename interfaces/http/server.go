package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"solidity-audit-bot/infrastructure/logging"
	"solidity-audit-bot/interfaces/http/handler"
	"solidity-audit-bot/interfaces/http/middleware"
)

// Server is the HTTP surface of the audit bot: a thin adapter translating
// request bodies into orchestrator and pipeline calls.
type Server struct {
	router *gin.Engine
	addr   string
	server *http.Server
	logger *slog.Logger
}

// NewServer wires routes, the rate limiter and the handlers.
func NewServer(
	auditHandler *handler.AuditHandler,
	ingestHandler *handler.IngestHandler,
	limiter *middleware.RateLimiter,
	addr string,
) *Server {
	router := gin.Default()

	router.GET("/health", ingestHandler.Health)

	api := router.Group("/api/v1")
	api.Use(limiter.Handler())
	{
		api.POST("/upload", ingestHandler.Upload)
		api.POST("/ingest-address", ingestHandler.IngestAddress)
		api.POST("/ingest-batch", ingestHandler.IngestBatch)
		api.GET("/search", ingestHandler.Search)
		api.GET("/stats", ingestHandler.Stats)

		api.POST("/chat", auditHandler.Chat)
		api.POST("/analyze", auditHandler.Analyze)
		api.POST("/improvements", auditHandler.Improvements)
		api.POST("/explain-vulnerability", auditHandler.ExplainVulnerability)
		api.POST("/clear-conversation", auditHandler.ClearConversation)
	}

	return &Server{
		router: router,
		addr:   addr,
		logger: logging.NewModuleLogger("http", "server"),
	}
}

// Start blocks serving requests until the listener fails or the server is
// shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
