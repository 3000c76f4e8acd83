package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"shelfmark/internal/api"
	"shelfmark/internal/config"
	"shelfmark/internal/logging"
	"shelfmark/internal/services"
)

const requestIDHeader = "X-Request-ID"

type apiServer struct {
	bind      string
	logger    *slog.Logger
	svc       *api.Service
	tokens    TokenService
	maxUpload int64
	debug     bool

	router   *gin.Engine
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, svc *api.Service, logger *slog.Logger) *apiServer {
	gin.SetMode(gin.ReleaseMode)
	srv := &apiServer{
		bind:      strings.TrimSpace(cfg.Server.Bind),
		logger:    logging.NewComponentLogger(logger, "api-server"),
		svc:       svc,
		tokens:    NewTokenService(cfg.Server.JWTSecret, cfg.TokenTTL()),
		maxUpload: int64(cfg.Server.MaxUploadMB) << 20,
		debug:     cfg.Debug,
	}

	router := gin.New()
	router.Use(gin.Recovery(), srv.requestContext(), srv.accessLog())
	router.GET("/healthz", srv.handleHealth)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware(srv.tokens))
	v1.POST("/ingest", srv.handleIngest)
	v1.POST("/ingest/input", srv.handleIngestInput)
	v1.POST("/years", srv.handleYears)
	v1.POST("/confirm", srv.handleConfirm)
	v1.POST("/confirm/all", srv.handleConfirmAll)
	v1.GET("/pending", srv.handleListPending)
	v1.PATCH("/pending/:id", srv.handleUpdatePending)
	v1.DELETE("/pending/:id", srv.handleDiscard)
	srv.router = router

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// requestContext stamps a correlation id on the request context and echoes it
// back in the response header.
func (s *apiServer) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if incoming := strings.TrimSpace(c.GetHeader(requestIDHeader)); incoming != "" && len(incoming) <= 128 {
			ctx = services.WithRequestID(ctx, incoming)
		}
		ctx, rid := services.EnsureRequestID(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}

func (s *apiServer) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger := logging.WithContext(c.Request.Context(), s.logger)
		attrs := logging.Args(
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
		)
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request failed", attrs...)
			return
		}
		logger.Debug("request served", attrs...)
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// statusForKind maps an error kind onto the HTTP status returned to callers.
func statusForKind(kind string) int {
	switch kind {
	case services.KindInput:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindConflict:
		return http.StatusConflict
	case services.KindNotReady:
		return http.StatusServiceUnavailable
	case services.KindUpstream:
		return http.StatusBadGateway
	case services.KindTimeout:
		return http.StatusGatewayTimeout
	case services.KindConfiguration:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeError(c *gin.Context, err error) {
	kind := services.Kind(err)
	status := statusForKind(kind)
	rid, _ := services.RequestIDFromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logging.WithContext(c.Request.Context(), s.logger), "request error", "api_request_failed",
			logging.String("path", c.FullPath()),
			logging.String("kind", kind),
			logging.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Error:     services.PublicMessage(err, s.debug),
		Kind:      kind,
		RequestID: rid,
	})
}

func (s *apiServer) badRequest(c *gin.Context, op, message string) {
	s.writeError(c, services.Wrap(services.ErrValidation, "api", op, message, nil))
}
