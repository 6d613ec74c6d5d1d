package server

import (
	"time"

	"github.com/danmuck/darling/internal/auth"
	"github.com/danmuck/darling/internal/dispatch"
	"github.com/danmuck/darling/internal/observability"
	"github.com/danmuck/darling/internal/registry"
	"github.com/danmuck/darling/pkg/backend"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const Version = "0.1.0"

// Source is the host state the API reads. *host.Host satisfies it.
type Source interface {
	Registry() *registry.Registry
	Dispatcher() *dispatch.Dispatcher
	Installed() map[string][]backend.InstallationEntry
}

type Server struct {
	Addr    string
	Started time.Time

	src    Source
	router *gin.Engine
	logger zerolog.Logger
}

type Option func(*gin.Engine)

// WithToken requires token as a bearer token on every route except /health.
// An empty token leaves the API open.
func WithToken(token string) Option {
	return func(r *gin.Engine) {
		if token != "" {
			r.Use(auth.Middleware(auth.StaticToken{Token: token}, "/health"))
		}
	}
}

// New builds the router with logging, metrics and CORS middleware and
// registers every route.
func New(src Source, addr string, corsOrigins []string, logger zerolog.Logger, opts ...Option) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", observability.HeaderRequestID},
		MaxAge:       12 * time.Hour,
	}))
	trustProxies(r, logger, localProxies)
	for _, opt := range opts {
		opt(r)
	}

	s := &Server{
		Addr:    addr,
		Started: time.Now(),
		src:     src,
		router:  r,
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Serve() error {
	s.logger.Info().Str("addr", s.Addr).Int("backends", s.src.Registry().Len()).Msg("status api listening")
	return s.router.Run(s.Addr)
}

var localProxies = []string{"127.0.0.1", "::1"}

// trustProxies honours forwarding headers only from proxies. When gin rejects
// the list the headers are ignored altogether.
func trustProxies(r *gin.Engine, logger zerolog.Logger, proxies []string) {
	if err := r.SetTrustedProxies(proxies); err != nil {
		logger.Error().Err(err).Strs("proxies", proxies).Msg("trusted proxies rejected, forwarding headers ignored")
		r.ForwardedByClientIP = false
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
