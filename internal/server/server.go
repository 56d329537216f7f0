package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/amlctl/internal/aml"
	"github.com/danmuck/amlctl/internal/archive"
	"github.com/danmuck/amlctl/internal/auth"
	"github.com/danmuck/amlctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	Version = "0.1.0"

	// MaxBodyBytes bounds POST /v1/parse bodies. AML messages are SMS
	// payloads, so anything near this size is not a message.
	MaxBodyBytes = 4 << 10

	shutdownTimeout = 5 * time.Second
)

// Options configures New. A non-empty AuthToken guards /v1 routes. Archive is
// optional; the /v1/messages routes exist only when it is set.
type Options struct {
	ID          string
	Addr        string
	CorsOrigins []string
	AuthToken   string
	Parser      *aml.Parser
	Archive     *archive.Store
	Metrics     bool
}

// Server is the amld diagnostics API: it parses submitted AML text and
// reports what the parser made of it.
type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	parser  *aml.Parser
	archive *archive.Store
	metrics bool
	guard   auth.Validator
	router  *gin.Engine
}

func New(opts Options) *Server {
	if opts.Metrics {
		observability.RegisterMetrics()
	}
	if opts.Parser == nil {
		opts.Parser = aml.NewParser()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	if opts.Metrics {
		r.Use(observability.RequestMetricsMiddleware(opts.ID))
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(opts.CorsOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", observability.HeaderRequestID},
		ExposeHeaders: []string{observability.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:       opts.ID,
		Addr:     opts.Addr,
		Appeared: time.Now(),
		parser:   opts.Parser,
		archive:  opts.Archive,
		metrics:  opts.Metrics,
		router:   r,
	}
	if opts.AuthToken != "" {
		s.guard = auth.StaticToken{Token: opts.AuthToken}
	}
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve registers routes and blocks until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	s.RegisterRoutes()
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	log.Info().Str("id", s.ID).Str("addr", ln.Addr().String()).Msg("amld listening")

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
