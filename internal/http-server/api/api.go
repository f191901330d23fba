package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/cors"

	"qiming/internal/config"
	"qiming/internal/http-server/handlers/auth"
	"qiming/internal/http-server/handlers/errors"
	"qiming/internal/http-server/handlers/favorite"
	"qiming/internal/http-server/handlers/health"
	"qiming/internal/http-server/handlers/name"
	"qiming/internal/http-server/middleware/authenticate"
	"qiming/internal/http-server/middleware/iplimit"
	"qiming/internal/http-server/middleware/timeout"
	"qiming/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Core
	auth.Core
	name.Core
	favorite.Core
}

// New builds the router and the http server. Generation requests get a long
// deadline because the upstream model call can take most of a minute; every
// other route is cut off quickly.
func New(conf *config.Config, log *slog.Logger, handler Handler) *Server {

	server := &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	authLimiter := iplimit.New(
		conf.RateLimit.AuthMaxRequests,
		time.Duration(conf.RateLimit.AuthWindowMinutes)*time.Minute,
	)
	authMw := authenticate.New(log, handler)

	corsMw := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(conf.CorsOrigins, ","),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(corsMw.Handler)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/api", func(rootApi chi.Router) {
		rootApi.Get("/health", health.Check())

		rootApi.Route("/auth", func(rootAuth chi.Router) {
			rootAuth.Use(timeout.Timeout(5))
			rootAuth.With(authLimiter.Middleware(log)).Post("/validate", auth.Validate(log, handler))
			rootAuth.With(authLimiter.Middleware(log)).Post("/recover", auth.Recover(log, handler))
			rootAuth.With(authMw).Get("/status", auth.Status(log, handler))
		})

		rootApi.Route("/name", func(rootName chi.Router) {
			rootName.Use(authMw)
			rootName.With(timeout.Timeout(150)).Post("/generate", name.Generate(log, handler))
			rootName.With(timeout.Timeout(5)).Get("/history", name.History(log, handler))
			rootName.With(timeout.Timeout(5)).Get("/history/{id}", name.HistoryDetail(log, handler))
			rootName.With(timeout.Timeout(5)).Get("/stats", name.Stats(log, handler))
			rootName.With(timeout.Timeout(5)).Get("/rate-limit", name.RateLimit(log, handler))
		})

		rootApi.Route("/favorites", func(rootFav chi.Router) {
			rootFav.Use(timeout.Timeout(5))
			rootFav.Use(authMw)
			rootFav.Post("/", favorite.Add(log, handler))
			rootFav.Get("/", favorite.List(log, handler))
			rootFav.Delete("/{id}", favorite.Remove(log, handler))
			rootFav.Get("/check/{nameId}", favorite.Check(log, handler))
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server
}

func (s *Server) Run() error {
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIp, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	s.log.Info("starting api server", slog.String("address", serverAddress))
	return s.httpServer.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
