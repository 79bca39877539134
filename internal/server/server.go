package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/binpoints/apiserver/config"
	"github.com/binpoints/apiserver/internal/db"
	"github.com/binpoints/apiserver/internal/events"
	"github.com/binpoints/apiserver/internal/handlers"
	"github.com/binpoints/apiserver/internal/mq"
	"github.com/binpoints/apiserver/internal/services"
	"github.com/binpoints/apiserver/internal/storage"
	"github.com/binpoints/apiserver/internal/store"
)

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	store      *store.Store
	queue      *mq.MQ
	publisher  *events.Publisher
	redis      *redis.Client
}

// New opens every backing service named in cfg and builds the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	st := store.New(conn)

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open object storage: %w", err)
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open message queue: %w", err)
	}
	var publisher *events.Publisher
	if queue != nil {
		publisher = events.NewPublisher(queue, cfg.MQ.ActionsChannel, slog.Default())
		st.OnAction(publisher.Observe)
	}

	rdb := newRedisClient(ctx, cfg.Redis)

	api := handlers.NewAPI(services.New(st, objects, cfg.Rules), st, handlers.Options{
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		MaxUploadBytes: cfg.Rules.MaxUploadBytes,
		Limit:          handlers.RateLimit(cfg.RateLimit, rdb),
	})

	router := NewRouter(api, cfg.CORSAllowedOrigins)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		store:      st,
		queue:      queue,
		publisher:  publisher,
		redis:      rdb,
	}, nil
}

// NewRouter builds the chi router with the standard middleware stack.
func NewRouter(api *handlers.API, allowedOrigins []string) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	if len(allowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	api.Mount(router)
	return router
}

// newRedisClient returns nil when no address is configured or the server
// does not answer, which disables rate limiting.
func newRedisClient(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, rate limiting disabled", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the backing services.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	return err
}
