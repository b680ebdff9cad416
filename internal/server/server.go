package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alumninet/apiserver/config"
	"github.com/alumninet/apiserver/internal/db"
	"github.com/alumninet/apiserver/internal/handlers"
	"github.com/alumninet/apiserver/internal/metrics"
	"github.com/alumninet/apiserver/internal/middleware"
	"github.com/alumninet/apiserver/internal/mq"
	"github.com/alumninet/apiserver/internal/services"
	"github.com/alumninet/apiserver/internal/storage"
	"github.com/alumninet/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Server wraps the HTTP server and its shared resources.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
	limiter    *middleware.RateLimiter
}

// New constructs a Server with all dependencies wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	orgRepo := store.NewOrganisationRepository(dbConn)

	userService := services.NewUserService(userRepo)
	orgService := services.NewOrganisationService(orgRepo)

	avatarService, err := buildAvatarService(ctx, cfg.Storage, userRepo)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	broker, err := buildBroker(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var events *services.Events
	if broker != nil {
		events = services.NewEvents(broker, slog.Default())
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	authMiddleware := handlers.RequireAuth(cfg.JWTSecret, userService)
	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst)

	authHandler := handlers.NewAuthHandler(userService, orgService, events, collector, cfg.JWTSecret)
	userHandler := handlers.NewUserHandler(userService, orgService, avatarService)
	orgHandler := handlers.NewOrganisationHandler(orgService, userService)

	router := chi.NewRouter()
	router.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		chimiddleware.Logger,
		chimiddleware.Timeout(60*time.Second),
		collector.Middleware,
	)
	router.Get("/healthz", handlers.Healthz(dbConn))
	router.Method(http.MethodGet, "/metrics", metrics.Handler(registry))
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			handlers.AuthRouter(r, authHandler)
		})
		r.Route("/user", func(r chi.Router) {
			handlers.UserRouter(r, userHandler, authMiddleware)
		})
		r.Route("/organisation", func(r chi.Router) {
			handlers.OrganisationRouter(r, orgHandler, authMiddleware)
		})
	})

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
		db:         dbConn,
		broker:     broker,
		limiter:    authLimiter,
	}, nil
}

func buildAvatarService(ctx context.Context, cfg config.StorageConfig, users services.UserRepository) (*services.AvatarService, error) {
	var backend storage.ObjectStorage
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	st := storage.NewStorage(backend)
	if err := st.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure avatar bucket: %w", err)
	}
	return services.NewAvatarService(st, users), nil
}

func buildBroker(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown releases shared resources and stops the HTTP server.
func (s *Server) Shutdown() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
