package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/thereayou/workspace-relay/internal/config"
	"github.com/thereayou/workspace-relay/internal/database"
	"github.com/thereayou/workspace-relay/internal/handlers"
	"github.com/thereayou/workspace-relay/internal/logging"
	"github.com/thereayou/workspace-relay/internal/moderation"
	"github.com/thereayou/workspace-relay/internal/pipeline"
	"github.com/thereayou/workspace-relay/internal/storage"
	"github.com/thereayou/workspace-relay/internal/websocket"
	"github.com/thereayou/workspace-relay/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Config     *config.Config
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *websocket.Hub

	messages *handlers.MessageHandler
	http     *http.Server
	log      zerolog.Logger
}

// NewServer wires every component from cfg.
func NewServer(cfg *config.Config) (*Server, error) {
	log := logging.New(cfg.Log.Level, cfg.IsDevelopment())
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
	} else {
		log.Warn().Msg("REDIS_URL not set, token revocation disabled")
	}

	store, err := storage.NewOSStore(cfg.Storage.UploadsDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("uploads: %w", err)
	}

	jwtMgr := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL)
	hub := websocket.NewHub(log)
	modClient := moderation.NewClient(cfg.Moderation, &http.Client{}, log)

	ingest := pipeline.New(db, modClient, store, hub, log,
		pipeline.WithFailurePolicy(cfg.Moderation.FailurePolicy),
		pipeline.WithUnsupportedMediaPolicy(cfg.Moderation.UnsupportedMediaPolicy),
	)

	messages := handlers.NewMessageHandler(context.Background(), ingest, cfg.JWT.RequireAuth, log)

	s := &Server{
		Config:     cfg,
		DB:         db,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Hub:        hub,
		messages:   messages,
		log:        log,
	}
	s.Router = s.routes(store)
	return s, nil
}

func (s *Server) routes(store *storage.Store) *gin.Engine {
	router := newRouter(s.log, s.Config.Server.AllowedOrigin)

	deps := endpoints{
		health:   handlers.NewHealthHandler(s.DB),
		history:  handlers.NewHTTPMessageHandler(s.DB, s.log),
		upload:   handlers.NewUploadHandler(store, s.Config.Server.PublicBaseURL, s.log),
		users:    handlers.NewUserHandler(s.DB, s.Hub),
		ws:       handlers.NewWebSocketHandler(s.Hub, s.messages, s.Config.Server.AllowedOrigin, s.log),
		files:    store.FileSystem(),
		jwt:      s.JWTManager,
		redis:    s.Redis,
		wsAuth:   s.Config.JWT.RequireAuth,
		accounts: s.Config.JWT.Secret != "",
	}
	if deps.accounts {
		deps.auth = handlers.NewAuthHandler(s.DB, s.JWTManager, s.Redis, s.log)
	}

	APIEndpoints(router, deps)
	return router
}

// Run serves HTTP until ctx is cancelled and then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run()

	s.http = &http.Server{
		Addr:              ":" + s.Config.Server.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("port", s.Config.Server.Port).Msg("relay listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.shutdown()
			return err
		}
	case <-ctx.Done():
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	s.log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// no new handshakes; live sockets stay open so drained messages can still be delivered
	err := s.http.Shutdown(ctx)

	if derr := s.messages.Drain(ctx); derr != nil {
		s.log.Warn().Err(derr).Msg("in-flight messages did not finish before deadline")
	}
	s.Hub.Stop()

	if s.Redis != nil {
		s.Redis.Close()
	}
	if cerr := s.DB.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
