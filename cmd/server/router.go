package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/thereayou/workspace-relay/internal/handlers"
	"github.com/thereayou/workspace-relay/internal/middleware"
	"github.com/thereayou/workspace-relay/pkg/auth"
)

type endpoints struct {
	health  *handlers.HealthHandler
	history *handlers.HTTPMessageHandler
	upload  *handlers.UploadHandler
	users   *handlers.UserHandler
	ws      *handlers.WebSocketHandler
	auth    *handlers.AuthHandler
	files   http.FileSystem

	jwt      *auth.JWTManager
	redis    *redis.Client
	wsAuth   bool
	accounts bool
}

func newRouter(log zerolog.Logger, allowedOrigin string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(allowedOrigin))
	return router
}

func APIEndpoints(r *gin.Engine, e endpoints) {
	r.GET("/health", e.health.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// History
	r.GET("/public-messages", e.history.GetPublicMessages)
	r.GET("/private-messages", e.history.GetPrivateMessages)

	// Uploads
	r.POST("/uploads", e.upload.Upload)
	r.StaticFS("/uploads", e.files)

	// Realtime
	if e.wsAuth {
		r.GET("/ws", middleware.WSAuthMiddleware(e.jwt, e.redis), e.ws.HandleWebSocket)
	} else {
		r.GET("/ws", e.ws.HandleWebSocket)
	}

	api := r.Group("/api/v1")
	{
		api.GET("/users/online", e.users.Online)
	}

	if !e.accounts {
		return
	}

	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", e.auth.Register)
		authGroup.POST("/login", e.auth.Login)
		authGroup.POST("/logout", middleware.AuthMiddleware(e.jwt, e.redis), e.auth.Logout)
	}

	protected := api.Group("", middleware.AuthMiddleware(e.jwt, e.redis))
	{
		protected.GET("/users/me", e.users.GetMe)
	}
}
