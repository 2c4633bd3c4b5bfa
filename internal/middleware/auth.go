package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/workspace-relay/pkg/auth"
)

const UserIDKey = "userID"

const blacklistPrefix = "blacklist:"

// BlacklistKey is the Redis key marking a logged-out token.
func BlacklistKey(token string) string {
	return blacklistPrefix + token
}

// AuthMiddleware checks the bearer token of REST calls.
func AuthMiddleware(jwtManager *auth.JWTManager, redisClient *redis.Client) gin.HandlerFunc {
	return authenticate(jwtManager, redisClient, auth.ExtractTokenFromHeader)
}

// WSAuthMiddleware also accepts the token query parameter, since browsers
// cannot set headers on a websocket handshake.
func WSAuthMiddleware(jwtManager *auth.JWTManager, redisClient *redis.Client) gin.HandlerFunc {
	return authenticate(jwtManager, redisClient, auth.ExtractTokenFromRequest)
}

func authenticate(jwtManager *auth.JWTManager, redisClient *redis.Client, extract func(*http.Request) (string, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extract(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		if revoked(c.Request.Context(), redisClient, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is blacklisted"})
			return
		}

		claims, err := jwtManager.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

// revoked fails closed when Redis is configured but unreachable.
func revoked(ctx context.Context, rdb *redis.Client, token string) bool {
	if rdb == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	exists, err := rdb.Exists(ctx, BlacklistKey(token)).Result()
	return err != nil || exists > 0
}
