package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/charsheet/cache"
	"github.com/kasuganosora/charsheet/config"
)

const (
	PlayerIDKey     = "player_id"
	SessionTokenKey = "session_token"
)

// SessionKey is the cache key marking token as a live session.
func SessionKey(token string) string { return "session:" + token }

// bearer extracts the token from the Authorization header, or from the
// token query parameter for EventSource clients that cannot set headers.
func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// Auth validates the player session token and checks the session cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := bearer(ctx)
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		owner, err := c.Get(cacheCtx, SessionKey(tokenStr))
		if err != nil || owner != claims.PlayerID {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(PlayerIDKey, claims.PlayerID)
		ctx.Set(SessionTokenKey, tokenStr)
		ctx.Next()
	}
}

// GetSessionToken returns the token the request was authenticated with.
func GetSessionToken(c *gin.Context) string {
	return c.GetString(SessionTokenKey)
}

// GetPlayerID retrieves the authenticated player ID from the Gin context.
func GetPlayerID(c *gin.Context) string {
	return c.GetString(PlayerIDKey)
}
