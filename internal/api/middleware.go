package api

import (
	"alcyxob/wellness-app/internal/logger"
	"alcyxob/wellness-app/internal/quota"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Constants for context keys
const (
	ContextUserIDKey   = "userID"
	ContextUserTierKey = "userTier"
)

// jwtClaims defines the structure we expect in the JWT payload.
// Tokens are issued by the account service; tier is optional and defaults to free.
type jwtClaims struct {
	UserID string `json:"uid"`
	Tier   string `json:"tier,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}
		tokenString := parts[1]

		claims := &jwtClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			}
			return
		}

		if !token.Valid || claims.UserID == "" {
			abortWithError(c, http.StatusUnauthorized, "Invalid token or missing claims")
			return
		}
		if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
			abortWithError(c, http.StatusUnauthorized, "Token has expired (claim check)")
			return
		}

		tier := strings.ToLower(claims.Tier)
		if tier == "" {
			tier = quota.TierFree
		}

		// --- Token is valid ---
		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUserTierKey, tier)
		c.Next()
	}
}

// RequestLogger logs one line per request after it is served.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start),
		}
		if uid, ok := c.Get(ContextUserIDKey); ok {
			kv = append(kv, "user", uid)
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request failed", kv...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Info("request rejected", kv...)
		default:
			log.Debug("request served", kv...)
		}
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// Helper function to get User ID from context (used by handlers)
func getUserIDFromContext(c *gin.Context) (string, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", errors.New("user ID not found in context")
	}
	idStr, ok := idRaw.(string)
	if !ok {
		return "", errors.New("invalid user ID type in context")
	}
	return idStr, nil
}

func getUserTierFromContext(c *gin.Context) string {
	if tier, ok := c.Get(ContextUserTierKey); ok {
		if s, ok := tier.(string); ok {
			return s
		}
	}
	return quota.TierFree
}
