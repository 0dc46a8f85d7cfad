package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"roomhub/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityMiddleware extracts the caller identity from a Bearer token when
// one is present. Visitors without a token pass through anonymously; access
// decisions downstream treat an empty user id as a non-owner.
func IdentityMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := parseIdentityToken(parts[1], jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set("user_id", domain.UserID(claims.Subject))
		c.Set("user_name", claims.Name)
		c.Next()
	}
}

// RequireIdentity rejects requests that did not authenticate. Mount it
// after IdentityMiddleware on routes that mutate rooms.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("user_id"); !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

type identityClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

func parseIdentityToken(token, secret string) (*identityClaims, error) {
	claims := &identityClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return claims, nil
}

// Actor reads the authenticated identity from the gin context.
func Actor(c *gin.Context) domain.Identity {
	var actor domain.Identity
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(domain.UserID); ok {
			actor.ID = id
		}
	}
	if v, exists := c.Get("user_name"); exists {
		if name, ok := v.(string); ok {
			actor.Name = name
		}
	}
	return actor
}
