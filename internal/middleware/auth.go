package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/realtime"
)

// TokenValidator validates a bearer token and resolves the caller identity.
type TokenValidator interface {
	ValidateToken(tokenString string) (*realtime.Identity, error)
}

// JWTValidator validates tokens locally against a shared secret.
type JWTValidator struct {
	secretKey string
	logger    *zap.Logger
}

func NewJWTValidator(secretKey string, logger *zap.Logger) *JWTValidator {
	return &JWTValidator{secretKey: secretKey, logger: logger}
}

func (v *JWTValidator) ValidateToken(tokenString string) (*realtime.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.secretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in token: %w", err)
	}

	identity := &realtime.Identity{ID: userID}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	if avatar, ok := claims["avatar_url"].(string); ok {
		identity.AvatarURL = avatar
	}

	return identity, nil
}

// AuthMiddleware extracts and validates the bearer token, then stores the
// caller identity in both the gin context and the request context so the
// realtime layer can resolve it.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		identity, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("user_id", identity.ID)
		c.Set("user_name", identity.Name)
		c.Request = c.Request.WithContext(realtime.WithIdentity(c.Request.Context(), *identity))
		c.Next()
	}
}
