package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"settlement-service/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const PrincipalContextKey = "principal"

// AuthMiddleware validates the bearer token and stores an
// AuthenticatedPrincipal in the gin context. Services take the principal by
// value; nothing below the controllers reads request state.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || token == nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid subject claim"})
			return
		}
		role, _ := claims["role"].(string)

		c.Set(PrincipalContextKey, models.AuthenticatedPrincipal{ID: userID, Role: role})
		c.Next()
	}
}

// GetPrincipal returns the principal stored by AuthMiddleware.
func GetPrincipal(c *gin.Context) (models.AuthenticatedPrincipal, error) {
	if val, ok := c.Get(PrincipalContextKey); ok {
		if p, ok := val.(models.AuthenticatedPrincipal); ok {
			return p, nil
		}
	}
	return models.AuthenticatedPrincipal{}, errors.New("principal not found in context")
}
