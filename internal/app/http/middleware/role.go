package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/store"
)

// RequireRole checks the stored profile rather than the token, so a demoted
// admin loses access before their token expires.
func RequireRole(ps store.Profiles, role profiles.Role, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := UserID(c)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		p, err := ps.GetProfile(c.Request.Context(), uid)
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		if err != nil {
			log.Error("load profile for role check", zap.String("user_id", uid), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not load user profile"})
			return
		}

		if p.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}
