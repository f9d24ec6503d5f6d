package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"soapnotes-app/internal/domain/quota"
	"soapnotes-app/internal/store"
)

// RequireNoteAllowance blocks note creation for free users who have used up
// their quota. Paid plans always pass.
func RequireNoteAllowance(ps store.Profiles, ns store.Notes, limit int, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		uid := UserID(c)

		p, err := ps.GetProfile(ctx, uid)
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			log.Error("load profile for quota", zap.String("user_id", uid), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not check note allowance"})
			return
		}

		used := 0
		if !p.Plan.IsPaid() {
			if used, err = ns.CountNotes(ctx, uid); err != nil {
				log.Error("count notes for quota", zap.String("user_id", uid), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not check note allowance"})
				return
			}
		}

		if err := quota.For(p.Plan, used, limit).Check(); err != nil {
			var exhausted *quota.ExhaustedError
			if errors.As(err, &exhausted) {
				c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
					"error":   err.Error(),
					"limit":   exhausted.Limit,
					"used":    exhausted.Used,
					"upgrade": true,
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not check note allowance"})
			return
		}
		c.Next()
	}
}
