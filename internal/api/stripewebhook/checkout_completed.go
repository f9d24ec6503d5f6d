package stripewebhooks

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"

	"soapnotes-app/internal/domain/access"
	"soapnotes-app/internal/store"
)

// metadataValue reads the first non-blank value among keys. Sessions
// created by older clients used camelCase keys.
func metadataValue(md map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(md[k]); v != "" {
			return v
		}
	}
	return ""
}

// handleCheckoutSessionCompleted grants the plan bought in the session.
// Replaying the same event leaves the profile unchanged.
func (h *Handler) handleCheckoutSessionCompleted(c *gin.Context, eventID string, session *stripe.CheckoutSession) (int, string) {
	log := h.log.With(zap.String("event_id", eventID), zap.String("session_id", session.ID))

	userID := metadataValue(session.Metadata, "user_id", "userId")
	priceID := metadataValue(session.Metadata, "price_id", "priceId")
	if userID == "" || priceID == "" {
		log.Warn("checkout session without user or price metadata")
		return http.StatusBadRequest, "Missing metadata userId or priceId"
	}

	plan, err := h.prices.Resolve(priceID)
	if err != nil {
		log.Warn("checkout session with unknown price", zap.String("price_id", priceID))
		return http.StatusBadRequest, "Unknown priceId"
	}

	if err := access.CheckProfileChange(access.BillingWebhook, userID, access.FieldPlan).Err(); err != nil {
		log.Error("billing webhook denied", zap.Error(err))
		return http.StatusInternalServerError, "Failed to update user plan"
	}

	ctx := c.Request.Context()
	p, err := h.profiles.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		// 5xx so Stripe retries; the profile may not be provisioned yet
		log.Warn("checkout session for unknown user", zap.String("user_id", userID))
		return http.StatusInternalServerError, "Unknown user"
	}
	if err != nil {
		log.Error("load profile", zap.String("user_id", userID), zap.Error(err))
		return http.StatusInternalServerError, "Failed to update user plan"
	}

	if p.Plan == plan {
		log.Info("plan already granted", zap.String("user_id", userID), zap.String("plan", string(plan)))
		return http.StatusOK, "Webhook received"
	}

	if err := h.profiles.SetPlan(ctx, userID, plan); err != nil {
		log.Error("set plan", zap.String("user_id", userID), zap.Error(err))
		return http.StatusInternalServerError, "Failed to update user plan"
	}

	log.Info("plan updated", zap.String("user_id", userID), zap.String("plan", string(plan)))
	return http.StatusOK, "Webhook received"
}
