package stripewebhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
	"go.uber.org/zap"

	"soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/store"
)

const maxBodyBytes = 65536

type Handler struct {
	profiles       store.Profiles
	prices         plans.PriceTable
	endpointSecret string
	log            *zap.Logger
}

func NewHandler(ps store.Profiles, prices plans.PriceTable, endpointSecret string, log *zap.Logger) *Handler {
	return &Handler{profiles: ps, prices: prices, endpointSecret: endpointSecret, log: log}
}

// POST /webhook
//
// Responses are plain text. 4xx tells Stripe the event is unusable; 5xx
// asks it to retry.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.endpointSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.log.Warn("stripe signature verification failed", zap.Error(err))
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
			return
		}
		status, msg := h.handleCheckoutSessionCompleted(c, event.ID, &session)
		c.String(status, "%s", msg)

	default:
		h.log.Debug("ignoring stripe event", zap.String("event_id", event.ID), zap.String("type", string(event.Type)))
		c.String(http.StatusOK, "Webhook received")
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
