package billing

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"soapnotes-app/internal/app/http/middleware"
	"soapnotes-app/internal/domain/access"
	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/infra/payments"
	"soapnotes-app/internal/store"
)

type Handler struct {
	profiles store.Profiles
	gateway  payments.Gateway
	appURL   string
	log      *zap.Logger
}

func NewHandler(ps store.Profiles, gw payments.Gateway, appURL string, log *zap.Logger) *Handler {
	return &Handler{profiles: ps, gateway: gw, appURL: strings.TrimRight(appURL, "/"), log: log}
}

func (h *Handler) loadUser(c *gin.Context) (*profiles.Profile, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return nil, false
	}
	p, err := h.profiles.GetProfile(c.Request.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return nil, false
	}
	if err != nil {
		h.log.Error("load profile", zap.String("user_id", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return nil, false
	}
	return p, true
}

// ensureCustomer creates the Stripe customer on first checkout and stores its id.
func (h *Handler) ensureCustomer(c *gin.Context, p *profiles.Profile) error {
	if p.StripeCustomerID != nil && *p.StripeCustomerID != "" {
		return nil
	}
	if err := access.CheckProfileChange(access.UserActor(*p), p.ID, access.FieldBilling).Err(); err != nil {
		return err
	}
	ctx := c.Request.Context()
	id, err := h.gateway.CreateCustomer(ctx, p.ID, p.Email)
	if err != nil {
		return err
	}
	if err := h.profiles.SetStripeCustomerID(ctx, p.ID, id); err != nil {
		return err
	}
	p.StripeCustomerID = &id
	return nil
}

// POST /create-checkout-session
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body struct {
		PriceID       string `json:"price_id"`
		LegacyPriceID string `json:"priceId"`
	}
	// an empty or malformed body still reaches the provider, which rejects it
	_ = c.ShouldBindJSON(&body)
	priceID := strings.TrimSpace(body.PriceID)
	if priceID == "" {
		priceID = strings.TrimSpace(body.LegacyPriceID)
	}

	p, ok := h.loadUser(c)
	if !ok {
		return
	}

	if err := h.ensureCustomer(c, p); err != nil {
		h.log.Error("ensure stripe customer", zap.String("user_id", p.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	url, err := h.gateway.CreateCheckoutSession(c.Request.Context(), payments.CheckoutRequest{
		UserID:     p.ID,
		CustomerID: *p.StripeCustomerID,
		PriceID:    priceID,
		SuccessURL: h.appURL + "/upgrade-success",
		CancelURL:  h.appURL + "/upgrade-cancelled",
	})
	if err != nil {
		h.log.Error("create checkout session", zap.String("user_id", p.ID), zap.String("price_id", priceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// POST /billing-portal
func (h *Handler) CreateBillingPortal(c *gin.Context) {
	p, ok := h.loadUser(c)
	if !ok {
		return
	}
	if p.StripeCustomerID == nil || *p.StripeCustomerID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No Stripe customer yet (subscribe first)"})
		return
	}

	url, err := h.gateway.CreatePortalSession(c.Request.Context(), *p.StripeCustomerID, h.appURL+"/account")
	if err != nil {
		h.log.Error("create billing portal session", zap.String("user_id", p.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create billing portal session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
