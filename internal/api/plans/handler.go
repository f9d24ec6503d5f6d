package plans

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/groupcache/lru"
	"go.uber.org/zap"

	dp "soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/infra/payments"
)

// DefaultPriceTTL bounds how stale a cached provider price may get.
const DefaultPriceTTL = 10 * time.Minute

type PlanDTO struct {
	PriceID    string `json:"price_id"`
	Plan       string `json:"plan"`
	UnitAmount *int64 `json:"unit_amount,omitempty"`
	Currency   string `json:"currency,omitempty"`
	Interval   string `json:"interval,omitempty"`
	Product    string `json:"product,omitempty"`
}

type cachedPrice struct {
	details   *payments.PriceDetails
	fetchedAt time.Time
}

type Handler struct {
	prices dp.PriceTable
	lookup payments.PriceLookup
	log    *zap.Logger

	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewHandler takes an optional price lookup; without one the listing only
// carries price ids and plans.
func NewHandler(prices dp.PriceTable, lookup payments.PriceLookup, log *zap.Logger) *Handler {
	return &Handler{
		prices: prices,
		lookup: lookup,
		log:    log,
		cache:  lru.New(len(prices.Offers()) + 1),
		ttl:    DefaultPriceTTL,
		now:    time.Now,
	}
}

// price serves from the cache while fresh. Failed lookups are not cached.
func (h *Handler) price(ctx context.Context, priceID string) (*payments.PriceDetails, error) {
	h.mu.Lock()
	if v, ok := h.cache.Get(priceID); ok {
		entry := v.(cachedPrice)
		if h.now().Sub(entry.fetchedAt) < h.ttl {
			h.mu.Unlock()
			return entry.details, nil
		}
		h.cache.Remove(priceID)
	}
	h.mu.Unlock()

	d, err := h.lookup.GetPrice(ctx, priceID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.cache.Add(priceID, cachedPrice{details: d, fetchedAt: h.now()})
	h.mu.Unlock()
	return d, nil
}

// GET /plans
func (h *Handler) ListPlans(c *gin.Context) {
	offers := h.prices.Offers()
	out := make([]PlanDTO, 0, len(offers))
	for _, o := range offers {
		dto := PlanDTO{PriceID: o.PriceID, Plan: string(o.Plan)}
		if h.lookup != nil {
			d, err := h.price(c.Request.Context(), o.PriceID)
			if err != nil {
				h.log.Warn("price lookup failed", zap.String("price_id", o.PriceID), zap.Error(err))
			} else {
				amount := d.UnitAmount
				dto.UnitAmount = &amount
				dto.Currency = d.Currency
				dto.Interval = d.Interval
				dto.Product = d.Product
			}
		}
		out = append(out, dto)
	}
	c.JSON(http.StatusOK, out)
}
