// Package payments wraps the Stripe API calls the billing endpoints make.
package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

type CheckoutRequest struct {
	UserID     string
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

type Gateway interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	// CreateCheckoutSession returns the hosted checkout URL.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

type StripeGateway struct {
	api    *client.API
	appEnv string
}

var _ Gateway = (*StripeGateway)(nil)

func NewStripeGateway(secretKey, appEnv string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{api: sc, appEnv: appEnv}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"user_id": userID,
			"app_env": g.appEnv,
		},
	}
	params.Context = ctx

	cus, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cus.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	metadata := map[string]string{
		"user_id":  req.UserID,
		"price_id": req.PriceID,
	}
	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		ClientReferenceID: stripe.String(req.UserID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	params.Metadata = metadata
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	portal, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return portal.URL, nil
}

type PriceDetails struct {
	ID         string
	UnitAmount int64
	Currency   string
	Interval   string
	Product    string
}

// PriceLookup is implemented by gateways that can describe a price.
type PriceLookup interface {
	GetPrice(ctx context.Context, priceID string) (*PriceDetails, error)
}

var _ PriceLookup = (*StripeGateway)(nil)

func (g *StripeGateway) GetPrice(ctx context.Context, priceID string) (*PriceDetails, error) {
	params := &stripe.PriceParams{}
	params.AddExpand("product")
	params.Context = ctx

	p, err := g.api.Prices.Get(priceID, params)
	if err != nil {
		return nil, fmt.Errorf("get stripe price %s: %w", priceID, err)
	}
	d := &PriceDetails{
		ID:         p.ID,
		UnitAmount: p.UnitAmount,
		Currency:   string(p.Currency),
	}
	if p.Recurring != nil {
		d.Interval = string(p.Recurring.Interval)
	}
	if p.Product != nil {
		d.Product = p.Product.Name
	}
	return d, nil
}
