package service

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// CheckoutSessionRequest describes a monthly recurring checkout
type CheckoutSessionRequest struct {
	CustomerID  string
	ProductName string
	Description string
	UnitAmount  int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CheckoutSession is the provider's hosted checkout
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentGateway is the billing provider surface used by the service
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, phone string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
}

// stripeGateway implements PaymentGateway over the Stripe API
type stripeGateway struct {
	sc *client.API
}

// NewStripeGateway creates a Stripe-backed PaymentGateway
func NewStripeGateway(secretKey string) PaymentGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &stripeGateway{sc: sc}
}

// CreateCustomer creates a customer tagged with the phone number
func (g *stripeGateway) CreateCustomer(ctx context.Context, phone string) (string, error) {
	params := &stripe.CustomerParams{
		Phone:       stripe.String(phone),
		Description: stripe.String(fmt.Sprintf("Customer for %s", phone)),
	}
	params.Context = ctx
	params.AddMetadata("phone_number", phone)

	customer, err := g.sc.Customers.New(params)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

// CreateCheckoutSession creates a card subscription checkout with inline monthly price data
func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(req.CustomerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.ProductName),
						Description: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.UnitAmount),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String("month"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	session, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}
