// Package payments holds the gateway adapter and the webhook that reconciles
// asynchronous payment outcomes into the order ledger.
package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/cafeorder/api/internal/domain"
)

// Intent is the gateway-side charge attempt handed back to the client for
// confirmation.
type Intent struct {
	ID           string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret"`
}

type Gateway interface {
	CreateIntent(ctx context.Context, order *domain.Order) (*Intent, error)
}

// StripeGateway creates payment intents in minor currency units with the
// order id attached as metadata, which is how the webhook correlates the
// asynchronous outcome back to the ledger.
type StripeGateway struct {
	api      *client.API
	currency string
}

func NewStripeGateway(apiKey, currency string) *StripeGateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeGateway{api: api, currency: currency}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, order *domain.Order) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(order.TotalAmount)),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.ID)

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &Intent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// minorUnits converts a two-decimal amount to cents without going through
// floating point.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
