package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/obramarket/ObraMarket/internal/pkg/env"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventSubscriptionUpdated = "customer.subscription.updated"

	customFieldBusinessName = "business_name"
	customFieldBusinessType = "business_type"
	customFieldPhone        = "phone"
	customFieldAddress      = "address"
)

// SetKey configures the Stripe SDK key once during bootstrap.
func SetKey(key string) { stripe.Key = key }

// SetKeyFromEnv reads STRIPE_SECRET_KEY and configures the SDK.
func SetKeyFromEnv() { SetKey(strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))) }

// Provider abstracts the payment-provider calls the pull path needs, so
// handlers stay testable without the Stripe API.
type Provider interface {
	ResolveCheckout(ctx context.Context, sessionID string) (*CheckoutData, error)
}

type stripeProvider struct{}

// NewStripeProvider returns a Provider backed by the official Stripe SDK.
func NewStripeProvider() Provider { return stripeProvider{} }

// ResolveCheckout fetches the checkout session with its subscription expanded
// and maps it to the boundary struct. The pull path reads current provider
// state directly instead of trusting a stored webhook payload.
func (stripeProvider) ResolveCheckout(ctx context.Context, sessionID string) (*CheckoutData, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	sess, err := session.Get(strings.TrimSpace(sessionID), params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session lookup failed: %w", err)
	}
	return checkoutDataFromSession(sess), nil
}

// VerifyAndParseEvent authenticates a push-path body against the webhook
// secret and normalizes it. Signature failure is terminal, never retried.
func VerifyAndParseEvent(payload []byte, signatureHeader, secret string) (*ProviderEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return normalizeEvent(&event, payload)
}

func normalizeEvent(event *stripe.Event, payload []byte) (*ProviderEvent, error) {
	out := &ProviderEvent{
		ID:          event.ID,
		Type:        string(event.Type),
		PayloadJSON: string(payload),
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("invalid checkout session payload: %w", err)
		}
		out.Checkout = checkoutDataFromSession(&sess)
	case EventSubscriptionDeleted, EventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("invalid subscription payload: %w", err)
		}
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
		out.SubscriptionStatus = string(sub.Status)
	}
	return out, nil
}

func checkoutDataFromSession(sess *stripe.CheckoutSession) *CheckoutData {
	data := &CheckoutData{
		SessionID:      sess.ID,
		Email:          strings.TrimSpace(sess.CustomerEmail),
		UserIDMetadata: strings.TrimSpace(sess.Metadata["userId"]),
		PlanMetadata:   strings.TrimSpace(sess.Metadata["plan"]),
	}
	if sess.CustomerDetails != nil && strings.TrimSpace(sess.CustomerDetails.Email) != "" {
		data.Email = strings.TrimSpace(sess.CustomerDetails.Email)
	}
	if sess.Customer != nil {
		data.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		data.SubscriptionID = sess.Subscription.ID
		if items := sess.Subscription.Items; items != nil && len(items.Data) > 0 {
			if price := items.Data[0].Price; price != nil {
				data.PriceID = price.ID
			}
		}
	}
	for _, field := range sess.CustomFields {
		value := customFieldValue(field)
		switch field.Key {
		case customFieldBusinessName:
			data.BusinessName = value
		case customFieldBusinessType:
			data.BusinessType = value
		case customFieldPhone:
			data.Phone = value
		case customFieldAddress:
			data.Address = value
		}
	}
	return data
}

func customFieldValue(field *stripe.CheckoutSessionCustomField) string {
	if field == nil {
		return ""
	}
	if field.Text != nil && field.Text.Value != "" {
		return strings.TrimSpace(field.Text.Value)
	}
	if field.Dropdown != nil && field.Dropdown.Value != "" {
		return strings.TrimSpace(field.Dropdown.Value)
	}
	return ""
}
