package billing

import (
	"strings"

	"github.com/obramarket/ObraMarket/internal/pkg/entitlements"
	"github.com/obramarket/ObraMarket/internal/pkg/env"
)

// PriceTable is the fixed mapping from provider price ids to plan ids,
// loaded once at startup. The pull path prefers it over session metadata
// because the subscription price is what the customer is actually charged.
type PriceTable struct {
	prices map[string]string
}

// NewPriceTable builds a table from explicit price→plan pairs.
func NewPriceTable(prices map[string]string) *PriceTable {
	normalized := make(map[string]string, len(prices))
	for priceID, plan := range prices {
		id := strings.TrimSpace(priceID)
		if id == "" {
			continue
		}
		normalized[id] = strings.ToLower(strings.TrimSpace(plan))
	}
	return &PriceTable{prices: normalized}
}

// NewPriceTableFromEnv reads the configured Stripe price ids for each plan.
func NewPriceTableFromEnv() *PriceTable {
	return NewPriceTable(map[string]string{
		env.GetEnv("STRIPE_PRICE_BASICO", ""):  string(entitlements.PlanBasico),
		env.GetEnv("STRIPE_PRICE_PLUS", ""):    string(entitlements.PlanPlus),
		env.GetEnv("STRIPE_PRICE_PREMIUM", ""): string(entitlements.PlanPremium),
	})
}

// PlanForPrice resolves a provider price id to a plan id.
func (t *PriceTable) PlanForPrice(priceID string) (string, bool) {
	plan, ok := t.prices[strings.TrimSpace(priceID)]
	return plan, ok
}

// DetectPlan applies the pull-path plan detection order: price table first,
// session metadata second. Both missing is ErrPlanUndetectable.
func (t *PriceTable) DetectPlan(data *CheckoutData) (string, error) {
	if plan, ok := t.PlanForPrice(data.PriceID); ok {
		return plan, nil
	}
	if plan := strings.ToLower(strings.TrimSpace(data.PlanMetadata)); plan != "" {
		return plan, nil
	}
	return "", ErrPlanUndetectable
}
