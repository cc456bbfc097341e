package entitlements

import (
	"fmt"
	"strings"
)

type Plan string

const (
	PlanBasico  Plan = "basico"
	PlanPlus    Plan = "plus"
	PlanPremium Plan = "premium"
)

// ErrUnknownPlan is returned when a plan id has no catalog entry. Callers must
// treat this as a hard failure; silently defaulting would misprice a tenant.
var ErrUnknownPlan = fmt.Errorf("entitlements: unknown plan")

// Entitlement holds the attributes a plan grants a store.
type Entitlement struct {
	PriorityWeight int
	DisplayTier    string
}

// Catalog resolves plan ids to entitlements. It is read-only and injected so
// tests can swap it out.
type Catalog interface {
	Resolve(plan string) (Entitlement, error)
}

// StaticCatalog is the fixed in-process plan catalog, loaded once at startup.
type StaticCatalog struct {
	plans map[Plan]Entitlement
}

// DefaultCatalog returns the marketplace's plan catalog.
func DefaultCatalog() *StaticCatalog {
	return &StaticCatalog{
		plans: map[Plan]Entitlement{
			PlanBasico:  {PriorityWeight: 10, DisplayTier: "Básico"},
			PlanPlus:    {PriorityWeight: 25, DisplayTier: "Plus"},
			PlanPremium: {PriorityWeight: 50, DisplayTier: "Premium"},
		},
	}
}

func (c *StaticCatalog) Resolve(plan string) (Entitlement, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(plan)))
	e, ok := c.plans[p]
	if !ok {
		return Entitlement{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	return e, nil
}
