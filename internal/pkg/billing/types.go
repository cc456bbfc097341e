package billing

// CheckoutData is the narrow boundary struct for a provider checkout session.
// It captures only the fields reconciliation reads; full SDK objects never
// cross past the intake layer.
type CheckoutData struct {
	SessionID      string
	Email          string
	CustomerID     string
	SubscriptionID string
	PriceID        string

	// Session metadata set at creation time.
	UserIDMetadata string
	PlanMetadata   string

	// Intake custom fields collected on the payment page.
	BusinessName string
	BusinessType string
	Phone        string
	Address      string
}

// ProviderEvent is the normalized push-path event after signature
// verification and payload extraction.
type ProviderEvent struct {
	ID          string
	Type        string
	PayloadJSON string

	// Checkout is set for checkout completion events.
	Checkout *CheckoutData

	// CustomerID and SubscriptionStatus are set for subscription lifecycle
	// events.
	CustomerID         string
	SubscriptionStatus string
}

// MaterializeInput is the reconciled data handed to the tenant materializer.
// Exactly one of UserID (push path) or Email (pull path) keys the account
// lookup; Email is also used to fill new accounts created by id.
type MaterializeInput struct {
	UserID string
	Email  string
	Plan   string

	BusinessName string
	BusinessType string
	Phone        string
	Address      string

	CustomerID string
}

// PushResult describes the outcome of a push-path event.
type PushResult struct {
	Duplicate bool
	Ignored   bool

	// SuspendedStore is set when a cancellation suspended a tenant, so the
	// caller can drop any cached storefront state.
	SuspendedStore string
}
