package billing

import "errors"

var (
	// ErrInvalidSignature means the webhook body failed signature verification.
	// Terminal; the request must not be processed or recorded.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")

	// ErrMissingMetadata means a checkout.session.completed event arrived
	// without the userId/plan metadata set at session creation. Retrying
	// cannot fix the session, so the event is not marked processed and the
	// failure is surfaced for manual investigation.
	ErrMissingMetadata = errors.New("billing: checkout session missing userId/plan metadata")

	// ErrPlanUndetectable means neither the subscription price nor the
	// session metadata identified a plan on the pull path. Recoverable: the
	// caller may retry once the subscription has synced provider-side.
	ErrPlanUndetectable = errors.New("billing: unable to determine plan for checkout session")

	// ErrNoEmail means the checkout session carries no customer email, so no
	// account can be resolved or created on the pull path.
	ErrNoEmail = errors.New("billing: checkout session has no customer email")
)
