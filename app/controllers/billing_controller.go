package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/obramarket/ObraMarket/internal/pkg/billing"
	"github.com/obramarket/ObraMarket/internal/pkg/cache"
	"github.com/obramarket/ObraMarket/internal/pkg/entitlements"
	"github.com/obramarket/ObraMarket/internal/pkg/env"
)

// BillingController exposes the two intake paths of the provisioning
// pipeline: the provider-initiated webhook (push) and the client-initiated
// checkout sync (pull). Both converge on the billing service; the service's
// upsert semantics make their race safe.
type BillingController struct {
	svc           *billing.Service
	provider      billing.Provider
	webhookSecret string
}

// NewBillingController wires the controller from its collaborators.
func NewBillingController(svc *billing.Service, provider billing.Provider, webhookSecret string) *BillingController {
	return &BillingController{
		svc:           svc,
		provider:      provider,
		webhookSecret: webhookSecret,
	}
}

// NewBillingControllerFromEnv builds the production wiring.
func NewBillingControllerFromEnv(svc *billing.Service) *BillingController {
	return NewBillingController(
		svc,
		billing.NewStripeProvider(),
		strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
	)
}

type checkoutSyncRequest struct {
	SessionID string `json:"sessionId"`
}

// HandleStripeWebhook is the push path. Only authentication failures and
// unexpected errors answer non-2xx; business-level skips (unknown customer,
// unhandled event type) are acknowledged so the provider does not retry what
// retrying cannot fix.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	event, err := billing.VerifyAndParseEvent(rawBody, signature, bc.webhookSecret)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := bc.svc.ProcessPushEvent(ctx, event)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrMissingMetadata):
			// Not recorded in the ledger: a corrected replay must still be
			// able to succeed. Non-2xx so the failure is visible provider-side.
			log.Printf("billing: webhook %s rejected: %v", event.ID, err)
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "missing_metadata"})
		case errors.Is(err, entitlements.ErrUnknownPlan):
			log.Printf("billing: webhook %s rejected: %v", event.ID, err)
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unknown_plan"})
		default:
			// Not recorded either, so a provider retry can re-attempt.
			log.Printf("billing: webhook %s failed: %v", event.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
		}
	}

	if result.Duplicate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if result.SuspendedStore != "" {
		cache.InvalidateStorefront(result.SuspendedStore)
	}
	if result.Ignored {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// HandleCheckoutSync is the pull path, called by the success page right after
// the provider redirect, usually before the webhook lands. Errors here are
// recoverable for the client: it stays on "preparing your store" and re-polls.
func (bc *BillingController) HandleCheckoutSync(c *fiber.Ctx) error {
	var req checkoutSyncRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "missing_session_id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	data, err := bc.provider.ResolveCheckout(ctx, req.SessionID)
	if err != nil {
		log.Printf("billing: checkout sync lookup failed for %s: %v", req.SessionID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "error": "session_lookup_failed"})
	}

	store, err := bc.svc.SyncCheckout(ctx, data)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrPlanUndetectable):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": "plan_undetectable"})
		case errors.Is(err, billing.ErrNoEmail):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": "no_email"})
		case errors.Is(err, entitlements.ErrUnknownPlan):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"success": false, "error": "unknown_plan"})
		default:
			log.Printf("billing: checkout sync failed for %s: %v", req.SessionID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "sync_failed"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"store": fiber.Map{
			"id":   store.ID,
			"slug": store.Slug,
		},
	})
}
