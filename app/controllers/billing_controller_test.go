package controllers

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"

	"github.com/obramarket/ObraMarket/app/models"
	"github.com/obramarket/ObraMarket/app/repository"
	"github.com/obramarket/ObraMarket/internal/pkg/billing"
	"github.com/obramarket/ObraMarket/internal/pkg/entitlements"
)

const testWebhookSecret = "whsec_test_secret"

// billingState is shared in-memory backing for the fake repositories below.
// Controller tests run requests sequentially, so no locking is needed.
type billingState struct {
	users         map[string]models.User
	stores        map[string]models.Store
	notifications []models.Notification
	events        map[string]models.WebhookEvent
}

func newBillingState() *billingState {
	return &billingState{
		users:  make(map[string]models.User),
		stores: make(map[string]models.Store),
		events: make(map[string]models.WebhookEvent),
	}
}

type fakeUsers struct{ s *billingState }

func (r fakeUsers) Create(user *models.User) error {
	if _, ok := r.s.users[user.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r fakeUsers) GetByID(id string) (*models.User, error) {
	if u, ok := r.s.users[id]; ok {
		out := u
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeUsers) GetByEmail(email string) (*models.User, error) {
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			out := u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeUsers) GetByStripeCustomerID(customerID string) (*models.User, error) {
	for _, u := range r.s.users {
		if u.StripeCustomerID != "" && u.StripeCustomerID == strings.TrimSpace(customerID) {
			out := u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeUsers) Update(user *models.User) error {
	r.s.users[user.ID] = *user
	return nil
}

func (r fakeUsers) List(offset, limit int) ([]models.User, error) { return nil, nil }

func (r fakeUsers) Count() (int64, error) { return int64(len(r.s.users)), nil }

type fakeStores struct{ s *billingState }

func (r fakeStores) CreateOrGet(store *models.Store) (*models.Store, bool, error) {
	for _, s := range r.s.stores {
		if s.UserID == store.UserID || s.Slug == store.Slug {
			out := s
			return &out, false, nil
		}
	}
	r.s.stores[store.ID] = *store
	out := *store
	return &out, true, nil
}

func (r fakeStores) GetByID(id string) (*models.Store, error) {
	if s, ok := r.s.stores[id]; ok {
		out := s
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeStores) GetByUserID(userID string) (*models.Store, error) {
	for _, s := range r.s.stores {
		if s.UserID == userID {
			out := s
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeStores) GetBySlug(slug string) (*models.Store, error) {
	for _, s := range r.s.stores {
		if s.Slug == slug {
			out := s
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeStores) Update(store *models.Store) error {
	r.s.stores[store.ID] = *store
	return nil
}

func (r fakeStores) UpdateStatus(id, status string) error {
	s, ok := r.s.stores[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = status
	r.s.stores[id] = s
	return nil
}

func (r fakeStores) ListApproved(offset, limit int) ([]models.Store, error) { return nil, nil }

func (r fakeStores) Count() (int64, error) { return int64(len(r.s.stores)), nil }

type fakeNotifications struct{ s *billingState }

func (r fakeNotifications) Create(n *models.Notification) error {
	n.ID = uint(len(r.s.notifications) + 1)
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r fakeNotifications) GetByUserID(userID string, offset, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r fakeNotifications) CountUnread(userID string) (int64, error) {
	var count int64
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r fakeNotifications) MarkRead(id uint) error {
	for i := range r.s.notifications {
		if r.s.notifications[i].ID == id {
			r.s.notifications[i].IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeEvents struct{ s *billingState }

func (r fakeEvents) HasProcessed(provider, providerEventID string) (bool, error) {
	_, ok := r.s.events[provider+"|"+providerEventID]
	return ok, nil
}

func (r fakeEvents) Record(event *models.WebhookEvent) (bool, error) {
	key := event.Provider + "|" + event.ProviderEventID
	if _, ok := r.s.events[key]; ok {
		return false, nil
	}
	r.s.events[key] = *event
	return true, nil
}

type fakeProvider struct {
	data *billing.CheckoutData
	err  error
}

func (p fakeProvider) ResolveCheckout(ctx context.Context, sessionID string) (*billing.CheckoutData, error) {
	return p.data, p.err
}

func newBillingTestApp(t *testing.T, provider billing.Provider) (*fiber.App, *billingState) {
	t.Helper()
	state := newBillingState()
	repos := &repository.Repositories{
		User:         fakeUsers{state},
		Store:        fakeStores{state},
		Notification: fakeNotifications{state},
		WebhookEvent: fakeEvents{state},
	}
	prices := billing.NewPriceTable(map[string]string{
		"price_basico_m":  "basico",
		"price_plus_m":    "plus",
		"price_premium_m": "premium",
	})
	svc := billing.NewService(repos, entitlements.DefaultCatalog(), prices)
	bc := NewBillingController(svc, provider, testWebhookSecret)

	app := fiber.New()
	app.Post("/api/v1/billing/webhook", bc.HandleStripeWebhook)
	app.Post("/api/v1/billing/sync", bc.HandleCheckoutSync)
	return app, state
}

func signedWebhookRequest(payload []byte, secret string) *http.Request {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig)))
	return req
}

func checkoutCompletedPayload(eventID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"customer_email": "dono@acme.com.br",
				"customer": {"id": "cus_1"},
				"metadata": {"userId": "u1", "plan": "plus"},
				"custom_fields": [
					{"key": "business_name", "text": {"value": "Acme Materiais"}},
					{"key": "business_type", "dropdown": {"value": "comercio"}}
				]
			}
		}
	}`, eventID))
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	app, state := newBillingTestApp(t, fakeProvider{})
	payload := checkoutCompletedPayload("evt_1")

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", "t=12345,v1=deadbeef")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, state.events, "unauthenticated events must not reach the ledger")
	assert.Empty(t, state.stores)
}

func TestWebhookProcessesCheckoutThenDeduplicates(t *testing.T) {
	app, state := newBillingTestApp(t, fakeProvider{})
	payload := checkoutCompletedPayload("evt_1")

	resp, err := app.Test(signedWebhookRequest(payload, testWebhookSecret))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, state.stores, 1)
	for _, s := range state.stores {
		assert.Equal(t, models.STORE_STATUS_APPROVED, s.Status)
		assert.Equal(t, "plus", s.Plan)
		assert.Equal(t, 25, s.PriorityScore)
	}
	user, ok := state.users["u1"]
	require.True(t, ok, "account must exist under the session-bound id")
	assert.Equal(t, models.ROLE_MERCHANT, user.Role)
	assert.Equal(t, "cus_1", user.StripeCustomerID)

	resp, err = app.Test(signedWebhookRequest(payload, testWebhookSecret))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Duplicate bool `json:"duplicate"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Duplicate)
	assert.Len(t, state.events, 1)
	assert.Len(t, state.stores, 1)
}

func TestWebhookMissingMetadataNotRecorded(t *testing.T) {
	app, state := newBillingTestApp(t, fakeProvider{})
	payload := []byte(`{
		"id": "evt_2",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_2",
				"customer_email": "dono@acme.com.br",
				"metadata": {"plan": "plus"}
			}
		}
	}`)

	resp, err := app.Test(signedWebhookRequest(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, state.events, "a corrected replay must still be able to succeed")
	assert.Empty(t, state.stores)
}

func TestWebhookAcknowledgesUnhandledEventType(t *testing.T) {
	app, state := newBillingTestApp(t, fakeProvider{})
	payload := []byte(`{"id": "evt_3", "type": "invoice.paid", "data": {"object": {}}}`)

	resp, err := app.Test(signedWebhookRequest(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, state.events, 1, "acknowledged events are recorded")
}

func TestCheckoutSyncCreatesStoreAndIsRepeatable(t *testing.T) {
	provider := fakeProvider{data: &billing.CheckoutData{
		SessionID:    "cs_test_1",
		Email:        "dono@acme.com.br",
		CustomerID:   "cus_1",
		PriceID:      "price_basico_m",
		BusinessName: "Acme Materiais",
		BusinessType: models.BUSINESS_TYPE_SERVICO,
	}}
	app, state := newBillingTestApp(t, provider)

	body := []byte(`{"sessionId": "cs_test_1"}`)
	run := func() (int, string) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/billing/sync", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		var out struct {
			Success bool `json:"success"`
			Store   struct {
				Slug string `json:"slug"`
			} `json:"store"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out.Store.Slug
	}

	status, slug := run()
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, strings.HasPrefix(slug, "acme-materiais-"))

	statusAgain, slugAgain := run()
	assert.Equal(t, fiber.StatusOK, statusAgain)
	assert.Equal(t, slug, slugAgain, "repeat sync must converge on the same tenant")
	assert.Len(t, state.stores, 1)
	assert.Empty(t, state.events, "the pull path never touches the ledger")

	for _, u := range state.users {
		assert.Equal(t, models.ROLE_SERVICE_PROVIDER, u.Role)
	}
}

func TestCheckoutSyncPlanUndetectable(t *testing.T) {
	provider := fakeProvider{data: &billing.CheckoutData{
		SessionID: "cs_test_1",
		Email:     "dono@acme.com.br",
		PriceID:   "price_unknown",
	}}
	app, state := newBillingTestApp(t, provider)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/billing/sync", bytes.NewReader([]byte(`{"sessionId": "cs_test_1"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Empty(t, state.stores)
}

func TestCheckoutSyncMissingSessionID(t *testing.T) {
	app, _ := newBillingTestApp(t, fakeProvider{})

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/billing/sync", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCheckoutSyncProviderLookupFails(t *testing.T) {
	app, state := newBillingTestApp(t, fakeProvider{err: errors.New("stripe unavailable")})

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/billing/sync", bytes.NewReader([]byte(`{"sessionId": "cs_test_1"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Empty(t, state.stores)
}
