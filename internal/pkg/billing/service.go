package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obramarket/ObraMarket/app/models"
	"github.com/obramarket/ObraMarket/app/repository"
	"github.com/obramarket/ObraMarket/internal/pkg/entitlements"
)

// Service is the reconciliation core shared by both intake paths: tenant
// materialization, subscription lifecycle transitions and the idempotency
// ledger. All writes are upserts so that a double run (webhook racing the
// client sync, provider redelivery, crash between side effects and ledger
// write) converges instead of duplicating a tenant.
type Service struct {
	users         repository.UserRepository
	stores        repository.StoreRepository
	notifications repository.NotificationRepository
	events        repository.WebhookEventRepository
	catalog       entitlements.Catalog
	prices        *PriceTable
}

// NewService creates a billing service from injected repositories.
func NewService(repos *repository.Repositories, catalog entitlements.Catalog, prices *PriceTable) *Service {
	return &Service{
		users:         repos.User,
		stores:        repos.Store,
		notifications: repos.Notification,
		events:        repos.WebhookEvent,
		catalog:       catalog,
		prices:        prices,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle with the
// default plan catalog and the env-configured price table.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(repository.NewRepositories(db), entitlements.DefaultCatalog(), NewPriceTableFromEnv())
}

// ProcessPushEvent runs the push-path pipeline for an already-authenticated
// provider event: ledger check, dispatch, ledger record. Recording happens
// only after all side effects succeed; a crash in between causes a legitimate
// reprocess, which the upsert semantics absorb.
func (s *Service) ProcessPushEvent(ctx context.Context, ev *ProviderEvent) (*PushResult, error) {
	processed, err := s.events.HasProcessed(models.BillingProviderStripe, ev.ID)
	if err != nil {
		return nil, err
	}
	if processed {
		return &PushResult{Duplicate: true}, nil
	}

	result := &PushResult{}
	switch ev.Type {
	case EventCheckoutCompleted:
		if ev.Checkout == nil || ev.Checkout.UserIDMetadata == "" || ev.Checkout.PlanMetadata == "" {
			// Not recorded: the session was created without the required
			// metadata and a retry cannot repair it.
			return nil, ErrMissingMetadata
		}
		if _, err := s.Materialize(ctx, MaterializeInput{
			UserID:       ev.Checkout.UserIDMetadata,
			Email:        ev.Checkout.Email,
			Plan:         ev.Checkout.PlanMetadata,
			BusinessName: ev.Checkout.BusinessName,
			BusinessType: ev.Checkout.BusinessType,
			Phone:        ev.Checkout.Phone,
			Address:      ev.Checkout.Address,
			CustomerID:   ev.Checkout.CustomerID,
		}); err != nil {
			return nil, err
		}
	case EventSubscriptionDeleted:
		store, err := s.HandleSubscriptionCancelled(ctx, ev.CustomerID)
		if err != nil {
			return nil, err
		}
		if store != nil {
			result.SuspendedStore = store.Slug
		}
	case EventSubscriptionUpdated:
		if ev.SubscriptionStatus == "past_due" {
			if err := s.HandleSubscriptionPastDue(ctx, ev.CustomerID); err != nil {
				return nil, err
			}
		} else {
			result.Ignored = true
		}
	default:
		// Unknown event types are acknowledged, never failed.
		result.Ignored = true
	}

	if _, err := s.events.Record(&models.WebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		PayloadJSON:     ev.PayloadJSON,
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// SyncCheckout runs the pull-path reconciliation for a checkout session the
// client reported after redirect. It never touches the ledger (there is no
// provider event id to key it by); safety comes from Materialize's upserts.
func (s *Service) SyncCheckout(ctx context.Context, data *CheckoutData) (*models.Store, error) {
	plan, err := s.prices.DetectPlan(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(data.Email) == "" {
		return nil, ErrNoEmail
	}
	return s.Materialize(ctx, MaterializeInput{
		Email:        data.Email,
		Plan:         plan,
		BusinessName: data.BusinessName,
		BusinessType: data.BusinessType,
		Phone:        data.Phone,
		Address:      data.Address,
		CustomerID:   data.CustomerID,
	})
}

// Materialize creates or updates the user account and its store from
// reconciled checkout data. Plan resolution runs first so an unknown plan
// aborts before any write. Both intake paths converge here with the same
// derived values, so running it twice is a safe no-op.
func (s *Service) Materialize(ctx context.Context, in MaterializeInput) (*models.Store, error) {
	_ = ctx
	entitlement, err := s.catalog.Resolve(in.Plan)
	if err != nil {
		return nil, err
	}
	plan := strings.ToLower(strings.TrimSpace(in.Plan))

	user, err := s.resolveAccount(in)
	if err != nil {
		return nil, err
	}

	user.Plan = plan
	user.Role = models.RoleForBusinessType(in.BusinessType)
	if v := strings.TrimSpace(in.BusinessName); v != "" {
		user.BusinessName = v
	}
	if v := strings.TrimSpace(in.BusinessType); v != "" {
		user.BusinessType = v
	}
	if v := strings.TrimSpace(in.Phone); v != "" {
		user.Phone = v
	}
	if v := strings.TrimSpace(in.Address); v != "" {
		user.Address = v
	}
	if v := strings.TrimSpace(in.CustomerID); v != "" {
		user.StripeCustomerID = v
	}
	if err := s.users.Update(user); err != nil {
		return nil, err
	}

	storeName := strings.TrimSpace(in.BusinessName)
	if storeName == "" {
		storeName = user.BusinessName
	}
	if storeName == "" {
		storeName = user.Name
	}

	existing, err := s.stores.GetByUserID(user.ID)
	if err == nil {
		// Second arrival for this user: update in place, slug untouched.
		existing.Status = models.STORE_STATUS_APPROVED
		existing.Plan = plan
		existing.PriorityScore = entitlement.PriorityWeight
		if err := s.stores.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	store := &models.Store{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Name:          storeName,
		Slug:          DeriveSlug(storeName, user.ID),
		Status:        models.STORE_STATUS_APPROVED,
		Plan:          plan,
		PriorityScore: entitlement.PriorityWeight,
	}
	created, createdNow, err := s.stores.CreateOrGet(store)
	if err != nil {
		return nil, err
	}
	if !createdNow {
		// Lost the insert race to the other intake path; converge the
		// surviving row to the same derived values.
		created.Status = models.STORE_STATUS_APPROVED
		created.Plan = plan
		created.PriorityScore = entitlement.PriorityWeight
		if err := s.stores.Update(created); err != nil {
			return nil, err
		}
	}
	return created, nil
}

func (s *Service) resolveAccount(in MaterializeInput) (*models.User, error) {
	if id := strings.TrimSpace(in.UserID); id != "" {
		user, err := s.users.GetByID(id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// Session metadata can reference an account the other path has not
		// created yet; materialize it under the session-bound id.
		return s.createAccount(id, in.Email)
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, ErrNoEmail
	}
	user, err := s.users.GetByEmail(email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.createAccount(uuid.NewString(), email)
}

func (s *Service) createAccount(id, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrNoEmail
	}
	password, err := models.RandomInitialPassword()
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:    id,
		Email: email,
		Role:  models.ROLE_CONSUMER,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	// Checkout sessions occasionally carry garbage emails; catch them before
	// the insert instead of persisting an unreachable account.
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("billing: invalid checkout account data: %w", err)
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost an account-creation race on the email unique index.
			return s.users.GetByEmail(email)
		}
		return nil, err
	}
	return user, nil
}

// HandleSubscriptionCancelled applies a terminal cancellation: the store is
// suspended and the owner notified. An unknown provider customer is a logged
// skip, not a failure; the account may have been created out-of-band.
func (s *Service) HandleSubscriptionCancelled(ctx context.Context, customerID string) (*models.Store, error) {
	_ = ctx
	user, err := s.users.GetByStripeCustomerID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: subscription cancelled for unknown stripe customer %s, skipping", customerID)
			return nil, nil
		}
		return nil, err
	}

	var store *models.Store
	store, err = s.stores.GetByUserID(user.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		store = nil
	} else {
		if err := s.stores.UpdateStatus(store.ID, models.STORE_STATUS_SUSPENDED); err != nil {
			return nil, err
		}
		store.Status = models.STORE_STATUS_SUSPENDED
	}

	if err := s.notifications.Create(&models.Notification{
		UserID:  user.ID,
		Type:    models.NOTIFICATION_SUBSCRIPTION_CANCELLED,
		Title:   "Assinatura cancelada",
		Message: "Sua assinatura foi cancelada e sua loja foi suspensa. Assine novamente para reativá-la.",
		Link:    "/planos",
	}); err != nil {
		return nil, err
	}
	return store, nil
}

// HandleSubscriptionPastDue notifies the owner about a failed payment. The
// store stays approved during the grace period; only a cancellation suspends.
func (s *Service) HandleSubscriptionPastDue(ctx context.Context, customerID string) error {
	_ = ctx
	user, err := s.users.GetByStripeCustomerID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: past_due for unknown stripe customer %s, skipping", customerID)
			return nil
		}
		return err
	}

	return s.notifications.Create(&models.Notification{
		UserID:  user.ID,
		Type:    models.NOTIFICATION_PAYMENT_FAILED,
		Title:   "Pagamento não aprovado",
		Message: "Não conseguimos processar o pagamento da sua assinatura. Atualize sua forma de pagamento para manter sua loja ativa.",
		Link:    "/painel/assinatura",
	})
}
