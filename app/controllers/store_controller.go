package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/obramarket/ObraMarket/app/repository"
	"github.com/obramarket/ObraMarket/internal/pkg/cache"
)

// StoreController serves public storefront lookups for the UI.
type StoreController struct {
	stores repository.StoreRepository
}

// NewStoreController creates a store controller.
func NewStoreController(stores repository.StoreRepository) *StoreController {
	return &StoreController{stores: stores}
}

type storefrontResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Plan          string `json:"plan"`
	PriorityScore int    `json:"priority_score"`
}

// HandleGetStoreBySlug returns an approved storefront. Suspended and pending
// stores answer 404; the cache entry is dropped on suspension so delisting is
// immediate.
func (sc *StoreController) HandleGetStoreBySlug(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Params("slug"))
	if slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_slug"})
	}

	var cached storefrontResponse
	if cache.GetStorefront(slug, &cached) {
		return c.Status(fiber.StatusOK).JSON(cached)
	}

	store, err := sc.stores.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}
	if !store.IsVisible() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store_not_found"})
	}

	resp := storefrontResponse{
		ID:            store.ID,
		Name:          store.Name,
		Slug:          store.Slug,
		Plan:          store.Plan,
		PriorityScore: store.PriorityScore,
	}
	_ = cache.SetStorefront(slug, resp)
	return c.Status(fiber.StatusOK).JSON(resp)
}

// HandleListStores returns approved stores ordered by marketplace ranking.
func (sc *StoreController) HandleListStores(c *fiber.Ctx) error {
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	stores, err := sc.stores.ListApproved(offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}

	out := make([]storefrontResponse, 0, len(stores))
	for i := range stores {
		s := &stores[i]
		out = append(out, storefrontResponse{
			ID:            s.ID,
			Name:          s.Name,
			Slug:          s.Slug,
			Plan:          s.Plan,
			PriorityScore: s.PriorityScore,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"stores": out})
}
