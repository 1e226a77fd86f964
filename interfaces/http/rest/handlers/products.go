package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"rxsync/pkg/common"
	apperrors "rxsync/pkg/errors"
	"rxsync/pkg/pagination"
)

// Product is a catalog item as served by the admin API
type Product struct {
	ID           string    `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Manufacturer string    `json:"manufacturer"`
	PriceCents   int64     `json:"price_cents"`
	Stock        int       `json:"stock"`
	RequiresRx   bool      `json:"requires_rx"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProductHandler serves the product catalog endpoints
type ProductHandler struct {
	logger *zap.Logger
	errs   *apperrors.ErrorHandler

	mu       sync.RWMutex
	products []Product
}

// NewProductHandler creates a product handler with seeded catalog data
func NewProductHandler(logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		logger:   logger,
		errs:     apperrors.NewErrorHandler(logger),
		products: seedProducts(),
	}
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := ParseListQuery(r)

	h.mu.RLock()
	matched := h.filter(query)
	h.mu.RUnlock()

	sortProducts(matched, query.SortBy, query.SortOrder)

	total := len(matched)
	start, end := pageSlice(total, query)

	meta := common.NewListMeta(chimiddleware.GetReqID(r.Context()), query.Page, query.Limit, total)
	common.RespondWithMeta(w, http.StatusOK, matched[start:end], meta)
}

// GetProduct handles GET /api/products/{productID}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, product := range h.products {
		if product.ID == productID {
			common.RespondJSON(w, http.StatusOK, product)
			return
		}
	}

	h.errs.Handle(w, r, apperrors.NewNotFoundError("product"))
}

// filter applies search and filter.* constraints; callers hold the lock
func (h *ProductHandler) filter(query pagination.Query) []Product {
	matched := make([]Product, 0, len(h.products))
	search := strings.ToLower(query.Search)

	for _, product := range h.products {
		if search != "" &&
			!strings.Contains(strings.ToLower(product.Name), search) &&
			!strings.Contains(strings.ToLower(product.SKU), search) {
			continue
		}
		if !matchesFilters(product, query.Filters) {
			continue
		}
		matched = append(matched, product)
	}
	return matched
}

func matchesFilters(product Product, filters map[string]interface{}) bool {
	for key, raw := range filters {
		want, _ := raw.(string)
		switch key {
		case "category":
			if !strings.EqualFold(product.Category, want) {
				return false
			}
		case "manufacturer":
			if !strings.EqualFold(product.Manufacturer, want) {
				return false
			}
		case "requiresRx":
			if strconv.FormatBool(product.RequiresRx) != want {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sortProducts(products []Product, sortBy string, order pagination.Order) {
	if sortBy == "" {
		sortBy = "name"
	}

	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if order == pagination.OrderDesc {
			a, b = b, a
		}
		switch sortBy {
		case "price":
			return a.PriceCents < b.PriceCents
		case "stock":
			return a.Stock < b.Stock
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.Name < b.Name
		}
	})
}

func seedProducts() []Product {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return []Product{
		{ID: "prod-001", SKU: "AMX-500", Name: "Amoxicillin 500mg", Category: "antibiotics", Manufacturer: "Sandoz", PriceCents: 1299, Stock: 140, RequiresRx: true, UpdatedAt: base},
		{ID: "prod-002", SKU: "IBU-200", Name: "Ibuprofen 200mg", Category: "analgesics", Manufacturer: "Teva", PriceCents: 549, Stock: 320, RequiresRx: false, UpdatedAt: base.Add(2 * time.Hour)},
		{ID: "prod-003", SKU: "PCM-500", Name: "Paracetamol 500mg", Category: "analgesics", Manufacturer: "GSK", PriceCents: 399, Stock: 410, RequiresRx: false, UpdatedAt: base.Add(4 * time.Hour)},
		{ID: "prod-004", SKU: "MET-850", Name: "Metformin 850mg", Category: "diabetes", Manufacturer: "Merck", PriceCents: 899, Stock: 95, RequiresRx: true, UpdatedAt: base.Add(6 * time.Hour)},
		{ID: "prod-005", SKU: "ATV-20", Name: "Atorvastatin 20mg", Category: "cardiovascular", Manufacturer: "Pfizer", PriceCents: 1599, Stock: 75, RequiresRx: true, UpdatedAt: base.Add(8 * time.Hour)},
		{ID: "prod-006", SKU: "LOR-10", Name: "Loratadine 10mg", Category: "allergy", Manufacturer: "Bayer", PriceCents: 649, Stock: 210, RequiresRx: false, UpdatedAt: base.Add(10 * time.Hour)},
		{ID: "prod-007", SKU: "OMP-20", Name: "Omeprazole 20mg", Category: "gastro", Manufacturer: "AstraZeneca", PriceCents: 1099, Stock: 160, RequiresRx: false, UpdatedAt: base.Add(12 * time.Hour)},
		{ID: "prod-008", SKU: "AML-5", Name: "Amlodipine 5mg", Category: "cardiovascular", Manufacturer: "Pfizer", PriceCents: 749, Stock: 120, RequiresRx: true, UpdatedAt: base.Add(14 * time.Hour)},
		{ID: "prod-009", SKU: "CET-10", Name: "Cetirizine 10mg", Category: "allergy", Manufacturer: "UCB", PriceCents: 499, Stock: 260, RequiresRx: false, UpdatedAt: base.Add(16 * time.Hour)},
		{ID: "prod-010", SKU: "AZI-250", Name: "Azithromycin 250mg", Category: "antibiotics", Manufacturer: "Sandoz", PriceCents: 1899, Stock: 60, RequiresRx: true, UpdatedAt: base.Add(18 * time.Hour)},
		{ID: "prod-011", SKU: "VITD-1000", Name: "Vitamin D3 1000IU", Category: "supplements", Manufacturer: "NatureMed", PriceCents: 799, Stock: 300, RequiresRx: false, UpdatedAt: base.Add(20 * time.Hour)},
		{ID: "prod-012", SKU: "INS-GLA", Name: "Insulin Glargine 100U/ml", Category: "diabetes", Manufacturer: "Sanofi", PriceCents: 4599, Stock: 40, RequiresRx: true, UpdatedAt: base.Add(22 * time.Hour)},
	}
}
