package handlers

import (
	"net/http"
	"sort"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rxsync/pkg/common"
	apperrors "rxsync/pkg/errors"
	"rxsync/pkg/pagination"
	"rxsync/pkg/utils"
)

// Sale is a completed point-of-sale transaction
type Sale struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	TotalCents int64     `json:"total_cents"`
	Cashier    string    `json:"cashier"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateSaleRequest is the POST /api/sales payload
type CreateSaleRequest struct {
	ProductID  string `json:"product_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gt=0"`
	TotalCents int64  `json:"total_cents" validate:"gte=0"`
	Cashier    string `json:"cashier" validate:"required"`
}

// SaleHandler serves the sales endpoints
type SaleHandler struct {
	logger *zap.Logger
	errs   *apperrors.ErrorHandler

	mu    sync.RWMutex
	sales []Sale
}

// NewSaleHandler creates a sale handler with seeded transaction history
func NewSaleHandler(logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		logger: logger,
		errs:   apperrors.NewErrorHandler(logger),
		sales:  seedSales(),
	}
}

// ListSales handles GET /api/sales
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	query := ParseListQuery(r)

	h.mu.RLock()
	matched := make([]Sale, 0, len(h.sales))
	for _, sale := range h.sales {
		if cashier, ok := query.Filters["cashier"].(string); ok && sale.Cashier != cashier {
			continue
		}
		if productID, ok := query.Filters["productId"].(string); ok && sale.ProductID != productID {
			continue
		}
		matched = append(matched, sale)
	}
	h.mu.RUnlock()

	// Newest first unless asked otherwise.
	sort.SliceStable(matched, func(i, j int) bool {
		if query.SortOrder == pagination.OrderAsc && query.SortBy == "createdAt" {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start, end := pageSlice(total, query)

	meta := common.NewListMeta(chimiddleware.GetReqID(r.Context()), query.Page, query.Limit, total)
	common.RespondWithMeta(w, http.StatusOK, matched[start:end], meta)
}

// CreateSale handles POST /api/sales
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := common.ParseJSONBody(r, &req, 1<<20); err != nil {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.HandleStatus(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sale := Sale{
		ID:         uuid.New().String(),
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		TotalCents: req.TotalCents,
		Cashier:    req.Cashier,
		CreatedAt:  time.Now().UTC(),
	}

	h.mu.Lock()
	h.sales = append(h.sales, sale)
	h.mu.Unlock()

	h.logger.Info("sale recorded",
		zap.String("saleID", sale.ID),
		zap.String("productID", sale.ProductID),
		zap.Int("quantity", sale.Quantity),
	)
	common.RespondJSON(w, http.StatusCreated, sale)
}

func seedSales() []Sale {
	base := time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)
	return []Sale{
		{ID: "sale-001", ProductID: "prod-002", Quantity: 2, TotalCents: 1098, Cashier: "mdavis", CreatedAt: base},
		{ID: "sale-002", ProductID: "prod-003", Quantity: 1, TotalCents: 399, Cashier: "jchen", CreatedAt: base.Add(15 * time.Minute)},
		{ID: "sale-003", ProductID: "prod-006", Quantity: 3, TotalCents: 1947, Cashier: "mdavis", CreatedAt: base.Add(40 * time.Minute)},
		{ID: "sale-004", ProductID: "prod-011", Quantity: 1, TotalCents: 799, Cashier: "jchen", CreatedAt: base.Add(70 * time.Minute)},
		{ID: "sale-005", ProductID: "prod-007", Quantity: 2, TotalCents: 2198, Cashier: "rpatel", CreatedAt: base.Add(95 * time.Minute)},
	}
}
