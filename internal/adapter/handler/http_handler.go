package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/pricing"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/service"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/port"
)

type HTTPHandler struct {
	cart     *service.Cart
	ledger   *service.InventoryLedger
	checkout *service.CheckoutService
	catalog  port.ProductCatalog
	orders   port.OrderRepository
	metrics  http.Handler
	logger   *zap.Logger
	timeout  time.Duration
}

type Dependencies struct {
	Cart     *service.Cart
	Ledger   *service.InventoryLedger
	Checkout *service.CheckoutService
	Catalog  port.ProductCatalog
	// Orders may be nil when no archive is configured
	Orders  port.OrderRepository
	Metrics http.Handler
	Logger  *zap.Logger
	Timeout time.Duration
}

func NewHTTPHandler(deps Dependencies) *HTTPHandler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 5 * time.Second
	}
	return &HTTPHandler{
		cart:     deps.Cart,
		ledger:   deps.Ledger,
		checkout: deps.Checkout,
		catalog:  deps.Catalog,
		orders:   deps.Orders,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		timeout:  deps.Timeout,
	}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/health", h.HealthCheck)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{productID}", h.UpdateQuantity)
			r.Put("/items/{productID}/discount", h.UpdateDiscount)
			r.Delete("/items/{productID}", h.RemoveItem)
		})

		r.Post("/checkout", h.Checkout)
		r.Get("/orders/{orderID}", h.GetOrder)

		r.Route("/admin/stock/{productID}", func(r chi.Router) {
			r.Put("/", h.SetStock)
			r.Post("/restock", h.Restock)
		})
	})
	return r
}

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type UpdateDiscountRequest struct {
	DiscountPercentage int `json:"discount_percentage"`
}

type SetStockRequest struct {
	Stock int `json:"stock"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type LineItemResponse struct {
	ProductID          string `json:"product_id"`
	Quantity           int    `json:"quantity"`
	UnitPrice          string `json:"unit_price"`
	OriginalUnitPrice  string `json:"original_unit_price"`
	DiscountPercentage int    `json:"discount_percentage"`
	LineTotal          string `json:"line_total"`
}

type CartResponse struct {
	Items            []LineItemResponse `json:"items"`
	TotalItems       int                `json:"total_items"`
	Subtotal         string             `json:"subtotal"`
	OriginalSubtotal string             `json:"original_subtotal"`
	Savings          string             `json:"savings"`
}

type ProductResponse struct {
	domain.Product
	DiscountedPrice string `json:"discounted_price"`
	Stock           int    `json:"stock"`
	InStock         bool   `json:"in_stock"`
}

type StockResponse struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		stock := h.ledger.GetStock(p.ID)
		out = append(out, ProductResponse{
			Product:         p,
			DiscountedPrice: money(pricing.DiscountedPrice(pricing.Round2(p.Price), p.DiscountPercentage)),
			Stock:           stock,
			InStock:         stock > 0,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartResponse())
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context()); err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse())
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if err := h.cart.AddItem(ctx, *product, quantity); err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.cartResponse())
}

func (h *HTTPHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := h.cart.UpdateQuantity(r.Context(), chi.URLParam(r, "productID"), req.Quantity); err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse())
}

func (h *HTTPHandler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	var req UpdateDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := h.cart.UpdateDiscount(r.Context(), chi.URLParam(r, "productID"), req.DiscountPercentage); err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse())
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.RemoveItem(r.Context(), chi.URLParam(r, "productID")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse())
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	result := h.checkout.Checkout(r.Context())

	status := http.StatusOK
	switch {
	case result.Success:
	case result.Reason == service.ReasonEmptyCart:
		status = http.StatusUnprocessableEntity
	case result.Reason == service.ReasonInsufficientStock:
		status = http.StatusConflict
	default:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		writeError(w, http.StatusNotFound, "not_found", "order archive disabled")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req SetStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	productID := chi.URLParam(r, "productID")
	if err := h.ledger.SetStock(r.Context(), productID, req.Stock); err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StockResponse{ProductID: productID, Stock: h.ledger.GetStock(productID)})
}

func (h *HTTPHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	productID := chi.URLParam(r, "productID")
	if err := h.ledger.Add(r.Context(), productID, req.Quantity); err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StockResponse{ProductID: productID, Stock: h.ledger.GetStock(productID)})
}

func (h *HTTPHandler) cartResponse() CartResponse {
	snap := h.cart.Snapshot()
	out := CartResponse{
		Items:            make([]LineItemResponse, 0, len(snap.Items)),
		TotalItems:       snap.Aggregates.TotalItems,
		Subtotal:         money(snap.Aggregates.Subtotal),
		OriginalSubtotal: money(snap.OriginalSubtotal),
		Savings:          money(snap.Savings),
	}
	for _, item := range snap.Items {
		out.Items = append(out.Items, LineItemResponse{
			ProductID:          item.ProductID,
			Quantity:           item.Quantity,
			UnitPrice:          money(item.UnitPrice),
			OriginalUnitPrice:  money(item.OriginalUnitPrice),
			DiscountPercentage: item.DiscountPercentage,
			LineTotal:          money(pricing.LineTotal(item.UnitPrice, item.Quantity)),
		})
	}
	return out
}

func (h *HTTPHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, port.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, service.ErrItemNotInCart):
		writeError(w, http.StatusNotFound, "item_not_in_cart", err.Error())
	case errors.Is(err, service.ErrInvalidProductID),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidStock),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidDiscount):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (h *HTTPHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
