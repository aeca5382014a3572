package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/KurrinChi/Resto-system-sub001/internal/events"
	"github.com/KurrinChi/Resto-system-sub001/internal/model"
	"github.com/KurrinChi/Resto-system-sub001/internal/service"
)

// Cart определяет интерфейс сервиса корзины, нужный хэндлеру
// это позволяет хэндлеру не зависеть от конкретной реализации сервиса
type Cart interface {
	AddItem(ctx context.Context, item model.CartItem, qty int) error
	UpdateQty(ctx context.Context, id string, qty int)
	RemoveItem(ctx context.Context, id string)
	Clear(ctx context.Context)
	Items() []model.CartItem
	Count() int
	Total() float64
}

// Orders определяет интерфейс сервиса заказов, нужный хэндлеру
type Orders interface {
	Checkout(ctx context.Context, orderType model.OrderType) (model.Order, error)
	History(ctx context.Context) []model.Order
	Get(ctx context.Context, id string) (model.Order, bool)
	Advance(ctx context.Context, id string) (model.Order, bool)
}

// Handler обрабатывает HTTP-запросы витрины
type Handler struct {
	cart    Cart
	orders  Orders
	bus     *events.Bus
	kv      service.KVStore
	addrKey string
	log     *slog.Logger
	mux     *http.ServeMux
}

// NewHandler создает новый экземпляр Handler
func NewHandler(cart Cart, orders Orders, bus *events.Bus, kv service.KVStore, addrKey string, log *slog.Logger) *Handler {
	h := &Handler{
		cart:    cart,
		orders:  orders,
		bus:     bus,
		kv:      kv,
		addrKey: addrKey,
		log:     log,
		mux:     http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP делает Handler совместимым с http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes регистрирует все эндпоинты
func (h *Handler) registerRoutes() {
	// корзина
	h.mux.HandleFunc("GET /cart", h.getCart)
	h.mux.HandleFunc("POST /cart/items", h.addCartItem)
	h.mux.HandleFunc("PATCH /cart/items/{item_id}", h.updateCartItem)
	h.mux.HandleFunc("DELETE /cart/items/{item_id}", h.removeCartItem)
	h.mux.HandleFunc("DELETE /cart", h.clearCart)

	// заказы
	h.mux.HandleFunc("POST /checkout", h.checkout)
	h.mux.HandleFunc("GET /orders", h.listOrders)
	h.mux.HandleFunc("GET /orders/{order_id}", h.getOrder)
	h.mux.HandleFunc("POST /orders/{order_id}/advance", h.advanceOrder)

	// мост синхронизации независимых частей интерфейса
	h.mux.HandleFunc("GET /address", h.getAddress)
	h.mux.HandleFunc("PUT /address", h.putAddress)
	h.mux.HandleFunc("POST /search", h.search)
	h.mux.HandleFunc("POST /map-picker", h.requestMapPicker)
}

// cartResponse — представление корзины вместе с производными величинами
type cartResponse struct {
	Items []model.CartItem `json:"items"`
	Count int              `json:"count"`
	Total float64          `json:"total"`
}

func (h *Handler) cartState() cartResponse {
	return cartResponse{
		Items: h.cart.Items(),
		Count: h.cart.Count(),
		Total: h.cart.Total(),
	}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.cartState())
}

type addItemRequest struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item := model.CartItem{ID: req.ID, Name: req.Name, Price: req.Price}
	if err := h.cart.AddItem(r.Context(), item, req.Qty); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, h.cartState())
}

type updateQtyRequest struct {
	Qty int `json:"qty"`
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("item_id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	var req updateQtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// неизвестный id — тихий no-op на уровне сервиса
	h.cart.UpdateQty(r.Context(), id, req.Qty)
	h.respondJSON(w, http.StatusOK, h.cartState())
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("item_id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	h.cart.RemoveItem(r.Context(), id)
	h.respondJSON(w, http.StatusOK, h.cartState())
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear(r.Context())
	h.respondJSON(w, http.StatusOK, h.cartState())
}

type checkoutRequest struct {
	Type model.OrderType `json:"type"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orders.Checkout(r.Context(), req.Type)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			h.respondError(w, http.StatusConflict, "cart is empty")
		case errors.Is(err, service.ErrInvalidOrderType):
			h.respondError(w, http.StatusBadRequest, "invalid order type")
		default:
			h.log.Error("checkout failed", slog.String("error", err.Error()))
			h.respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.orders.History(r.Context()))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("order_id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	order, found := h.orders.Get(r.Context(), id)
	if !found {
		h.respondError(w, http.StatusNotFound, "order not found")
		return
	}

	h.respondJSON(w, http.StatusOK, order)
}

func (h *Handler) advanceOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("order_id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	order, found := h.orders.Advance(r.Context(), id)
	if !found {
		h.respondError(w, http.StatusNotFound, "order not found")
		return
	}

	h.respondJSON(w, http.StatusOK, order)
}

type addressPayload struct {
	Address string `json:"address"`
}

func (h *Handler) getAddress(w http.ResponseWriter, r *http.Request) {
	// каноническое значение адреса живёт в хранилище, а не в шине
	var addr string
	h.kv.Load(r.Context(), h.addrKey, &addr)
	h.respondJSON(w, http.StatusOK, addressPayload{Address: addr})
}

func (h *Handler) putAddress(w http.ResponseWriter, r *http.Request) {
	var req addressPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.kv.Save(r.Context(), h.addrKey, req.Address)
	// сигнал без полезной нагрузки: подписчики перечитывают адрес из хранилища
	h.bus.Publish(events.Message{Topic: events.TopicAddressUpdated})

	h.respondJSON(w, http.StatusOK, req)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.bus.Publish(events.Message{Topic: events.TopicSearchChanged, Payload: req.Query})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requestMapPicker(w http.ResponseWriter, r *http.Request) {
	h.bus.Publish(events.Message{Topic: events.TopicMapPickerRequested})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal JSON response", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(response)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
