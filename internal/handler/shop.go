package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/aisle/internal/catalog"
	"github.com/dukerupert/aisle/internal/listsort"
	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/optimistic"
	"github.com/dukerupert/aisle/internal/session"
	"github.com/dukerupert/aisle/internal/validation"
	ws "github.com/dukerupert/aisle/internal/websocket"
)

type ShopHandler struct {
	session *session.Manager
	catalog *catalog.Catalog
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewShopHandler(sess *session.Manager, cat *catalog.Catalog, hub *ws.Hub, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{session: sess, catalog: cat, hub: hub, logger: logger}
}

type shopResponse struct {
	Shop  *model.WeeklyShop      `json:"shop"`
	Mode  listsort.Mode          `json:"mode"`
	Items []model.WeeklyShopItem `json:"items"`
}

// Get returns the current shop with its items sorted by ?mode=list|shop.
func (h *ShopHandler) Get(w http.ResponseWriter, r *http.Request) {
	mode, err := listsort.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	resp := shopResponse{Shop: h.session.Current(), Mode: mode, Items: h.session.Items(mode)}
	if resp.Shop != nil {
		resp.Shop.Items = nil
	}
	if resp.Items == nil {
		resp.Items = []model.WeeklyShopItem{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ShopHandler) Create(w http.ResponseWriter, r *http.Request) {
	shop, err := h.session.CreateList(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("shop", "created", shop.ID, nil))
	writeJSON(w, http.StatusCreated, shop)
}

// Refresh reloads the current shop from the store.
func (h *ShopHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Load(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.Get(w, r)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *ShopHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	product, ok := h.catalog.Product(req.ProductID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	p, item, err := h.session.Add(r.Context(), product, req.Quantity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.hub.ResetSearches()
	h.hub.Broadcast(ws.NewMessage("shop_item", "created", item.ID, nil))
	respond(w, r, h.logger, p, http.StatusCreated, item)
}

type quantityRequest struct {
	Delta    *int `json:"delta"`
	Quantity *int `json:"quantity"`
}

// UpdateQuantity takes either a delta (floored at 1) or an absolute quantity.
func (h *ShopHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req quantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		p   *optimistic.Pending
		err error
	)
	switch {
	case req.Delta != nil:
		p, err = h.session.AdjustQuantity(r.Context(), id, *req.Delta)
	case req.Quantity != nil:
		p, err = h.session.SetQuantity(r.Context(), id, *req.Quantity)
	default:
		err = validation.Violations{"quantity": "required"}
	}
	h.itemChanged(w, r, id, "updated", p, err)
}

type statusRequest struct {
	Status model.ItemStatus `json:"status"`
}

func (h *ShopHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.session.SetStatus(r.Context(), id, req.Status)
	h.itemChanged(w, r, id, "updated", p, err)
}

func (h *ShopHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.session.Remove(r.Context(), id)
	h.itemChanged(w, r, id, "deleted", p, err)
}

func (h *ShopHandler) itemChanged(w http.ResponseWriter, r *http.Request, id, action string, p *optimistic.Pending, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("shop_item", action, id, nil))
	var body any
	if action != "deleted" {
		if item, ok := h.item(id); ok {
			body = item
		}
	}
	respond(w, r, h.logger, p, http.StatusOK, body)
}

func (h *ShopHandler) item(id string) (model.WeeklyShopItem, bool) {
	shop := h.session.Current()
	if shop == nil {
		return model.WeeklyShopItem{}, false
	}
	for _, it := range shop.Items {
		if it.ID == id {
			return it, true
		}
	}
	return model.WeeklyShopItem{}, false
}
