package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/aisle/internal/catalog"
	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/ordering"
	ws "github.com/dukerupert/aisle/internal/websocket"
)

// Searcher runs a product search against the store.
type Searcher interface {
	Search(ctx context.Context, term string) ([]model.Product, error)
}

type ProductHandler struct {
	catalog  *catalog.Catalog
	searcher Searcher
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewProductHandler(cat *catalog.Catalog, searcher Searcher, hub *ws.Hub, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: cat, searcher: searcher, hub: hub, logger: logger}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.Products()
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.catalog.Product(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Route returns the products grouped by location in walking order.
func (h *ProductHandler) Route(w http.ResponseWriter, r *http.Request) {
	route := h.catalog.Route()
	if route == nil {
		route = []ordering.LocationGroup{}
	}
	writeJSON(w, http.StatusOK, route)
}

// productRequest accepts aliases either as a list or as comma-separated text.
type productRequest struct {
	catalog.ProductInput
	AliasesText string `json:"aliases_text"`
}

func (req productRequest) input() catalog.ProductInput {
	in := req.ProductInput
	if in.Aliases == nil && req.AliasesText != "" {
		in.Aliases = model.ParseAliases(req.AliasesText)
	}
	return in
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := req.input()
	in.ID = ""
	h.save(w, r, in, "created", http.StatusCreated)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := req.input()
	in.ID = r.PathValue("id")
	h.save(w, r, in, "updated", http.StatusOK)
}

func (h *ProductHandler) save(w http.ResponseWriter, r *http.Request, in catalog.ProductInput, action string, status int) {
	p, product, err := h.catalog.SaveProduct(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("product", action, product.ID, nil))
	respond(w, r, h.logger, p, status, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.catalog.DeleteProduct(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("product", "deleted", id, nil))
	respond(w, r, h.logger, p, http.StatusOK, nil)
}

// Move applies a drag reorder and returns the destination group.
func (h *ProductHandler) Move(w http.ResponseWriter, r *http.Request) {
	var ev catalog.MoveEvent
	if !decodeJSON(w, r, &ev) {
		return
	}
	p, err := h.catalog.Move(r.Context(), ev)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	moved, _ := h.catalog.Product(ev.ProductID)
	h.hub.Broadcast(ws.NewMessage("product", "moved", ev.ProductID, map[string]any{"location_id": moved.StoreLocationID}))
	group := h.catalog.Groups()[moved.StoreLocationID]
	if group == nil {
		group = []model.Product{}
	}
	respond(w, r, h.logger, p, http.StatusOK, group)
}

// Defaults proposes new-product form values for ?location_id=. Without a
// location, ?name= is used to guess one before falling back to the last
// location used.
func (h *ProductHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	locationID := q.Get("location_id")
	if locationID == "" {
		if loc, ok := h.catalog.SuggestLocation(q.Get("name")); ok {
			locationID = loc.ID
		}
	}
	writeJSON(w, http.StatusOK, h.catalog.Defaults(r.Context(), locationID))
}

// Search is the request/response form of the websocket search, for clients
// that do their own debouncing.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeJSON(w, http.StatusOK, []model.Product{})
		return
	}
	products, err := h.searcher.Search(r.Context(), term)
	if err != nil {
		h.logger.Warn("search failed", "term", term, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Error searching products"})
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}
