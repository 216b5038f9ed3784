package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/aisle/internal/catalog"
	"github.com/dukerupert/aisle/internal/model"
	ws "github.com/dukerupert/aisle/internal/websocket"
)

type LocationHandler struct {
	catalog *catalog.Catalog
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewLocationHandler(cat *catalog.Catalog, hub *ws.Hub, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{catalog: cat, hub: hub, logger: logger}
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations := h.catalog.Locations()
	if locations == nil {
		locations = []model.StoreLocation{}
	}
	writeJSON(w, http.StatusOK, locations)
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in catalog.LocationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ID = ""
	h.save(w, r, in, "created", http.StatusCreated)
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in catalog.LocationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ID = r.PathValue("id")
	h.save(w, r, in, "updated", http.StatusOK)
}

func (h *LocationHandler) save(w http.ResponseWriter, r *http.Request, in catalog.LocationInput, action string, status int) {
	p, loc, err := h.catalog.SaveLocation(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("location", action, loc.ID, nil))
	respond(w, r, h.logger, p, status, loc)
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.catalog.DeleteLocation(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("location", "deleted", id, nil))
	respond(w, r, h.logger, p, http.StatusOK, nil)
}
