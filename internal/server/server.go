package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/aisle/internal/catalog"
	"github.com/dukerupert/aisle/internal/handler"
	"github.com/dukerupert/aisle/internal/middleware"
	"github.com/dukerupert/aisle/internal/session"
	ws "github.com/dukerupert/aisle/internal/websocket"
)

type Server struct {
	hub       *ws.Hub
	shopH     *handler.ShopHandler
	productH  *handler.ProductHandler
	locationH *handler.LocationHandler
	printH    *handler.PrintHandler
	logger    *slog.Logger
}

func New(sess *session.Manager, cat *catalog.Catalog, searcher handler.Searcher, hub *ws.Hub, logger *slog.Logger) *Server {
	return &Server{
		hub:       hub,
		shopH:     handler.NewShopHandler(sess, cat, hub, logger.With("component", "shop")),
		productH:  handler.NewProductHandler(cat, searcher, hub, logger.With("component", "product")),
		locationH: handler.NewLocationHandler(cat, hub, logger.With("component", "location")),
		printH:    handler.NewPrintHandler(sess, logger.With("component", "print")),
		logger:    logger,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Current shop
	mux.HandleFunc("GET /api/shop", s.shopH.Get)
	mux.HandleFunc("POST /api/shop", s.shopH.Create)
	mux.HandleFunc("POST /api/shop/refresh", s.shopH.Refresh)
	mux.HandleFunc("POST /api/shop/items", s.shopH.AddItem)
	mux.HandleFunc("PATCH /api/shop/items/{id}/quantity", s.shopH.UpdateQuantity)
	mux.HandleFunc("PUT /api/shop/items/{id}/status", s.shopH.UpdateStatus)
	mux.HandleFunc("DELETE /api/shop/items/{id}", s.shopH.DeleteItem)

	// Products
	mux.HandleFunc("GET /api/products", s.productH.List)
	mux.HandleFunc("POST /api/products", s.productH.Create)
	mux.HandleFunc("GET /api/products/defaults", s.productH.Defaults)
	mux.HandleFunc("GET /api/products/{id}", s.productH.Get)
	mux.HandleFunc("PUT /api/products/{id}", s.productH.Update)
	mux.HandleFunc("DELETE /api/products/{id}", s.productH.Delete)
	mux.HandleFunc("GET /api/route", s.productH.Route)
	mux.HandleFunc("POST /api/moves", s.productH.Move)
	mux.HandleFunc("GET /api/search", s.productH.Search)

	// Locations
	mux.HandleFunc("GET /api/locations", s.locationH.List)
	mux.HandleFunc("POST /api/locations", s.locationH.Create)
	mux.HandleFunc("PUT /api/locations/{id}", s.locationH.Update)
	mux.HandleFunc("DELETE /api/locations/{id}", s.locationH.Delete)

	// Plain-text renderings
	mux.HandleFunc("GET /print", s.printH.Print)
	mux.HandleFunc("GET /share", s.printH.Share)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
