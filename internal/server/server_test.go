package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/aisle/internal/catalog"
	"github.com/dukerupert/aisle/internal/database"
	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/optimistic"
	"github.com/dukerupert/aisle/internal/session"
	"github.com/dukerupert/aisle/internal/store"
	ws "github.com/dukerupert/aisle/internal/websocket"
)

type testApp struct {
	handler http.Handler
	coord   *optimistic.Coordinator
	shops   *store.ShopStore
	sess    *session.Manager
}

func setupTestServer(t *testing.T) *testApp {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	products := store.NewProductStore(db)
	locations := store.NewLocationStore(db)
	shops := store.NewShopStore(db)

	ctx := context.Background()
	for _, l := range []model.StoreLocation{
		{ID: "produce", Name: "Produce", SequenceNumber: 1},
		{ID: "bakery", Name: "Bakery", SequenceNumber: 2},
	} {
		if err := locations.CreateLocation(ctx, &l); err != nil {
			t.Fatalf("seed location: %v", err)
		}
	}
	for _, p := range []model.Product{
		{ID: "bread", Name: "Bread", StoreLocationID: "bakery", ShelfHeight: model.ShelfMiddle, SequenceNumber: 10, DefaultQuantity: 1},
		{ID: "apple", Name: "Apple", StoreLocationID: "produce", ShelfHeight: model.ShelfMiddle, SequenceNumber: 10, DefaultQuantity: 2},
	} {
		if err := products.CreateProduct(ctx, &p); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}

	hub := ws.NewHub(logger)
	coord := optimistic.New(optimistic.Keep, hub, logger)
	cat := catalog.New(products, locations, store.NewPrefsStore(db), coord, hub, logger)
	sess := session.New(shops, coord, session.Options{Notifier: hub, Products: cat, Logger: logger})
	if err := cat.Load(ctx); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if err := sess.Load(ctx); err != nil {
		t.Fatalf("load session: %v", err)
	}

	return &testApp{
		handler: New(sess, cat, products, hub, logger).Router(),
		coord:   coord,
		shops:   shops,
		sess:    sess,
	}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	app := setupTestServer(t)
	rec := app.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestShopFlow(t *testing.T) {
	app := setupTestServer(t)

	rec := app.do(t, http.MethodGet, "/api/shop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get empty shop = %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec); got["shop"] != nil {
		t.Errorf("shop = %v, want null", got["shop"])
	}

	// Adding with no shop creates one.
	rec = app.do(t, http.MethodPost, "/api/shop/items?wait=true", map[string]any{"product_id": "bread"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add bread = %d %s", rec.Code, rec.Body.String())
	}
	rec = app.do(t, http.MethodPost, "/api/shop/items?wait=true", map[string]any{"product_id": "apple"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add apple = %d %s", rec.Code, rec.Body.String())
	}
	apple := decode[model.WeeklyShopItem](t, rec)
	if apple.Quantity != 2 || apple.Status != model.StatusRequired {
		t.Errorf("apple item = %+v, want quantity 2 required", apple)
	}

	rec = app.do(t, http.MethodPost, "/api/shop/items", map[string]any{"product_id": "apple"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate add = %d, want 409", rec.Code)
	}
	rec = app.do(t, http.MethodPost, "/api/shop/items", map[string]any{"product_id": "durian"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown product = %d, want 404", rec.Code)
	}

	rec = app.do(t, http.MethodPatch, "/api/shop/items/"+apple.ID+"/quantity?wait=true", map[string]any{"delta": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("increment = %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[model.WeeklyShopItem](t, rec); got.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", got.Quantity)
	}
	rec = app.do(t, http.MethodPut, "/api/shop/items/"+apple.ID+"/status?wait=true", map[string]any{"status": "bought"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set status = %d %s", rec.Code, rec.Body.String())
	}
	rec = app.do(t, http.MethodPut, "/api/shop/items/"+apple.ID+"/status", map[string]any{"status": "lost"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status = %d, want 400", rec.Code)
	}

	// Shop order walks produce before bakery; list order is alphabetical.
	for mode, want := range map[string][]string{"shop": {"Apple", "Bread"}, "list": {"Apple", "Bread"}} {
		rec = app.do(t, http.MethodGet, "/api/shop?mode="+mode, nil)
		resp := decode[struct {
			Items []model.WeeklyShopItem `json:"items"`
		}](t, rec)
		if len(resp.Items) != len(want) {
			t.Fatalf("%s items = %d, want %d", mode, len(resp.Items), len(want))
		}
		for i, name := range want {
			if resp.Items[i].Product.Name != name {
				t.Errorf("%s[%d] = %s, want %s", mode, i, resp.Items[i].Product.Name, name)
			}
		}
	}
	if rec := app.do(t, http.MethodGet, "/api/shop?mode=aisle", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode = %d, want 400", rec.Code)
	}

	// The store agrees with the session.
	stored, err := app.shops.CurrentShop(context.Background(), session.WeekStart(time.Now()))
	if err != nil || stored == nil {
		t.Fatalf("stored shop: %v %v", stored, err)
	}
	for _, it := range stored.Items {
		if it.ID == apple.ID && (it.Quantity != 3 || it.Status != model.StatusBought) {
			t.Errorf("stored apple = %d/%s, want 3/bought", it.Quantity, it.Status)
		}
	}

	rec = app.do(t, http.MethodGet, "/print", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("print = %d", rec.Code)
	}
	if out := rec.Body.String(); !strings.Contains(out, "Produce\n[x] 3 x Apple\n") || !strings.Contains(out, "Bakery\n[ ] 1 x Bread\n") {
		t.Errorf("print = %q", out)
	}
	rec = app.do(t, http.MethodGet, "/share", nil)
	if out := rec.Body.String(); strings.Contains(out, "Apple") || !strings.Contains(out, "- Bread\n") {
		t.Errorf("share = %q", out)
	}

	rec = app.do(t, http.MethodDelete, "/api/shop/items/"+apple.ID+"?wait=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d %s", rec.Code, rec.Body.String())
	}
	rec = app.do(t, http.MethodDelete, "/api/shop/items/"+apple.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete again = %d, want 404", rec.Code)
	}
	app.coord.Wait()
}

func TestProductAdmin(t *testing.T) {
	app := setupTestServer(t)

	rec := app.do(t, http.MethodPost, "/api/products?wait=true", map[string]any{
		"name":              "Banana",
		"store_location_id": "produce",
		"aliases_text":      "plantain, ",
		"typical_price":     "0.25",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	banana := decode[model.Product](t, rec)
	if banana.SequenceNumber != 13 || len(banana.Aliases) != 1 || banana.Aliases[0] != "plantain" {
		t.Errorf("banana = %+v", banana)
	}

	rec = app.do(t, http.MethodPost, "/api/products", map[string]any{"store_location_id": "produce"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name = %d, want 400", rec.Code)
	}

	rec = app.do(t, http.MethodGet, "/api/search?q=plant", nil)
	if got := decode[[]model.Product](t, rec); len(got) != 1 || got[0].ID != banana.ID {
		t.Errorf("search = %+v", got)
	}

	rec = app.do(t, http.MethodGet, "/api/products/defaults", nil)
	if d := decode[catalog.Defaults](t, rec); d.StoreLocationID != "produce" || d.SequenceNumber != 13 {
		t.Errorf("defaults = %+v", d)
	}

	rec = app.do(t, http.MethodGet, "/api/products/defaults?name=bagels", nil)
	if d := decode[catalog.Defaults](t, rec); d.StoreLocationID != "bakery" || d.SequenceNumber != 13 {
		t.Errorf("defaults for bagels = %+v", d)
	}

	// Drop banana in front of apple.
	rec = app.do(t, http.MethodPost, "/api/moves?wait=true", catalog.MoveEvent{ProductID: banana.ID, LocationID: "produce", Index: 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("move = %d %s", rec.Code, rec.Body.String())
	}
	group := decode[[]model.Product](t, rec)
	if len(group) != 2 || group[0].ID != banana.ID || group[1].ID != "apple" {
		t.Errorf("group = %+v", group)
	}

	rec = app.do(t, http.MethodGet, "/api/route", nil)
	route := decode[[]struct {
		Location model.StoreLocation `json:"location"`
		Products []model.Product     `json:"products"`
	}](t, rec)
	if len(route) != 2 || route[0].Location.ID != "produce" || len(route[0].Products) != 2 {
		t.Errorf("route = %+v", route)
	}

	rec = app.do(t, http.MethodDelete, "/api/locations/bakery?wait=true", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("delete referenced location = %d, want 409", rec.Code)
	}
	rec = app.do(t, http.MethodGet, "/api/locations", nil)
	if got := decode[[]model.StoreLocation](t, rec); len(got) != 2 {
		t.Errorf("locations after rejected delete = %d, want 2", len(got))
	}
	app.coord.Wait()
}

func TestShopOrderFollowsMoves(t *testing.T) {
	app := setupTestServer(t)
	for _, id := range []string{"apple", "bread"} {
		if rec := app.do(t, http.MethodPost, "/api/shop/items?wait=true", map[string]any{"product_id": id}); rec.Code != http.StatusCreated {
			t.Fatalf("add %s = %d %s", id, rec.Code, rec.Body.String())
		}
	}

	shopOrder := func() []string {
		rec := app.do(t, http.MethodGet, "/api/shop?mode=shop", nil)
		resp := decode[struct {
			Items []model.WeeklyShopItem `json:"items"`
		}](t, rec)
		var names []string
		for _, it := range resp.Items {
			names = append(names, it.Product.Name)
		}
		return names
	}
	if got := strings.Join(shopOrder(), ","); got != "Apple,Bread" {
		t.Fatalf("order before move = %s, want Apple,Bread", got)
	}

	// Apple now sits behind bread in the bakery.
	rec := app.do(t, http.MethodPost, "/api/moves?wait=true", catalog.MoveEvent{ProductID: "apple", LocationID: "bakery", Index: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("move = %d %s", rec.Code, rec.Body.String())
	}
	if got := strings.Join(shopOrder(), ","); got != "Bread,Apple" {
		t.Errorf("order after move = %s, want Bread,Apple", got)
	}
	app.coord.Wait()
}
