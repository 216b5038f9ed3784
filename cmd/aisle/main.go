package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/aisle/internal/catalog"
	"github.com/dukerupert/aisle/internal/config"
	"github.com/dukerupert/aisle/internal/database"
	"github.com/dukerupert/aisle/internal/listsort"
	"github.com/dukerupert/aisle/internal/logging"
	"github.com/dukerupert/aisle/internal/notify"
	"github.com/dukerupert/aisle/internal/optimistic"
	"github.com/dukerupert/aisle/internal/server"
	"github.com/dukerupert/aisle/internal/session"
	"github.com/dukerupert/aisle/internal/store"
	ws "github.com/dukerupert/aisle/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "text").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	productStore := store.NewProductStore(db)
	locationStore := store.NewLocationStore(db)
	shopStore := store.NewShopStore(db)
	prefsStore := store.NewPrefsStore(db)

	hub := ws.NewHub(logger.With("component", "websocket")).
		WithSearch(productStore.Search, cfg.SearchDebounce)
	notifier := notify.Multi{notify.NewLogger(logger.With("component", "notice")), hub}

	coord := optimistic.New(cfg.Policy, notifier, logger.With("component", "optimistic"))
	cat := catalog.New(productStore, locationStore, prefsStore, coord, notifier, logger.With("component", "catalog"))
	sess := session.New(shopStore, coord, session.Options{
		Notifier: notifier,
		Sorter:   listsort.NewSorter(cfg.Locale),
		Products: cat,
		Logger:   logger.With("component", "session"),
	})

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	if err := cat.Load(startCtx); err != nil {
		logger.Error("load catalog", "error", err)
	}
	if err := sess.Load(startCtx); err != nil {
		logger.Error("load current shop", "error", err)
	}
	cancelStart()

	srv := server.New(sess, cat, productStore, hub, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("aisle running", "addr", "http://localhost:"+cfg.Port, "rollback", cfg.Policy.String(), "locale", cfg.Locale.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	// Let in-flight store writes settle before the database closes.
	coord.Wait()
}
