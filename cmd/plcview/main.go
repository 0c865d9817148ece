// cmd/plcview/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"plcview/internal/config"
	"plcview/internal/metrics"
	"plcview/internal/query"
	"plcview/internal/store"
	"plcview/internal/supervisor"
	"plcview/internal/web"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: plcview <config.yaml>")
	}

	cfgPath := os.Args[1]
	logger := log.New(os.Stdout, "", log.LstdFlags)

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	config.Normalize(cfg)

	metrics.Init()

	// --------------------
	// Sample store
	// --------------------

	st, err := store.New(cfg.SignalNames(), cfg.Poll.History)
	if err != nil {
		log.Fatalf("store build failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Device supervision
	// --------------------

	sup := supervisor.New(cfg, st, logger)
	sup.Start(ctx)

	// --------------------
	// HTTP server
	// --------------------

	view := query.New(cfg, st, sup)
	srv := web.New(cfg, view, logger)

	logger.Printf("listening on %s (%d devices, %d signals)",
		cfg.Listen, len(cfg.Devices), len(cfg.SignalNames()))

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}

	sup.Wait()
	logger.Printf("shutdown complete")
}
