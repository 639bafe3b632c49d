package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uniportal/backend/internal/portalapi"
	"uniportal/backend/internal/shared"
	"uniportal/backend/internal/store"
)

func main() {
	log.Println("INFO: Starting Portal API...")

	// 1. Load Configuration
	shared.LoadEnv(".env")
	cfg, err := shared.LoadPortalConfig()
	if err != nil {
		log.Fatalf("FATAL: loading configuration: %v", err)
	}
	if err := shared.ValidatePortalConfig(cfg); err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}
	if shared.IsDevelopment(cfg) {
		shared.PrintPortalConfig(cfg)
	}

	// 2. Open the Store
	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("FATAL: opening %s store: %v", cfg.Store, err)
	}

	// 3. Setup Routes and Middleware
	router := portalapi.SetupRoutes(st, cfg)

	// 4. Configure Server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Start Server in a Goroutine
	go func() {
		log.Printf("INFO: Portal API listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down Portal API...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("ERROR: HTTP shutdown: %v", err)
	}
	if err := st.Close(ctx); err != nil {
		log.Printf("ERROR: closing store: %v", err)
	}
	log.Println("INFO: Portal API stopped.")
}

func openStore(cfg *shared.PortalConfig) (store.Store, error) {
	if cfg.Store != shared.StoreMongo {
		log.Println("WARN: using the in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoDB.ConnectTimeout+5*time.Second)
	defer cancel()
	return store.NewMongoStore(ctx, &cfg.MongoDB)
}
