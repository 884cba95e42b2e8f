package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/msmehub/assetstore/pkg/assetstore"
	"github.com/msmehub/assetstore/pkg/assetstore/api"
	"github.com/msmehub/assetstore/pkg/assetstore/config"
)

func main() {
	serverConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}

	svc, err := serverConfig.BuildService()
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: routes(svc, serverConfig),
	}

	// Background sweep of abandoned upload sessions
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runSweeper(sweepCtx, svc, serverConfig.SweepInterval, serverConfig.SessionTTL)

	go func() {
		log.Printf("Asset store starting on port %s (env: %s)", serverConfig.Port, serverConfig.Environment)
		log.Printf("Registry: %s, chunk ledger: %s", serverConfig.RegistryType, serverConfig.LedgerType)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

func routes(svc assetstore.Service, cfg *config.ServerConfig) http.Handler {
	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator)
		r.Mount("/", api.NewHandler(svc).Routes())
	})

	return r
}

func runSweeper(ctx context.Context, svc assetstore.Service, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := svc.SweepExpiredSessions(ctx, ttl)
			if err != nil {
				log.Printf("Session sweep failed: %v", err)
				continue
			}
			if swept > 0 {
				log.Printf("Session sweep reclaimed %d abandoned sessions", swept)
			}
		}
	}
}
