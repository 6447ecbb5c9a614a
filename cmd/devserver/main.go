package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warranty-tracker/warranty-client/config"
	"github.com/warranty-tracker/warranty-client/internal/auth"
	"github.com/warranty-tracker/warranty-client/internal/auth/middleware"
	"github.com/warranty-tracker/warranty-client/internal/bootstrap"
	"github.com/warranty-tracker/warranty-client/internal/devserver"
	"github.com/warranty-tracker/warranty-client/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := bootstrap.RouterDeps{
		ServiceName: "warranty-devserver",
		Version:     cfg.App.Version,
		AuthMode:    "none",
		Server:      devserver.New(),
	}
	switch {
	case cfg.Firebase.CredentialsPath != "":
		client, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		deps.Verifier, deps.AuthMode = client, "firebase"
	case cfg.Server.APIToken != "":
		deps.Verifier = middleware.StaticToken{Token: cfg.Server.APIToken, UID: "dev-user"}
		deps.AuthMode = "static"
	default:
		log.Println("No DEV_API_TOKEN or FIREBASE_CREDENTIALS_PATH set, trusting X-User-Id")
	}

	if cfg.Database.Enabled() {
		db, err := postgres.NewConnection(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		docs := postgres.NewDocumentRepository(db)
		if err := docs.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare schema: %v", err)
		}
		if err := deps.Server.Restore(ctx, docs); err != nil {
			log.Fatalf("Failed to restore data: %v", err)
		}
		log.Printf("Persisting to postgres at %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           bootstrap.BuildRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s (auth: %s)", cfg.Server.Port, deps.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
