package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/warranty-tracker/warranty-client/config"
	"github.com/warranty-tracker/warranty-client/internal/warranty/service"
)

const usage = "usage: warrantyctl <companies|products|warranties|expiring|claims|me|watch> [args]"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer svc.Close()

	if cfg.Redis.Enabled() {
		go func() {
			if err := svc.Cache.ListenRemote(ctx); err != nil {
				log.Printf("Remote invalidations disabled: %v", err)
			}
		}()
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "companies":
		err = runCompanies(ctx, svc, args)
	case "products":
		err = runProducts(ctx, svc, args)
	case "warranties":
		err = runWarranties(ctx, svc, args)
	case "expiring":
		err = runExpiring(ctx, svc, args)
	case "claims":
		err = runClaims(ctx, svc, args)
	case "me":
		err = runMe(ctx, svc)
	case "watch":
		err = runWatch(ctx, svc, cfg.Reminder)
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
	if err != nil {
		log.Fatal(err)
	}
}
