package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/warranty-tracker/warranty-client/config"
	"github.com/warranty-tracker/warranty-client/internal/query"
	"github.com/warranty-tracker/warranty-client/internal/reminder"
	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
	"github.com/warranty-tracker/warranty-client/internal/warranty/service"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func argInt(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", name)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, args[i], err)
	}
	return n, nil
}

func argAt(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

// companies [name]
func runCompanies(ctx context.Context, svc *service.Service, args []string) error {
	var (
		companies []domain.Company
		err       error
	)
	if name := argAt(args, 0); name != "" {
		companies, err = svc.Companies.SearchByName(ctx, name, false)
	} else {
		companies, err = svc.Companies.List(ctx, false)
	}
	if err != nil {
		return err
	}
	return printJSON(companies)
}

// products [name] [brand] [model]
func runProducts(ctx context.Context, svc *service.Service, args []string) error {
	search := service.ProductSearch{Name: argAt(args, 0), Brand: argAt(args, 1), ModelNumber: argAt(args, 2)}
	var (
		products []domain.Product
		err      error
	)
	if search == (service.ProductSearch{}) {
		products, err = svc.Products.List(ctx, false)
	} else {
		products, err = svc.Products.Search(ctx, search, false)
	}
	if err != nil {
		return err
	}
	return printJSON(products)
}

// warranties [status]
func runWarranties(ctx context.Context, svc *service.Service, args []string) error {
	var (
		warranties []domain.Warranty
		err        error
	)
	if status := argAt(args, 0); status != "" {
		warranties, err = svc.Warranties.ByStatus(ctx, domain.WarrantyStatus(status), true)
	} else {
		warranties, err = svc.Warranties.List(ctx, true)
	}
	if err != nil {
		return err
	}
	return printJSON(warranties)
}

// expiring <days>
func runExpiring(ctx context.Context, svc *service.Service, args []string) error {
	days, err := argInt(args, 0, "days")
	if err != nil {
		return err
	}
	warranties, err := svc.Warranties.ExpiringWithinDays(ctx, days, true)
	if err != nil {
		return err
	}
	return printJSON(warranties)
}

// claims <warrantyId>
func runClaims(ctx context.Context, svc *service.Service, args []string) error {
	id, err := argInt(args, 0, "warrantyId")
	if err != nil {
		return err
	}
	claims, err := svc.Claims.ByWarrantyID(ctx, int64(id), true)
	if err != nil {
		return err
	}
	return printJSON(claims)
}

func runMe(ctx context.Context, svc *service.Service) error {
	user, err := svc.Users.Current(ctx, true)
	if err != nil {
		return err
	}
	return printJSON(user)
}

// runWatch checks expiring warranties on the reminder schedule and prints
// every state change of the cached result until interrupted.
func runWatch(ctx context.Context, svc *service.Service, cfg config.ReminderConfig) error {
	key := svc.Warranties.Key("expiring", cfg.Days)
	updates, cancel := svc.Cache.Watch(key)
	defer cancel()

	sched := reminder.NewScheduler(svc.Warranties, cfg.Days, func(_ context.Context, ws []domain.Warranty) {
		fmt.Printf("%d warranties expire within %d days\n", len(ws), cfg.Days)
	})
	if err := sched.Start(cfg.Schedule); err != nil {
		return err
	}
	defer sched.Stop()

	if err := sched.RunOnce(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			printSnapshot(snap)
		}
	}
}

func printSnapshot(s query.Snapshot) {
	switch s.Status {
	case query.StatusSuccess:
		ws, _ := s.Data.([]domain.Warranty)
		fmt.Printf("[%s] %s: %d warranties (stale=%t)\n", s.UpdatedAt.Format("15:04:05"), s.Status, len(ws), s.Stale)
	case query.StatusError:
		fmt.Printf("[%s] %s: %v\n", s.UpdatedAt.Format("15:04:05"), s.Status, s.Err)
	default:
		fmt.Printf("%s\n", s.Status)
	}
}
