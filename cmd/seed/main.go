package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"elearning-platform/internal/config"
	pg "elearning-platform/internal/infra/db/postgres"
	"elearning-platform/internal/usecase"

	"github.com/google/uuid"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool := pg.MustConnect(cfg.Database.URL)
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)
	planUC := usecase.NewPlanUseCase(planRepo)

	// If plans already exist, do nothing
	plans, err := planUC.List(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (days=%d, amount=%d %s)\n", p.Name, p.DurationDays, p.AmountMinor, p.Currency)
		}
	} else {
		seed := []struct {
			Name   string
			Days   int
			Amount int64
		}{
			{"Monthly", 30, 500_000},
			{"Termly", 120, 1_500_000},
			{"Yearly", 365, 3_600_000},
		}
		for _, s := range seed {
			p, err := planUC.Create(ctx, s.Name, s.Days, s.Amount, "NGN")
			if err != nil {
				log.Fatalf("create plan %q: %v", s.Name, err)
			}
			fmt.Printf("seeded: %s (id=%s, days=%d, amount=%d %s)\n", p.Name, p.ID, p.DurationDays, p.AmountMinor, p.Currency)
		}
	}

	// Seed the subject catalogue wards enroll into.
	subjects := []string{"Mathematics", "English", "Basic Science", "Civic Education"}
	for _, name := range subjects {
		const q = `INSERT INTO subjects (id, name, created_at) VALUES ($1,$2,NOW()) ON CONFLICT (name) DO NOTHING;`
		if _, err := pool.Exec(ctx, q, uuid.NewString(), name); err != nil {
			log.Fatalf("seed subject %q: %v", name, err)
		}
	}
	fmt.Println("seeding complete")
}
