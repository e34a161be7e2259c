package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/danarta/loan-billing/internal/config"
	"github.com/danarta/loan-billing/internal/repository"
	"github.com/danarta/loan-billing/internal/service"
)

func main() {
	log.Println("Starting billing scheduler...")

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	billingService := service.NewBillingService(loanRepo, paymentRepo, nil, cfg)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Daily sweep: evaluate every active loan and persist its delinquency flag
	_, err = c.AddFunc(cfg.Scheduler.DelinquencySpec, func() {
		log.Println("Running delinquency sweep...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		changed, err := billingService.MarkDelinquents(ctx)
		if err != nil {
			log.Printf("Delinquency sweep failed: %v", err)
			return
		}
		log.Printf("Delinquency sweep done, %d loans updated", changed)
	})
	if err != nil {
		log.Fatalf("Error scheduling delinquency sweep: %v", err)
	}

	c.Start()
	log.Println("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Println("Scheduler stopped")
}
