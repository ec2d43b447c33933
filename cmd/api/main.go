package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/rentvest/rent2own-service/internal/affordability"
	"github.com/rentvest/rent2own-service/internal/config"
	"github.com/rentvest/rent2own-service/internal/equity"
	"github.com/rentvest/rent2own-service/internal/handler"
	"github.com/rentvest/rent2own-service/internal/integrations/rates"
	"github.com/rentvest/rent2own-service/internal/middleware"
	"github.com/rentvest/rent2own-service/internal/payments"
	"github.com/rentvest/rent2own-service/internal/repository"
	"github.com/rentvest/rent2own-service/internal/service"
	"github.com/rentvest/rent2own-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	calc := affordability.NewCalculator(affordability.DefaultPolicy())
	ledger := equity.NewLedger(repository.NewEquityStore(db), logger)
	processor := payments.NewProcessor(repo, ledger, logger)
	mailer := email.NewSender(cfg, logger)
	svc := service.NewService(repo, calc, processor, ledger, mailer, logger, cfg)
	h := handler.NewHandler(svc)
	ratesClient := rates.NewClient(cfg, logger)

	// Daily payment reminders
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReminderSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := svc.SendPaymentReminders(ctx); err != nil {
			logger.Errorf("Payment reminder run failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule payment reminders: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/calculator/affordability", h.Affordability).Methods("POST")
	r.HandleFunc("/properties", h.ListProperties).Methods("GET")
	// Lending rate endpoint
	r.HandleFunc("/lending-rate", func(w http.ResponseWriter, r *http.Request) {
		rate, err := ratesClient.GetLendingRate()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get lending rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"lending_rate": rate})
	}).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/properties", h.CreateProperty).Methods("POST")
	authRouter.HandleFunc("/payments", h.CreatePayment).Methods("POST")
	authRouter.HandleFunc("/payments", h.ListPayments).Methods("GET")
	authRouter.HandleFunc("/payments/process", h.ProcessPayment).Methods("POST")
	authRouter.HandleFunc("/equity/{propertyId}", h.EquityStatus).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
