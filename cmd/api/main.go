package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/dssouza/bank-accounts/internal/config"
	"github.com/dssouza/bank-accounts/internal/handler"
	"github.com/dssouza/bank-accounts/internal/integrations/rates"
	"github.com/dssouza/bank-accounts/internal/middleware"
	"github.com/dssouza/bank-accounts/internal/repository"
	"github.com/dssouza/bank-accounts/internal/scheduler"
	"github.com/dssouza/bank-accounts/internal/service"
	"github.com/dssouza/bank-accounts/internal/utils/email"
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
	mailer := email.NewSender(cfg, logger)
	svc := service.NewService(repo, logger, cfg, mailer)
	h := handler.NewHandler(svc, logger)
	ratesClient := rates.NewClient(cfg, logger)

	// Start the card-expiry reminder job
	sched, err := scheduler.NewScheduler(svc, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Savings rate quote
	r.HandleFunc("/key-rate", func(w http.ResponseWriter, r *http.Request) {
		quote, err := ratesClient.GetSavingsRate()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get savings rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(quote)
	}).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/account", h.CreateAccount).Methods("POST")
	authRouter.HandleFunc("/account", h.ListAccounts).Methods("GET")
	authRouter.HandleFunc("/account/{id}", h.GetAccount).Methods("GET")
	authRouter.HandleFunc("/account/{id}", h.DeleteAccount).Methods("DELETE")
	authRouter.HandleFunc("/account/{id}/create-card", h.CreateCard).Methods("PUT")
	authRouter.HandleFunc("/account/{id}/delete-card/{cardId}", h.DeleteCard).Methods("PUT")
	authRouter.HandleFunc("/account/{id}/transactions", h.ListTransactions).Methods("GET")
	authRouter.HandleFunc("/transaction", h.CreateTransaction).Methods("POST")

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
