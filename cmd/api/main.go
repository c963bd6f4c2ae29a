package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/JeffBoundamas/kuna-cash-flow-sub000/docs"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/account"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/category"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/config"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/database"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/obligation"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/tontine"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/transaction"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/pkg/logging"
	mw "github.com/JeffBoundamas/kuna-cash-flow-sub000/pkg/middleware"
)

// @title        Kuna Cash Flow API
// @version      1.0
// @description  Obligation ledger and rotating-savings (tontine) reconciliation engine
// @BasePath     /api/v1
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	logging.Setup()

	// Load configuration
	cfg := config.Load()

	// Initialize database connection and run migrations
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Connected to database")

	// Accounts (payment methods)
	accountRepo := account.NewRepository(db)
	accountHandler := account.NewHandler(accountRepo)

	// Categories (reconciliation category resolver)
	categoryRepo := category.NewRepository(db)

	// Transaction ledger (mirror target)
	transactionRepo := transaction.NewRepository(db)
	transactionHandler := transaction.NewHandler(transactionRepo)

	// Obligation ledger
	obligationRepo := obligation.NewRepository(db)
	obligationService := obligation.NewService(obligationRepo, accountRepo, categoryRepo, transactionRepo)
	obligationHandler := obligation.NewHandler(obligationService)

	// Tontine rotation (drives obligation cross-links)
	tontineRepo := tontine.NewRepository(db)
	tontineService := tontine.NewService(tontineRepo, accountRepo, categoryRepo, transactionRepo, obligationService)
	tontineHandler := tontine.NewHandler(tontineService)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(mw.TestUserMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/accounts", accountHandler.Routes())
		r.Mount("/transactions", transactionHandler.Routes())
		r.Mount("/obligations", obligationHandler.Routes())
		r.Mount("/tontines", tontineHandler.Routes())
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	slog.Info("Server starting", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
