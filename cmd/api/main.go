package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/kwesi-damoah/atlas-ledger/internal/accountnum"
	"github.com/kwesi-damoah/atlas-ledger/internal/config"
	"github.com/kwesi-damoah/atlas-ledger/internal/fees"
	"github.com/kwesi-damoah/atlas-ledger/internal/fx"
	"github.com/kwesi-damoah/atlas-ledger/internal/handler"
	"github.com/kwesi-damoah/atlas-ledger/internal/logging"
	"github.com/kwesi-damoah/atlas-ledger/internal/middleware"
	"github.com/kwesi-damoah/atlas-ledger/internal/repository"
	"github.com/kwesi-damoah/atlas-ledger/internal/rewards"
	"github.com/kwesi-damoah/atlas-ledger/internal/service"
	"github.com/kwesi-damoah/atlas-ledger/internal/service/ledger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.Init("atlas-ledger-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	journalRepo := repository.NewJournalRepository(db)
	eventRepo := repository.NewEventRepository(db)
	userRepo := repository.NewUserRepository(db)

	feeCalc := fees.NewCalculator()
	converter := fx.NewConverter(cfg.FXFailClosed)
	accrual := rewards.NewAccrual(userRepo)
	numbers := accountnum.New(cfg.AccountNumberPrefix)

	ledgerSvc := ledger.NewService(
		accountRepo, transactionRepo, journalRepo, eventRepo,
		feeCalc, converter, accrual,
		db, cfg.LockTimeoutMS,
	)
	accountSvc := service.NewAccountService(accountRepo, transactionRepo, userRepo, numbers)

	accountHandler := handler.NewAccountHandler(accountSvc)
	transactionHandler := handler.NewTransactionHandler(ledgerSvc)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			handler.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		handler.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/v1/accounts", accountHandler.Open)
	mux.HandleFunc("GET /api/v1/accounts", accountHandler.List)
	mux.HandleFunc("GET /api/v1/accounts/{id}", accountHandler.Summary)
	mux.HandleFunc("POST /api/v1/accounts/{id}/deactivate", accountHandler.Deactivate)

	mux.HandleFunc("POST /api/v1/transactions", transactionHandler.Submit)
	mux.HandleFunc("GET /api/v1/transactions/{id}", transactionHandler.Get)
	mux.HandleFunc("POST /api/v1/transactions/{id}/cancel", transactionHandler.Cancel)

	root := middleware.RequestID(middleware.Logging(middleware.Recovery(mux)))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      root,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connectDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeS) * time.Second)

	var pingErr error
	for attempt := 1; attempt <= 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		pingErr = db.PingContext(ctx)
		cancel()
		if pingErr == nil {
			return db, nil
		}
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	db.Close()
	return nil, fmt.Errorf("connectDB: ping: %w", pingErr)
}
