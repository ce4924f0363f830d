package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/govpay-services/credit-ledger/internal/config"
	"github.com/govpay-services/credit-ledger/internal/credit"
	"github.com/govpay-services/credit-ledger/internal/events/kafka"
	"github.com/govpay-services/credit-ledger/internal/interfaces"
	"github.com/govpay-services/credit-ledger/internal/storage/memory"
	"github.com/govpay-services/credit-ledger/internal/storage/postgres"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	var store interfaces.CreditStore
	if cfg.DBConn != "" {
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		store = postgres.NewPostgresCreditStore(db)
	} else {
		logger.Warn("DB_CONN not set, using in-memory credit store")
		store = memory.NewMemoryCreditStore()
	}

	var publisher interfaces.EventPublisher
	if cfg.EventsEnabled {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.EventsTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	creditService := credit.NewService(store, publisher, logger)

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/credits", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			AccountID        *int64          `json:"account_id"`
			Amount           decimal.Decimal `json:"amount"`
			IsCreditMemo     bool            `json:"is_credit_memo"`
			CFSIdentifier    *string         `json:"cfs_identifier"`
			CFSSite          *string         `json:"cfs_site"`
			CreatedInvoiceID *int64          `json:"created_invoice_id"`
			Details          *string         `json:"details"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		created, err := creditService.Create(r.Context(), credit.CreateParams{
			AccountID:        req.AccountID,
			Amount:           req.Amount,
			IsCreditMemo:     req.IsCreditMemo,
			CFSIdentifier:    req.CFSIdentifier,
			CFSSite:          req.CFSSite,
			CreatedInvoiceID: req.CreatedInvoiceID,
			Details:          req.Details,
		})
		if errors.Is(err, credit.ErrNegativeAmount) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created.Projection())
	})

	http.HandleFunc("/credits/apply", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			CreditID  int64           `json:"credit_id"`
			Amount    decimal.Decimal `json:"amount"`
			InvoiceID int64           `json:"invoice_id"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		applied, err := creditService.Apply(r.Context(), req.CreditID, req.Amount, req.InvoiceID)
		switch {
		case errors.Is(err, credit.ErrInvalidApplyAmount):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, interfaces.ErrCreditNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case errors.Is(err, interfaces.ErrInsufficientCredit):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(applied.Projection())
	})

	http.HandleFunc("/accounts/credit-balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		accountIDParam := r.URL.Query().Get("account_id")
		if accountIDParam == "" {
			http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
			return
		}
		accountID, err := strconv.ParseInt(accountIDParam, 10, 64)
		if err != nil {
			http.Error(w, "account_id must be an integer", http.StatusBadRequest)
			return
		}

		total, err := creditService.TotalRemaining(r.Context(), accountID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		response := struct {
			AccountID     int64           `json:"account_id"`
			CreditBalance decimal.Decimal `json:"credit_balance"`
		}{
			AccountID:     accountID,
			CreditBalance: total,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	http.HandleFunc("/credits/by-cfs-identifier", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		cfsIdentifier := r.URL.Query().Get("cfs_identifier")
		if cfsIdentifier == "" {
			http.Error(w, "cfs_identifier is a mandatory field", http.StatusBadRequest)
			return
		}
		isCreditMemo, _ := strconv.ParseBool(r.URL.Query().Get("is_credit_memo"))

		found, err := creditService.FindByCFSIdentifier(r.Context(), cfsIdentifier, isCreditMemo)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if found == nil {
			http.Error(w, "credit not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(found.Projection())
	})

	logger.Infof("Starting server on :%s", cfg.Port)
	logger.Fatal(http.ListenAndServe(":"+cfg.Port, nil))
}
