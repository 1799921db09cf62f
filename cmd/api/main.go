package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/lauraedgell33/autoscout-sub002/internal/config"
	"github.com/lauraedgell33/autoscout-sub002/internal/contract"
	"github.com/lauraedgell33/autoscout-sub002/internal/database"
	"github.com/lauraedgell33/autoscout-sub002/internal/dispute"
	disputeStore "github.com/lauraedgell33/autoscout-sub002/internal/dispute/store"
	"github.com/lauraedgell33/autoscout-sub002/internal/export"
	escrowHttp "github.com/lauraedgell33/autoscout-sub002/internal/http"
	adminHandler "github.com/lauraedgell33/autoscout-sub002/internal/http/admin"
	disputeHandler "github.com/lauraedgell33/autoscout-sub002/internal/http/dispute"
	exportHandler "github.com/lauraedgell33/autoscout-sub002/internal/http/export"
	orderHandler "github.com/lauraedgell33/autoscout-sub002/internal/http/order"
	paymentHandler "github.com/lauraedgell33/autoscout-sub002/internal/http/payment"
	"github.com/lauraedgell33/autoscout-sub002/internal/notify"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
	orderStore "github.com/lauraedgell33/autoscout-sub002/internal/order/store"
	"github.com/lauraedgell33/autoscout-sub002/internal/payment"
	"github.com/lauraedgell33/autoscout-sub002/internal/reconcile"
	"github.com/lauraedgell33/autoscout-sub002/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rate, err := cfg.CommissionRate()
	if err != nil {
		slog.Error("failed to parse commission rate", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	documents, err := storage.NewStore(cfg.Storage.Dir)
	if err != nil {
		slog.Error("failed to open document storage", "error", err)
		os.Exit(1)
	}

	var (
		orders     = orderStore.New(db)
		disputes   = disputeStore.New(db)
		contracts  = contract.NewClient(cfg.Contracts.URL, cfg.Contracts.Token)
		dispatcher = notify.NewDispatcher(slog.Default(), cfg.Notify.WebhookURL)
	)

	escrowAccount := payment.BankAccount{
		Holder:   cfg.Escrow.AccountHolder,
		IBAN:     cfg.Escrow.IBAN,
		BIC:      cfg.Escrow.BIC,
		BankName: cfg.Escrow.BankName,
	}

	var (
		engine         = order.NewEngine(orders, contracts, dispatcher)
		orderService   = order.NewService(orders)
		paymentService = payment.NewService(engine, orders, documents, escrowAccount, slog.Default())
		disputeService = dispute.NewService(engine, orders, disputes)
		reconciler     = reconcile.NewService(orders)
		exporter       = export.NewService(orders, documents, cfg.Contracts.Token)
	)

	var (
		ordersH   = orderHandler.NewHandler(orderService, engine, documents, rate)
		paymentsH = paymentHandler.NewHandler(paymentService)
		disputesH = disputeHandler.NewHandler(disputeService)
		adminH    = adminHandler.NewHandler(paymentService, reconciler, orderService)
		exportH   = exportHandler.NewHandler(exporter)
	)

	router := escrowHttp.New(cfg.JWT.Secret, ordersH, paymentsH, disputesH, adminH, exportH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
