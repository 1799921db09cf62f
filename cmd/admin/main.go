package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/lauraedgell33/autoscout-sub002/cmd/admin/internal/view"
	"github.com/lauraedgell33/autoscout-sub002/internal/config"
	"github.com/lauraedgell33/autoscout-sub002/internal/contract"
	"github.com/lauraedgell33/autoscout-sub002/internal/database"
	"github.com/lauraedgell33/autoscout-sub002/internal/dispute"
	disputeStore "github.com/lauraedgell33/autoscout-sub002/internal/dispute/store"
	"github.com/lauraedgell33/autoscout-sub002/internal/notify"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
	orderStore "github.com/lauraedgell33/autoscout-sub002/internal/order/store"
	"github.com/lauraedgell33/autoscout-sub002/internal/payment"
	"github.com/lauraedgell33/autoscout-sub002/internal/storage"
)

type model struct {
	orderService   *order.Service
	paymentService *payment.Service
	disputeService *dispute.Service
	admin          order.Actor

	currentView View

	verifyView   view.VerifyModel
	ordersView   view.OrdersModel
	disputesView view.DisputesModel
}

type View int

const (
	ViewMenu     View = 0
	ViewVerify   View = 1
	ViewOrders   View = 2
	ViewDisputes View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	documents, err := storage.NewStore(cfg.Storage.Dir)
	if err != nil {
		slog.Error("failed to open document storage", "error", err)
		os.Exit(1)
	}

	// The console acts as a single admin identity, set via ADMIN_ID.
	adminID, err := uuid.Parse(os.Getenv("ADMIN_ID"))
	if err != nil {
		slog.Error("ADMIN_ID must be a valid uuid")
		os.Exit(1)
	}

	admin := order.Actor{ID: adminID, Role: order.RoleAdmin}

	orders := orderStore.New(db)
	disputes := disputeStore.New(db)
	contracts := contract.NewClient(cfg.Contracts.URL, cfg.Contracts.Token)
	dispatcher := notify.NewDispatcher(slog.Default(), cfg.Notify.WebhookURL)

	engine := order.NewEngine(orders, contracts, dispatcher)
	orderSvc := order.NewService(orders)
	paymentSvc := payment.NewService(engine, orders, documents, payment.BankAccount{
		Holder:   cfg.Escrow.AccountHolder,
		IBAN:     cfg.Escrow.IBAN,
		BIC:      cfg.Escrow.BIC,
		BankName: cfg.Escrow.BankName,
	}, slog.Default())
	disputeSvc := dispute.NewService(engine, orders, disputes)

	return model{
		orderService:   orderSvc,
		paymentService: paymentSvc,
		disputeService: disputeSvc,
		admin:          admin,
		currentView:    ViewMenu,
		verifyView:     view.NewVerifyModel(paymentSvc, orderSvc, admin),
		ordersView:     view.NewOrdersModel(orderSvc),
		disputesView:   view.NewDisputesModel(disputeSvc, admin),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewVerify
				m.verifyView = view.NewVerifyModel(m.paymentService, m.orderService, m.admin)

				return m, m.verifyView.Init()
			case "2":
				m.currentView = ViewOrders
				m.ordersView = view.NewOrdersModel(m.orderService)

				return m, m.ordersView.Init()
			case "3":
				m.currentView = ViewDisputes
				m.disputesView = view.NewDisputesModel(m.disputeService, m.admin)

				return m, m.disputesView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewVerify:
		var newModel tea.Model
		newModel, cmd = m.verifyView.Update(msg)
		m.verifyView = newModel.(view.VerifyModel)
	case ViewOrders:
		var newModel tea.Model
		newModel, cmd = m.ordersView.Update(msg)
		m.ordersView = newModel.(view.OrdersModel)
	case ViewDisputes:
		var newModel tea.Model
		newModel, cmd = m.disputesView.Update(msg)
		m.disputesView = newModel.(view.DisputesModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Escrow Admin Console\n\n" +
				"1. Verify Payments\n" +
				"2. Browse Orders\n" +
				"3. Resolve Disputes\n\n" +
				"q. Quit",
		)
	case ViewVerify:
		return m.verifyView.View()
	case ViewOrders:
		return m.ordersView.View()
	case ViewDisputes:
		return m.disputesView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run admin console", "error", err)
		os.Exit(1)
	}
}
