package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

// statusCycle is the order of the [s] filter. Empty means all.
var statusCycle = []order.Status{
	"",
	order.StatusPending,
	order.StatusAwaitingPayment,
	order.StatusPaymentReceived,
	order.StatusPaymentVerified,
	order.StatusDispute,
	order.StatusCompleted,
}

// OrdersModel is a read-only browser over all orders.
type OrdersModel struct {
	CommonModel
	orders *order.Service

	table  table.Model
	rows   []*order.Transaction
	filter order.ListFilter

	statusFilterIdx int

	loading bool
	err     error
}

func NewOrdersModel(orders *order.Service) OrdersModel {
	columns := []table.Column{
		{Title: "Code", Width: 18},
		{Title: "Status", Width: 18},
		{Title: "Amount", Width: 14},
		{Title: "Reference", Width: 18},
		{Title: "Created", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return OrdersModel{
		orders:  orders,
		table:   t,
		loading: true,
	}
}

func (m OrdersModel) Init() tea.Cmd {
	return m.loadOrdersCmd()
}

func (m OrdersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadOrdersMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.rows = msg.orders
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadOrdersCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(statusCycle)
			m.applyFilter()
			m.loading = true

			return m, m.loadOrdersCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *OrdersModel) applyFilter() {
	status := statusCycle[m.statusFilterIdx]
	if status == "" {
		m.filter.Status = nil
		return
	}

	m.filter.Status = &status
}

func (m *OrdersModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.rows))

	for _, t := range m.rows {
		rows = append(rows, table.Row{
			t.Code,
			string(t.Status),
			FormatAmount(t.Amount, t.Currency),
			t.PaymentReference,
			FormatDate(t.CreatedAt),
		})
	}

	m.table.SetRows(rows)
}

func (m OrdersModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading orders...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	label := "All"
	if s := statusCycle[m.statusFilterIdx]; s != "" {
		label = string(s)
	}

	header := fmt.Sprintf("Filter: [s] Status: %s | [r] Refresh | Esc: back",
		lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(label))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	return lipgloss.NewStyle().Padding(1).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().PaddingBottom(1).Render(header),
			tableView,
		),
	)
}

type loadOrdersMsg struct {
	orders []*order.Transaction
	err    error
}

func (m OrdersModel) loadOrdersCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		orders, err := m.orders.List(ctx, filter)

		return loadOrdersMsg{orders: orders, err: err}
	}
}
