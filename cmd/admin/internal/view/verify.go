package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
	"github.com/lauraedgell33/autoscout-sub002/internal/payment"
)

// VerifyModel walks the queue of submitted payment proofs and records one
// verify/reject decision per order.
type VerifyModel struct {
	CommonModel
	payments *payment.Service
	orders   *order.Service
	admin    order.Actor

	queue   []*order.Transaction
	current *order.Transaction
	form    *huh.Form

	formDecision string
	formNotes    string
	formReason   string

	status     string
	loading    bool
	totalCount int
}

func NewVerifyModel(payments *payment.Service, orders *order.Service, admin order.Actor) VerifyModel {
	return VerifyModel{
		payments: payments,
		orders:   orders,
		admin:    admin,
		loading:  true,
		status:   "Loading verification queue...",
	}
}

func (m VerifyModel) Init() tea.Cmd {
	return m.loadQueueCmd()
}

func (m VerifyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}

	case loadQueueMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error loading queue: %v", msg.err)
			break
		}

		m.queue = msg.orders
		m.totalCount = len(m.queue)

		if len(m.queue) == 0 {
			m.status = "No payments waiting for verification."
			break
		}

		return m.nextOrder()

	case decideResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m.rebuildForm()
		}

		if len(m.queue) > 0 {
			return m.nextOrder()
		}

		m.current = nil
		m.form = nil
		m.status = "Queue done."
	}

	if m.form != nil {
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}

		if m.form.State != huh.StateCompleted {
			return m, cmd
		}

		m.formDecision = m.form.GetString("decision")
		m.formNotes = m.form.GetString("notes")
		m.formReason = m.form.GetString("reason")

		// Rejections need a reason; re-open the form instead of failing
		// server-side.
		if m.formDecision == payment.DecisionRejected && strings.TrimSpace(m.formReason) == "" {
			m.status = "A rejection reason is required."
			return m.rebuildForm()
		}

		return m, m.decideCmd()
	}

	return m, nil
}

func (m VerifyModel) nextOrder() (tea.Model, tea.Cmd) {
	t := m.queue[0]
	m.queue = m.queue[1:]
	m.current = t

	m.status = fmt.Sprintf("Reviewing %d/%d", m.totalCount-len(m.queue), m.totalCount)

	return m.rebuildForm()
}

func (m VerifyModel) rebuildForm() (tea.Model, tea.Cmd) {
	m.formDecision = payment.DecisionVerified
	m.formNotes = ""
	m.formReason = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("decision").
				Title("Decision").
				Options(
					huh.NewOption("Verify", payment.DecisionVerified),
					huh.NewOption("Reject", payment.DecisionRejected),
				).
				Value(&m.formDecision),

			huh.NewInput().
				Key("notes").
				Title("Notes").
				Value(&m.formNotes),

			huh.NewInput().
				Key("reason").
				Title("Rejection reason").
				Placeholder("required when rejecting").
				Value(&m.formReason),
		),
	).WithWidth(50).WithShowHelp(false)

	return m, m.form.Init()
}

func (m VerifyModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	}

	if m.current == nil || m.form == nil {
		return lipgloss.NewStyle().Padding(2).Render(m.status + "\n\n(Esc to back)")
	}

	proof := "-"
	if m.current.PaymentProof != nil {
		proof = *m.current.PaymentProof
	}

	info := fmt.Sprintf(
		"Order:     %s\nAmount:    %s\nReference: %s\nProof:     %s\nReceived:  %s\n",
		m.current.Code,
		FormatAmount(m.current.Amount, m.current.Currency),
		m.current.PaymentReference,
		proof,
		FormatDate(*m.current.PaymentReceivedAt),
	)

	content := fmt.Sprintf("%s\n\n%s\n%s\n\n(Esc to back)", m.status, info, m.form.View())

	return lipgloss.NewStyle().Padding(2).Render(content)
}

type loadQueueMsg struct {
	orders []*order.Transaction
	err    error
}

func (m VerifyModel) loadQueueCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		status := order.StatusPaymentReceived
		orders, err := m.orders.List(ctx, order.ListFilter{Status: &status})

		return loadQueueMsg{orders: orders, err: err}
	}
}

type decideResultMsg struct {
	err error
}

func (m VerifyModel) decideCmd() tea.Cmd {
	id := m.current.ID
	decision := payment.Decision{
		Outcome: m.formDecision,
		Notes:   m.formNotes,
		Reason:  m.formReason,
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.payments.Decide(ctx, id, m.admin, decision)

		return decideResultMsg{err: err}
	}
}
