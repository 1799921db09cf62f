package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/lauraedgell33/autoscout-sub002/internal/dispute"
	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

type disputesState int

const (
	disputesStateBrowse disputesState = iota
	disputesStateResolve
)

// DisputesModel lists active disputes and lets the admin resolve the
// selected one.
type DisputesModel struct {
	CommonModel
	disputes *dispute.Service
	admin    order.Actor

	state disputesState
	table table.Model
	rows  []*dispute.Dispute
	form  *huh.Form

	formOutcome    string
	formResolution string

	loading bool
	err     error
	status  string
}

func NewDisputesModel(disputes *dispute.Service, admin order.Actor) DisputesModel {
	columns := []table.Column{
		{Title: "Opened", Width: 12},
		{Title: "Status", Width: 14},
		{Title: "Order", Width: 38},
		{Title: "Reason", Width: 40},
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

	return DisputesModel{
		disputes: disputes,
		admin:    admin,
		table:    t,
		loading:  true,
	}
}

func (m DisputesModel) Init() tea.Cmd {
	return m.loadDisputesCmd()
}

func (m DisputesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDisputesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.rows = msg.disputes
		m.refreshTable()

		return m, nil

	case resolveResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error resolving: %v", msg.err)
		} else {
			m.status = "Dispute resolved."
		}

		m.state = disputesStateBrowse
		m.form = nil
		m.table.Focus()
		m.loading = true

		return m, m.loadDisputesCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case disputesStateBrowse:
		return m.updateBrowse(msg)
	case disputesStateResolve:
		return m.updateResolve(msg)
	}

	return m, nil
}

func (m DisputesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadDisputesCmd()
		case "enter":
			return m.enterResolveMode()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DisputesModel) enterResolveMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return m, nil
	}

	m.formOutcome = string(dispute.OutcomeResume)
	m.formResolution = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("outcome").
				Title("Outcome").
				Options(
					huh.NewOption("Resume order", string(dispute.OutcomeResume)),
					huh.NewOption("Refund buyer", string(dispute.OutcomeRefund)),
					huh.NewOption("Cancel order", string(dispute.OutcomeCancel)),
				).
				Value(&m.formOutcome),

			huh.NewInput().
				Key("resolution").
				Title("Resolution").
				Value(&m.formResolution).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("resolution cannot be empty")
					}

					return nil
				}),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = disputesStateResolve
	m.table.Blur()

	return m, m.form.Init()
}

func (m DisputesModel) updateResolve(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = disputesStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.formOutcome = m.form.GetString("outcome")
	m.formResolution = m.form.GetString("resolution")

	return m, m.resolveCmd()
}

func (m *DisputesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.rows))

	for _, d := range m.rows {
		rows = append(rows, table.Row{
			FormatDate(d.CreatedAt),
			string(d.Status),
			d.OrderID.String(),
			d.Reason,
		})
	}

	m.table.SetRows(rows)
}

func (m DisputesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading disputes...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := "Enter: resolve | [r] Refresh | Esc: back"

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == disputesStateResolve && m.form != nil {
		idx := m.table.Cursor()

		reason := ""
		if idx >= 0 && idx < len(m.rows) {
			reason = m.rows[idx].Reason
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(54).
			Render(fmt.Sprintf("Resolve Dispute\n\nReason: %s\n\n%s", reason, m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

type loadDisputesMsg struct {
	disputes []*dispute.Dispute
	err      error
}

func (m DisputesModel) loadDisputesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		disputes, err := m.disputes.ListActive(ctx, m.admin)

		return loadDisputesMsg{disputes: disputes, err: err}
	}
}

type resolveResultMsg struct {
	err error
}

func (m DisputesModel) resolveCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return nil
	}

	id := m.rows[idx].ID
	outcome := dispute.Outcome(m.formOutcome)
	resolution := m.formResolution

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.disputes.Resolve(ctx, id, m.admin, resolution, outcome)

		return resolveResultMsg{err: err}
	}
}
