package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledgerport/internal/ledger"
)

const searchPageSize = 20

type searchState int

const (
	searchStateTimeframe searchState = iota
	searchStateQuery
	searchStateResults
)

type SearchModel struct {
	CommonModel
	ledgerService *ledger.Service

	state           searchState
	timeframePicker TimeframePicker
	form            *huh.Form
	query           *string

	from, to *time.Time
	rangeStr string
	page     int

	table   table.Model
	result  *ledger.SearchResult
	loading bool
	err     error
}

func NewSearchModel(svc *ledger.Service) SearchModel {
	return SearchModel{
		ledgerService:   svc,
		timeframePicker: NewTimeframePicker(),
		query:           new(string),
		page:            1,
		table: newTable([]table.Column{
			{Title: "Date", Width: 10},
			{Title: "Code", Width: 10},
			{Title: "Customer", Width: 16},
			{Title: "Item", Width: 18},
			{Title: "Qty", Width: 7},
			{Title: "Price", Width: 10},
			{Title: "Debit", Width: 12},
			{Title: "Deposit", Width: 12},
			{Title: "Balance", Width: 12},
		}),
	}
}

func (m SearchModel) Title() string { return "Search Ledger" }

func (m SearchModel) ShortHelp() string {
	if m.state == searchStateResults {
		return "Esc: back | n/p: page | /: query | t: timeframe | r: refresh"
	}

	return "Esc: back | Enter: confirm"
}

func (m SearchModel) Init() tea.Cmd {
	return nil
}

func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.from, m.to, m.rangeStr = msg.Start, msg.End, msg.Label
		m.form = buildQueryForm(m.query)
		m.state = searchStateQuery

		return m, m.form.Init()

	case searchResultMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.result = msg.result
			m.refreshTable()
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-14, 5))
		return m, nil
	}

	switch m.state {
	case searchStateTimeframe:
		return m.updateTimeframe(msg)
	case searchStateQuery:
		return m.updateQuery(msg)
	case searchStateResults:
		return m.updateResults(msg)
	}

	return m, nil
}

func (m SearchModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			return m, Back
		}
	}

	var cmd tea.Cmd
	m.timeframePicker, cmd = m.timeframePicker.Update(msg)

	return m, cmd
}

func buildQueryForm(query *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("q").
				Title("Search").
				Description("Matches customer, code, item, spec, remark or document number. Empty shows everything.").
				Value(query),
		),
	).WithWidth(60).WithShowHelp(false)
}

func (m SearchModel) updateQuery(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = searchStateTimeframe
		m.timeframePicker.Reset()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = searchStateResults
	m.page = 1

	return m.load()
}

func (m SearchModel) updateResults(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "n":
			if m.result != nil && m.page*m.result.Limit < m.result.Total {
				m.page++
				return m.load()
			}

			return m, nil
		case "p":
			if m.page > 1 {
				m.page--
				return m.load()
			}

			return m, nil
		case "r":
			return m.load()
		case "/":
			m.form = buildQueryForm(m.query)
			m.state = searchStateQuery

			return m, m.form.Init()
		case "t":
			m.state = searchStateTimeframe
			m.timeframePicker.Reset()

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m SearchModel) load() (tea.Model, tea.Cmd) {
	m.loading = true

	svc := m.ledgerService
	params := ledger.SearchParams{
		From:  m.from,
		To:    m.to,
		Query: strings.TrimSpace(*m.query),
		Page:  m.page,
		Limit: searchPageSize,
	}

	return m, func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := svc.Search(ctx, params)

		return searchResultMsg{result: res, err: err}
	}
}

func (m *SearchModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.result.Rows))
	for _, e := range m.result.Rows {
		rows = append(rows, table.Row{
			FormatDate(e.TxDate),
			e.CustomerCode,
			e.CustomerName,
			e.ItemName,
			FormatAmount(e.Qty),
			FormatAmount(e.UnitPrice),
			FormatAmount(e.Amount),
			FormatAmount(e.Deposit),
			FormatAmount(e.CurrBalance),
		})
	}

	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

func (m SearchModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.state {
	case searchStateTimeframe:
		return style.Render(m.timeframePicker.View())
	case searchStateQuery:
		return style.Render(fmt.Sprintf("Range: %s\n\n%s", accentStyle.Render(m.rangeStr), m.form.View()))
	}

	if m.err != nil {
		return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if m.result == nil {
		return style.Render("Searching...")
	}

	q := *m.query
	if q == "" {
		q = "(any)"
	}

	header := fmt.Sprintf("Range: %s | Query: %s | Page %d of %d | %d rows",
		accentStyle.Render(m.rangeStr),
		accentStyle.Render(q),
		m.page, pages(m.result.Total, m.result.Limit),
		m.result.Total,
	)

	sum := m.result.Sum
	footer := fmt.Sprintf("Sum (%s): debit %s | credit %s | deposit %s | balance %s",
		m.result.SumScope,
		FormatDecimal(sum.Debit),
		FormatDecimal(sum.Credit),
		FormatDecimal(sum.Deposit),
		FormatDecimal(sum.Balance),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
		footer,
	)

	if m.loading {
		content = faintStyle.Render("Loading...") + "\n" + content
	}

	return style.Render(content)
}

func pages(total, limit int) int {
	if limit <= 0 || total == 0 {
		return 1
	}

	return (total + limit - 1) / limit
}

type searchResultMsg struct {
	result *ledger.SearchResult
	err    error
}
