package view

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledgerport/internal/ledger"
)

// ImportsModel lists recent runs from the import journal.
type ImportsModel struct {
	CommonModel
	ledgerService *ledger.Service

	table   table.Model
	imports []*ledger.Import
	loading bool
	err     error
}

func NewImportsModel(svc *ledger.Service) ImportsModel {
	return ImportsModel{
		ledgerService: svc,
		loading:       true,
		table: newTable([]table.Column{
			{Title: "When", Width: 16},
			{Title: "File", Width: 24},
			{Title: "Fmt", Width: 5},
			{Title: "Status", Width: 10},
			{Title: "Scanned", Width: 8},
			{Title: "Valid", Width: 8},
			{Title: "Upserted", Width: 9},
			{Title: "Error", Width: 30},
		}),
	}
}

func (m ImportsModel) Title() string     { return "Recent Imports" }
func (m ImportsModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m ImportsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ImportsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case importsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.imports = msg.imports
		m.refreshTable()

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *ImportsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.imports))
	for _, imp := range m.imports {
		rows = append(rows, table.Row{
			imp.CreatedAt.Local().Format("2006-01-02 15:04"),
			imp.Filename,
			imp.Format,
			string(imp.Status),
			strconv.Itoa(imp.Scanned),
			strconv.Itoa(imp.Valid),
			strconv.FormatInt(imp.Upserted, 10),
			imp.Error,
		})
	}

	m.table.SetRows(rows)
}

func (m ImportsModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	if m.err != nil {
		return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if m.loading {
		return style.Render("Loading imports...")
	}

	return style.Render(boxed(m.table.View()))
}

type importsLoadedMsg struct {
	imports []*ledger.Import
	err     error
}

func (m ImportsModel) loadCmd() tea.Cmd {
	svc := m.ledgerService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		imports, err := svc.ListImports(ctx, ledger.DefaultImportsList)

		return importsLoadedMsg{imports: imports, err: err}
	}
}
