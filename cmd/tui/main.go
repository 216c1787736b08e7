package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/ledgerport/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/ledgerport/internal/config"
	"github.com/MrJamesThe3rd/ledgerport/internal/database"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer/rowkey"
	"github.com/MrJamesThe3rd/ledgerport/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/ledgerport/internal/ledger/store"
)

type model struct {
	ledgerService *ledger.Service
	importService *importer.Service

	currentView View

	importView  view.ImportModel
	searchView  view.SearchModel
	importsView view.ImportsModel
}

type View int

const (
	ViewMenu    View = 0
	ViewImport  View = 1
	ViewSearch  View = 2
	ViewImports View = 3
)

func initialModel() (model, func()) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString(), cfg.DB.MaxConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	keyMode, err := rowkey.ParseMode(cfg.Import.KeyMode)
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ledgerSvc := ledger.NewService(ledgerStore.New(db), ledger.Options{
		ChunkSize: cfg.Import.ChunkSize,
		MaxLimit:  cfg.Search.MaxLimit,
		SumScope:  ledger.SumScope(cfg.Search.SumScope),
	})
	impSvc := importer.NewService(ledgerSvc, importer.Options{
		HeaderScanRows: cfg.Import.HeaderScanRows,
		KeyMode:        keyMode,
		SampleRows:     cfg.Import.SampleRows,
	}, nil)

	return model{
		ledgerService: ledgerSvc,
		importService: impSvc,
		currentView:   ViewMenu,
		importView:    view.NewImportModel(impSvc),
		searchView:    view.NewSearchModel(ledgerSvc),
		importsView:   view.NewImportsModel(ledgerSvc),
	}, db.Close
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
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.importService)

				return m, m.importView.Init()
			case "2":
				m.currentView = ViewSearch
				m.searchView = view.NewSearchModel(m.ledgerService)

				return m, m.searchView.Init()
			case "3":
				m.currentView = ViewImports
				m.importsView = view.NewImportsModel(m.ledgerService)

				return m, m.importsView.Init()
			}
		}

		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewSearch:
		var newModel tea.Model
		newModel, cmd = m.searchView.Update(msg)
		m.searchView = newModel.(view.SearchModel)
	case ViewImports:
		var newModel tea.Model
		newModel, cmd = m.importsView.Update(msg)
		m.importsView = newModel.(view.ImportsModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Ledgerport\n\n" +
				"1. Import Ledger File\n" +
				"2. Search Ledger\n" +
				"3. Recent Imports\n\n" +
				"q. Quit",
		)
	case ViewImport:
		return m.importView.View()
	case ViewSearch:
		return m.searchView.View()
	case ViewImports:
		return m.importsView.View()
	}

	return "Unknown View"
}

func main() {
	m, closeDB := initialModel()
	defer closeDB()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		closeDB()
		os.Exit(1)
	}
}
