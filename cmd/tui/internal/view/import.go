package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledgerport/internal/importer"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer/header"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer/normalize"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer/reconcile"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFilePick importState = iota
	importStateOptions
	importStateImporting
	importStateResult
)

type ImportModel struct {
	CommonModel
	importService *importer.Service

	state      importState
	filePicker filepicker.Model
	path       string
	form       *huh.Form
	baseDate   *string
	spinner    spinner.Model

	report *importer.Report
	err    error
}

func NewImportModel(impSvc *importer.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt", ".xlsx", ".xlsm", ".xls"}
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	return ImportModel{
		importService: impSvc,
		filePicker:    fp,
		baseDate:      new(string),
		spinner:       s,
	}
}

func (m ImportModel) Title() string { return "Import Ledger File" }

func (m ImportModel) ShortHelp() string {
	switch m.state {
	case importStateImporting:
		return "Importing..."
	case importStateResult:
		return "Esc: back | Enter: import another file"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if res, ok := msg.(importResultMsg); ok {
		m.state = importStateResult
		m.report = res.report
		m.err = res.err

		return m, nil
	}

	switch m.state {
	case importStateFilePick:
		return m.updateFilePick(msg)
	case importStateOptions:
		return m.updateOptions(msg)
	case importStateImporting:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case importStateResult:
		return m.updateResult(msg)
	}

	return m, nil
}

func (m ImportModel) updateFilePick(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.path = path
		m.form = buildImportForm(m.baseDate)
		m.state = importStateOptions

		return m, m.form.Init()
	}

	return m, cmd
}

// buildImportForm binds to a pointer held by the model, since the model
// itself is copied on every update.
func buildImportForm(baseDate *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("base_date").
				Title("Base date").
				Description("Used for rows whose date is missing. Leave empty to reject them.").
				Placeholder("YYYY-MM-DD").
				Value(baseDate).
				Validate(func(s string) error {
					if _, ok := normalize.BaseDate(s); !ok {
						return fmt.Errorf("not a recognisable date")
					}

					return nil
				}),
		),
	).WithWidth(60).WithShowHelp(false)
}

func (m ImportModel) updateOptions(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = importStateFilePick
		m.form = nil

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = importStateImporting
	m.err = nil
	m.report = nil

	return m, tea.Batch(m.spinner.Tick, m.importCmd(m.path, *m.baseDate))
}

func (m ImportModel) updateResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyEsc:
		return m, Back
	case tea.KeyEnter:
		m.state = importStateFilePick
		m.report = nil
		m.err = nil

		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.state {
	case importStateFilePick:
		return style.Render("Select a ledger export (CSV, XLSX or XLS):\n\n" + m.filePicker.View())
	case importStateOptions:
		return style.Render(fmt.Sprintf("File: %s\n\n%s", filepath.Base(m.path), m.form.View()))
	case importStateImporting:
		return style.Render(fmt.Sprintf("%s Importing %s...", m.spinner.View(), filepath.Base(m.path)))
	case importStateResult:
		return style.Render(m.viewResult())
	}

	return ""
}

func (m ImportModel) viewResult() string {
	var b strings.Builder

	if m.err != nil {
		stage, _ := importer.StageOf(m.err)
		b.WriteString(errorStyle.Render(fmt.Sprintf("Import failed at stage %q: %v", stage, m.err)))
		b.WriteString("\n\n")
	} else {
		b.WriteString(okStyle.Render("Import complete"))
		b.WriteString("\n\n")
	}

	if m.report != nil {
		b.WriteString(Summary(m.report))
	}

	b.WriteString(faintStyle.Render("\n(Enter to import another file, Esc to go back)"))

	return b.String()
}

// Summary renders an import report. Rejections and columns follow the
// canonical reason and field order.
func Summary(r *importer.Report) string {
	d := r.Diagnostics

	var b strings.Builder

	fmt.Fprintf(&b, "Import ID:   %s\n", r.ImportID)
	fmt.Fprintf(&b, "Format:      %s\n", d.Format)
	fmt.Fprintf(&b, "Header row:  %d", d.HeaderRow+1)

	if d.HeaderFallback {
		b.WriteString(" (no header found, first row assumed)")
	}

	b.WriteString("\n")

	if d.BaseDate != "" {
		fmt.Fprintf(&b, "Base date:   %s\n", d.BaseDate)
	}

	fmt.Fprintf(&b, "Scanned:     %d\n", r.Scanned)
	fmt.Fprintf(&b, "Valid:       %d\n", r.Valid)
	fmt.Fprintf(&b, "Upserted:    %d\n", r.Upserted)

	if d.DuplicateKeys > 0 {
		fmt.Fprintf(&b, "Duplicates:  %d\n", d.DuplicateKeys)
	}

	reasons := make([]string, 0, len(d.Rejected))
	for _, reason := range reconcile.Reasons() {
		if n := d.Rejected[reason]; n > 0 {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
	}

	if len(reasons) > 0 {
		fmt.Fprintf(&b, "Rejected:    %s\n", strings.Join(reasons, ", "))
	}

	fields := make([]string, 0, len(d.HeaderMap))
	for _, f := range header.Fields() {
		if col, ok := d.HeaderMap[f]; ok {
			fields = append(fields, fmt.Sprintf("%s←%q", f, col.Label))
		}
	}

	if len(fields) > 0 {
		fmt.Fprintf(&b, "Columns:     %s\n", strings.Join(fields, " "))
	}

	return b.String()
}

type importResultMsg struct {
	report *importer.Report
	err    error
}

func (m ImportModel) importCmd(path, baseDate string) tea.Cmd {
	svc := m.importService

	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return importResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		report, err := svc.Import(ctx, importer.Upload{
			Filename: filepath.Base(path),
			Data:     data,
			BaseDate: baseDate,
		})

		return importResultMsg{report: report, err: err}
	}
}
