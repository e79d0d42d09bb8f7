package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kinetix3d/wasm-dist/bridge"
	"github.com/kinetix3d/wasm-dist/bundle"
	"github.com/kinetix3d/wasm-dist/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	badStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// inspectModel is a read-only viewer over a bundle: payload stats, patch
// state, and the engine's import surface against the manual import table.
// It never writes anything.
type inspectModel struct {
	path         string
	importModule string
	vp           viewport.Model
	ready        bool
	err          error
	report       string
}

type reportMsg struct {
	err    error
	report string
}

func newInspectModel(path, importModule string) *inspectModel {
	if importModule == "" {
		importModule = bridge.DefaultImportModule
	}
	return &inspectModel{path: path, importModule: importModule}
}

func (m *inspectModel) Init() tea.Cmd {
	return m.loadReport
}

func (m *inspectModel) loadReport() tea.Msg {
	report, err := buildReport(m.path, m.importModule)
	return reportMsg{report: report, err: err}
}

func buildReport(path, importModule string) (string, error) {
	text, err := bundle.Load(path)
	if err != nil {
		return "", err
	}
	payload, err := bundle.FindPayload(text)
	if err != nil {
		return "", err
	}
	engine, err := bundle.DecodePayload(payload.Encoded)
	if err != nil {
		return "", err
	}
	mod, err := wasm.ParseModule(engine)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString(headingStyle.Render("Bundle"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  text:    %d bytes\n", len(text))
	fmt.Fprintf(&b, "  payload: %s (%d base64 chars, %d wasm bytes)\n",
		payload.Name, len(payload.Encoded), len(engine))

	b.WriteString("\n")
	b.WriteString(headingStyle.Render("Patch state"))
	b.WriteString("\n")
	if bridge.IsPatched(text) {
		b.WriteString("  " + okStyle.Render("patched") + "\n")
	} else if match := bridge.MatchShape(text); match != nil {
		fmt.Fprintf(&b, "  unpatched, %s shape matches (symbol %s)\n",
			match.Kind, match.Symbol)
		fmt.Fprintf(&b, "  will replace: %s\n",
			dimStyle.Render(snippet(text, match.Start, match.End)))
	} else {
		b.WriteString("  " + badStyle.Render("unpatched, no recognizable bridge call") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(headingStyle.Render("Imports"))
	b.WriteString("\n")
	index := bridge.ShimIndex()
	for _, imp := range mod.Imports {
		if imp.Desc.Kind != wasm.KindFunc {
			fmt.Fprintf(&b, "  %s#%s %s\n", imp.Module, imp.Name,
				badStyle.Render("(non-function)"))
			continue
		}
		ft := mod.Type(imp.Desc.TypeIdx)
		sig := "?"
		if ft != nil {
			sig = ft.String()
		}
		status := badStyle.Render("foreign module")
		if imp.Module == importModule {
			shim, ok := index[imp.Name]
			switch {
			case !ok:
				status = badStyle.Render("no shim")
			case ft != nil && !ft.Equal(wasm.FuncType{Params: shim.Params, Results: shim.Results}):
				status = badStyle.Render("signature mismatch")
			default:
				status = okStyle.Render("shimmed")
			}
		}
		fmt.Fprintf(&b, "  %s#%s %s %s\n", imp.Module, imp.Name, sig, status)
	}
	if len(mod.Imports) == 0 {
		b.WriteString(dimStyle.Render("  none") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(headingStyle.Render("Exports"))
	b.WriteString("\n")
	for _, exp := range mod.Exports {
		switch exp.Kind {
		case wasm.KindFunc:
			sig := "?"
			if ft := mod.GetFuncType(exp.Idx); ft != nil {
				sig = ft.String()
			}
			fmt.Fprintf(&b, "  %s %s\n", exp.Name, sig)
		case wasm.KindMemory:
			fmt.Fprintf(&b, "  %s (memory)\n", exp.Name)
		default:
			fmt.Fprintf(&b, "  %s (kind %d)\n", exp.Name, exp.Kind)
		}
	}

	return b.String(), nil
}

// snippet extracts the matched span with a little surrounding context,
// clamped to its line.
func snippet(text string, start, end int) string {
	lo := strings.LastIndexByte(text[:start], '\n') + 1
	hi := end
	if i := strings.IndexByte(text[end:], '\n'); i >= 0 {
		hi = end + i
	} else {
		hi = len(text)
	}
	const max = 120
	if hi-lo > max {
		hi = lo + max
	}
	return strings.TrimSpace(text[lo:hi])
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case reportMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.report = msg.report
		if m.ready {
			m.vp.SetContent(m.report)
		}

	case tea.WindowSizeMsg:
		// Leave room for the title line and the help line.
		height := msg.Height - 4
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = height
		}
		m.vp.SetContent(m.report)
	}

	if m.ready {
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *inspectModel) View() string {
	if m.err != nil {
		return badStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Bundle Inspector"))
	b.WriteString(" ")
	b.WriteString(m.path)
	b.WriteString("\n\n")

	if !m.ready || m.report == "" {
		b.WriteString("Loading bundle...")
		return b.String()
	}

	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ scroll • q quit"))
	return b.String()
}

func runInspect(path, importModule string) error {
	p := tea.NewProgram(newInspectModel(path, importModule), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
