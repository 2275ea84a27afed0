package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cordlesssteve/topolop/internal/model"
)

type modelT struct {
	report *model.UnifiedReport
	cursor int
	height int
}

func initialModel(r *model.UnifiedReport) modelT { return modelT{report: r, height: 24} }

func (m modelT) Init() tea.Cmd { return nil }

func (m modelT) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.report.Issues)-1 {
				m.cursor++
			}
		case "g":
			m.cursor = 0
		case "G":
			if n := len(m.report.Issues); n > 0 {
				m.cursor = n - 1
			}
		}
	}
	return m, nil
}

func (m modelT) View() string {
	issues := m.report.Issues
	var b strings.Builder
	fmt.Fprintf(&b, "topolop  %d issues  %d files  %d groups\n\n",
		len(issues), len(m.report.Metrics), len(m.report.Correlations))
	if len(issues) == 0 {
		b.WriteString("no issues\n\nq quit\n")
		return b.String()
	}

	rows := m.height - 8
	if rows < 5 {
		rows = 5
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := start + rows
	if end > len(issues) {
		end = len(issues)
	}
	for i := start; i < end; i++ {
		is := &issues[i]
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		loc := is.CanonicalPath
		if is.HasLocation() {
			loc = fmt.Sprintf("%s:%d", loc, is.Line)
		}
		fmt.Fprintf(&b, "%s%-8s %-16s %s  %s\n", marker, is.Severity, is.ToolName, loc, is.Title)
	}

	sel := &issues[m.cursor]
	fmt.Fprintf(&b, "\nrule: %s/%s\n", sel.ToolName, sel.RuleID)
	if len(sel.Patterns) > 0 {
		fmt.Fprintf(&b, "patterns: %s\n", strings.Join(sel.Patterns, ", "))
	}
	if sel.Description != "" && sel.Description != sel.Title {
		fmt.Fprintf(&b, "%s\n", clip(sel.Description, 200))
	}
	b.WriteString("\nj/k move  g/G jump  q quit\n")
	return b.String()
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// Run launches the interactive issue browser over a finished report.
func Run(r *model.UnifiedReport) error {
	p := tea.NewProgram(initialModel(r))
	_, err := p.Run()
	return err
}
