package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/depscout/depscout/pkg/analyze"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// browseDependencies opens the interactive results browser.
func browseDependencies(deps []analyze.Dependency) error {
	if len(deps) == 0 {
		printInfo("No dependencies to browse")
		return nil
	}
	_, err := tea.NewProgram(NewDependencyListModel(deps)).Run()
	return err
}

// =============================================================================
// DependencyListModel - Interactive analysis results browser
// =============================================================================

// DependencyListModel is the bubbletea model for browsing analysis results.
type DependencyListModel struct {
	Deps      []analyze.Dependency
	Visible   []analyze.Dependency
	Cursor    int
	Height    int
	Offset    int
	StaleOnly bool
}

// NewDependencyListModel creates a new dependency list model.
func NewDependencyListModel(deps []analyze.Dependency) DependencyListModel {
	return DependencyListModel{
		Deps:    deps,
		Visible: deps,
		Height:  15,
	}
}

func (m DependencyListModel) Init() tea.Cmd {
	return nil
}

func (m DependencyListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Visible)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "o":
			m.StaleOnly = !m.StaleOnly
			m.Visible = m.filtered()
			m.Cursor = 0
			m.Offset = 0
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// filtered returns the rows admitted by the current filter.
func (m DependencyListModel) filtered() []analyze.Dependency {
	if !m.StaleOnly {
		return m.Deps
	}
	stale := make([]analyze.Dependency, 0, len(m.Deps))
	for _, dep := range m.Deps {
		if outdated(dep) {
			stale = append(stale, dep)
		}
	}
	return stale
}

func (m DependencyListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Dependencies"))
	b.WriteString("\n")
	hint := "↑/↓ navigate  o outdated only  q quit"
	if m.StaleOnly {
		hint = "↑/↓ navigate  o show all  q quit"
	}
	b.WriteString(listDimStyle.Render(hint))
	b.WriteString("\n\n")

	if len(m.Visible) == 0 {
		b.WriteString(listDimStyle.Render("  nothing outdated"))
		b.WriteString("\n")
		return b.String()
	}

	end := m.Offset + m.Height
	if end > len(m.Visible) {
		end = len(m.Visible)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		dep := m.Visible[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, dep.ID, dep.RequestedVersion, orDash(dep.LatestStable), orDash(dep.Latest)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("", "Package", "Requested", "Latest Stable", "Latest").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Visible) {
				return lipgloss.NewStyle()
			}
			dep := m.Visible[actualIdx]
			isCurrent := actualIdx == m.Cursor

			base := lipgloss.NewStyle()
			if isCurrent {
				base = base.Bold(true)
			}
			if outdated(dep) {
				if col == 2 {
					return base.Foreground(colorYellow)
				}
				return base.Foreground(colorWhite)
			}
			return base.Foreground(colorGray)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Visible))))

	return b.String()
}
