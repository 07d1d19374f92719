// Package termview draws the month grid in a terminal using the tenant's
// branding colors.
package termview

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"agendaconsole/internal/branding"
	"agendaconsole/internal/calendar"
)

const (
	defaultCellWidth = 16
	minCellWidth     = 8
)

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	today   lipgloss.Style
	dayNum  lipgloss.Style
	item    lipgloss.Style
	more    lipgloss.Style
	warning lipgloss.Style
}

func newStyles(theme branding.Theme, width int) styles {
	primary := lipgloss.Color(theme.Var("--primary", "#0ea5e9"))
	primaryFg := lipgloss.Color(theme.Var("--primary-foreground", branding.White))
	accent := lipgloss.Color(theme.Var("--accent", string(primary)))

	cell := lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.NormalBorder(), false, true, true, false).
		BorderForeground(lipgloss.Color("8"))

	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(primary),
		header:  lipgloss.NewStyle().Width(width + 1).Bold(true).Background(primary).Foreground(primaryFg),
		cell:    cell,
		today:   cell.BorderForeground(accent),
		dayNum:  lipgloss.NewStyle().Bold(true),
		item:    lipgloss.NewStyle(),
		more:    lipgloss.NewStyle().Faint(true),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// Render returns the month as a grid of fixed-width cells. Each cell holds
// the visible items of the day and a "+N" line for the hidden ones.
func Render(m calendar.Month, theme branding.Theme, cellWidth int) string {
	if cellWidth <= 0 {
		cellWidth = defaultCellWidth
	}
	cellWidth = max(cellWidth, minCellWidth)
	st := newStyles(theme, cellWidth)

	rowHeight := 1
	for _, d := range m.Days() {
		h := 1 + len(d.Visible)
		if d.Hidden > 0 {
			h++
		}
		rowHeight = max(rowHeight, h)
	}

	var b strings.Builder
	title := m.Label()
	if theme.Title != "" {
		title = theme.Title + " · " + title
	}
	b.WriteString(st.title.Render(title))
	b.WriteString("\n")

	headers := make([]string, 0, 7)
	for _, l := range m.WeekdayLabels() {
		headers = append(headers, st.header.Render(" "+l))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, headers...))
	b.WriteString("\n")

	for _, week := range m.Weeks() {
		cells := make([]string, 0, 7)
		for _, c := range week {
			cells = append(cells, renderCell(st, c, cellWidth, rowHeight))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	if m.Unscheduled > 0 {
		b.WriteString(st.warning.Render(fmt.Sprintf("%d agendamento(s) sem data válida", m.Unscheduled)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCell(st styles, c calendar.Cell, width, height int) string {
	lines := make([]string, 0, height)
	style := st.cell
	if c.Day != nil {
		d := c.Day
		if d.Today {
			style = st.today
		}
		lines = append(lines, st.dayNum.Render(strconv.Itoa(d.Date.Day())))
		for _, e := range d.Visible {
			lines = append(lines, st.item.Render(truncate(e.Time+" "+e.Title, width)))
		}
		if d.Hidden > 0 {
			lines = append(lines, st.more.Render(fmt.Sprintf("+%d", d.Hidden)))
		}
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return style.Render(strings.Join(lines, "\n"))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
