package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"cashplan/internal/core"
)

var (
	ColorText   = lipgloss.Color("#FFFCF0")
	ColorDim    = lipgloss.Color("#575653")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorGreen  = lipgloss.Color("#879A39")
	ColorOrange = lipgloss.Color("#DA702C")
	ColorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(ColorDim)
	okStyle     = lipgloss.NewStyle().Foreground(ColorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorOrange)
	errStyle    = lipgloss.NewStyle().Foreground(ColorRed)
)

// Table is a bordered text table. Every column but the first is right-aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func RenderTitle(title string) string {
	return "  " + titleStyle.Render(title)
}

func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := cellStyle
			if row == table.HeaderRow {
				style = headerStyle
			}
			if col > 0 {
				style = style.Align(lipgloss.Right)
			}
			return style
		})

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(RenderTitle(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}

// FormatMoney renders cents with a thousands separator, e.g. "1,234.50".
func FormatMoney(m core.Money) string {
	s := m.Abs().String()
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if m.Cents < 0 {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// FormatVariance renders budget minus actual, in red when overspent.
func FormatVariance(v core.Money) string {
	if v.Cents < 0 {
		return errStyle.Render(FormatMoney(v))
	}
	return FormatMoney(v)
}

func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f)
}

// FormatStatus colours an occurrence status for terminal output. Due-soon
// active occurrences are shown as "due soon".
func FormatStatus(status string) string {
	switch status {
	case "paid":
		return okStyle.Render(status)
	case "due soon":
		return warnStyle.Render(status)
	case "overdue":
		return errStyle.Render(status)
	default:
		return status
	}
}
