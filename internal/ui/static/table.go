// Package static provides non-interactive terminal output components.
package static

import (
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/raphi011/skillsync/internal/ui/styles"
)

func borderless(t *table.Table) *table.Table {
	return t.
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false)
}

// RenderTable creates a formatted table with proper column alignment.
// No borders are rendered; headers are bold.
func RenderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	t := borderless(table.New().Headers(headers...).Rows(rows...)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	return t.String() + "\n"
}

// RenderKV renders label/value pairs as two aligned columns with muted
// labels.
func RenderKV(pairs [][2]string) string {
	if len(pairs) == 0 {
		return ""
	}

	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p[0] + ":", p[1]}
	}

	t := borderless(table.New().Rows(rows...)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return styles.MutedStyle.PaddingRight(1)
			}
			return lipgloss.NewStyle()
		})

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}
