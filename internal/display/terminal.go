// Package display renders run summaries for the terminal.
package display

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const maxNameWidth = 40

// Row is one shortlist line.
type Row struct {
	Name     string
	StoreID  string
	Released time.Time
	// Detail is a short free-form column such as platforms or a build id.
	Detail string
	Score  float64
	URL    string
}

// TerminalFormatter formats shortlists for terminal display.
type TerminalFormatter struct {
	now func() time.Time
}

// NewTerminalFormatter creates a new terminal formatter.
func NewTerminalFormatter() *TerminalFormatter {
	return &TerminalFormatter{now: time.Now}
}

// FormatShortlist renders rows as a rounded table under title.
func (f *TerminalFormatter) FormatShortlist(title string, rows []Row) string {
	if len(rows) == 0 {
		return fmt.Sprintf("%s: nothing to show.\n", title)
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"#", "Name", "Store ID", "Released", "Detail", "Score"})
	for i, r := range rows {
		released := ""
		if !r.Released.IsZero() {
			released = f.FormatTimestamp(r.Released)
		}
		tw.AppendRow(table.Row{
			i + 1,
			f.TruncateText(r.Name, maxNameWidth),
			r.StoreID,
			released,
			f.TruncateText(r.Detail, maxNameWidth),
			formatScore(r.Score),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render() + "\n"
}

// FormatTimestamp formats a timestamp as relative time.
func (f *TerminalFormatter) FormatTimestamp(t time.Time) string {
	diff := f.now().Sub(t)

	switch {
	case diff < 0:
		return t.Format("Jan 2, 2006")
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return pluralize(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return pluralize(int(diff.Hours()), "hour")
	case diff < 31*24*time.Hour:
		return pluralize(int(diff.Hours()/24), "day")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// pluralize returns "N unit ago" or "N units ago" based on count.
func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// TruncateText truncates text to maxLen runes, adding "..." if truncated.
func (f *TerminalFormatter) TruncateText(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func formatScore(score float64) string {
	if score == float64(int64(score)) {
		return strconv.FormatInt(int64(score), 10)
	}
	return strings.TrimRight(strconv.FormatFloat(score, 'f', 2, 64), "0")
}
