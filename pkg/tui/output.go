// Package tui renders CLI output: summaries, tables and progress.
// Simple, streaming, no complex TUI - just clean output.
package tui

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/schollz/progressbar/v3"

	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/export"
	"github.com/logflow/bpmnctx/pkg/pipeline"
	"github.com/logflow/bpmnctx/pkg/serializer"
	"github.com/logflow/bpmnctx/pkg/store"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render(label+":"), titleStyle.Render(value))
}

// PrintSummary prints the entity counts of a mapped context.
func PrintSummary(w io.Writer, c *serializer.Context, elapsed time.Duration) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, successStyle.Render("  ✓ MAPPED"))
	fmt.Fprintln(w)
	field(w, "Definition", c.ID())
	if c.Name() != "" {
		field(w, "Name", c.Name())
	}
	executable := len(c.ExecutableProcesses())
	field(w, "Processes", fmt.Sprintf("%d (%d executable)", len(c.Processes()), executable))
	field(w, "Activities", formatNumber(int64(len(c.Activities()))))
	field(w, "Sequence flows", formatNumber(int64(len(c.SequenceFlows()))))
	field(w, "Message flows", formatNumber(int64(len(c.MessageFlows()))))
	field(w, "Data objects", formatNumber(int64(len(c.DataObjects()))))
	field(w, "Scripts", formatNumber(int64(len(c.Scripts()))))
	field(w, "Timers", formatNumber(int64(len(c.Timers()))))
	if elapsed > 0 {
		field(w, "Time", formatDuration(elapsed))
	}
	fmt.Fprintln(w)
}

// PrintTypes prints a type vocabulary, one per line.
func PrintTypes(w io.Writer, title string, types []string) {
	fmt.Fprintln(w, accentStyle.Render("▸ "+strings.ToUpper(title)))
	for _, t := range types {
		fmt.Fprintf(w, "  %s\n", t)
	}
}

// PrintBatchReport prints one line per document and a total.
func PrintBatchReport(w io.Writer, results []*pipeline.Result, elapsed time.Duration) {
	failed := 0
	fmt.Fprintln(w)
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Err != nil {
			failed++
			fmt.Fprintf(w, "  %s %s %s\n", accentStyle.Render("✗"), res.Path, mutedStyle.Render(errorLine(res.Err)))
			continue
		}
		detail := fmt.Sprintf("%s, %d activities", res.Context.ID(), len(res.Context.Activities()))
		if res.Record != nil {
			detail += ", record " + res.Record.ID
		}
		if res.ExportPath != "" {
			detail += ", " + res.ExportPath
		}
		fmt.Fprintf(w, "  %s %s %s\n", successStyle.Render("✓"), res.Path, mutedStyle.Render("("+detail+")"))
	}

	fmt.Fprintln(w)
	summary := fmt.Sprintf("  %d documents, %d failed", len(results), failed)
	if failed > 0 {
		fmt.Fprintln(w, accentStyle.Render(summary))
	} else {
		fmt.Fprintln(w, successStyle.Render(summary))
	}
	if elapsed > 0 {
		field(w, "Time", formatDuration(elapsed))
	}
}

// PrintRecords prints stored snapshot records as a table.
func PrintRecords(w io.Writer, records []*store.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  No snapshots stored."))
		return
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string{rec.ID, rec.DocumentID, rec.Source, rec.CreatedAt.Local().Format(time.DateTime)}
	}
	fmt.Fprintln(w, render([]string{"ID", "DOCUMENT", "SOURCE", "CREATED"}, rows))
}

// PrintQuery prints a query result as a table.
func PrintQuery(w io.Writer, res *export.QueryResult) {
	rows := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				cells[j] = "NULL"
			} else {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	fmt.Fprintln(w, render(res.Columns, rows))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %d rows", len(rows))))
}

func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// PrintError prints an error with its code.
func PrintError(w io.Writer, err error) {
	var multi *errors.MultiError
	if stderrors.As(err, &multi) {
		for _, e := range multi.Errors {
			PrintError(w, e)
		}
		return
	}
	fmt.Fprintf(w, "%s %s\n", accentStyle.Render("✗ "+string(errors.GetCode(err))), errorLine(err))
}

func errorLine(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", " ")
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// ShowProgress creates a progress bar for batch processing.
func ShowProgress(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
