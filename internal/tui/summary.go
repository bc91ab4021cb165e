package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"hpa-bench/internal/loadtest"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("87"))

	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	totalStyle  = lipgloss.NewStyle().Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// column coluna da tabela de endpoints
type column struct {
	title string
	width int
	value func(e loadtest.EntrySummary) string
}

var columns = []column{
	{"Type", 6, func(e loadtest.EntrySummary) string { return e.Method }},
	{"Name", 28, func(e loadtest.EntrySummary) string { return e.Name }},
	{"# Reqs", 8, func(e loadtest.EntrySummary) string { return fmt.Sprint(e.Requests) }},
	{"# Fails", 8, func(e loadtest.EntrySummary) string { return failCell(e) }},
	{"Avg", 8, func(e loadtest.EntrySummary) string { return fmt.Sprintf("%.0f", e.AverageMs) }},
	{"Min", 7, func(e loadtest.EntrySummary) string { return fmt.Sprintf("%.0f", e.MinMs) }},
	{"Max", 7, func(e loadtest.EntrySummary) string { return fmt.Sprintf("%.0f", e.MaxMs) }},
	{"Med", 7, func(e loadtest.EntrySummary) string { return fmt.Sprintf("%.0f", e.MedianMs) }},
	{"p95", 7, func(e loadtest.EntrySummary) string { return fmt.Sprintf("%.0f", e.Percentiles["95%"]) }},
	{"req/s", 7, func(e loadtest.EntrySummary) string { return fmt.Sprintf("%.1f", e.CurrentRPS) }},
	{"fail/s", 7, func(e loadtest.EntrySummary) string { return fmt.Sprintf("%.1f", e.CurrentFailPerSec) }},
}

func failCell(e loadtest.EntrySummary) string {
	if e.Requests == 0 {
		return "0"
	}
	return fmt.Sprintf("%d(%.0f%%)", e.Failures, float64(e.Failures)*100/float64(e.Requests))
}

// cell ajusta o texto à largura (considerando largura de exibição)
func cell(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

func renderRow(e loadtest.EntrySummary) string {
	cells := make([]string, len(columns))
	for i, c := range columns {
		cells[i] = cell(c.value(e), c.width)
	}
	return strings.Join(cells, " ")
}

func tableWidth() int {
	w := len(columns) - 1
	for _, c := range columns {
		w += c.width
	}
	return w
}

// RenderStats tabela de endpoints com a linha Aggregated
func RenderStats(snap loadtest.Snapshot) string {
	var b strings.Builder

	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = cell(c.title, c.width)
	}
	b.WriteString(headerStyle.Render(strings.Join(titles, " ")))
	b.WriteString("\n")
	b.WriteString(borderStyle.Render(strings.Repeat("─", tableWidth())))
	b.WriteString("\n")

	for _, e := range snap.Entries {
		row := renderRow(e)
		if e.Failures > 0 {
			row = failStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString(borderStyle.Render(strings.Repeat("─", tableWidth())))
	b.WriteString("\n")
	b.WriteString(totalStyle.Render(renderRow(snap.Total)))
	b.WriteString("\n")

	return b.String()
}

// RenderFailures lista as falhas agrupadas
func RenderFailures(snap loadtest.Snapshot, limit int) string {
	if len(snap.Failures) == 0 {
		return okStyle.Render("✅ No failures") + "\n"
	}

	var b strings.Builder
	b.WriteString(failStyle.Render("❌ Failures"))
	b.WriteString("\n")
	for i, f := range snap.Failures {
		if limit > 0 && i >= limit {
			b.WriteString(labelStyle.Render(fmt.Sprintf("   ... %d more", len(snap.Failures)-limit)))
			b.WriteString("\n")
			break
		}
		b.WriteString(fmt.Sprintf("   %s %s: %s (%d)\n", f.Method, f.Name, f.Error, f.Occurrences))
	}
	return b.String()
}

// RenderSummary resumo final do teste de carga
func RenderSummary(title string, report *loadtest.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("📊 " + title))
	b.WriteString("\n")

	duration := report.Finished.Sub(report.Started).Round(time.Second)
	b.WriteString(labelStyle.Render("Duration: "))
	b.WriteString(valueStyle.Render(duration.String()))
	b.WriteString(labelStyle.Render("  Requests: "))
	b.WriteString(valueStyle.Render(fmt.Sprint(report.Snapshot.Total.Requests)))
	b.WriteString(labelStyle.Render("  Failures: "))
	b.WriteString(valueStyle.Render(fmt.Sprint(report.Snapshot.Total.Failures)))
	b.WriteString("\n\n")

	b.WriteString(RenderStats(report.Snapshot))
	b.WriteString("\n")
	b.WriteString(RenderFailures(report.Snapshot, 10))

	if len(report.Files) > 0 {
		b.WriteString("\n")
		for _, f := range report.Files {
			b.WriteString(labelStyle.Render("💾 " + f))
			b.WriteString("\n")
		}
	}

	return b.String()
}
