package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/esteinig/pathfinder/internal/scheduler"
)

// writeSummary renders per-stage counts, per-lineage outcomes and the
// failures of a run. Colour is only used when w is a terminal.
func writeSummary(w io.Writer, report *scheduler.Report) error {
	re := lipgloss.NewRenderer(w)
	header := re.NewStyle().Bold(true).Padding(0, 1)
	cell := re.NewStyle().Padding(0, 1)
	failed := re.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	title := re.NewStyle().Bold(true).Underline(true)

	style := func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return header
		}
		return cell
	}

	stages := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(style).
		Headers("STAGE", "LABEL", "COMPLETED", "FAILED", "FILTERED")
	for _, s := range report.Stages {
		stages.Row(s.Name, s.Label, strconv.Itoa(s.Completed), strconv.Itoa(s.Failed), strconv.FormatInt(s.Rejected, 10))
	}

	lineages := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(style).
		Headers("SAMPLE", "COMPLETED", "FAILED", "FILTERED", "WAITING")
	for _, l := range report.Lineages {
		lineages.Row(l.ID, strconv.Itoa(len(l.Completed)), list(l.Failed), list(l.Filtered), list(l.Waiting))
	}

	labels := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(style).
		Headers("LABEL", "CONCURRENCY", "PEAK")
	for _, l := range report.Labels {
		labels.Row(l.Name, strconv.Itoa(l.Budget), strconv.Itoa(l.Peak))
	}

	var b strings.Builder
	b.WriteString(title.Render("Stages") + "\n" + stages.Render() + "\n")
	b.WriteString(title.Render("Samples") + "\n" + lineages.Render() + "\n")
	b.WriteString(title.Render("Labels") + "\n" + labels.Render() + "\n")
	if report.Failed() {
		b.WriteString(failed.Render(fmt.Sprintf("%d task(s) failed:", len(report.Failures))) + "\n")
		for _, f := range report.Failures {
			b.WriteString("  " + f.Error() + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
