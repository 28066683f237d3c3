package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/use-agent/screenmatch/models"
)

const (
	colorSuccess = "#04B575"
	colorError   = "#FF0000"
	colorInfo    = "#626262"
	colorBorder  = "#874BFD"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorSuccess))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorError))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorInfo)).Width(12)

	boxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorBorder)).
		Padding(0, 1)
)

// renderOutcome formats the run summary for the terminal.
func renderOutcome(o models.RunOutcome) string {
	var rows []string
	row := func(label, value string) {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value))
	}

	if o.Success {
		rows = append(rows, successStyle.Render("Reconciliation complete"))
		row("screener", fmt.Sprint(o.Counts.Extracted))
		row("reference", fmt.Sprint(o.Counts.Reference))
		row("matched", fmt.Sprint(o.Counts.Matched))
		if len(o.Artifacts) > 0 {
			row("written", strings.Join(o.Artifacts, "\n"))
		}
	} else {
		rows = append(rows, errorStyle.Render("Reconciliation failed"))
		row("stage", o.Stage)
		row("code", o.Code)
		row("cause", o.Cause)
	}
	row("elapsed", o.Duration.Round(time.Millisecond).String())

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
