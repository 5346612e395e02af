package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"rosterforge/internal/layout"
	"rosterforge/internal/report"
)

// renderAggregate prints the run report: a table on a terminal, the plain
// missing-report text otherwise.
func renderAggregate(out io.Writer, agg *report.Aggregate, l *layout.Layout) error {
	if !isTerminal(out) {
		return agg.WriteMissing(out, l)
	}

	rows := make([][]string, 0)
	for _, b := range agg.Sorted(l) {
		rows = append(rows, []string{
			b.Character,
			b.Status,
			joinDisplay(b.MissingRoles),
			strconv.Itoa(len(b.UnresolvedAssets)),
			boneSummary(b.Bones),
			iconSummary(b.Icons),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Character", "Status", "Missing", "Unresolved", "Bones", "Icons"},
		rows,
	))
	for _, note := range agg.Notes() {
		fmt.Fprintf(out, "note: %s\n", note)
	}
	return nil
}

func joinDisplay(roles []string) string {
	if len(roles) == 0 {
		return "-"
	}
	display := make([]string, len(roles))
	for i, role := range roles {
		display[i] = report.DisplayName(role)
	}
	return strings.Join(display, ", ")
}

func boneSummary(outcome report.BoneOutcome) string {
	switch {
	case outcome.Error != "":
		return "error"
	case !outcome.Ran:
		return "skipped"
	case outcome.Added == 0:
		return "up to date"
	default:
		return fmt.Sprintf("+%d", outcome.Added)
	}
}

func iconSummary(outcome report.IconOutcome) string {
	switch {
	case outcome.Merged:
		return "merged"
	case outcome.Reason != "":
		return outcome.Reason
	default:
		return "-"
	}
}
