package main

import (
	"bytes"
	"strings"
	"testing"

	"rosterforge/internal/layout"
	"rosterforge/internal/report"
)

func TestRenderAggregateWritesMissingReportOffTerminal(t *testing.T) {
	l := layout.FromCharacters([]string{"Mario", "DK"})
	agg := report.New()
	agg.Add(report.Bundle{Character: "DK", Status: "staged", MissingRoles: []string{"race_voice"}})
	agg.Add(report.Bundle{Character: "Mario", Status: "staged"})

	var buf bytes.Buffer
	if err := renderAggregate(&buf, agg, l); err != nil {
		t.Fatalf("renderAggregate: %v", err)
	}
	out := buf.String()
	requireContains(t, out, "DK (staged)")
	requireContains(t, out, "missing: Race Voice")
	if strings.Contains(out, "Mario") {
		t.Fatalf("clean bundle should not appear:\n%s", out)
	}
}

func TestBoneSummary(t *testing.T) {
	cases := []struct {
		outcome report.BoneOutcome
		want    string
	}{
		{report.BoneOutcome{Error: "corrupt"}, "error"},
		{report.BoneOutcome{}, "skipped"},
		{report.BoneOutcome{Ran: true}, "up to date"},
		{report.BoneOutcome{Ran: true, Changed: true, Added: 3}, "+3"},
	}
	for _, tc := range cases {
		if got := boneSummary(tc.outcome); got != tc.want {
			t.Errorf("boneSummary(%+v) = %q, want %q", tc.outcome, got, tc.want)
		}
	}
}

func TestIconSummary(t *testing.T) {
	cases := []struct {
		outcome report.IconOutcome
		want    string
	}{
		{report.IconOutcome{Merged: true}, "merged"},
		{report.IconOutcome{Reason: "dimension mismatch"}, "dimension mismatch"},
		{report.IconOutcome{}, "-"},
	}
	for _, tc := range cases {
		if got := iconSummary(tc.outcome); got != tc.want {
			t.Errorf("iconSummary(%+v) = %q, want %q", tc.outcome, got, tc.want)
		}
	}
}

func TestJoinDisplay(t *testing.T) {
	if got := joinDisplay(nil); got != "-" {
		t.Fatalf("joinDisplay(nil) = %q", got)
	}
	got := joinDisplay([]string{"race_voice", "menu_voice"})
	if got != "Race Voice, Menu Voice" {
		t.Fatalf("joinDisplay = %q", got)
	}
}
