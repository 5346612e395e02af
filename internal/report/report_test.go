package report

import (
	"strings"
	"testing"

	"rosterforge/internal/layout"
)

func TestSortedFollowsRosterOrder(t *testing.T) {
	l := layout.FromCharacters([]string{"Mario", "DK", "Yoshi"})
	agg := New()
	agg.Add(Bundle{Character: "Yoshi", Status: "staged"})
	agg.Add(Bundle{Character: "Zonda", Status: "staged"})
	agg.Add(Bundle{Character: "Mario", Status: "staged"})
	agg.Add(Bundle{Character: "DK", Status: "staged"})

	got := agg.Sorted(l)
	want := []string{"Mario", "DK", "Yoshi", "Zonda"}
	for i, b := range got {
		if b.Character != want[i] {
			t.Fatalf("sorted[%d] = %s, want %s", i, b.Character, want[i])
		}
	}
}

func TestWriteMissingSkipsCleanBundles(t *testing.T) {
	l := layout.FromCharacters([]string{"Mario", "DK"})
	agg := New()
	agg.Add(Bundle{Character: "Mario", Status: "staged"})
	agg.Add(Bundle{
		Character:        "DK",
		Status:           "patch_failed",
		MissingRoles:     []string{"race_voice"},
		UnresolvedAssets: []string{"VO_DK_Jump.bfwav"},
	})

	var buf strings.Builder
	if err := agg.WriteMissing(&buf, l); err != nil {
		t.Fatalf("WriteMissing: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Mario") {
		t.Fatalf("clean bundle should not appear:\n%s", out)
	}
	if !strings.Contains(out, "DK (patch_failed)") {
		t.Fatalf("missing bundle header:\n%s", out)
	}
	if !strings.Contains(out, "missing: Race Voice") {
		t.Fatalf("missing role line absent:\n%s", out)
	}
	if !strings.Contains(out, "unresolved audio: VO_DK_Jump.bfwav") {
		t.Fatalf("unresolved asset line absent:\n%s", out)
	}
}

func TestWriteMissingAllClean(t *testing.T) {
	l := layout.FromCharacters([]string{"Mario"})
	agg := New()
	agg.Add(Bundle{Character: "Mario", Status: "staged"})

	var buf strings.Builder
	if err := agg.WriteMissing(&buf, l); err != nil {
		t.Fatalf("WriteMissing: %v", err)
	}
	if !strings.Contains(buf.String(), "all bundles complete") {
		t.Fatalf("expected clean marker, got:\n%s", buf.String())
	}
}

func TestNotesCountAsFailures(t *testing.T) {
	agg := New()
	agg.Add(Bundle{Character: "Mario", Status: "staged"})
	if agg.HasFailures() {
		t.Fatal("clean aggregate should not report failures")
	}
	agg.Note("shared archive %s unreadable", "tc.szs")
	if !agg.HasFailures() {
		t.Fatal("run-level note should count as a failure")
	}
	var buf strings.Builder
	if err := agg.WriteMissing(&buf, layout.FromCharacters([]string{"Mario"})); err != nil {
		t.Fatalf("WriteMissing: %v", err)
	}
	if !strings.Contains(buf.String(), "note: shared archive tc.szs unreadable") {
		t.Fatalf("note absent:\n%s", buf.String())
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("race_voice"); got != "Race Voice" {
		t.Fatalf("DisplayName = %q", got)
	}
	if got := DisplayName("driver_model"); got != "Driver Model" {
		t.Fatalf("DisplayName = %q", got)
	}
}
