// Package report collects per-bundle completion outcomes into a single
// aggregate, ordered by the roster layout rather than by task
// completion order.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rosterforge/internal/layout"
)

// BoneOutcome summarizes bone injection for one bundle.
type BoneOutcome struct {
	Ran     bool
	Changed bool
	Added   int
	Error   string
}

// IconOutcome records the merge result for one character across the
// shared UI archives.
type IconOutcome struct {
	Merged bool
	Reason string
}

// Bundle is the per-character slice of the aggregate.
type Bundle struct {
	Character         string
	Status            string
	MissingRoles      []string
	TemplateFills     []string
	CreatedContainers []string
	UnresolvedAssets  []string
	Bones             BoneOutcome
	Icons             IconOutcome
	Error             string
}

// Clean reports whether the bundle completed with nothing left missing
// or unresolved.
func (b Bundle) Clean() bool {
	return b.Error == "" && len(b.MissingRoles) == 0 &&
		len(b.UnresolvedAssets) == 0 && b.Bones.Error == "" && b.Icons.Reason == ""
}

// Aggregate is the run-level report. Add is safe for concurrent use;
// Sorted and the renderers are read operations for after the run
// settles.
type Aggregate struct {
	mu      sync.Mutex
	bundles []Bundle
	notes   []string
}

func New() *Aggregate {
	return &Aggregate{}
}

// Add records one bundle's outcome.
func (a *Aggregate) Add(b Bundle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bundles = append(a.bundles, b)
}

// Note records a run-level observation that belongs to no single
// bundle, such as an icon archive that could not be opened.
func (a *Aggregate) Note(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notes = append(a.notes, fmt.Sprintf(format, args...))
}

// Notes returns the run-level observations in recorded order.
func (a *Aggregate) Notes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.notes...)
}

// Sorted returns the bundles in roster order. Characters not placed in
// the layout sort after placed ones, alphabetically.
func (a *Aggregate) Sorted(l *layout.Layout) []Bundle {
	a.mu.Lock()
	out := append([]Bundle(nil), a.bundles...)
	a.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := l.Position(out[i].Character), l.Position(out[j].Character)
		if pi != pj {
			return pi < pj
		}
		return out[i].Character < out[j].Character
	})
	return out
}

// HasFailures reports whether any bundle ended with an error or left
// assets unresolved.
func (a *Aggregate) HasFailures() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, b := range a.bundles {
		if !b.Clean() {
			return true
		}
	}
	return len(a.notes) > 0
}

var titleCaser = cases.Title(language.English)

// DisplayName humanizes a role or character identifier for report
// output, e.g. "race_voice" becomes "Race Voice".
func DisplayName(id string) string {
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}

// WriteMissing renders the plain-text report that accompanies a staged
// tree. Only bundles with something to report get a section.
func (a *Aggregate) WriteMissing(w io.Writer, l *layout.Layout) error {
	bundles := a.Sorted(l)
	clean := true
	for _, b := range bundles {
		if b.Clean() {
			continue
		}
		clean = false
		if _, err := fmt.Fprintf(w, "%s (%s)\n", b.Character, b.Status); err != nil {
			return err
		}
		if b.Error != "" {
			if _, err := fmt.Fprintf(w, "  error: %s\n", b.Error); err != nil {
				return err
			}
		}
		for _, role := range b.MissingRoles {
			if _, err := fmt.Fprintf(w, "  missing: %s\n", DisplayName(role)); err != nil {
				return err
			}
		}
		for _, asset := range b.UnresolvedAssets {
			if _, err := fmt.Fprintf(w, "  unresolved audio: %s\n", asset); err != nil {
				return err
			}
		}
		if b.Bones.Error != "" {
			if _, err := fmt.Fprintf(w, "  bones: %s\n", b.Bones.Error); err != nil {
				return err
			}
		}
		if b.Icons.Reason != "" {
			if _, err := fmt.Fprintf(w, "  icon: %s\n", b.Icons.Reason); err != nil {
				return err
			}
		}
	}
	for _, note := range a.Notes() {
		clean = false
		if _, err := fmt.Fprintf(w, "note: %s\n", note); err != nil {
			return err
		}
	}
	if clean {
		_, err := fmt.Fprintln(w, "all bundles complete")
		return err
	}
	return nil
}
