package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a bundle in the run ledger.
type Status string

const (
	StatusDiscovered   Status = "discovered"
	StatusResolving    Status = "resolving"
	StatusResolved     Status = "resolved"
	StatusPatching     Status = "patching"
	StatusPatched      Status = "patched"
	StatusPatchFailed  Status = "patch_failed"
	StatusInjecting    Status = "injecting"
	StatusInjected     Status = "injected"
	StatusInjectSkipped Status = "inject_skipped"
	StatusStaging      Status = "staging"
	StatusStaged       Status = "staged"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusDiscovered,
	StatusResolving,
	StatusResolved,
	StatusPatching,
	StatusPatched,
	StatusPatchFailed,
	StatusInjecting,
	StatusInjected,
	StatusInjectSkipped,
	StatusStaging,
	StatusStaged,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusResolving: {},
	StatusPatching:  {},
	StatusInjecting: {},
	StatusStaging:   {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions reset in-flight bundles back to the last stable
// status when a run is resumed after a crash.
var stageRollbackTransitions = []statusTransition{
	{from: StatusResolving, to: StatusDiscovered},
	{from: StatusPatching, to: StatusResolved},
	{from: StatusInjecting, to: StatusPatched},
	{from: StatusStaging, to: StatusInjected},
}

func processingRollbackTransitions() []statusTransition {
	return stageRollbackTransitions
}

// DatabaseHealth captures diagnostic information about the ledger database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated bundle counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Discovered int
	Processing int
	Failed     int
	Staged     int
}

// Item represents one character bundle persisted in SQLite.
type Item struct {
	ID              int64
	RunID           string
	Character       string
	BundlePath      string
	Status          Status
	MissingJSON     string
	ResolutionJSON  string
	PatchedFiles    string
	InjectedModels  string
	StagedPath      string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressMessage string
	LastHeartbeat   *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status ends the bundle's run.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusStaged, StatusFailed:
		return true
	default:
		return false
	}
}

// SetProgress updates the progress fields together.
func (i *Item) SetProgress(stage, message string) {
	i.ProgressStage = stage
	i.ProgressMessage = message
}

// SetFailed marks the bundle as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressStage = "Failed"
	i.ProgressMessage = message
	i.LastHeartbeat = nil
}
