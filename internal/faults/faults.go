// Package faults defines the error taxonomy shared by the pipeline stages.
// Stage code wraps failures with a sentinel marker so the workflow manager can
// classify them with errors.Is when deciding which terminal status a bundle
// gets.
package faults

import (
	"errors"
	"fmt"
	"strings"

	"rosterforge/internal/queue"
)

var (
	ErrConfig            = errors.New("configuration error")
	ErrResolutionGap     = errors.New("resolution gap")
	ErrUnresolvedAsset   = errors.New("unresolved asset")
	ErrArchiveCorrupt    = errors.New("archive corruption")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrTransient         = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a stage error to the ledger status the workflow manager
// should persist after the stage fails.
func FailureStatus(err error) queue.Status {
	switch {
	case errors.Is(err, ErrResolutionGap), errors.Is(err, ErrUnresolvedAsset):
		return queue.StatusPatchFailed
	default:
		return queue.StatusFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
