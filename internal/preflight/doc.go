// Package preflight provides readiness checks for the filesystem paths
// and mapping documents a completion run depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before dispatching bundle tasks.
//     If any check fails, the run halts before touching the staging area.
//   - The CLI status output uses individual check functions to display
//     per-path health.
//
// Checks for optional inputs are gated on the path being configured.
package preflight
