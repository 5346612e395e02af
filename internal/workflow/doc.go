// Package workflow drives the completion pipeline for a roster of
// character bundles.
//
// The Manager resolves each bundle against the mapping registry, patches
// missing audio containers, injects canonical bones into model archives,
// and copies the results into a staging tree. Bundles are processed by a
// bounded worker pool, one task per bundle, with progress and heartbeats
// persisted to the run ledger so an interrupted run can be resumed.
//
// The icon merge and the final move are barrier operations: they run only
// after every bundle has reached a terminal status. The staged tree only
// replaces the real output when Commit is called, so cancelling a run
// mid-flight never touches the destination.
package workflow
