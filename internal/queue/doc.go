// Package queue persists the run ledger: one row per character bundle, moving
// through the pipeline statuses from discovered to staged or failed. The
// ledger lives in SQLite under the staging directory so interrupted runs can
// resume, roll stuck bundles back to their last stable status, and report
// aggregate progress.
package queue
