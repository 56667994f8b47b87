// Package api defines wire-format types and converters for the HTTP API and
// the CLI. It translates internal job records and workflow summaries into
// transport-friendly DTOs so clients never couple to queue internals.
//
// # Key Types
//
// Job: transport representation of a job record. List views omit transcript
// and notes bodies; the detail view carries both plus the parsed sections.
//
// SubmitResponse: outcome of a submission, retry, or regenerate request.
//
// WorkflowStatus and DaemonStatus: worker state, queue and task counts, stage
// health, and preflight results.
//
// # Services
//
// JobService wraps the record store for read paths and the workflow intake for
// mutations, returning DTOs and classified errors.
//
// HTTPStatus maps classified errors onto response codes so the daemon and CLI
// agree on what "not found" or "invalid" means.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Job statuses are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds.
package api
