// Package queue persists job records and the task queue that drives them.
//
// The Store runs on SQLite (default, single connection in WAL mode) or
// Postgres via pgx, with schemas applied by goose from embedded migrations.
// Every job mutation goes through Update, a single-row read-modify-write in
// one transaction that rejects patches breaking the job invariants with
// ErrInvariant.
//
// Tasks are at-least-once: Claim never hands out a task for a job that
// already has one running, running tasks heartbeat, and ReclaimStaleTasks
// returns abandoned ones to the queue. Workers re-plan from persisted
// checkpoints, so a duplicate delivery is harmless.
package queue
