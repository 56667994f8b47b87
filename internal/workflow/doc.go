// Package workflow runs notesmith jobs through the acquire, transcribe, and
// synthesize stages.
//
// Plan picks the earliest stage whose checkpoint is not yet persisted, so the
// first delivery of a task, a manual retry, and a re-delivery after a crash
// all take the same path. The Coordinator runs one job to a persisted
// outcome: it dispatches each planned stage through the retry policy, writes
// the stage's patch before starting the next one, and records a formatted
// last error when a stage gives up.
//
// The Manager owns the worker pool. Each worker claims a task from the
// store, heartbeats it while the Coordinator runs, and marks it done; a
// reclaimer returns tasks with stale heartbeats to the queue. Intake is the
// submission side: cache lookup, job creation, retries, regeneration, halts,
// feed imports, and removal.
package workflow
