// Package daemon coordinates the long-running notesmith process.
//
// It wires the record store, the workflow manager, and the HTTP API into a
// single lifecycle guarded by a flock-based instance lock so that only one
// daemon drives a store at a time. The API authenticates with either a static
// bearer token or HS256 JWTs minted by "notesmith token".
//
// Keep orchestration logic here: stage behaviour lives in the stage packages
// and job semantics live in workflow, while the daemon focuses on startup,
// shutdown, and exposing status.
package daemon
