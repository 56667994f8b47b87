// Package main hosts the notesmith CLI entrypoint and command graph.
//
// Job commands operate on the record store directly. Tasks they enqueue are
// durable, so a running notesmithd picks them up without any IPC. The run
// command drives a single submission in the foreground, and daemon runs the
// full worker pool plus HTTP API in-process.
package main
