// Package retry wraps stage attempts with a bounded, capped exponential
// backoff built on sethvargo/go-retry. Retry decisions come from the typed
// stage.Failure each attempt returns, never from panics or sentinel values.
package retry
