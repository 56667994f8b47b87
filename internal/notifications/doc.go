// Package notifications publishes job outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// workflow code can notify unconditionally.
package notifications
