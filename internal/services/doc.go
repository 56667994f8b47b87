// Package services defines shared utilities consumed by the stage executors
// and the external provider clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, task IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Classify for mapping
//     failures onto API responses.
//   - ProviderError and IsTransient, which let every HTTP provider report
//     retryable conditions and Retry-After hints the same way.
package services
