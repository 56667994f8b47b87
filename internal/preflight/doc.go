// Package preflight provides readiness checks for the filesystem paths,
// binaries, and endpoints notesmith depends on.
//
// These checks run in two contexts:
//   - The daemon logs RunAll at startup so a misconfigured host is visible
//     before the first job fails.
//   - The CLI "notesmith status" command renders the same results.
//
// Failed checks never block startup; stages report their own health and a
// job fails with a precise message when a dependency is actually needed.
package preflight
