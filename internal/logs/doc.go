// Package logs reads the daemon log file for `notesmith logs`.
//
// Last returns the trailing lines of the file with bounded memory, and Follow
// polls for appended lines until its context ends, restarting from the top
// when the file is truncated or replaced.
package logs
