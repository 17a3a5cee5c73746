// Package flock wraps the platform's exclusive, non-blocking file lock.
//
// The persist store takes one of these locks on the snapshot's lock file so
// two loom processes never write the same state file concurrently. A held
// lock fails immediately rather than blocking; the caller surfaces that as
// "another loom instance is running".
package flock
