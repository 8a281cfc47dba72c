// Package release decides whether a fetched firmware record is a new release
// and keeps the SQLite index of every package checksum seen so far.
//
// # Workflow
//
// Each candidate moves through FETCHED, COMPARED and then either
// REPORTED_NEW or SUPPRESSED:
//
//	checksum already indexed?  -> SUPPRESSED
//	snapshot.Put(key, candidate)
//	IsNewRelease(backup, candidate)
//	remember checksum
//	new?                       -> REPORTED_NEW, else SUPPRESSED
//
// A checksum is reported at most once, across restarts. Re-running a cycle
// with no upstream change reports nothing.
package release
