// Package snapshot persists the last observed state for each storage key as
// a YAML file, keeping exactly one previous generation beside it.
//
// A key is a slash-separated path relative to the store root, without the
// extension:
//
//	eu/eu                 device list for region eu
//	eu/Stable/OnePlus 9   last Stable record for OnePlus 9 in eu
//
// Put copies the live file to <file>.bak before replacing it. If the copy
// fails the live file is left untouched. Both writes go through a temp file,
// fsync and rename, so readers never see a partial file.
//
// The store has no locks. Callers must not write the same key from two
// goroutines at once.
package snapshot
