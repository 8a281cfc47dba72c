// Package cycle records one row per tracking cycle in the cycles table.
//
// A run is inserted when the cycle starts and updated when it finishes, so
// an interrupted cycle leaves a row with no finished_at.
package cycle
