// Package merge folds per-region snapshots into global views.
//
// Views are recomputed from disk every cycle and never read back as input:
//
//	devices.yml          sorted unique device names across regions
//	latest/<device>.yml  every stored record for the device, in directory order
//	latest.yml           newest record per (product, branch, type)
//
// Merging twice without intervening snapshot writes produces byte-identical
// files.
package merge
