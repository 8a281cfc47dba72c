// Package firmware holds the canonical release types and the pure decision
// logic for comparing them.
//
// # Key Types
//
//   - Record: one firmware package for a (device, region, branch) tuple
//   - DeviceRef: a device as listed by the vendor for one region
//   - DeviceList: a region's device name to code mapping, as persisted
//   - RawUpdate: the vendor payload before mapping
//
// # Comparison Policy
//
// Dates use the DD-MM-YYYY form. IsNewer reports new >= old, so two
// releases on the same day with different versions both count as new.
// A missing previous record always yields "new".
//
// # Filename Recovery
//
// Two package filename shapes are recognised:
//
//	OnePlus9Oxygen_22.E.13_OTA_0130_all_2111112106_1e7c7b4c2f3e4a5b.zip   canonical
//	OnePlus9_21_OTA_003_all_1e7c7b4c2f3e4a5b.zip                          irregular
//
// Canonical names carry their own version. Irregular names borrow the last
// known Full version for the same device and branch, with the OTA sequence
// and timestamp spliced in. See ParseFilename and ReconstructVersion.
package firmware
