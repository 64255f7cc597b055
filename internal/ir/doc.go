// Package ir provides the record types shared by every other swirl package.
//
// This package contains type definitions, identity derivation and canonical
// encoding only. All other internal packages import ir; ir imports nothing
// internal.
//
// Key constraints:
//   - Record ids are derived, never chosen: MacroID and PackageID hash the
//     owner and name with domain separation
//   - All JSON tags use snake_case; legacy "_id" keys are accepted on read
//   - Canonical JSON (RFC 8785) is the only encoding fed to the hash
package ir
