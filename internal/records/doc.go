// Package records stores packages and macros as one JSON file per record.
//
// Files are named "<kind>.<id>.json" where kind is "package" or "macro".
// Every file is checked against an embedded CUE schema before it is
// decoded. A file that fails to parse or fails the schema is reported as a
// MalformedRecordError and skipped; it never aborts a load.
//
// Writes go to a temporary file in the record directory followed by a
// rename, so readers never observe a partially written record.
package records
