// Package mutate creates, edits and deletes macro records.
//
// Create and edit simulate the change in memory first: the current
// environment (from the cache, or loaded fresh from the records) is
// modified and resolved. Only a successful trial resolve writes the record
// file and rewrites the cache, so a failed mutation leaves both untouched.
// Delete removes the record without resolving and drops the cache.
//
// A Mutator serializes its own operations. Separate processes mutating the
// same record directory are not coordinated.
package mutate
