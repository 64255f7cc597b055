package ir

// Version constants for persisted artifacts.
const (
	// SchemaVersion is the record and cache blob schema version.
	SchemaVersion = "1"

	// EngineVersion is the swirl build engine version.
	EngineVersion = "0.1.0"
)
