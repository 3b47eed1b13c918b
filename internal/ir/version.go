package ir

// Version constants for the IR schema and runtime.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// EngineVersion is the msgledger runtime version.
	EngineVersion = "0.1.0"
)
