// Package domain defines the core business entities for ledgersync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Credential: A persisted OAuth2 credential and its expiry rules
//   - Resource: A collection endpoint descriptor with expansion rules
//   - FlatTable: A named table of flattened rows with inferred column types
//   - Shape: The tagged variant describing where a document keeps its items
//   - Settings: The explicit run configuration handed to every component
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
