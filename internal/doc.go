// Package internal contains the core implementation packages for refbuild.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the refbuild CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - types: shared schema and artifact types
//   - parser: schema header and refn: reference extraction
//   - registry: identifier-keyed schema graph with rename support
//   - graph: cycle-aware topological sorting and ancestor resolution
//   - cache: persistent content-hash cache driving change detection
//   - scanner: directory traversal feeding the registry
//   - build: build planning and the external build facade boundary
//   - watcher: file system monitoring with debouncing
//   - config: configuration management with validation
//   - logging: structured logging built on slog
//   - errors: structured error kinds and batch collection
//
// # Inter-Package Communication
//
// Packages communicate through well-defined interfaces:
//
//   - Scanner parses files and populates the registry
//   - Graph operations consume registry snapshots
//   - Cache classifies candidate files independently of the graph
//   - Build planner intersects cache classification with graph topology
//   - Watcher monitors the file system and triggers incremental plans
//
// For detailed documentation, see the individual package documentation.
package internal
