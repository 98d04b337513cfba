// Package types provides common type definitions used throughout refbuild.
// This package contains shared types to avoid circular dependencies between packages.
package types

import "time"

// SchemaInfo contains metadata about a discovered schema file, including its
// declared identifier and the references it makes to other schemas. Instances
// are created by the scanner and held by the registry for one graph session.
type SchemaInfo struct {
	// Name is the identifier declared in the file header (name=<identifier>)
	Name string
	// FilePath is the absolute path to the .schema file
	FilePath string
	// Dependencies lists the identifiers referenced via refn: tokens, in
	// occurrence order. Repeated references are preserved as repeated entries.
	Dependencies []string
	// LastMod tracks the last modification time observed at scan time
	LastMod time.Time
	// Hash is the hex-encoded SHA-256 digest of the trimmed file content
	Hash string
}

// Artifact is the output of the external build facade for one schema.
type Artifact struct {
	// ID is a content-derived identifier assigned by the facade
	ID string
	// Output is the raw artifact produced by the build command
	Output []byte
	// BuiltAt records when the artifact was produced
	BuiltAt time.Time
}
