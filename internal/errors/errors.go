// Package errors provides structured error types for refbuild, covering
// per-file parse failures, graph structure violations, and cache corruption.
//
// Per-file errors are collected into an ErrorCollector and surfaced as a
// batch so one bad file never blocks the graph or the plan for the rest.
// Structural errors (unknown or duplicate identifiers) fail only the single
// operation that triggered them.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Kind categorizes refbuild errors.
type Kind string

const (
	// KindUnreadableFile marks an I/O failure reading a candidate file.
	KindUnreadableFile Kind = "unreadable_file"
	// KindMissingHeader marks a file with no @schema name= declaration.
	KindMissingHeader Kind = "missing_header"
	// KindDuplicateIdentifier marks two files declaring the same identifier.
	KindDuplicateIdentifier Kind = "duplicate_identifier"
	// KindUnknownIdentifier marks a lookup, rename, or ancestor query that
	// referenced a nonexistent node.
	KindUnknownIdentifier Kind = "unknown_identifier"
	// KindCacheFormat marks a corrupt cache file. Treated as cold start.
	KindCacheFormat Kind = "cache_format"
	// KindBuildFailed marks a facade rejection for one schema.
	KindBuildFailed Kind = "build_failed"
)

// FileError is an error tied to one schema file or identifier.
type FileError struct {
	Kind      Kind
	Path      string
	Name      string
	Message   string
	Cause     error
	Timestamp time.Time
}

// Error implements the error interface.
func (e *FileError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	if e.Name != "" {
		parts = append(parts, "schema:"+e.Name)
	}
	parts = append(parts, e.Message)
	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *FileError) Unwrap() error {
	return e.Cause
}

// Is matches errors by Kind so callers can compare against sentinel values.
func (e *FileError) Is(target error) bool {
	var t *FileError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinel values for errors.Is comparisons.
var (
	ErrUnreadableFile      = &FileError{Kind: KindUnreadableFile}
	ErrMissingHeader       = &FileError{Kind: KindMissingHeader}
	ErrDuplicateIdentifier = &FileError{Kind: KindDuplicateIdentifier}
	ErrUnknownIdentifier   = &FileError{Kind: KindUnknownIdentifier}
	ErrCacheFormat         = &FileError{Kind: KindCacheFormat}
	ErrBuildFailed         = &FileError{Kind: KindBuildFailed}
)

// NewUnreadableFile reports an I/O failure for path.
func NewUnreadableFile(path string, cause error) *FileError {
	return &FileError{Kind: KindUnreadableFile, Path: path, Message: "cannot read file", Cause: cause, Timestamp: time.Now()}
}

// NewMissingHeader reports a file whose first non-empty line carries no
// @schema name= declaration.
func NewMissingHeader(path string) *FileError {
	return &FileError{Kind: KindMissingHeader, Path: path, Message: "no @schema name= header found", Timestamp: time.Now()}
}

// NewDuplicateIdentifier reports two files declaring the same name.
func NewDuplicateIdentifier(name, path, existingPath string) *FileError {
	return &FileError{
		Kind:      KindDuplicateIdentifier,
		Path:      path,
		Name:      name,
		Message:   fmt.Sprintf("identifier already declared by %s", existingPath),
		Timestamp: time.Now(),
	}
}

// NewUnknownIdentifier reports a reference to a name absent from the graph.
func NewUnknownIdentifier(name string) *FileError {
	return &FileError{Kind: KindUnknownIdentifier, Name: name, Message: "identifier not present in graph", Timestamp: time.Now()}
}

// NewCacheFormat reports an unparsable cache file.
func NewCacheFormat(path string, cause error) *FileError {
	return &FileError{Kind: KindCacheFormat, Path: path, Message: "cache file is not valid JSON", Cause: cause, Timestamp: time.Now()}
}

// NewBuildFailed wraps a facade rejection for one schema.
func NewBuildFailed(name, path string, cause error) *FileError {
	return &FileError{Kind: KindBuildFailed, Path: path, Name: name, Message: "build facade rejected schema", Cause: cause, Timestamp: time.Now()}
}

// ErrorCollector accumulates per-file errors during a scan or build pass.
// It is safe for concurrent use.
type ErrorCollector struct {
	errors []*FileError
	mutex  sync.RWMutex
}

// NewErrorCollector creates an empty collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{errors: make([]*FileError, 0)}
}

// Add records an error. Nil errors are ignored.
func (ec *ErrorCollector) Add(err *FileError) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// Errors returns a copy of all collected errors.
func (ec *ErrorCollector) Errors() []*FileError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]*FileError, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// HasErrors reports whether any error was collected.
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Clear drops all collected errors.
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = ec.errors[:0]
}

// ByFile groups collected errors by file path.
func (ec *ErrorCollector) ByFile() map[string][]*FileError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make(map[string][]*FileError)
	for _, err := range ec.errors {
		result[err.Path] = append(result[err.Path], err)
	}
	return result
}

// Summary renders collected errors as an itemized list keyed by file,
// paths sorted for stable output.
func (ec *ErrorCollector) Summary() string {
	byFile := ec.ByFile()
	if len(byFile) == 0 {
		return ""
	}

	paths := make([]string, 0, len(byFile))
	for path := range byFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		fmt.Fprintf(&b, "%s:\n", path)
		for _, err := range byFile[path] {
			fmt.Fprintf(&b, "  - %s\n", err.Error())
		}
	}
	return b.String()
}
