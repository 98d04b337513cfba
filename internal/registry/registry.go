// Package registry holds the identifier-keyed schema graph.
//
// The registry is the exclusively owned, lock-guarded handle over the graph:
// a foreground CLI loop and a background checker share one instance, and
// every structural operation (register, rename) and bulk read (snapshot,
// adjacency) takes the lock for its full duration. The forward map
// (identifier to node) is the source of truth; the reverse-adjacency view is
// derived on demand and never stored.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/refnlabs/refbuild/internal/errors"
	"github.com/refnlabs/refbuild/internal/types"
)

// SchemaRegistry manages all discovered schemas. It is safe for concurrent
// use by a foreground driver and a background worker.
type SchemaRegistry struct {
	schemas  map[string]*types.SchemaInfo
	mutex    sync.RWMutex
	watchers []chan SchemaEvent
}

// SchemaEvent represents a change in the registry.
type SchemaEvent struct {
	Type      EventType
	Schema    *types.SchemaInfo
	Timestamp time.Time
}

// EventType represents the type of schema event.
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
	EventTypeRenamed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// NewSchemaRegistry creates an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		schemas:  make(map[string]*types.SchemaInfo),
		watchers: make([]chan SchemaEvent, 0),
	}
}

// Register adds a schema to the registry. Re-registering the same file path
// under the same name replaces the node wholesale (the rescan path).
// A second file declaring an already-registered identifier is a
// DuplicateIdentifier error and leaves the registry unchanged.
func (r *SchemaRegistry) Register(schema *types.SchemaInfo) *errors.FileError {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if existing, ok := r.schemas[schema.Name]; ok {
		if existing.FilePath != schema.FilePath {
			return errors.NewDuplicateIdentifier(schema.Name, schema.FilePath, existing.FilePath)
		}
		eventType = EventTypeUpdated
	}

	r.schemas[schema.Name] = schema
	r.notify(SchemaEvent{Type: eventType, Schema: schema, Timestamp: time.Now()})
	return nil
}

// Get retrieves a schema by identifier.
func (r *SchemaRegistry) Get(name string) (*types.SchemaInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	schema, exists := r.schemas[name]
	return schema, exists
}

// PathOf returns the file path backing an identifier.
func (r *SchemaRegistry) PathOf(name string) (string, *errors.FileError) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	schema, exists := r.schemas[name]
	if !exists {
		return "", errors.NewUnknownIdentifier(name)
	}
	return schema.FilePath, nil
}

// Rename moves a node from oldName to newName and rewrites every dependency
// list that referenced oldName. The whole update happens under one lock
// acquisition so no reader observes a half-renamed graph. Renaming to an
// identifier that already belongs to another schema is a DuplicateIdentifier
// error.
func (r *SchemaRegistry) Rename(oldName, newName string) *errors.FileError {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	schema, exists := r.schemas[oldName]
	if !exists {
		return errors.NewUnknownIdentifier(oldName)
	}
	if existing, ok := r.schemas[newName]; ok && newName != oldName {
		return errors.NewDuplicateIdentifier(newName, schema.FilePath, existing.FilePath)
	}

	delete(r.schemas, oldName)
	schema.Name = newName
	r.schemas[newName] = schema

	for _, other := range r.schemas {
		for i, dep := range other.Dependencies {
			if dep == oldName {
				other.Dependencies[i] = newName
			}
		}
	}

	r.notify(SchemaEvent{Type: EventTypeRenamed, Schema: schema, Timestamp: time.Now()})
	return nil
}

// Remove drops a schema from the registry. Dependency entries pointing at the
// removed identifier are left in place; they surface as missing targets when
// the graph is queried.
func (r *SchemaRegistry) Remove(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	schema, exists := r.schemas[name]
	if !exists {
		return
	}
	delete(r.schemas, name)
	r.notify(SchemaEvent{Type: EventTypeRemoved, Schema: schema, Timestamp: time.Now()})
}

// Names returns all identifiers sorted lexicographically. Deterministic
// iteration order is what makes build plans reproducible across runs.
func (r *SchemaRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAll returns a snapshot copy of the registry contents.
func (r *SchemaRegistry) GetAll() map[string]*types.SchemaInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[string]*types.SchemaInfo, len(r.schemas))
	for name, schema := range r.schemas {
		result[name] = schema
	}
	return result
}

// Count returns the number of registered schemas.
func (r *SchemaRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.schemas)
}

// DependencyGraph returns a snapshot of the forward adjacency: identifier to
// the identifiers it references. Dependency slices are copied so callers can
// sort or filter without mutating registry state.
func (r *SchemaRegistry) DependencyGraph() map[string][]string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	graph := make(map[string][]string, len(r.schemas))
	for name, schema := range r.schemas {
		deps := make([]string, len(schema.Dependencies))
		copy(deps, schema.Dependencies)
		graph[name] = deps
	}
	return graph
}

// ReverseGraph derives the reverse adjacency view: identifier to the set of
// identifiers that declare it as a dependency. Always recomputed from the
// forward map so the two views cannot diverge.
func (r *SchemaRegistry) ReverseGraph() map[string][]string {
	forward := r.DependencyGraph()

	reverse := make(map[string][]string, len(forward))
	for name := range forward {
		reverse[name] = []string{}
	}
	for name, deps := range forward {
		seen := make(map[string]bool, len(deps))
		for _, dep := range deps {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			reverse[dep] = append(reverse[dep], name)
		}
	}
	return reverse
}

// Watch returns a channel that receives schema events.
func (r *SchemaRegistry) Watch() <-chan SchemaEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan SchemaEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it.
func (r *SchemaRegistry) UnWatch(ch <-chan SchemaEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// notify broadcasts an event to all watchers. Callers must hold the lock.
func (r *SchemaRegistry) notify(event SchemaEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
