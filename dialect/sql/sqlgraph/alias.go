package sqlgraph

import (
	"sort"
	"strings"
)

// JoinObserver is notified each time a join step is assigned a correlation
// name. path holds the association names traversed from the root relation.
type JoinObserver interface {
	OnJoinResolved(path []string, name string)
}

// JoinObserverFunc adapts a function to JoinObserver.
type JoinObserverFunc func(path []string, name string)

// OnJoinResolved calls f(path, name).
func (f JoinObserverFunc) OnJoinResolved(path []string, name string) { f(path, name) }

// AliasRegistry maps dotted traversal paths ("orders.customer") to the
// correlation name chosen for the path's target table. A registry serves one
// compilation and is not safe for concurrent use.
type AliasRegistry struct {
	aliases map[string]string
	order   []string
}

// NewAliasRegistry returns an empty registry.
func NewAliasRegistry() *AliasRegistry {
	return &AliasRegistry{aliases: make(map[string]string)}
}

// Record stores name for path. Recording a path again replaces its name.
func (r *AliasRegistry) Record(path, name string) {
	if _, ok := r.aliases[path]; !ok {
		r.order = append(r.order, path)
	}
	r.aliases[path] = name
}

// Lookup returns the last name recorded for path.
func (r *AliasRegistry) Lookup(path string) (string, bool) {
	name, ok := r.aliases[path]
	return name, ok
}

// OnJoinResolved implements JoinObserver.
func (r *AliasRegistry) OnJoinResolved(path []string, name string) {
	r.Record(strings.Join(path, "."), name)
}

// Paths returns the recorded paths in order of first recording.
func (r *AliasRegistry) Paths() []string {
	return append([]string(nil), r.order...)
}

// Names returns the distinct recorded names, sorted.
func (r *AliasRegistry) Names() []string {
	seen := make(map[string]struct{}, len(r.aliases))
	names := make([]string, 0, len(r.aliases))
	for _, n := range r.aliases {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of recorded paths.
func (r *AliasRegistry) Len() int { return len(r.order) }
