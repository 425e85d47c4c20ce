package workflow

import (
	"errors"
	"sort"
	"sync"
)

// Diagrammer is anything that renders itself as Mermaid.
type Diagrammer interface {
	Mermaid(opts ...MermaidOption) string
}

// Global registry of named graphs for diagram export.
var (
	regMu    sync.RWMutex
	graphReg = make(map[string]Diagrammer)
)

// Register adds a graph under a name. Returns error if the name already exists or the graph is nil.
func Register(name string, g Diagrammer) error {
	if g == nil {
		return errors.New("nil graph")
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := graphReg[name]; exists {
		return errors.New("graph already registered")
	}
	graphReg[name] = g
	return nil
}

// Get returns a registered graph by name.
func Get(name string) (Diagrammer, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	g, ok := graphReg[name]
	return g, ok
}

// List returns sorted graph names.
func List() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(graphReg))
	for k := range graphReg {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
